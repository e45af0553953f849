package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gemvault-backend/pkg/enums"
)

// InventoryTransaction is an immutable ledger row. Amount is signed: loads are
// positive, sales and adjustments negative, product edits zero.
type InventoryTransaction struct {
	ID            uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	ItemID        uuid.UUID                  `gorm:"column:item_id;type:uuid;not null;index"`
	Type          enums.TransactionType      `gorm:"column:type;type:transaction_type_enum;not null"`
	Amount        decimal.Decimal            `gorm:"column:amount;type:numeric(20,3);not null"`
	Price         decimal.NullDecimal        `gorm:"column:price;type:numeric(14,2)"`
	GroupID       *uuid.UUID                 `gorm:"column:group_id;type:uuid;index"`
	UserID        *uuid.UUID                 `gorm:"column:user_id;type:uuid"`
	PaymentMethod *enums.PaymentMethod       `gorm:"column:payment_method;type:payment_method_enum"`
	ClientName    *string                    `gorm:"column:client_name"`
	Notes         *string                    `gorm:"column:notes"`
	CreatedAt     time.Time                  `gorm:"column:created_at;autoCreateTime;index"`
	Item          *InventoryItem             `gorm:"foreignKey:ItemID"`
	User          *User                      `gorm:"foreignKey:UserID"`
	Group         *InventoryTransactionGroup `gorm:"foreignKey:GroupID"`
}

func (InventoryTransaction) TableName() string { return "inventory_transactions" }

// Quantity returns the unsigned amount moved.
func (t InventoryTransaction) Quantity() decimal.Decimal {
	return t.Amount.Abs()
}

// LineTotal is |amount| x price, zero when the row carries no price.
func (t InventoryTransaction) LineTotal() decimal.Decimal {
	if !t.Price.Valid {
		return decimal.Zero
	}
	return t.Amount.Abs().Mul(t.Price.Decimal)
}
