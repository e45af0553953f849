package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/gemvault-backend/pkg/enums"
)

// InventoryTransactionGroup is the header of a bulk load or grouped sale.
type InventoryTransactionGroup struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	Kind          enums.GroupKind        `gorm:"column:kind;type:group_kind_enum;not null"`
	UserID        *uuid.UUID             `gorm:"column:user_id;type:uuid"`
	PaymentMethod *enums.PaymentMethod   `gorm:"column:payment_method;type:payment_method_enum"`
	ClientName    *string                `gorm:"column:client_name"`
	Notes         *string                `gorm:"column:notes"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
	User          *User                  `gorm:"foreignKey:UserID"`
	Transactions  []InventoryTransaction `gorm:"foreignKey:GroupID"`
}

func (InventoryTransactionGroup) TableName() string { return "inventory_transaction_groups" }
