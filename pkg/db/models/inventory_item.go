package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryItem is a stocked product. Quantity is a cached balance that always
// equals the sum of the item's ledger amounts.
type InventoryItem struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name              string           `gorm:"column:name;not null"`
	CategoryID        uuid.UUID        `gorm:"column:category_id;type:uuid;not null"`
	UnitID            uuid.UUID        `gorm:"column:unit_id;type:uuid;not null"`
	SubcategoryCodeID *uuid.UUID       `gorm:"column:subcategory_code_id;type:uuid"`
	Quantity          decimal.Decimal  `gorm:"column:quantity;type:numeric(20,3);not null"`
	Price             decimal.Decimal  `gorm:"column:price;type:numeric(14,2);not null"`
	IsActive          bool             `gorm:"column:is_active;not null"`
	DeletedAt         *time.Time       `gorm:"column:deleted_at"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
	Category          *Category        `gorm:"foreignKey:CategoryID"`
	Unit              *Unit            `gorm:"foreignKey:UnitID"`
	SubcategoryCode   *SubcategoryCode `gorm:"foreignKey:SubcategoryCodeID"`
}

func (InventoryItem) TableName() string { return "inventory_items" }
