package models

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies inventory items (e.g. "Piedras preciosas").
type Category struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Name      string            `gorm:"column:name;not null;uniqueIndex"`
	Codes     []SubcategoryCode `gorm:"foreignKey:CategoryID"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (Category) TableName() string { return "categories" }

// SubcategoryCode is a short code scoped to one category.
type SubcategoryCode struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CategoryID uuid.UUID `gorm:"column:category_id;type:uuid;not null;uniqueIndex:subcategory_codes_category_code_key"`
	Code       string    `gorm:"column:code;not null;uniqueIndex:subcategory_codes_category_code_key"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (SubcategoryCode) TableName() string { return "subcategory_codes" }
