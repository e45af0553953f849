package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/gemvault-backend/pkg/enums"
)

// Unit is a unit of measure (kilates, gramos, unidad).
type Unit struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name      string              `gorm:"column:name;not null;uniqueIndex"`
	ValueType enums.UnitValueType `gorm:"column:value_type;type:unit_value_type_enum;not null"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Unit) TableName() string { return "units" }
