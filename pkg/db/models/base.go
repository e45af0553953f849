package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID gives a row a client side UUID so inserts behave the same on
// Postgres and SQLite.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

func (c *SubcategoryCode) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

func (u *Unit) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}

func (i *InventoryItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

func (t *InventoryTransaction) BeforeCreate(*gorm.DB) error {
	assignID(&t.ID)
	return nil
}

func (g *InventoryTransactionGroup) BeforeCreate(*gorm.DB) error {
	assignID(&g.ID)
	return nil
}

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}

// All lists every persisted model, in dependency order.
func All() []any {
	return []any{
		&User{},
		&Category{},
		&SubcategoryCode{},
		&Unit{},
		&InventoryItem{},
		&InventoryTransactionGroup{},
		&InventoryTransaction{},
	}
}
