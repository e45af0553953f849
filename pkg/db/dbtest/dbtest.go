// Package dbtest opens throwaway SQLite databases shaped from the models and
// seeds the fixtures repository and service tests share.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/angelmondragon/gemvault-backend/pkg/config"
	"github.com/angelmondragon/gemvault-backend/pkg/db"
	"github.com/angelmondragon/gemvault-backend/pkg/db/models"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Open returns a client over a private in-memory database with every model
// migrated. The database disappears when the test finishes.
func Open(t testing.TB) *db.Client {
	t.Helper()

	dsn := "file:gemvault_" + uuid.NewString() + "?mode=memory&cache=shared"
	client, err := db.New(context.Background(), config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    dsn,
	}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := client.DB().AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func MustUnit(t testing.TB, conn *gorm.DB, name string, valueType enums.UnitValueType) *models.Unit {
	t.Helper()
	unit := &models.Unit{Name: name, ValueType: valueType}
	if err := conn.Create(unit).Error; err != nil {
		t.Fatalf("create unit: %v", err)
	}
	return unit
}

func MustCategory(t testing.TB, conn *gorm.DB, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name}
	if err := conn.Create(category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return category
}

func MustUser(t testing.TB, conn *gorm.DB, role enums.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Name:         "Tester " + string(role),
		Email:        fmt.Sprintf("gv_test_%s@example.com", uuid.NewString()),
		Role:         role,
		IsAuthorized: true,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// MustItem creates an active item whose ledger holds a single opening load
// for the given quantity, so the balance invariant holds from the start.
func MustItem(t testing.TB, conn *gorm.DB, name string, categoryID, unitID uuid.UUID, qty, price string) *models.InventoryItem {
	t.Helper()
	quantity := decimal.RequireFromString(qty)
	item := &models.InventoryItem{
		Name:       name,
		CategoryID: categoryID,
		UnitID:     unitID,
		Quantity:   quantity,
		Price:      decimal.RequireFromString(price),
		IsActive:   true,
	}
	if err := conn.Create(item).Error; err != nil {
		t.Fatalf("create item: %v", err)
	}
	if quantity.IsPositive() {
		opening := &models.InventoryTransaction{
			ItemID: item.ID,
			Type:   enums.TransactionTypeIndividualLoad,
			Amount: quantity,
			Price:  decimal.NewNullDecimal(item.Price),
		}
		if err := conn.Create(opening).Error; err != nil {
			t.Fatalf("create opening load: %v", err)
		}
	}
	return item
}

// Fixture bundles the catalog rows most inventory tests start from.
type Fixture struct {
	Client   *db.Client
	Admin    *models.User
	Category *models.Category
	Carats   *models.Unit
	Pieces   *models.Unit
}

// NewFixture opens a database with one admin, one category, a decimal unit
// ("kilates") and an integer unit ("unidad").
func NewFixture(t testing.TB) *Fixture {
	t.Helper()
	client := Open(t)
	conn := client.DB()
	return &Fixture{
		Client:   client,
		Admin:    MustUser(t, conn, enums.UserRoleAdmin),
		Category: MustCategory(t, conn, "Piedras preciosas"),
		Carats:   MustUnit(t, conn, "kilates", enums.UnitValueTypeDecimal),
		Pieces:   MustUnit(t, conn, "unidad", enums.UnitValueTypeInteger),
	}
}

// Item creates an item in the fixture category with the chosen unit.
func (f *Fixture) Item(t testing.TB, name string, unit *models.Unit, qty, price string) *models.InventoryItem {
	t.Helper()
	return MustItem(t, f.Client.DB(), name, f.Category.ID, unit.ID, qty, price)
}
