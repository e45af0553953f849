// Package seed loads the reference catalog, demo stock and operator accounts
// a fresh database needs. Every step is safe to re-run.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/gemvault-backend/internal/inventory"
	"github.com/angelmondragon/gemvault-backend/internal/ledger"
	"github.com/angelmondragon/gemvault-backend/internal/users"
	"github.com/angelmondragon/gemvault-backend/pkg/config"
	"github.com/angelmondragon/gemvault-backend/pkg/db"
	"github.com/angelmondragon/gemvault-backend/pkg/db/models"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	"github.com/angelmondragon/gemvault-backend/pkg/logger"
	"github.com/angelmondragon/gemvault-backend/pkg/security"
)

type unitSeed struct {
	name      string
	valueType enums.UnitValueType
}

type accountSeed struct {
	name       string
	email      string
	password   string
	role       enums.UserRole
	authorized bool
}

type itemSeed struct {
	name     string
	category string
	unit     string
	quantity string
	price    string
}

var units = []unitSeed{
	{name: "kilates", valueType: enums.UnitValueTypeDecimal},
	{name: "gramos", valueType: enums.UnitValueTypeDecimal},
	{name: "unidad", valueType: enums.UnitValueTypeInteger},
}

var categories = []string{"Esmeralda", "Oro", "Diamante", "Plata", "Rubí", "Zafiro"}

var items = []itemSeed{
	{name: "Esmeralda colombiana", category: "Esmeralda", unit: "kilates", quantity: "125.5", price: "0"},
	{name: "Lingote de oro 24k", category: "Oro", unit: "gramos", quantity: "380", price: "0"},
	{name: "Diamante pulido", category: "Diamante", unit: "unidad", quantity: "10", price: "0"},
}

// Options selects what Run loads.
type Options struct {
	AdminOnly bool
	Seed      config.SeedConfig
	Password  config.PasswordConfig
}

// Result counts the rows Run created; existing rows are not counted.
type Result struct {
	Units      int
	Categories int
	Items      int
	Users      int
}

func Run(ctx context.Context, client *db.Client, logg *logger.Logger, opts Options) (*Result, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	result := &Result{}

	if err := seedUsers(ctx, client.DB(), opts, result); err != nil {
		return nil, err
	}
	if opts.AdminOnly {
		return result, nil
	}

	conn := client.DB().WithContext(ctx)
	for _, u := range units {
		created, err := firstOrCreate(conn, &models.Unit{}, &models.Unit{Name: u.name, ValueType: u.valueType}, "name = ?", u.name)
		if err != nil {
			return nil, fmt.Errorf("seeding unit %s: %w", u.name, err)
		}
		if created {
			result.Units++
		}
	}
	for _, name := range categories {
		created, err := firstOrCreate(conn, &models.Category{}, &models.Category{Name: name}, "name = ?", name)
		if err != nil {
			return nil, fmt.Errorf("seeding category %s: %w", name, err)
		}
		if created {
			result.Categories++
		}
	}

	created, err := seedItems(ctx, client, logg)
	if err != nil {
		return nil, err
	}
	result.Items = created

	logg.Info(logg.WithFields(ctx, map[string]any{
		"units":      result.Units,
		"categories": result.Categories,
		"items":      result.Items,
		"users":      result.Users,
	}), "seed.completed")
	return result, nil
}

// firstOrCreate inserts row unless a record matching query already exists.
func firstOrCreate(conn *gorm.DB, dest, row any, query string, args ...any) (bool, error) {
	err := conn.Where(query, args...).First(dest).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if err := conn.Create(row).Error; err != nil {
		return false, err
	}
	return true, nil
}

func seedUsers(ctx context.Context, conn *gorm.DB, opts Options, result *Result) error {
	if opts.Seed.AdminPassword == "" {
		return fmt.Errorf("admin password is required to seed the admin account")
	}
	repo := users.NewRepository(conn)
	accounts := []accountSeed{
		{name: "Administrador", email: opts.Seed.AdminEmail, password: opts.Seed.AdminPassword, role: enums.UserRoleAdmin, authorized: true},
	}
	// the auditor starts pending, like any account an admin has not approved.
	if !opts.AdminOnly && opts.Seed.AuditorEmail != "" {
		accounts = append(accounts, accountSeed{
			name:     "Auditor de pruebas",
			email:    opts.Seed.AuditorEmail,
			password: opts.Seed.AuditorPassword,
			role:     enums.UserRoleAuditor,
		})
	}

	for _, account := range accounts {
		email := users.NormalizeEmail(account.email)
		_, err := repo.FindByEmail(ctx, email)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("looking up %s: %w", email, err)
		}

		var hash *string
		if account.password != "" {
			hashed, err := security.HashPassword(account.password, opts.Password)
			if err != nil {
				return fmt.Errorf("hashing password for %s: %w", email, err)
			}
			hash = &hashed
		}
		if _, err := repo.Create(ctx, users.CreateUserDTO{
			Name:         account.name,
			Email:        email,
			PasswordHash: hash,
			Role:         account.role,
			IsAuthorized: account.authorized,
		}); err != nil {
			return fmt.Errorf("creating %s: %w", email, err)
		}
		result.Users++
	}
	return nil
}

// seedItems creates the demo stock through the inventory service so each
// opening balance is backed by a ledger load.
func seedItems(ctx context.Context, client *db.Client, logg *logger.Logger) (int, error) {
	conn := client.DB()
	ledgerRepo := ledger.NewRepository(conn)
	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{Repo: ledgerRepo, Logger: logg})
	if err != nil {
		return 0, err
	}
	itemRepo := inventory.NewRepository(conn)
	svc, err := inventory.NewService(inventory.ServiceParams{
		Tx:         client,
		Repo:       itemRepo,
		Ledger:     ledgerSvc,
		LedgerRepo: ledgerRepo,
		Logger:     logg,
	})
	if err != nil {
		return 0, err
	}

	created := 0
	for _, seed := range items {
		existing, err := itemRepo.FindByNaturalKey(ctx, seed.name, seed.category, seed.unit)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}
		var category models.Category
		if err := conn.WithContext(ctx).Where("name = ?", seed.category).First(&category).Error; err != nil {
			return created, fmt.Errorf("category %s: %w", seed.category, err)
		}
		var unit models.Unit
		if err := conn.WithContext(ctx).Where("name = ?", seed.unit).First(&unit).Error; err != nil {
			return created, fmt.Errorf("unit %s: %w", seed.unit, err)
		}
		if _, err := svc.Create(ctx, inventory.CreateItemInput{
			Name:       seed.name,
			CategoryID: category.ID,
			UnitID:     unit.ID,
			Quantity:   decimal.RequireFromString(seed.quantity),
			Price:      decimal.RequireFromString(seed.price),
		}); err != nil {
			return created, fmt.Errorf("creating item %s: %w", seed.name, err)
		}
		created++
	}
	return created, nil
}
