package seed

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gemvault-backend/pkg/config"
	"github.com/angelmondragon/gemvault-backend/pkg/db/dbtest"
	"github.com/angelmondragon/gemvault-backend/pkg/db/models"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	"github.com/angelmondragon/gemvault-backend/pkg/logger"
	"github.com/angelmondragon/gemvault-backend/pkg/security"
)

func testOptions() Options {
	return Options{
		Seed: config.SeedConfig{
			AdminEmail:    "Admin@Piedras.com",
			AdminPassword: "Secret#123",
			AuditorEmail:  "auditor@piedras.com",
		},
		Password: config.PasswordConfig{ArgonMemoryKB: 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32},
	}
}

func TestRunSeedsCatalogStockAndUsers(t *testing.T) {
	client := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "seed-test", Output: io.Discard})
	ctx := context.Background()

	result, err := Run(ctx, client, logg, testOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Units)
	assert.Equal(t, len(categories), result.Categories)
	assert.Equal(t, 3, result.Items)
	assert.Equal(t, 2, result.Users)

	var emerald models.InventoryItem
	require.NoError(t, client.DB().Where("name = ?", "Esmeralda colombiana").First(&emerald).Error)
	assert.True(t, emerald.Quantity.Equal(decimal.RequireFromString("125.5")))

	var loads []models.InventoryTransaction
	require.NoError(t, client.DB().Where("item_id = ?", emerald.ID).Find(&loads).Error)
	require.Len(t, loads, 1)
	assert.Equal(t, enums.TransactionTypeIndividualLoad, loads[0].Type)
	assert.True(t, loads[0].Amount.Equal(emerald.Quantity))

	var admin models.User
	require.NoError(t, client.DB().Where("email = ?", "admin@piedras.com").First(&admin).Error)
	assert.Equal(t, enums.UserRoleAdmin, admin.Role)
	assert.True(t, admin.IsAuthorized)
	require.NotNil(t, admin.PasswordHash)
	ok, err := security.VerifyPassword("Secret#123", *admin.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	var auditor models.User
	require.NoError(t, client.DB().Where("email = ?", "auditor@piedras.com").First(&auditor).Error)
	assert.False(t, auditor.IsAuthorized)
	assert.Nil(t, auditor.PasswordHash)
}

func TestRunIsRepeatable(t *testing.T) {
	client := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "seed-test", Output: io.Discard})
	ctx := context.Background()

	_, err := Run(ctx, client, logg, testOptions())
	require.NoError(t, err)
	again, err := Run(ctx, client, logg, testOptions())
	require.NoError(t, err)
	assert.Equal(t, Result{}, *again)

	var count int64
	require.NoError(t, client.DB().Model(&models.InventoryTransaction{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestRunAdminOnly(t *testing.T) {
	client := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "seed-test", Output: io.Discard})
	opts := testOptions()
	opts.AdminOnly = true

	result, err := Run(context.Background(), client, logg, opts)
	require.NoError(t, err)
	assert.Equal(t, Result{Users: 1}, *result)

	var units int64
	require.NoError(t, client.DB().Model(&models.Unit{}).Count(&units).Error)
	assert.Zero(t, units)
}

func TestRunRequiresAdminPassword(t *testing.T) {
	client := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "seed-test", Output: io.Discard})
	opts := testOptions()
	opts.Seed.AdminPassword = ""

	_, err := Run(context.Background(), client, logg, opts)
	require.Error(t, err)
}
