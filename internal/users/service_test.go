package users

import (
	"context"
	"io"
	"testing"

	"github.com/angelmondragon/gemvault-backend/pkg/config"
	"github.com/angelmondragon/gemvault-backend/pkg/db/dbtest"
	"github.com/angelmondragon/gemvault-backend/pkg/db/models"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/angelmondragon/gemvault-backend/pkg/logger"
	"github.com/angelmondragon/gemvault-backend/pkg/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testPasswordConfig = config.PasswordConfig{
	ArgonMemoryKB:    64,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func newTestService(t *testing.T) (Service, *Repository, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t).DB()
	repo := NewRepository(conn)
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Password: testPasswordConfig,
		Logger:   logger.New(logger.Options{ServiceName: "users-test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc, repo, conn
}

func boolPtr(v bool) *bool { return &v }

func TestCreateHashesPasswordAndRejectsDuplicates(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{
		Name:     "Lucía",
		Email:    "  Lucia@Piedras.com ",
		Password: "s3cret-pass",
		Role:     enums.UserRoleAuditor,
	})
	require.NoError(t, err)
	assert.Equal(t, "lucia@piedras.com", created.Email)
	assert.True(t, created.IsAuthorized)

	stored, err := repo.FindByEmail(ctx, "lucia@piedras.com")
	require.NoError(t, err)
	require.NotNil(t, stored.PasswordHash)
	ok, err := security.VerifyPassword("s3cret-pass", *stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Create(ctx, CreateInput{Name: "Otra", Email: "lucia@piedras.com", Password: "another-pass", Role: enums.UserRoleUser})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	_, err = svc.Create(ctx, CreateInput{Name: "Bad", Email: "bad@piedras.com", Password: "another-pass", Role: "owner"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestUpdateChangesOnlyProvidedFields(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{
		Name:         "Mateo",
		Email:        "mateo@piedras.com",
		Password:     "first-pass",
		Role:         enums.UserRoleUser,
		IsAuthorized: boolPtr(false),
	})
	require.NoError(t, err)
	assert.False(t, created.IsAuthorized)

	role := enums.UserRoleAdmin
	password := "second-pass"
	updated, err := svc.Update(ctx, created.ID, UpdateInput{Role: &role, IsAuthorized: boolPtr(true), Password: &password})
	require.NoError(t, err)
	assert.Equal(t, "Mateo", updated.Name)
	assert.Equal(t, enums.UserRoleAdmin, updated.Role)
	assert.True(t, updated.IsAuthorized)

	stored, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	ok, err := security.VerifyPassword("second-pass", *stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Update(ctx, uuid.New(), UpdateInput{Role: &role})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestDeleteKeepsLedgerHistory(t *testing.T) {
	svc, _, conn := newTestService(t)
	ctx := context.Background()
	admin := dbtest.MustUser(t, conn, enums.UserRoleAdmin)
	clerk := dbtest.MustUser(t, conn, enums.UserRoleUser)
	category := dbtest.MustCategory(t, conn, "Metales")
	unit := dbtest.MustUnit(t, conn, "gramos", enums.UnitValueTypeDecimal)
	item := dbtest.MustItem(t, conn, "Lingote", category.ID, unit.ID, "0", "10")
	require.NoError(t, conn.Create(&models.InventoryTransaction{
		ItemID: item.ID,
		Type:   enums.TransactionTypeIndividualLoad,
		UserID: &clerk.ID,
	}).Error)

	err := svc.Delete(ctx, admin.ID, admin.ID)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	require.NoError(t, svc.Delete(ctx, admin.ID, clerk.ID))
	var txn models.InventoryTransaction
	require.NoError(t, conn.First(&txn, "item_id = ?", item.ID).Error)
	assert.Nil(t, txn.UserID)

	err = svc.Delete(ctx, admin.ID, clerk.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, admin.ID, list[0].ID)
}
