package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/gemvault-backend/pkg/db/dbtest"
	"github.com/angelmondragon/gemvault-backend/pkg/db/models"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryListByItemNewestFirst(t *testing.T) {
	fx := dbtest.NewFixture(t)
	item := fx.Item(t, "Topacio", fx.Carats, "0", "50")
	conn := fx.Client.DB()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, conn.Create(&models.InventoryTransaction{
			ItemID:    item.ID,
			Type:      enums.TransactionTypeIndividualLoad,
			Amount:    decimal.NewFromInt(int64(i + 1)),
			Price:     decimal.NewNullDecimal(decimal.NewFromInt(50)),
			UserID:    &fx.Admin.ID,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}).Error)
	}
	repo := NewRepository(conn)
	ctx := context.Background()

	all, err := repo.ListByItem(ctx, item.ID, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].Amount.Equal(decimal.NewFromInt(3)))
	require.NotNil(t, all[0].User)
	assert.Equal(t, fx.Admin.ID, all[0].User.ID)

	limited, err := repo.ListByItem(ctx, item.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	sum, err := repo.SumByItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.NewFromInt(6)))
}

func TestRepositoryLookupsReturnNotFound(t *testing.T) {
	fx := dbtest.NewFixture(t)
	repo := NewRepository(fx.Client.DB())
	ctx := context.Background()

	_, err := repo.FindByID(ctx, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = repo.FindGroup(ctx, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = repo.LockItems(ctx, []uuid.UUID{uuid.New()})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
