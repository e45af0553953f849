package history

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/gemvault-backend/internal/ledger"
	"github.com/angelmondragon/gemvault-backend/pkg/db/dbtest"
	"github.com/angelmondragon/gemvault-backend/pkg/db/models"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/angelmondragon/gemvault-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type historyEnv struct {
	fx     *dbtest.Fixture
	ledger ledger.Service
	now    time.Time
	svc    Service
}

func newHistoryEnv(t *testing.T) *historyEnv {
	t.Helper()
	fx := dbtest.NewFixture(t)
	env := &historyEnv{fx: fx, now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	repo := ledger.NewRepository(fx.Client.DB())
	var err error
	env.ledger, err = ledger.NewService(ledger.ServiceParams{Repo: repo, Now: func() time.Time { return env.now }})
	require.NoError(t, err)
	env.svc, err = NewService(repo)
	require.NoError(t, err)
	return env
}

func (e *historyEnv) record(t *testing.T, m ledger.Movement) *models.InventoryTransaction {
	t.Helper()
	var out *models.InventoryTransaction
	require.NoError(t, e.fx.Client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		out, err = e.ledger.Record(context.Background(), tx, m)
		return err
	}))
	return out
}

func (e *historyEnv) recordGroup(t *testing.T, header ledger.GroupHeader, lines []ledger.Movement) *models.InventoryTransactionGroup {
	t.Helper()
	var out *models.InventoryTransactionGroup
	require.NoError(t, e.fx.Client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		out, err = e.ledger.RecordGroup(context.Background(), tx, header, lines)
		return err
	}))
	return out
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func decPtr(value string) *decimal.Decimal {
	d := dec(value)
	return &d
}

func TestListFiltersByTypeAndDay(t *testing.T) {
	env := newHistoryEnv(t)
	item := env.fx.Item(t, "Esmeralda", env.fx.Carats, "0", "100")

	env.record(t, ledger.Movement{ItemID: item.ID, Type: enums.TransactionTypeIndividualLoad, Amount: dec("10"), Price: decPtr("100"), ActorID: &env.fx.Admin.ID})
	env.now = env.now.AddDate(0, 0, 2)
	cash := enums.PaymentMethodCash
	env.record(t, ledger.Movement{ItemID: item.ID, Type: enums.TransactionTypeIndividualSale, Amount: dec("-2"), Price: decPtr("150"), PaymentMethod: &cash})

	ctx := context.Background()
	all, err := env.svc.List(ctx, ListParams{})
	require.NoError(t, err)
	require.Len(t, all.Entries, 2)
	assert.Equal(t, enums.TransactionTypeIndividualSale, all.Entries[0].Type)
	assert.Equal(t, SystemActor, all.Entries[0].User)
	assert.Equal(t, env.fx.Admin.Name, all.Entries[1].User)
	assert.Equal(t, "Esmeralda", all.Entries[1].ItemName)
	assert.Equal(t, "kilates", all.Entries[1].Unit)
	assert.Equal(t, int64(2), all.Pagination.Total)

	sale := enums.TransactionTypeIndividualSale
	sales, err := env.svc.List(ctx, ListParams{Type: &sale})
	require.NoError(t, err)
	require.Len(t, sales.Entries, 1)

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	firstDay, err := env.svc.List(ctx, ListParams{From: &day, To: &day})
	require.NoError(t, err)
	require.Len(t, firstDay.Entries, 1)
	assert.Equal(t, enums.TransactionTypeIndividualLoad, firstDay.Entries[0].Type)

	paged, err := env.svc.List(ctx, ListParams{Params: pagination.Params{Page: 2, Limit: 1}})
	require.NoError(t, err)
	require.Len(t, paged.Entries, 1)
	assert.Equal(t, enums.TransactionTypeIndividualLoad, paged.Entries[0].Type)

	bogus := enums.TransactionType("refund")
	_, err = env.svc.List(ctx, ListParams{Type: &bogus})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	later := day.AddDate(0, 0, 5)
	_, err = env.svc.List(ctx, ListParams{From: &later, To: &day})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDetailRendersReceipt(t *testing.T) {
	env := newHistoryEnv(t)
	item := env.fx.Item(t, "Diamante", env.fx.Pieces, "5", "900")
	card := enums.PaymentMethodCard
	client := "Ana"
	txn := env.record(t, ledger.Movement{
		ItemID:        item.ID,
		Type:          enums.TransactionTypeIndividualSale,
		Amount:        dec("-2"),
		Price:         decPtr("950"),
		ActorID:       &env.fx.Admin.ID,
		PaymentMethod: &card,
		ClientName:    &client,
	})

	receipt, err := env.svc.Detail(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionTypeIndividualSale, receipt.Type)
	assert.Equal(t, env.fx.Admin.Name, receipt.User)
	require.Len(t, receipt.Products, 1)
	assert.Equal(t, "Diamante", receipt.Products[0].Name)
	assert.Equal(t, "Piedras preciosas", receipt.Products[0].Category)
	assert.True(t, receipt.Products[0].Quantity.Equal(dec("2")))
	assert.True(t, receipt.TotalGeneral.Equal(dec("1900")))
	assert.Nil(t, receipt.Group)

	_, err = env.svc.Detail(context.Background(), uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestGroupSumsLineTotals(t *testing.T) {
	env := newHistoryEnv(t)
	first := env.fx.Item(t, "Esmeralda", env.fx.Carats, "5", "100")
	second := env.fx.Item(t, "Diamante", env.fx.Pieces, "3", "900")
	transfer := enums.PaymentMethodTransfer

	group := env.recordGroup(t, ledger.GroupHeader{Kind: enums.GroupKindSale, PaymentMethod: &transfer}, []ledger.Movement{
		{ItemID: first.ID, Amount: dec("-1.5"), Price: decPtr("120")},
		{ItemID: second.ID, Amount: dec("-2"), Price: decPtr("1000")},
	})

	receipt, err := env.svc.Group(context.Background(), group.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionTypeGroupSale, receipt.Type)
	assert.Equal(t, SystemActor, receipt.User)
	require.Len(t, receipt.Products, 2)
	assert.True(t, receipt.TotalGeneral.Equal(dec("2180")))
	require.NotNil(t, receipt.Group)
	assert.Equal(t, 2, receipt.Group.Lines)

	detail, err := env.svc.Detail(context.Background(), group.Transactions[0].ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Group)
	assert.Equal(t, group.ID, detail.Group.ID)
	assert.Equal(t, enums.GroupKindSale, detail.Group.Kind)
	assert.Equal(t, 2, detail.Group.Lines)

	_, err = env.svc.Group(context.Background(), uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
