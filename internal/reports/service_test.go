package reports

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/gemvault-backend/internal/inventory"
	"github.com/angelmondragon/gemvault-backend/internal/ledger"
	"github.com/angelmondragon/gemvault-backend/pkg/db/dbtest"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/angelmondragon/gemvault-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type reportEnv struct {
	fx     *dbtest.Fixture
	ledger ledger.Service
	now    time.Time
	svc    Service
}

func newReportEnv(t *testing.T) *reportEnv {
	t.Helper()
	fx := dbtest.NewFixture(t)
	env := &reportEnv{fx: fx, now: time.Date(2026, 5, 4, 15, 0, 0, 0, time.UTC)}
	repo := ledger.NewRepository(fx.Client.DB())
	var err error
	env.ledger, err = ledger.NewService(ledger.ServiceParams{Repo: repo, Now: func() time.Time { return env.now }})
	require.NoError(t, err)
	env.svc, err = NewService(ServiceParams{Ledger: repo, Items: inventory.NewRepository(fx.Client.DB())})
	require.NoError(t, err)
	return env
}

func (e *reportEnv) record(t *testing.T, m ledger.Movement) {
	t.Helper()
	require.NoError(t, e.fx.Client.WithTx(context.Background(), func(tx *gorm.DB) error {
		_, err := e.ledger.Record(context.Background(), tx, m)
		return err
	}))
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func decPtr(value string) *decimal.Decimal {
	d := dec(value)
	return &d
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// seed records one load and three sales of two products across two days.
func seed(t *testing.T, env *reportEnv) {
	t.Helper()
	emerald := env.fx.Item(t, "Esmeralda", env.fx.Carats, "0", "100")
	diamond := env.fx.Item(t, "Diamante", env.fx.Pieces, "0", "900")
	cash := enums.PaymentMethodCash

	env.record(t, ledger.Movement{ItemID: emerald.ID, Type: enums.TransactionTypeIndividualLoad, Amount: dec("20"), Price: decPtr("100")})
	env.record(t, ledger.Movement{ItemID: diamond.ID, Type: enums.TransactionTypeIndividualLoad, Amount: dec("5"), Price: decPtr("900")})
	env.record(t, ledger.Movement{ItemID: emerald.ID, Type: enums.TransactionTypeIndividualSale, Amount: dec("-3"), Price: decPtr("500"), PaymentMethod: &cash, ActorID: &env.fx.Admin.ID})
	env.now = env.now.AddDate(0, 0, 1)
	env.record(t, ledger.Movement{ItemID: emerald.ID, Type: enums.TransactionTypeIndividualSale, Amount: dec("-1.5"), Price: decPtr("200"), PaymentMethod: &cash})
	env.record(t, ledger.Movement{ItemID: diamond.ID, Type: enums.TransactionTypeIndividualSale, Amount: dec("-2"), Price: decPtr("1000"), PaymentMethod: &cash})
}

func TestAccountingTotalsCoverWholeRange(t *testing.T) {
	env := newReportEnv(t)
	seed(t, env)

	report, err := env.svc.Accounting(context.Background(), Filter{
		Params: pagination.Params{Page: 1, Limit: 2},
		From:   day(2026, 5, 4),
		To:     day(2026, 5, 5),
	})
	require.NoError(t, err)
	assert.Len(t, report.Rows, 2)
	assert.Equal(t, int64(3), report.Pagination.Total)
	assert.Equal(t, int64(3), report.Totals.TransactionCount)
	assert.True(t, report.Totals.TotalSales.Equal(dec("3800")), "got %s", report.Totals.TotalSales)
	assert.True(t, report.Totals.TotalUnits.Equal(dec("6.5")))

	firstDay, err := env.svc.Accounting(context.Background(), Filter{From: day(2026, 5, 4), To: day(2026, 5, 4)})
	require.NoError(t, err)
	require.Len(t, firstDay.Rows, 1)
	assert.True(t, firstDay.Rows[0].Total.Equal(dec("1500")))
	assert.Equal(t, env.fx.Admin.Name, firstDay.Rows[0].User)

	_, err = env.svc.Accounting(context.Background(), Filter{From: day(2026, 5, 4)})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestTransactionsFiltersByProductAndType(t *testing.T) {
	env := newReportEnv(t)
	seed(t, env)
	ctx := context.Background()

	all, err := env.svc.Transactions(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), all.Pagination.Total)
	assert.True(t, all.Totals.TotalUnits.Equal(dec("31.5")))
	assert.True(t, all.Totals.TotalSales.Equal(dec("3800")))

	emerald, err := env.svc.Transactions(ctx, Filter{Product: "esmer"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), emerald.Pagination.Total)

	load := enums.TransactionTypeIndividualLoad
	loads, err := env.svc.Transactions(ctx, Filter{Type: &load})
	require.NoError(t, err)
	assert.Equal(t, int64(2), loads.Pagination.Total)
	assert.True(t, loads.Totals.TotalSales.IsZero())
}

func TestSalesRequiresRange(t *testing.T) {
	env := newReportEnv(t)
	seed(t, env)

	rows, err := env.svc.Sales(context.Background(), day(2026, 5, 5), day(2026, 5, 5))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	units := map[string]bool{}
	for _, row := range rows {
		assert.True(t, row.Type.IsSale())
		units[row.Unit] = true
	}
	assert.True(t, units["unidad"])
	assert.True(t, units["kilates"])

	_, err = env.svc.Sales(context.Background(), nil, day(2026, 5, 5))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func readSheet(t *testing.T, content []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	require.NoError(t, err)
	return rows
}

func TestExportAccountingWorkbook(t *testing.T) {
	env := newReportEnv(t)
	seed(t, env)

	export, err := env.svc.ExportAccounting(context.Background(), day(2026, 5, 4), day(2026, 5, 5))
	require.NoError(t, err)
	assert.Equal(t, AccountingFilename, export.Filename)

	rows := readSheet(t, export.Content)
	assert.Equal(t, []string{"Fecha", "Producto", "Cantidad", "Precio Unitario", "Total", "Usuario"}, rows[0])
	// header, three sales, blank, three summary rows
	require.Len(t, rows, 8)
	assert.Equal(t, "Total vendido", rows[5][3])
	assert.Equal(t, "3800", rows[5][4])
	assert.Equal(t, "Transacciones", rows[7][3])
	assert.Equal(t, "3", rows[7][4])

	_, err = env.svc.ExportTransactions(context.Background(), Filter{})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestExportTransactionsAndInventory(t *testing.T) {
	env := newReportEnv(t)
	seed(t, env)

	export, err := env.svc.ExportTransactions(context.Background(), Filter{From: day(2026, 5, 4), To: day(2026, 5, 4)})
	require.NoError(t, err)
	assert.Equal(t, TransactionsFilename, export.Filename)
	rows := readSheet(t, export.Content)
	assert.Equal(t, "Tipo", rows[0][6])
	require.Len(t, rows, 8)
	assert.Equal(t, "Total unidades", rows[6][3])
	assert.Equal(t, "28", rows[6][4])

	inventoryExport, err := env.svc.ExportInventory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, InventoryFilename, inventoryExport.Filename)
	rows = readSheet(t, inventoryExport.Content)
	assert.Equal(t, []string{"Nombre", "Tipo", "Unidad", "Cantidad", "Precio Unitario", "Subtotal"}, rows[0])
	assert.Equal(t, "Diamante", rows[1][0])
	assert.Equal(t, "3", rows[1][3])
	assert.Equal(t, "Esmeralda", rows[2][0])
	assert.Equal(t, "15.5", rows[2][3])
	assert.Equal(t, "Valor total", rows[4][4])
	assert.Equal(t, "4250", rows[4][5])
}
