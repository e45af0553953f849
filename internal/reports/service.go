package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/gemvault-backend/internal/history"
	"github.com/angelmondragon/gemvault-backend/internal/ledger"
	"github.com/angelmondragon/gemvault-backend/pkg/db/models"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/angelmondragon/gemvault-backend/pkg/logger"
	"github.com/angelmondragon/gemvault-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Filter selects the movements a report covers. From and To are inclusive
// calendar days.
type Filter struct {
	pagination.Params
	From    *time.Time
	To      *time.Time
	Product string
	Type    *enums.TransactionType
}

// Row is one movement as it appears in a report.
type Row struct {
	TransactionID uuid.UUID             `json:"transaction_id"`
	Date          time.Time             `json:"date"`
	Product       string                `json:"product"`
	Unit          string                `json:"unit"`
	Type          enums.TransactionType `json:"type"`
	TypeLabel     string                `json:"type_label"`
	Quantity      decimal.Decimal       `json:"quantity"`
	UnitPrice     decimal.Decimal       `json:"unit_price"`
	Total         decimal.Decimal       `json:"total"`
	User          string                `json:"user"`
}

// Totals summarise every row matching a filter, not just the current page.
type Totals struct {
	TotalSales       decimal.Decimal `json:"total_sales"`
	TotalUnits       decimal.Decimal `json:"total_units"`
	TransactionCount int64           `json:"transaction_count"`
}

type Report struct {
	Rows       []Row           `json:"rows"`
	Pagination pagination.Meta `json:"pagination"`
	Totals     Totals          `json:"totals"`
}

// Export is a generated spreadsheet ready to be sent as an attachment.
type Export struct {
	Filename string
	Content  []byte
}

type itemLister interface {
	ListAll(ctx context.Context) ([]models.InventoryItem, error)
}

// Service builds the transaction, sales and accounting reports and their
// spreadsheet exports.
type Service interface {
	Transactions(ctx context.Context, filter Filter) (*Report, error)
	Sales(ctx context.Context, from, to *time.Time) ([]Row, error)
	Accounting(ctx context.Context, filter Filter) (*Report, error)
	ExportTransactions(ctx context.Context, filter Filter) (*Export, error)
	ExportAccounting(ctx context.Context, from, to *time.Time) (*Export, error)
	ExportInventory(ctx context.Context) (*Export, error)
}

type ServiceParams struct {
	Ledger ledger.Repository
	Items  itemLister
	Logger *logger.Logger
}

type service struct {
	ledger ledger.Repository
	items  itemLister
	logg   *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Items == nil {
		return nil, fmt.Errorf("item lister required")
	}
	return &service{ledger: params.Ledger, items: params.Items, logg: params.Logger}, nil
}

func (s *service) Transactions(ctx context.Context, filter Filter) (*Report, error) {
	query, err := filter.ledgerFilter(false)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, query, filter.Params)
}

func (s *service) Sales(ctx context.Context, from, to *time.Time) ([]Row, error) {
	query, err := salesFilter(from, to)
	if err != nil {
		return nil, err
	}
	txns, err := s.ledger.SearchAll(ctx, query)
	if err != nil {
		return nil, err
	}
	return newRows(txns), nil
}

func (s *service) Accounting(ctx context.Context, filter Filter) (*Report, error) {
	query, err := salesFilter(filter.From, filter.To)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, query, filter.Params)
}

func (s *service) ExportTransactions(ctx context.Context, filter Filter) (*Export, error) {
	query, err := filter.ledgerFilter(true)
	if err != nil {
		return nil, err
	}
	txns, err := s.ledger.SearchAll(ctx, query)
	if err != nil {
		return nil, err
	}
	content, err := transactionsWorkbook(newRows(txns))
	if err != nil {
		return nil, s.exportFailed(ctx, err)
	}
	return &Export{Filename: TransactionsFilename, Content: content}, nil
}

func (s *service) ExportAccounting(ctx context.Context, from, to *time.Time) (*Export, error) {
	query, err := salesFilter(from, to)
	if err != nil {
		return nil, err
	}
	txns, err := s.ledger.SearchAll(ctx, query)
	if err != nil {
		return nil, err
	}
	content, err := accountingWorkbook(newRows(txns))
	if err != nil {
		return nil, s.exportFailed(ctx, err)
	}
	return &Export{Filename: AccountingFilename, Content: content}, nil
}

func (s *service) ExportInventory(ctx context.Context) (*Export, error) {
	items, err := s.items.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	content, err := inventoryWorkbook(items)
	if err != nil {
		return nil, s.exportFailed(ctx, err)
	}
	return &Export{Filename: InventoryFilename, Content: content}, nil
}

func (s *service) page(ctx context.Context, query ledger.Filter, params pagination.Params) (*Report, error) {
	params = params.Normalize()
	txns, total, err := s.ledger.Search(ctx, query, params)
	if err != nil {
		return nil, err
	}
	all, err := s.ledger.SearchAll(ctx, query)
	if err != nil {
		return nil, err
	}
	return &Report{
		Rows:       newRows(txns),
		Pagination: pagination.NewMeta(params, total),
		Totals:     summarize(newRows(all)),
	}, nil
}

func (s *service) exportFailed(ctx context.Context, err error) error {
	if s.logg != nil {
		s.logg.Error(ctx, "reports.export_failed", err)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not build spreadsheet")
}

// ledgerFilter maps the report filter. Exports require a date range.
func (f Filter) ledgerFilter(requireRange bool) (ledger.Filter, error) {
	if requireRange && (f.From == nil || f.To == nil) {
		return ledger.Filter{}, pkgerrors.New(pkgerrors.CodeValidation, "from and to dates are required")
	}
	from, to, err := history.DayRange(f.From, f.To)
	if err != nil {
		return ledger.Filter{}, err
	}
	query := ledger.Filter{Product: f.Product, From: from, To: to}
	if f.Type != nil {
		if !f.Type.IsValid() {
			return ledger.Filter{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", *f.Type))
		}
		query.Types = []enums.TransactionType{*f.Type}
	}
	return query, nil
}

func salesFilter(from, to *time.Time) (ledger.Filter, error) {
	if from == nil || to == nil {
		return ledger.Filter{}, pkgerrors.New(pkgerrors.CodeValidation, "from and to dates are required")
	}
	start, end, err := history.DayRange(from, to)
	if err != nil {
		return ledger.Filter{}, err
	}
	return ledger.Filter{Types: enums.SaleTransactionTypes, From: start, To: end}, nil
}

func newRows(txns []models.InventoryTransaction) []Row {
	rows := make([]Row, 0, len(txns))
	for i := range txns {
		txn := &txns[i]
		row := Row{
			TransactionID: txn.ID,
			Date:          txn.CreatedAt,
			Type:          txn.Type,
			TypeLabel:     txn.Type.Label(),
			Quantity:      txn.Quantity(),
			UnitPrice:     decimal.Zero,
			Total:         txn.LineTotal(),
			User:          history.SystemActor,
		}
		if txn.Price.Valid {
			row.UnitPrice = txn.Price.Decimal
		}
		if txn.Item != nil {
			row.Product = txn.Item.Name
			if txn.Item.Unit != nil {
				row.Unit = txn.Item.Unit.Name
			}
		}
		if txn.User != nil && txn.User.Name != "" {
			row.User = txn.User.Name
		}
		rows = append(rows, row)
	}
	return rows
}

// summarize counts units moved by every row; revenue only comes from sales.
func summarize(rows []Row) Totals {
	totals := Totals{TotalSales: decimal.Zero, TotalUnits: decimal.Zero, TransactionCount: int64(len(rows))}
	for _, row := range rows {
		totals.TotalUnits = totals.TotalUnits.Add(row.Quantity)
		if row.Type.IsSale() {
			totals.TotalSales = totals.TotalSales.Add(row.Total)
		}
	}
	return totals
}
