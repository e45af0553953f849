package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/angelmondragon/gemvault-backend/internal/ledger"
	"github.com/angelmondragon/gemvault-backend/pkg/db/models"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	"github.com/angelmondragon/gemvault-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	recentMovements = 5
	chartDays       = 7
	salesMonths     = 6
	topProducts     = 5
)

type UnitTotal struct {
	Unit      string              `json:"unit"`
	ValueType enums.UnitValueType `json:"value_type"`
	Quantity  decimal.Decimal     `json:"quantity"`
}

type Movement struct {
	ID        uuid.UUID             `json:"id"`
	ItemName  string                `json:"item_name"`
	Type      enums.TransactionType `json:"type"`
	TypeLabel string                `json:"type_label"`
	Amount    decimal.Decimal       `json:"amount"`
	CreatedAt time.Time             `json:"created_at"`
}

// DayPoint is one day of the loads-versus-sales chart.
type DayPoint struct {
	Date  string          `json:"date"`
	Loads decimal.Decimal `json:"loads"`
	Sales decimal.Decimal `json:"sales"`
}

type Summary struct {
	TotalItems     int             `json:"total_items"`
	ActiveItems    int             `json:"active_items"`
	QuantityByUnit []UnitTotal     `json:"quantity_by_unit"`
	InventoryValue decimal.Decimal `json:"inventory_value"`
	LastMovements  []Movement      `json:"last_movements"`
	Chart          []DayPoint      `json:"chart"`
	TotalLoads     decimal.Decimal `json:"total_loads"`
	TotalSales     decimal.Decimal `json:"total_sales"`
}

type MonthTotal struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

type TopProduct struct {
	ItemID   uuid.UUID       `json:"item_id"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

type Accounting struct {
	MonthlySales      []MonthTotal    `json:"monthly_sales"`
	TopToday          []TopProduct    `json:"top_today"`
	TopMonth          []TopProduct    `json:"top_month"`
	TopAllTime        []TopProduct    `json:"top_all_time"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalTransactions int             `json:"total_transactions"`
}

type itemLister interface {
	ListAll(ctx context.Context) ([]models.InventoryItem, error)
}

// Service aggregates the home and accounting dashboards.
type Service interface {
	Summary(ctx context.Context) (*Summary, error)
	Accounting(ctx context.Context, now time.Time) (*Accounting, error)
}

type ServiceParams struct {
	Ledger ledger.Repository
	Items  itemLister
	Now    func() time.Time
}

type service struct {
	ledger ledger.Repository
	items  itemLister
	now    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Items == nil {
		return nil, fmt.Errorf("item lister required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{ledger: params.Ledger, items: params.Items, now: now}, nil
}

func (s *service) Summary(ctx context.Context) (*Summary, error) {
	items, err := s.items.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := &Summary{
		TotalItems:     len(items),
		QuantityByUnit: []UnitTotal{},
		InventoryValue: decimal.Zero,
		TotalLoads:     decimal.Zero,
		TotalSales:     decimal.Zero,
	}
	byUnit := map[uuid.UUID]*UnitTotal{}
	for _, item := range items {
		if !item.IsActive {
			continue
		}
		out.ActiveItems++
		out.InventoryValue = out.InventoryValue.Add(item.Quantity.Mul(item.Price))
		total, ok := byUnit[item.UnitID]
		if !ok {
			total = &UnitTotal{Quantity: decimal.Zero}
			if item.Unit != nil {
				total.Unit = item.Unit.Name
				total.ValueType = item.Unit.ValueType
			}
			byUnit[item.UnitID] = total
		}
		total.Quantity = total.Quantity.Add(item.Quantity)
	}
	for _, total := range byUnit {
		out.QuantityByUnit = append(out.QuantityByUnit, *total)
	}
	sort.Slice(out.QuantityByUnit, func(i, j int) bool {
		return out.QuantityByUnit[i].Unit < out.QuantityByUnit[j].Unit
	})

	recent, _, err := s.ledger.Search(ctx, ledger.Filter{}, pagination.Params{Page: 1, Limit: recentMovements})
	if err != nil {
		return nil, err
	}
	out.LastMovements = make([]Movement, 0, len(recent))
	for _, txn := range recent {
		movement := Movement{
			ID:        txn.ID,
			Type:      txn.Type,
			TypeLabel: txn.Type.Label(),
			Amount:    txn.Amount,
			CreatedAt: txn.CreatedAt,
		}
		if txn.Item != nil {
			movement.ItemName = txn.Item.Name
		}
		out.LastMovements = append(out.LastMovements, movement)
	}

	today := startOfDay(s.now())
	since := today.AddDate(0, 0, -(chartDays - 1))
	window, err := s.ledger.SearchAll(ctx, ledger.Filter{From: &since})
	if err != nil {
		return nil, err
	}
	points := make(map[string]*DayPoint, chartDays)
	out.Chart = make([]DayPoint, 0, chartDays)
	for i := 0; i < chartDays; i++ {
		key := since.AddDate(0, 0, i).Format(time.DateOnly)
		out.Chart = append(out.Chart, DayPoint{Date: key, Loads: decimal.Zero, Sales: decimal.Zero})
	}
	for i := range out.Chart {
		points[out.Chart[i].Date] = &out.Chart[i]
	}
	for _, txn := range window {
		point, ok := points[txn.CreatedAt.UTC().Format(time.DateOnly)]
		if !ok {
			continue
		}
		switch {
		case txn.Type.IsLoad():
			point.Loads = point.Loads.Add(txn.Quantity())
			out.TotalLoads = out.TotalLoads.Add(txn.Quantity())
		case txn.Type.IsSale():
			point.Sales = point.Sales.Add(txn.Quantity())
			out.TotalSales = out.TotalSales.Add(txn.Quantity())
		}
	}
	return out, nil
}

func (s *service) Accounting(ctx context.Context, now time.Time) (*Accounting, error) {
	sales, err := s.ledger.SearchAll(ctx, ledger.Filter{Types: enums.SaleTransactionTypes})
	if err != nil {
		return nil, err
	}

	today := startOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	firstMonth := monthStart.AddDate(0, -(salesMonths - 1), 0)

	out := &Accounting{
		MonthlySales:      make([]MonthTotal, 0, salesMonths),
		TotalRevenue:      decimal.Zero,
		TotalTransactions: len(sales),
	}
	months := make(map[string]*MonthTotal, salesMonths)
	for i := 0; i < salesMonths; i++ {
		key := firstMonth.AddDate(0, i, 0).Format("2006-01")
		out.MonthlySales = append(out.MonthlySales, MonthTotal{Month: key, Total: decimal.Zero})
	}
	for i := range out.MonthlySales {
		months[out.MonthlySales[i].Month] = &out.MonthlySales[i]
	}

	allTime := newRanking()
	thisMonth := newRanking()
	thisDay := newRanking()
	for i := range sales {
		txn := &sales[i]
		total := txn.LineTotal()
		out.TotalRevenue = out.TotalRevenue.Add(total)
		at := txn.CreatedAt.UTC()
		if month, ok := months[at.Format("2006-01")]; ok {
			month.Total = month.Total.Add(total)
		}
		allTime.add(txn)
		if !at.Before(monthStart) && at.Before(monthStart.AddDate(0, 1, 0)) {
			thisMonth.add(txn)
		}
		if !at.Before(today) && at.Before(tomorrow) {
			thisDay.add(txn)
		}
	}
	out.TopToday = thisDay.top(topProducts)
	out.TopMonth = thisMonth.top(topProducts)
	out.TopAllTime = allTime.top(topProducts)
	return out, nil
}

type ranking map[uuid.UUID]*TopProduct

func newRanking() ranking {
	return ranking{}
}

func (r ranking) add(txn *models.InventoryTransaction) {
	entry, ok := r[txn.ItemID]
	if !ok {
		entry = &TopProduct{ItemID: txn.ItemID, Quantity: decimal.Zero, Total: decimal.Zero}
		if txn.Item != nil {
			entry.Name = txn.Item.Name
		}
		r[txn.ItemID] = entry
	}
	entry.Quantity = entry.Quantity.Add(txn.Quantity())
	entry.Total = entry.Total.Add(txn.LineTotal())
}

// top orders by quantity sold, then by name.
func (r ranking) top(n int) []TopProduct {
	out := make([]TopProduct, 0, len(r))
	for _, entry := range r {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].Quantity.Cmp(out[j].Quantity); cmp != 0 {
			return cmp > 0
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
