package history

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/gemvault-backend/internal/ledger"
	"github.com/angelmondragon/gemvault-backend/pkg/db/models"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/angelmondragon/gemvault-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SystemActor names movements with no recorded user.
const SystemActor = "Sistema"

// ListParams filters the movement history. From and To are calendar days
// and both are inclusive.
type ListParams struct {
	pagination.Params
	Type    *enums.TransactionType
	ItemID  *uuid.UUID
	GroupID *uuid.UUID
	From    *time.Time
	To      *time.Time
}

// Entry is one row of the history listing.
type Entry struct {
	ID        uuid.UUID             `json:"id"`
	ItemID    uuid.UUID             `json:"item_id"`
	ItemName  string                `json:"item_name"`
	Category  string                `json:"category"`
	Unit      string                `json:"unit"`
	Type      enums.TransactionType `json:"type"`
	TypeLabel string                `json:"type_label"`
	Amount    decimal.Decimal       `json:"amount"`
	Price     *decimal.Decimal      `json:"price,omitempty"`
	GroupID   *uuid.UUID            `json:"group_id,omitempty"`
	User      string                `json:"user"`
	CreatedAt time.Time             `json:"created_at"`
}

type Page struct {
	Entries    []Entry         `json:"entries"`
	Pagination pagination.Meta `json:"pagination"`
}

// Product is one line of a receipt.
type Product struct {
	ItemID   uuid.UUID        `json:"item_id"`
	Name     string           `json:"name"`
	Category string           `json:"category"`
	Unit     string           `json:"unit"`
	Quantity decimal.Decimal  `json:"quantity"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Total    *decimal.Decimal `json:"total,omitempty"`
}

type GroupSummary struct {
	ID            uuid.UUID            `json:"id"`
	Kind          enums.GroupKind      `json:"kind"`
	Lines         int                  `json:"lines"`
	PaymentMethod *enums.PaymentMethod `json:"payment_method,omitempty"`
	ClientName    *string              `json:"client_name,omitempty"`
}

// Receipt renders a transaction or a whole group for display.
type Receipt struct {
	Type          enums.TransactionType `json:"type"`
	TypeLabel     string                `json:"type_label"`
	User          string                `json:"user"`
	CreatedAt     time.Time             `json:"created_at"`
	Products      []Product             `json:"products"`
	TotalGeneral  decimal.Decimal       `json:"total_general"`
	PaymentMethod *enums.PaymentMethod  `json:"payment_method,omitempty"`
	ClientName    *string               `json:"client_name,omitempty"`
	Notes         *string               `json:"notes,omitempty"`
	Group         *GroupSummary         `json:"group,omitempty"`
}

// Service reads the movement history.
type Service interface {
	List(ctx context.Context, params ListParams) (*Page, error)
	Detail(ctx context.Context, id uuid.UUID) (*Receipt, error)
	Group(ctx context.Context, id uuid.UUID) (*Receipt, error)
}

type service struct {
	repo ledger.Repository
}

func NewService(repo ledger.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*Page, error) {
	filter, err := params.filter()
	if err != nil {
		return nil, err
	}
	page := params.Params.Normalize()
	rows, total, err := s.repo.Search(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	out := &Page{Entries: make([]Entry, 0, len(rows)), Pagination: pagination.NewMeta(page, total)}
	for i := range rows {
		out.Entries = append(out.Entries, newEntry(&rows[i]))
	}
	return out, nil
}

func (s *service) Detail(ctx context.Context, id uuid.UUID) (*Receipt, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	txn, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	product := newProduct(txn)
	receipt := &Receipt{
		Type:          txn.Type,
		TypeLabel:     txn.Type.Label(),
		User:          actorName(txn.User),
		CreatedAt:     txn.CreatedAt,
		Products:      []Product{product},
		TotalGeneral:  txn.LineTotal(),
		PaymentMethod: txn.PaymentMethod,
		ClientName:    txn.ClientName,
		Notes:         txn.Notes,
	}
	if txn.GroupID != nil {
		lines, err := s.repo.ListByGroup(ctx, *txn.GroupID)
		if err != nil {
			return nil, err
		}
		summary := &GroupSummary{ID: *txn.GroupID, Lines: len(lines)}
		if txn.Group != nil {
			summary.Kind = txn.Group.Kind
			summary.PaymentMethod = txn.Group.PaymentMethod
			summary.ClientName = txn.Group.ClientName
		}
		receipt.Group = summary
	}
	return receipt, nil
}

func (s *service) Group(ctx context.Context, id uuid.UUID) (*Receipt, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group id is required")
	}
	group, err := s.repo.FindGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	receipt := &Receipt{
		Type:          group.Kind.TransactionType(),
		TypeLabel:     group.Kind.TransactionType().Label(),
		User:          actorName(group.User),
		CreatedAt:     group.CreatedAt,
		Products:      make([]Product, 0, len(group.Transactions)),
		TotalGeneral:  decimal.Zero,
		PaymentMethod: group.PaymentMethod,
		ClientName:    group.ClientName,
		Notes:         group.Notes,
		Group: &GroupSummary{
			ID:            group.ID,
			Kind:          group.Kind,
			Lines:         len(group.Transactions),
			PaymentMethod: group.PaymentMethod,
			ClientName:    group.ClientName,
		},
	}
	for i := range group.Transactions {
		txn := &group.Transactions[i]
		receipt.Products = append(receipt.Products, newProduct(txn))
		receipt.TotalGeneral = receipt.TotalGeneral.Add(txn.LineTotal())
	}
	return receipt, nil
}

func (p ListParams) filter() (ledger.Filter, error) {
	filter := ledger.Filter{ItemID: p.ItemID, GroupID: p.GroupID}
	if p.Type != nil {
		if !p.Type.IsValid() {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", *p.Type))
		}
		filter.Types = []enums.TransactionType{*p.Type}
	}
	from, to, err := DayRange(p.From, p.To)
	if err != nil {
		return filter, err
	}
	filter.From, filter.To = from, to
	return filter, nil
}

// DayRange turns inclusive calendar days into a half-open time range.
func DayRange(from, to *time.Time) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if from != nil {
		day := truncateDay(*from)
		start = &day
	}
	if to != nil {
		day := truncateDay(*to).AddDate(0, 0, 1)
		end = &day
	}
	if start != nil && end != nil && !start.Before(*end) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to")
	}
	return start, end, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func newEntry(txn *models.InventoryTransaction) Entry {
	entry := Entry{
		ID:        txn.ID,
		ItemID:    txn.ItemID,
		Type:      txn.Type,
		TypeLabel: txn.Type.Label(),
		Amount:    txn.Amount,
		GroupID:   txn.GroupID,
		User:      actorName(txn.User),
		CreatedAt: txn.CreatedAt,
	}
	if txn.Price.Valid {
		price := txn.Price.Decimal
		entry.Price = &price
	}
	if txn.Item != nil {
		entry.ItemName = txn.Item.Name
		if txn.Item.Category != nil {
			entry.Category = txn.Item.Category.Name
		}
		if txn.Item.Unit != nil {
			entry.Unit = txn.Item.Unit.Name
		}
	}
	return entry
}

func newProduct(txn *models.InventoryTransaction) Product {
	product := Product{ItemID: txn.ItemID, Quantity: txn.Quantity()}
	if txn.Item != nil {
		product.Name = txn.Item.Name
		if txn.Item.Category != nil {
			product.Category = txn.Item.Category.Name
		}
		if txn.Item.Unit != nil {
			product.Unit = txn.Item.Unit.Name
		}
	}
	if txn.Price.Valid {
		price := txn.Price.Decimal
		total := txn.LineTotal()
		product.Price = &price
		product.Total = &total
	}
	return product
}

func actorName(user *models.User) string {
	if user == nil || user.Name == "" {
		return SystemActor
	}
	return user.Name
}
