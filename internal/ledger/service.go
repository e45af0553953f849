package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/gemvault-backend/pkg/db/models"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/angelmondragon/gemvault-backend/pkg/logger"
	"github.com/angelmondragon/gemvault-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	reasonValidation        = "validation"
	reasonInsufficientStock = "insufficient_stock"
	reasonNotFound          = "not_found"
)

// Service records stock movements. Every method that writes takes the
// caller's transaction so the ledger row and the balance update commit or
// roll back together with whatever else the caller does.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, movement Movement) (*models.InventoryTransaction, error)
	RecordGroup(ctx context.Context, tx *gorm.DB, header GroupHeader, lines []Movement) (*models.InventoryTransactionGroup, error)
	Committed(ctx context.Context, txns ...models.InventoryTransaction)
}

// Movement is one signed stock change.
type Movement struct {
	ItemID        uuid.UUID
	Type          enums.TransactionType
	Amount        decimal.Decimal
	Price         *decimal.Decimal
	ActorID       *uuid.UUID
	GroupID       *uuid.UUID
	PaymentMethod *enums.PaymentMethod
	ClientName    *string
	Notes         *string
}

// GroupHeader describes the parent row of a bulk load or grouped sale.
type GroupHeader struct {
	Kind          enums.GroupKind
	ActorID       *uuid.UUID
	PaymentMethod *enums.PaymentMethod
	ClientName    *string
	Notes         *string
}

// ServiceParams wires the ledger dependencies.
type ServiceParams struct {
	Repo    Repository
	Logger  *logger.Logger
	Metrics *metrics.LedgerMetrics
	Now     func() time.Time
}

type service struct {
	repo    Repository
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
	now     func() time.Time
}

// NewService wires a ledger service with the provided repository.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:    params.Repo,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, movement Movement) (*models.InventoryTransaction, error) {
	if tx == nil {
		return nil, fmt.Errorf("ledger: transaction required")
	}
	if err := ValidateMovement(movement); err != nil {
		return nil, s.reject(ctx, reasonValidation, err)
	}
	if movement.Type == enums.TransactionTypeGroupLoad || movement.Type == enums.TransactionTypeGroupSale {
		if movement.GroupID == nil {
			return nil, s.reject(ctx, reasonValidation, pkgerrors.New(pkgerrors.CodeValidation, "grouped movements must reference a group"))
		}
	}

	repo := s.repo.WithTx(tx)
	items, err := repo.LockItems(ctx, []uuid.UUID{movement.ItemID})
	if err != nil {
		return nil, s.rejectLookup(ctx, err)
	}
	item := items[movement.ItemID]

	next := item.Quantity.Add(movement.Amount)
	if next.IsNegative() {
		return nil, s.reject(ctx, reasonInsufficientStock, insufficientStock(item, movement.Amount.Abs()))
	}

	now := s.now()
	row := newTransaction(movement, now)
	if err := repo.Create(ctx, row); err != nil {
		return nil, err
	}
	if !movement.Amount.IsZero() {
		applyBalance(item, next, movement.Amount, now)
		if err := repo.UpdateBalance(ctx, item); err != nil {
			return nil, err
		}
	}
	row.Item = item
	return row, nil
}

func (s *service) RecordGroup(ctx context.Context, tx *gorm.DB, header GroupHeader, lines []Movement) (*models.InventoryTransactionGroup, error) {
	if tx == nil {
		return nil, fmt.Errorf("ledger: transaction required")
	}
	if err := validateHeader(header, lines); err != nil {
		return nil, s.reject(ctx, reasonValidation, err)
	}
	txType := header.Kind.TransactionType()
	for i := range lines {
		lines[i].Type = txType
		lines[i].ActorID = header.ActorID
		if err := ValidateMovement(lines[i]); err != nil {
			return nil, s.reject(ctx, reasonValidation, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: %s", i+1, pkgerrors.MessageOf(err))).
				WithDetails(map[string]any{"line": i + 1, "itemId": lines[i].ItemID}))
		}
	}

	repo := s.repo.WithTx(tx)
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ItemID)
	}
	items, err := repo.LockItems(ctx, ids)
	if err != nil {
		return nil, s.rejectLookup(ctx, err)
	}

	// Every line is checked against the locked balances, including repeated
	// items, before the first insert.
	balances := make(map[uuid.UUID]decimal.Decimal, len(items))
	for id, item := range items {
		balances[id] = item.Quantity
	}
	var shortages []map[string]any
	for i, line := range lines {
		next := balances[line.ItemID].Add(line.Amount)
		if next.IsNegative() {
			item := items[line.ItemID]
			shortages = append(shortages, map[string]any{
				"line":      i + 1,
				"itemId":    item.ID,
				"name":      item.Name,
				"available": balances[line.ItemID].String(),
				"requested": line.Amount.Abs().String(),
			})
		}
		balances[line.ItemID] = next
	}
	if len(shortages) > 0 {
		names := make([]string, 0, len(shortages))
		for _, shortage := range shortages {
			names = append(names, fmt.Sprint(shortage["name"]))
		}
		err := pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("insufficient stock for %s", strings.Join(names, ", "))).
			WithDetails(map[string]any{"lines": shortages})
		return nil, s.reject(ctx, reasonInsufficientStock, err)
	}

	now := s.now()
	group := &models.InventoryTransactionGroup{
		Kind:          header.Kind,
		UserID:        header.ActorID,
		PaymentMethod: header.PaymentMethod,
		ClientName:    header.ClientName,
		Notes:         header.Notes,
		CreatedAt:     now,
	}
	if err := repo.CreateGroup(ctx, group); err != nil {
		return nil, err
	}

	deltas := make(map[uuid.UUID]decimal.Decimal, len(items))
	group.Transactions = make([]models.InventoryTransaction, 0, len(lines))
	for _, line := range lines {
		line.GroupID = &group.ID
		row := newTransaction(line, now)
		if err := repo.Create(ctx, row); err != nil {
			return nil, err
		}
		deltas[line.ItemID] = deltas[line.ItemID].Add(line.Amount)
		group.Transactions = append(group.Transactions, *row)
	}

	for _, id := range uniqueSorted(ids) {
		item := items[id]
		applyBalance(item, balances[id], deltas[id], now)
		if err := repo.UpdateBalance(ctx, item); err != nil {
			return nil, err
		}
	}
	for i := range group.Transactions {
		group.Transactions[i].Item = items[group.Transactions[i].ItemID]
	}
	return group, nil
}

// Committed reports movements whose transaction has committed.
func (s *service) Committed(ctx context.Context, txns ...models.InventoryTransaction) {
	groupLines := map[uuid.UUID]int{}
	groupKinds := map[uuid.UUID]enums.GroupKind{}
	for _, txn := range txns {
		s.metrics.IncMovement(txn.Type.String())
		if txn.GroupID != nil {
			groupLines[*txn.GroupID]++
			groupKinds[*txn.GroupID] = enums.GroupKindLoad
			if txn.Type.IsSale() {
				groupKinds[*txn.GroupID] = enums.GroupKindSale
			}
		}
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"item_id":        txn.ItemID.String(),
				"transaction_id": txn.ID.String(),
				"type":           txn.Type.String(),
				"amount":         txn.Amount.String(),
			})
			s.logg.Info(logCtx, "ledger.movement_recorded")
		}
	}
	for id, lines := range groupLines {
		s.metrics.ObserveGroup(groupKinds[id].String(), lines)
	}
}

// ValidateMovement checks a movement's sign and required fields against the
// rule for its type. It does not look at balances.
func ValidateMovement(m Movement) error {
	if m.ItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if !m.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", m.Type))
	}
	if m.Price != nil && m.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if m.PaymentMethod != nil && !m.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", *m.PaymentMethod))
	}

	switch m.Type {
	case enums.TransactionTypeIndividualLoad, enums.TransactionTypeGroupLoad:
		if !m.Amount.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "load amount must be greater than zero")
		}
	case enums.TransactionTypeIndividualSale, enums.TransactionTypeGroupSale:
		if !m.Amount.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "sale amount must be greater than zero")
		}
		if m.Price == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "sale price is required")
		}
	case enums.TransactionTypeNegativeAdjustment:
		if !m.Amount.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "adjustment amount must be greater than zero")
		}
		if m.Notes == nil || strings.TrimSpace(*m.Notes) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "adjustment reason is required")
		}
	case enums.TransactionTypeProductEdit:
		if !m.Amount.IsZero() {
			return pkgerrors.New(pkgerrors.CodeValidation, "product edits cannot move stock")
		}
		if m.Price == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product edit price is required")
		}
	}
	return nil
}

func validateHeader(header GroupHeader, lines []Movement) error {
	if !header.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid group kind %q", header.Kind))
	}
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}
	if header.Kind == enums.GroupKindSale {
		if header.PaymentMethod == nil || !header.PaymentMethod.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment method is required for grouped sales")
		}
	}
	return nil
}

func newTransaction(m Movement, at time.Time) *models.InventoryTransaction {
	row := &models.InventoryTransaction{
		ItemID:        m.ItemID,
		Type:          m.Type,
		Amount:        m.Amount,
		GroupID:       m.GroupID,
		UserID:        m.ActorID,
		PaymentMethod: m.PaymentMethod,
		ClientName:    m.ClientName,
		Notes:         m.Notes,
		CreatedAt:     at,
	}
	if m.Price != nil {
		row.Price = decimal.NewNullDecimal(*m.Price)
	}
	return row
}

// applyBalance sets the new balance and flips the activity flags: a
// decrement that empties the item deactivates it, any increment reactivates.
func applyBalance(item *models.InventoryItem, next, delta decimal.Decimal, at time.Time) {
	item.Quantity = next
	switch {
	case delta.IsNegative() && next.IsZero():
		item.IsActive = false
		deactivatedAt := at
		item.DeletedAt = &deactivatedAt
	case delta.IsPositive() && !item.IsActive:
		item.IsActive = true
		item.DeletedAt = nil
	}
}

func insufficientStock(item *models.InventoryItem, requested decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("insufficient stock for %s: available %s, requested %s", item.Name, item.Quantity.String(), requested.String())).
		WithDetails(map[string]any{
			"itemId":    item.ID,
			"available": item.Quantity.String(),
			"requested": requested.String(),
		})
}

func (s *service) rejectLookup(ctx context.Context, err error) error {
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return s.reject(ctx, reasonNotFound, err)
	}
	return err
}

func (s *service) reject(ctx context.Context, reason string, err error) error {
	s.metrics.IncRejected(reason)
	if s.logg != nil {
		logCtx := s.logg.WithField(ctx, "reason", reason)
		s.logg.Warn(logCtx, "ledger.movement_rejected")
	}
	return err
}
