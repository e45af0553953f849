package inventory

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/angelmondragon/gemvault-backend/internal/ledger"
	"github.com/angelmondragon/gemvault-backend/pkg/db/models"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/angelmondragon/gemvault-backend/pkg/logger"
	"github.com/angelmondragon/gemvault-backend/pkg/pagination"
	"github.com/angelmondragon/gemvault-backend/pkg/quantity"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	defaultTransactionsLimit = 20
	maxTransactionsLimit     = 200
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes inventory queries and every stock-moving operation.
type Service interface {
	List(ctx context.Context, params ListParams) (*ItemList, error)
	Get(ctx context.Context, id uuid.UUID) (*ItemDTO, error)
	Names(ctx context.Context) ([]ItemName, error)
	Metadata(ctx context.Context) (*Metadata, error)
	Create(ctx context.Context, input CreateItemInput) (*MovementResult, error)
	Load(ctx context.Context, input LoadInput) (*MovementResult, error)
	Sell(ctx context.Context, input SellInput) (*MovementResult, error)
	Adjust(ctx context.Context, input AdjustInput) (*MovementResult, error)
	Edit(ctx context.Context, input EditInput) (*MovementResult, error)
	BulkLoad(ctx context.Context, input BulkLoadInput) (*GroupResult, error)
	BulkLoadSpreadsheet(ctx context.Context, r io.Reader, actorID *uuid.UUID, notes *string) (*GroupResult, error)
	GroupSell(ctx context.Context, input GroupSellInput) (*GroupResult, error)
	Transactions(ctx context.Context, itemID uuid.UUID, limit int) ([]TransactionDTO, error)
}

// ListParams filters the item listing.
type ListParams struct {
	pagination.Params
	Name            string
	CategoryID      *uuid.UUID
	UnitID          *uuid.UUID
	MinQuantity     *decimal.Decimal
	IncludeInactive bool
}

// CreateItemInput registers a new item, optionally with opening stock.
type CreateItemInput struct {
	ActorID           *uuid.UUID
	Name              string
	CategoryID        uuid.UUID
	UnitID            uuid.UUID
	SubcategoryCodeID *uuid.UUID
	Quantity          decimal.Decimal
	Price             decimal.Decimal
}

// LoadInput adds stock to one item. Price defaults to the item's price.
type LoadInput struct {
	ActorID *uuid.UUID
	ItemID  uuid.UUID
	Amount  decimal.Decimal
	Price   *decimal.Decimal
	Notes   *string
}

// SellInput removes sold stock from one item.
type SellInput struct {
	ActorID       *uuid.UUID
	ItemID        uuid.UUID
	Amount        decimal.Decimal
	Price         decimal.Decimal
	PaymentMethod enums.PaymentMethod
	ClientName    *string
	Notes         *string
}

// AdjustInput removes stock outside the sale flow; a reason is mandatory.
type AdjustInput struct {
	ActorID *uuid.UUID
	ItemID  uuid.UUID
	Amount  decimal.Decimal
	Reason  string
}

// EditInput rewrites an item's descriptive fields and price.
type EditInput struct {
	ActorID           *uuid.UUID
	ItemID            uuid.UUID
	Name              string
	CategoryID        uuid.UUID
	SubcategoryCodeID *uuid.UUID
	Price             decimal.Decimal
}

// BulkLoadRow identifies an item by id, or by name, category and unit.
type BulkLoadRow struct {
	ItemID   *uuid.UUID
	Name     string
	Category string
	Unit     string
	Quantity decimal.Decimal
	Price    *decimal.Decimal
}

type BulkLoadInput struct {
	ActorID *uuid.UUID
	Rows    []BulkLoadRow
	Notes   *string
}

type GroupSellLine struct {
	ItemID uuid.UUID
	Amount decimal.Decimal
	Price  decimal.Decimal
}

type GroupSellInput struct {
	ActorID       *uuid.UUID
	Lines         []GroupSellLine
	PaymentMethod enums.PaymentMethod
	ClientName    *string
	Notes         *string
}

// ServiceParams wires the inventory service.
type ServiceParams struct {
	Tx         txRunner
	Repo       *Repository
	Ledger     ledger.Service
	LedgerRepo ledger.Repository
	Logger     *logger.Logger
}

type service struct {
	tx         txRunner
	repo       *Repository
	ledger     ledger.Service
	ledgerRepo ledger.Repository
	logg       *logger.Logger
}

// NewService builds the inventory service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.LedgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:         params.Tx,
		repo:       params.Repo,
		ledger:     params.Ledger,
		ledgerRepo: params.LedgerRepo,
		logg:       params.Logger,
	}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ItemList, error) {
	params.Params = params.Params.Normalize()
	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}
	result := &ItemList{
		Items:      make([]ItemDTO, 0, len(items)),
		Pagination: pagination.NewMeta(params.Params, total),
	}
	for i := range items {
		result.Items = append(result.Items, NewItemDTO(&items[i]))
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ItemDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := NewItemDTO(item)
	return &dto, nil
}

func (s *service) Names(ctx context.Context) ([]ItemName, error) {
	items, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]ItemName, 0, len(items))
	for _, item := range items {
		name := ItemName{ID: item.ID, Name: item.Name}
		if item.Category != nil {
			name.Category = item.Category.Name
		}
		if item.Unit != nil {
			name.Unit = item.Unit.Name
		}
		names = append(names, name)
	}
	return names, nil
}

func (s *service) Metadata(ctx context.Context) (*Metadata, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	units, err := s.repo.ListUnits(ctx)
	if err != nil {
		return nil, err
	}
	meta := &Metadata{
		Categories: make([]CategoryOption, 0, len(categories)),
		Units:      make([]UnitRef, 0, len(units)),
	}
	for _, category := range categories {
		option := CategoryOption{ID: category.ID, Name: category.Name, Codes: make([]CodeRef, 0, len(category.Codes))}
		for _, code := range category.Codes {
			option.Codes = append(option.Codes, CodeRef{ID: code.ID, Code: code.Code})
		}
		meta.Categories = append(meta.Categories, option)
	}
	for i := range units {
		meta.Units = append(meta.Units, NewUnitRef(&units[i]))
	}
	return meta, nil
}

func (s *service) Create(ctx context.Context, input CreateItemInput) (*MovementResult, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.CategoryID == uuid.Nil || input.UnitID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category and unit are required")
	}
	unit, err := s.repo.FindUnit(ctx, input.UnitID)
	if err != nil {
		return nil, err
	}
	if err := s.checkClassification(ctx, input.CategoryID, input.SubcategoryCodeID); err != nil {
		return nil, err
	}
	opening, err := quantity.NormalizeStock(input.Quantity, unit.ValueType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid quantity: "+err.Error())
	}
	price, err := quantity.NormalizePrice(input.Price)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	item := &models.InventoryItem{
		Name:              name,
		CategoryID:        input.CategoryID,
		UnitID:            input.UnitID,
		SubcategoryCodeID: input.SubcategoryCodeID,
		Quantity:          decimal.Zero,
		Price:             price,
		IsActive:          true,
	}
	var recorded *models.InventoryTransaction
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, item); err != nil {
			return err
		}
		if !opening.IsPositive() {
			return nil
		}
		var err error
		recorded, err = s.ledger.Record(ctx, tx, ledger.Movement{
			ItemID:  item.ID,
			Type:    enums.TransactionTypeIndividualLoad,
			Amount:  opening,
			Price:   &price,
			ActorID: input.ActorID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithItemID(ctx, item.ID.String())
	s.logg.Info(ctx, "inventory.item_created")
	if recorded == nil {
		stored, err := s.repo.FindByID(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		return &MovementResult{Item: NewItemDTO(stored)}, nil
	}
	return s.movementResult(ctx, recorded)
}

func (s *service) Load(ctx context.Context, input LoadInput) (*MovementResult, error) {
	item, err := s.loadItem(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}
	amount, err := normalizeAmount(input.Amount, item)
	if err != nil {
		return nil, err
	}
	price := item.Price
	if input.Price != nil {
		if price, err = quantity.NormalizePrice(*input.Price); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
		}
	}
	return s.recordOne(ctx, ledger.Movement{
		ItemID:  item.ID,
		Type:    enums.TransactionTypeIndividualLoad,
		Amount:  amount,
		Price:   &price,
		ActorID: input.ActorID,
		Notes:   trimmed(input.Notes),
	})
}

func (s *service) Sell(ctx context.Context, input SellInput) (*MovementResult, error) {
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	price, err := salePrice(input.Price)
	if err != nil {
		return nil, err
	}
	item, err := s.loadItem(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}
	amount, err := normalizeAmount(input.Amount, item)
	if err != nil {
		return nil, err
	}
	method := input.PaymentMethod
	return s.recordOne(ctx, ledger.Movement{
		ItemID:        item.ID,
		Type:          enums.TransactionTypeIndividualSale,
		Amount:        amount.Neg(),
		Price:         &price,
		ActorID:       input.ActorID,
		PaymentMethod: &method,
		ClientName:    trimmed(input.ClientName),
		Notes:         trimmed(input.Notes),
	})
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*MovementResult, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}
	item, err := s.loadItem(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}
	amount, err := normalizeAmount(input.Amount, item)
	if err != nil {
		return nil, err
	}
	return s.recordOne(ctx, ledger.Movement{
		ItemID:  item.ID,
		Type:    enums.TransactionTypeNegativeAdjustment,
		Amount:  amount.Neg(),
		ActorID: input.ActorID,
		Notes:   &reason,
	})
}

func (s *service) Edit(ctx context.Context, input EditInput) (*MovementResult, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.CategoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	price, err := quantity.NormalizePrice(input.Price)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	item, err := s.loadItem(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}
	if err := s.checkClassification(ctx, input.CategoryID, input.SubcategoryCodeID); err != nil {
		return nil, err
	}

	item.Name = name
	item.CategoryID = input.CategoryID
	item.SubcategoryCodeID = input.SubcategoryCodeID
	item.Price = price

	var recorded *models.InventoryTransaction
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateDetails(ctx, item); err != nil {
			return err
		}
		var err error
		recorded, err = s.ledger.Record(ctx, tx, ledger.Movement{
			ItemID:  item.ID,
			Type:    enums.TransactionTypeProductEdit,
			Amount:  decimal.Zero,
			Price:   &price,
			ActorID: input.ActorID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.movementResult(ctx, recorded)
}

func (s *service) BulkLoad(ctx context.Context, input BulkLoadInput) (*GroupResult, error) {
	if len(input.Rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one row is required")
	}

	var rowErrs error
	lines := make([]ledger.Movement, 0, len(input.Rows))
	for i, row := range input.Rows {
		line, err := s.resolveBulkRow(ctx, row)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
				return nil, err
			}
			rowErrs = multierr.Append(rowErrs, fmt.Errorf("row %d: %s", i+1, pkgerrors.MessageOf(err)))
			continue
		}
		lines = append(lines, line)
	}
	if rowErrs != nil {
		return nil, rowValidationError(rowErrs)
	}

	return s.recordGroup(ctx, ledger.GroupHeader{
		Kind:    enums.GroupKindLoad,
		ActorID: input.ActorID,
		Notes:   trimmed(input.Notes),
	}, lines)
}

func (s *service) BulkLoadSpreadsheet(ctx context.Context, r io.Reader, actorID *uuid.UUID, notes *string) (*GroupResult, error) {
	rows, err := ParseBulkSpreadsheet(r)
	if err != nil {
		return nil, err
	}
	return s.BulkLoad(ctx, BulkLoadInput{ActorID: actorID, Rows: rows, Notes: notes})
}

func (s *service) GroupSell(ctx context.Context, input GroupSellInput) (*GroupResult, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product is required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}

	ids := make([]uuid.UUID, 0, len(input.Lines))
	for _, line := range input.Lines {
		ids = append(ids, line.ItemID)
	}
	items, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var lineErrs error
	lines := make([]ledger.Movement, 0, len(input.Lines))
	for i, line := range input.Lines {
		item, ok := items[line.ItemID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("inventory item %s not found", line.ItemID)).
				WithDetails(map[string]any{"line": i + 1, "itemId": line.ItemID})
		}
		amount, err := normalizeAmount(line.Amount, item)
		if err != nil {
			lineErrs = multierr.Append(lineErrs, fmt.Errorf("line %d: %s", i+1, pkgerrors.MessageOf(err)))
			continue
		}
		price, err := salePrice(line.Price)
		if err != nil {
			lineErrs = multierr.Append(lineErrs, fmt.Errorf("line %d: %s", i+1, pkgerrors.MessageOf(err)))
			continue
		}
		lines = append(lines, ledger.Movement{
			ItemID: item.ID,
			Amount: amount.Neg(),
			Price:  &price,
		})
	}
	if lineErrs != nil {
		return nil, rowValidationError(lineErrs)
	}

	method := input.PaymentMethod
	return s.recordGroup(ctx, ledger.GroupHeader{
		Kind:          enums.GroupKindSale,
		ActorID:       input.ActorID,
		PaymentMethod: &method,
		ClientName:    trimmed(input.ClientName),
		Notes:         trimmed(input.Notes),
	}, lines)
}

func (s *service) Transactions(ctx context.Context, itemID uuid.UUID, limit int) ([]TransactionDTO, error) {
	if _, err := s.loadItem(ctx, itemID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultTransactionsLimit
	}
	if limit > maxTransactionsLimit {
		limit = maxTransactionsLimit
	}
	rows, err := s.ledgerRepo.ListByItem(ctx, itemID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]TransactionDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewTransactionDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) recordOne(ctx context.Context, movement ledger.Movement) (*MovementResult, error) {
	var recorded *models.InventoryTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		recorded, err = s.ledger.Record(ctx, tx, movement)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.movementResult(ctx, recorded)
}

func (s *service) recordGroup(ctx context.Context, header ledger.GroupHeader, lines []ledger.Movement) (*GroupResult, error) {
	var group *models.InventoryTransactionGroup
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		group, err = s.ledger.RecordGroup(ctx, tx, header, lines)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.ledger.Committed(ctx, group.Transactions...)

	ctx = s.logg.WithGroupID(ctx, group.ID.String())
	ctx = s.logg.WithField(ctx, "lines", len(group.Transactions))
	s.logg.Info(ctx, "inventory.group_recorded")
	return newGroupResult(group), nil
}

func (s *service) movementResult(ctx context.Context, recorded *models.InventoryTransaction) (*MovementResult, error) {
	s.ledger.Committed(ctx, *recorded)
	item, err := s.repo.FindByID(ctx, recorded.ItemID)
	if err != nil {
		return nil, err
	}
	return &MovementResult{
		Item:        NewItemDTO(item),
		Transaction: NewTransactionDTO(recorded),
	}, nil
}

func (s *service) loadItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	return s.repo.FindByID(ctx, id)
}

// checkClassification verifies the category exists and that an optional code
// belongs to it.
func (s *service) checkClassification(ctx context.Context, categoryID uuid.UUID, codeID *uuid.UUID) error {
	if _, err := s.repo.FindCategory(ctx, categoryID); err != nil {
		return err
	}
	if codeID == nil {
		return nil
	}
	code, err := s.repo.FindCode(ctx, *codeID)
	if err != nil {
		return err
	}
	if code.CategoryID != categoryID {
		return pkgerrors.New(pkgerrors.CodeValidation, "subcategory code does not belong to the category")
	}
	return nil
}

func (s *service) resolveBulkRow(ctx context.Context, row BulkLoadRow) (ledger.Movement, error) {
	var item *models.InventoryItem
	var err error
	switch {
	case row.ItemID != nil:
		item, err = s.repo.FindByID(ctx, *row.ItemID)
		if err != nil {
			return ledger.Movement{}, err
		}
	default:
		if strings.TrimSpace(row.Name) == "" || strings.TrimSpace(row.Category) == "" || strings.TrimSpace(row.Unit) == "" {
			return ledger.Movement{}, pkgerrors.New(pkgerrors.CodeValidation, "name, category and unit are required")
		}
		item, err = s.repo.FindByNaturalKey(ctx, row.Name, row.Category, row.Unit)
		if err != nil {
			return ledger.Movement{}, err
		}
		if item == nil {
			return ledger.Movement{}, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("product %q (%s, %s) not found", strings.TrimSpace(row.Name), strings.TrimSpace(row.Category), strings.TrimSpace(row.Unit)))
		}
	}

	amount, err := normalizeAmount(row.Quantity, item)
	if err != nil {
		return ledger.Movement{}, err
	}
	price := item.Price
	if row.Price != nil {
		if price, err = quantity.NormalizePrice(*row.Price); err != nil {
			return ledger.Movement{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
		}
	}
	return ledger.Movement{ItemID: item.ID, Amount: amount, Price: &price}, nil
}

// normalizeAmount applies the unit's rounding policy to a user amount.
func normalizeAmount(amount decimal.Decimal, item *models.InventoryItem) (decimal.Decimal, error) {
	valueType := enums.UnitValueTypeDecimal
	if item.Unit != nil {
		valueType = item.Unit.ValueType
	}
	normalized, err := quantity.Normalize(amount, valueType)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount: "+err.Error())
	}
	return normalized, nil
}

func salePrice(value decimal.Decimal) (decimal.Decimal, error) {
	price, err := quantity.NormalizePrice(value)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	if !price.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	}
	return price, nil
}

func rowValidationError(errs error) error {
	messages := make([]string, 0)
	for _, err := range multierr.Errors(errs) {
		messages = append(messages, err.Error())
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, errs, fmt.Sprintf("%d invalid rows", len(messages))).
		WithDetails(map[string]any{"rows": messages})
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	out := strings.TrimSpace(*value)
	if out == "" {
		return nil
	}
	return &out
}
