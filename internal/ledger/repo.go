package ledger

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/gemvault-backend/pkg/db/models"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/angelmondragon/gemvault-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for ledger rows and the cached balances
// they drive.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.InventoryItem, error)
	Create(ctx context.Context, txn *models.InventoryTransaction) error
	CreateGroup(ctx context.Context, group *models.InventoryTransactionGroup) error
	UpdateBalance(ctx context.Context, item *models.InventoryItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryTransaction, error)
	FindGroup(ctx context.Context, id uuid.UUID) (*models.InventoryTransactionGroup, error)
	ListByItem(ctx context.Context, itemID uuid.UUID, limit int) ([]models.InventoryTransaction, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]models.InventoryTransaction, error)
	SumByItem(ctx context.Context, itemID uuid.UUID) (decimal.Decimal, error)
	Search(ctx context.Context, filter Filter, page pagination.Params) ([]models.InventoryTransaction, int64, error)
	SearchAll(ctx context.Context, filter Filter) ([]models.InventoryTransaction, error)
}

// Filter narrows ledger reads. From is inclusive and To exclusive.
type Filter struct {
	Types   []enums.TransactionType
	ItemID  *uuid.UUID
	GroupID *uuid.UUID
	Product string
	From    *time.Time
	To      *time.Time
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockItems loads the items with FOR UPDATE, acquiring row locks in id order
// so concurrent multi-item writers cannot deadlock each other.
func (r *repository) LockItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.InventoryItem, error) {
	ordered := uniqueSorted(ids)
	items := make(map[uuid.UUID]*models.InventoryItem, len(ordered))
	for _, id := range ordered {
		var item models.InventoryItem
		err := r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&item).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found").
					WithDetails(map[string]any{"itemId": id})
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock inventory item")
		}
		items[id] = &item
	}
	return items, nil
}

func (r *repository) Create(ctx context.Context, txn *models.InventoryTransaction) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(txn).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert inventory transaction")
	}
	return nil
}

func (r *repository) CreateGroup(ctx context.Context, group *models.InventoryTransactionGroup) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(group).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert transaction group")
	}
	return nil
}

// UpdateBalance writes the already computed balance and activity flags.
func (r *repository) UpdateBalance(ctx context.Context, item *models.InventoryItem) error {
	item.UpdatedAt = time.Now().UTC()
	err := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"quantity":   item.Quantity,
			"is_active":  item.IsActive,
			"deleted_at": item.DeletedAt,
			"updated_at": item.UpdatedAt,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item balance")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryTransaction, error) {
	var txn models.InventoryTransaction
	err := r.db.WithContext(ctx).
		Preload("Item.Unit").
		Preload("Item.Category").
		Preload("User").
		Preload("Group").
		First(&txn, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	return &txn, nil
}

func (r *repository) FindGroup(ctx context.Context, id uuid.UUID) (*models.InventoryTransactionGroup, error) {
	var group models.InventoryTransactionGroup
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Preload("Transactions.Item.Unit").
		Preload("Transactions.Item.Category").
		First(&group, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction group not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction group")
	}
	return &group, nil
}

// ListByItem returns the item's movements, newest first. A limit <= 0
// returns every row.
func (r *repository) ListByItem(ctx context.Context, itemID uuid.UUID, limit int) ([]models.InventoryTransaction, error) {
	var rows []models.InventoryTransaction
	query := r.db.WithContext(ctx).
		Preload("User").
		Where("item_id = ?", itemID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list item transactions")
	}
	return rows, nil
}

func (r *repository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]models.InventoryTransaction, error) {
	var rows []models.InventoryTransaction
	if err := r.db.WithContext(ctx).
		Preload("Item.Unit").
		Where("group_id = ?", groupID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list group transactions")
	}
	return rows, nil
}

// SumByItem adds the item's ledger amounts in Go so the result is exact on
// every driver.
func (r *repository) SumByItem(ctx context.Context, itemID uuid.UUID) (decimal.Decimal, error) {
	var rows []models.InventoryTransaction
	if err := r.db.WithContext(ctx).
		Select("amount").
		Where("item_id = ?", itemID).
		Find(&rows).Error; err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum item transactions")
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	return total, nil
}

func (r *repository) filtered(ctx context.Context, filter Filter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.InventoryTransaction{})
	if len(filter.Types) > 0 {
		query = query.Where("type IN ?", filter.Types)
	}
	if filter.ItemID != nil {
		query = query.Where("item_id = ?", *filter.ItemID)
	}
	if filter.GroupID != nil {
		query = query.Where("group_id = ?", *filter.GroupID)
	}
	if product := strings.TrimSpace(filter.Product); product != "" {
		items := r.db.WithContext(ctx).
			Model(&models.InventoryItem{}).
			Select("id").
			Where("LOWER(name) LIKE ?", "%"+strings.ToLower(product)+"%")
		query = query.Where("item_id IN (?)", items)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}
	return query
}

func withDisplayRelations(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Item.Category").
		Preload("Item.Unit").
		Preload("User").
		Order("created_at DESC").
		Order("id DESC")
}

// Search returns one page of matching rows, newest first, with the total
// count for the filter.
func (r *repository) Search(ctx context.Context, filter Filter, page pagination.Params) ([]models.InventoryTransaction, int64, error) {
	page = page.Normalize()
	query := r.filtered(ctx, filter).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count transactions")
	}
	var rows []models.InventoryTransaction
	if err := withDisplayRelations(query).
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search transactions")
	}
	return rows, total, nil
}

// SearchAll returns every matching row, newest first.
func (r *repository) SearchAll(ctx context.Context, filter Filter) ([]models.InventoryTransaction, error) {
	var rows []models.InventoryTransaction
	if err := withDisplayRelations(r.filtered(ctx, filter)).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search transactions")
	}
	return rows, nil
}

func uniqueSorted(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}
