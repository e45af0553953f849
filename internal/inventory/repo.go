package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/gemvault-backend/pkg/db"
	"github.com/angelmondragon/gemvault-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists inventory items and reads the catalog rows they
// reference. Balances are only ever written through the ledger.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a repository to the provided database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Category").
		Preload("Unit").
		Preload("SubcategoryCode")
}

// FindByID loads an item with its category, unit and code.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.withRelations(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}
	return &item, nil
}

// FindByIDs loads every requested item keyed by id. Missing ids are simply
// absent from the map.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.InventoryItem, error) {
	out := make(map[uuid.UUID]*models.InventoryItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var items []models.InventoryItem
	if err := r.withRelations(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory items")
	}
	for i := range items {
		out[items[i].ID] = &items[i]
	}
	return out, nil
}

// FindByNaturalKey matches an item by name, category name and unit name,
// ignoring case. It returns nil when nothing matches.
func (r *Repository) FindByNaturalKey(ctx context.Context, name, category, unit string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).
		Preload("Unit").
		Joins("JOIN categories ON categories.id = inventory_items.category_id").
		Joins("JOIN units ON units.id = inventory_items.unit_id").
		Where("LOWER(inventory_items.name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Where("LOWER(categories.name) = ?", strings.ToLower(strings.TrimSpace(category))).
		Where("LOWER(units.name) = ?", strings.ToLower(strings.TrimSpace(unit))).
		Order("inventory_items.created_at ASC").
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find inventory item by name")
	}
	return &item, nil
}

// List returns a filtered page of items ordered by name, plus the total row
// count for the same filter.
func (r *Repository) List(ctx context.Context, params ListParams) ([]models.InventoryItem, int64, error) {
	page := params.Params.Normalize()

	query := r.db.WithContext(ctx).Model(&models.InventoryItem{})
	if name := strings.TrimSpace(params.Name); name != "" {
		query = query.Where("LOWER(inventory_items.name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if params.CategoryID != nil {
		query = query.Where("inventory_items.category_id = ?", *params.CategoryID)
	}
	if params.UnitID != nil {
		query = query.Where("inventory_items.unit_id = ?", *params.UnitID)
	}
	if params.MinQuantity != nil {
		query = query.Where("inventory_items.quantity >= ?", *params.MinQuantity)
	}
	if !params.IncludeInactive {
		query = query.Where("inventory_items.is_active = ?", true)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count inventory items")
	}

	var items []models.InventoryItem
	if err := query.
		Preload("Category").
		Preload("Unit").
		Preload("SubcategoryCode").
		Order("inventory_items.name ASC").
		Order("inventory_items.id ASC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&items).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory items")
	}
	return items, total, nil
}

// ListActive returns every active item ordered by name.
func (r *Repository) ListActive(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Unit").
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&items).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active items")
	}
	return items, nil
}

// ListAll returns every item, inactive ones included, ordered by name.
func (r *Repository) ListAll(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Unit").
		Order("name ASC").
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory items")
	}
	return items, nil
}

// Create inserts the item row only; opening stock goes through the ledger.
func (r *Repository) Create(ctx context.Context, item *models.InventoryItem) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error; err != nil {
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "category, code or unit does not exist")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert inventory item")
	}
	return nil
}

// UpdateDetails rewrites the descriptive columns of an item. Quantity and the
// activity flags are left to the ledger.
func (r *Repository) UpdateDetails(ctx context.Context, item *models.InventoryItem) error {
	err := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"name":                item.Name,
			"category_id":         item.CategoryID,
			"subcategory_code_id": item.SubcategoryCodeID,
			"price":               item.Price,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory item")
	}
	return nil
}

// FindCategory loads a category with its codes.
func (r *Repository) FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Preload("Codes").First(&category, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return &category, nil
}

// FindUnit loads a unit of measure.
func (r *Repository) FindUnit(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	var unit models.Unit
	if err := r.db.WithContext(ctx).First(&unit, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unit")
	}
	return &unit, nil
}

// FindCode loads a subcategory code.
func (r *Repository) FindCode(ctx context.Context, id uuid.UUID) (*models.SubcategoryCode, error) {
	var code models.SubcategoryCode
	if err := r.db.WithContext(ctx).First(&code, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subcategory code not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subcategory code")
	}
	return &code, nil
}

// ListCategories returns categories with their codes, ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).
		Preload("Codes", func(db *gorm.DB) *gorm.DB { return db.Order("code ASC") }).
		Order("name ASC").
		Find(&categories).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return categories, nil
}

// ListUnits returns every unit ordered by name.
func (r *Repository) ListUnits(ctx context.Context) ([]models.Unit, error) {
	var units []models.Unit
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&units).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list units")
	}
	return units, nil
}
