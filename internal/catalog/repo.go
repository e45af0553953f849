package catalog

import (
	"context"
	"errors"

	"github.com/angelmondragon/gemvault-backend/pkg/db"
	"github.com/angelmondragon/gemvault-backend/pkg/db/models"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists categories, their subcategory codes and units.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a repository to the provided database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

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

func (r *Repository) FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return &category, nil
}

func (r *Repository) CreateCategory(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Omit("Codes").Create(category).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a category with that name already exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert category")
	}
	return nil
}

// ListCodes returns the codes of one category ordered by code.
func (r *Repository) ListCodes(ctx context.Context, categoryID uuid.UUID) ([]models.SubcategoryCode, error) {
	var codes []models.SubcategoryCode
	if err := r.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("code ASC").
		Find(&codes).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subcategory codes")
	}
	return codes, nil
}

func (r *Repository) CreateCode(ctx context.Context, code *models.SubcategoryCode) error {
	if err := r.db.WithContext(ctx).Create(code).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "the code already exists for this category")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert subcategory code")
	}
	return nil
}

func (r *Repository) ListUnits(ctx context.Context) ([]models.Unit, error) {
	var units []models.Unit
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&units).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list units")
	}
	return units, nil
}

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

func (r *Repository) CreateUnit(ctx context.Context, unit *models.Unit) error {
	if err := r.db.WithContext(ctx).Create(unit).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a unit with that name already exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert unit")
	}
	return nil
}

// UpdateUnit writes name and value type. Switching to an integer unit is
// refused while any item of the unit holds a fractional balance, since that
// remainder could never be sold or adjusted away.
func (r *Repository) UpdateUnit(ctx context.Context, unit *models.Unit) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if unit.ValueType == enums.UnitValueTypeInteger {
			if err := requireWholeBalances(tx, unit.ID); err != nil {
				return err
			}
		}
		err := tx.Model(&models.Unit{}).
			Where("id = ?", unit.ID).
			Updates(map[string]any{
				"name":       unit.Name,
				"value_type": unit.ValueType,
			}).Error
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a unit with that name already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update unit")
		}
		return nil
	})
}

func requireWholeBalances(tx *gorm.DB, unitID uuid.UUID) error {
	var items []models.InventoryItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "name", "quantity").
		Where("unit_id = ?", unitID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check unit balances")
	}
	var fractional []string
	for _, item := range items {
		if !item.Quantity.Equal(item.Quantity.Truncate(0)) {
			fractional = append(fractional, item.Name)
		}
	}
	if len(fractional) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "unit has items with fractional balances").
		WithDetails(map[string]any{"items": fractional})
}
