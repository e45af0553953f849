package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/gemvault-backend/pkg/db/models"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/angelmondragon/gemvault-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoryDTO is a category with its subcategory codes.
type CategoryDTO struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Codes []CodeDTO `json:"codes"`
}

type CodeDTO struct {
	ID         uuid.UUID `json:"id"`
	CategoryID uuid.UUID `json:"category_id"`
	Code       string    `json:"code"`
}

type UnitDTO struct {
	ID        uuid.UUID           `json:"id"`
	Name      string              `json:"name"`
	ValueType enums.UnitValueType `json:"value_type"`
}

// UnitInput creates or replaces a unit.
type UnitInput struct {
	Name      string
	ValueType enums.UnitValueType
}

// Service manages the classification data items reference.
type Service interface {
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	CreateCategory(ctx context.Context, name string) (*CategoryDTO, error)
	ListCodes(ctx context.Context, categoryID uuid.UUID) ([]CodeDTO, error)
	CreateCode(ctx context.Context, categoryID uuid.UUID, code string) (*CodeDTO, error)
	ListUnits(ctx context.Context) ([]UnitDTO, error)
	GetUnit(ctx context.Context, id uuid.UUID) (*UnitDTO, error)
	CreateUnit(ctx context.Context, input UnitInput) (*UnitDTO, error)
	UpdateUnit(ctx context.Context, id uuid.UUID, input UnitInput) (*UnitDTO, error)
}

type service struct {
	repo *Repository
	logg *logger.Logger
}

// NewService builds the catalog service.
func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// NewServiceFromDB is a convenience for wiring with a bare connection.
func NewServiceFromDB(db *gorm.DB, logg *logger.Logger) (Service, error) {
	return NewService(NewRepository(db), logg)
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryDTO, 0, len(categories))
	for i := range categories {
		out = append(out, newCategoryDTO(&categories[i]))
	}
	return out, nil
}

func (s *service) CreateCategory(ctx context.Context, name string) (*CategoryDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	category := &models.Category{Name: name}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "category_id", category.ID.String()), "catalog.category_created")
	dto := newCategoryDTO(category)
	return &dto, nil
}

func (s *service) ListCodes(ctx context.Context, categoryID uuid.UUID) ([]CodeDTO, error) {
	if categoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "categoryId is required")
	}
	codes, err := s.repo.ListCodes(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	out := make([]CodeDTO, 0, len(codes))
	for i := range codes {
		out = append(out, newCodeDTO(&codes[i]))
	}
	return out, nil
}

func (s *service) CreateCode(ctx context.Context, categoryID uuid.UUID, code string) (*CodeDTO, error) {
	code = strings.TrimSpace(code)
	if categoryID == uuid.Nil || code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "categoryId and code are required")
	}
	if _, err := s.repo.FindCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	row := &models.SubcategoryCode{CategoryID: categoryID, Code: code}
	if err := s.repo.CreateCode(ctx, row); err != nil {
		return nil, err
	}
	dto := newCodeDTO(row)
	return &dto, nil
}

func (s *service) ListUnits(ctx context.Context) ([]UnitDTO, error) {
	units, err := s.repo.ListUnits(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UnitDTO, 0, len(units))
	for i := range units {
		out = append(out, newUnitDTO(&units[i]))
	}
	return out, nil
}

func (s *service) GetUnit(ctx context.Context, id uuid.UUID) (*UnitDTO, error) {
	unit, err := s.repo.FindUnit(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := newUnitDTO(unit)
	return &dto, nil
}

func (s *service) CreateUnit(ctx context.Context, input UnitInput) (*UnitDTO, error) {
	unit, err := input.toModel()
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateUnit(ctx, unit); err != nil {
		return nil, err
	}
	dto := newUnitDTO(unit)
	return &dto, nil
}

// UpdateUnit replaces the name and value type. A switch to integer fails
// with a conflict while any item of the unit holds a fractional balance.
func (s *service) UpdateUnit(ctx context.Context, id uuid.UUID, input UnitInput) (*UnitDTO, error) {
	next, err := input.toModel()
	if err != nil {
		return nil, err
	}
	unit, err := s.repo.FindUnit(ctx, id)
	if err != nil {
		return nil, err
	}
	unit.Name = next.Name
	unit.ValueType = next.ValueType
	if err := s.repo.UpdateUnit(ctx, unit); err != nil {
		return nil, err
	}
	dto := newUnitDTO(unit)
	return &dto, nil
}

func (in UnitInput) toModel() (*models.Unit, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	valueType := in.ValueType
	if valueType == "" {
		valueType = enums.UnitValueTypeDecimal
	}
	if !valueType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid value type %q", in.ValueType))
	}
	return &models.Unit{Name: name, ValueType: valueType}, nil
}

func newCategoryDTO(category *models.Category) CategoryDTO {
	dto := CategoryDTO{ID: category.ID, Name: category.Name, Codes: make([]CodeDTO, 0, len(category.Codes))}
	for i := range category.Codes {
		dto.Codes = append(dto.Codes, newCodeDTO(&category.Codes[i]))
	}
	return dto
}

func newCodeDTO(code *models.SubcategoryCode) CodeDTO {
	return CodeDTO{ID: code.ID, CategoryID: code.CategoryID, Code: code.Code}
}

func newUnitDTO(unit *models.Unit) UnitDTO {
	return UnitDTO{ID: unit.ID, Name: unit.Name, ValueType: unit.ValueType}
}
