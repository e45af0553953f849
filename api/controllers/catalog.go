package controllers

import (
	"net/http"

	"github.com/angelmondragon/gemvault-backend/api/responses"
	"github.com/angelmondragon/gemvault-backend/api/validators"
	"github.com/angelmondragon/gemvault-backend/internal/catalog"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/angelmondragon/gemvault-backend/pkg/logger"
	"github.com/google/uuid"
)

type categoryRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type codeRequest struct {
	CategoryID uuid.UUID `json:"category_id,omitempty"`
	Code       string    `json:"code" validate:"required,max=64"`
}

type unitRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	ValueType string `json:"value_type,omitempty" validate:"omitempty,oneof=integer decimal"`
}

func (u unitRequest) input() catalog.UnitInput {
	return catalog.UnitInput{Name: u.Name, ValueType: enums.UnitValueType(u.ValueType)}
}

func catalogUnavailable(r *http.Request, w http.ResponseWriter, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
}

func CategoriesList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(r, w, logg)
			return
		}
		categories, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

func CategoriesCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(r, w, logg)
			return
		}
		var body categoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.CreateCategory(r.Context(), body.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}

// CodesList serves both /codes?categoryId= and /categories/{categoryId}/codes.
func CodesList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(r, w, logg)
			return
		}
		categoryID, err := categoryIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		codes, err := svc.ListCodes(r.Context(), categoryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, codes)
	}
}

func CodesCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(r, w, logg)
			return
		}
		var body codeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		categoryID := body.CategoryID
		if categoryID == uuid.Nil {
			var err error
			if categoryID, err = categoryIDFrom(r); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		code, err := svc.CreateCode(r.Context(), categoryID, body.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, code)
	}
}

// categoryIDFrom prefers the route parameter and falls back to ?categoryId=.
func categoryIDFrom(r *http.Request) (uuid.UUID, error) {
	if id, err := uuidParam(r, "categoryId"); err == nil {
		return id, nil
	}
	id, err := validators.ParseQueryUUID(r, "categoryId")
	if err != nil {
		return uuid.Nil, err
	}
	if id == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "categoryId is required")
	}
	return *id, nil
}

func UnitsList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(r, w, logg)
			return
		}
		units, err := svc.ListUnits(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, units)
	}
}

func UnitsGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(r, w, logg)
			return
		}
		unitID, err := uuidParam(r, "unitId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unit, err := svc.GetUnit(r.Context(), unitID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, unit)
	}
}

func UnitsCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(r, w, logg)
			return
		}
		var body unitRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unit, err := svc.CreateUnit(r.Context(), body.input())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, unit)
	}
}

func UnitsUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(r, w, logg)
			return
		}
		unitID, err := uuidParam(r, "unitId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body unitRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unit, err := svc.UpdateUnit(r.Context(), unitID, body.input())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, unit)
	}
}
