package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/gemvault-backend/api/responses"
	"github.com/angelmondragon/gemvault-backend/api/validators"
	"github.com/angelmondragon/gemvault-backend/internal/inventory"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/angelmondragon/gemvault-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const spreadsheetField = "file"

type createItemRequest struct {
	Name              string          `json:"name" validate:"required,max=255"`
	CategoryID        uuid.UUID       `json:"category_id" validate:"required"`
	UnitID            uuid.UUID       `json:"unit_id" validate:"required"`
	SubcategoryCodeID *uuid.UUID      `json:"subcategory_code_id,omitempty"`
	Quantity          decimal.Decimal `json:"quantity" validate:"gte=0"`
	Price             decimal.Decimal `json:"price" validate:"gte=0"`
}

type editItemRequest struct {
	Name              string          `json:"name" validate:"required,max=255"`
	CategoryID        uuid.UUID       `json:"category_id" validate:"required"`
	SubcategoryCodeID *uuid.UUID      `json:"subcategory_code_id,omitempty"`
	Price             decimal.Decimal `json:"price" validate:"gte=0"`
}

type loadRequest struct {
	Quantity decimal.Decimal  `json:"quantity" validate:"gt=0"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Notes    *string          `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type sellRequest struct {
	Quantity      decimal.Decimal `json:"quantity" validate:"gt=0"`
	Price         decimal.Decimal `json:"price" validate:"gte=0"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
	ClientName    *string         `json:"client_name,omitempty" validate:"omitempty,max=255"`
	Notes         *string         `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type adjustRequest struct {
	Quantity decimal.Decimal `json:"quantity" validate:"gt=0"`
	Reason   string          `json:"reason" validate:"required,max=1000"`
}

type bulkRowRequest struct {
	ItemID   *uuid.UUID       `json:"item_id,omitempty"`
	Name     string           `json:"name,omitempty"`
	Category string           `json:"category,omitempty"`
	Unit     string           `json:"unit,omitempty"`
	Quantity decimal.Decimal  `json:"quantity" validate:"gt=0"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

type bulkLoadRequest struct {
	Rows  []bulkRowRequest `json:"rows" validate:"required,min=1,dive"`
	Notes *string          `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type groupSaleLineRequest struct {
	ItemID   uuid.UUID       `json:"item_id" validate:"required"`
	Quantity decimal.Decimal `json:"quantity" validate:"gt=0"`
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
}

type groupSaleRequest struct {
	Lines         []groupSaleLineRequest `json:"lines" validate:"required,min=1,dive"`
	PaymentMethod string                 `json:"payment_method" validate:"required"`
	ClientName    *string                `json:"client_name,omitempty" validate:"omitempty,max=255"`
	Notes         *string                `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func inventoryUnavailable(r *http.Request, w http.ResponseWriter, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
}

func parsePaymentMethod(raw string) (enums.PaymentMethod, error) {
	method, err := enums.ParsePaymentMethod(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	return method, nil
}

// InventoryList serves the filtered, paginated item listing.
func InventoryList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			inventoryUnavailable(r, w, logg)
			return
		}
		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := inventory.ListParams{
			Params:          page,
			Name:            validators.SanitizeString(r.URL.Query().Get("name"), 255),
			IncludeInactive: strings.EqualFold(r.URL.Query().Get("includeInactive"), "true"),
		}
		if params.CategoryID, err = validators.ParseQueryUUID(r, "categoryId"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.UnitID, err = validators.ParseQueryUUID(r, "unitId"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.MinQuantity, err = validators.ParseQueryDecimal(r, "minQuantity"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func InventoryNames(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			inventoryUnavailable(r, w, logg)
			return
		}
		names, err := svc.Names(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, names)
	}
}

// InventoryMetadata returns the categories, codes and units a create form needs.
func InventoryMetadata(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			inventoryUnavailable(r, w, logg)
			return
		}
		meta, err := svc.Metadata(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, meta)
	}
}

func InventoryGet(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			inventoryUnavailable(r, w, logg)
			return
		}
		itemID, err := uuidParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Get(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// InventoryTransactions lists the most recent movements of one item.
func InventoryTransactions(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			inventoryUnavailable(r, w, logg)
			return
		}
		itemID, err := uuidParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.Transactions(r.Context(), itemID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func InventoryCreate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			inventoryUnavailable(r, w, logg)
			return
		}
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), inventory.CreateItemInput{
			ActorID:           actor,
			Name:              body.Name,
			CategoryID:        body.CategoryID,
			UnitID:            body.UnitID,
			SubcategoryCodeID: body.SubcategoryCodeID,
			Quantity:          body.Quantity,
			Price:             body.Price,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func InventoryEdit(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			inventoryUnavailable(r, w, logg)
			return
		}
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := uuidParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body editItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Edit(r.Context(), inventory.EditInput{
			ActorID:           actor,
			ItemID:            itemID,
			Name:              body.Name,
			CategoryID:        body.CategoryID,
			SubcategoryCodeID: body.SubcategoryCodeID,
			Price:             body.Price,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func InventoryLoad(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			inventoryUnavailable(r, w, logg)
			return
		}
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := uuidParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body loadRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Load(r.Context(), inventory.LoadInput{
			ActorID: actor,
			ItemID:  itemID,
			Amount:  body.Quantity,
			Price:   body.Price,
			Notes:   body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func InventorySell(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			inventoryUnavailable(r, w, logg)
			return
		}
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := uuidParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body sellRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := parsePaymentMethod(body.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Sell(r.Context(), inventory.SellInput{
			ActorID:       actor,
			ItemID:        itemID,
			Amount:        body.Quantity,
			Price:         body.Price,
			PaymentMethod: method,
			ClientName:    body.ClientName,
			Notes:         body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func InventoryAdjust(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			inventoryUnavailable(r, w, logg)
			return
		}
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := uuidParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body adjustRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Adjust(r.Context(), inventory.AdjustInput{
			ActorID: actor,
			ItemID:  itemID,
			Amount:  body.Quantity,
			Reason:  body.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// InventoryBulkLoad loads several items under one group.
func InventoryBulkLoad(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			inventoryUnavailable(r, w, logg)
			return
		}
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body bulkLoadRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows := make([]inventory.BulkLoadRow, 0, len(body.Rows))
		for _, row := range body.Rows {
			rows = append(rows, inventory.BulkLoadRow{
				ItemID:   row.ItemID,
				Name:     row.Name,
				Category: row.Category,
				Unit:     row.Unit,
				Quantity: row.Quantity,
				Price:    row.Price,
			})
		}
		result, err := svc.BulkLoad(r.Context(), inventory.BulkLoadInput{ActorID: actor, Rows: rows, Notes: body.Notes})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// InventoryBulkLoadSpreadsheet accepts a multipart .xlsx upload in the "file" field.
func InventoryBulkLoadSpreadsheet(svc inventory.Service, maxUploadMB int, logg *logger.Logger) http.HandlerFunc {
	maxBytes := int64(maxUploadMB) << 20
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			inventoryUnavailable(r, w, logg)
			return
		}
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart upload"))
			return
		}
		file, _, err := r.FormFile(spreadsheetField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "spreadsheet file is required"))
			return
		}
		defer file.Close()

		var notes *string
		if raw := validators.SanitizeString(r.FormValue("notes"), 1000); raw != "" {
			notes = &raw
		}
		result, err := svc.BulkLoadSpreadsheet(r.Context(), file, actor, notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// InventoryGroupSale sells several items under one receipt.
func InventoryGroupSale(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			inventoryUnavailable(r, w, logg)
			return
		}
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body groupSaleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := parsePaymentMethod(body.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]inventory.GroupSellLine, 0, len(body.Lines))
		for _, line := range body.Lines {
			lines = append(lines, inventory.GroupSellLine{ItemID: line.ItemID, Amount: line.Quantity, Price: line.Price})
		}
		result, err := svc.GroupSell(r.Context(), inventory.GroupSellInput{
			ActorID:       actor,
			Lines:         lines,
			PaymentMethod: method,
			ClientName:    body.ClientName,
			Notes:         body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
