package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/gemvault-backend/api/responses"
	"github.com/angelmondragon/gemvault-backend/api/validators"
	"github.com/angelmondragon/gemvault-backend/internal/history"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/angelmondragon/gemvault-backend/pkg/logger"
)

// queryTransactionType reads an optional ?type= filter.
func queryTransactionType(r *http.Request) (*enums.TransactionType, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("type"))
	if raw == "" {
		return nil, nil
	}
	value, err := enums.ParseTransactionType(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction type").
			WithDetails(map[string]any{"field": "type"})
	}
	return &value, nil
}

func HistoryList(svc history.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "history service unavailable"))
			return
		}
		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := history.ListParams{Params: page}
		if params.Type, err = queryTransactionType(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.ItemID, err = validators.ParseQueryUUID(r, "itemId"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.GroupID, err = validators.ParseQueryUUID(r, "groupId"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.From, err = validators.ParseQueryDate(r, "from", false); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.To, err = validators.ParseQueryDate(r, "to", false); err != nil {
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

// HistoryDetail renders the receipt of a single movement.
func HistoryDetail(svc history.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "history service unavailable"))
			return
		}
		txnID, err := uuidParam(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		receipt, err := svc.Detail(r.Context(), txnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, receipt)
	}
}

func HistoryGroup(svc history.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "history service unavailable"))
			return
		}
		groupID, err := uuidParam(r, "groupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		receipt, err := svc.Group(r.Context(), groupID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, receipt)
	}
}
