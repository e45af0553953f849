package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/gemvault-backend/api/responses"
	"github.com/angelmondragon/gemvault-backend/api/validators"
	"github.com/angelmondragon/gemvault-backend/internal/reports"
	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/angelmondragon/gemvault-backend/pkg/logger"
)

func reportsUnavailable(r *http.Request, w http.ResponseWriter, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
}

// dateRange reads the inclusive ?from=&to= day range.
func dateRange(r *http.Request) (*time.Time, *time.Time, error) {
	from, err := validators.ParseQueryDate(r, "from", false)
	if err != nil {
		return nil, nil, err
	}
	to, err := validators.ParseQueryDate(r, "to", false)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func reportFilter(r *http.Request, paged bool) (reports.Filter, error) {
	var filter reports.Filter
	if paged {
		page, err := pageParams(r)
		if err != nil {
			return filter, err
		}
		filter.Params = page
	}
	from, to, err := dateRange(r)
	if err != nil {
		return filter, err
	}
	filter.From, filter.To = from, to
	filter.Product = validators.SanitizeString(r.URL.Query().Get("product"), 255)
	if filter.Type, err = queryTransactionType(r); err != nil {
		return filter, err
	}
	return filter, nil
}

func ReportsTransactions(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			reportsUnavailable(r, w, logg)
			return
		}
		filter, err := reportFilter(r, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.Transactions(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func ReportsSales(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			reportsUnavailable(r, w, logg)
			return
		}
		from, to, err := dateRange(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.Sales(r.Context(), from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func ReportsAccounting(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			reportsUnavailable(r, w, logg)
			return
		}
		filter, err := reportFilter(r, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.Accounting(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func ReportsExportTransactions(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			reportsUnavailable(r, w, logg)
			return
		}
		filter, err := reportFilter(r, false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeExport(w, r, logg, func() (*reports.Export, error) {
			return svc.ExportTransactions(r.Context(), filter)
		})
	}
}

func ReportsExportAccounting(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			reportsUnavailable(r, w, logg)
			return
		}
		from, to, err := dateRange(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeExport(w, r, logg, func() (*reports.Export, error) {
			return svc.ExportAccounting(r.Context(), from, to)
		})
	}
}

func ReportsExportInventory(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			reportsUnavailable(r, w, logg)
			return
		}
		writeExport(w, r, logg, func() (*reports.Export, error) {
			return svc.ExportInventory(r.Context())
		})
	}
}

func writeExport(w http.ResponseWriter, r *http.Request, logg *logger.Logger, build func() (*reports.Export, error)) {
	export, err := build()
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteAttachment(w, responses.SpreadsheetContentType, export.Filename, export.Content)
}
