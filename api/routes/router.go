package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/gemvault-backend/api/controllers"
	"github.com/angelmondragon/gemvault-backend/api/middleware"
	"github.com/angelmondragon/gemvault-backend/internal/auth"
	"github.com/angelmondragon/gemvault-backend/internal/catalog"
	"github.com/angelmondragon/gemvault-backend/internal/dashboard"
	"github.com/angelmondragon/gemvault-backend/internal/history"
	"github.com/angelmondragon/gemvault-backend/internal/inventory"
	"github.com/angelmondragon/gemvault-backend/internal/reports"
	"github.com/angelmondragon/gemvault-backend/internal/users"
	"github.com/angelmondragon/gemvault-backend/pkg/auth/session"
	"github.com/angelmondragon/gemvault-backend/pkg/config"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	"github.com/angelmondragon/gemvault-backend/pkg/logger"
	"github.com/angelmondragon/gemvault-backend/pkg/metrics"
	"github.com/angelmondragon/gemvault-backend/pkg/redis"
)

// Services bundles the domain services the API exposes.
type Services struct {
	Auth      auth.Service
	Users     users.Service
	Inventory inventory.Service
	Catalog   catalog.Service
	History   history.Service
	Reports   reports.Service
	Dashboard dashboard.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTPMetrics,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	// a nil *redis.Client must not reach the middleware as a non-nil interface.
	var (
		idempotencyStore redis.IdempotencyStore
		readiness        = map[string]controllers.Pinger{"database": dbP}
	)
	if redisClient != nil {
		idempotencyStore = redisClient
		readiness["redis"] = redisClient
	}
	rateLimit := func(next http.Handler) http.Handler { return next }
	if redisClient != nil {
		rateLimit = middleware.AuthRateLimit(middleware.LoginRateLimitPolicy(cfg.AuthRateLimit), redisClient, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(rateLimit).Post("/login", controllers.AuthLogin(svc.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(svc.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(svc.Auth, logg))
			r.Get("/google/start", controllers.GoogleStart(svc.Auth, logg))
			r.Get("/google/callback", controllers.GoogleCallback(svc.Auth, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			r.Use(middleware.RequireAuthorized(logg))
			admin := middleware.RequireRole(logg, enums.UserRoleAdmin)

			r.Route("/inventory", func(r chi.Router) {
				r.Get("/", controllers.InventoryList(svc.Inventory, logg))
				r.Get("/names", controllers.InventoryNames(svc.Inventory, logg))
				r.Get("/metadata", controllers.InventoryMetadata(svc.Inventory, logg))
				r.Get("/{itemId}", controllers.InventoryGet(svc.Inventory, logg))
				r.Get("/{itemId}/transactions", controllers.InventoryTransactions(svc.Inventory, logg))

				r.Group(func(r chi.Router) {
					r.Use(admin)
					r.Use(middleware.Idempotency(idempotencyStore, cfg.FeatureFlags.IdempotencyTTL, logg))
					r.Post("/", controllers.InventoryCreate(svc.Inventory, logg))
					r.Post("/bulk", controllers.InventoryBulkLoad(svc.Inventory, logg))
					r.Post("/bulk/xlsx", controllers.InventoryBulkLoadSpreadsheet(svc.Inventory, cfg.HTTP.MaxUploadMB, logg))
					r.Post("/group-sale", controllers.InventoryGroupSale(svc.Inventory, logg))
					r.Put("/{itemId}", controllers.InventoryEdit(svc.Inventory, logg))
					r.Post("/{itemId}/load", controllers.InventoryLoad(svc.Inventory, logg))
					r.Post("/{itemId}/sell", controllers.InventorySell(svc.Inventory, logg))
					r.Post("/{itemId}/adjust", controllers.InventoryAdjust(svc.Inventory, logg))
				})
			})

			r.Get("/categories", controllers.CategoriesList(svc.Catalog, logg))
			r.Get("/categories/{categoryId}/codes", controllers.CodesList(svc.Catalog, logg))
			r.Get("/codes", controllers.CodesList(svc.Catalog, logg))
			r.Get("/units", controllers.UnitsList(svc.Catalog, logg))
			r.Get("/units/{unitId}", controllers.UnitsGet(svc.Catalog, logg))
			r.With(admin).Post("/categories", controllers.CategoriesCreate(svc.Catalog, logg))
			r.With(admin).Post("/categories/{categoryId}/codes", controllers.CodesCreate(svc.Catalog, logg))
			r.With(admin).Post("/codes", controllers.CodesCreate(svc.Catalog, logg))
			r.With(admin).Post("/units", controllers.UnitsCreate(svc.Catalog, logg))
			r.With(admin).Put("/units/{unitId}", controllers.UnitsUpdate(svc.Catalog, logg))

			r.Route("/history", func(r chi.Router) {
				r.Get("/", controllers.HistoryList(svc.History, logg))
				r.Get("/groups/{groupId}", controllers.HistoryGroup(svc.History, logg))
				r.Get("/{transactionId}", controllers.HistoryDetail(svc.History, logg))
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/", controllers.ReportsTransactions(svc.Reports, logg))
				r.Get("/sales", controllers.ReportsSales(svc.Reports, logg))
				r.Get("/accounting", controllers.ReportsAccounting(svc.Reports, logg))
				r.Get("/export", controllers.ReportsExportTransactions(svc.Reports, logg))
				r.Get("/accounting/export", controllers.ReportsExportAccounting(svc.Reports, logg))
				r.Get("/inventory/export", controllers.ReportsExportInventory(svc.Reports, logg))
			})

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/", controllers.DashboardSummary(svc.Dashboard, logg))
				r.Get("/accounting", controllers.DashboardAccounting(svc.Dashboard, logg))
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(admin)
				r.Get("/", controllers.UsersList(svc.Users, logg))
				r.Post("/", controllers.UsersCreate(svc.Users, logg))
				r.Get("/{userId}", controllers.UsersGet(svc.Users, logg))
				r.Put("/{userId}", controllers.UsersUpdate(svc.Users, logg))
				r.Delete("/{userId}", controllers.UsersDelete(svc.Users, logg))
			})
		})
	})

	return r
}
