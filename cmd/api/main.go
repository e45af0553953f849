package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/gemvault-backend/api/routes"
	"github.com/angelmondragon/gemvault-backend/internal/auth"
	"github.com/angelmondragon/gemvault-backend/internal/catalog"
	"github.com/angelmondragon/gemvault-backend/internal/dashboard"
	"github.com/angelmondragon/gemvault-backend/internal/history"
	"github.com/angelmondragon/gemvault-backend/internal/inventory"
	"github.com/angelmondragon/gemvault-backend/internal/ledger"
	"github.com/angelmondragon/gemvault-backend/internal/reports"
	"github.com/angelmondragon/gemvault-backend/internal/users"
	"github.com/angelmondragon/gemvault-backend/pkg/auth/session"
	"github.com/angelmondragon/gemvault-backend/pkg/config"
	"github.com/angelmondragon/gemvault-backend/pkg/db"
	"github.com/angelmondragon/gemvault-backend/pkg/instance"
	"github.com/angelmondragon/gemvault-backend/pkg/logger"
	"github.com/angelmondragon/gemvault-backend/pkg/metrics"
	"github.com/angelmondragon/gemvault-backend/pkg/migrate"
	"github.com/angelmondragon/gemvault-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Instance:    instance.GetID(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(registry)
	ledgerMetrics := metrics.NewLedgerMetrics(registry)

	services, err := buildServices(cfg, logg, dbClient, redisClient, sessionManager, ledgerMetrics)
	if err != nil {
		logg.Error(ctx, "failed to build services", err)
		os.Exit(1)
	}

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:         addr,
		Handler:      routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, registry, httpMetrics, services),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
	}
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sessionManager *session.Manager,
	ledgerMetrics *metrics.LedgerMetrics,
) (routes.Services, error) {
	conn := dbClient.DB()
	ledgerRepo := ledger.NewRepository(conn)
	itemRepo := inventory.NewRepository(conn)
	userRepo := users.NewRepository(conn)

	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{Repo: ledgerRepo, Logger: logg, Metrics: ledgerMetrics})
	if err != nil {
		return routes.Services{}, err
	}

	var out routes.Services
	if out.Inventory, err = inventory.NewService(inventory.ServiceParams{
		Tx:         dbClient,
		Repo:       itemRepo,
		Ledger:     ledgerSvc,
		LedgerRepo: ledgerRepo,
		Logger:     logg,
	}); err != nil {
		return out, err
	}
	if out.Catalog, err = catalog.NewServiceFromDB(conn, logg); err != nil {
		return out, err
	}
	if out.History, err = history.NewService(ledgerRepo); err != nil {
		return out, err
	}
	if out.Reports, err = reports.NewService(reports.ServiceParams{Ledger: ledgerRepo, Items: itemRepo, Logger: logg}); err != nil {
		return out, err
	}
	if out.Dashboard, err = dashboard.NewService(dashboard.ServiceParams{Ledger: ledgerRepo, Items: itemRepo}); err != nil {
		return out, err
	}
	if out.Users, err = users.NewService(users.ServiceParams{Repo: userRepo, Password: cfg.Password, Logger: logg}); err != nil {
		return out, err
	}
	if out.Auth, err = auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		StateStore:     redisClient,
		Google:         auth.NewGoogleProvider(cfg.OAuth),
		JWTConfig:      cfg.JWT,
		Password:       cfg.Password,
		OAuth:          cfg.OAuth,
		Logger:         logg,
	}); err != nil {
		return out, err
	}
	return out, nil
}
