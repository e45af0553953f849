package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/gemvault-backend/internal/seed"
	"github.com/angelmondragon/gemvault-backend/pkg/config"
	"github.com/angelmondragon/gemvault-backend/pkg/db"
	"github.com/angelmondragon/gemvault-backend/pkg/logger"
	"github.com/angelmondragon/gemvault-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})
	_ = godotenv.Load()

	adminOnly := flag.Bool("admin-only", false, "only create the admin account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":        cfg.App.Env,
		"admin_only": *adminOnly,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	result, err := seed.Run(ctx, dbClient, logg, seed.Options{
		AdminOnly: *adminOnly,
		Seed:      cfg.Seed,
		Password:  cfg.Password,
	})
	if err != nil {
		logg.Error(ctx, "seed failed", err)
		os.Exit(1)
	}
	fmt.Printf("seeded units=%d categories=%d items=%d users=%d\n", result.Units, result.Categories, result.Items, result.Users)
}
