package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/marketplace/backend/internal/infrastructure/config"
	"github.com/marketplace/backend/internal/infrastructure/logger"
	"github.com/marketplace/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

func main() {
	var (
		fixturesPath string
		logLevel     string
		dryRun       bool
	)

	flag.StringVar(&fixturesPath, "file", "", "Path to a YAML fixtures file (default: built-in demo data)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&dryRun, "dry-run", false, "Validate fixtures without writing to the database")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	data := defaultFixtures
	if fixturesPath != "" {
		if data, err = os.ReadFile(fixturesPath); err != nil {
			log.Fatal("Failed to read fixtures", zap.String("path", fixturesPath), zap.Error(err))
		}
	}

	fixtures, err := ParseFixtures(data)
	if err != nil {
		log.Fatal("Invalid fixtures", zap.Error(err))
	}
	plan, err := fixtures.Build(time.Now().UTC())
	if err != nil {
		log.Fatal("Invalid fixtures", zap.Error(err))
	}

	fields := []zap.Field{
		zap.Int("stores", len(plan.Stores)),
		zap.Int("products", len(plan.Products)),
		zap.Int("promotions", len(plan.Promotions)),
		zap.Int("tax_rules", len(plan.TaxRules)),
		zap.Int("shipping_rules", len(plan.ShippingRules)),
	}
	if dryRun {
		log.Info("Fixtures are valid", fields...)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	db, err := persistence.Open(context.Background(), &cfg.Database, logger.NewGormLogger(log, logger.GormLevel(logLevel)))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := plan.Apply(ctx, db.DB); err != nil {
		log.Fatal("Seeding failed", zap.Error(err))
	}
	log.Info("Seed data written", fields...)
}
