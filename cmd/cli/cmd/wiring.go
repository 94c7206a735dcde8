package cmd

import (
	"context"
	"fmt"

	"github.com/zecapture/graph/internal/refdriver"
	"github.com/zecapture/graph/internal/repository"
	"github.com/zecapture/graph/internal/service"
	"github.com/zecapture/graph/pkg/telemetry"
)

// cliEnv bundles everything a subcommand needs to drive the engine
// through the service facade: the service itself, and the reference
// context/device its demo command lists are scoped to.
type cliEnv struct {
	svc     *service.Service
	ctx     *refdriver.Context
	dev     *refdriver.Device
	cleanup func()
}

// newCLIEnv loads configuration, opens the audit database, and wires a
// Service backed by the in-memory reference driver.
func newCLIEnv() (*cliEnv, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	shutdownTelemetry, err := telemetry.Init(context.Background())
	if err != nil {
		logger.Warn("telemetry init failed, continuing without tracing: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	db, err := repository.NewDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	repo := repository.NewGormGraphAuditRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("migrating audit schema: %w", err)
	}

	exporter, err := repository.NewAuditExporter(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("configuring audit exporter: %w", err)
	}

	refCtx := refdriver.NewContext()
	refDev := refdriver.NewDevice()
	svc := service.New(cfg, logger, repo, exporter, refdriver.Factory(refCtx, refDev))

	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		shutdownTelemetry(context.Background())
	}

	return &cliEnv{svc: svc, ctx: refCtx, dev: refDev, cleanup: cleanup}, nil
}
