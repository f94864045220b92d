// Command provision applies migrations and ensures an administrator exists
// without starting the HTTP server.
package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/migrations"
	"github.com/noah-isme/lesson-planner-api/internal/server"
	"github.com/noah-isme/lesson-planner-api/pkg/config"
	"github.com/noah-isme/lesson-planner-api/pkg/database"
	"github.com/noah-isme/lesson-planner-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.Migrate(ctx, db.DB, migrations.FS); err != nil {
		logr.Fatal("failed to migrate database", zap.Error(err))
	}
	if err := server.Provision(ctx, cfg, logr, db); err != nil {
		logr.Fatal("failed to provision admin", zap.Error(err))
	}
	logr.Info("provisioning complete")
}
