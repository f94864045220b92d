package server

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/repository"
	"github.com/noah-isme/lesson-planner-api/internal/service"
	"github.com/noah-isme/lesson-planner-api/pkg/config"
)

// Build wires repositories and services over the given connections. rdb may
// be nil, in which case caching is disabled.
func Build(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, rdb *redis.Client) Services {
	validate := service.NewValidator()
	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if rdb != nil {
		cacheRepo = repository.NewCacheRepository(rdb)
	}
	cache := service.NewCacheService(cacheRepo, metrics, cfg.Schedule.CacheTTL, logr)

	userRepo := repository.NewUserRepository(db)
	lessonRepo := repository.NewLessonPlanRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	audit := service.NewAuditService(auditRepo, metrics, logr, cfg.Audit.ListLimit)
	auth := service.NewAuthService(userRepo, audit, metrics, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		BcryptCost: cfg.JWT.BcryptCost,
	})
	users := service.NewUserService(userRepo, audit, cache, validate, logr, cfg.JWT.BcryptCost)
	lessons := service.NewLessonPlanService(lessonRepo, cache, validate, logr, service.LessonPlanConfig{
		Location:      cfg.Schedule.Location(),
		UpcomingLimit: cfg.Schedule.UpcomingLimit,
		CacheTTL:      cfg.Schedule.CacheTTL,
	})
	dashboard := service.NewDashboardService(userRepo, audit, lessons, cache, logr, service.DashboardServiceConfig{
		CacheTTL: cfg.Dashboard.CacheTTL,
	})

	return Services{
		Auth:      auth,
		Users:     users,
		Lessons:   lessons,
		Audit:     audit,
		Dashboard: dashboard,
		Exports:   service.NewExportService(lessons, audit),
		Metrics:   metrics,
		DB:        db,
	}
}

// Provision makes sure an administrator exists. Outside production a missing
// bootstrap password is replaced by a generated one that is logged once.
func Provision(ctx context.Context, cfg *config.Config, logr *zap.Logger, db *sqlx.DB) error {
	audit := service.NewAuditService(repository.NewAuditRepository(db), nil, logr, cfg.Audit.ListLimit)
	bootstrap := service.NewBootstrapService(repository.NewUserRepository(db), audit, logr, cfg.JWT.BcryptCost)
	_, err := bootstrap.EnsureAdmin(ctx, service.BootstrapParams{
		Username:         cfg.Bootstrap.Username,
		Password:         cfg.Bootstrap.Password,
		Email:            cfg.Bootstrap.Email,
		GeneratePassword: cfg.Env != config.EnvProduction,
	})
	if err != nil {
		return fmt.Errorf("provision admin: %w", err)
	}
	return nil
}
