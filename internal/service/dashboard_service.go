package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/models"
)

type userCounter interface {
	Count(ctx context.Context, role *models.UserRole) (int, error)
}

type loginCounter interface {
	CountLogins(ctx context.Context) (int, error)
}

type lessonCounter interface {
	Count(ctx context.Context) (int, error)
	CountUpcoming(ctx context.Context) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService aggregates the admin overview counters.
type DashboardService struct {
	users   userCounter
	logins  loginCounter
	lessons lessonCounter
	cache   *CacheService
	logger  *zap.Logger
	cfg     DashboardServiceConfig
	now     func() time.Time
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(users userCounter, logins loginCounter, lessons lessonCounter, cache *CacheService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	return &DashboardService{
		users:   users,
		logins:  logins,
		lessons: lessons,
		cache:   cache,
		logger:  logger,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Stats returns the current counters, served from cache while fresh.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	var cached models.DashboardStats
	if s.cache.Get(ctx, dashboardCacheKey, &cached) {
		return &cached, nil
	}

	users, err := s.users.Count(ctx, nil)
	if err != nil {
		return nil, storeFailure(err, "failed to count users")
	}
	logins, err := s.logins.CountLogins(ctx)
	if err != nil {
		return nil, err
	}
	lessons, err := s.lessons.Count(ctx)
	if err != nil {
		return nil, err
	}
	upcoming, err := s.lessons.CountUpcoming(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.DashboardStats{
		ActiveUsers:     users,
		TotalLogins:     logins,
		LessonPlans:     lessons,
		UpcomingLessons: upcoming,
		GeneratedAt:     s.now(),
	}
	s.cache.Set(ctx, dashboardCacheKey, stats, s.cfg.CacheTTL)
	return stats, nil
}
