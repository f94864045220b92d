package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	"github.com/noah-isme/lesson-planner-api/internal/repository"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
)

type lessonPlanRepository interface {
	Create(ctx context.Context, plan *models.LessonPlan) error
	Patch(ctx context.Context, id string, patch models.LessonPlanPatch) (*models.LessonPlan, error)
	FindByID(ctx context.Context, id string) (*models.LessonPlan, error)
	ListAll(ctx context.Context) ([]models.LessonPlan, error)
	ListByUser(ctx context.Context, userID string) ([]models.LessonPlan, error)
	ReplaceAssignments(ctx context.Context, lessonID string, userIDs []string) error
	Count(ctx context.Context) (int, error)
}

// LessonPlanConfig tunes listing behaviour.
type LessonPlanConfig struct {
	Location      *time.Location
	UpcomingLimit int
	CacheTTL      time.Duration
}

// LessonPlanService schedules lessons and answers schedule queries.
type LessonPlanService struct {
	repo      lessonPlanRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	config    LessonPlanConfig
	now       func() time.Time
}

// NewLessonPlanService constructs a LessonPlanService.
func NewLessonPlanService(repo lessonPlanRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, config LessonPlanConfig) *LessonPlanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.UpcomingLimit <= 0 {
		config.UpcomingLimit = 5
	}
	return &LessonPlanService{
		repo:      repo,
		cache:     cache,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// Create schedules a new lesson owned by creator.
func (s *LessonPlanService) Create(ctx context.Context, req models.CreateLessonPlanRequest, creator models.UserInfo) (*models.LessonPlan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid lesson plan payload")
	}

	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, invalidField("date", "must be a date formatted YYYY-MM-DD", err)
	}

	plan := &models.LessonPlan{
		Title:           req.Title,
		Description:     req.Description,
		Date:            date,
		StartTime:       req.Time,
		DurationMinutes: req.Duration,
		CreatedBy:       actorID(creator),
		AssignedUsers:   uniqueIDs(req.AssignedUsers),
	}
	plan.StartTime = plan.Clock()

	err = s.repo.Create(ctx, plan)
	if err != nil && plan.CreatedBy != nil && repository.ViolatesConstraint(err, repository.ConstraintLessonCreator) {
		s.logger.Warn("lesson creator no longer exists, storing without creator", zap.String("user_id", *plan.CreatedBy))
		plan.CreatedBy = nil
		err = s.repo.Create(ctx, plan)
	}
	if err != nil {
		if errors.Is(err, repository.ErrUnknownReference) {
			return nil, invalidField("assigned_users", "contains an unknown user", err)
		}
		return nil, storeFailure(err, "failed to create lesson plan")
	}

	s.cache.Invalidate(ctx, lessonCachePattern)
	return plan, nil
}

// ListAll returns every lesson ordered by date and time.
func (s *LessonPlanService) ListAll(ctx context.Context) ([]models.LessonPlan, error) {
	var cached []models.LessonPlan
	if s.cache.Get(ctx, lessonCacheAllKey, &cached) {
		return cached, nil
	}

	plans, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, storeFailure(err, "failed to list lesson plans")
	}
	s.cache.Set(ctx, lessonCacheAllKey, plans, s.config.CacheTTL)
	return plans, nil
}

// ListForUser returns the lessons assigned to userID sorted by start. Upcoming
// listings keep only lessons that have not started yet and are capped.
func (s *LessonPlanService) ListForUser(ctx context.Context, userID string, filter models.LessonPlanUserFilter) ([]models.LessonPlan, error) {
	key := "lessons:user:" + userID
	var plans []models.LessonPlan
	if !s.cache.Get(ctx, key, &plans) {
		var err error
		plans, err = s.repo.ListByUser(ctx, userID)
		if err != nil {
			return nil, storeFailure(err, "failed to list lesson plans")
		}
		s.cache.Set(ctx, key, plans, s.config.CacheTTL)
	}

	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].Start().Before(plans[j].Start())
	})

	limit := filter.Limit
	if filter.UpcomingOnly {
		plans = s.upcoming(plans)
		if limit <= 0 {
			limit = s.config.UpcomingLimit
		}
	}
	if limit > 0 && len(plans) > limit {
		plans = plans[:limit]
	}
	return plans, nil
}

// Get returns one lesson.
func (s *LessonPlanService) Get(ctx context.Context, id string) (*models.LessonPlan, error) {
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson plan not found")
		}
		return nil, storeFailure(err, "failed to load lesson plan")
	}
	return plan, nil
}

// Update applies only the provided fields in a single statement, so
// concurrent partial updates of different fields do not overwrite each other.
func (s *LessonPlanService) Update(ctx context.Context, id string, req models.UpdateLessonPlanRequest) (*models.LessonPlan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid lesson plan payload")
	}

	patch := models.LessonPlanPatch{
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.Duration,
	}
	if req.Date != nil {
		date, err := models.ParseDate(*req.Date)
		if err != nil {
			return nil, invalidField("date", "must be a date formatted YYYY-MM-DD", err)
		}
		formatted := date.Format(models.DateLayout)
		patch.Date = &formatted
	}
	if req.Time != nil {
		clock, err := models.NormalizeClock(*req.Time)
		if err != nil {
			return nil, invalidField("time", "must be a time formatted HH:MM or HH:MM:SS", err)
		}
		patch.StartTime = &clock
	}

	plan, err := s.repo.Patch(ctx, id, patch)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson plan not found")
		}
		return nil, storeFailure(err, "failed to update lesson plan")
	}

	s.cache.Invalidate(ctx, lessonCachePattern)
	return plan, nil
}

// Assign replaces the set of users assigned to a lesson.
func (s *LessonPlanService) Assign(ctx context.Context, id string, req models.AssignLessonPlanRequest) (*models.LessonPlan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assignment payload")
	}

	if err := s.repo.ReplaceAssignments(ctx, id, uniqueIDs(req.UserIDs)); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson plan not found")
		case errors.Is(err, repository.ErrUnknownReference):
			return nil, invalidField("user_ids", "contains an unknown user", err)
		}
		return nil, storeFailure(err, "failed to assign lesson plan")
	}

	s.cache.Invalidate(ctx, lessonCachePattern)
	return s.Get(ctx, id)
}

// Count returns the total number of lessons.
func (s *LessonPlanService) Count(ctx context.Context) (int, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return 0, storeFailure(err, "failed to count lesson plans")
	}
	return total, nil
}

// CountUpcoming returns how many lessons have not started yet.
func (s *LessonPlanService) CountUpcoming(ctx context.Context) (int, error) {
	plans, err := s.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(s.upcoming(plans)), nil
}

// upcoming filters plans to those starting at or after the current wall clock
// of the schedule location.
func (s *LessonPlanService) upcoming(plans []models.LessonPlan) []models.LessonPlan {
	now := s.localNow()
	result := make([]models.LessonPlan, 0, len(plans))
	for _, plan := range plans {
		if !plan.Start().Before(now) {
			result = append(result, plan)
		}
	}
	return result
}

// localNow expresses the current instant as a wall-clock time in the schedule
// location, carried in UTC to compare with LessonPlan.Start.
func (s *LessonPlanService) localNow() time.Time {
	n := s.now().In(s.config.Location)
	return time.Date(n.Year(), n.Month(), n.Day(), n.Hour(), n.Minute(), n.Second(), n.Nanosecond(), time.UTC)
}

func invalidField(field, message string, cause error) *appErrors.Error {
	appErr := appErrors.Wrap(cause, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, appErrors.ErrValidation.Message)
	return appErrors.WithFields(appErr, map[string]string{field: message})
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
