package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	"github.com/noah-isme/lesson-planner-api/internal/repository"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context) ([]models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Remove(ctx context.Context, id string) error
}

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Username string          `json:"username" validate:"required,min=3,max=64,trimmed"`
	Password string          `json:"password" validate:"required,min=6"`
	Role     models.UserRole `json:"role" validate:"required,oneof=admin editor viewer"`
	Email    string          `json:"email" validate:"omitempty,email"`
}

// UserService handles credential store workflows.
type UserService struct {
	repo       userRepository
	audit      AuditRecorder
	cache      *CacheService
	validator  *validator.Validate
	logger     *zap.Logger
	bcryptCost int
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, audit AuditRecorder, cache *CacheService, validate *validator.Validate, logger *zap.Logger, bcryptCost int) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{repo: repo, audit: audit, cache: cache, validator: validate, logger: logger, bcryptCost: bcryptCost}
}

// List returns every user; password hashes never leave the model.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeFailure(err, "failed to list users")
	}
	return users, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, storeFailure(err, "failed to load user")
	}
	return user, nil
}

// Create adds a new user. Usernames are stored exactly as given. Concurrent
// creates of the same username race on the unique constraint and exactly one wins.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest, actor models.UserInfo) (*models.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid create user payload")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: string(passwordHash),
		Role:         req.Role,
	}
	if req.Email != "" {
		email := strings.ToLower(req.Email)
		user.Email = &email
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Wrap(err, appErrors.ErrDuplicateUsername.Code, appErrors.ErrDuplicateUsername.Status, appErrors.ErrDuplicateUsername.Message)
		}
		return nil, storeFailure(err, "failed to create user")
	}
	s.cache.Invalidate(ctx, dashboardCacheKey)

	recordAudit(ctx, s.audit, s.logger, models.AuditEventUserCreated, fmt.Sprintf("Admin %s created user %s", actor.Username, user.Username), actorID(actor), actor.Username)
	return user, nil
}

// Remove hard deletes a user. Admins cannot remove themselves.
func (s *UserService) Remove(ctx context.Context, id string, actor models.UserInfo) error {
	if id == actor.ID {
		return appErrors.WithFields(appErrors.Clone(appErrors.ErrValidation, "cannot remove your own account"), map[string]string{"id": "must not be the caller"})
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Remove(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return storeFailure(err, "failed to remove user")
	}
	// Assignments of the removed user cascade away in the store.
	s.cache.Invalidate(ctx, lessonCachePattern)
	s.cache.Invalidate(ctx, dashboardCacheKey)

	recordAudit(ctx, s.audit, s.logger, models.AuditEventUserRemoved, fmt.Sprintf("Admin %s removed user %s", actor.Username, user.Username), actorID(actor), actor.Username)
	return nil
}

func actorID(actor models.UserInfo) *string {
	if actor.ID == "" {
		return nil
	}
	id := actor.ID
	return &id
}
