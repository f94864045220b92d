package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	"github.com/noah-isme/lesson-planner-api/internal/repository"
)

// provisioningActor names the actor of audit entries written during bootstrap.
const provisioningActor = "system"

type bootstrapRepository interface {
	Count(ctx context.Context, role *models.UserRole) (int, error)
	Create(ctx context.Context, user *models.User) error
}

// BootstrapParams describes the first-run administrator.
type BootstrapParams struct {
	Username string
	Password string
	Email    string
	// GeneratePassword allows a random password when Password is empty.
	GeneratePassword bool
}

// BootstrapService provisions the first administrator account.
type BootstrapService struct {
	repo       bootstrapRepository
	audit      AuditRecorder
	logger     *zap.Logger
	bcryptCost int
}

// NewBootstrapService constructs a BootstrapService.
func NewBootstrapService(repo bootstrapRepository, audit AuditRecorder, logger *zap.Logger, bcryptCost int) *BootstrapService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &BootstrapService{repo: repo, audit: audit, logger: logger, bcryptCost: bcryptCost}
}

// EnsureAdmin creates an admin when none exists. It reports whether an
// account was created.
func (s *BootstrapService) EnsureAdmin(ctx context.Context, params BootstrapParams) (bool, error) {
	role := models.RoleAdmin
	admins, err := s.repo.Count(ctx, &role)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if admins > 0 {
		s.logger.Debug("admin account present, skipping provisioning", zap.Int("admins", admins))
		return false, nil
	}

	if params.Username == "" {
		return false, errors.New("ADMIN_BOOTSTRAP_USERNAME must not be empty")
	}

	password := params.Password
	generated := false
	if password == "" {
		if !params.GeneratePassword {
			return false, errors.New("ADMIN_BOOTSTRAP_PASSWORD is required to provision the first admin")
		}
		password, err = randomPassword()
		if err != nil {
			return false, fmt.Errorf("generate admin password: %w", err)
		}
		generated = true
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	user := &models.User{Username: params.Username, PasswordHash: string(hash), Role: models.RoleAdmin}
	if params.Email != "" {
		email := params.Email
		user.Email = &email
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.logger.Warn("bootstrap username already taken by a non-admin account", zap.String("username", params.Username))
			return false, fmt.Errorf("provision admin %q: username exists without admin role", params.Username)
		}
		return false, fmt.Errorf("provision admin: %w", err)
	}

	fields := []zap.Field{zap.String("username", user.Username), zap.String("id", user.ID)}
	if generated {
		fields = append(fields, zap.String("password", password))
		s.logger.Warn("provisioned admin with generated password; change it after first login", fields...)
	} else {
		s.logger.Info("provisioned admin account", fields...)
	}

	recordAudit(ctx, s.audit, s.logger, models.AuditEventUserCreated, fmt.Sprintf("Admin %s created user %s", provisioningActor, user.Username), nil, provisioningActor)
	return true, nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
