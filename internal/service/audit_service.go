package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	"github.com/noah-isme/lesson-planner-api/internal/repository"
)

// DefaultRecentAuditLimit is used when a caller does not ask for a size.
const DefaultRecentAuditLimit = 10

type auditRepository interface {
	Append(ctx context.Context, log *models.AuditLog) error
	Recent(ctx context.Context, limit int) ([]models.AuditLog, error)
	CountLogins(ctx context.Context) (int, error)
}

// AuditRecorder appends audit entries on behalf of other services.
type AuditRecorder interface {
	Append(ctx context.Context, eventType models.AuditEventType, action string, userID *string, actor string) (*models.AuditLog, error)
}

// AuditService is the append-only audit trail.
type AuditService struct {
	repo     auditRepository
	metrics  *MetricsService
	logger   *zap.Logger
	maxLimit int
}

// NewAuditService constructs an AuditService. maxLimit caps Recent.
func NewAuditService(repo auditRepository, metrics *MetricsService, logger *zap.Logger, maxLimit int) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLimit <= 0 {
		maxLimit = 100
	}
	return &AuditService{repo: repo, metrics: metrics, logger: logger, maxLimit: maxLimit}
}

// Append stores one entry. actor is kept as a snapshot so the row stays
// readable after the user is removed. An entry whose user has already been
// removed is stored without the user reference.
func (s *AuditService) Append(ctx context.Context, eventType models.AuditEventType, action string, userID *string, actor string) (*models.AuditLog, error) {
	entry := &models.AuditLog{
		EventType:     eventType,
		Action:        action,
		UserID:        userID,
		ActorUsername: actor,
	}
	err := s.repo.Append(ctx, entry)
	if err != nil && entry.UserID != nil && repository.ViolatesConstraint(err, repository.ConstraintAuditUser) {
		s.logger.Warn("audit actor no longer exists, recording without user reference",
			zap.String("user_id", *entry.UserID), zap.String("actor", actor))
		entry.UserID = nil
		err = s.repo.Append(ctx, entry)
	}
	if err != nil {
		s.metrics.RecordAuditFailure()
		return nil, storeFailure(err, "failed to append audit log")
	}
	if actor != "" {
		entry.Username = &entry.ActorUsername
	}
	return entry, nil
}

// Recent returns up to limit entries, newest first.
func (s *AuditService) Recent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = DefaultRecentAuditLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	logs, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, storeFailure(err, "failed to load audit logs")
	}
	return logs, nil
}

// CountLogins returns the number of login events recorded.
func (s *AuditService) CountLogins(ctx context.Context) (int, error) {
	total, err := s.repo.CountLogins(ctx)
	if err != nil {
		return 0, storeFailure(err, "failed to count logins")
	}
	return total, nil
}

// MaxLimit is the largest page Recent will return.
func (s *AuditService) MaxLimit() int {
	return s.maxLimit
}

// recordAudit appends an entry and only logs failures; the primary operation
// has already succeeded by the time it runs.
func recordAudit(ctx context.Context, audit AuditRecorder, logger *zap.Logger, eventType models.AuditEventType, action string, userID *string, actor string) {
	if audit == nil {
		return
	}
	if _, err := audit.Append(ctx, eventType, action, userID, actor); err != nil {
		logger.Warn("failed to record audit log", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
