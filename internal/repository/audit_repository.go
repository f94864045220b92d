package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lesson-planner-api/internal/models"
)

// AuditRepository appends to and reads the audit_logs table.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs an audit repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append stores an audit log entry.
func (r *AuditRepository) Append(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, event_type, action, user_id, actor_username, created_at) VALUES (:id, :event_type, :action, :user_id, :actor_username, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("append audit log: %w", translate(err))
	}
	return nil
}

// Recent returns up to limit entries, newest first, with the acting username.
// Insertion order breaks timestamp ties so the ordering is strict.
func (r *AuditRepository) Recent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	const query = `SELECT l.id, l.seq, l.event_type, l.action, l.user_id, l.actor_username, COALESCE(u.username, NULLIF(l.actor_username, '')) AS username, l.created_at
FROM audit_logs l
LEFT JOIN users u ON u.id = l.user_id
ORDER BY l.created_at DESC, l.seq DESC
LIMIT $1`
	logs := []models.AuditLog{}
	if err := r.db.SelectContext(ctx, &logs, query, limit); err != nil {
		return nil, fmt.Errorf("list recent audit logs: %w", err)
	}
	return logs, nil
}

// CountLogins counts login events, classifying legacy rows by their text.
func (r *AuditRepository) CountLogins(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM audit_logs WHERE event_type = $1 OR (event_type = '' AND action LIKE $2)`
	var total int
	if err := r.db.GetContext(ctx, &total, query, models.AuditEventLogin, models.LegacyLoginPattern()); err != nil {
		return 0, fmt.Errorf("count login events: %w", err)
	}
	return total, nil
}
