package models

import (
	"strings"
	"time"
)

// AuditEventType classifies audit entries independently of their message text.
type AuditEventType string

const (
	AuditEventLogin           AuditEventType = "LOGIN"
	AuditEventUserCreated     AuditEventType = "USER_CREATED"
	AuditEventUserRemoved     AuditEventType = "USER_REMOVED"
	AuditEventPasswordChanged AuditEventType = "PASSWORD_CHANGED"
	// AuditEventLegacy marks rows imported without a structured type.
	AuditEventLegacy AuditEventType = ""
)

// legacyLoginMarker is how unstructured rows identify a login.
const legacyLoginMarker = "logged in"

// AuditLog represents an append-only audit trail record.
type AuditLog struct {
	ID            string         `db:"id" json:"id"`
	Seq           int64          `db:"seq" json:"-"`
	EventType     AuditEventType `db:"event_type" json:"event_type"`
	Action        string         `db:"action" json:"action"`
	UserID        *string        `db:"user_id" json:"user_id,omitempty"`
	ActorUsername string         `db:"actor_username" json:"-"`
	Username      *string        `db:"username" json:"username,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"timestamp"`
}

// IsLogin reports whether the entry counts as a login event.
func (l *AuditLog) IsLogin() bool {
	if l.EventType != AuditEventLegacy {
		return l.EventType == AuditEventLogin
	}
	return strings.Contains(l.Action, legacyLoginMarker)
}

// LegacyLoginPattern is the SQL LIKE pattern equivalent to IsLogin for legacy rows.
func LegacyLoginPattern() string {
	return "%" + legacyLoginMarker + "%"
}
