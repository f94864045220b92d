package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-planner-api/internal/models"
)

func TestAppendAuditLog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditLog{EventType: models.AuditEventLogin, Action: "User admin logged in", ActorUsername: "admin"}
	require.NoError(t, repo.Append(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendAuditLogRemovedUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnError(&pq.Error{Code: "23503", Constraint: ConstraintAuditUser})

	userID := "gone"
	err := repo.Append(context.Background(), &models.AuditLog{EventType: models.AuditEventUserCreated, Action: "Admin gone created user bob", UserID: &userID})
	assert.True(t, ViolatesConstraint(err, ConstraintAuditUser))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentAuditLogs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "seq", "event_type", "action", "user_id", "actor_username", "username", "created_at"}).
		AddRow("a2", 2, "USER_CREATED", "Admin admin created user bob", "u1", "admin", "admin", now).
		AddRow("a1", 1, "", "User ghost logged in", nil, "", nil, now.Add(-time.Minute))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY l.created_at DESC, l.seq DESC")).
		WithArgs(100).
		WillReturnRows(rows)

	logs, err := repo.Recent(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.NotNil(t, logs[0].Username)
	assert.Equal(t, "admin", *logs[0].Username)
	assert.Nil(t, logs[1].Username)
	assert.True(t, logs[1].IsLogin())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountLogins(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_logs WHERE event_type = $1 OR (event_type = '' AND action LIKE $2)")).
		WithArgs(models.AuditEventLogin, "%logged in%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	total, err := repo.CountLogins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
