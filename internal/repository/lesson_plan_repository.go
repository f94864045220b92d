package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lesson-planner-api/internal/models"
)

const lessonPlanColumns = `lp.id, lp.title, lp.description, lp.lesson_date, lp.start_time, lp.duration_minutes, lp.created_by, lp.created_at, lp.updated_at`

// LessonPlanRepository persists lesson plans and their user assignments.
type LessonPlanRepository struct {
	db *sqlx.DB
}

// NewLessonPlanRepository constructs a lesson plan repository.
func NewLessonPlanRepository(db *sqlx.DB) *LessonPlanRepository {
	return &LessonPlanRepository{db: db}
}

// Create inserts the lesson and its initial assignments in one transaction.
func (r *LessonPlanRepository) Create(ctx context.Context, plan *models.LessonPlan) (err error) {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create lesson plan: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO lesson_plans (id, title, description, lesson_date, start_time, duration_minutes, created_by, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err = tx.ExecContext(ctx, query, plan.ID, plan.Title, plan.Description, plan.DateString(), plan.Clock(), plan.DurationMinutes, plan.CreatedBy, plan.CreatedAt, plan.UpdatedAt); err != nil {
		return fmt.Errorf("create lesson plan: %w", translate(err))
	}

	if err = insertAssignments(ctx, tx, plan.ID, plan.AssignedUsers, now); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create lesson plan: %w", err)
	}
	return nil
}

// Patch overwrites the non-nil fields of patch and returns the stored row.
// Unset columns keep their current value under the row lock of the UPDATE.
func (r *LessonPlanRepository) Patch(ctx context.Context, id string, patch models.LessonPlanPatch) (*models.LessonPlan, error) {
	query := `UPDATE lesson_plans lp SET
title = COALESCE($2, lp.title),
description = COALESCE($3, lp.description),
lesson_date = COALESCE($4::date, lp.lesson_date),
start_time = COALESCE($5::time, lp.start_time),
duration_minutes = COALESCE($6, lp.duration_minutes),
updated_at = $7
WHERE lp.id = $1
RETURNING ` + lessonPlanColumns
	var plan models.LessonPlan
	err := r.db.GetContext(ctx, &plan, query, id, patch.Title, patch.Description, patch.Date, patch.StartTime, patch.DurationMinutes, time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("patch lesson plan: %w", err)
	}
	plans := []models.LessonPlan{plan}
	if err := r.attachAssignments(ctx, plans); err != nil {
		return nil, err
	}
	return &plans[0], nil
}

// FindByID loads a single lesson with its assignments.
func (r *LessonPlanRepository) FindByID(ctx context.Context, id string) (*models.LessonPlan, error) {
	query := `SELECT ` + lessonPlanColumns + ` FROM lesson_plans lp WHERE lp.id = $1`
	var plan models.LessonPlan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find lesson plan: %w", err)
	}
	plans := []models.LessonPlan{plan}
	if err := r.attachAssignments(ctx, plans); err != nil {
		return nil, err
	}
	return &plans[0], nil
}

// ListAll returns every lesson ordered by date then start time.
func (r *LessonPlanRepository) ListAll(ctx context.Context) ([]models.LessonPlan, error) {
	query := `SELECT ` + lessonPlanColumns + ` FROM lesson_plans lp ORDER BY lp.lesson_date ASC, lp.start_time ASC, lp.created_at ASC`
	plans := []models.LessonPlan{}
	if err := r.db.SelectContext(ctx, &plans, query); err != nil {
		return nil, fmt.Errorf("list lesson plans: %w", err)
	}
	if err := r.attachAssignments(ctx, plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// ListByUser returns lessons whose assignment set contains userID.
func (r *LessonPlanRepository) ListByUser(ctx context.Context, userID string) ([]models.LessonPlan, error) {
	query := `SELECT ` + lessonPlanColumns + ` FROM lesson_plans lp
JOIN lesson_plan_assignments a ON a.lesson_plan_id = lp.id
WHERE a.user_id = $1
ORDER BY lp.lesson_date ASC, lp.start_time ASC, lp.created_at ASC`
	plans := []models.LessonPlan{}
	if err := r.db.SelectContext(ctx, &plans, query, userID); err != nil {
		return nil, fmt.Errorf("list lesson plans by user: %w", err)
	}
	if err := r.attachAssignments(ctx, plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// ReplaceAssignments swaps the assignment set of a lesson atomically.
func (r *LessonPlanRepository) ReplaceAssignments(ctx context.Context, lessonID string, userIDs []string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace assignments: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	if err = tx.GetContext(ctx, &exists, `SELECT 1 FROM lesson_plans WHERE id = $1 FOR UPDATE`, lessonID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("lock lesson plan: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM lesson_plan_assignments WHERE lesson_plan_id = $1`, lessonID); err != nil {
		return fmt.Errorf("clear assignments: %w", err)
	}

	if err = insertAssignments(ctx, tx, lessonID, userIDs, time.Now().UTC()); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE lesson_plans SET updated_at = $2 WHERE id = $1`, lessonID, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch lesson plan: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace assignments: %w", err)
	}
	return nil
}

// Count returns the number of stored lessons.
func (r *LessonPlanRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM lesson_plans`); err != nil {
		return 0, fmt.Errorf("count lesson plans: %w", err)
	}
	return total, nil
}

func insertAssignments(ctx context.Context, exec sqlx.ExecerContext, lessonID string, userIDs []string, at time.Time) error {
	for _, userID := range userIDs {
		const query = `INSERT INTO lesson_plan_assignments (lesson_plan_id, user_id, assigned_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
		if _, err := exec.ExecContext(ctx, query, lessonID, userID, at); err != nil {
			return fmt.Errorf("assign user %s: %w", userID, translate(err))
		}
	}
	return nil
}

type assignmentRow struct {
	LessonPlanID string `db:"lesson_plan_id"`
	UserID       string `db:"user_id"`
}

func (r *LessonPlanRepository) attachAssignments(ctx context.Context, plans []models.LessonPlan) error {
	if len(plans) == 0 {
		return nil
	}
	ids := make([]string, len(plans))
	index := make(map[string]int, len(plans))
	for i := range plans {
		ids[i] = plans[i].ID
		index[plans[i].ID] = i
		plans[i].AssignedUsers = []string{}
	}

	const query = `SELECT lesson_plan_id, user_id FROM lesson_plan_assignments WHERE lesson_plan_id = ANY($1) ORDER BY assigned_at ASC, user_id ASC`
	var rows []assignmentRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load lesson assignments: %w", err)
	}
	for _, row := range rows {
		if i, ok := index[row.LessonPlanID]; ok {
			plans[i].AssignedUsers = append(plans[i].AssignedUsers, row.UserID)
		}
	}
	return nil
}
