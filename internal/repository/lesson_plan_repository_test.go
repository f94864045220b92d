package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-planner-api/internal/models"
)

var lessonRowColumns = []string{"id", "title", "description", "lesson_date", "start_time", "duration_minutes", "created_by", "created_at", "updated_at"}

func TestCreateLessonPlanWithAssignments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLessonPlanRepository(db)

	date, err := models.ParseDate("2024-06-01")
	require.NoError(t, err)
	plan := &models.LessonPlan{
		Title:           "Algebra",
		Date:            date,
		StartTime:       "09:00",
		DurationMinutes: 60,
		AssignedUsers:   []string{"u1", "u2"},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lesson_plans").
		WithArgs(sqlmock.AnyArg(), "Algebra", "", "2024-06-01", "09:00", 60, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO lesson_plan_assignments").
		WithArgs(sqlmock.AnyArg(), "u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO lesson_plan_assignments").
		WithArgs(sqlmock.AnyArg(), "u2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), plan))
	assert.NotEmpty(t, plan.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLessonPlanUnknownAssigneeRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLessonPlanRepository(db)

	date, _ := models.ParseDate("2024-06-01")
	plan := &models.LessonPlan{Title: "Algebra", Date: date, StartTime: "09:00", DurationMinutes: 60, AssignedUsers: []string{"ghost"}}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lesson_plans").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO lesson_plan_assignments").
		WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), plan)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownReference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindLessonPlanByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLessonPlanRepository(db)

	now := time.Now()
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM lesson_plans lp WHERE lp.id = $1")).
		WithArgs("l1").
		WillReturnRows(sqlmock.NewRows(lessonRowColumns).AddRow("l1", "Algebra", "", date, "09:00:00", 60, "u1", now, now))
	mock.ExpectQuery("FROM lesson_plan_assignments WHERE lesson_plan_id = ANY").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"lesson_plan_id", "user_id"}).AddRow("l1", "u2"))

	plan, err := repo.FindByID(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, "09:00", plan.Clock())
	assert.Equal(t, []string{"u2"}, plan.AssignedUsers)
	assert.Equal(t, "2024-06-01T10:00:00", plan.End().Format(models.MomentLayout))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindLessonPlanMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLessonPlanRepository(db)

	mock.ExpectQuery("FROM lesson_plans lp WHERE lp.id").
		WillReturnRows(sqlmock.NewRows(lessonRowColumns))

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAllLessonPlansEmptySkipsAssignments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLessonPlanRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY lp.lesson_date ASC, lp.start_time ASC, lp.created_at ASC")).
		WillReturnRows(sqlmock.NewRows(lessonRowColumns))

	plans, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plans)
	assert.NotNil(t, plans)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListLessonPlansByUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLessonPlanRepository(db)

	now := time.Now()
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("JOIN lesson_plan_assignments a ON a.lesson_plan_id = lp.id").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(lessonRowColumns).
			AddRow("l1", "Algebra", "", date, "09:00:00", 60, nil, now, now).
			AddRow("l2", "Biology", "", date, "11:00:00", 45, nil, now, now))
	mock.ExpectQuery("FROM lesson_plan_assignments").
		WillReturnRows(sqlmock.NewRows([]string{"lesson_plan_id", "user_id"}).
			AddRow("l1", "u1").
			AddRow("l2", "u1").
			AddRow("l2", "u3"))

	plans, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, []string{"u1"}, plans[0].AssignedUsers)
	assert.Equal(t, []string{"u1", "u3"}, plans[1].AssignedUsers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAssignments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLessonPlanRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM lesson_plans WHERE id = $1 FOR UPDATE")).
		WithArgs("l1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM lesson_plan_assignments WHERE lesson_plan_id = $1")).
		WithArgs("l1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO lesson_plan_assignments").
		WithArgs("l1", "u9", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE lesson_plans SET updated_at").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceAssignments(context.Background(), "l1", []string{"u9"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAssignmentsMissingLesson(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLessonPlanRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectRollback()

	err := repo.ReplaceAssignments(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatchLessonPlanOnlyTouchesProvidedFields(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLessonPlanRepository(db)

	now := time.Now()
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	title := "Geometry"
	mock.ExpectQuery(regexp.QuoteMeta("title = COALESCE($2, lp.title)")).
		WithArgs("l1", "Geometry", nil, nil, nil, nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(lessonRowColumns).AddRow("l1", "Geometry", "Shapes", date, "09:00:30", 60, nil, now, now))
	mock.ExpectQuery("FROM lesson_plan_assignments WHERE lesson_plan_id = ANY").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"lesson_plan_id", "user_id"}))

	plan, err := repo.Patch(context.Background(), "l1", models.LessonPlanPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Geometry", plan.Title)
	assert.Equal(t, "Shapes", plan.Description)
	assert.Equal(t, "2024-06-01T10:00:30", plan.End().Format(models.MomentLayout))
	assert.Empty(t, plan.AssignedUsers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatchLessonPlanNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLessonPlanRepository(db)

	duration := 30
	mock.ExpectQuery("UPDATE lesson_plans lp SET").
		WithArgs("missing", nil, nil, nil, nil, 30, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(lessonRowColumns))

	_, err := repo.Patch(context.Background(), "missing", models.LessonPlanPatch{DurationMinutes: &duration})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLessonPlanMissingCreatorNamesConstraint(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLessonPlanRepository(db)

	date, _ := models.ParseDate("2024-06-01")
	creator := "gone"
	plan := &models.LessonPlan{Title: "Algebra", Date: date, StartTime: "09:00", DurationMinutes: 60, CreatedBy: &creator}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lesson_plans").
		WillReturnError(&pq.Error{Code: "23503", Constraint: ConstraintLessonCreator})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), plan)
	assert.ErrorIs(t, err, ErrUnknownReference)
	assert.True(t, ViolatesConstraint(err, ConstraintLessonCreator))
	assert.False(t, ViolatesConstraint(err, ConstraintAssignmentUser))
	assert.NoError(t, mock.ExpectationsWereMet())
}
