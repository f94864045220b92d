package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes the repositories translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Foreign key constraint names, as declared in the migrations.
const (
	ConstraintLessonCreator  = "lesson_plans_created_by_fkey"
	ConstraintAssignmentUser = "lesson_plan_assignments_user_id_fkey"
	ConstraintAuditUser      = "audit_logs_user_id_fkey"
)

var (
	// ErrDuplicate is returned when an insert hits a unique constraint.
	ErrDuplicate = errors.New("duplicate key")
	// ErrUnknownReference is returned when a foreign key target does not exist.
	ErrUnknownReference = errors.New("unknown reference")
)

// ReferenceError is a foreign key violation on a named constraint. It matches
// ErrUnknownReference.
type ReferenceError struct {
	Constraint string
	Err        error
}

func (e *ReferenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unknown reference (%s): %v", e.Constraint, e.Err)
	}
	return fmt.Sprintf("unknown reference (%s)", e.Constraint)
}

func (e *ReferenceError) Is(target error) bool { return target == ErrUnknownReference }

func (e *ReferenceError) Unwrap() error { return e.Err }

// ViolatesConstraint reports whether err is a foreign key violation of constraint.
func ViolatesConstraint(err error, constraint string) bool {
	var refErr *ReferenceError
	return errors.As(err, &refErr) && refErr.Constraint == constraint
}

// translate maps driver constraint violations onto repository sentinels so
// services never depend on lib/pq directly.
func translate(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case pgUniqueViolation:
		return errors.Join(ErrDuplicate, err)
	case pgForeignKeyViolation:
		return &ReferenceError{Constraint: pqErr.Constraint, Err: err}
	}
	return err
}
