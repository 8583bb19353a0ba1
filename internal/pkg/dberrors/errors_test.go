package dberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsDuplicateConstraintError(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", ConstraintName: "enrollments_student_id_section_id_key"}

	assert.True(t, IsDuplicateConstraintError(err, "enrollments_student_id_section_id_key"))
	assert.False(t, IsDuplicateConstraintError(err, "users_email_key"))
	assert.False(t, IsDuplicateConstraintError(errors.New("plain"), "users_email_key"))
}

func TestIsDuplicateConstraintErrorUnwrapsWrappedErrors(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	wrapped := fmt.Errorf("error creating user: %w", pgErr)

	assert.True(t, IsDuplicateConstraintError(wrapped, "users_email_key"))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsLockNotAvailable(t *testing.T) {
	assert.True(t, IsLockNotAvailable(&pgconn.PgError{Code: "55P03"}))
	assert.False(t, IsLockNotAvailable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsLockNotAvailable(errors.New("lock timeout")))
}
