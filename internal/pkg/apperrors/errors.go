package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound = errors.New("resource not found")
	ErrConflict         = errors.New("conflict")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenNotFound      = errors.New("token not found")
	ErrInvalidFormat      = errors.New("invalid token format")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")

	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
)

// Course and section errors
var (
	ErrCourseNotFound      = errors.New("course not found")
	ErrCourseAlreadyExists = errors.New("course with this code already exists")
	ErrSectionNotFound     = errors.New("section not found")
)

// Enrollment errors
var (
	ErrAlreadyEnrolled  = errors.New("already enrolled in this section")
	ErrNotEnrolled      = errors.New("not enrolled in this section")
	ErrScheduleConflict = errors.New("schedule conflict with an existing enrollment")
)

// Waitlist errors
var (
	ErrAlreadyWaitlisted     = errors.New("already waitlisted for this section")
	ErrNotWaitlisted         = errors.New("not waitlisted for this section")
	ErrWaitlistEntryNotFound = errors.New("waitlist entry not found")
	ErrWaitlistEntryNotOwned = errors.New("waitlist entry belongs to another student")
)

// Contention errors
var (
	// ErrLockTimeout is surfaced after the internal retry on a section lock
	// has also timed out. The request can be safely retried by the caller.
	ErrLockTimeout = errors.New("timed out waiting for section lock")
)

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with an underlying sentinel error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// NewScheduleConflictError builds a conflict error naming the section the
// candidate enrollment collides with.
func NewScheduleConflictError(conflictingSectionID int64, conflictingCourseCode string) *CustomError {
	return NewCustomError(ErrScheduleConflict, "schedule conflict with "+conflictingCourseCode).
		WithDetails(map[string]interface{}{
			"conflictingSectionId": conflictingSectionID,
			"conflictingCourse":    conflictingCourseCode,
		})
}
