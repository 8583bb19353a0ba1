package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/okaya/courseregistry/internal/app/models/dto"
	"github.com/okaya/courseregistry/internal/pkg/apperrors"
)

// HandleAPIError maps service errors onto the standard error envelope.
// Controllers call this for every non-nil service error so the status codes
// stay consistent across endpoints.
func HandleAPIError(c *gin.Context, err error) {
	var custom *apperrors.CustomError
	var details map[string]interface{}
	if errors.As(err, &custom) {
		details = custom.Details
	}

	respond := func(status int, code dto.ErrorCode, message string) {
		errorDetail := dto.NewErrorDetail(code, message)
		if details != nil {
			errorDetail = errorDetail.WithDetails(details)
		}
		c.JSON(status, dto.NewErrorResponse(errorDetail))
	}

	switch {
	case errors.Is(err, apperrors.ErrAlreadyEnrolled):
		respond(http.StatusConflict, dto.ErrorCodeAlreadyEnrolled, "Already enrolled in this section")
	case errors.Is(err, apperrors.ErrAlreadyWaitlisted):
		respond(http.StatusConflict, dto.ErrorCodeAlreadyWaitlisted, "Already waitlisted for this section")
	case errors.Is(err, apperrors.ErrScheduleConflict):
		respond(http.StatusConflict, dto.ErrorCodeScheduleConflict, "Schedule conflict with an existing enrollment")
	case errors.Is(err, apperrors.ErrNotEnrolled):
		respond(http.StatusNotFound, dto.ErrorCodeNotEnrolled, "Not enrolled in this section")
	case errors.Is(err, apperrors.ErrNotWaitlisted):
		respond(http.StatusNotFound, dto.ErrorCodeNotWaitlisted, "Not waitlisted for this section")
	case errors.Is(err, apperrors.ErrWaitlistEntryNotFound):
		respond(http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Waitlist entry not found")
	case errors.Is(err, apperrors.ErrWaitlistEntryNotOwned):
		respond(http.StatusForbidden, dto.ErrorCodeForbidden, "Waitlist entry belongs to another student")
	case errors.Is(err, apperrors.ErrSectionNotFound):
		respond(http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Section not found")
	case errors.Is(err, apperrors.ErrCourseNotFound):
		respond(http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Course not found")
	case errors.Is(err, apperrors.ErrUserNotFound):
		respond(http.StatusNotFound, dto.ErrorCodeResourceNotFound, "User not found")
	case errors.Is(err, apperrors.ErrResourceNotFound):
		respond(http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found")
	case errors.Is(err, apperrors.ErrLockTimeout):
		respond(http.StatusServiceUnavailable, dto.ErrorCodeServiceUnavailable,
			"Section is busy, please retry")
	case errors.Is(err, apperrors.ErrEmailAlreadyExists):
		respond(http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Email already exists")
	case errors.Is(err, apperrors.ErrCourseAlreadyExists):
		respond(http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Course with this code already exists")
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		respond(http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials")
	case errors.Is(err, apperrors.ErrTokenExpired):
		respond(http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired")
	case errors.Is(err, apperrors.ErrTokenInvalid), errors.Is(err, apperrors.ErrTokenNotFound):
		respond(http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token")
	case errors.Is(err, apperrors.ErrPermissionDenied):
		respond(http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied")
	case errors.Is(err, apperrors.ErrValidationFailed), errors.Is(err, apperrors.ErrBadRequest):
		respond(http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed")
	default:
		respond(http.StatusInternalServerError, dto.ErrorCodeInternalServer, "Internal server error")
	}
}

// HandleValidationError reports a request-binding failure.
func HandleValidationError(c *gin.Context, err error) {
	errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Validation failed").
		WithDetails(err.Error())
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
}
