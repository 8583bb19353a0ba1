package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/okaya/courseregistry/internal/app/models/dto"
	"github.com/okaya/courseregistry/internal/app/services"
	"github.com/okaya/courseregistry/internal/middleware"
	"github.com/okaya/courseregistry/internal/pkg/apperrors"
	"github.com/okaya/courseregistry/internal/pkg/logger"
)

// EnrollmentController handles enrollment and waitlist operations
type EnrollmentController struct {
	enrollmentService *services.EnrollmentService
	logger            zerolog.Logger
}

// NewEnrollmentController creates a new EnrollmentController
func NewEnrollmentController(enrollmentService *services.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{
		enrollmentService: enrollmentService,
		logger:            logger.With().Str("controller", "enrollment").Logger(),
	}
}

// Enroll claims a seat or joins the waitlist
// @Summary Enroll in a section
// @Description Claims a seat in the section, or joins the waitlist when the section is full
// @Tags enrollments
// @Accept json
// @Produce json
// @Param request body dto.EnrollRequest true "Target section"
// @Success 201 {object} dto.APIResponse{data=dto.EnrollmentOutcomeResponse} "Enrolled"
// @Success 200 {object} dto.APIResponse{data=dto.EnrollmentOutcomeResponse} "Waitlisted"
// @Failure 404 {object} dto.ErrorResponse "Section not found"
// @Failure 409 {object} dto.ErrorResponse "Already enrolled, already waitlisted, or schedule conflict"
// @Failure 503 {object} dto.ErrorResponse "Section lock timed out"
// @Security BearerAuth
// @Router /enrollments [post]
func (c *EnrollmentController) Enroll(ctx *gin.Context) {
	studentID, ok := middleware.UserID(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrPermissionDenied)
		return
	}

	var req dto.EnrollRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	outcome, err := c.enrollmentService.Enroll(ctx, studentID, req.SectionID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if outcome.Enrolled {
		ctx.JSON(http.StatusCreated, dto.NewAPIResponse(dto.EnrollmentOutcomeResponse{
			Status:     dto.EnrollmentStatusEnrolled,
			Enrollment: outcome.Enrollment,
		}))
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.EnrollmentOutcomeResponse{
		Status:   dto.EnrollmentStatusWaitlisted,
		Position: outcome.Position,
	}))
}

// Drop releases a seat
// @Summary Drop an enrollment
// @Description Drops the caller's enrollment and triggers waitlist promotion for the freed seat
// @Tags enrollments
// @Produce json
// @Param sectionId path int true "Section ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Not enrolled in this section"
// @Failure 503 {object} dto.ErrorResponse "Section lock timed out"
// @Security BearerAuth
// @Router /enrollments/{sectionId} [delete]
func (c *EnrollmentController) Drop(ctx *gin.Context) {
	studentID, ok := middleware.UserID(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrPermissionDenied)
		return
	}

	sectionID, err := pathID(ctx, "sectionId")
	if err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	if err := c.enrollmentService.Drop(ctx, studentID, sectionID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.SuccessResponse{Message: "Enrollment dropped"}))
}

// MyEnrollments lists the caller's enrollments
// @Summary List my enrollments
// @Tags enrollments
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Security BearerAuth
// @Router /enrollments [get]
func (c *EnrollmentController) MyEnrollments(ctx *gin.Context) {
	studentID, ok := middleware.UserID(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrPermissionDenied)
		return
	}

	enrollments, err := c.enrollmentService.MyEnrollments(ctx, studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(enrollments))
}

// Position reports the caller's waitlist position for a section
// @Summary Get my waitlist position
// @Tags waitlists
// @Produce json
// @Param sectionId query int true "Section ID"
// @Success 200 {object} dto.APIResponse{data=dto.WaitlistPositionResponse}
// @Failure 404 {object} dto.ErrorResponse "Not waitlisted for this section"
// @Security BearerAuth
// @Router /waitlists/position [get]
func (c *EnrollmentController) Position(ctx *gin.Context) {
	studentID, ok := middleware.UserID(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrPermissionDenied)
		return
	}

	sectionID, err := strconv.ParseInt(ctx.Query("sectionId"), 10, 64)
	if err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	entry, position, err := c.enrollmentService.Position(ctx, studentID, sectionID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.WaitlistPositionResponse{
		SectionID: sectionID,
		EntryID:   entry.ID,
		Position:  position,
	}))
}

// LeaveWaitlist removes the caller's waitlist entry
// @Summary Leave a waitlist
// @Tags waitlists
// @Produce json
// @Param id path int true "Waitlist entry ID"
// @Success 200 {object} dto.APIResponse
// @Failure 403 {object} dto.ErrorResponse "Entry belongs to another student"
// @Failure 404 {object} dto.ErrorResponse "Waitlist entry not found"
// @Security BearerAuth
// @Router /waitlists/{id} [delete]
func (c *EnrollmentController) LeaveWaitlist(ctx *gin.Context) {
	studentID, ok := middleware.UserID(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrPermissionDenied)
		return
	}

	entryID, err := pathID(ctx, "id")
	if err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	if err := c.enrollmentService.LeaveWaitlist(ctx, studentID, entryID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.SuccessResponse{Message: "Left waitlist"}))
}

// MyWaitlists lists the caller's waitlist entries
// @Summary List my waitlist entries
// @Tags waitlists
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Security BearerAuth
// @Router /waitlists [get]
func (c *EnrollmentController) MyWaitlists(ctx *gin.Context) {
	studentID, ok := middleware.UserID(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrPermissionDenied)
		return
	}

	entries, err := c.enrollmentService.MyWaitlists(ctx, studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(entries))
}
