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

// SectionController handles section management and availability queries
type SectionController struct {
	sectionService *services.SectionService
	logger         zerolog.Logger
}

// NewSectionController creates a new SectionController
func NewSectionController(sectionService *services.SectionService) *SectionController {
	return &SectionController{
		sectionService: sectionService,
		logger:         logger.With().Str("controller", "section").Logger(),
	}
}

// Create adds a section
// @Summary Create a section
// @Tags sections
// @Accept json
// @Produce json
// @Param request body dto.CreateSectionRequest true "Section information"
// @Success 201 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Security BearerAuth
// @Router /sections [post]
func (c *SectionController) Create(ctx *gin.Context) {
	instructorID, ok := middleware.UserID(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrPermissionDenied)
		return
	}

	var req dto.CreateSectionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	section, err := c.sectionService.Create(ctx, instructorID, req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewAPIResponse(section))
}

// Update edits a section
// @Summary Update a section
// @Tags sections
// @Accept json
// @Produce json
// @Param id path int true "Section ID"
// @Param request body dto.UpdateSectionRequest true "Section information"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Section not found"
// @Security BearerAuth
// @Router /sections/{id} [put]
func (c *SectionController) Update(ctx *gin.Context) {
	id, err := pathID(ctx, "id")
	if err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	var req dto.UpdateSectionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	section, err := c.sectionService.Update(ctx, id, req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(section))
}

// GetAll lists sections with availability
// @Summary List sections
// @Description Lists sections, optionally filtered by course, with live seat availability
// @Tags sections
// @Produce json
// @Param courseId query int false "Filter by course ID"
// @Success 200 {object} dto.APIResponse
// @Router /sections [get]
func (c *SectionController) GetAll(ctx *gin.Context) {
	var courseID int64
	if raw := ctx.Query("courseId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			middleware.HandleValidationError(ctx, err)
			return
		}
		courseID = parsed
	}

	sections, err := c.sectionService.GetAll(ctx, courseID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(sections))
}

// GetByID returns one section with availability
// @Summary Get a section
// @Tags sections
// @Produce json
// @Param id path int true "Section ID"
// @Success 200 {object} dto.APIResponse{data=dto.SectionResponse}
// @Failure 404 {object} dto.ErrorResponse "Section not found"
// @Router /sections/{id} [get]
func (c *SectionController) GetByID(ctx *gin.Context) {
	id, err := pathID(ctx, "id")
	if err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	section, err := c.sectionService.GetByID(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(section))
}
