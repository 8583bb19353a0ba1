package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/okaya/courseregistry/internal/app/controllers"
	"github.com/okaya/courseregistry/internal/app/models"
	"github.com/okaya/courseregistry/internal/middleware"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	courseController *controllers.CourseController,
	sectionController *controllers.SectionController,
	enrollmentController *controllers.EnrollmentController,
	authMiddleware *middleware.AuthMiddleware,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
		auth.POST("/refresh", authController.RefreshToken)
	}

	// --- Public catalog routes ---
	courses := v1.Group("/courses")
	{
		courses.GET("", courseController.GetAll)
		courses.GET("/:id", courseController.GetByID)
	}

	sections := v1.Group("/sections")
	{
		sections.GET("", sectionController.GetAll)
		sections.GET("/:id", sectionController.GetByID)
	}

	// --- Authenticated routes ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	// Catalog management (instructors only)
	instructorOnly := authenticated.Group("")
	instructorOnly.Use(authMiddleware.RoleRequired(models.RoleInstructor))
	{
		instructorOnly.POST("/courses", courseController.Create)
		instructorOnly.POST("/sections", sectionController.Create)
		instructorOnly.PUT("/sections/:id", sectionController.Update)
	}

	// Enrollment and waitlist (students only)
	studentOnly := authenticated.Group("")
	studentOnly.Use(authMiddleware.RoleRequired(models.RoleStudent))
	{
		studentOnly.POST("/enrollments", enrollmentController.Enroll)
		studentOnly.GET("/enrollments", enrollmentController.MyEnrollments)
		studentOnly.DELETE("/enrollments/:sectionId", enrollmentController.Drop)

		studentOnly.GET("/waitlists", enrollmentController.MyWaitlists)
		studentOnly.GET("/waitlists/position", enrollmentController.Position)
		studentOnly.DELETE("/waitlists/:id", enrollmentController.LeaveWaitlist)
	}
}
