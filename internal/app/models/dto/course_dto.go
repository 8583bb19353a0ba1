package dto

// CreateCourseRequest is the instructor payload for adding a catalog course.
type CreateCourseRequest struct {
	Code        string  `json:"code" binding:"required" example:"CS101"`
	Title       string  `json:"title" binding:"required" example:"Introduction to Computer Science"`
	Description *string `json:"description,omitempty"`
	Credits     int     `json:"credits" binding:"min=0" example:"3"`
}
