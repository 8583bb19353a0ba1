package dto

import "github.com/okaya/courseregistry/internal/app/models"

// CreateSectionRequest is the instructor payload for adding a section.
type CreateSectionRequest struct {
	CourseID   int64  `json:"courseId" binding:"required,min=1"`
	Semester   string `json:"semester" binding:"required" example:"Fall 2025"`
	Capacity   int    `json:"capacity" binding:"min=0" example:"30"`
	RoomNumber string `json:"roomNumber" example:"B-204"`
	Schedule   string `json:"schedule" example:"Mon/Wed 10:00-11:30"`
}

// UpdateSectionRequest is the instructor payload for editing a section.
type UpdateSectionRequest struct {
	Semester   string `json:"semester" binding:"required"`
	Capacity   int    `json:"capacity" binding:"min=0"`
	RoomNumber string `json:"roomNumber"`
	Schedule   string `json:"schedule"`
}

// SectionAvailability summarizes live seat usage for a section.
type SectionAvailability struct {
	Enrolled   int `json:"enrolled"`
	SeatsLeft  int `json:"seatsLeft"`
	Waitlisted int `json:"waitlisted"`
}

// SectionResponse is a section together with its live availability.
type SectionResponse struct {
	Section      *models.Section      `json:"section"`
	Availability *SectionAvailability `json:"availability,omitempty"`
}
