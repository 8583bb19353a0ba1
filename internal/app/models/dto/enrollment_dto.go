package dto

import "github.com/okaya/courseregistry/internal/app/models"

// Enrollment outcome statuses returned by POST /enrollments.
const (
	EnrollmentStatusEnrolled   = "enrolled"
	EnrollmentStatusWaitlisted = "waitlisted"
)

// EnrollRequest is the payload for claiming a seat in a section.
type EnrollRequest struct {
	SectionID int64 `json:"sectionId" binding:"required,min=1" example:"42"`
}

// EnrollmentOutcomeResponse reports the single committed outcome of an
// enroll request: either a seat was claimed or the student joined the
// waitlist at the reported position.
type EnrollmentOutcomeResponse struct {
	Status     string             `json:"status" enums:"enrolled,waitlisted"`
	Enrollment *models.Enrollment `json:"enrollment,omitempty"`
	Position   int                `json:"position,omitempty" example:"3"`
}

// WaitlistPositionResponse reports a student's 1-indexed queue position.
type WaitlistPositionResponse struct {
	SectionID int64 `json:"sectionId"`
	EntryID   int64 `json:"entryId"`
	Position  int   `json:"position" example:"1"`
}
