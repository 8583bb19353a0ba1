package models

import "time"

// Enrollment represents a committed seat claim. A (student, section) pair
// holds at most one enrollment, enforced by a unique constraint.
type Enrollment struct {
	ID         int64     `json:"id"`
	StudentID  int64     `json:"studentId"`
	SectionID  int64     `json:"sectionId"`
	EnrolledAt time.Time `json:"enrolledAt"`
	Grade      *string   `json:"grade,omitempty"`

	// Relations (populated when needed)
	Student *User    `json:"student,omitempty"`
	Section *Section `json:"section,omitempty"`
}
