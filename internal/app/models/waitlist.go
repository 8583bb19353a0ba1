package models

import "time"

// WaitlistEntry represents a student waiting for a seat in a section.
// FIFO order is defined by JoinedAt with the id as a deterministic tie-break.
// A student never holds both an enrollment and a waitlist entry for the same
// section; entries leave the queue by promotion, voluntary leave, or a
// conflict skip, and never return.
type WaitlistEntry struct {
	ID        int64     `json:"id"`
	StudentID int64     `json:"studentId"`
	SectionID int64     `json:"sectionId"`
	JoinedAt  time.Time `json:"joinedAt"`
	Notified  bool      `json:"notified"`

	// Relations (populated when needed)
	Student *User    `json:"student,omitempty"`
	Section *Section `json:"section,omitempty"`
}
