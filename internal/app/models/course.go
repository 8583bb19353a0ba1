package models

// Course represents a course in the catalog. Offerings of a course are
// modeled as sections.
type Course struct {
	ID          int64   `json:"id"`
	Code        string  `json:"code"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Credits     int     `json:"credits"`
}
