package models

// Section represents a scheduled, capacity-limited offering of a course.
// The enrollment core never mutates a section; it only locks the row to
// serialize seat claims.
type Section struct {
	ID           int64  `json:"id"`
	CourseID     int64  `json:"courseId"`
	InstructorID *int64 `json:"instructorId,omitempty"`
	Semester     string `json:"semester"`
	Capacity     int    `json:"capacity"`
	RoomNumber   string `json:"roomNumber"`
	Schedule     string `json:"schedule"`

	// Relations (populated when needed)
	Course     *Course `json:"course,omitempty"`
	Instructor *User   `json:"instructor,omitempty"`
}
