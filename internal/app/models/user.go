package models

import "time"

// User represents an account that can authenticate against the API.
// Students enroll in sections; instructors own sections.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	RoleType  RoleType  `json:"roleType"`
	CreatedAt time.Time `json:"createdAt"`
}

// FullName returns the display name used in notifications.
func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Email
	}
	return u.FirstName + " " + u.LastName
}
