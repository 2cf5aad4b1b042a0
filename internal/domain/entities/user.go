package entities

import (
	"time"
)

// Role is the kind of account a user holds
type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTutor
}

// User represents a student or tutor account.
// Courses and Availability are only meaningful for tutors.
type User struct {
	ID           string    `json:"id" db:"id"`
	FirstName    string    `json:"firstName" db:"first_name"`
	LastName     string    `json:"lastName" db:"last_name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	Courses      []string  `json:"courses"`
	Availability []Slot    `json:"availability"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// IsTutor reports whether the user holds the tutor role
func (u *User) IsTutor() bool {
	return u.Role == RoleTutor
}

// IsStudent reports whether the user holds the student role
func (u *User) IsStudent() bool {
	return u.Role == RoleStudent
}

// FullName returns "First Last"
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// HasCourse reports whether course is in the user's course list (exact match)
func (u *User) HasCourse(course string) bool {
	for _, c := range u.Courses {
		if c == course {
			return true
		}
	}
	return false
}

// FindSlot returns the availability entry exactly matching day, start and end
func (u *User) FindSlot(day, startTime, endTime string) (Slot, bool) {
	for _, s := range u.Availability {
		if s.Matches(day, startTime, endTime) {
			return s, true
		}
	}
	return Slot{}, false
}

// AvailableOn reports whether any availability entry falls on day
func (u *User) AvailableOn(day string) bool {
	for _, s := range u.Availability {
		if s.Day == day {
			return true
		}
	}
	return false
}

// Contact is the read-time snapshot of a user attached to booking listings
type Contact struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Contact returns the user's display snapshot
func (u *User) Contact() Contact {
	return Contact{FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}
