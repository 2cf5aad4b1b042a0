package entities

import (
	"time"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is one of the three known statuses
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled:
		return true
	}
	return false
}

// Booking is a student's request to meet a tutor for a course in one of the tutor's slots.
// StudentID and TutorID are weak references: deleting a user leaves their bookings in place.
type Booking struct {
	ID        string        `json:"id" db:"id"`
	StudentID string        `json:"studentId" db:"student_id"`
	TutorID   string        `json:"tutorId" db:"tutor_id"`
	Course    string        `json:"course" db:"course"`
	Day       string        `json:"day" db:"day"`
	StartTime string        `json:"startTime" db:"start_time"`
	EndTime   string        `json:"endTime" db:"end_time"`
	SlotID    *string       `json:"slotId,omitempty" db:"slot_id"`
	Status    BookingStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time     `json:"updatedAt" db:"updated_at"`
}

// IsActive reports whether the booking still holds its slot
func (b *Booking) IsActive() bool {
	return b.Status != BookingStatusCancelled
}

// InvolvesUser reports whether userID is the booking's student or tutor
func (b *Booking) InvolvesUser(userID string) bool {
	return b.StudentID == userID || b.TutorID == userID
}

// TutorBookingView is a booking as listed on a tutor's dashboard
type TutorBookingView struct {
	Booking
	StudentName  string `json:"studentName"`
	StudentEmail string `json:"studentEmail"`
}

// StudentBookingView is a booking as listed on a student's dashboard
type StudentBookingView struct {
	Booking
	Tutor Contact `json:"tutor"`
}
