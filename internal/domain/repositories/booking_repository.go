package repositories

import (
	"context"

	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
)

// BookingOptions controls the checks applied when a booking is created or
// moved back to an active status
type BookingOptions struct {
	// PreventDoubleBooking rejects a booking whose tutor/day/start/end is
	// already held by another non-cancelled booking
	PreventDoubleBooking bool
}

// BookingRepository defines the interface for booking data operations
type BookingRepository interface {
	// Create validates booking against the current student and tutor records
	// and inserts it with status pending. Validation and insert are atomic per tutor.
	Create(ctx context.Context, booking *entities.Booking, opts BookingOptions) error

	// GetByID retrieves a booking by ID
	GetByID(ctx context.Context, id string) (*entities.Booking, error)

	// UpdateStatus sets the status of a booking and returns the updated record.
	// With PreventDoubleBooking, an active status is refused with Conflict while
	// another active booking holds the same tutor/day/start/end.
	UpdateStatus(ctx context.Context, id string, status entities.BookingStatus, opts BookingOptions) (*entities.Booking, error)

	// ListByTutor returns a tutor's bookings, newest first
	ListByTutor(ctx context.Context, tutorID string) ([]*entities.Booking, error)

	// ListByStudent returns a student's bookings, newest first
	ListByStudent(ctx context.Context, studentID string) ([]*entities.Booking, error)
}
