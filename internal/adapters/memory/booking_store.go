package memory

import (
	"context"
	"sort"
	"time"

	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/tutorscheduler/backend/pkg/errors"
)

// BookingStore implements repositories.BookingRepository in memory
type BookingStore struct {
	s *Store
}

var _ repositories.BookingRepository = (*BookingStore)(nil)

// Create checks and inserts booking under the store lock
func (r *BookingStore) Create(ctx context.Context, booking *entities.Booking, opts repositories.BookingOptions) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := entities.CheckStudent(r.s.users[booking.StudentID]); err != nil {
		return err
	}
	slot, err := entities.CheckBookable(r.s.users[booking.TutorID], booking.Course, booking.Day, booking.StartTime, booking.EndTime)
	if err != nil {
		return err
	}

	if opts.PreventDoubleBooking && r.slotTaken(booking) {
		return apperrors.NewConflictError(entities.MsgSlotAlreadyBooked)
	}

	slotID := slot.ID
	booking.SlotID = &slotID
	booking.Status = entities.BookingStatusPending
	r.s.bookings[booking.ID] = cloneBooking(booking)
	return nil
}

// GetByID retrieves a booking by ID
func (r *BookingStore) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(entities.MsgBookingNotFound)
	}
	return cloneBooking(b), nil
}

// slotTaken reports whether another active booking holds the same tutor/day/start/end.
// Callers hold the store lock.
func (r *BookingStore) slotTaken(booking *entities.Booking) bool {
	for _, b := range r.s.bookings {
		if b.ID != booking.ID && b.TutorID == booking.TutorID && b.IsActive() &&
			b.Day == booking.Day && b.StartTime == booking.StartTime && b.EndTime == booking.EndTime {
			return true
		}
	}
	return false
}

// UpdateStatus sets the status of a booking
func (r *BookingStore) UpdateStatus(ctx context.Context, id string, status entities.BookingStatus, opts repositories.BookingOptions) (*entities.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(entities.MsgBookingNotFound)
	}
	if opts.PreventDoubleBooking && status != entities.BookingStatusCancelled && r.slotTaken(b) {
		return nil, apperrors.NewConflictError(entities.MsgSlotAlreadyBooked)
	}
	b.Status = status
	b.UpdatedAt = time.Now().UTC()
	return cloneBooking(b), nil
}

// ListByTutor returns a tutor's bookings, newest first
func (r *BookingStore) ListByTutor(ctx context.Context, tutorID string) ([]*entities.Booking, error) {
	return r.list(func(b *entities.Booking) bool { return b.TutorID == tutorID }), nil
}

// ListByStudent returns a student's bookings, newest first
func (r *BookingStore) ListByStudent(ctx context.Context, studentID string) ([]*entities.Booking, error) {
	return r.list(func(b *entities.Booking) bool { return b.StudentID == studentID }), nil
}

func (r *BookingStore) list(match func(*entities.Booking) bool) []*entities.Booking {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*entities.Booking{}
	for _, b := range r.s.bookings {
		if match(b) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
