package repositories

import (
	"context"

	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
)

// SlotRef identifies an availability entry either by id or, for legacy
// clients, by its index in the tutor's ordered list. Exactly one is set.
type SlotRef struct {
	ID    string
	Index *int
}

// UserRepository defines the interface for user data operations.
// Course and availability mutations are atomic per tutor.
type UserRepository interface {
	// Create creates a new user; a registered email (any case) yields Conflict
	Create(ctx context.Context, user *entities.User) error

	// GetByID retrieves a user by ID with courses and availability
	GetByID(ctx context.Context, id string) (*entities.User, error)

	// GetByIDs retrieves the users that exist among ids, in no particular order
	GetByIDs(ctx context.Context, ids []string) ([]*entities.User, error)

	// GetByEmail retrieves a user by email, case-insensitively
	GetByEmail(ctx context.Context, email string) (*entities.User, error)

	// List returns all users ordered by creation time
	List(ctx context.Context) ([]*entities.User, error)

	// Delete deletes a user and their availability; bookings are left in place
	Delete(ctx context.Context, id string) (*entities.User, error)

	// DeleteByEmail deletes a user by email, case-insensitively
	DeleteByEmail(ctx context.Context, email string) (*entities.User, error)

	// AddCourse appends course to the tutor's list unless present and returns the list
	AddCourse(ctx context.Context, tutorID, course string) ([]string, error)

	// RemoveCourse removes course from the tutor's list and returns the list
	RemoveCourse(ctx context.Context, tutorID, course string) ([]string, error)

	// AddSlot appends slot to the tutor's availability and returns the ordered list.
	// A slot overlapping an existing one yields Conflict.
	AddSlot(ctx context.Context, tutorID string, slot entities.Slot) ([]entities.Slot, error)

	// RemoveSlot removes the referenced slot and returns the ordered list.
	// An unknown id or out-of-range index leaves the list unchanged.
	RemoveSlot(ctx context.Context, tutorID string, ref SlotRef) ([]entities.Slot, error)

	// SearchTutors returns tutors offering course, or all tutors when course is empty,
	// ordered by last name, first name and id
	SearchTutors(ctx context.Context, course string) ([]*entities.User, error)
}
