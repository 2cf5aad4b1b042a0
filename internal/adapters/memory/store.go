// Package memory holds process-local record stores for development and tests.
package memory

import (
	"sync"

	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
)

// Store keeps users and bookings behind one lock so that booking checks and
// inserts see a consistent view of the tutor, as the Postgres row lock does.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*entities.User
	order    []string
	bookings map[string]*entities.Booking
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:    make(map[string]*entities.User),
		bookings: make(map[string]*entities.Booking),
	}
}

// Users returns the user repository view of the store
func (s *Store) Users() *UserStore {
	return &UserStore{s: s}
}

// Bookings returns the booking repository view of the store
func (s *Store) Bookings() *BookingStore {
	return &BookingStore{s: s}
}

func cloneUser(u *entities.User) *entities.User {
	c := *u
	c.Courses = append([]string{}, u.Courses...)
	c.Availability = append([]entities.Slot{}, u.Availability...)
	return &c
}

func cloneBooking(b *entities.Booking) *entities.Booking {
	c := *b
	if b.SlotID != nil {
		id := *b.SlotID
		c.SlotID = &id
	}
	return &c
}
