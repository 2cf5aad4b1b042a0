package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zatekoja/tutorscheduler/backend/internal/adapters/events"
	"github.com/zatekoja/tutorscheduler/backend/internal/adapters/memory"
	"github.com/zatekoja/tutorscheduler/backend/internal/application/services"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/providers"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/auth"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	store    *memory.Store
	bus      *events.LocalEventBus
	tokens   *auth.JWTManager
	identity *services.IdentityService
	tutors   *services.TutorService
	bookings *services.BookingService
	search   *services.SearchService
}

func newFixture(t *testing.T, preventDoubleBooking bool) *fixture {
	t.Helper()

	store := memory.NewStore()
	bus := events.NewLocalEventBus()
	t.Cleanup(func() { _ = bus.Close() })

	tokens := auth.NewJWTManager("test-secret", "tutorscheduler", time.Hour)
	return &fixture{
		store:    store,
		bus:      bus,
		tokens:   tokens,
		identity: services.NewIdentityService(store.Users(), auth.NewBcryptHasher(bcrypt.MinCost), tokens, bus, time.Second),
		tutors:   services.NewTutorService(store.Users(), bus, time.Second),
		bookings: services.NewBookingService(store.Bookings(), store.Users(), bus, nil,
			repositories.BookingOptions{PreventDoubleBooking: preventDoubleBooking}, time.Second),
		search: services.NewSearchService(store.Users(), nil, time.Second),
	}
}

var userSeq int

// signup registers a user and returns it with the principal behind its token
func (f *fixture) signup(t *testing.T, role entities.Role, first, last string) (*entities.User, *entities.Principal) {
	t.Helper()
	userSeq++

	res, err := f.identity.Signup(context.Background(), services.SignupInput{
		FirstName: first,
		LastName:  last,
		Email:     fmt.Sprintf("%s.%s.%d@example.com", first, last, userSeq),
		Password:  "secret123",
		Role:      role,
	})
	require.NoError(t, err)

	principal, err := f.identity.Authenticate(res.Token)
	require.NoError(t, err)
	return res.User, principal
}

// tutorWith signs up a tutor offering course with one Monday 09:00-10:00 slot
func (f *fixture) tutorWith(t *testing.T, course string) (*entities.User, *entities.Principal) {
	t.Helper()
	ctx := context.Background()

	tutor, principal := f.signup(t, entities.RoleTutor, "Ada", "Lovelace")
	_, err := f.tutors.AddCourse(ctx, principal, tutor.ID, course)
	require.NoError(t, err)
	_, err = f.tutors.AddAvailability(ctx, principal, tutor.ID, services.SlotInput{
		Day: "Monday", StartTime: "09:00", EndTime: "10:00",
	})
	require.NoError(t, err)
	return tutor, principal
}

// subscribe returns the events published on the tutor channel from now on
func (f *fixture) subscribe(t *testing.T) <-chan *entities.TutorEvent {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ch, err := f.bus.Subscribe(ctx, providers.EventChannelTutorUpdates)
	require.NoError(t, err)
	return ch
}

func nextEvent(t *testing.T, ch <-chan *entities.TutorEvent) *entities.TutorEvent {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for tutor event")
		return nil
	}
}
