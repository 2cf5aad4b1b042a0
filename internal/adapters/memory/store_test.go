package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/tutorscheduler/backend/pkg/errors"
)

func seed(t *testing.T, store *Store) (tutor, student *entities.User) {
	t.Helper()
	ctx := context.Background()
	users := store.Users()

	tutor = &entities.User{ID: "tutor-1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Role: entities.RoleTutor}
	student = &entities.User{ID: "student-1", FirstName: "Sam", LastName: "Student", Email: "sam@example.com", Role: entities.RoleStudent}
	require.NoError(t, users.Create(ctx, tutor))
	require.NoError(t, users.Create(ctx, student))

	_, err := users.AddCourse(ctx, tutor.ID, "MAC 2313")
	require.NoError(t, err)
	_, err = users.AddSlot(ctx, tutor.ID, entities.Slot{Day: "Monday", StartTime: "09:00", EndTime: "10:00"})
	require.NoError(t, err)
	return tutor, student
}

func TestUserStore_EmailUniqueCaseInsensitive(t *testing.T) {
	store := NewStore()
	seed(t, store)

	err := store.Users().Create(context.Background(), &entities.User{ID: "x", Email: "ADA@example.com", Role: entities.RoleStudent})
	assert.True(t, apperrors.IsConflict(err))

	u, err := store.Users().GetByEmail(context.Background(), "Sam@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "student-1", u.ID)
}

func TestUserStore_ReturnsCopies(t *testing.T) {
	store := NewStore()
	tutor, _ := seed(t, store)

	u, err := store.Users().GetByID(context.Background(), tutor.ID)
	require.NoError(t, err)
	u.Courses[0] = "mutated"

	again, err := store.Users().GetByID(context.Background(), tutor.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"MAC 2313"}, again.Courses)
}

func TestUserStore_RemoveSlotByIDKeepsOthers(t *testing.T) {
	store := NewStore()
	tutor, _ := seed(t, store)
	ctx := context.Background()

	slots, err := store.Users().AddSlot(ctx, tutor.ID, entities.Slot{Day: "Tuesday", StartTime: "09:00", EndTime: "10:00"})
	require.NoError(t, err)
	require.Len(t, slots, 2)

	slots, err = store.Users().RemoveSlot(ctx, tutor.ID, repositories.SlotRef{ID: slots[0].ID})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "Tuesday", slots[0].Day)

	idx := 3
	slots, err = store.Users().RemoveSlot(ctx, tutor.ID, repositories.SlotRef{Index: &idx})
	require.NoError(t, err)
	assert.Len(t, slots, 1)
}

func TestUserStore_CourseOpsRequireTutor(t *testing.T) {
	store := NewStore()
	_, student := seed(t, store)

	_, err := store.Users().AddCourse(context.Background(), student.ID, "MAC 2313")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestBookingStore_ConcurrentDoubleBooking(t *testing.T) {
	store := NewStore()
	tutor, student := seed(t, store)
	bookings := store.Bookings()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			now := time.Now().UTC()
			errs[i] = bookings.Create(context.Background(), &entities.Booking{
				ID:        []string{"b-1", "b-2"}[i],
				StudentID: student.ID,
				TutorID:   tutor.ID,
				Course:    "MAC 2313",
				Day:       "Monday",
				StartTime: "09:00",
				EndTime:   "10:00",
				CreatedAt: now,
				UpdatedAt: now,
			}, repositories.BookingOptions{PreventDoubleBooking: true})
		}(i)
	}
	wg.Wait()

	succeeded, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperrors.IsConflict(err):
			conflicts++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicts)
}

func TestBookingStore_CancelledBookingFreesSlot(t *testing.T) {
	store := NewStore()
	tutor, student := seed(t, store)
	ctx := context.Background()
	opts := repositories.BookingOptions{PreventDoubleBooking: true}

	first := &entities.Booking{ID: "b-1", StudentID: student.ID, TutorID: tutor.ID, Course: "MAC 2313", Day: "Monday", StartTime: "09:00", EndTime: "10:00"}
	require.NoError(t, store.Bookings().Create(ctx, first, opts))

	_, err := store.Bookings().UpdateStatus(ctx, first.ID, entities.BookingStatusCancelled, opts)
	require.NoError(t, err)

	second := &entities.Booking{ID: "b-2", StudentID: student.ID, TutorID: tutor.ID, Course: "MAC 2313", Day: "Monday", StartTime: "09:00", EndTime: "10:00"}
	assert.NoError(t, store.Bookings().Create(ctx, second, opts))
}

func TestBookingStore_ReactivatingOnBookedSlotConflicts(t *testing.T) {
	store := NewStore()
	tutor, student := seed(t, store)
	ctx := context.Background()
	opts := repositories.BookingOptions{PreventDoubleBooking: true}

	first := &entities.Booking{ID: "b-1", StudentID: student.ID, TutorID: tutor.ID, Course: "MAC 2313", Day: "Monday", StartTime: "09:00", EndTime: "10:00"}
	require.NoError(t, store.Bookings().Create(ctx, first, opts))
	_, err := store.Bookings().UpdateStatus(ctx, first.ID, entities.BookingStatusCancelled, opts)
	require.NoError(t, err)

	second := &entities.Booking{ID: "b-2", StudentID: student.ID, TutorID: tutor.ID, Course: "MAC 2313", Day: "Monday", StartTime: "09:00", EndTime: "10:00"}
	require.NoError(t, store.Bookings().Create(ctx, second, opts))

	_, err = store.Bookings().UpdateStatus(ctx, first.ID, entities.BookingStatusConfirmed, opts)
	assert.True(t, apperrors.IsConflict(err))

	got, err := store.Bookings().GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookingStatusCancelled, got.Status)

	updated, err := store.Bookings().UpdateStatus(ctx, second.ID, entities.BookingStatusConfirmed, opts)
	require.NoError(t, err)
	assert.Equal(t, entities.BookingStatusConfirmed, updated.Status)

	_, err = store.Bookings().UpdateStatus(ctx, first.ID, entities.BookingStatusConfirmed, repositories.BookingOptions{})
	assert.NoError(t, err)
}

func TestBookingStore_ListNewestFirst(t *testing.T) {
	store := NewStore()
	tutor, student := seed(t, store)
	ctx := context.Background()

	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"b-1", "b-2"} {
		require.NoError(t, store.Bookings().Create(ctx, &entities.Booking{
			ID: id, StudentID: student.ID, TutorID: tutor.ID, Course: "MAC 2313",
			Day: "Monday", StartTime: "09:00", EndTime: "10:00",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}, repositories.BookingOptions{}))
	}

	list, err := store.Bookings().ListByStudent(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b-2", list[0].ID)
	assert.Equal(t, "b-1", list[1].ID)
}
