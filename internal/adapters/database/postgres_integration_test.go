//go:build integration

package database_test

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/zatekoja/tutorscheduler/backend/internal/adapters/cache"
	"github.com/zatekoja/tutorscheduler/backend/internal/adapters/database"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/migrations"
	"github.com/zatekoja/tutorscheduler/backend/pkg/config"
	apperrors "github.com/zatekoja/tutorscheduler/backend/pkg/errors"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

type PostgresIntegrationTestSuite struct {
	suite.Suite
	client   *postgres.Client
	users    repositories.UserRepository
	bookings repositories.BookingRepository
}

func TestPostgresIntegration(t *testing.T) {
	if os.Getenv("TEST_DB_HOST") == "" {
		t.Skip("Skipping integration test: TEST_DB_HOST not set")
	}
	suite.Run(t, new(PostgresIntegrationTestSuite))
}

func (s *PostgresIntegrationTestSuite) SetupSuite() {
	cfg := &config.DatabaseConfig{
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     getEnvAsInt("TEST_DB_PORT", 5432),
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		Database: getEnv("TEST_DB_NAME", "tutorscheduler_test"),
		SSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}

	ctx := context.Background()
	client, err := postgres.NewClient(ctx, cfg)
	require.NoError(s.T(), err, "Failed to create postgres client")
	s.client = client

	migrator, err := migrations.NewMigrator(client.DB())
	require.NoError(s.T(), err)
	require.NoError(s.T(), migrator.Up(ctx))

	s.users = database.NewUserAdapter(client, nil)
	s.bookings = database.NewBookingAdapter(client, nil)
}

func (s *PostgresIntegrationTestSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close()
	}
}

func (s *PostgresIntegrationTestSuite) SetupTest() {
	_, err := s.client.DB().Exec("TRUNCATE bookings, availability_slots, users")
	require.NoError(s.T(), err)
}

func (s *PostgresIntegrationTestSuite) newUser(role entities.Role, last string) *entities.User {
	now := time.Now().UTC()
	user := &entities.User{
		ID:           uuid.NewString(),
		FirstName:    "Test",
		LastName:     last,
		Email:        uuid.NewString() + "@example.edu",
		PasswordHash: "hash",
		Role:         role,
		Courses:      []string{},
		Availability: []entities.Slot{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(s.T(), s.users.Create(context.Background(), user))
	return user
}

func (s *PostgresIntegrationTestSuite) newTutor(last, course string) *entities.User {
	ctx := context.Background()
	tutor := s.newUser(entities.RoleTutor, last)
	_, err := s.users.AddCourse(ctx, tutor.ID, course)
	require.NoError(s.T(), err)
	_, err = s.users.AddSlot(ctx, tutor.ID, entities.Slot{ID: uuid.NewString(), Day: "Monday", StartTime: "09:00", EndTime: "10:00"})
	require.NoError(s.T(), err)
	return tutor
}

func (s *PostgresIntegrationTestSuite) newBooking(student, tutor *entities.User) *entities.Booking {
	now := time.Now().UTC()
	return &entities.Booking{
		ID:        uuid.NewString(),
		StudentID: student.ID,
		TutorID:   tutor.ID,
		Course:    "MAC 2313",
		Day:       "Monday",
		StartTime: "09:00",
		EndTime:   "10:00",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *PostgresIntegrationTestSuite) TestUser_EmailIsCaseInsensitive() {
	ctx := context.Background()
	user := s.newUser(entities.RoleStudent, "Kay")

	found, err := s.users.GetByEmail(ctx, strings.ToUpper(user.Email))
	s.Require().NoError(err)
	s.Equal(user.ID, found.ID)

	dup := *user
	dup.ID = uuid.NewString()
	dup.Email = strings.ToUpper(user.Email)
	err = s.users.Create(ctx, &dup)
	s.True(apperrors.IsConflict(err))
}

func (s *PostgresIntegrationTestSuite) TestUser_CoursesAndSlots() {
	ctx := context.Background()
	tutor := s.newTutor("Hopper", "MAC 2313")

	courses, err := s.users.AddCourse(ctx, tutor.ID, "MAC 2313")
	s.Require().NoError(err)
	s.Equal([]string{"MAC 2313"}, courses)

	_, err = s.users.AddSlot(ctx, tutor.ID, entities.Slot{ID: uuid.NewString(), Day: "Monday", StartTime: "09:30", EndTime: "10:30"})
	s.True(apperrors.IsConflict(err))

	second := entities.Slot{ID: uuid.NewString(), Day: "Tuesday", StartTime: "13:00", EndTime: "14:00"}
	slots, err := s.users.AddSlot(ctx, tutor.ID, second)
	s.Require().NoError(err)
	s.Require().Len(slots, 2)
	s.Equal("Tuesday", slots[1].Day)

	slots, err = s.users.RemoveSlot(ctx, tutor.ID, repositories.SlotRef{ID: uuid.NewString()})
	s.Require().NoError(err)
	s.Len(slots, 2)

	slots, err = s.users.RemoveSlot(ctx, tutor.ID, repositories.SlotRef{ID: second.ID})
	s.Require().NoError(err)
	s.Require().Len(slots, 1)
	s.Equal("Monday", slots[0].Day)

	got, err := s.users.GetByID(ctx, tutor.ID)
	s.Require().NoError(err)
	s.Equal([]string{"MAC 2313"}, got.Courses)
	s.Len(got.Availability, 1)
}

func (s *PostgresIntegrationTestSuite) TestUser_SearchTutorsOrdersByName() {
	ctx := context.Background()
	s.newTutor("Lovelace", "MAC 2313")
	s.newTutor("Hopper", "MAC 2313")
	s.newTutor("Babbage", "COP 3530")
	s.newUser(entities.RoleStudent, "Kay")

	tutors, err := s.users.SearchTutors(ctx, "MAC 2313")
	s.Require().NoError(err)
	s.Require().Len(tutors, 2)
	s.Equal("Hopper", tutors[0].LastName)
	s.Equal("Lovelace", tutors[1].LastName)

	all, err := s.users.SearchTutors(ctx, "")
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *PostgresIntegrationTestSuite) TestUser_DeleteKeepsBookings() {
	ctx := context.Background()
	tutor := s.newTutor("Hopper", "MAC 2313")
	student := s.newUser(entities.RoleStudent, "Kay")
	booking := s.newBooking(student, tutor)
	s.Require().NoError(s.bookings.Create(ctx, booking, repositories.BookingOptions{}))

	_, err := s.users.Delete(ctx, tutor.ID)
	s.Require().NoError(err)

	_, err = s.users.GetByID(ctx, tutor.ID)
	s.True(apperrors.IsNotFound(err))

	list, err := s.bookings.ListByStudent(ctx, student.ID)
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *PostgresIntegrationTestSuite) TestBooking_CreateAndCancel() {
	ctx := context.Background()
	tutor := s.newTutor("Hopper", "MAC 2313")
	student := s.newUser(entities.RoleStudent, "Kay")

	booking := s.newBooking(student, tutor)
	s.Require().NoError(s.bookings.Create(ctx, booking, repositories.BookingOptions{PreventDoubleBooking: true}))
	s.Equal(entities.BookingStatusPending, booking.Status)
	s.Require().NotNil(booking.SlotID)

	again := s.newBooking(student, tutor)
	err := s.bookings.Create(ctx, again, repositories.BookingOptions{PreventDoubleBooking: true})
	s.True(apperrors.IsConflict(err))

	cancelled, err := s.bookings.UpdateStatus(ctx, booking.ID, entities.BookingStatusCancelled, repositories.BookingOptions{PreventDoubleBooking: true})
	s.Require().NoError(err)
	s.Equal(entities.BookingStatusCancelled, cancelled.Status)

	s.Require().NoError(s.bookings.Create(ctx, again, repositories.BookingOptions{PreventDoubleBooking: true}))

	_, err = s.bookings.UpdateStatus(ctx, booking.ID, entities.BookingStatusConfirmed, repositories.BookingOptions{PreventDoubleBooking: true})
	s.True(apperrors.IsConflict(err))

	got, err := s.bookings.GetByID(ctx, booking.ID)
	s.Require().NoError(err)
	s.Equal(entities.BookingStatusCancelled, got.Status)
}

func (s *PostgresIntegrationTestSuite) TestBooking_ConcurrentCreateHoldsOneSlot() {
	ctx := context.Background()
	tutor := s.newTutor("Hopper", "MAC 2313")
	students := []*entities.User{
		s.newUser(entities.RoleStudent, "Kay"),
		s.newUser(entities.RoleStudent, "Liskov"),
		s.newUser(entities.RoleStudent, "Knuth"),
	}

	var wg sync.WaitGroup
	errs := make([]error, len(students))
	for i, student := range students {
		wg.Add(1)
		go func(i int, student *entities.User) {
			defer wg.Done()
			errs[i] = s.bookings.Create(ctx, s.newBooking(student, tutor), repositories.BookingOptions{PreventDoubleBooking: true})
		}(i, student)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		s.True(apperrors.IsConflict(err), "unexpected error: %v", err)
	}
	s.Equal(1, created)
}

func (s *PostgresIntegrationTestSuite) TestBooking_ListNewestFirst() {
	ctx := context.Background()
	tutor := s.newTutor("Hopper", "MAC 2313")
	student := s.newUser(entities.RoleStudent, "Kay")

	first := s.newBooking(student, tutor)
	s.Require().NoError(s.bookings.Create(ctx, first, repositories.BookingOptions{}))
	second := s.newBooking(student, tutor)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	s.Require().NoError(s.bookings.Create(ctx, second, repositories.BookingOptions{}))

	list, err := s.bookings.ListByTutor(ctx, tutor.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(second.ID, list[0].ID)
}

func (s *PostgresIntegrationTestSuite) TestCachedUser_InvalidatesOnWrite() {
	ctx := context.Background()
	users := database.NewCachedUserAdapter(s.users, cache.NewMemoryAdapter(), nil)
	tutor := s.newTutor("Hopper", "MAC 2313")

	got, err := users.GetByID(ctx, tutor.ID)
	s.Require().NoError(err)
	s.Equal([]string{"MAC 2313"}, got.Courses)

	_, err = users.AddCourse(ctx, tutor.ID, "COP 3530")
	s.Require().NoError(err)

	got, err = users.GetByID(ctx, tutor.ID)
	s.Require().NoError(err)
	assert.Equal(s.T(), []string{"MAC 2313", "COP 3530"}, got.Courses)
}
