package handlers_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/tutorscheduler/backend/internal/application/services"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
)

type MockIdentityService struct {
	mock.Mock
}

func (m *MockIdentityService) Signup(ctx context.Context, in services.SignupInput) (*services.AuthResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AuthResult), args.Error(1)
}

func (m *MockIdentityService) Login(ctx context.Context, email, password string) (*services.AuthResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AuthResult), args.Error(1)
}

func (m *MockIdentityService) Me(ctx context.Context, actor *entities.Principal) (*entities.User, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockIdentityService) ListUsers(ctx context.Context) ([]*entities.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.User), args.Error(1)
}

func (m *MockIdentityService) DeleteUser(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockIdentityService) DeleteUserByEmail(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type MockTutorService struct {
	mock.Mock
}

func (m *MockTutorService) GetTutor(ctx context.Context, tutorID string) (*entities.User, error) {
	args := m.Called(ctx, tutorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockTutorService) AddCourse(ctx context.Context, actor *entities.Principal, tutorID, course string) ([]string, error) {
	args := m.Called(ctx, actor, tutorID, course)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTutorService) RemoveCourse(ctx context.Context, actor *entities.Principal, tutorID, course string) ([]string, error) {
	args := m.Called(ctx, actor, tutorID, course)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTutorService) AddAvailability(ctx context.Context, actor *entities.Principal, tutorID string, in services.SlotInput) ([]entities.Slot, error) {
	args := m.Called(ctx, actor, tutorID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Slot), args.Error(1)
}

func (m *MockTutorService) RemoveAvailability(ctx context.Context, actor *entities.Principal, tutorID, ref string) ([]entities.Slot, error) {
	args := m.Called(ctx, actor, tutorID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Slot), args.Error(1)
}

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, params repositories.TutorSearchParams) ([]*entities.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.User), args.Error(1)
}

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) Create(ctx context.Context, actor *entities.Principal, in services.CreateBookingInput) (*entities.Booking, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Booking), args.Error(1)
}

func (m *MockBookingService) UpdateStatus(ctx context.Context, actor *entities.Principal, bookingID string, status entities.BookingStatus) (*entities.Booking, error) {
	args := m.Called(ctx, actor, bookingID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Booking), args.Error(1)
}

func (m *MockBookingService) Cancel(ctx context.Context, actor *entities.Principal, bookingID string) (*entities.Booking, error) {
	args := m.Called(ctx, actor, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Booking), args.Error(1)
}

func (m *MockBookingService) ListForTutor(ctx context.Context, actor *entities.Principal, tutorID string) ([]entities.TutorBookingView, error) {
	args := m.Called(ctx, actor, tutorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.TutorBookingView), args.Error(1)
}

func (m *MockBookingService) ListForStudent(ctx context.Context, actor *entities.Principal, studentID string) ([]entities.StudentBookingView, error) {
	args := m.Called(ctx, actor, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.StudentBookingView), args.Error(1)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
