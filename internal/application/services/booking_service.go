package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/tutorscheduler/backend/internal/application/loaders"
	"github.com/zatekoja/tutorscheduler/backend/internal/application/validation"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/providers"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/tutorscheduler/backend/pkg/errors"
)

// CreateBookingInput is a student's booking request
type CreateBookingInput struct {
	StudentID string `json:"studentId" validate:"required,notblank"`
	TutorID   string `json:"tutorId" validate:"required,notblank"`
	Course    string `json:"course" validate:"required,notblank"`
	Day       string `json:"day" validate:"required,notblank"`
	StartTime string `json:"startTime" validate:"required,notblank"`
	EndTime   string `json:"endTime" validate:"required,notblank"`
}

// BookingService handles the booking lifecycle
type BookingService struct {
	bookings     repositories.BookingRepository
	users        repositories.UserRepository
	eventBus     providers.EventBus
	metrics      *observability.Metrics
	options      repositories.BookingOptions
	queryTimeout time.Duration
}

// NewBookingService creates a new booking service
func NewBookingService(
	bookings repositories.BookingRepository,
	users repositories.UserRepository,
	eventBus providers.EventBus,
	metrics *observability.Metrics,
	options repositories.BookingOptions,
	queryTimeout time.Duration,
) *BookingService {
	return &BookingService{
		bookings:     bookings,
		users:        users,
		eventBus:     eventBus,
		metrics:      metrics,
		options:      options,
		queryTimeout: queryTimeout,
	}
}

// Create books a slot for the calling student. The booking starts pending
// and the tutor's availability is left as is.
func (s *BookingService) Create(ctx context.Context, actor *entities.Principal, in CreateBookingInput) (*entities.Booking, error) {
	ctx, span := observability.StartSpan(ctx, "BookingService.Create")
	defer span.End()

	if err := requireSelf(actor, in.StudentID, entities.RoleStudent); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	ctx, cancel := withQueryTimeout(ctx, s.queryTimeout)
	defer cancel()

	now := time.Now().UTC()
	booking := &entities.Booking{
		ID:        uuid.NewString(),
		StudentID: in.StudentID,
		TutorID:   in.TutorID,
		Course:    in.Course,
		Day:       in.Day,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Status:    entities.BookingStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.bookings.Create(ctx, booking, s.options); err != nil {
		observability.RecordError(span, err)
		observability.RecordBooking(ctx, s.metrics, "create", outcomeOf(err))
		return nil, err
	}
	observability.RecordBooking(ctx, s.metrics, "create", "ok")

	observability.LoggerFromContext(ctx).Info().
		Str("booking_id", booking.ID).
		Str("tutor_id", booking.TutorID).
		Str("student_id", booking.StudentID).
		Msg("Booking created")

	publishTutorEvent(ctx, s.eventBus, booking.TutorID, entities.TutorEventTypeBookingChanged)
	return booking, nil
}

// UpdateStatus moves a booking to status. The booking's tutor may set any
// status; its student may only cancel.
func (s *BookingService) UpdateStatus(ctx context.Context, actor *entities.Principal, bookingID string, status entities.BookingStatus) (*entities.Booking, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError(entities.MsgInvalidStatus)
	}

	ctx, cancel := withQueryTimeout(ctx, s.queryTimeout)
	defer cancel()

	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	switch {
	case current.TutorID == actor.UserID && actor.Role == entities.RoleTutor:
	case current.StudentID == actor.UserID && actor.Role == entities.RoleStudent:
		if status != entities.BookingStatusCancelled {
			return nil, apperrors.NewForbiddenError("students may only cancel a booking")
		}
	default:
		return nil, apperrors.NewForbiddenError("not allowed to act on this booking")
	}

	return s.setStatus(ctx, current, status)
}

// Cancel marks a booking cancelled on behalf of either party. The record is kept.
func (s *BookingService) Cancel(ctx context.Context, actor *entities.Principal, bookingID string) (*entities.Booking, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	ctx, cancel := withQueryTimeout(ctx, s.queryTimeout)
	defer cancel()

	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !current.InvolvesUser(actor.UserID) {
		return nil, apperrors.NewForbiddenError("not allowed to act on this booking")
	}

	return s.setStatus(ctx, current, entities.BookingStatusCancelled)
}

func (s *BookingService) setStatus(ctx context.Context, current *entities.Booking, status entities.BookingStatus) (*entities.Booking, error) {
	updated, err := s.bookings.UpdateStatus(ctx, current.ID, status, s.options)
	if err != nil {
		observability.RecordBooking(ctx, s.metrics, "update_status", outcomeOf(err))
		return nil, err
	}
	observability.RecordBooking(ctx, s.metrics, "update_status", string(status))

	observability.LoggerFromContext(ctx).Info().
		Str("booking_id", updated.ID).
		Str("from", string(current.Status)).
		Str("to", string(updated.Status)).
		Msg("Booking status updated")

	publishTutorEvent(ctx, s.eventBus, updated.TutorID, entities.TutorEventTypeBookingChanged)
	return updated, nil
}

// ListForTutor returns the tutor's bookings with each student's name and email.
// Bookings whose student no longer exists are omitted.
func (s *BookingService) ListForTutor(ctx context.Context, actor *entities.Principal, tutorID string) ([]entities.TutorBookingView, error) {
	if err := requireSelf(actor, tutorID, entities.RoleTutor); err != nil {
		return nil, err
	}

	ctx, cancel := withQueryTimeout(ctx, s.queryTimeout)
	defer cancel()

	bookings, err := s.bookings.ListByTutor(ctx, tutorID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.StudentID)
	}
	students, err := s.loadersFor(ctx).LoadUsers(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}

	views := make([]entities.TutorBookingView, 0, len(bookings))
	for _, b := range bookings {
		student, ok := students[b.StudentID]
		if !ok {
			continue
		}
		views = append(views, entities.TutorBookingView{
			Booking:      *b,
			StudentName:  student.FullName(),
			StudentEmail: student.Email,
		})
	}
	return views, nil
}

// ListForStudent returns the student's bookings with each tutor's contact.
// Bookings whose tutor no longer exists are omitted.
func (s *BookingService) ListForStudent(ctx context.Context, actor *entities.Principal, studentID string) ([]entities.StudentBookingView, error) {
	if err := requireSelf(actor, studentID, entities.RoleStudent); err != nil {
		return nil, err
	}

	ctx, cancel := withQueryTimeout(ctx, s.queryTimeout)
	defer cancel()

	bookings, err := s.bookings.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.TutorID)
	}
	tutors, err := s.loadersFor(ctx).LoadUsers(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}

	views := make([]entities.StudentBookingView, 0, len(bookings))
	for _, b := range bookings {
		tutor, ok := tutors[b.TutorID]
		if !ok {
			continue
		}
		views = append(views, entities.StudentBookingView{
			Booking: *b,
			Tutor:   tutor.Contact(),
		})
	}
	return views, nil
}

// loadersFor reuses the request's loaders when the middleware attached them
func (s *BookingService) loadersFor(ctx context.Context) *loaders.Loaders {
	if l := loaders.For(ctx); l != nil {
		return l
	}
	return loaders.NewLoaders(s.users)
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func outcomeOf(err error) string {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeConflict:
		return "conflict"
	case apperrors.ErrorTypeValidation:
		return "invalid"
	case apperrors.ErrorTypeNotFound:
		return "not_found"
	default:
		return "error"
	}
}
