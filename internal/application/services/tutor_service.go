package services

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/tutorscheduler/backend/internal/application/validation"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/providers"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/tutorscheduler/backend/pkg/errors"
)

// SlotInput is an availability window submitted by a tutor
type SlotInput struct {
	Day       string `json:"day" validate:"required,notblank"`
	StartTime string `json:"startTime" validate:"required,notblank"`
	EndTime   string `json:"endTime" validate:"required,notblank"`
}

// TutorService manages a tutor's courses and availability
type TutorService struct {
	users        repositories.UserRepository
	notifier     tutorNotifier
	queryTimeout time.Duration
}

// NewTutorService creates a new tutor service
func NewTutorService(users repositories.UserRepository, eventBus providers.EventBus, queryTimeout time.Duration) *TutorService {
	return &TutorService{
		users:        users,
		notifier:     tutorNotifier{bus: eventBus},
		queryTimeout: queryTimeout,
	}
}

// OnTutorChange registers handlers run in line after each course or
// availability write. Call before serving requests.
func (s *TutorService) OnTutorChange(handlers ...TutorChangeHandler) {
	s.notifier.handlers = append(s.notifier.handlers, handlers...)
}

// GetTutor returns a tutor's public profile
func (s *TutorService) GetTutor(ctx context.Context, tutorID string) (*entities.User, error) {
	ctx, cancel := withQueryTimeout(ctx, s.queryTimeout)
	defer cancel()

	user, err := s.users.GetByID(ctx, tutorID)
	if apperrors.IsNotFound(err) {
		return nil, apperrors.NewNotFoundError(entities.MsgTutorNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !user.IsTutor() {
		return nil, apperrors.NewNotFoundError(entities.MsgTutorNotFound)
	}
	return user, nil
}

// AddCourse adds a course to the tutor's list unless already present
func (s *TutorService) AddCourse(ctx context.Context, actor *entities.Principal, tutorID, course string) ([]string, error) {
	if err := requireSelf(actor, tutorID, entities.RoleTutor); err != nil {
		return nil, err
	}
	if err := validation.Field("course", course, "required,notblank"); err != nil {
		return nil, err
	}

	ctx, cancel := withQueryTimeout(ctx, s.queryTimeout)
	defer cancel()

	courses, err := s.users.AddCourse(ctx, tutorID, course)
	if err != nil {
		return nil, err
	}

	s.notifier.notify(ctx, tutorID, entities.TutorEventTypeCoursesUpdated)
	return courses, nil
}

// RemoveCourse removes a course from the tutor's list. Removing an absent course is not an error.
func (s *TutorService) RemoveCourse(ctx context.Context, actor *entities.Principal, tutorID, course string) ([]string, error) {
	if err := requireSelf(actor, tutorID, entities.RoleTutor); err != nil {
		return nil, err
	}

	ctx, cancel := withQueryTimeout(ctx, s.queryTimeout)
	defer cancel()

	courses, err := s.users.RemoveCourse(ctx, tutorID, course)
	if err != nil {
		return nil, err
	}

	s.notifier.notify(ctx, tutorID, entities.TutorEventTypeCoursesUpdated)
	return courses, nil
}

func validateSlot(in SlotInput) error {
	if err := validation.Struct(in); err != nil {
		return err
	}

	slot := entities.Slot{Day: in.Day, StartTime: in.StartTime, EndTime: in.EndTime}
	if start, end, ok := slot.Clock(); ok && !start.Before(end) {
		return apperrors.NewFieldValidationError("validation failed", map[string]string{
			"endTime": "endTime must be after startTime",
		})
	}
	return nil
}

// AddAvailability appends a slot to the tutor's availability
func (s *TutorService) AddAvailability(ctx context.Context, actor *entities.Principal, tutorID string, in SlotInput) ([]entities.Slot, error) {
	if err := requireSelf(actor, tutorID, entities.RoleTutor); err != nil {
		return nil, err
	}
	if err := validateSlot(in); err != nil {
		return nil, err
	}

	ctx, cancel := withQueryTimeout(ctx, s.queryTimeout)
	defer cancel()

	slots, err := s.users.AddSlot(ctx, tutorID, entities.Slot{
		ID:        uuid.NewString(),
		Day:       in.Day,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
	})
	if err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("tutor_id", tutorID).
		Int("slots", len(slots)).
		Msg("Availability added")

	s.notifier.notify(ctx, tutorID, entities.TutorEventTypeAvailabilityUpdated)
	return slots, nil
}

// RemoveAvailability removes the slot named by ref, a slot id or a list index
func (s *TutorService) RemoveAvailability(ctx context.Context, actor *entities.Principal, tutorID, ref string) ([]entities.Slot, error) {
	if err := requireSelf(actor, tutorID, entities.RoleTutor); err != nil {
		return nil, err
	}

	ctx, cancel := withQueryTimeout(ctx, s.queryTimeout)
	defer cancel()

	slots, err := s.users.RemoveSlot(ctx, tutorID, ParseSlotRef(ref))
	if err != nil {
		return nil, err
	}

	s.notifier.notify(ctx, tutorID, entities.TutorEventTypeAvailabilityUpdated)
	return slots, nil
}

// ParseSlotRef reads a path segment as a slot id, or as an index when it is a bare integer
func ParseSlotRef(ref string) repositories.SlotRef {
	if _, err := uuid.Parse(ref); err == nil {
		return repositories.SlotRef{ID: ref}
	}
	if idx, err := strconv.Atoi(ref); err == nil {
		return repositories.SlotRef{Index: &idx}
	}
	return repositories.SlotRef{ID: ref}
}
