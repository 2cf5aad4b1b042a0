package entities

import (
	"time"

	"github.com/google/uuid"
)

// TutorEventType represents what changed about a tutor
type TutorEventType string

const (
	TutorEventTypeCoursesUpdated      TutorEventType = "courses_updated"
	TutorEventTypeAvailabilityUpdated TutorEventType = "availability_updated"
	TutorEventTypeBookingChanged      TutorEventType = "booking_changed"
	TutorEventTypeUserDeleted         TutorEventType = "user_deleted"
)

// TutorEvent is published whenever data shown on tutor pages or search results changes
type TutorEvent struct {
	ID        string         `json:"id"`
	TutorID   string         `json:"tutor_id"`
	EventType TutorEventType `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewTutorEvent creates a new tutor event
func NewTutorEvent(tutorID string, eventType TutorEventType) *TutorEvent {
	return &TutorEvent{
		ID:        uuid.NewString(),
		TutorID:   tutorID,
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}
