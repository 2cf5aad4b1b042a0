package providers

import (
	"context"

	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.TutorEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.TutorEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelTutorUpdates carries every tutor event
	EventChannelTutorUpdates = "tutor:updates"

	// EventChannelTutorPrefix is the prefix for tutor-specific channels
	EventChannelTutorPrefix = "tutor:"
)

// GetTutorChannel returns the channel name for a specific tutor
func GetTutorChannel(tutorID string) string {
	return EventChannelTutorPrefix + tutorID
}
