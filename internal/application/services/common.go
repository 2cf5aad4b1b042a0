package services

import (
	"context"
	"strings"
	"time"

	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/providers"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/tutorscheduler/backend/pkg/errors"
)

// withQueryTimeout bounds the store work of one service call
func withQueryTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func requireActor(actor *entities.Principal) error {
	if actor == nil || actor.UserID == "" {
		return apperrors.NewUnauthorizedError("authentication required")
	}
	return nil
}

// requireSelf allows only the principal acting on its own records with the given role
func requireSelf(actor *entities.Principal, userID string, role entities.Role) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.Is(userID) || actor.Role != role {
		return apperrors.NewForbiddenError("not allowed to act on this " + string(role))
	}
	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// TutorChangeHandler is told about a tutor write before the request returns
type TutorChangeHandler interface {
	TutorChanged(ctx context.Context, tutorID string, eventType entities.TutorEventType)
}

// tutorNotifier runs the in-process handlers for a tutor write, then
// publishes the event for subscribers elsewhere
type tutorNotifier struct {
	bus      providers.EventBus
	handlers []TutorChangeHandler
}

func (n *tutorNotifier) notify(ctx context.Context, tutorID string, eventType entities.TutorEventType) {
	for _, h := range n.handlers {
		h.TutorChanged(ctx, tutorID, eventType)
	}
	publishTutorEvent(ctx, n.bus, tutorID, eventType)
}

// publishTutorEvent announces a tutor change on the shared channel and the
// tutor's own channel. Delivery is best effort: the
// write has already happened, so a bus failure is logged and not returned.
func publishTutorEvent(ctx context.Context, bus providers.EventBus, tutorID string, eventType entities.TutorEventType) {
	if bus == nil || tutorID == "" {
		return
	}
	event := entities.NewTutorEvent(tutorID, eventType)
	for _, channel := range []string{providers.EventChannelTutorUpdates, providers.GetTutorChannel(tutorID)} {
		if err := bus.Publish(ctx, channel, event); err != nil {
			observability.LoggerFromContext(ctx).Warn().
				Err(err).
				Str("channel", channel).
				Str("tutor_id", tutorID).
				Str("event_type", string(eventType)).
				Msg("Failed to publish tutor event")
		}
	}
}
