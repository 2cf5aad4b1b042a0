package events

import (
	"sync"

	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
)

const subscriberBuffer = 100

// broker fans events out to the local subscribers of each channel
type broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.TutorEvent]struct{}
}

func newBroker() *broker {
	return &broker{subscribers: make(map[string]map[chan *entities.TutorEvent]struct{})}
}

// add registers a new subscriber and reports whether it is the channel's first
func (b *broker) add(channel string) (chan *entities.TutorEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	first := len(b.subscribers[channel]) == 0
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *entities.TutorEvent]struct{})
	}
	ch := make(chan *entities.TutorEvent, subscriberBuffer)
	b.subscribers[channel][ch] = struct{}{}
	return ch, first
}

// remove closes one subscriber and reports whether the channel has none left
func (b *broker) remove(channel string, ch chan *entities.TutorEvent) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[channel]
	if !ok {
		return false
	}
	if _, ok := subs[ch]; !ok {
		return false
	}
	delete(subs, ch)
	close(ch)

	if len(subs) == 0 {
		delete(b.subscribers, channel)
		return true
	}
	return false
}

// drop closes every subscriber of channel
func (b *broker) drop(channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers[channel] {
		close(ch)
	}
	delete(b.subscribers, channel)
}

func (b *broker) channels() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, 0, len(b.subscribers))
	for channel := range b.subscribers {
		out = append(out, channel)
	}
	return out
}

// deliver hands event to every subscriber without blocking; full subscribers miss it
func (b *broker) deliver(channel string, event *entities.TutorEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[channel] {
		select {
		case ch <- event:
		default:
			observability.GetLogger().Warn().
				Str("channel", channel).
				Str("event_id", event.ID).
				Msg("Subscriber channel full, skipping event")
		}
	}
}
