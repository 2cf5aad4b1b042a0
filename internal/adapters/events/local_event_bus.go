package events

import (
	"context"
	"errors"
	"sync"

	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/providers"
)

// ErrBusClosed is returned when publishing to a closed bus
var ErrBusClosed = errors.New("event bus closed")

// LocalEventBus delivers events within the process. It is used when Redis is disabled.
type LocalEventBus struct {
	broker *broker
	mu     sync.RWMutex
	closed bool
}

// NewLocalEventBus creates an in-process event bus
func NewLocalEventBus() *LocalEventBus {
	return &LocalEventBus{broker: newBroker()}
}

var _ providers.EventBus = (*LocalEventBus)(nil)

// Publish delivers event to the current subscribers of channel
func (b *LocalEventBus) Publish(ctx context.Context, channel string, event *entities.TutorEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	b.broker.deliver(channel, event)
	return nil
}

// Subscribe subscribes to events on a channel until ctx ends
func (b *LocalEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.TutorEvent, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrBusClosed
	}

	ch, _ := b.broker.add(channel)
	go func() {
		<-ctx.Done()
		b.broker.remove(channel, ch)
	}()
	return ch, nil
}

// Unsubscribe closes every subscriber of channel
func (b *LocalEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.broker.drop(channel)
	return nil
}

// Close closes all subscriptions
func (b *LocalEventBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	for _, channel := range b.broker.channels() {
		b.broker.drop(channel)
	}
	return nil
}
