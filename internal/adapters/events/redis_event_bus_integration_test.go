//go:build integration

package events

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/providers"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/tutorscheduler/backend/pkg/config"
)

func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	if os.Getenv("TEST_REDIS_HOST") == "" {
		t.Skip("Skipping integration test: TEST_REDIS_HOST not set")
	}
	port, err := strconv.Atoi(os.Getenv("TEST_REDIS_PORT"))
	if err != nil {
		port = 6379
	}

	cfg := &config.RedisConfig{
		Host:     os.Getenv("TEST_REDIS_HOST"),
		Port:     port,
		Password: os.Getenv("TEST_REDIS_PASSWORD"),
	}

	client, err := redis.NewClient(context.Background(), cfg)
	require.NoError(t, err, "Failed to create redis client")
	return client
}

func waitForTutorEvent(t *testing.T, ch <-chan *entities.TutorEvent) *entities.TutorEvent {
	t.Helper()

	select {
	case event, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return event
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for tutor event")
		return nil
	}
}

func TestRedisEventBusFanoutIntegration(t *testing.T) {
	redisClient := newTestRedisClient(t)
	defer redisClient.Close()

	eventBus := NewRedisEventBus(redisClient)
	defer eventBus.Close()

	channel := providers.EventChannelTutorUpdates
	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel1()
	defer cancel2()

	sub1, err := eventBus.Subscribe(ctx1, channel)
	require.NoError(t, err)
	sub2, err := eventBus.Subscribe(ctx2, channel)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	event := entities.NewTutorEvent("tutor-redis-1", entities.TutorEventTypeAvailabilityUpdated)
	require.NoError(t, eventBus.Publish(context.Background(), channel, event))

	received1 := waitForTutorEvent(t, sub1)
	received2 := waitForTutorEvent(t, sub2)

	assert.Equal(t, event.ID, received1.ID)
	assert.Equal(t, event.ID, received2.ID)
	assert.Equal(t, entities.TutorEventTypeAvailabilityUpdated, received1.EventType)
}

func TestRedisEventBusCancelledSubscriberIntegration(t *testing.T) {
	redisClient := newTestRedisClient(t)
	defer redisClient.Close()

	eventBus := NewRedisEventBus(redisClient)
	defer eventBus.Close()

	channel := providers.EventChannelTutorPrefix + "cancel-test"
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := eventBus.Subscribe(ctx, channel)
	require.NoError(t, err)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-sub:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)
}
