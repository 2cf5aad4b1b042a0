package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/providers"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
)

// CacheInvalidationService evicts cached search responses whenever a tutor changes
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins listening for tutor events
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelTutorUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to tutor updates: %w", err)
	}

	s.wg.Add(1)
	go s.processEvents(eventChan)
	observability.GetLogger().Info().Msg("Cache invalidation service started")
	return nil
}

// Stop stops the worker and waits for the in-flight event to finish
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	s.wg.Wait()
	observability.GetLogger().Info().Msg("Cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.TutorEvent) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

func (s *CacheInvalidationService) handleEvent(event *entities.TutorEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger := observability.GetLogger().With().
		Str("event_id", event.ID).
		Str("tutor_id", event.TutorID).
		Str("event_type", string(event.EventType)).
		Logger()

	// Booking changes do not alter search results
	if event.EventType == entities.TutorEventTypeBookingChanged {
		logger.Debug().Msg("Skipping cache invalidation")
		return
	}

	if err := s.InvalidateSearchCaches(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to invalidate search cache")
		return
	}
	logger.Debug().Msg("Invalidated search cache")
}

// TutorChanged evicts cached search responses as part of the write that
// made them stale
func (s *CacheInvalidationService) TutorChanged(ctx context.Context, tutorID string, eventType entities.TutorEventType) {
	if eventType == entities.TutorEventTypeBookingChanged {
		return
	}
	if err := s.InvalidateSearchCaches(ctx); err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("tutor_id", tutorID).
			Msg("Failed to invalidate search cache")
	}
}

// InvalidateSearchCaches evicts every cached tutor search response
func (s *CacheInvalidationService) InvalidateSearchCaches(ctx context.Context) error {
	pattern := providers.HTTPCacheNamespacePattern(providers.HTTPCacheTutorSearch)
	if err := s.cache.DeletePattern(ctx, pattern); err != nil {
		return fmt.Errorf("failed to invalidate pattern %s: %w", pattern, err)
	}
	return nil
}
