package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/providers"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/tutorscheduler/backend/pkg/errors"
)

// IndexSyncService keeps the tutor search index in step with the user store.
// Writes in this process call TutorChanged directly; tutor events cover the rest.
type IndexSyncService struct {
	users    repositories.UserRepository
	index    repositories.TutorSearchRepository
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewIndexSyncService creates a new index sync service
func NewIndexSyncService(users repositories.UserRepository, index repositories.TutorSearchRepository, eventBus providers.EventBus) *IndexSyncService {
	ctx, cancel := context.WithCancel(context.Background())
	return &IndexSyncService{
		users:    users,
		index:    index,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins listening for tutor events
func (s *IndexSyncService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelTutorUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to tutor updates: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.ctx.Done():
				return
			case event, ok := <-eventChan:
				if !ok {
					return
				}
				if event == nil || event.EventType == entities.TutorEventTypeBookingChanged {
					continue
				}
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := s.Sync(ctx, event.TutorID); err != nil {
					observability.GetLogger().Warn().
						Err(err).
						Str("tutor_id", event.TutorID).
						Msg("Failed to sync tutor index")
				}
				cancel()
			}
		}
	}()

	observability.GetLogger().Info().Msg("Tutor index sync started")
	return nil
}

// Stop stops the worker
func (s *IndexSyncService) Stop() {
	s.cancel()
	s.wg.Wait()
}

// TutorChanged reindexes the tutor as part of the write that changed it, so
// search sees the change without waiting for the event
func (s *IndexSyncService) TutorChanged(ctx context.Context, tutorID string, eventType entities.TutorEventType) {
	if eventType == entities.TutorEventTypeBookingChanged {
		return
	}
	if err := s.Sync(ctx, tutorID); err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("tutor_id", tutorID).
			Msg("Failed to sync tutor index, leaving it to the event worker")
	}
}

// Sync indexes the tutor's current record, or drops it when the user is gone
func (s *IndexSyncService) Sync(ctx context.Context, tutorID string) error {
	user, err := s.users.GetByID(ctx, tutorID)
	if apperrors.IsNotFound(err) {
		return s.index.Delete(ctx, tutorID)
	}
	if err != nil {
		return err
	}
	if !user.IsTutor() {
		return s.index.Delete(ctx, tutorID)
	}
	return s.index.Index(ctx, user)
}

// ReindexAll indexes every tutor in the store and returns how many were written
func (s *IndexSyncService) ReindexAll(ctx context.Context) (int, error) {
	tutors, err := s.users.SearchTutors(ctx, "")
	if err != nil {
		return 0, err
	}

	indexed := 0
	for _, tutor := range tutors {
		if err := s.index.Index(ctx, tutor); err != nil {
			return indexed, fmt.Errorf("failed to index tutor %s: %w", tutor.ID, err)
		}
		indexed++
	}
	return indexed, nil
}
