package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/providers"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
)

// userByIDTTL bounds how long a profile read can lag behind a write made by another instance
const userByIDTTL = 60

// UserCacheKey returns the cache key of a user profile
func UserCacheKey(id string) string {
	return fmt.Sprintf("user:%s", id)
}

// cachedUser carries the slot positions entities.User hides from JSON.
// The password hash stays out of the cache; login reads it by email.
type cachedUser struct {
	entities.User
	Slots    []cachedSlot `json:"slots"`
	CachedAt time.Time    `json:"cached_at"`
}

type cachedSlot struct {
	entities.Slot
	Position int `json:"position"`
}

func toCached(u *entities.User) cachedUser {
	c := cachedUser{User: *u, CachedAt: time.Now().UTC()}
	for _, s := range u.Availability {
		c.Slots = append(c.Slots, cachedSlot{Slot: s, Position: s.Position})
	}
	return c
}

func (c cachedUser) toEntity() *entities.User {
	u := c.User
	u.Availability = make([]entities.Slot, 0, len(c.Slots))
	for _, s := range c.Slots {
		slot := s.Slot
		slot.Position = s.Position
		u.Availability = append(u.Availability, slot)
	}
	if u.Courses == nil {
		u.Courses = []string{}
	}
	return &u
}

// CachedUserAdapter wraps a UserRepository with a read-through profile cache.
// Every mutation drops the cached profile before returning.
type CachedUserAdapter struct {
	repositories.UserRepository
	cache   providers.CacheProvider
	metrics *observability.Metrics
}

// NewCachedUserAdapter creates a new cached user adapter
func NewCachedUserAdapter(adapter repositories.UserRepository, cache providers.CacheProvider, metrics *observability.Metrics) repositories.UserRepository {
	return &CachedUserAdapter{
		UserRepository: adapter,
		cache:          cache,
		metrics:        metrics,
	}
}

// GetByID retrieves a user by ID with caching
func (a *CachedUserAdapter) GetByID(ctx context.Context, id string) (*entities.User, error) {
	logger := observability.LoggerFromContext(ctx)
	key := UserCacheKey(id)

	if data, err := a.cache.Get(ctx, key); err == nil {
		var c cachedUser
		if err := json.Unmarshal(data, &c); err == nil {
			observability.RecordCacheHit(ctx, a.metrics, "user")
			return c.toEntity(), nil
		}
		logger.Warn().Err(err).Str("user_id", id).Msg("Failed to unmarshal cached user")
	}
	observability.RecordCacheMiss(ctx, a.metrics, "user")

	user, err := a.UserRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(toCached(user)); err == nil {
		if err := a.cache.Set(ctx, key, data, userByIDTTL); err != nil {
			logger.Warn().Err(err).Str("user_id", id).Msg("Failed to cache user")
		}
	}
	return user, nil
}

// Delete deletes a user and drops the cached profile
func (a *CachedUserAdapter) Delete(ctx context.Context, id string) (*entities.User, error) {
	user, err := a.UserRepository.Delete(ctx, id)
	a.invalidate(ctx, id)
	return user, err
}

// DeleteByEmail deletes a user by email and drops the cached profile
func (a *CachedUserAdapter) DeleteByEmail(ctx context.Context, email string) (*entities.User, error) {
	user, err := a.UserRepository.DeleteByEmail(ctx, email)
	if user != nil {
		a.invalidate(ctx, user.ID)
	}
	return user, err
}

// AddCourse adds a course and drops the cached profile
func (a *CachedUserAdapter) AddCourse(ctx context.Context, tutorID, course string) ([]string, error) {
	courses, err := a.UserRepository.AddCourse(ctx, tutorID, course)
	a.invalidate(ctx, tutorID)
	return courses, err
}

// RemoveCourse removes a course and drops the cached profile
func (a *CachedUserAdapter) RemoveCourse(ctx context.Context, tutorID, course string) ([]string, error) {
	courses, err := a.UserRepository.RemoveCourse(ctx, tutorID, course)
	a.invalidate(ctx, tutorID)
	return courses, err
}

// AddSlot adds availability and drops the cached profile
func (a *CachedUserAdapter) AddSlot(ctx context.Context, tutorID string, slot entities.Slot) ([]entities.Slot, error) {
	slots, err := a.UserRepository.AddSlot(ctx, tutorID, slot)
	a.invalidate(ctx, tutorID)
	return slots, err
}

// RemoveSlot removes availability and drops the cached profile
func (a *CachedUserAdapter) RemoveSlot(ctx context.Context, tutorID string, ref repositories.SlotRef) ([]entities.Slot, error) {
	slots, err := a.UserRepository.RemoveSlot(ctx, tutorID, ref)
	a.invalidate(ctx, tutorID)
	return slots, err
}

func (a *CachedUserAdapter) invalidate(ctx context.Context, id string) {
	if err := a.cache.Delete(ctx, UserCacheKey(id)); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("user_id", id).Msg("Failed to invalidate cached user")
	}
}
