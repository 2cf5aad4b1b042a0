package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/tutorscheduler/backend/pkg/errors"
)

// UserStore implements repositories.UserRepository in memory
type UserStore struct {
	s *Store
}

var _ repositories.UserRepository = (*UserStore)(nil)

func (r *UserStore) findByEmail(email string) *entities.User {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, id := range r.s.order {
		if u := r.s.users[id]; strings.ToLower(u.Email) == email {
			return u
		}
	}
	return nil
}

// Create creates a new user
func (r *UserStore) Create(ctx context.Context, user *entities.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.findByEmail(user.Email) != nil {
		return apperrors.NewConflictError(entities.MsgUserAlreadyExists)
	}
	if user.Courses == nil {
		user.Courses = []string{}
	}
	if user.Availability == nil {
		user.Availability = []entities.Slot{}
	}
	for i := range user.Availability {
		if user.Availability[i].ID == "" {
			user.Availability[i].ID = uuid.NewString()
		}
		user.Availability[i].Position = i
	}

	r.s.users[user.ID] = cloneUser(user)
	r.s.order = append(r.s.order, user.ID)
	return nil
}

// GetByID retrieves a user by ID
func (r *UserStore) GetByID(ctx context.Context, id string) (*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(entities.MsgUserNotFound)
	}
	return cloneUser(u), nil
}

// GetByIDs retrieves the users that exist among ids
func (r *UserStore) GetByIDs(ctx context.Context, ids []string) ([]*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*entities.User{}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

// GetByEmail retrieves a user by email, case-insensitively
func (r *UserStore) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u := r.findByEmail(email)
	if u == nil {
		return nil, apperrors.NewNotFoundError(entities.MsgUserNotFound)
	}
	return cloneUser(u), nil
}

// List returns all users in creation order
func (r *UserStore) List(ctx context.Context) ([]*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*entities.User, 0, len(r.s.order))
	for _, id := range r.s.order {
		out = append(out, cloneUser(r.s.users[id]))
	}
	return out, nil
}

// Delete deletes a user; bookings stay
func (r *UserStore) Delete(ctx context.Context, id string) (*entities.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(entities.MsgUserNotFound)
	}
	r.remove(id)
	return cloneUser(u), nil
}

// DeleteByEmail deletes a user by email
func (r *UserStore) DeleteByEmail(ctx context.Context, email string) (*entities.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u := r.findByEmail(email)
	if u == nil {
		return nil, apperrors.NewNotFoundError(entities.MsgUserNotFound)
	}
	r.remove(u.ID)
	return cloneUser(u), nil
}

func (r *UserStore) remove(id string) {
	delete(r.s.users, id)
	for i, oid := range r.s.order {
		if oid == id {
			r.s.order = append(r.s.order[:i], r.s.order[i+1:]...)
			break
		}
	}
}

// tutor returns the stored tutor record; callers hold the lock
func (r *UserStore) tutor(id string) (*entities.User, error) {
	u, ok := r.s.users[id]
	if !ok || !u.IsTutor() {
		return nil, apperrors.NewNotFoundError(entities.MsgTutorNotFound)
	}
	return u, nil
}

// AddCourse appends course unless already listed
func (r *UserStore) AddCourse(ctx context.Context, tutorID, course string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, err := r.tutor(tutorID)
	if err != nil {
		return nil, err
	}
	if !t.HasCourse(course) {
		t.Courses = append(t.Courses, course)
		t.UpdatedAt = time.Now().UTC()
	}
	return append([]string{}, t.Courses...), nil
}

// RemoveCourse removes course if listed
func (r *UserStore) RemoveCourse(ctx context.Context, tutorID, course string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, err := r.tutor(tutorID)
	if err != nil {
		return nil, err
	}
	kept := make([]string, 0, len(t.Courses))
	for _, c := range t.Courses {
		if c != course {
			kept = append(kept, c)
		}
	}
	if len(kept) != len(t.Courses) {
		t.Courses = kept
		t.UpdatedAt = time.Now().UTC()
	}
	return append([]string{}, t.Courses...), nil
}

// AddSlot appends slot after the tutor's last slot
func (r *UserStore) AddSlot(ctx context.Context, tutorID string, slot entities.Slot) ([]entities.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, err := r.tutor(tutorID)
	if err != nil {
		return nil, err
	}
	if err := entities.CheckSlotFits(t.Availability, slot); err != nil {
		return nil, err
	}

	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	slot.Position = 0
	if n := len(t.Availability); n > 0 {
		slot.Position = t.Availability[n-1].Position + 1
	}
	t.Availability = append(t.Availability, slot)
	t.UpdatedAt = time.Now().UTC()
	return append([]entities.Slot{}, t.Availability...), nil
}

// RemoveSlot removes the referenced slot; an unresolvable reference is a no-op
func (r *UserStore) RemoveSlot(ctx context.Context, tutorID string, ref repositories.SlotRef) ([]entities.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, err := r.tutor(tutorID)
	if err != nil {
		return nil, err
	}

	i := -1
	if ref.Index != nil {
		if *ref.Index >= 0 && *ref.Index < len(t.Availability) {
			i = *ref.Index
		}
	} else {
		for j, s := range t.Availability {
			if s.ID == ref.ID {
				i = j
				break
			}
		}
	}
	if i >= 0 {
		t.Availability = append(append([]entities.Slot{}, t.Availability[:i]...), t.Availability[i+1:]...)
		t.UpdatedAt = time.Now().UTC()
	}
	return append([]entities.Slot{}, t.Availability...), nil
}

// SearchTutors returns tutors offering course, or all tutors when course is empty
func (r *UserStore) SearchTutors(ctx context.Context, course string) ([]*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*entities.User{}
	for _, id := range r.s.order {
		u := r.s.users[id]
		if !u.IsTutor() {
			continue
		}
		if course != "" && !u.HasCourse(course) {
			continue
		}
		out = append(out, cloneUser(u))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
