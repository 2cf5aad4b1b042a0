package services

import (
	"context"
	"sort"
	"time"

	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
)

// SearchService finds tutors by course and day
type SearchService struct {
	users        repositories.UserRepository
	index        repositories.TutorSearchRepository
	queryTimeout time.Duration
}

// NewSearchService creates a new search service. index may be nil,
// in which case every search is answered by the user store.
func NewSearchService(users repositories.UserRepository, index repositories.TutorSearchRepository, queryTimeout time.Duration) *SearchService {
	return &SearchService{
		users:        users,
		index:        index,
		queryTimeout: queryTimeout,
	}
}

// Search returns tutors offering params.Course and, when params.Day is set,
// advertising at least one slot on that day. The result is never nil.
func (s *SearchService) Search(ctx context.Context, params repositories.TutorSearchParams) ([]*entities.User, error) {
	ctx, span := observability.StartSpan(ctx, "SearchService.Search")
	defer span.End()

	ctx, cancel := withQueryTimeout(ctx, s.queryTimeout)
	defer cancel()

	if s.index != nil {
		tutors, err := s.searchIndex(ctx, params)
		if err == nil {
			return tutors, nil
		}
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("course", params.Course).
			Str("day", params.Day).
			Msg("Tutor index search failed, falling back to store")
	}

	candidates, err := s.users.SearchTutors(ctx, params.Course)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	return filterTutors(candidates, params), nil
}

func (s *SearchService) searchIndex(ctx context.Context, params repositories.TutorSearchParams) ([]*entities.User, error) {
	ids, err := s.index.SearchIDs(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*entities.User{}, nil
	}

	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	tutors := filterTutors(users, params)
	sortTutors(tutors)
	return tutors, nil
}

func matchesSearch(u *entities.User, params repositories.TutorSearchParams) bool {
	if u == nil || !u.IsTutor() {
		return false
	}
	if params.Course != "" && !u.HasCourse(params.Course) {
		return false
	}
	if params.Day != "" && !u.AvailableOn(params.Day) {
		return false
	}
	return true
}

func filterTutors(users []*entities.User, params repositories.TutorSearchParams) []*entities.User {
	out := make([]*entities.User, 0, len(users))
	for _, u := range users {
		if matchesSearch(u, params) {
			out = append(out, u)
		}
	}
	return out
}

func sortTutors(tutors []*entities.User) {
	sort.Slice(tutors, func(i, j int) bool {
		a, b := tutors[i], tutors[j]
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return a.ID < b.ID
	})
}
