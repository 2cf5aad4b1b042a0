package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
	tsclient "github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
)

const (
	collectionName = tsclient.TutorsCollection
	pageSize       = 250
	maxPages       = 40
)

var (
	// ErrUnfilterable is returned when a filter value cannot be quoted for
	// Typesense; callers answer from the record store instead
	ErrUnfilterable = errors.New("search value contains a backtick")

	// ErrTooManyHits is returned when a search matches more than maxPages pages
	ErrTooManyHits = errors.New("tutor search exceeded the index page limit")
)

// TypesenseAdapter implements tutor search using Typesense
type TypesenseAdapter struct {
	client *tsclient.Client
}

var _ repositories.TutorSearchRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// InitSchema ensures the collection exists
func (a *TypesenseAdapter) InitSchema(ctx context.Context) error {
	return a.client.InitSchema(ctx)
}

// Index upserts a tutor document
func (a *TypesenseAdapter) Index(ctx context.Context, tutor *entities.User) error {
	_, err := a.client.Client().Collection(collectionName).Documents().Upsert(ctx, BuildTutorDocument(tutor))
	if err != nil {
		return fmt.Errorf("failed to index tutor: %w", err)
	}
	return nil
}

// Delete removes a tutor from the index
func (a *TypesenseAdapter) Delete(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(collectionName).Document(id).Delete(ctx)
	var httpErr *typesense.HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete tutor from index: %w", err)
	}
	return nil
}

// SearchIDs returns ids of tutors whose courses and days contain the requested values
func (a *TypesenseAdapter) SearchIDs(ctx context.Context, params repositories.TutorSearchParams) ([]string, error) {
	filter, err := BuildFilter(params)
	if err != nil {
		return nil, err
	}

	ids := []string{}
	for page := 1; ; page++ {
		if page > maxPages {
			observability.LoggerFromContext(ctx).Warn().
				Int("hits", len(ids)).
				Str("filter", filter).
				Msg("Tutor search hit the index page limit")
			return nil, ErrTooManyHits
		}

		searchParams := &api.SearchCollectionParams{
			Q:       pointer.String("*"),
			QueryBy: pointer.String("last_name"),
			Page:    pointer.Int(page),
			PerPage: pointer.Int(pageSize),
		}
		if filter != "" {
			searchParams.FilterBy = pointer.String(filter)
		}

		result, err := a.client.Client().Collection(collectionName).Documents().Search(ctx, searchParams)
		if err != nil {
			return nil, fmt.Errorf("failed to search tutors: %w", err)
		}
		if result.Hits == nil {
			break
		}

		for _, hit := range *result.Hits {
			if hit.Document == nil {
				continue
			}
			if id, ok := (*hit.Document)["id"].(string); ok {
				ids = append(ids, id)
			}
		}
		if len(*result.Hits) < pageSize {
			break
		}
	}
	return ids, nil
}

// BuildTutorDocument maps a tutor to its search document
func BuildTutorDocument(tutor *entities.User) map[string]interface{} {
	courses := tutor.Courses
	if courses == nil {
		courses = []string{}
	}
	return map[string]interface{}{
		"id":         tutor.ID,
		"first_name": tutor.FirstName,
		"last_name":  tutor.LastName,
		"courses":    courses,
		"days":       uniqueDays(tutor.Availability),
		"created_at": tutor.CreatedAt.Unix(),
	}
}

// BuildFilter renders exact-match filters. Values are wrapped in backticks so
// spaces and commas are taken literally; a value holding a backtick cannot be
// quoted and yields ErrUnfilterable.
func BuildFilter(params repositories.TutorSearchParams) (string, error) {
	var clauses []string
	for _, f := range []struct{ field, value string }{
		{"courses", params.Course},
		{"days", params.Day},
	} {
		if f.value == "" {
			continue
		}
		if strings.Contains(f.value, "`") {
			return "", ErrUnfilterable
		}
		clauses = append(clauses, fmt.Sprintf("%s:=`%s`", f.field, f.value))
	}
	return strings.Join(clauses, " && "), nil
}

func uniqueDays(slots []entities.Slot) []string {
	days := []string{}
	seen := make(map[string]bool, len(slots))
	for _, s := range slots {
		if !seen[s.Day] {
			seen[s.Day] = true
			days = append(days, s.Day)
		}
	}
	return days
}
