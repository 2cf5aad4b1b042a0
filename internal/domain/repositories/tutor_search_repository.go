package repositories

import (
	"context"

	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
)

// TutorSearchParams filters a tutor search. Empty fields do not filter.
type TutorSearchParams struct {
	Course string
	Day    string
}

// TutorSearchRepository is a secondary index over tutors
type TutorSearchRepository interface {
	// Index upserts the tutor's search document
	Index(ctx context.Context, tutor *entities.User) error

	// Delete removes a tutor from the index
	Delete(ctx context.Context, id string) error

	// SearchIDs returns ids of tutors matching params
	SearchIDs(ctx context.Context, params TutorSearchParams) ([]string, error)
}
