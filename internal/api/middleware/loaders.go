package middleware

import (
	"net/http"

	"github.com/zatekoja/tutorscheduler/backend/internal/application/loaders"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
)

// LoadersMiddleware attaches a fresh set of dataloaders to each request
func LoadersMiddleware(users repositories.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := loaders.WithLoaders(r.Context(), loaders.NewLoaders(users))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
