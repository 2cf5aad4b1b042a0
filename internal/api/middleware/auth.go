package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
)

type ctxKey string

const principalKey ctxKey = "principal"

// AdminKeyHeader carries the static key guarding user administration
const AdminKeyHeader = "X-Admin-Key"

// TokenParser turns a bearer token into the principal it was issued to
type TokenParser interface {
	Parse(token string) (*entities.Principal, error)
}

// WithPrincipal returns a copy of ctx carrying p
func WithPrincipal(ctx context.Context, p *entities.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated caller, or nil
func PrincipalFromContext(ctx context.Context) *entities.Principal {
	p, _ := ctx.Value(principalKey).(*entities.Principal)
	return p
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// RequireAuth rejects requests without a valid bearer token and stores the
// token's principal in the request context
func RequireAuth(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeUnauthorized(w, "authentication required")
				return
			}

			principal, err := tokens.Parse(token)
			if err != nil {
				observability.LoggerFromContext(r.Context()).Debug().Err(err).Msg("Rejected bearer token")
				writeUnauthorized(w, "invalid token")
				return
			}

			logger := observability.LoggerFromContext(r.Context()).With().
				Str("user_id", principal.UserID).
				Logger()
			ctx := observability.WithLogger(WithPrincipal(r.Context(), principal), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdminKey rejects requests whose X-Admin-Key does not match key.
// An empty key disables the guarded routes entirely.
func RequireAdminKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			given := r.Header.Get(AdminKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
				writeUnauthorized(w, "invalid admin key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
