package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
	"go.opentelemetry.io/otel/attribute"
)

const routeKey ctxKey = "route"

// routeHolder receives the matched mux pattern. The mux sets Request.Pattern
// on the request it dispatches, which outer middleware never sees.
type routeHolder struct {
	pattern string
}

func ensureRouteHolder(ctx context.Context) (context.Context, *routeHolder) {
	if h, ok := ctx.Value(routeKey).(*routeHolder); ok {
		return ctx, h
	}
	h := &routeHolder{}
	return context.WithValue(ctx, routeKey, h), h
}

func (h *routeHolder) route(r *http.Request) string {
	if h.pattern != "" {
		return h.pattern
	}
	return r.URL.Path
}

// TagRoute records the matched pattern for the logging and metrics middleware.
// Wrap every handler registered on the mux with it.
func TagRoute(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h, ok := r.Context().Value(routeKey).(*routeHolder); ok {
			h.pattern = r.Pattern
		}
		next(w, r)
	}
}

// ObservabilityMiddleware adds OpenTelemetry tracing and metrics to HTTP requests
func ObservabilityMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, holder := ensureRouteHolder(r.Context())

			ctx, span := observability.StartSpan(ctx, r.Method+" request")
			defer span.End()

			observability.SetSpanAttributes(span,
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			)

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(rw, r.WithContext(ctx))

			// Use the route pattern instead of the raw path to keep cardinality low
			route := holder.route(r)
			span.SetName(r.Method + " " + route)
			observability.RecordRequestMetric(ctx, metrics, r.Method, route, rw.statusCode, time.Since(start))
			observability.SetSpanAttributes(span,
				attribute.String("http.route", route),
				attribute.Int("http.status_code", rw.statusCode),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
