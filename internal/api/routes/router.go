package routes

import (
	"net/http"

	"github.com/zatekoja/tutorscheduler/backend/internal/api/handlers"
	"github.com/zatekoja/tutorscheduler/backend/internal/api/middleware"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
)

// Config carries the router's collaborators. SSEHandler, AdminHandler,
// CacheMiddleware and Metrics may be nil.
type Config struct {
	AuthHandler    *handlers.AuthHandler
	TutorHandler   *handlers.TutorHandler
	BookingHandler *handlers.BookingHandler
	AdminHandler   *handlers.AdminHandler
	SSEHandler     *handlers.SSEHandler

	Tokens         middleware.TokenParser
	Users          repositories.UserRepository
	AdminAPIKey    string
	AllowedOrigins []string

	CacheMiddleware *middleware.CacheMiddleware
	Metrics         *observability.Metrics
}

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux
	cfg Config
}

// NewRouter creates a new router
func NewRouter(cfg Config) *Router {
	return &Router{
		mux: http.NewServeMux(),
		cfg: cfg,
	}
}

func (r *Router) handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, middleware.TagRoute(h))
}

func (r *Router) authed(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, middleware.TagRoute(middleware.RequireAuth(r.cfg.Tokens)(h).ServeHTTP))
}

func (r *Router) admin(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, middleware.TagRoute(middleware.RequireAdminKey(r.cfg.AdminAPIKey)(h).ServeHTTP))
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.handle("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Identity
	r.handle("POST /api/signup", r.cfg.AuthHandler.Signup)
	r.handle("POST /api/login", r.cfg.AuthHandler.Login)
	r.authed("GET /api/me", r.cfg.AuthHandler.Me)

	// Tutors
	r.handle("GET /api/tutors/search", r.cfg.TutorHandler.SearchTutors)
	r.handle("GET /api/tutors/{id}", r.cfg.TutorHandler.GetTutor)
	r.authed("POST /api/tutors/{id}/courses", r.cfg.TutorHandler.AddCourse)
	r.authed("DELETE /api/tutors/{id}/courses/{course}", r.cfg.TutorHandler.RemoveCourse)
	r.authed("POST /api/tutors/{id}/availability", r.cfg.TutorHandler.AddAvailability)
	r.authed("DELETE /api/tutors/{id}/availability/{slot}", r.cfg.TutorHandler.RemoveAvailability)

	// Bookings
	r.authed("GET /api/tutors/{id}/bookings", r.cfg.BookingHandler.ListTutorBookings)
	r.authed("GET /api/students/{id}/bookings", r.cfg.BookingHandler.ListStudentBookings)
	r.authed("POST /api/bookings", r.cfg.BookingHandler.CreateBooking)
	r.authed("PUT /api/bookings/{id}/status", r.cfg.BookingHandler.UpdateStatus)
	r.authed("DELETE /api/bookings/{id}", r.cfg.BookingHandler.CancelBooking)

	// Live updates
	if r.cfg.SSEHandler != nil {
		r.handle("GET /api/tutors/events", r.cfg.SSEHandler.StreamAllUpdates)
		r.handle("GET /api/tutors/{id}/events", r.cfg.SSEHandler.StreamTutorUpdates)
	}

	// User administration
	if r.cfg.AdminHandler != nil {
		r.admin("GET /api/users", r.cfg.AdminHandler.ListUsers)
		r.admin("DELETE /api/users/{id}", r.cfg.AdminHandler.DeleteUser)
		r.admin("DELETE /api/users/email/{email}", r.cfg.AdminHandler.DeleteUserByEmail)
	}

	// Apply middleware in reverse order (last middleware wraps first).
	// CORS is outermost so cached responses also get CORS headers.
	var handler http.Handler = r.mux
	if r.cfg.Users != nil {
		handler = middleware.LoadersMiddleware(r.cfg.Users)(handler)
	}
	if r.cfg.CacheMiddleware != nil {
		handler = r.cfg.CacheMiddleware.Middleware(handler)
	}
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.cfg.Metrics)(handler)
	handler = middleware.CORSMiddleware(r.cfg.AllowedOrigins)(handler)

	return handler
}
