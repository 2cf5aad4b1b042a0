package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/tutorscheduler/backend/internal/api/middleware"
	"github.com/zatekoja/tutorscheduler/backend/internal/application/services"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
)

// BookingService defines the booking operations used by BookingHandler
type BookingService interface {
	Create(ctx context.Context, actor *entities.Principal, in services.CreateBookingInput) (*entities.Booking, error)
	UpdateStatus(ctx context.Context, actor *entities.Principal, bookingID string, status entities.BookingStatus) (*entities.Booking, error)
	Cancel(ctx context.Context, actor *entities.Principal, bookingID string) (*entities.Booking, error)
	ListForTutor(ctx context.Context, actor *entities.Principal, tutorID string) ([]entities.TutorBookingView, error)
	ListForStudent(ctx context.Context, actor *entities.Principal, studentID string) ([]entities.StudentBookingView, error)
}

// BookingHandler handles booking requests
type BookingHandler struct {
	service BookingService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(service BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

type statusRequest struct {
	Status string `json:"status" validate:"booking_status"`
}

// CreateBooking handles POST /api/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req services.CreateBookingInput
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	booking, err := h.service.Create(r.Context(), middleware.PrincipalFromContext(r.Context()), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithMessage(w, http.StatusCreated, "Booking created successfully", map[string]interface{}{
		"booking": booking,
	})
}

// UpdateStatus handles PUT /api/bookings/{id}/status
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	booking, err := h.service.UpdateStatus(r.Context(), middleware.PrincipalFromContext(r.Context()), r.PathValue("id"), entities.BookingStatus(req.Status))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithMessage(w, http.StatusOK, "Booking status updated", map[string]interface{}{
		"booking": booking,
	})
}

// CancelBooking handles DELETE /api/bookings/{id}
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.Cancel(r.Context(), middleware.PrincipalFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithMessage(w, http.StatusOK, "Booking cancelled", map[string]interface{}{
		"booking": booking,
	})
}

// ListTutorBookings handles GET /api/tutors/{id}/bookings
func (h *BookingHandler) ListTutorBookings(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListForTutor(r.Context(), middleware.PrincipalFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, views)
}

// ListStudentBookings handles GET /api/students/{id}/bookings
func (h *BookingHandler) ListStudentBookings(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListForStudent(r.Context(), middleware.PrincipalFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, views)
}
