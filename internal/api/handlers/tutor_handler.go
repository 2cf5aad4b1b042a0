package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/tutorscheduler/backend/internal/api/middleware"
	"github.com/zatekoja/tutorscheduler/backend/internal/application/services"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
)

// TutorService defines the tutor profile operations used by TutorHandler
type TutorService interface {
	GetTutor(ctx context.Context, tutorID string) (*entities.User, error)
	AddCourse(ctx context.Context, actor *entities.Principal, tutorID, course string) ([]string, error)
	RemoveCourse(ctx context.Context, actor *entities.Principal, tutorID, course string) ([]string, error)
	AddAvailability(ctx context.Context, actor *entities.Principal, tutorID string, in services.SlotInput) ([]entities.Slot, error)
	RemoveAvailability(ctx context.Context, actor *entities.Principal, tutorID, ref string) ([]entities.Slot, error)
}

// SearchService defines tutor search
type SearchService interface {
	Search(ctx context.Context, params repositories.TutorSearchParams) ([]*entities.User, error)
}

// TutorHandler handles tutor profiles, courses, availability and search
type TutorHandler struct {
	tutors TutorService
	search SearchService
}

// NewTutorHandler creates a new tutor handler
func NewTutorHandler(tutors TutorService, search SearchService) *TutorHandler {
	return &TutorHandler{
		tutors: tutors,
		search: search,
	}
}

type courseRequest struct {
	Course string `json:"course" validate:"required,notblank"`
}

// SearchTutors handles GET /api/tutors/search?course=&day=
func (h *TutorHandler) SearchTutors(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := repositories.TutorSearchParams{
		Course: query.Get("course"),
		Day:    query.Get("day"),
	}

	tutors, err := h.search.Search(r.Context(), params)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, tutors)
}

// GetTutor handles GET /api/tutors/{id}
func (h *TutorHandler) GetTutor(w http.ResponseWriter, r *http.Request) {
	tutor, err := h.tutors.GetTutor(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, tutor)
}

// AddCourse handles POST /api/tutors/{id}/courses
func (h *TutorHandler) AddCourse(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	courses, err := h.tutors.AddCourse(r.Context(), middleware.PrincipalFromContext(r.Context()), r.PathValue("id"), req.Course)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithMessage(w, http.StatusOK, "Course added successfully", map[string]interface{}{
		"courses": courses,
	})
}

// RemoveCourse handles DELETE /api/tutors/{id}/courses/{course}
func (h *TutorHandler) RemoveCourse(w http.ResponseWriter, r *http.Request) {
	courses, err := h.tutors.RemoveCourse(r.Context(), middleware.PrincipalFromContext(r.Context()), r.PathValue("id"), r.PathValue("course"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithMessage(w, http.StatusOK, "Course removed successfully", map[string]interface{}{
		"courses": courses,
	})
}

// AddAvailability handles POST /api/tutors/{id}/availability
func (h *TutorHandler) AddAvailability(w http.ResponseWriter, r *http.Request) {
	var req services.SlotInput
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	slots, err := h.tutors.AddAvailability(r.Context(), middleware.PrincipalFromContext(r.Context()), r.PathValue("id"), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithMessage(w, http.StatusOK, "Availability added successfully", map[string]interface{}{
		"availability": slots,
	})
}

// RemoveAvailability handles DELETE /api/tutors/{id}/availability/{slot}
func (h *TutorHandler) RemoveAvailability(w http.ResponseWriter, r *http.Request) {
	slots, err := h.tutors.RemoveAvailability(r.Context(), middleware.PrincipalFromContext(r.Context()), r.PathValue("id"), r.PathValue("slot"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithMessage(w, http.StatusOK, "Availability removed successfully", map[string]interface{}{
		"availability": slots,
	})
}
