package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
)

// UserAdminService defines the user administration operations
type UserAdminService interface {
	ListUsers(ctx context.Context) ([]*entities.User, error)
	DeleteUser(ctx context.Context, id string) error
	DeleteUserByEmail(ctx context.Context, email string) error
}

// AdminHandler handles user administration behind the admin key
type AdminHandler struct {
	service UserAdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(service UserAdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

// ListUsers handles GET /api/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, users)
}

// DeleteUser handles DELETE /api/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

// DeleteUserByEmail handles DELETE /api/users/email/{email}
func (h *AdminHandler) DeleteUserByEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUserByEmail(r.Context(), r.PathValue("email")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}
