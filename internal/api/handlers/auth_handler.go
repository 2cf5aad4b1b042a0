package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/tutorscheduler/backend/internal/api/middleware"
	"github.com/zatekoja/tutorscheduler/backend/internal/application/services"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
)

// IdentityService defines the account operations used by AuthHandler
type IdentityService interface {
	Signup(ctx context.Context, in services.SignupInput) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	Me(ctx context.Context, actor *entities.Principal) (*entities.User, error)
}

// AuthHandler handles signup, login and the session's own profile
type AuthHandler struct {
	service IdentityService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service IdentityService) *AuthHandler {
	return &AuthHandler{service: service}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Signup handles POST /api/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupInput
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	res, err := h.service.Signup(r.Context(), req)
	if err != nil {
		// duplicate email is reported as a bad request
		writeError(w, r, conflictAsValidation(err), false)
		return
	}

	respondWithMessage(w, http.StatusCreated, "User created successfully", map[string]interface{}{
		"user":  res.User,
		"token": res.Token,
	})
}

// Login handles POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	res, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err, true)
		return
	}

	respondWithMessage(w, http.StatusOK, "Login successful", map[string]interface{}{
		"user":  res.User,
		"token": res.Token,
	})
}

// Me handles GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Me(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}
