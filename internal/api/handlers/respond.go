package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zatekoja/tutorscheduler/backend/internal/application/validation"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/tutorscheduler/backend/pkg/errors"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

func respondWithMessage(w http.ResponseWriter, statusCode int, message string, fields map[string]interface{}) {
	body := map[string]interface{}{"message": message}
	for k, v := range fields {
		body[k] = v
	}
	respondWithJSON(w, statusCode, body)
}

// statusFor maps an error kind to its HTTP status. Invalid credentials are
// reported as 400 like every other rejected login form.
func statusFor(err error, unauthorizedAsBadRequest bool) int {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict
	case apperrors.ErrorTypeUnauthorized:
		if unauthorizedAsBadRequest {
			return http.StatusBadRequest
		}
		return http.StatusUnauthorized
	case apperrors.ErrorTypeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error, unauthorizedAsBadRequest bool) {
	status := statusFor(err, unauthorizedAsBadRequest)
	if status == http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
		respondWithError(w, status, "internal server error")
		return
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		respondWithError(w, status, err.Error())
		return
	}

	if len(appErr.Fields) > 0 {
		respondWithJSON(w, status, map[string]interface{}{
			"error":  appErr.Message,
			"fields": appErr.Fields,
		})
		return
	}
	respondWithError(w, status, appErr.Message)
}

// conflictAsValidation reports a Conflict as a validation failure with the same message
func conflictAsValidation(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeConflict {
		return apperrors.NewValidationError(appErr.Message)
	}
	return err
}

// respondWithAppError writes err using the standard kind to status mapping
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, err, false)
}

// decodeJSON reads a JSON body into dst and validates it
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid request payload")
	}
	return validation.Struct(dst)
}
