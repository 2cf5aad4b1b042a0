package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/tutorscheduler/backend/internal/api/handlers"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/tutorscheduler/backend/pkg/errors"
)

func TestAdminHandler(t *testing.T) {
	t.Run("list users hides password hashes", func(t *testing.T) {
		svc := new(MockIdentityService)
		handler := handlers.NewAdminHandler(svc)
		svc.On("ListUsers", mock.Anything).Return([]*entities.User{
			{ID: "u1", Email: "ada@example.com", PasswordHash: "$2a$10$secret"},
		}, nil)

		w := httptest.NewRecorder()
		handler.ListUsers(w, httptest.NewRequest(http.MethodGet, "/api/users", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "ada@example.com")
		assert.NotContains(t, w.Body.String(), "secret")
	})

	t.Run("delete by id", func(t *testing.T) {
		svc := new(MockIdentityService)
		handler := handlers.NewAdminHandler(svc)
		svc.On("DeleteUser", mock.Anything, "u1").Return(nil)
		svc.On("DeleteUser", mock.Anything, "u2").Return(apperrors.NewNotFoundError(entities.MsgUserNotFound))

		req := httptest.NewRequest(http.MethodDelete, "/api/users/u1", nil)
		req.SetPathValue("id", "u1")
		w := httptest.NewRecorder()
		handler.DeleteUser(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		req = httptest.NewRequest(http.MethodDelete, "/api/users/u2", nil)
		req.SetPathValue("id", "u2")
		w = httptest.NewRecorder()
		handler.DeleteUser(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("delete by email", func(t *testing.T) {
		svc := new(MockIdentityService)
		handler := handlers.NewAdminHandler(svc)
		svc.On("DeleteUserByEmail", mock.Anything, "ada@example.com").Return(nil)

		req := httptest.NewRequest(http.MethodDelete, "/api/users/email/ada@example.com", nil)
		req.SetPathValue("email", "ada@example.com")
		w := httptest.NewRecorder()
		handler.DeleteUserByEmail(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})
}
