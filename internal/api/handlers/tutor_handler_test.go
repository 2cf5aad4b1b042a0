package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/tutorscheduler/backend/internal/api/handlers"
	"github.com/zatekoja/tutorscheduler/backend/internal/api/middleware"
	"github.com/zatekoja/tutorscheduler/backend/internal/application/services"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/tutorscheduler/backend/pkg/errors"
)

var tutorPrincipal = &entities.Principal{UserID: "t1", Role: entities.RoleTutor}

func asTutor(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithPrincipal(req.Context(), tutorPrincipal))
}

func TestTutorHandler_SearchTutors(t *testing.T) {
	t.Run("passes filters and returns an array", func(t *testing.T) {
		search := new(MockSearchService)
		handler := handlers.NewTutorHandler(new(MockTutorService), search)
		search.On("Search", mock.Anything, repositories.TutorSearchParams{Course: "MAC 2313", Day: "Monday"}).
			Return([]*entities.User{{ID: "t1", FirstName: "Ada"}}, nil)

		w := httptest.NewRecorder()
		handler.SearchTutors(w, httptest.NewRequest(http.MethodGet, "/api/tutors/search?course=MAC+2313&day=Monday", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"firstName":"Ada"`)
		search.AssertExpectations(t)
	})

	t.Run("empty result is an empty array", func(t *testing.T) {
		search := new(MockSearchService)
		handler := handlers.NewTutorHandler(new(MockTutorService), search)
		search.On("Search", mock.Anything, mock.Anything).Return([]*entities.User{}, nil)

		w := httptest.NewRecorder()
		handler.SearchTutors(w, httptest.NewRequest(http.MethodGet, "/api/tutors/search", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("filters match stored values exactly", func(t *testing.T) {
		search := new(MockSearchService)
		handler := handlers.NewTutorHandler(new(MockTutorService), search)
		search.On("Search", mock.Anything, repositories.TutorSearchParams{Course: "MAC 2313 ", Day: " Monday"}).
			Return([]*entities.User{}, nil)

		w := httptest.NewRecorder()
		handler.SearchTutors(w, httptest.NewRequest(http.MethodGet, "/api/tutors/search?course=MAC%202313%20&day=%20Monday", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		search.AssertExpectations(t)
	})
}

func TestTutorHandler_GetTutor(t *testing.T) {
	tutors := new(MockTutorService)
	handler := handlers.NewTutorHandler(tutors, new(MockSearchService))
	tutors.On("GetTutor", mock.Anything, "missing").Return(nil, apperrors.NewNotFoundError(entities.MsgTutorNotFound))

	req := httptest.NewRequest(http.MethodGet, "/api/tutors/missing", nil)
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()
	handler.GetTutor(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, entities.MsgTutorNotFound, decodeBody(t, w)["error"])
}

func TestTutorHandler_Courses(t *testing.T) {
	t.Run("add", func(t *testing.T) {
		tutors := new(MockTutorService)
		handler := handlers.NewTutorHandler(tutors, new(MockSearchService))
		tutors.On("AddCourse", mock.Anything, tutorPrincipal, "t1", "MAC 2313").Return([]string{"MAC 2313"}, nil)

		req := asTutor(httptest.NewRequest(http.MethodPost, "/api/tutors/t1/courses", bytes.NewBufferString(`{"course":"MAC 2313"}`)))
		req.SetPathValue("id", "t1")
		w := httptest.NewRecorder()
		handler.AddCourse(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []interface{}{"MAC 2313"}, decodeBody(t, w)["courses"])
	})

	t.Run("missing course", func(t *testing.T) {
		tutors := new(MockTutorService)
		handler := handlers.NewTutorHandler(tutors, new(MockSearchService))

		req := asTutor(httptest.NewRequest(http.MethodPost, "/api/tutors/t1/courses", bytes.NewBufferString(`{}`)))
		req.SetPathValue("id", "t1")
		w := httptest.NewRecorder()
		handler.AddCourse(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		tutors.AssertNotCalled(t, "AddCourse", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("other tutor is forbidden", func(t *testing.T) {
		tutors := new(MockTutorService)
		handler := handlers.NewTutorHandler(tutors, new(MockSearchService))
		tutors.On("RemoveCourse", mock.Anything, tutorPrincipal, "t2", "MAC 2313").
			Return(nil, apperrors.NewForbiddenError("not allowed to act on this tutor"))

		req := asTutor(httptest.NewRequest(http.MethodDelete, "/api/tutors/t2/courses/MAC%202313", nil))
		req.SetPathValue("id", "t2")
		req.SetPathValue("course", "MAC 2313")
		w := httptest.NewRecorder()
		handler.RemoveCourse(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestTutorHandler_Availability(t *testing.T) {
	t.Run("add returns the ordered list", func(t *testing.T) {
		tutors := new(MockTutorService)
		handler := handlers.NewTutorHandler(tutors, new(MockSearchService))
		in := services.SlotInput{Day: "Monday", StartTime: "09:00", EndTime: "10:00"}
		tutors.On("AddAvailability", mock.Anything, tutorPrincipal, "t1", in).
			Return([]entities.Slot{{ID: "s1", Day: "Monday", StartTime: "09:00", EndTime: "10:00"}}, nil)

		req := asTutor(httptest.NewRequest(http.MethodPost, "/api/tutors/t1/availability",
			bytes.NewBufferString(`{"day":"Monday","startTime":"09:00","endTime":"10:00"}`)))
		req.SetPathValue("id", "t1")
		w := httptest.NewRecorder()
		handler.AddAvailability(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		slots := decodeBody(t, w)["availability"].([]interface{})
		assert.Len(t, slots, 1)
		assert.Equal(t, "s1", slots[0].(map[string]interface{})["id"])
	})

	t.Run("overlap is a conflict", func(t *testing.T) {
		tutors := new(MockTutorService)
		handler := handlers.NewTutorHandler(tutors, new(MockSearchService))
		tutors.On("AddAvailability", mock.Anything, mock.Anything, "t1", mock.Anything).
			Return(nil, apperrors.NewConflictError(entities.MsgSlotOverlaps))

		req := asTutor(httptest.NewRequest(http.MethodPost, "/api/tutors/t1/availability",
			bytes.NewBufferString(`{"day":"Monday","startTime":"09:30","endTime":"10:30"}`)))
		req.SetPathValue("id", "t1")
		w := httptest.NewRecorder()
		handler.AddAvailability(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("remove passes the slot reference through", func(t *testing.T) {
		tutors := new(MockTutorService)
		handler := handlers.NewTutorHandler(tutors, new(MockSearchService))
		tutors.On("RemoveAvailability", mock.Anything, tutorPrincipal, "t1", "0").Return([]entities.Slot{}, nil)

		req := asTutor(httptest.NewRequest(http.MethodDelete, "/api/tutors/t1/availability/0", nil))
		req.SetPathValue("id", "t1")
		req.SetPathValue("slot", "0")
		w := httptest.NewRecorder()
		handler.RemoveAvailability(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []interface{}{}, decodeBody(t, w)["availability"])
		tutors.AssertExpectations(t)
	})
}
