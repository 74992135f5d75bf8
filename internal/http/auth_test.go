package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"dpgdoc-backend-go/internal/models"
	"dpgdoc-backend-go/internal/services"

	"github.com/stretchr/testify/assert"
)

func requestWithUser(user models.User) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	return r.WithContext(context.WithValue(r.Context(), ctxUser, user))
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireRole(models.RoleAdmin)(next)

	t.Run("admin passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestWithUser(models.User{ID: "a", Role: models.RoleAdmin}))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("collaborator blocked", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestWithUser(models.User{ID: "c", Role: models.RoleCollaborator}))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing user blocked", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestCurrentUser(t *testing.T) {
	user, ok := CurrentUser(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
	assert.Empty(t, user.ID)

	user, ok = CurrentUser(requestWithUser(models.User{ID: "u1"}))
	assert.True(t, ok)
	assert.Equal(t, "u1", user.ID)
}

func TestMapServiceError(t *testing.T) {
	rec := httptest.NewRecorder()
	assert.False(t, mapServiceError(rec, nil))

	rec = httptest.NewRecorder()
	assert.True(t, mapServiceError(rec, services.ErrNotFound("Tutorial not found")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tutorial not found")

	rec = httptest.NewRecorder()
	assert.False(t, mapServiceError(rec, assert.AnError))
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 7, parseInt("", 7))
	assert.Equal(t, 42, parseInt("42", 7))
	assert.Equal(t, 7, parseInt("abc", 7))
	assert.Equal(t, 7, parseInt("-3", 7))
}
