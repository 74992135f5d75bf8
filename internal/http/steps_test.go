package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dpgdoc-backend-go/internal/config"
	"dpgdoc-backend-go/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return &Server{
		DB:     sqlx.NewDb(mockDB, "sqlmock"),
		Config: config.Config{},
	}, mock
}

func withRouteParams(r *http.Request, pairs ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(pairs); i += 2 {
		rctx.URLParams.Add(pairs[i], pairs[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestAddStepReturnsCreatedStepWithAnnotations(t *testing.T) {
	server, mock := newMockServer(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, title, description").WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "description", "category", "tags", "created_by",
			"is_published", "version", "created_at", "updated_at",
		}).AddRow("t1", "Install", nil, nil, []byte("[]"), nil, true, 1, now, now))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO steps").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO annotations").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT id, tutorial_id, step_order, seq").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tutorial_id", "step_order", "seq", "title", "screenshot_url", "video_url",
			"content", "validation_required", "validation_type", "validation_target", "created_at",
		}).AddRow("s1", "t1", 2, 7, "Connect", nil, nil, nil, false, nil, nil, now))
	mock.ExpectQuery("SELECT id, step_id, type").WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "step_id", "type", "coordinates", "text", "animation", "delay_ms", "style", "created_at",
		}).AddRow("a1", "s1", "highlight", []byte(`{"x":1}`), "here", "fadeIn", 0, nil, now))

	body := `{"order":2,"title":"Connect","annotations":[{"type":"highlight","text":"here","coordinates":{"x":1}}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/tutorials/t1/steps", strings.NewReader(body))
	req = withRouteParams(req, "tutorialId", "t1")
	req = req.WithContext(context.WithValue(req.Context(), ctxUser, models.User{ID: "u1", Role: models.RoleCollaborator}))
	rec := httptest.NewRecorder()

	server.AddStep(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var dto StepDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, "s1", dto.ID)
	assert.Equal(t, 2, dto.Order)
	assert.Equal(t, "Connect", dto.Title)
	require.Len(t, dto.Annotations, 1)
	assert.Equal(t, "a1", dto.Annotations[0].ID)
	assert.Equal(t, "highlight", dto.Annotations[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}
