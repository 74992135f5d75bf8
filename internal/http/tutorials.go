package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"dpgdoc-backend-go/internal/models"
	"dpgdoc-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
)

// ListTutorials pages through the caller's visible set. The visibility
// restriction is part of the query, so LIMIT/OFFSET never skip over rows the
// caller is not allowed to see anyway.
func (s *Server) ListTutorials(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r)
	skip := parseInt(r.URL.Query().Get("skip"), 0)
	limit := parseInt(r.URL.Query().Get("limit"), 100)
	if limit > 100 {
		limit = 100
	}
	category := r.URL.Query().Get("category")
	publishedOnly := r.URL.Query().Get("published_only") == "true"

	where := []string{}
	args := []interface{}{}
	clause, visArgs := services.VisibilityClause(user, len(args)+1)
	if clause != "" {
		where = append(where, clause)
		args = append(args, visArgs...)
	}
	if category != "" {
		args = append(args, category)
		where = append(where, "category = $"+strconv.Itoa(len(args)))
	}
	if publishedOnly {
		where = append(where, "is_published = TRUE")
	}

	query := `
SELECT id, title, description, category, tags, created_by, is_published, version, created_at, updated_at
FROM tutorials`
	for i, cond := range where {
		if i == 0 {
			query += "\nWHERE " + cond
		} else {
			query += "\n  AND " + cond
		}
	}
	args = append(args, limit)
	query += "\nORDER BY created_at DESC\nLIMIT $" + strconv.Itoa(len(args))
	args = append(args, skip)
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows := []models.Tutorial{}
	if err := s.DB.Select(&rows, query, args...); err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	items := make([]TutorialCardDTO, 0, len(rows))
	for _, tut := range rows {
		var stepCount int
		if err := s.DB.Get(&stepCount, `SELECT count(*) FROM steps WHERE tutorial_id = $1`, tut.ID); err != nil {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		items = append(items, buildTutorialCard(tut, stepCount))
	}
	WriteJSON(w, http.StatusOK, items)
}

func (s *Server) CreateTutorial(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r)
	var in services.TutorialInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	tutorialID, err := services.CreateTutorial(s.DB, user.ID, in)
	if err != nil {
		if !mapServiceError(w, err) {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	tut, err := services.GetTutorial(s.DB, tutorialID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	dto, err := buildTutorialDTO(s.DB, tut)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusCreated, dto)
}

func (s *Server) GetTutorial(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r)
	tutorialID := chi.URLParam(r, "tutorialId")
	tut, err := services.GetTutorial(s.DB, tutorialID)
	if err != nil {
		if !mapServiceError(w, err) {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	hasGrant := false
	if !user.IsAdmin() && !tut.IsPublished {
		hasGrant, err = services.HasGrant(s.DB, user.ID, tutorialID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}
	if !services.CanViewTutorial(user, tut, hasGrant) {
		WriteError(w, http.StatusForbidden, "Not enough permissions")
		return
	}
	dto, err := buildTutorialDTO(s.DB, tut)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, dto)
}

func (s *Server) UpdateTutorial(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r)
	tutorialID := chi.URLParam(r, "tutorialId")
	tut, err := services.GetTutorial(s.DB, tutorialID)
	if err != nil {
		if !mapServiceError(w, err) {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	if !services.CanModifyTutorial(user, tut) {
		WriteError(w, http.StatusForbidden, "Not enough permissions")
		return
	}
	var in services.TutorialUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := services.ReplaceTutorial(s.DB, tutorialID, in); err != nil {
		if !mapServiceError(w, err) {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	tut, err = services.GetTutorial(s.DB, tutorialID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	dto, err := buildTutorialDTO(s.DB, tut)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, dto)
}

func (s *Server) DeleteTutorial(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r)
	tutorialID := chi.URLParam(r, "tutorialId")
	tut, err := services.GetTutorial(s.DB, tutorialID)
	if err != nil {
		if !mapServiceError(w, err) {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	if !services.CanDeleteTutorial(user, tut) {
		WriteError(w, http.StatusForbidden, "Not enough permissions")
		return
	}
	if _, err := s.DB.Exec(`DELETE FROM tutorials WHERE id = $1`, tutorialID); err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
