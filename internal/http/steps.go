package httpapi

import (
	"encoding/json"
	"net/http"

	"dpgdoc-backend-go/internal/models"
	"dpgdoc-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
)

// stepAccessAllowed gates the step endpoints when STEP_OWNERSHIP_CHECKS is
// on. With the flag off any authenticated caller may edit steps, which is
// the historical behavior of this surface.
func (s *Server) stepAccessAllowed(user models.User, tut models.Tutorial) bool {
	if !s.Config.StepOwnershipChecks {
		return true
	}
	return services.CanModifyTutorial(user, tut)
}

func (s *Server) AddStep(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r)
	tutorialID := chi.URLParam(r, "tutorialId")
	tut, err := services.GetTutorial(s.DB, tutorialID)
	if err != nil {
		if !mapServiceError(w, err) {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	if !s.stepAccessAllowed(user, tut) {
		WriteError(w, http.StatusForbidden, "Not enough permissions")
		return
	}
	var in services.StepInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	stepID, err := services.AddStep(s.DB, tutorialID, in)
	if err != nil {
		if !mapServiceError(w, err) {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	var step models.Step
	if err := s.DB.Get(&step, `
SELECT id, tutorial_id, step_order, seq, title, screenshot_url, video_url, content,
       validation_required, validation_type, validation_target, created_at
FROM steps
WHERE id = $1
`, stepID); err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	dto, err := buildStepDTO(s.DB, step)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusCreated, dto)
}

func (s *Server) UpdateStep(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r)
	tutorialID := chi.URLParam(r, "tutorialId")
	stepID := chi.URLParam(r, "stepId")
	tut, err := services.GetTutorial(s.DB, tutorialID)
	if err != nil {
		if !mapServiceError(w, err) {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	if !s.stepAccessAllowed(user, tut) {
		WriteError(w, http.StatusForbidden, "Not enough permissions")
		return
	}
	var in services.StepUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := services.UpdateStep(s.DB, tutorialID, stepID, in); err != nil {
		if !mapServiceError(w, err) {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Step updated"})
}

func (s *Server) DeleteStep(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r)
	tutorialID := chi.URLParam(r, "tutorialId")
	stepID := chi.URLParam(r, "stepId")
	tut, err := services.GetTutorial(s.DB, tutorialID)
	if err != nil {
		if !mapServiceError(w, err) {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	if !s.stepAccessAllowed(user, tut) {
		WriteError(w, http.StatusForbidden, "Not enough permissions")
		return
	}
	if err := services.DeleteStep(s.DB, tutorialID, stepID); err != nil {
		if !mapServiceError(w, err) {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
