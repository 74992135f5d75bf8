package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"dpgdoc-backend-go/internal/models"
	"dpgdoc-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
)

type ProgressDTO struct {
	ID             string             `json:"id"`
	UserID         string             `json:"user_id"`
	TutorialID     string             `json:"tutorial_id"`
	CurrentStep    int                `json:"current_step"`
	CompletedSteps []int              `json:"completed_steps"`
	TimePerStep    map[string]float64 `json:"time_per_step"`
	Attempts       int                `json:"attempts"`
	Completed      bool               `json:"completed"`
	Score          float64            `json:"score"`
	StartedAt      time.Time          `json:"started_at"`
	CompletedAt    *time.Time         `json:"completed_at"`
	LastAccessed   time.Time          `json:"last_accessed"`
}

type StartProgressRequest struct {
	TutorialID string `json:"tutorial_id"`
}

func buildProgressDTO(row models.Progress) ProgressDTO {
	completedSteps := []int{}
	_ = json.Unmarshal(row.CompletedSteps, &completedSteps)
	timePerStep := map[string]float64{}
	_ = json.Unmarshal(row.TimePerStep, &timePerStep)
	return ProgressDTO{
		ID:             row.ID,
		UserID:         row.UserID,
		TutorialID:     row.TutorialID,
		CurrentStep:    row.CurrentStep,
		CompletedSteps: completedSteps,
		TimePerStep:    timePerStep,
		Attempts:       row.Attempts,
		Completed:      row.Completed,
		Score:          row.Score,
		StartedAt:      row.StartedAt,
		CompletedAt:    row.CompletedAt,
		LastAccessed:   row.LastAccessed,
	}
}

// StartProgress is idempotent per (user, tutorial): the first call creates
// the row and answers 201, later calls return the same row with 200.
func (s *Server) StartProgress(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r)
	var req StartProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if req.TutorialID == "" {
		WriteError(w, http.StatusBadRequest, "tutorial_id is required")
		return
	}
	row, created, err := services.StartProgress(s.DB, user.ID, req.TutorialID)
	if err != nil {
		if !mapServiceError(w, err) {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	WriteJSON(w, status, buildProgressDTO(row))
}

func (s *Server) GetProgress(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r)
	tutorialID := chi.URLParam(r, "tutorialId")
	row, err := services.GetProgress(s.DB, user.ID, tutorialID)
	if err != nil {
		if !mapServiceError(w, err) {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	WriteJSON(w, http.StatusOK, buildProgressDTO(row))
}

func (s *Server) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r)
	progressID := chi.URLParam(r, "progressId")

	var owner string
	err := s.DB.Get(&owner, `SELECT user_id FROM progress WHERE id = $1`, progressID)
	if errors.Is(err, sql.ErrNoRows) {
		WriteError(w, http.StatusNotFound, "Progress not found")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if owner != user.ID && !user.IsAdmin() {
		WriteError(w, http.StatusForbidden, "Not enough permissions")
		return
	}

	var in services.ProgressUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	row, err := services.UpdateProgress(s.DB, progressID, in)
	if err != nil {
		if !mapServiceError(w, err) {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	WriteJSON(w, http.StatusOK, buildProgressDTO(row))
}

func (s *Server) TutorialStats(w http.ResponseWriter, r *http.Request) {
	tutorialID := chi.URLParam(r, "tutorialId")
	stats, err := services.FetchTutorialStats(s.DB, tutorialID)
	if err != nil {
		if !mapServiceError(w, err) {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r)
	stats, err := services.FetchDashboardStats(s.DB, user.ID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}
