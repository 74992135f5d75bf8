package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"dpgdoc-backend-go/internal/models"
	"dpgdoc-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
)

type UserDTO struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Username  string  `json:"username"`
	FullName  *string `json:"full_name"`
	Role      string  `json:"role"`
	IsActive  bool    `json:"is_active"`
	CreatedAt string  `json:"created_at"`
	LastLogin *string `json:"last_login"`
}

type UserWithGrantsDTO struct {
	UserDTO
	AccessibleTutorialIDs []string `json:"accessible_tutorial_ids"`
}

type UserUpdateRequest struct {
	Email    *string `json:"email"`
	Username *string `json:"username"`
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

type GrantAccessRequest struct {
	TutorialIDs []string `json:"tutorial_ids"`
}

func buildUserDTO(user models.User) UserDTO {
	var lastLogin *string
	if user.LastLoginAt != nil {
		formatted := user.LastLoginAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		lastLogin = &formatted
	}
	return UserDTO{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		FullName:  user.FullName,
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		LastLogin: lastLogin,
	}
}

func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	skip := parseInt(r.URL.Query().Get("skip"), 0)
	limit := parseInt(r.URL.Query().Get("limit"), 100)
	if limit > 100 {
		limit = 100
	}
	rows := []models.User{}
	err := s.DB.Select(&rows, `
SELECT id, email, username, password_hash, full_name, role, is_active, created_at, last_login_at
FROM users
ORDER BY created_at ASC
LIMIT $1 OFFSET $2
`, limit, skip)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	items := make([]UserDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, buildUserDTO(row))
	}
	WriteJSON(w, http.StatusOK, items)
}

func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	current, _ := CurrentUser(r)
	userID := chi.URLParam(r, "userId")
	if current.ID != userID && !current.IsAdmin() {
		WriteError(w, http.StatusForbidden, "Not enough permissions")
		return
	}
	user, err := services.GetUser(s.DB, userID)
	if err != nil {
		if !mapServiceError(w, err) {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	granted, err := services.GrantedTutorialIDs(s.DB, userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, UserWithGrantsDTO{
		UserDTO:               buildUserDTO(user),
		AccessibleTutorialIDs: granted,
	})
}

func (s *Server) UpdateUser(w http.ResponseWriter, r *http.Request) {
	current, _ := CurrentUser(r)
	userID := chi.URLParam(r, "userId")
	if current.ID != userID && !current.IsAdmin() {
		WriteError(w, http.StatusForbidden, "Not enough permissions")
		return
	}
	var req UserUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if _, err := services.GetUser(s.DB, userID); mapServiceError(w, err) {
		return
	}
	// Role and active status are admin-only levers; silently dropped for
	// everyone else, as the reference behaves.
	if !current.IsAdmin() {
		req.Role = nil
		req.IsActive = nil
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		var taken bool
		if err := s.DB.Get(&taken, `SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = $1 AND id <> $2)`, email, userID); err != nil {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if taken {
			WriteError(w, http.StatusConflict, "Email is already registered")
			return
		}
		if _, err := s.DB.Exec(`UPDATE users SET email = $1 WHERE id = $2`, email, userID); err != nil {
			if _, ok := services.UniqueViolation(err); ok {
				WriteError(w, http.StatusConflict, "Email is already registered")
				return
			}
			WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		var taken bool
		if err := s.DB.Get(&taken, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 AND id <> $2)`, username, userID); err != nil {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if taken {
			WriteError(w, http.StatusConflict, "Username is already taken")
			return
		}
		if _, err := s.DB.Exec(`UPDATE users SET username = $1 WHERE id = $2`, username, userID); err != nil {
			if _, ok := services.UniqueViolation(err); ok {
				WriteError(w, http.StatusConflict, "Username is already taken")
				return
			}
			WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}
	if req.FullName != nil {
		if _, err := s.DB.Exec(`UPDATE users SET full_name = $1 WHERE id = $2`, req.FullName, userID); err != nil {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}
	if req.Role != nil {
		role, err := services.NormalizeRole(*req.Role)
		if mapServiceError(w, err) {
			return
		}
		if _, err := s.DB.Exec(`UPDATE users SET role = $1 WHERE id = $2`, role, userID); err != nil {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}
	if req.IsActive != nil {
		if _, err := s.DB.Exec(`UPDATE users SET is_active = $1 WHERE id = $2`, *req.IsActive, userID); err != nil {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}
	user, err := services.GetUser(s.DB, userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, buildUserDTO(user))
}

func (s *Server) DeleteUser(w http.ResponseWriter, r *http.Request) {
	current, _ := CurrentUser(r)
	userID := chi.URLParam(r, "userId")
	if current.ID == userID {
		WriteError(w, http.StatusBadRequest, "Cannot delete your own account")
		return
	}
	if _, err := services.GetUser(s.DB, userID); mapServiceError(w, err) {
		return
	}
	if _, err := s.DB.Exec(`DELETE FROM users WHERE id = $1`, userID); err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ChangeUserPassword(w http.ResponseWriter, r *http.Request) {
	current, _ := CurrentUser(r)
	userID := chi.URLParam(r, "userId")
	if current.ID != userID {
		WriteError(w, http.StatusForbidden, "Not enough permissions")
		return
	}
	s.changePassword(w, r, current)
}

func (s *Server) GrantAccess(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	var req GrantAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if _, err := services.GetUser(s.DB, userID); mapServiceError(w, err) {
		return
	}
	for _, tutorialID := range req.TutorialIDs {
		if _, err := services.GetTutorial(s.DB, tutorialID); err != nil {
			WriteError(w, http.StatusNotFound, "Some tutorials not found")
			return
		}
	}
	for _, tutorialID := range req.TutorialIDs {
		if err := services.GrantTutorialAccess(s.DB, userID, tutorialID); err != nil {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Access granted to %d tutorials", len(req.TutorialIDs)),
	})
}

func (s *Server) RevokeAccess(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	tutorialID := chi.URLParam(r, "tutorialId")
	if _, err := services.GetUser(s.DB, userID); mapServiceError(w, err) {
		return
	}
	if _, err := services.GetTutorial(s.DB, tutorialID); mapServiceError(w, err) {
		return
	}
	if err := services.RevokeTutorialAccess(s.DB, userID, tutorialID); err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Access revoked"})
}

func (s *Server) ListUserGrants(w http.ResponseWriter, r *http.Request) {
	current, _ := CurrentUser(r)
	userID := chi.URLParam(r, "userId")
	if current.ID != userID && !current.IsAdmin() {
		WriteError(w, http.StatusForbidden, "Not enough permissions")
		return
	}
	if _, err := services.GetUser(s.DB, userID); mapServiceError(w, err) {
		return
	}
	granted, err := services.GrantedTutorialIDs(s.DB, userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, granted)
}
