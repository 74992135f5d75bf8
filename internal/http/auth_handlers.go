package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"dpgdoc-backend-go/internal/models"
	"dpgdoc-backend-go/internal/services"

	"github.com/google/uuid"
)

type RegisterRequest struct {
	Email    string  `json:"email"`
	Username string  `json:"username"`
	Password string  `json:"password"`
	FullName *string `json:"full_name"`
	Role     string  `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	User        UserDTO `json:"user"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)
	if email == "" || username == "" || strings.TrimSpace(req.Password) == "" {
		WriteError(w, http.StatusBadRequest, "Email, username and password are required")
		return
	}
	role, err := services.NormalizeRole(req.Role)
	if mapServiceError(w, err) {
		return
	}
	var emailTaken bool
	if err := s.DB.Get(&emailTaken, `SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = $1)`, email); err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if emailTaken {
		WriteError(w, http.StatusConflict, "Email is already registered")
		return
	}
	var usernameTaken bool
	if err := s.DB.Get(&usernameTaken, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username); err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if usernameTaken {
		WriteError(w, http.StatusConflict, "Username is already taken")
		return
	}
	hash, err := s.Tokens.HashPassword(req.Password)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	userID := uuid.NewString()
	now := time.Now().UTC()
	_, err = s.DB.Exec(`
INSERT INTO users (id, email, username, password_hash, full_name, role, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,TRUE,$7)
`, userID, email, username, hash, req.FullName, role, now)
	if err != nil {
		// Two concurrent registrations can both pass the EXISTS checks;
		// the unique index decides the loser.
		if constraint, ok := services.UniqueViolation(err); ok {
			if strings.Contains(constraint, "username") {
				WriteError(w, http.StatusConflict, "Username is already taken")
			} else {
				WriteError(w, http.StatusConflict, "Email is already registered")
			}
			return
		}
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	user, err := services.GetUser(s.DB, userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusCreated, buildUserDTO(user))
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	// One generic message for unknown email and wrong password, so the
	// endpoint cannot be used to enumerate accounts.
	user, err := services.GetUserByEmail(s.DB, req.Email)
	if err != nil || !s.Tokens.VerifyPassword(req.Password, user.PasswordHash) {
		WriteError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if !user.IsActive {
		WriteError(w, http.StatusForbidden, "User account is inactive")
		return
	}
	_ = services.SetLastLogin(s.DB, user.ID)
	access, _, err := s.Tokens.CreateAccessToken(user.ID, user.Email)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	user, err = services.GetUser(s.DB, user.ID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: access,
		TokenType:   "bearer",
		User:        buildUserDTO(user),
	})
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r)
	WriteJSON(w, http.StatusOK, buildUserDTO(user))
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	// Stateless tokens: the client discards its copy.
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (s *Server) ChangeOwnPassword(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r)
	s.changePassword(w, r, user)
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request, user models.User) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if strings.TrimSpace(req.NewPassword) == "" {
		WriteError(w, http.StatusBadRequest, "New password is required")
		return
	}
	if !s.Tokens.VerifyPassword(req.CurrentPassword, user.PasswordHash) {
		WriteError(w, http.StatusBadRequest, "Incorrect current password")
		return
	}
	hash, err := s.Tokens.HashPassword(req.NewPassword)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if _, err := s.DB.Exec(`UPDATE users SET password_hash = $1 WHERE id = $2`, hash, user.ID); err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}
