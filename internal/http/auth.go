package httpapi

import (
	"context"
	"net/http"
	"strings"

	"dpgdoc-backend-go/internal/models"
)

type contextKey string

const ctxUser contextKey = "user"

// WithAuth resolves the bearer token and re-fetches the user row by the
// embedded id, so role and active-flag changes take effect without a new
// login. Missing, deleted and deactivated users are all rejected here.
func (s *Server) WithAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		tokenStr := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		user, err := s.resolveToken(tokenStr)
		if err != nil {
			if !mapServiceError(w, err) {
				WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
			}
			return
		}
		ctx := context.WithValue(r.Context(), ctxUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) resolveToken(tokenStr string) (models.User, error) {
	token, claims, err := s.Tokens.ParseToken(tokenStr)
	if err != nil || !token.Valid {
		return models.User{}, errUnauthorized
	}
	userID, _ := claims["sub"].(string)
	if userID == "" {
		return models.User{}, errUnauthorized
	}
	var user models.User
	if err := s.DB.Get(&user, `
SELECT id, email, username, password_hash, full_name, role, is_active, created_at, last_login_at
FROM users
WHERE id = $1
`, userID); err != nil {
		return models.User{}, errUnauthorized
	}
	if !user.IsActive {
		return models.User{}, errInactive
	}
	return user, nil
}

func CurrentUser(r *http.Request) (models.User, bool) {
	user, ok := r.Context().Value(ctxUser).(models.User)
	return user, ok
}

// RequireRole gates a subtree on the caller's role. Must sit inside
// WithAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := map[string]bool{}
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := CurrentUser(r)
			if !ok || !allowed[user.Role] {
				WriteError(w, http.StatusForbidden, "Not enough permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
