package services

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"dpgdoc-backend-go/internal/models"

	"github.com/jmoiron/sqlx"
)

const userColumns = `id, email, username, password_hash, full_name, role, is_active, created_at, last_login_at`

func GetUser(db *sqlx.DB, userID string) (models.User, error) {
	var user models.User
	err := db.Get(&user, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound("User not found")
	}
	return user, err
}

func GetUserByEmail(db *sqlx.DB, email string) (models.User, error) {
	var user models.User
	err := db.Get(&user, `SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound("User not found")
	}
	return user, err
}

func GetTutorial(db *sqlx.DB, tutorialID string) (models.Tutorial, error) {
	var tut models.Tutorial
	err := db.Get(&tut, `
SELECT id, title, description, category, tags, created_by, is_published, version, created_at, updated_at
FROM tutorials
WHERE id = $1
`, tutorialID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Tutorial{}, ErrNotFound("Tutorial not found")
	}
	return tut, err
}

func SetLastLogin(db *sqlx.DB, userID string) error {
	_, err := db.Exec(`UPDATE users SET last_login_at = $1 WHERE id = $2`, time.Now().UTC(), userID)
	return err
}

// GrantTutorialAccess adds one grant row; granting twice is a no-op.
func GrantTutorialAccess(db *sqlx.DB, userID, tutorialID string) error {
	_, err := db.Exec(`
INSERT INTO user_tutorial_access (user_id, tutorial_id, granted_at)
VALUES ($1,$2,$3)
ON CONFLICT (user_id, tutorial_id) DO NOTHING
`, userID, tutorialID, time.Now().UTC())
	return err
}

// RevokeTutorialAccess removes a grant; revoking a non-member is a no-op.
func RevokeTutorialAccess(db *sqlx.DB, userID, tutorialID string) error {
	_, err := db.Exec(`DELETE FROM user_tutorial_access WHERE user_id = $1 AND tutorial_id = $2`, userID, tutorialID)
	return err
}

func GrantedTutorialIDs(db *sqlx.DB, userID string) ([]string, error) {
	ids := []string{}
	err := db.Select(&ids, `
SELECT tutorial_id FROM user_tutorial_access WHERE user_id = $1 ORDER BY granted_at ASC
`, userID)
	return ids, err
}

// NormalizeRole maps a free-form role string onto the closed role set.
func NormalizeRole(raw string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", models.RoleCollaborator, "COLABORADOR":
		return models.RoleCollaborator, nil
	case models.RoleAdmin:
		return models.RoleAdmin, nil
	default:
		return "", ErrBadRequest("Unknown role")
	}
}

// MigrateLegacyRoles is the one-time batch transform from the historical
// student/instructor scheme (and lowercase spellings) onto the current
// COLLABORATOR/ADMIN codes. Safe to run on every startup.
func MigrateLegacyRoles(db *sqlx.DB) error {
	_, err := db.Exec(`
UPDATE users SET role = 'ADMIN'
WHERE lower(role) IN ('instructor', 'admin') AND role <> 'ADMIN'
`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
UPDATE users SET role = 'COLLABORATOR'
WHERE lower(role) IN ('student', 'colaborador', 'collaborator') AND role <> 'COLLABORATOR'
`)
	return err
}
