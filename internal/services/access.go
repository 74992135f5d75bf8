package services

import (
	"strconv"

	"dpgdoc-backend-go/internal/models"

	"github.com/jmoiron/sqlx"
)

// CanViewTutorial decides read access for one (user, tutorial) pair.
// Admins see everything, creators see their own work, published tutorials
// are visible to everyone, and an explicit grant opens an unpublished one.
// Everything else is denied.
func CanViewTutorial(user models.User, tut models.Tutorial, hasGrant bool) bool {
	if user.IsAdmin() {
		return true
	}
	if tut.CreatedBy != nil && *tut.CreatedBy == user.ID {
		return true
	}
	if tut.IsPublished {
		return true
	}
	return hasGrant
}

// CanModifyTutorial covers both update and delete: creator or admin only.
func CanModifyTutorial(user models.User, tut models.Tutorial) bool {
	if user.IsAdmin() {
		return true
	}
	return tut.CreatedBy != nil && *tut.CreatedBy == user.ID
}

func CanDeleteTutorial(user models.User, tut models.Tutorial) bool {
	return CanModifyTutorial(user, tut)
}

func HasGrant(db *sqlx.DB, userID, tutorialID string) (bool, error) {
	var exists bool
	err := db.Get(&exists, `
SELECT EXISTS(
  SELECT 1 FROM user_tutorial_access
  WHERE user_id = $1 AND tutorial_id = $2
)`, userID, tutorialID)
	return exists, err
}

// VisibilityClause returns the WHERE fragment restricting a tutorial query
// to the caller's visible set, with its bind argument. It must be applied
// before LIMIT/OFFSET so pagination walks the visible set only. Admins get
// no restriction.
func VisibilityClause(user models.User, argPos int) (string, []interface{}) {
	if user.IsAdmin() {
		return "", nil
	}
	arg := "$" + strconv.Itoa(argPos)
	clause := `(is_published = TRUE
  OR created_by = ` + arg + `
  OR id IN (SELECT tutorial_id FROM user_tutorial_access WHERE user_id = ` + arg + `))`
	return clause, []interface{}{user.ID}
}
