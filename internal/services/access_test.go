package services

import (
	"testing"

	"dpgdoc-backend-go/internal/models"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestCanViewTutorial(t *testing.T) {
	admin := models.User{ID: "a", Role: models.RoleAdmin}
	creator := models.User{ID: "c", Role: models.RoleCollaborator}
	other := models.User{ID: "o", Role: models.RoleCollaborator}

	published := models.Tutorial{ID: "t1", CreatedBy: strPtr("c"), IsPublished: true}
	draft := models.Tutorial{ID: "t2", CreatedBy: strPtr("c"), IsPublished: false}
	orphanDraft := models.Tutorial{ID: "t3", CreatedBy: nil, IsPublished: false}

	tests := []struct {
		name     string
		user     models.User
		tut      models.Tutorial
		hasGrant bool
		want     bool
	}{
		{name: "admin sees draft", user: admin, tut: draft, want: true},
		{name: "creator sees own draft", user: creator, tut: draft, want: true},
		{name: "anyone sees published", user: other, tut: published, want: true},
		{name: "other blocked from draft", user: other, tut: draft, want: false},
		{name: "grant opens draft", user: other, tut: draft, hasGrant: true, want: true},
		{name: "orphan draft stays hidden", user: other, tut: orphanDraft, want: false},
		{name: "admin sees orphan draft", user: admin, tut: orphanDraft, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanViewTutorial(tt.user, tt.tut, tt.hasGrant))
		})
	}
}

func TestCanModifyTutorial(t *testing.T) {
	admin := models.User{ID: "a", Role: models.RoleAdmin}
	creator := models.User{ID: "c", Role: models.RoleCollaborator}
	other := models.User{ID: "o", Role: models.RoleCollaborator}

	tut := models.Tutorial{ID: "t1", CreatedBy: strPtr("c"), IsPublished: true}
	orphan := models.Tutorial{ID: "t2", CreatedBy: nil}

	assert.True(t, CanModifyTutorial(admin, tut))
	assert.True(t, CanModifyTutorial(creator, tut))
	assert.False(t, CanModifyTutorial(other, tut))
	// published does not grant write access
	assert.False(t, CanModifyTutorial(other, tut))
	// only admins can touch orphaned rows
	assert.False(t, CanModifyTutorial(creator, orphan))
	assert.True(t, CanModifyTutorial(admin, orphan))

	assert.Equal(t, CanModifyTutorial(other, tut), CanDeleteTutorial(other, tut))
}

func TestVisibilityClause(t *testing.T) {
	admin := models.User{ID: "a", Role: models.RoleAdmin}
	user := models.User{ID: "u", Role: models.RoleCollaborator}

	clause, args := VisibilityClause(admin, 1)
	assert.Empty(t, clause)
	assert.Empty(t, args)

	clause, args = VisibilityClause(user, 3)
	assert.Contains(t, clause, "is_published = TRUE")
	assert.Contains(t, clause, "created_by = $3")
	assert.Contains(t, clause, "user_tutorial_access")
	assert.Equal(t, []interface{}{"u"}, args)
}
