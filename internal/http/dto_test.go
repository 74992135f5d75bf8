package httpapi

import (
	"encoding/json"
	"testing"
	"time"

	"dpgdoc-backend-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTags(t *testing.T) {
	assert.Equal(t, []string{}, decodeTags(nil))
	assert.Equal(t, []string{}, decodeTags([]byte("not json")))
	assert.Equal(t, []string{"go", "sql"}, decodeTags([]byte(`["go","sql"]`)))
}

func TestBuildProgressDTO(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	row := models.Progress{
		ID:             "p1",
		UserID:         "u1",
		TutorialID:     "t1",
		CurrentStep:    3,
		CompletedSteps: []byte(`[1,2]`),
		TimePerStep:    []byte(`{"1":12.5,"2":8}`),
		Attempts:       2,
		Completed:      false,
		Score:          0,
		StartedAt:      started,
		LastAccessed:   started,
	}

	dto := buildProgressDTO(row)
	assert.Equal(t, []int{1, 2}, dto.CompletedSteps)
	assert.Equal(t, map[string]float64{"1": 12.5, "2": 8}, dto.TimePerStep)
	assert.Nil(t, dto.CompletedAt)

	// corrupt blobs degrade to empty collections, not broken payloads
	row.CompletedSteps = []byte("oops")
	row.TimePerStep = nil
	dto = buildProgressDTO(row)
	assert.Equal(t, []int{}, dto.CompletedSteps)
	assert.Equal(t, map[string]float64{}, dto.TimePerStep)

	payload, err := json.Marshal(dto)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"completed_steps":[]`)
	assert.Contains(t, string(payload), `"time_per_step":{}`)
}

func TestBuildUserDTO(t *testing.T) {
	created := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
	name := "Ana Pop"
	user := models.User{
		ID:        "u1",
		Email:     "ana@example.com",
		Username:  "ana",
		FullName:  &name,
		Role:      models.RoleCollaborator,
		IsActive:  true,
		CreatedAt: created,
	}

	dto := buildUserDTO(user)
	assert.Equal(t, "2026-01-15T09:30:00Z", dto.CreatedAt)
	assert.Nil(t, dto.LastLogin)
	require.NotNil(t, dto.FullName)
	assert.Equal(t, "Ana Pop", *dto.FullName)

	login := created.Add(48 * time.Hour)
	user.LastLoginAt = &login
	dto = buildUserDTO(user)
	require.NotNil(t, dto.LastLogin)
	assert.Equal(t, "2026-01-17T09:30:00Z", *dto.LastLogin)
}
