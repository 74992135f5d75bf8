package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"dpgdoc-backend-go/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// StartProgress returns the existing progress row for (user, tutorial) or
// creates a fresh one. The unique constraint plus ON CONFLICT DO NOTHING
// makes two concurrent starts converge on a single row.
func StartProgress(db *sqlx.DB, userID, tutorialID string) (models.Progress, bool, error) {
	var exists bool
	if err := db.Get(&exists, `SELECT EXISTS(SELECT 1 FROM tutorials WHERE id = $1)`, tutorialID); err != nil {
		return models.Progress{}, false, err
	}
	if !exists {
		return models.Progress{}, false, ErrNotFound("Tutorial not found")
	}

	now := time.Now().UTC()
	result, err := db.Exec(`
INSERT INTO progress (id, user_id, tutorial_id, current_step, completed_steps, time_per_step,
                      attempts, completed, score, started_at, last_accessed)
VALUES ($1,$2,$3,1,'[]','{}',1,FALSE,0,$4,$4)
ON CONFLICT (user_id, tutorial_id) DO NOTHING
`, uuid.NewString(), userID, tutorialID, now)
	if err != nil {
		return models.Progress{}, false, err
	}
	inserted, _ := result.RowsAffected()

	var row models.Progress
	err = db.Get(&row, `
SELECT id, user_id, tutorial_id, current_step, completed_steps, time_per_step,
       attempts, completed, score, started_at, completed_at, last_accessed
FROM progress
WHERE user_id = $1 AND tutorial_id = $2
`, userID, tutorialID)
	if err != nil {
		return models.Progress{}, false, err
	}
	return row, inserted > 0, nil
}

func GetProgress(db *sqlx.DB, userID, tutorialID string) (models.Progress, error) {
	var row models.Progress
	err := db.Get(&row, `
SELECT id, user_id, tutorial_id, current_step, completed_steps, time_per_step,
       attempts, completed, score, started_at, completed_at, last_accessed
FROM progress
WHERE user_id = $1 AND tutorial_id = $2
`, userID, tutorialID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Progress{}, ErrNotFound("Progress not found")
	}
	return row, err
}

type ProgressUpdate struct {
	CurrentStep    *int                `json:"current_step"`
	CompletedSteps *[]int              `json:"completed_steps"`
	TimePerStep    *map[string]float64 `json:"time_per_step"`
	Attempts       *int                `json:"attempts"`
	Completed      *bool               `json:"completed"`
	Score          *float64            `json:"score"`
}

// UpdateProgress applies only the supplied fields and always touches
// last_accessed. completed_at is stamped when completed flips to true.
// No cross-field consistency is enforced; the caller is trusted.
func UpdateProgress(db *sqlx.DB, progressID string, in ProgressUpdate) (models.Progress, error) {
	var current models.Progress
	err := db.Get(&current, `
SELECT id, user_id, tutorial_id, current_step, completed_steps, time_per_step,
       attempts, completed, score, started_at, completed_at, last_accessed
FROM progress
WHERE id = $1
`, progressID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Progress{}, ErrNotFound("Progress not found")
	}
	if err != nil {
		return models.Progress{}, err
	}

	now := time.Now().UTC()
	sets := []string{"last_accessed = $2"}
	args := []interface{}{progressID, now}
	addSet := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	if in.CurrentStep != nil {
		addSet("current_step", *in.CurrentStep)
	}
	if in.CompletedSteps != nil {
		stepsJSON, _ := json.Marshal(*in.CompletedSteps)
		addSet("completed_steps", stepsJSON)
	}
	if in.TimePerStep != nil {
		timesJSON, _ := json.Marshal(*in.TimePerStep)
		addSet("time_per_step", timesJSON)
	}
	if in.Attempts != nil {
		addSet("attempts", *in.Attempts)
	}
	if in.Completed != nil {
		addSet("completed", *in.Completed)
		if *in.Completed && !current.Completed {
			addSet("completed_at", now)
		}
	}
	if in.Score != nil {
		addSet("score", *in.Score)
	}
	query := "UPDATE progress SET " + strings.Join(sets, ", ") + " WHERE id = $1"
	if _, err := db.Exec(query, args...); err != nil {
		return models.Progress{}, err
	}

	var updated models.Progress
	err = db.Get(&updated, `
SELECT id, user_id, tutorial_id, current_step, completed_steps, time_per_step,
       attempts, completed, score, started_at, completed_at, last_accessed
FROM progress
WHERE id = $1
`, progressID)
	return updated, err
}

type TutorialStats struct {
	TutorialID         string             `json:"tutorial_id"`
	TotalUsers         int                `json:"total_users"`
	CompletedUsers     int                `json:"completed_users"`
	CompletionRate     float64            `json:"completion_rate"`
	AverageScore       float64            `json:"average_score"`
	AverageTimePerStep map[string]float64 `json:"average_time_per_step"`
	TotalSteps         int                `json:"total_steps"`
}

// ProgressFacts is the slice of one progress row that the stats math needs.
type ProgressFacts struct {
	Completed   bool
	Score       float64
	TimePerStep map[string]float64
}

// ComputeTutorialStats aggregates over all progress rows of one tutorial.
// Zero rows produce zero rates and averages, never a division fault. The
// average score counts only rows with score > 0, and each step's average
// time counts only users who recorded that step.
func ComputeTutorialStats(tutorialID string, stepOrders []int, rows []ProgressFacts) TutorialStats {
	stats := TutorialStats{
		TutorialID:         tutorialID,
		TotalUsers:         len(rows),
		AverageTimePerStep: make(map[string]float64, len(stepOrders)),
		TotalSteps:         len(stepOrders),
	}
	for _, row := range rows {
		if row.Completed {
			stats.CompletedUsers++
		}
	}
	if stats.TotalUsers > 0 {
		stats.CompletionRate = round2(float64(stats.CompletedUsers) / float64(stats.TotalUsers) * 100)
	}

	scoreSum := 0.0
	scoreCount := 0
	for _, row := range rows {
		if row.Score > 0 {
			scoreSum += row.Score
			scoreCount++
		}
	}
	if scoreCount > 0 {
		stats.AverageScore = round2(scoreSum / float64(scoreCount))
	}

	for _, order := range stepOrders {
		key := strconv.Itoa(order)
		sum := 0.0
		count := 0
		for _, row := range rows {
			if value, ok := row.TimePerStep[key]; ok {
				sum += value
				count++
			}
		}
		if count > 0 {
			stats.AverageTimePerStep[key] = sum / float64(count)
		} else {
			stats.AverageTimePerStep[key] = 0
		}
	}
	return stats
}

// FetchTutorialStats loads the step orders and progress rows for a tutorial
// and folds them through ComputeTutorialStats.
func FetchTutorialStats(db *sqlx.DB, tutorialID string) (TutorialStats, error) {
	var exists bool
	if err := db.Get(&exists, `SELECT EXISTS(SELECT 1 FROM tutorials WHERE id = $1)`, tutorialID); err != nil {
		return TutorialStats{}, err
	}
	if !exists {
		return TutorialStats{}, ErrNotFound("Tutorial not found")
	}

	stepOrders := []int{}
	if err := db.Select(&stepOrders, `
SELECT step_order FROM steps WHERE tutorial_id = $1 ORDER BY step_order ASC, seq ASC
`, tutorialID); err != nil {
		return TutorialStats{}, err
	}

	rows := []struct {
		Completed   bool    `db:"completed"`
		Score       float64 `db:"score"`
		TimePerStep []byte  `db:"time_per_step"`
	}{}
	if err := db.Select(&rows, `
SELECT completed, score, time_per_step FROM progress WHERE tutorial_id = $1
`, tutorialID); err != nil {
		return TutorialStats{}, err
	}

	facts := make([]ProgressFacts, 0, len(rows))
	for _, row := range rows {
		times := map[string]float64{}
		_ = json.Unmarshal(row.TimePerStep, &times)
		facts = append(facts, ProgressFacts{
			Completed:   row.Completed,
			Score:       row.Score,
			TimePerStep: times,
		})
	}
	return ComputeTutorialStats(tutorialID, stepOrders, facts), nil
}

type DashboardStats struct {
	TotalTutorials     int `json:"total_tutorials"`
	PublishedTutorials int `json:"published_tutorials"`
	InProgress         int `json:"in_progress"`
	Completed          int `json:"completed"`
}

func FetchDashboardStats(db *sqlx.DB, userID string) (DashboardStats, error) {
	var stats DashboardStats
	if err := db.Get(&stats.TotalTutorials, `SELECT count(*) FROM tutorials`); err != nil {
		return stats, err
	}
	if err := db.Get(&stats.PublishedTutorials, `SELECT count(*) FROM tutorials WHERE is_published = TRUE`); err != nil {
		return stats, err
	}
	if err := db.Get(&stats.InProgress, `SELECT count(*) FROM progress WHERE user_id = $1 AND completed = FALSE`, userID); err != nil {
		return stats, err
	}
	if err := db.Get(&stats.Completed, `SELECT count(*) FROM progress WHERE user_id = $1 AND completed = TRUE`, userID); err != nil {
		return stats, err
	}
	return stats, nil
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
