package services

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AnnotationInput is one annotation spec inside a step payload. Coordinates
// and style are stored verbatim; their shape is not validated against the
// annotation type.
type AnnotationInput struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
	Text        *string         `json:"text"`
	Animation   string          `json:"animation"`
	Delay       int             `json:"delay"`
	Style       json.RawMessage `json:"style"`
}

type StepInput struct {
	Order              int               `json:"order"`
	Title              string            `json:"title"`
	ScreenshotURL      *string           `json:"screenshot_url"`
	VideoURL           *string           `json:"video_url"`
	Content            *string           `json:"content"`
	ValidationRequired bool              `json:"validation_required"`
	ValidationType     *string           `json:"validation_type"`
	ValidationTarget   *string           `json:"validation_target"`
	Annotations        []AnnotationInput `json:"annotations"`
}

type TutorialInput struct {
	Title       string      `json:"title"`
	Description *string     `json:"description"`
	Category    *string     `json:"category"`
	Tags        []string    `json:"tags"`
	IsPublished bool        `json:"is_published"`
	Steps       []StepInput `json:"steps"`
}

// TutorialUpdate carries partial top-level fields. Steps is a full
// replacement list: nil means "leave steps alone", an empty slice means
// "delete every step".
type TutorialUpdate struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Category    *string      `json:"category"`
	Tags        *[]string    `json:"tags"`
	IsPublished *bool        `json:"is_published"`
	Steps       *[]StepInput `json:"steps"`
}

// CreateTutorial persists the tutorial, then its steps in input order, then
// each step's annotations, all in one transaction. A failure anywhere rolls
// the whole tree back.
func CreateTutorial(db *sqlx.DB, creatorID string, in TutorialInput) (string, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return "", ErrBadRequest("Title is required")
	}
	tagsJSON, _ := json.Marshal(CleanTags(in.Tags))
	tutorialID := uuid.NewString()
	now := time.Now().UTC()

	tx, err := db.Beginx()
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
INSERT INTO tutorials (id, title, description, category, tags, created_by, is_published, version, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,1,$8,$8)
`, tutorialID, title, in.Description, in.Category, tagsJSON, creatorID, in.IsPublished, now)
	if err != nil {
		return "", err
	}
	if err := insertSteps(tx, tutorialID, in.Steps); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return tutorialID, nil
}

// ReplaceTutorial applies the supplied top-level fields, and when a step
// list is present deletes every existing step (annotations cascade) and
// recreates the list from scratch. Destructive by design: partial step
// edits go through UpdateStep instead.
func ReplaceTutorial(db *sqlx.DB, tutorialID string, in TutorialUpdate) error {
	now := time.Now().UTC()

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	sets := []string{"updated_at = $2"}
	args := []interface{}{tutorialID, now}
	addSet := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return ErrBadRequest("Title is required")
		}
		addSet("title", title)
	}
	if in.Description != nil {
		addSet("description", *in.Description)
	}
	if in.Category != nil {
		addSet("category", *in.Category)
	}
	if in.Tags != nil {
		tagsJSON, _ := json.Marshal(CleanTags(*in.Tags))
		addSet("tags", tagsJSON)
	}
	if in.IsPublished != nil {
		addSet("is_published", *in.IsPublished)
	}
	query := "UPDATE tutorials SET " + strings.Join(sets, ", ") + " WHERE id = $1"
	if _, err := tx.Exec(query, args...); err != nil {
		return err
	}

	if in.Steps != nil {
		if _, err := tx.Exec(`DELETE FROM steps WHERE tutorial_id = $1`, tutorialID); err != nil {
			return err
		}
		if err := insertSteps(tx, tutorialID, *in.Steps); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AddStep appends one step and its annotations to an existing tutorial.
func AddStep(db *sqlx.DB, tutorialID string, in StepInput) (string, error) {
	if strings.TrimSpace(in.Title) == "" {
		return "", ErrBadRequest("Step title is required")
	}
	tx, err := db.Beginx()
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	stepID, err := insertStep(tx, tutorialID, in)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return stepID, nil
}

type StepUpdate struct {
	Order              *int              `json:"order"`
	Title              *string           `json:"title"`
	ScreenshotURL      *string           `json:"screenshot_url"`
	VideoURL           *string           `json:"video_url"`
	Content            *string           `json:"content"`
	ValidationRequired *bool             `json:"validation_required"`
	ValidationType     *string           `json:"validation_type"`
	ValidationTarget   *string           `json:"validation_target"`
	Annotations        []AnnotationInput `json:"annotations"`
}

// UpdateStep applies only the supplied fields. Annotations in the payload
// are appended as new rows, not reconciled against existing ones; that is
// the historical contract of this endpoint.
func UpdateStep(db *sqlx.DB, tutorialID, stepID string, in StepUpdate) error {
	var exists bool
	err := db.Get(&exists, `SELECT EXISTS(SELECT 1 FROM steps WHERE id = $1 AND tutorial_id = $2)`, stepID, tutorialID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound("Step not found")
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	sets := []string{}
	args := []interface{}{stepID}
	addSet := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	if in.Order != nil {
		addSet("step_order", *in.Order)
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return ErrBadRequest("Step title is required")
		}
		addSet("title", title)
	}
	if in.ScreenshotURL != nil {
		addSet("screenshot_url", *in.ScreenshotURL)
	}
	if in.VideoURL != nil {
		addSet("video_url", *in.VideoURL)
	}
	if in.Content != nil {
		addSet("content", *in.Content)
	}
	if in.ValidationRequired != nil {
		addSet("validation_required", *in.ValidationRequired)
	}
	if in.ValidationType != nil {
		addSet("validation_type", *in.ValidationType)
	}
	if in.ValidationTarget != nil {
		addSet("validation_target", *in.ValidationTarget)
	}
	if len(sets) > 0 {
		query := "UPDATE steps SET " + strings.Join(sets, ", ") + " WHERE id = $1"
		if _, err := tx.Exec(query, args...); err != nil {
			return err
		}
	}
	if err := insertAnnotations(tx, stepID, in.Annotations); err != nil {
		return err
	}
	return tx.Commit()
}

func DeleteStep(db *sqlx.DB, tutorialID, stepID string) error {
	result, err := db.Exec(`DELETE FROM steps WHERE id = $1 AND tutorial_id = $2`, stepID, tutorialID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound("Step not found")
	}
	return nil
}

func insertSteps(tx *sqlx.Tx, tutorialID string, steps []StepInput) error {
	for _, step := range steps {
		if _, err := insertStep(tx, tutorialID, step); err != nil {
			return err
		}
	}
	return nil
}

func insertStep(tx *sqlx.Tx, tutorialID string, in StepInput) (string, error) {
	stepID := uuid.NewString()
	_, err := tx.Exec(`
INSERT INTO steps (id, tutorial_id, step_order, title, screenshot_url, video_url, content,
                   validation_required, validation_type, validation_target, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`, stepID, tutorialID, in.Order, strings.TrimSpace(in.Title), in.ScreenshotURL, in.VideoURL, in.Content,
		in.ValidationRequired, in.ValidationType, in.ValidationTarget, time.Now().UTC())
	if err != nil {
		return "", err
	}
	if err := insertAnnotations(tx, stepID, in.Annotations); err != nil {
		return "", err
	}
	return stepID, nil
}

func insertAnnotations(tx *sqlx.Tx, stepID string, annotations []AnnotationInput) error {
	for _, ann := range annotations {
		animation := ann.Animation
		if animation == "" {
			animation = "fadeIn"
		}
		coords := ann.Coordinates
		if len(coords) == 0 {
			coords = json.RawMessage("{}")
		}
		var style interface{}
		if len(ann.Style) > 0 {
			style = []byte(ann.Style)
		}
		_, err := tx.Exec(`
INSERT INTO annotations (id, step_id, type, coordinates, text, animation, delay_ms, style, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`, uuid.NewString(), stepID, ann.Type, []byte(coords), ann.Text, animation, ann.Delay, style, time.Now().UTC())
		if err != nil {
			return err
		}
	}
	return nil
}

// CleanTags trims, deduplicates and caps the tag list, preserving order.
func CleanTags(tags []string) []string {
	seen := make(map[string]bool)
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		value := strings.TrimSpace(tag)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		cleaned = append(cleaned, value)
		if len(cleaned) >= 12 {
			break
		}
	}
	return cleaned
}
