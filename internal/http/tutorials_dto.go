package httpapi

import (
	"encoding/json"
	"time"

	"dpgdoc-backend-go/internal/models"

	"github.com/jmoiron/sqlx"
)

type AnnotationDTO struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
	Text        *string         `json:"text"`
	Animation   string          `json:"animation"`
	Delay       int             `json:"delay"`
	Style       json.RawMessage `json:"style"`
}

type StepDTO struct {
	ID                 string          `json:"id"`
	Order              int             `json:"order"`
	Title              string          `json:"title"`
	ScreenshotURL      *string         `json:"screenshot_url"`
	VideoURL           *string         `json:"video_url"`
	Content            *string         `json:"content"`
	ValidationRequired bool            `json:"validation_required"`
	ValidationType     *string         `json:"validation_type"`
	ValidationTarget   *string         `json:"validation_target"`
	Annotations        []AnnotationDTO `json:"annotations"`
}

type TutorialDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Tags        []string  `json:"tags"`
	CreatedBy   *string   `json:"created_by"`
	IsPublished bool      `json:"is_published"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Steps       []StepDTO `json:"steps"`
}

// TutorialCardDTO is the list representation: no step bodies, just a count.
type TutorialCardDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Tags        []string  `json:"tags"`
	CreatedBy   *string   `json:"created_by"`
	IsPublished bool      `json:"is_published"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	StepCount   int       `json:"step_count"`
}

func decodeTags(raw []byte) []string {
	tags := []string{}
	_ = json.Unmarshal(raw, &tags)
	return tags
}

func buildTutorialCard(tut models.Tutorial, stepCount int) TutorialCardDTO {
	return TutorialCardDTO{
		ID:          tut.ID,
		Title:       tut.Title,
		Description: tut.Description,
		Category:    tut.Category,
		Tags:        decodeTags(tut.Tags),
		CreatedBy:   tut.CreatedBy,
		IsPublished: tut.IsPublished,
		Version:     tut.Version,
		CreatedAt:   tut.CreatedAt,
		UpdatedAt:   tut.UpdatedAt,
		StepCount:   stepCount,
	}
}

// buildTutorialDTO loads the full tree for one tutorial. Steps come back in
// their display order with creation time as the tiebreaker, annotations in
// creation order.
func buildTutorialDTO(db *sqlx.DB, tut models.Tutorial) (TutorialDTO, error) {
	dto := TutorialDTO{
		ID:          tut.ID,
		Title:       tut.Title,
		Description: tut.Description,
		Category:    tut.Category,
		Tags:        decodeTags(tut.Tags),
		CreatedBy:   tut.CreatedBy,
		IsPublished: tut.IsPublished,
		Version:     tut.Version,
		CreatedAt:   tut.CreatedAt,
		UpdatedAt:   tut.UpdatedAt,
		Steps:       []StepDTO{},
	}

	steps := []models.Step{}
	err := db.Select(&steps, `
SELECT id, tutorial_id, step_order, seq, title, screenshot_url, video_url, content,
       validation_required, validation_type, validation_target, created_at
FROM steps
WHERE tutorial_id = $1
ORDER BY step_order ASC, seq ASC
`, tut.ID)
	if err != nil {
		return TutorialDTO{}, err
	}

	for _, step := range steps {
		stepDTO, err := buildStepDTO(db, step)
		if err != nil {
			return TutorialDTO{}, err
		}
		dto.Steps = append(dto.Steps, stepDTO)
	}
	return dto, nil
}

// buildStepDTO materializes one step with its annotations in creation order.
func buildStepDTO(db *sqlx.DB, step models.Step) (StepDTO, error) {
	annotations := []models.Annotation{}
	err := db.Select(&annotations, `
SELECT id, step_id, type, coordinates, text, animation, delay_ms, style, created_at
FROM annotations
WHERE step_id = $1
ORDER BY created_at ASC, id ASC
`, step.ID)
	if err != nil {
		return StepDTO{}, err
	}
	stepDTO := StepDTO{
		ID:                 step.ID,
		Order:              step.Order,
		Title:              step.Title,
		ScreenshotURL:      step.ScreenshotURL,
		VideoURL:           step.VideoURL,
		Content:            step.Content,
		ValidationRequired: step.ValidationRequired,
		ValidationType:     step.ValidationType,
		ValidationTarget:   step.ValidationTarget,
		Annotations:        []AnnotationDTO{},
	}
	for _, ann := range annotations {
		coords := json.RawMessage(ann.Coordinates)
		if len(coords) == 0 {
			coords = json.RawMessage("{}")
		}
		var style json.RawMessage
		if len(ann.Style) > 0 {
			style = json.RawMessage(ann.Style)
		}
		stepDTO.Annotations = append(stepDTO.Annotations, AnnotationDTO{
			ID:          ann.ID,
			Type:        ann.Type,
			Coordinates: coords,
			Text:        ann.Text,
			Animation:   ann.Animation,
			Delay:       ann.Delay,
			Style:       style,
		})
	}
	return stepDTO, nil
}
