package validator

import (
	"encoding/json"
	"time"

	"github.com/classware/assessment-engine/internal/models"
)

// QuestionInput is one question definition in a create or update request.
// Ids are assigned server-side; clients may echo existing ids back on update
// so questions keep their identity.
type QuestionInput struct {
	ID     string              `json:"id"`
	Type   models.QuestionType `json:"type" validate:"required,question_type"`
	Text   string              `json:"text" validate:"max=2000"`
	Points float64             `json:"points" validate:"min=0"`

	Options  []OptionInput    `json:"options" validate:"omitempty,dive"`
	Answer   string           `json:"answer" validate:"omitempty,max=500"`
	Items    []string         `json:"items" validate:"omitempty,dive,max=500"`
	Pairs    []MatchPairInput `json:"pairs" validate:"omitempty,dive"`
	ImageURL *string          `json:"image_url" validate:"omitempty,url"`
}

type OptionInput struct {
	Text      string `json:"text" validate:"required,max=500"`
	IsCorrect bool   `json:"is_correct"`
}

type MatchPairInput struct {
	Left  string `json:"left" validate:"required,max=500"`
	Right string `json:"right" validate:"required,max=500"`
}

// AssessmentCreateRequest creates a draft assessment.
type AssessmentCreateRequest struct {
	Title       string                    `json:"title" validate:"required,assessment_title"`
	Description string                    `json:"description" validate:"max=1000"`
	Category    models.AssessmentCategory `json:"category" validate:"required,assessment_category"`
	Modality    models.AssessmentModality `json:"modality" validate:"omitempty,assessment_modality"`
	ClassID     uint                      `json:"class_id" validate:"required"`

	Questions []QuestionInput `json:"questions" validate:"omitempty,dive"`

	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`
	DueDate        *time.Time `json:"due_date"`

	TimeLimit   int `json:"time_limit" validate:"min=0,max=600"`
	MaxAttempts int `json:"max_attempts" validate:"omitempty,max_attempts"`

	ShuffleQuestions bool  `json:"shuffle_questions"`
	ShowResults      *bool `json:"show_results"`
}

// AssessmentUpdateRequest updates an assessment. Nil fields are untouched.
// Questions replaces the whole question list when present; locked assessments
// reject it.
type AssessmentUpdateRequest struct {
	Title       *string                    `json:"title" validate:"omitempty,assessment_title"`
	Description *string                    `json:"description" validate:"omitempty,max=1000"`
	Category    *models.AssessmentCategory `json:"category" validate:"omitempty,assessment_category"`

	Questions *[]QuestionInput `json:"questions" validate:"omitempty,dive"`

	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`
	DueDate        *time.Time `json:"due_date"`

	TimeLimit   *int `json:"time_limit" validate:"omitempty,min=0,max=600"`
	MaxAttempts *int `json:"max_attempts" validate:"omitempty,max_attempts"`

	Published *bool `json:"published"`
	Locked    *bool `json:"locked"`

	ShuffleQuestions *bool `json:"shuffle_questions"`
	ShowResults      *bool `json:"show_results"`
}

// ResponseInput is one answered question. Answer stays raw because its shape
// depends on the question type.
type ResponseInput struct {
	QuestionID string          `json:"question_id" validate:"required"`
	Answer     json.RawMessage `json:"answer"`
}

// SubmitRequest submits a structured assessment attempt.
type SubmitRequest struct {
	Responses []ResponseInput `json:"responses" validate:"required,dive"`
	TimeSpent int             `json:"time_spent" validate:"min=0"`
	StartedAt *time.Time      `json:"started_at"`
}

type FileInput struct {
	Name string `json:"name" validate:"required,max=255"`
	URL  string `json:"url" validate:"required,url"`
	Type string `json:"type" validate:"max=100"`
	Size int64  `json:"size" validate:"min=0"`
}

// FileSubmitRequest creates or replaces a file-upload submission. An empty
// Files list deletes the submission.
type FileSubmitRequest struct {
	Files   []FileInput `json:"files" validate:"omitempty,dive"`
	Comment string      `json:"comment" validate:"max=2000"`
}

// GradeOverrideRequest records a manual grade for a student. A null grade
// clears any previously recorded manual grade.
type GradeOverrideRequest struct {
	Grade    *float64 `json:"grade" validate:"omitempty,min=0"`
	Feedback string   `json:"feedback" validate:"max=2000"`
}
