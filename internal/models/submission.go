package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SubmissionStatus string

const (
	StatusSubmitted SubmissionStatus = "submitted"
	StatusLate      SubmissionStatus = "late"
	StatusGraded    SubmissionStatus = "graded"
)

// Response is a single graded answer inside a submission. Answer keeps the raw
// student payload since its shape depends on the question type.
type Response struct {
	QuestionID  string         `json:"question_id"`
	Answer      datatypes.JSON `json:"answer"`
	Points      float64        `json:"points"`
	IsCorrect   *bool          `json:"is_correct,omitempty"`
	NeedsReview bool           `json:"needs_review,omitempty"`
}

// FileRef describes one uploaded attachment on a file-modality submission.
type FileRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// Submission records one attempt at an assessment. Score and MaxScore are
// snapshots taken against the question list as it existed at grading time, so
// later edits to the assessment never rewrite history.
//
// The composite unique index backs the attempt-count race check: a concurrent
// duplicate insert fails on the index and the service retries with the next
// attempt number.
type Submission struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	AssessmentID  uint   `json:"assessment_id" gorm:"not null;uniqueIndex:idx_submission_attempt;index"`
	StudentID     string `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_submission_attempt;index"`
	AttemptNumber int    `json:"attempt_number" gorm:"not null;default:1;uniqueIndex:idx_submission_attempt"`

	Status SubmissionStatus `json:"status" gorm:"not null;size:20;default:submitted;index"`

	Responses []Response `json:"responses" gorm:"type:jsonb;serializer:json"`
	Files     []FileRef  `json:"files" gorm:"type:jsonb;serializer:json"`
	Comment   string     `json:"comment" gorm:"type:text"`

	Score    *float64 `json:"score"`
	MaxScore *float64 `json:"max_score"`

	Feedback string     `json:"feedback" gorm:"type:text"`
	GradedAt *time.Time `json:"graded_at"`
	GradedBy string     `json:"graded_by" gorm:"size:255"`

	// TimeSpent in seconds, reported by the client.
	TimeSpent   int        `json:"time_spent" gorm:"default:0"`
	StartedAt   *time.Time `json:"started_at"`
	SubmittedAt time.Time  `json:"submitted_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Submission) TableName() string {
	return "submissions"
}

// IsGraded reports whether a teacher grade has been recorded.
func (s *Submission) IsGraded() bool {
	return s.Status == StatusGraded && s.GradedAt != nil
}
