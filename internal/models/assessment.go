package models

import (
	"time"

	"gorm.io/gorm"
)

type AssessmentCategory string

const (
	CategoryQuiz     AssessmentCategory = "quiz"
	CategoryExam     AssessmentCategory = "exam"
	CategoryActivity AssessmentCategory = "activity"
)

type AssessmentModality string

const (
	// ModalityStructured assessments carry a question list and are auto-graded
	// on submission.
	ModalityStructured AssessmentModality = "structured"
	// ModalityFileUpload assessments collect file attachments and are graded
	// manually through grade overrides.
	ModalityFileUpload AssessmentModality = "file_upload"
)

// Assessment is the aggregate root for a quiz, exam or class activity.
// Questions are embedded as a JSONB document rather than a child table; they
// are versioned with the assessment and snapshot-graded at submission time.
type Assessment struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Title       string `json:"title" gorm:"not null;size:255"`
	Description string `json:"description" gorm:"type:text"`

	Category AssessmentCategory `json:"category" gorm:"not null;size:20;index"`
	Modality AssessmentModality `json:"modality" gorm:"not null;size:20;default:structured"`

	ClassID uint   `json:"class_id" gorm:"not null;index"`
	OwnerID string `json:"owner_id" gorm:"not null;size:255;index"`

	Questions []Question `json:"questions" gorm:"type:jsonb;serializer:json"`

	// TotalPoints is the sum of points over all scored questions. Maintained on
	// every write that touches Questions.
	TotalPoints float64 `json:"total_points" gorm:"not null;default:0"`

	// Scheduling window. All three are optional; DueDate only marks lateness
	// and never blocks a submission on its own.
	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`
	DueDate        *time.Time `json:"due_date"`

	// TimeLimit in minutes. Zero means untimed.
	TimeLimit int `json:"time_limit" gorm:"default:0"`

	MaxAttempts int `json:"max_attempts" gorm:"not null;default:1"`

	Published bool `json:"published" gorm:"not null;default:false;index"`
	// Locked freezes question content. Metadata edits stay allowed.
	Locked bool `json:"locked" gorm:"not null;default:false"`

	ShuffleQuestions bool `json:"shuffle_questions" gorm:"default:false"`
	ShowResults      bool `json:"show_results" gorm:"default:true"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// ScoredQuestions returns the questions that contribute to TotalPoints,
// preserving order.
func (a *Assessment) ScoredQuestions() []Question {
	scored := make([]Question, 0, len(a.Questions))
	for _, q := range a.Questions {
		if q.IsScored() {
			scored = append(scored, q)
		}
	}
	return scored
}

// ComputeTotalPoints sums points over all scored questions.
func (a *Assessment) ComputeTotalPoints() float64 {
	var total float64
	for _, q := range a.Questions {
		if q.IsScored() {
			total += q.Points
		}
	}
	return total
}

// QuestionByID finds an embedded question definition. The second return is
// false when the id does not match any question, which happens when responses
// drift from an edited question list.
func (a *Assessment) QuestionByID(id string) (Question, bool) {
	for _, q := range a.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}
