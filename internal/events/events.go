package events

import (
	"context"
	"time"
)

// Event types published by the assessment engine.
const (
	EventAssessmentPublished = "assessment.published"
	EventAssessmentDeleted   = "assessment.deleted"
	EventSubmissionCreated   = "submission.created"
	EventSubmissionGraded    = "submission.graded"
	EventActivitySubmitted   = "activity.submitted"
)

// Event is the envelope every published message shares.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// SubmissionEventData is the payload for submission lifecycle events.
type SubmissionEventData struct {
	SubmissionID  uint     `json:"submission_id"`
	AssessmentID  uint     `json:"assessment_id"`
	StudentID     string   `json:"student_id"`
	AttemptNumber int      `json:"attempt_number"`
	Status        string   `json:"status"`
	Score         *float64 `json:"score,omitempty"`
	MaxScore      *float64 `json:"max_score,omitempty"`
}

// AssessmentEventData is the payload for assessment lifecycle events.
type AssessmentEventData struct {
	AssessmentID uint   `json:"assessment_id"`
	ClassID      uint   `json:"class_id"`
	Title        string `json:"title"`
	Category     string `json:"category"`
	OwnerID      string `json:"owner_id"`
}

// EventPublisher delivers events to downstream consumers. Publishing is
// fire-and-forget from the caller's point of view; services log failures and
// never fail the originating operation.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
