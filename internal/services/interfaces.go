package services

import (
	"context"
	"time"

	"github.com/classware/assessment-engine/internal/models"
	"github.com/classware/assessment-engine/internal/repositories"
	"github.com/classware/assessment-engine/internal/validator"
)

// ===== RESULT TYPES =====

// SubmissionReceipt is what a student gets back after submitting. It carries
// grading totals but never the answer key or per-question verdicts.
type SubmissionReceipt struct {
	SubmissionID      uint                    `json:"submission_id"`
	AssessmentID      uint                    `json:"assessment_id"`
	AttemptNumber     int                     `json:"attempt_number"`
	Status            models.SubmissionStatus `json:"status"`
	Score             *float64                `json:"score,omitempty"`
	MaxScore          *float64                `json:"max_score,omitempty"`
	Late              bool                    `json:"late"`
	RemainingAttempts int                     `json:"remaining_attempts"`
	SubmittedAt       time.Time               `json:"submitted_at"`
}

// SubmissionListResult pairs a page of submissions with the total count.
type SubmissionListResult struct {
	Submissions []*models.Submission `json:"submissions"`
	Total       int64                `json:"total"`
}

// AssessmentListResult pairs a page of assessments with the total count.
type AssessmentListResult struct {
	Assessments []*models.Assessment `json:"assessments"`
	Total       int64                `json:"total"`
}

// ===== SERVICE INTERFACES =====

type AssessmentService interface {
	Create(ctx context.Context, req *validator.AssessmentCreateRequest, ownerID string) (*models.Assessment, error)
	GetByID(ctx context.Context, id uint, caller *models.User) (*models.Assessment, error)
	List(ctx context.Context, filters repositories.AssessmentFilters, caller *models.User) (*AssessmentListResult, error)
	Update(ctx context.Context, id uint, req *validator.AssessmentUpdateRequest, caller *models.User) (*models.Assessment, error)
	Delete(ctx context.Context, id uint, caller *models.User) error
	Publish(ctx context.Context, id uint, caller *models.User) (*models.Assessment, error)
	GetStats(ctx context.Context, id uint, caller *models.User) (*repositories.AssessmentStats, error)
}

type SubmissionService interface {
	// Submit grades and persists a structured attempt.
	Submit(ctx context.Context, assessmentID uint, studentID string, req *validator.SubmitRequest) (*SubmissionReceipt, error)

	// SubmitFiles creates or replaces a file-upload submission. An empty file
	// list removes the submission entirely.
	SubmitFiles(ctx context.Context, assessmentID uint, studentID string, req *validator.FileSubmitRequest) (*models.Submission, error)

	// RemoveFile detaches one file by URL; removing the last file deletes the
	// submission.
	RemoveFile(ctx context.Context, assessmentID uint, studentID, fileURL string) (*models.Submission, error)

	GetByID(ctx context.Context, id uint, caller *models.User) (*models.Submission, error)
	ListByAssessment(ctx context.Context, assessmentID uint, filters repositories.SubmissionFilters, caller *models.User) (*SubmissionListResult, error)
	ListByStudent(ctx context.Context, studentID string, filters repositories.SubmissionFilters, caller *models.User) (*SubmissionListResult, error)
}

type GradeOverrideService interface {
	// Override records a teacher grade for a student's latest attempt,
	// creating a submission when the student never submitted.
	Override(ctx context.Context, assessmentID uint, studentID string, req *validator.GradeOverrideRequest, grader *models.User) (*models.Submission, error)
}

type ExportService interface {
	// ExportGradeRoster renders an xlsx workbook with one row per student's
	// latest attempt. Returns the file bytes and a suggested filename.
	ExportGradeRoster(ctx context.Context, assessmentID uint, caller *models.User) ([]byte, string, error)
}

// ServiceManager provides access to all services
type ServiceManager interface {
	Assessment() AssessmentService
	Submission() SubmissionService
	GradeOverride() GradeOverrideService
	Export() ExportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
