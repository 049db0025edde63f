package repositories

import (
	"context"
	"time"

	"github.com/classware/assessment-engine/internal/models"
)

// ===== FILTER STRUCTS =====

type AssessmentFilters struct {
	Category  *models.AssessmentCategory `json:"category"`
	Modality  *models.AssessmentModality `json:"modality"`
	Published *bool                      `json:"published"`
	ClassID   *uint                      `json:"class_id"`
	OwnerID   *string                    `json:"owner_id"`
	Search    *string                    `json:"search"`
	Limit     int                        `json:"limit"`
	Offset    int                        `json:"offset"`
	SortBy    string                     `json:"sort_by"`    // "created_at", "title", "due_date"
	SortOrder string                     `json:"sort_order"` // "asc", "desc"
}

type SubmissionFilters struct {
	AssessmentID *uint                    `json:"assessment_id"`
	StudentID    *string                  `json:"student_id"`
	Status       *models.SubmissionStatus `json:"status"`
	GradedBy     *string                  `json:"graded_by"`
	DateFrom     *time.Time               `json:"date_from"`
	DateTo       *time.Time               `json:"date_to"`
	Limit        int                      `json:"limit"`
	Offset       int                      `json:"offset"`
	SortBy       string                   `json:"sort_by"`
	SortOrder    string                   `json:"sort_order"`
}

// ===== STATISTICS STRUCTS =====

type AssessmentStats struct {
	TotalSubmissions  int     `json:"total_submissions"`
	GradedSubmissions int     `json:"graded_submissions"`
	LateSubmissions   int     `json:"late_submissions"`
	DistinctStudents  int     `json:"distinct_students"`
	AverageScore      float64 `json:"average_score"`
}

// ===== REPOSITORY INTERFACES =====

type AssessmentRepository interface {
	Create(ctx context.Context, assessment *models.Assessment) error
	GetByID(ctx context.Context, id uint) (*models.Assessment, error)
	Update(ctx context.Context, assessment *models.Assessment) error
	Delete(ctx context.Context, id uint) error

	List(ctx context.Context, filters AssessmentFilters) ([]*models.Assessment, int64, error)
	GetStats(ctx context.Context, id uint) (*AssessmentStats, error)
}

type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uint) (*models.Submission, error)
	Update(ctx context.Context, submission *models.Submission) error
	Delete(ctx context.Context, id uint) error

	List(ctx context.Context, filters SubmissionFilters) ([]*models.Submission, int64, error)

	// CountAttempts counts every attempt a student has made at an assessment,
	// soft-deleted rows excluded.
	CountAttempts(ctx context.Context, assessmentID uint, studentID string) (int, error)

	// GetLatest returns the highest-numbered attempt for a student, or
	// gorm.ErrRecordNotFound when none exist.
	GetLatest(ctx context.Context, assessmentID uint, studentID string) (*models.Submission, error)

	// ListLatestPerStudent returns each student's highest-numbered attempt,
	// used for grade rosters.
	ListLatestPerStudent(ctx context.Context, assessmentID uint) ([]*models.Submission, error)

	HasSubmissions(ctx context.Context, assessmentID uint) (bool, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
}
