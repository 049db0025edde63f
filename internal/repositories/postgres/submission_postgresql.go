package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/classware/assessment-engine/internal/cache"
	"github.com/classware/assessment-engine/internal/models"
	"github.com/classware/assessment-engine/internal/repositories"
)

type SubmissionPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewSubmissionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.SubmissionRepository {
	return &SubmissionPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// Create inserts a submission. The composite unique index on assessment,
// student and attempt number makes concurrent duplicate inserts fail with
// gorm.ErrDuplicatedKey, which the service layer retries.
func (s *SubmissionPostgreSQL) Create(ctx context.Context, submission *models.Submission) error {
	if err := s.db.WithContext(ctx).Create(submission).Error; err != nil {
		return err
	}

	cache.InvalidateSubmissionCache(ctx, s.cacheManager, submission.AssessmentID, submission.StudentID)
	return nil
}

func (s *SubmissionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Submission, error) {
	var submission models.Submission
	if err := s.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) Update(ctx context.Context, submission *models.Submission) error {
	result := s.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", submission.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(submission)
	if result.Error != nil {
		return fmt.Errorf("failed to update submission: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	cache.InvalidateSubmissionCache(ctx, s.cacheManager, submission.AssessmentID, submission.StudentID)
	return nil
}

// Delete removes a submission permanently. A soft delete would keep the row
// in the unique attempt index and block the student from submitting again.
func (s *SubmissionPostgreSQL) Delete(ctx context.Context, id uint) error {
	var submission models.Submission
	if err := s.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Unscoped().Delete(&models.Submission{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete submission: %w", result.Error)
	}

	cache.InvalidateSubmissionCache(ctx, s.cacheManager, submission.AssessmentID, submission.StudentID)
	return nil
}

// List returns submissions matching the filters plus the unpaginated total
func (s *SubmissionPostgreSQL) List(ctx context.Context, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Submission{})
	query = s.helpers.ApplySubmissionFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count submissions: %w", err)
	}

	query = s.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var submissions []*models.Submission
	if err := query.Find(&submissions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list submissions: %w", err)
	}

	return submissions, total, nil
}

// CountAttempts counts a student's attempts at an assessment
func (s *SubmissionPostgreSQL) CountAttempts(ctx context.Context, assessmentID uint, studentID string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("assessment_id = ? AND student_id = ?", assessmentID, studentID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return int(count), nil
}

// GetLatest returns the student's highest-numbered attempt
func (s *SubmissionPostgreSQL) GetLatest(ctx context.Context, assessmentID uint, studentID string) (*models.Submission, error) {
	var submission models.Submission
	err := s.db.WithContext(ctx).
		Where("assessment_id = ? AND student_id = ?", assessmentID, studentID).
		Order("attempt_number DESC").
		First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// ListLatestPerStudent returns each student's highest-numbered attempt using
// Postgres DISTINCT ON
func (s *SubmissionPostgreSQL) ListLatestPerStudent(ctx context.Context, assessmentID uint) ([]*models.Submission, error) {
	var submissions []*models.Submission
	err := s.db.WithContext(ctx).
		Raw(`SELECT DISTINCT ON (student_id) *
			FROM submissions
			WHERE assessment_id = ? AND deleted_at IS NULL
			ORDER BY student_id, attempt_number DESC`, assessmentID).
		Scan(&submissions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list latest submissions: %w", err)
	}
	return submissions, nil
}

func (s *SubmissionPostgreSQL) HasSubmissions(ctx context.Context, assessmentID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("assessment_id = ?", assessmentID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check submissions: %w", err)
	}
	return count > 0, nil
}
