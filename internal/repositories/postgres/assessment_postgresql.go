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

type AssessmentPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewAssessmentPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AssessmentRepository {
	return &AssessmentPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// Create inserts a new assessment and invalidates list caches
func (a *AssessmentPostgreSQL) Create(ctx context.Context, assessment *models.Assessment) error {
	if err := a.db.WithContext(ctx).Create(assessment).Error; err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}
	cache.SafeInvalidatePattern(ctx, a.cacheManager.Assessment, fmt.Sprintf("creator:%s:*", assessment.OwnerID))
	cache.SafeInvalidatePattern(ctx, a.cacheManager.Assessment, "list:*")

	return nil
}

// GetByID retrieves an assessment by ID with caching
func (a *AssessmentPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Assessment, error) {
	cacheKey := fmt.Sprintf("id:%d", id)
	var assessment models.Assessment

	err := a.cacheManager.Assessment.CacheOrExecute(ctx, cacheKey, &assessment, cache.AssessmentCacheConfig.TTL, func() (interface{}, error) {
		var dbAssessment models.Assessment
		if err := a.db.WithContext(ctx).First(&dbAssessment, id).Error; err != nil {
			return nil, err
		}
		return &dbAssessment, nil
	})
	if err != nil {
		return nil, err
	}

	return &assessment, nil
}

// Update writes the full assessment row and invalidates its caches
func (a *AssessmentPostgreSQL) Update(ctx context.Context, assessment *models.Assessment) error {
	result := a.db.WithContext(ctx).
		Model(&models.Assessment{}).
		Where("id = ?", assessment.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(assessment)
	if result.Error != nil {
		return fmt.Errorf("failed to update assessment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	cache.InvalidateAssessmentCache(ctx, a.cacheManager, assessment.ID, assessment.OwnerID)

	return nil
}

// Delete soft-deletes an assessment
func (a *AssessmentPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := a.db.WithContext(ctx).Delete(&models.Assessment{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete assessment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	cache.SafeDelete(ctx, a.cacheManager.Assessment, fmt.Sprintf("id:%d", id))
	cache.SafeInvalidatePattern(ctx, a.cacheManager.Assessment, "list:*")

	return nil
}

// List returns assessments matching the filters plus the unpaginated total
func (a *AssessmentPostgreSQL) List(ctx context.Context, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	query := a.db.WithContext(ctx).Model(&models.Assessment{})
	query = a.helpers.ApplyAssessmentFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count assessments: %w", err)
	}

	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var assessments []*models.Assessment
	if err := query.Find(&assessments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list assessments: %w", err)
	}

	return assessments, total, nil
}

// GetStats aggregates submission statistics for an assessment, cached briefly
func (a *AssessmentPostgreSQL) GetStats(ctx context.Context, id uint) (*repositories.AssessmentStats, error) {
	cacheKey := fmt.Sprintf("assessment:%d:stats", id)
	var stats repositories.AssessmentStats

	err := a.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var result repositories.AssessmentStats

		row := a.db.WithContext(ctx).
			Model(&models.Submission{}).
			Select(`COUNT(*) AS total_submissions,
				COUNT(*) FILTER (WHERE status = ?) AS graded_submissions,
				COUNT(*) FILTER (WHERE status = ?) AS late_submissions,
				COUNT(DISTINCT student_id) AS distinct_students,
				COALESCE(AVG(score), 0) AS average_score`,
				models.StatusGraded, models.StatusLate).
			Where("assessment_id = ?", id).
			Row()

		if err := row.Scan(&result.TotalSubmissions, &result.GradedSubmissions,
			&result.LateSubmissions, &result.DistinctStudents, &result.AverageScore); err != nil {
			return nil, fmt.Errorf("failed to get assessment stats: %w", err)
		}

		return &result, nil
	})
	if err != nil {
		return nil, err
	}

	return &stats, nil
}
