package postgres

import (
	"gorm.io/gorm"

	"github.com/classware/assessment-engine/internal/repositories"
)

// SharedHelpers contains query building shared across repositories
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// ApplyAssessmentFilters applies common filters to assessment queries
func (h *SharedHelpers) ApplyAssessmentFilters(query *gorm.DB, filters repositories.AssessmentFilters) *gorm.DB {
	if filters.Category != nil {
		query = query.Where("category = ?", *filters.Category)
	}
	if filters.Modality != nil {
		query = query.Where("modality = ?", *filters.Modality)
	}
	if filters.Published != nil {
		query = query.Where("published = ?", *filters.Published)
	}
	if filters.ClassID != nil {
		query = query.Where("class_id = ?", *filters.ClassID)
	}
	if filters.OwnerID != nil {
		query = query.Where("owner_id = ?", *filters.OwnerID)
	}
	if filters.Search != nil && *filters.Search != "" {
		query = query.Where("title ILIKE ?", "%"+*filters.Search+"%")
	}
	return query
}

// ApplySubmissionFilters applies common filters to submission queries
func (h *SharedHelpers) ApplySubmissionFilters(query *gorm.DB, filters repositories.SubmissionFilters) *gorm.DB {
	if filters.AssessmentID != nil {
		query = query.Where("assessment_id = ?", *filters.AssessmentID)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.GradedBy != nil {
		query = query.Where("graded_by = ?", *filters.GradedBy)
	}
	if filters.DateFrom != nil {
		query = query.Where("submitted_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("submitted_at <= ?", *filters.DateTo)
	}
	return query
}

// ApplyPaginationAndSort applies pagination and sorting with a column whitelist
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	allowedSortColumns := map[string]bool{
		"created_at":     true,
		"updated_at":     true,
		"id":             true,
		"title":          true,
		"due_date":       true,
		"submitted_at":   true,
		"attempt_number": true,
		"score":          true,
		"status":         true,
	}

	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "ASC" {
		sortOrder = "DESC"
	} else {
		sortOrder = "ASC"
	}

	query = query.Order(sortBy + " " + sortOrder)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}
