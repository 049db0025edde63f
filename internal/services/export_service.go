package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/classware/assessment-engine/internal/models"
	"github.com/classware/assessment-engine/internal/repositories"
)

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
	}
}

// ExportGradeRoster builds an xlsx workbook with the latest attempt per
// student: name, email, attempt number, score, max score, status and grading
// info. Students whose identity lookup fails still appear with their id.
func (s *exportService) ExportGradeRoster(ctx context.Context, assessmentID uint, caller *models.User) ([]byte, string, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrAssessmentNotFound
		}
		return nil, "", &PersistenceError{Op: "get assessment", Err: err}
	}

	if caller.Role != models.RoleAdmin && assessment.OwnerID != caller.ID {
		return nil, "", &PermissionError{
			UserID:   caller.ID,
			Action:   "export grades for",
			Resource: fmt.Sprintf("assessment %d", assessmentID),
		}
	}

	submissions, err := s.repo.Submission().ListLatestPerStudent(ctx, assessmentID)
	if err != nil {
		return nil, "", &PersistenceError{Op: "list submissions", Err: err}
	}

	studentIDs := make([]string, 0, len(submissions))
	for _, sub := range submissions {
		studentIDs = append(studentIDs, sub.StudentID)
	}
	users, err := s.repo.User().GetByIDs(ctx, studentIDs)
	if err != nil {
		s.logger.Warn("Failed to resolve student identities for roster", "error", err)
	}
	usersByID := make(map[string]*models.User, len(users))
	for _, u := range users {
		usersByID[u.ID] = u
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Grades"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Student", "Email", "Attempt", "Score", "Max Score", "Status", "Submitted At", "Graded By", "Feedback"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, sub := range submissions {
		name := sub.StudentID
		email := ""
		if u, ok := usersByID[sub.StudentID]; ok {
			name = u.FullName
			email = u.Email
		}

		values := []interface{}{
			name,
			email,
			sub.AttemptNumber,
			scoreOrEmpty(sub.Score),
			scoreOrEmpty(sub.MaxScore),
			string(sub.Status),
			sub.SubmittedAt.Format("2006-01-02 15:04"),
			sub.GradedBy,
			sub.Feedback,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to render workbook: %w", err)
	}

	filename := fmt.Sprintf("grades_%d_%s.xlsx", assessment.ID, assessment.Category)
	s.logger.Info("Grade roster exported",
		"assessment_id", assessmentID, "rows", len(submissions), "caller_id", caller.ID)

	return buf.Bytes(), filename, nil
}

func scoreOrEmpty(score *float64) interface{} {
	if score == nil {
		return ""
	}
	return *score
}
