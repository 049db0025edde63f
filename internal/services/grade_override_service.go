package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/classware/assessment-engine/internal/events"
	"github.com/classware/assessment-engine/internal/models"
	"github.com/classware/assessment-engine/internal/repositories"
	"github.com/classware/assessment-engine/internal/validator"
)

type gradeOverrideService struct {
	repo           repositories.Repository
	db             *gorm.DB
	logger         *slog.Logger
	validator      *validator.Validator
	eventPublisher events.EventPublisher
}

func NewGradeOverrideService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher) GradeOverrideService {
	return &gradeOverrideService{
		repo:           repo,
		db:             db,
		logger:         logger,
		validator:      v,
		eventPublisher: publisher,
	}
}

// Override records a manual grade against the student's latest attempt. When
// the student never submitted, a bare submission row is created so no-shows
// can still receive a grade. Re-running with the same inputs leaves the same
// state, only refreshing the gradedAt stamp.
func (s *gradeOverrideService) Override(ctx context.Context, assessmentID uint, studentID string, req *validator.GradeOverrideRequest, grader *models.User) (*models.Submission, error) {
	s.logger.Info("Recording grade override",
		"assessment_id", assessmentID, "student_id", studentID, "grader_id", grader.ID)

	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, &PersistenceError{Op: "get assessment", Err: err}
	}

	if grader.Role != models.RoleAdmin && assessment.OwnerID != grader.ID {
		return nil, &PermissionError{
			UserID:   grader.ID,
			Action:   "grade",
			Resource: fmt.Sprintf("assessment %d", assessmentID),
		}
	}

	if req.Grade != nil && (*req.Grade < 0 || *req.Grade > assessment.TotalPoints) {
		return nil, ErrGradeOutOfRange
	}

	// The student must exist before we invent a submission row for them.
	if exists, err := s.repo.User().ExistsByID(ctx, studentID); err == nil && !exists {
		return nil, ErrUserNotFound
	}

	now := time.Now().UTC()
	maxScore := assessment.TotalPoints

	submission, err := s.repo.Submission().GetLatest(ctx, assessmentID, studentID)
	switch {
	case err == nil:
		submission.Feedback = req.Feedback
		if req.Grade != nil {
			grade := *req.Grade
			submission.Score = &grade
			submission.MaxScore = &maxScore
			submission.GradedAt = &now
			submission.GradedBy = grader.ID
			submission.Status = models.StatusGraded
		} else {
			// A null grade withdraws the manual grade and reverts the
			// submission to its pre-review status.
			submission.Score = nil
			submission.MaxScore = nil
			submission.GradedAt = nil
			submission.GradedBy = ""
			submission.Status = SubmissionStatusAt(assessment, submission.SubmittedAt)
		}

		if err := s.repo.Submission().Update(ctx, submission); err != nil {
			return nil, &PersistenceError{Op: "update submission", Err: err}
		}

	case errors.Is(err, gorm.ErrRecordNotFound):
		// There is nothing to clear for a student with no submission.
		if req.Grade == nil {
			return nil, ErrSubmissionNotFound
		}

		// Grading a no-show creates the submission record.
		grade := *req.Grade
		submission = &models.Submission{
			AssessmentID:  assessmentID,
			StudentID:     studentID,
			AttemptNumber: 1,
			Status:        models.StatusGraded,
			Score:         &grade,
			MaxScore:      &maxScore,
			Feedback:      req.Feedback,
			GradedAt:      &now,
			GradedBy:      grader.ID,
			SubmittedAt:   now,
		}

		if err := s.repo.Submission().Create(ctx, submission); err != nil {
			return nil, &PersistenceError{Op: "create submission", Err: err}
		}

	default:
		return nil, &PersistenceError{Op: "get submission", Err: err}
	}

	s.publishGradedEvent(ctx, submission)
	s.logger.Info("Grade recorded",
		"submission_id", submission.ID, "score", submission.Score, "max_score", maxScore, "grader_id", grader.ID)

	return submission, nil
}

func (s *gradeOverrideService) publishGradedEvent(ctx context.Context, submission *models.Submission) {
	if s.eventPublisher == nil {
		return
	}

	event := &events.Event{
		Type: events.EventSubmissionGraded,
		Data: events.SubmissionEventData{
			SubmissionID:  submission.ID,
			AssessmentID:  submission.AssessmentID,
			StudentID:     submission.StudentID,
			AttemptNumber: submission.AttemptNumber,
			Status:        string(submission.Status),
			Score:         submission.Score,
			MaxScore:      submission.MaxScore,
		},
		Timestamp: time.Now().UTC(),
	}

	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish graded event", "error", err, "submission_id", submission.ID)
	}
}
