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

// attemptInsertRetries bounds the count-then-insert retry loop. Two racing
// submits need at most one retry each; a few spare rounds cover bursts.
const attemptInsertRetries = 3

type submissionService struct {
	repo           repositories.Repository
	db             *gorm.DB
	logger         *slog.Logger
	validator      *validator.Validator
	eventPublisher events.EventPublisher
}

func NewSubmissionService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher) SubmissionService {
	return &submissionService{
		repo:           repo,
		db:             db,
		logger:         logger,
		validator:      v,
		eventPublisher: publisher,
	}
}

// Submit grades and persists one structured attempt.
//
// The attempt number is derived from a count inside a transaction. Two
// concurrent submits can read the same count; the unique index on
// (assessment_id, student_id, attempt_number) makes the second insert fail
// with a duplicate key error, and the loop re-reads the count and re-checks
// the attempt limit before trying again. This keeps the number of successful
// attempts exactly at the limit no matter how many submits race.
func (s *submissionService) Submit(ctx context.Context, assessmentID uint, studentID string, req *validator.SubmitRequest) (*SubmissionReceipt, error) {
	s.logger.Info("Processing submission", "assessment_id", assessmentID, "student_id", studentID)

	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}

	assessment, err := s.loadAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if assessment.Modality != models.ModalityStructured {
		return nil, ErrWrongModality
	}

	now := time.Now().UTC()
	responses, score, maxScore := GradeAll(assessment, req.Responses)

	submission := &models.Submission{
		AssessmentID: assessmentID,
		StudentID:    studentID,
		Status:       SubmissionStatusAt(assessment, now),
		Responses:    responses,
		Score:        &score,
		MaxScore:     &maxScore,
		TimeSpent:    req.TimeSpent,
		StartedAt:    req.StartedAt,
		SubmittedAt:  now,
	}

	var attemptCount int
	for retry := 0; ; retry++ {
		err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
			count, err := txRepo.Submission().CountAttempts(ctx, assessmentID, studentID)
			if err != nil {
				return err
			}
			attemptCount = count

			if err := CanSubmit(assessment, count, now); err != nil {
				return err
			}

			submission.ID = 0
			submission.AttemptNumber = count + 1
			return txRepo.Submission().Create(ctx, submission)
		})
		if err == nil {
			break
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) && retry < attemptInsertRetries {
			s.logger.Debug("Attempt number collision, retrying",
				"assessment_id", assessmentID, "student_id", studentID, "retry", retry+1)
			continue
		}
		if isPolicyDenial(err) {
			return nil, err
		}
		s.logger.Error("Failed to persist submission", "error", err, "assessment_id", assessmentID)
		return nil, &PersistenceError{Op: "create submission", Err: err}
	}

	s.publishSubmissionEvent(ctx, events.EventSubmissionCreated, submission)
	s.logger.Info("Submission recorded",
		"submission_id", submission.ID,
		"assessment_id", assessmentID,
		"attempt_number", submission.AttemptNumber,
		"score", score,
		"status", submission.Status)

	return &SubmissionReceipt{
		SubmissionID:      submission.ID,
		AssessmentID:      assessmentID,
		AttemptNumber:     submission.AttemptNumber,
		Status:            submission.Status,
		Score:             submission.Score,
		MaxScore:          submission.MaxScore,
		Late:              submission.Status == models.StatusLate,
		RemainingAttempts: RemainingAttempts(assessment, attemptCount+1),
		SubmittedAt:       submission.SubmittedAt,
	}, nil
}

// SubmitFiles creates or replaces a file-upload submission. Resubmitting
// overwrites the file list and comment and clears any earlier grade; an empty
// file list deletes the submission outright.
func (s *submissionService) SubmitFiles(ctx context.Context, assessmentID uint, studentID string, req *validator.FileSubmitRequest) (*models.Submission, error) {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}

	assessment, err := s.loadAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if assessment.Modality != models.ModalityFileUpload {
		return nil, ErrWrongModality
	}

	now := time.Now().UTC()
	existing, err := s.repo.Submission().GetLatest(ctx, assessmentID, studentID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &PersistenceError{Op: "get submission", Err: err}
	}

	if len(req.Files) == 0 {
		if existing == nil {
			return nil, ErrNoFilesAttached
		}
		if err := s.repo.Submission().Delete(ctx, existing.ID); err != nil {
			return nil, &PersistenceError{Op: "delete submission", Err: err}
		}
		s.logger.Info("File submission withdrawn", "submission_id", existing.ID, "student_id", studentID)
		return nil, nil
	}

	files := make([]models.FileRef, 0, len(req.Files))
	for _, f := range req.Files {
		files = append(files, models.FileRef{Name: f.Name, URL: f.URL, Type: f.Type, Size: f.Size})
	}

	if existing != nil {
		// Overwrite invalidates any grade recorded against the old files.
		existing.Files = files
		existing.Comment = req.Comment
		existing.Score = nil
		existing.MaxScore = nil
		existing.Feedback = ""
		existing.GradedAt = nil
		existing.GradedBy = ""
		existing.Status = SubmissionStatusAt(assessment, now)
		existing.SubmittedAt = now

		if err := s.repo.Submission().Update(ctx, existing); err != nil {
			return nil, &PersistenceError{Op: "update submission", Err: err}
		}

		s.publishSubmissionEvent(ctx, events.EventActivitySubmitted, existing)
		s.logger.Info("File submission replaced", "submission_id", existing.ID, "files", len(files))
		return existing, nil
	}

	if err := CanSubmit(assessment, 0, now); err != nil {
		return nil, err
	}

	submission := &models.Submission{
		AssessmentID:  assessmentID,
		StudentID:     studentID,
		AttemptNumber: 1,
		Status:        SubmissionStatusAt(assessment, now),
		Files:         files,
		Comment:       req.Comment,
		SubmittedAt:   now,
	}

	if err := s.repo.Submission().Create(ctx, submission); err != nil {
		return nil, &PersistenceError{Op: "create submission", Err: err}
	}

	s.publishSubmissionEvent(ctx, events.EventActivitySubmitted, submission)
	s.logger.Info("File submission created", "submission_id", submission.ID, "files", len(files))
	return submission, nil
}

// RemoveFile detaches one file by URL. Removing the last file deletes the
// whole submission and returns nil.
func (s *submissionService) RemoveFile(ctx context.Context, assessmentID uint, studentID, fileURL string) (*models.Submission, error) {
	submission, err := s.repo.Submission().GetLatest(ctx, assessmentID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, &PersistenceError{Op: "get submission", Err: err}
	}

	remaining := make([]models.FileRef, 0, len(submission.Files))
	found := false
	for _, f := range submission.Files {
		if f.URL == fileURL {
			found = true
			continue
		}
		remaining = append(remaining, f)
	}
	if !found {
		return nil, &BusinessRuleError{Rule: "file_not_attached", Message: "file is not attached to the submission"}
	}

	if len(remaining) == 0 {
		if err := s.repo.Submission().Delete(ctx, submission.ID); err != nil {
			return nil, &PersistenceError{Op: "delete submission", Err: err}
		}
		s.logger.Info("Last file removed, submission deleted", "submission_id", submission.ID)
		return nil, nil
	}

	submission.Files = remaining
	if err := s.repo.Submission().Update(ctx, submission); err != nil {
		return nil, &PersistenceError{Op: "update submission", Err: err}
	}

	return submission, nil
}

func (s *submissionService) GetByID(ctx context.Context, id uint, caller *models.User) (*models.Submission, error) {
	submission, err := s.repo.Submission().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, &PersistenceError{Op: "get submission", Err: err}
	}

	if caller.Role == models.RoleStudent && submission.StudentID != caller.ID {
		return nil, &PermissionError{
			UserID:   caller.ID,
			Action:   "view",
			Resource: fmt.Sprintf("submission %d", id),
		}
	}

	return submission, nil
}

func (s *submissionService) ListByAssessment(ctx context.Context, assessmentID uint, filters repositories.SubmissionFilters, caller *models.User) (*SubmissionListResult, error) {
	assessment, err := s.loadAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	if caller.Role != models.RoleAdmin && assessment.OwnerID != caller.ID {
		return nil, &PermissionError{
			UserID:   caller.ID,
			Action:   "list submissions for",
			Resource: fmt.Sprintf("assessment %d", assessmentID),
		}
	}

	filters.AssessmentID = &assessmentID
	submissions, total, err := s.repo.Submission().List(ctx, filters)
	if err != nil {
		return nil, &PersistenceError{Op: "list submissions", Err: err}
	}

	return &SubmissionListResult{Submissions: submissions, Total: total}, nil
}

func (s *submissionService) ListByStudent(ctx context.Context, studentID string, filters repositories.SubmissionFilters, caller *models.User) (*SubmissionListResult, error) {
	if caller.Role == models.RoleStudent && caller.ID != studentID {
		return nil, &PermissionError{
			UserID:   caller.ID,
			Action:   "view submissions of",
			Resource: fmt.Sprintf("student %s", studentID),
		}
	}

	filters.StudentID = &studentID
	submissions, total, err := s.repo.Submission().List(ctx, filters)
	if err != nil {
		return nil, &PersistenceError{Op: "list submissions", Err: err}
	}

	return &SubmissionListResult{Submissions: submissions, Total: total}, nil
}

func (s *submissionService) loadAssessment(ctx context.Context, id uint) (*models.Assessment, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, &PersistenceError{Op: "get assessment", Err: err}
	}
	return assessment, nil
}

// isPolicyDenial distinguishes attempt-gate rejections from storage failures.
func isPolicyDenial(err error) bool {
	return errors.Is(err, ErrAssessmentNotPublished) ||
		errors.Is(err, ErrAssessmentNotYetAvailable) ||
		errors.Is(err, ErrAssessmentWindowClosed) ||
		errors.Is(err, ErrAttemptsExhausted)
}

func (s *submissionService) publishSubmissionEvent(ctx context.Context, eventType string, submission *models.Submission) {
	if s.eventPublisher == nil {
		return
	}

	event := &events.Event{
		Type: eventType,
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
		s.logger.Warn("Failed to publish submission event",
			"error", err, "event_type", eventType, "submission_id", submission.ID)
	}
}
