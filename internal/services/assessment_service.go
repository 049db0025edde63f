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

type assessmentService struct {
	repo           repositories.Repository
	db             *gorm.DB
	logger         *slog.Logger
	validator      *validator.Validator
	eventPublisher events.EventPublisher
}

func NewAssessmentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher) AssessmentService {
	return &assessmentService{
		repo:           repo,
		db:             db,
		logger:         logger,
		validator:      v,
		eventPublisher: publisher,
	}
}

// Create builds a draft assessment. Question ids are assigned here and stay
// stable for the lifetime of the assessment.
func (s *assessmentService) Create(ctx context.Context, req *validator.AssessmentCreateRequest, ownerID string) (*models.Assessment, error) {
	s.logger.Info("Creating assessment", "title", req.Title, "owner_id", ownerID)

	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}

	modality := req.Modality
	if modality == "" {
		modality = models.ModalityStructured
	}

	if modality == models.ModalityFileUpload && len(req.Questions) > 0 {
		return nil, &BusinessRuleError{
			Rule:    "file_upload_no_questions",
			Message: "file upload assessments cannot carry a question list",
		}
	}

	questions, err := buildQuestions(req.Questions, nil)
	if err != nil {
		return nil, err
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 1
	}

	showResults := true
	if req.ShowResults != nil {
		showResults = *req.ShowResults
	}

	assessment := &models.Assessment{
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		Modality:         modality,
		ClassID:          req.ClassID,
		OwnerID:          ownerID,
		Questions:        questions,
		AvailableFrom:    req.AvailableFrom,
		AvailableUntil:   req.AvailableUntil,
		DueDate:          req.DueDate,
		TimeLimit:        req.TimeLimit,
		MaxAttempts:      maxAttempts,
		ShuffleQuestions: req.ShuffleQuestions,
		ShowResults:      showResults,
	}
	assessment.TotalPoints = assessment.ComputeTotalPoints()

	if err := s.repo.Assessment().Create(ctx, assessment); err != nil {
		s.logger.Error("Failed to create assessment", "error", err, "owner_id", ownerID)
		return nil, &PersistenceError{Op: "create assessment", Err: err}
	}

	s.logger.Info("Assessment created", "assessment_id", assessment.ID, "total_points", assessment.TotalPoints)
	return assessment, nil
}

// GetByID loads an assessment. Students only see published assessments and
// get the question list with answer keys stripped.
func (s *assessmentService) GetByID(ctx context.Context, id uint, caller *models.User) (*models.Assessment, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, &PersistenceError{Op: "get assessment", Err: err}
	}

	if caller.Role == models.RoleStudent {
		if !assessment.Published {
			return nil, ErrAssessmentNotFound
		}
		return sanitizeForStudent(assessment), nil
	}

	return assessment, nil
}

func (s *assessmentService) List(ctx context.Context, filters repositories.AssessmentFilters, caller *models.User) (*AssessmentListResult, error) {
	if caller.Role == models.RoleStudent {
		published := true
		filters.Published = &published
	} else if caller.Role == models.RoleTeacher {
		// Teachers see their own assessments unless scoped to a class.
		if filters.ClassID == nil {
			filters.OwnerID = &caller.ID
		}
	}

	assessments, total, err := s.repo.Assessment().List(ctx, filters)
	if err != nil {
		return nil, &PersistenceError{Op: "list assessments", Err: err}
	}

	if caller.Role == models.RoleStudent {
		for i, a := range assessments {
			assessments[i] = sanitizeForStudent(a)
		}
	}

	return &AssessmentListResult{Assessments: assessments, Total: total}, nil
}

// Update applies a partial update. Question content changes are refused while
// the assessment is locked; metadata stays editable.
func (s *assessmentService) Update(ctx context.Context, id uint, req *validator.AssessmentUpdateRequest, caller *models.User) (*models.Assessment, error) {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}

	assessment, err := s.loadOwned(ctx, id, caller, "update")
	if err != nil {
		return nil, err
	}

	if req.Questions != nil {
		if assessment.Locked {
			return nil, ErrAssessmentLocked
		}
		if assessment.Modality == models.ModalityFileUpload && len(*req.Questions) > 0 {
			return nil, &BusinessRuleError{
				Rule:    "file_upload_no_questions",
				Message: "file upload assessments cannot carry a question list",
			}
		}
		questions, err := buildQuestions(*req.Questions, assessment.Questions)
		if err != nil {
			return nil, err
		}
		assessment.Questions = questions
		assessment.TotalPoints = assessment.ComputeTotalPoints()
	}

	applyMetadataUpdates(assessment, req)

	if req.Published != nil && *req.Published && !assessment.Published {
		if err := s.preparePublish(assessment); err != nil {
			return nil, err
		}
	} else if req.Published != nil {
		assessment.Published = *req.Published
	}
	if req.Locked != nil {
		assessment.Locked = *req.Locked
	}

	if err := s.repo.Assessment().Update(ctx, assessment); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, &PersistenceError{Op: "update assessment", Err: err}
	}

	s.logger.Info("Assessment updated", "assessment_id", assessment.ID, "locked", assessment.Locked)
	return assessment, nil
}

// Delete refuses while any submission references the assessment.
func (s *assessmentService) Delete(ctx context.Context, id uint, caller *models.User) error {
	assessment, err := s.loadOwned(ctx, id, caller, "delete")
	if err != nil {
		return err
	}

	hasSubmissions, err := s.repo.Submission().HasSubmissions(ctx, id)
	if err != nil {
		return &PersistenceError{Op: "check submissions", Err: err}
	}
	if hasSubmissions {
		return ErrAssessmentHasSubmissions
	}

	if err := s.repo.Assessment().Delete(ctx, id); err != nil {
		return &PersistenceError{Op: "delete assessment", Err: err}
	}

	s.publishEvent(ctx, events.EventAssessmentDeleted, assessment)
	s.logger.Info("Assessment deleted", "assessment_id", id, "owner_id", caller.ID)
	return nil
}

// Publish marks the assessment visible to students and locks its questions
// against further edits.
func (s *assessmentService) Publish(ctx context.Context, id uint, caller *models.User) (*models.Assessment, error) {
	assessment, err := s.loadOwned(ctx, id, caller, "publish")
	if err != nil {
		return nil, err
	}

	if assessment.Published {
		return assessment, nil
	}

	if err := s.preparePublish(assessment); err != nil {
		return nil, err
	}

	if err := s.repo.Assessment().Update(ctx, assessment); err != nil {
		return nil, &PersistenceError{Op: "publish assessment", Err: err}
	}

	s.publishEvent(ctx, events.EventAssessmentPublished, assessment)
	s.logger.Info("Assessment published", "assessment_id", assessment.ID)
	return assessment, nil
}

func (s *assessmentService) GetStats(ctx context.Context, id uint, caller *models.User) (*repositories.AssessmentStats, error) {
	if _, err := s.loadOwned(ctx, id, caller, "view stats for"); err != nil {
		return nil, err
	}

	stats, err := s.repo.Assessment().GetStats(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "get assessment stats", Err: err}
	}
	return stats, nil
}

// preparePublish sets the publish flags after checking the assessment is
// actually takeable.
func (s *assessmentService) preparePublish(assessment *models.Assessment) error {
	if assessment.Modality == models.ModalityStructured && len(assessment.ScoredQuestions()) == 0 {
		return &BusinessRuleError{
			Rule:    "publish_requires_questions",
			Message: "a structured assessment needs at least one scored question before publishing",
		}
	}

	assessment.Published = true
	assessment.Locked = true
	return nil
}

// loadOwned fetches an assessment and checks the caller may manage it.
func (s *assessmentService) loadOwned(ctx context.Context, id uint, caller *models.User, action string) (*models.Assessment, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, &PersistenceError{Op: "get assessment", Err: err}
	}

	if caller.Role != models.RoleAdmin && assessment.OwnerID != caller.ID {
		return nil, &PermissionError{
			UserID:   caller.ID,
			Action:   action,
			Resource: fmt.Sprintf("assessment %d", id),
		}
	}

	return assessment, nil
}

func (s *assessmentService) publishEvent(ctx context.Context, eventType string, assessment *models.Assessment) {
	if s.eventPublisher == nil {
		return
	}

	event := &events.Event{
		Type: eventType,
		Data: events.AssessmentEventData{
			AssessmentID: assessment.ID,
			ClassID:      assessment.ClassID,
			Title:        assessment.Title,
			Category:     string(assessment.Category),
			OwnerID:      assessment.OwnerID,
		},
		Timestamp: time.Now().UTC(),
	}

	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish assessment event", "error", err, "event_type", eventType, "assessment_id", assessment.ID)
	}
}
