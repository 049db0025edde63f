package services

import (
	"context"
	"errors"
	"testing"

	"github.com/classware/assessment-engine/internal/events"
	"github.com/classware/assessment-engine/internal/models"
	"github.com/classware/assessment-engine/internal/validator"
)

func newOverrideService(repo *mockRepository, publisher events.EventPublisher) GradeOverrideService {
	return NewGradeOverrideService(repo, nil, testLogger(), validator.New(), publisher)
}

func overrideReq(grade float64, feedback string) *validator.GradeOverrideRequest {
	return &validator.GradeOverrideRequest{Grade: &grade, Feedback: feedback}
}

func TestGradeOverride(t *testing.T) {
	ctx := context.Background()
	owner := &models.User{ID: "teacher-1", Role: models.RoleTeacher}

	setup := func(t *testing.T) (*mockRepository, GradeOverrideService, *models.Assessment) {
		repo := newMockRepository()
		repo.addUser(&models.User{ID: "student-1", Role: models.RoleStudent})
		activity := repo.addAssessment(&models.Assessment{
			Title:       "Lab report",
			Category:    models.CategoryActivity,
			Modality:    models.ModalityFileUpload,
			OwnerID:     owner.ID,
			Published:   true,
			MaxAttempts: 1,
			TotalPoints: 100,
		})
		return repo, newOverrideService(repo, nil), activity
	}

	t.Run("grades an existing submission", func(t *testing.T) {
		repo, svc, activity := setup(t)

		subSvc := newSubmissionService(repo, nil)
		existing, err := subSvc.SubmitFiles(ctx, activity.ID, "student-1", &validator.FileSubmitRequest{
			Files: []validator.FileInput{{Name: "a.pdf", URL: "https://files.example.com/a.pdf"}},
		})
		if err != nil {
			t.Fatalf("SubmitFiles() error = %v", err)
		}

		graded, err := svc.Override(ctx, activity.ID, "student-1", overrideReq(85, "solid work"), owner)
		if err != nil {
			t.Fatalf("Override() error = %v", err)
		}

		if graded.ID != existing.ID {
			t.Errorf("graded submission id = %d, want existing %d", graded.ID, existing.ID)
		}
		if graded.Score == nil || *graded.Score != 85 {
			t.Errorf("Score = %v, want 85", graded.Score)
		}
		if graded.MaxScore == nil || *graded.MaxScore != 100 {
			t.Errorf("MaxScore = %v, want 100", graded.MaxScore)
		}
		if graded.Status != models.StatusGraded {
			t.Errorf("Status = %v, want %v", graded.Status, models.StatusGraded)
		}
		if graded.GradedBy != owner.ID || graded.GradedAt == nil {
			t.Errorf("grader stamp missing: by=%q at=%v", graded.GradedBy, graded.GradedAt)
		}
		if graded.Feedback != "solid work" {
			t.Errorf("Feedback = %q", graded.Feedback)
		}
	})

	t.Run("creates a submission for a no-show", func(t *testing.T) {
		_, svc, activity := setup(t)

		graded, err := svc.Override(ctx, activity.ID, "student-1", overrideReq(0, "missing"), owner)
		if err != nil {
			t.Fatalf("Override() error = %v", err)
		}

		if graded.ID == 0 {
			t.Error("no-show submission was not persisted")
		}
		if graded.AttemptNumber != 1 {
			t.Errorf("AttemptNumber = %d, want 1", graded.AttemptNumber)
		}
		if graded.Status != models.StatusGraded {
			t.Errorf("Status = %v, want %v", graded.Status, models.StatusGraded)
		}
		if len(graded.Files) != 0 || len(graded.Responses) != 0 {
			t.Error("no-show submission must carry no content")
		}
	})

	t.Run("re-running leaves the same state", func(t *testing.T) {
		_, svc, activity := setup(t)

		first, err := svc.Override(ctx, activity.ID, "student-1", overrideReq(70, "ok"), owner)
		if err != nil {
			t.Fatalf("first Override() error = %v", err)
		}
		second, err := svc.Override(ctx, activity.ID, "student-1", overrideReq(70, "ok"), owner)
		if err != nil {
			t.Fatalf("second Override() error = %v", err)
		}

		if second.ID != first.ID {
			t.Errorf("second override created a new submission: %d != %d", second.ID, first.ID)
		}
		if second.AttemptNumber != first.AttemptNumber {
			t.Errorf("attempt number changed: %d -> %d", first.AttemptNumber, second.AttemptNumber)
		}
		if *second.Score != 70 || second.Feedback != "ok" {
			t.Errorf("state drifted: score=%v feedback=%q", *second.Score, second.Feedback)
		}
	})

	t.Run("null grade withdraws a recorded grade", func(t *testing.T) {
		repo, svc, activity := setup(t)

		subSvc := newSubmissionService(repo, nil)
		if _, err := subSvc.SubmitFiles(ctx, activity.ID, "student-1", &validator.FileSubmitRequest{
			Files: []validator.FileInput{{Name: "a.pdf", URL: "https://files.example.com/a.pdf"}},
		}); err != nil {
			t.Fatalf("SubmitFiles() error = %v", err)
		}
		if _, err := svc.Override(ctx, activity.ID, "student-1", overrideReq(80, "first pass"), owner); err != nil {
			t.Fatalf("Override() error = %v", err)
		}

		cleared, err := svc.Override(ctx, activity.ID, "student-1",
			&validator.GradeOverrideRequest{Feedback: "withdrawn pending appeal"}, owner)
		if err != nil {
			t.Fatalf("Override(null) error = %v", err)
		}

		if cleared.Score != nil || cleared.MaxScore != nil {
			t.Errorf("score not cleared: score=%v maxScore=%v", cleared.Score, cleared.MaxScore)
		}
		if cleared.GradedAt != nil || cleared.GradedBy != "" {
			t.Errorf("grader stamp not cleared: at=%v by=%q", cleared.GradedAt, cleared.GradedBy)
		}
		if cleared.Status != models.StatusSubmitted {
			t.Errorf("Status = %v, want %v", cleared.Status, models.StatusSubmitted)
		}
		if cleared.Feedback != "withdrawn pending appeal" {
			t.Errorf("Feedback = %q", cleared.Feedback)
		}
	})

	t.Run("null grade without a submission", func(t *testing.T) {
		_, svc, activity := setup(t)

		_, err := svc.Override(ctx, activity.ID, "student-1", &validator.GradeOverrideRequest{}, owner)
		if !errors.Is(err, ErrSubmissionNotFound) {
			t.Errorf("Override(null) error = %v, want %v", err, ErrSubmissionNotFound)
		}
	})

	t.Run("grade bounds", func(t *testing.T) {
		_, svc, activity := setup(t)

		if _, err := svc.Override(ctx, activity.ID, "student-1", overrideReq(101, ""), owner); !errors.Is(err, ErrGradeOutOfRange) {
			t.Errorf("Override(101) error = %v, want %v", err, ErrGradeOutOfRange)
		}

		// Boundary values are allowed.
		if _, err := svc.Override(ctx, activity.ID, "student-1", overrideReq(100, ""), owner); err != nil {
			t.Errorf("Override(100) error = %v", err)
		}
		if _, err := svc.Override(ctx, activity.ID, "student-1", overrideReq(0, ""), owner); err != nil {
			t.Errorf("Override(0) error = %v", err)
		}
	})

	t.Run("unknown student", func(t *testing.T) {
		_, svc, activity := setup(t)

		_, err := svc.Override(ctx, activity.ID, "nobody", overrideReq(50, ""), owner)
		if !errors.Is(err, ErrUserNotFound) {
			t.Errorf("Override() error = %v, want %v", err, ErrUserNotFound)
		}
	})

	t.Run("only the owner or an admin may grade", func(t *testing.T) {
		_, svc, activity := setup(t)

		stranger := &models.User{ID: "teacher-2", Role: models.RoleTeacher}
		_, err := svc.Override(ctx, activity.ID, "student-1", overrideReq(50, ""), stranger)
		var pe *PermissionError
		if !errors.As(err, &pe) {
			t.Fatalf("Override() error = %v, want PermissionError", err)
		}

		admin := &models.User{ID: "admin-1", Role: models.RoleAdmin}
		if _, err := svc.Override(ctx, activity.ID, "student-1", overrideReq(50, ""), admin); err != nil {
			t.Errorf("admin Override() error = %v", err)
		}
	})

	t.Run("missing assessment", func(t *testing.T) {
		repo := newMockRepository()
		svc := newOverrideService(repo, nil)

		_, err := svc.Override(ctx, 999, "student-1", overrideReq(50, ""), owner)
		if !errors.Is(err, ErrAssessmentNotFound) {
			t.Errorf("Override() error = %v, want %v", err, ErrAssessmentNotFound)
		}
	})

	t.Run("publishes a graded event", func(t *testing.T) {
		repo := newMockRepository()
		repo.addUser(&models.User{ID: "student-1", Role: models.RoleStudent})
		activity := repo.addAssessment(&models.Assessment{
			Title:       "Lab report",
			Category:    models.CategoryActivity,
			Modality:    models.ModalityFileUpload,
			OwnerID:     owner.ID,
			Published:   true,
			TotalPoints: 100,
			MaxAttempts: 1,
		})
		publisher := events.NewMockEventPublisher(testLogger())
		svc := newOverrideService(repo, publisher)

		if _, err := svc.Override(ctx, activity.ID, "student-1", overrideReq(90, ""), owner); err != nil {
			t.Fatalf("Override() error = %v", err)
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.EventSubmissionGraded {
			t.Errorf("published events = %v, want one %s", published, events.EventSubmissionGraded)
		}
	})
}
