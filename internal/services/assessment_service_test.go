package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/classware/assessment-engine/internal/models"
	"github.com/classware/assessment-engine/internal/repositories"
	"github.com/classware/assessment-engine/internal/validator"
)

func newAssessmentService(repo *mockRepository) AssessmentService {
	return NewAssessmentService(repo, nil, testLogger(), validator.New(), nil)
}

func quizCreateRequest() *validator.AssessmentCreateRequest {
	return &validator.AssessmentCreateRequest{
		Title:    "Chapter 3 quiz",
		Category: models.CategoryQuiz,
		ClassID:  7,
		Questions: []validator.QuestionInput{
			{Type: models.Title, Text: "Part 1"},
			{Type: models.MCQ, Text: "Pick one", Points: 2, Options: []validator.OptionInput{{Text: "a"}, {Text: "b"}}},
			{Type: models.Identification, Text: "Name it", Points: 3, Answer: "Go"},
			{Type: models.Short, Text: "Explain"},
		},
	}
}

func TestAssessmentCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("computes total points over scored questions", func(t *testing.T) {
		repo := newMockRepository()
		svc := newAssessmentService(repo)

		a, err := svc.Create(ctx, quizCreateRequest(), "teacher-1")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		// 2 + 3 + 1 (short defaults to one point); the title block counts zero.
		if a.TotalPoints != 6 {
			t.Errorf("TotalPoints = %v, want 6", a.TotalPoints)
		}
		if a.MaxAttempts != 1 {
			t.Errorf("MaxAttempts = %v, want default 1", a.MaxAttempts)
		}
		if a.Published || a.Locked {
			t.Error("new assessment must start as an unpublished draft")
		}
		if a.Modality != models.ModalityStructured {
			t.Errorf("Modality = %v, want default structured", a.Modality)
		}
	})

	t.Run("assigns stable question ids", func(t *testing.T) {
		repo := newMockRepository()
		svc := newAssessmentService(repo)

		a, err := svc.Create(ctx, quizCreateRequest(), "teacher-1")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		seen := make(map[string]bool)
		for _, q := range a.Questions {
			if !strings.HasPrefix(q.ID, "q_") {
				t.Errorf("question id %q missing q_ prefix", q.ID)
			}
			if seen[q.ID] {
				t.Errorf("duplicate question id %q", q.ID)
			}
			seen[q.ID] = true
		}
	})

	t.Run("layout questions carry zero points", func(t *testing.T) {
		repo := newMockRepository()
		svc := newAssessmentService(repo)

		req := quizCreateRequest()
		req.Questions[0].Points = 50

		a, err := svc.Create(ctx, req, "teacher-1")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if a.Questions[0].Points != 0 {
			t.Errorf("layout points = %v, want 0", a.Questions[0].Points)
		}
	})

	t.Run("file upload rejects questions", func(t *testing.T) {
		repo := newMockRepository()
		svc := newAssessmentService(repo)

		req := quizCreateRequest()
		req.Category = models.CategoryActivity
		req.Modality = models.ModalityFileUpload

		_, err := svc.Create(ctx, req, "teacher-1")
		var bre *BusinessRuleError
		if !errors.As(err, &bre) {
			t.Fatalf("Create() error = %v, want BusinessRuleError", err)
		}
	})

	t.Run("incomplete answer key rejected", func(t *testing.T) {
		repo := newMockRepository()
		svc := newAssessmentService(repo)

		req := quizCreateRequest()
		req.Questions = []validator.QuestionInput{
			{Type: models.MCQ, Text: "only one option", Options: []validator.OptionInput{{Text: "a"}}},
		}

		_, err := svc.Create(ctx, req, "teacher-1")
		var bre *BusinessRuleError
		if !errors.As(err, &bre) {
			t.Fatalf("Create() error = %v, want BusinessRuleError", err)
		}
	})

	t.Run("invalid payload rejected", func(t *testing.T) {
		repo := newMockRepository()
		svc := newAssessmentService(repo)

		req := quizCreateRequest()
		req.Title = "   "

		_, err := svc.Create(ctx, req, "teacher-1")
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			t.Fatalf("Create() error = %v, want ValidationErrors", err)
		}
	})
}

func TestAssessmentPublish(t *testing.T) {
	ctx := context.Background()
	owner := &models.User{ID: "teacher-1", Role: models.RoleTeacher}

	t.Run("publish locks the assessment", func(t *testing.T) {
		repo := newMockRepository()
		svc := newAssessmentService(repo)

		created, err := svc.Create(ctx, quizCreateRequest(), owner.ID)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		published, err := svc.Publish(ctx, created.ID, owner)
		if err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if !published.Published || !published.Locked {
			t.Errorf("Published = %v Locked = %v, want both true", published.Published, published.Locked)
		}

		// Idempotent.
		again, err := svc.Publish(ctx, created.ID, owner)
		if err != nil {
			t.Fatalf("second Publish() error = %v", err)
		}
		if !again.Published {
			t.Error("second publish must leave the assessment published")
		}
	})

	t.Run("structured needs a scored question", func(t *testing.T) {
		repo := newMockRepository()
		svc := newAssessmentService(repo)

		req := quizCreateRequest()
		req.Questions = []validator.QuestionInput{{Type: models.Title, Text: "only layout"}}

		created, err := svc.Create(ctx, req, owner.ID)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		_, err = svc.Publish(ctx, created.ID, owner)
		var bre *BusinessRuleError
		if !errors.As(err, &bre) {
			t.Fatalf("Publish() error = %v, want BusinessRuleError", err)
		}
	})

	t.Run("only the owner or an admin may publish", func(t *testing.T) {
		repo := newMockRepository()
		svc := newAssessmentService(repo)

		created, err := svc.Create(ctx, quizCreateRequest(), owner.ID)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		stranger := &models.User{ID: "teacher-2", Role: models.RoleTeacher}
		_, err = svc.Publish(ctx, created.ID, stranger)
		var pe *PermissionError
		if !errors.As(err, &pe) {
			t.Fatalf("Publish() error = %v, want PermissionError", err)
		}

		admin := &models.User{ID: "admin-1", Role: models.RoleAdmin}
		if _, err := svc.Publish(ctx, created.ID, admin); err != nil {
			t.Errorf("admin Publish() error = %v", err)
		}
	})
}

func TestAssessmentUpdate(t *testing.T) {
	ctx := context.Background()
	owner := &models.User{ID: "teacher-1", Role: models.RoleTeacher}

	setup := func(t *testing.T) (*mockRepository, AssessmentService, *models.Assessment) {
		repo := newMockRepository()
		svc := newAssessmentService(repo)
		created, err := svc.Create(ctx, quizCreateRequest(), owner.ID)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		return repo, svc, created
	}

	t.Run("question edits keep echoed ids", func(t *testing.T) {
		_, svc, created := setup(t)

		mcqID := created.Questions[1].ID
		questions := []validator.QuestionInput{
			{ID: mcqID, Type: models.MCQ, Text: "Pick one (edited)", Points: 4,
				Options: []validator.OptionInput{{Text: "a"}, {Text: "b"}}},
			{Type: models.Identification, Text: "New question", Points: 1, Answer: "x"},
		}

		updated, err := svc.Update(ctx, created.ID, &validator.AssessmentUpdateRequest{Questions: &questions}, owner)
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		if updated.Questions[0].ID != mcqID {
			t.Errorf("echoed id changed: %q -> %q", mcqID, updated.Questions[0].ID)
		}
		if updated.Questions[1].ID == "" || updated.Questions[1].ID == mcqID {
			t.Errorf("new question id = %q, want a fresh id", updated.Questions[1].ID)
		}
		if updated.TotalPoints != 5 {
			t.Errorf("TotalPoints = %v, want 5", updated.TotalPoints)
		}
	})

	t.Run("locked assessment rejects question edits", func(t *testing.T) {
		_, svc, created := setup(t)
		if _, err := svc.Publish(ctx, created.ID, owner); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}

		questions := []validator.QuestionInput{
			{Type: models.MCQ, Text: "x", Options: []validator.OptionInput{{Text: "a"}, {Text: "b"}}},
		}
		_, err := svc.Update(ctx, created.ID, &validator.AssessmentUpdateRequest{Questions: &questions}, owner)
		if !errors.Is(err, ErrAssessmentLocked) {
			t.Errorf("Update() error = %v, want %v", err, ErrAssessmentLocked)
		}
	})

	t.Run("locked assessment still accepts metadata edits", func(t *testing.T) {
		_, svc, created := setup(t)
		if _, err := svc.Publish(ctx, created.ID, owner); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}

		title := "Renamed quiz"
		maxAttempts := 3
		updated, err := svc.Update(ctx, created.ID, &validator.AssessmentUpdateRequest{
			Title:       &title,
			MaxAttempts: &maxAttempts,
		}, owner)
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if updated.Title != title || updated.MaxAttempts != 3 {
			t.Errorf("metadata not applied: %q %d", updated.Title, updated.MaxAttempts)
		}
	})
}

func TestAssessmentDelete(t *testing.T) {
	ctx := context.Background()
	owner := &models.User{ID: "teacher-1", Role: models.RoleTeacher}
	repo := newMockRepository()
	svc := newAssessmentService(repo)

	created, err := svc.Create(ctx, quizCreateRequest(), owner.ID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Publish(ctx, created.ID, owner); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	subSvc := newSubmissionService(repo, nil)
	mcqID := created.Questions[1].ID
	if _, err := subSvc.Submit(ctx, created.ID, "student-1", &validator.SubmitRequest{
		Responses: []validator.ResponseInput{{QuestionID: mcqID, Answer: rawString("a")}},
	}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	t.Run("refused while submissions exist", func(t *testing.T) {
		err := svc.Delete(ctx, created.ID, owner)
		if !errors.Is(err, ErrAssessmentHasSubmissions) {
			t.Errorf("Delete() error = %v, want %v", err, ErrAssessmentHasSubmissions)
		}
	})

	t.Run("deletes an untouched assessment", func(t *testing.T) {
		fresh, err := svc.Create(ctx, quizCreateRequest(), owner.ID)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if err := svc.Delete(ctx, fresh.ID, owner); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := svc.GetByID(ctx, fresh.ID, owner); !errors.Is(err, ErrAssessmentNotFound) {
			t.Errorf("GetByID() after delete error = %v, want %v", err, ErrAssessmentNotFound)
		}
	})
}

func TestAssessmentStudentVisibility(t *testing.T) {
	ctx := context.Background()
	owner := &models.User{ID: "teacher-1", Role: models.RoleTeacher}
	student := &models.User{ID: "student-1", Role: models.RoleStudent}
	repo := newMockRepository()
	svc := newAssessmentService(repo)

	created, err := svc.Create(ctx, quizCreateRequest(), owner.ID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("draft hidden from students", func(t *testing.T) {
		if _, err := svc.GetByID(ctx, created.ID, student); !errors.Is(err, ErrAssessmentNotFound) {
			t.Errorf("GetByID() error = %v, want %v", err, ErrAssessmentNotFound)
		}
	})

	if _, err := svc.Publish(ctx, created.ID, owner); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	t.Run("answer key stripped for students", func(t *testing.T) {
		got, err := svc.GetByID(ctx, created.ID, student)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}

		for _, q := range got.Questions {
			if q.Answer != "" {
				t.Errorf("question %s leaked answer %q", q.ID, q.Answer)
			}
			for _, opt := range q.Options {
				if opt.IsCorrect {
					t.Errorf("question %s leaked option correctness", q.ID)
				}
			}
		}
	})

	t.Run("owner keeps the answer key", func(t *testing.T) {
		got, err := svc.GetByID(ctx, created.ID, owner)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Questions[2].Answer != "Go" {
			t.Errorf("owner view answer = %q, want %q", got.Questions[2].Answer, "Go")
		}
	})

	t.Run("student list is published-only", func(t *testing.T) {
		if _, err := svc.Create(ctx, quizCreateRequest(), owner.ID); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		result, err := svc.List(ctx, repositories.AssessmentFilters{}, student)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if result.Total != 1 {
			t.Errorf("Total = %d, want only the published assessment", result.Total)
		}
	})

	t.Run("enumeration items and match pairs stripped for students", func(t *testing.T) {
		req := &validator.AssessmentCreateRequest{
			Title:    "Chapter 4 quiz",
			Category: models.CategoryQuiz,
			ClassID:  7,
			Questions: []validator.QuestionInput{
				{Type: models.Enumeration, Text: "List the primitive types", Points: 3, Items: []string{"int", "string", "bool"}},
				{Type: models.Match, Text: "Match keyword to use", Points: 4, Pairs: []validator.MatchPairInput{
					{Left: "go", Right: "goroutine"},
					{Left: "chan", Right: "channel"},
					{Left: "defer", Right: "cleanup"},
				}},
			},
		}
		extra, err := svc.Create(ctx, req, owner.ID)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if _, err := svc.Publish(ctx, extra.ID, owner); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}

		got, err := svc.GetByID(ctx, extra.ID, student)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}

		enum, match := got.Questions[0], got.Questions[1]
		if len(enum.Items) != 0 {
			t.Errorf("enumeration leaked items %v", enum.Items)
		}
		if len(match.Pairs) != 0 {
			t.Errorf("match leaked pairs %v", match.Pairs)
		}
		if match.Columns == nil {
			t.Fatal("match question has no columns to render")
		}
		if len(match.Columns.Left) != 3 || len(match.Columns.Right) != 3 {
			t.Fatalf("columns = %+v, want 3 entries per side", match.Columns)
		}
		wantRight := []string{"channel", "cleanup", "goroutine"}
		for i, r := range match.Columns.Right {
			if r != wantRight[i] {
				t.Errorf("Right[%d] = %q, want %q (decoupled order)", i, r, wantRight[i])
			}
		}

		// The owner still sees the pairing.
		ownerView, err := svc.GetByID(ctx, extra.ID, owner)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if len(ownerView.Questions[1].Pairs) != 3 {
			t.Errorf("owner view lost the pairs: %+v", ownerView.Questions[1].Pairs)
		}
	})
}
