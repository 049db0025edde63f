package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/classware/assessment-engine/internal/models"
	"github.com/classware/assessment-engine/internal/validator"
)

// buildQuestions converts question inputs into model questions. Inputs that
// echo an id of an existing question keep it; everything else gets a fresh id
// derived from the wall clock and its position, assigned exactly once.
func buildQuestions(inputs []validator.QuestionInput, existing []models.Question) ([]models.Question, error) {
	existingIDs := make(map[string]bool, len(existing))
	for _, q := range existing {
		existingIDs[q.ID] = true
	}

	now := time.Now().UnixMilli()
	questions := make([]models.Question, 0, len(inputs))

	for i, input := range inputs {
		q := models.Question{
			ID:       input.ID,
			Type:     input.Type,
			Text:     input.Text,
			Points:   input.Points,
			Answer:   input.Answer,
			Items:    input.Items,
			ImageURL: input.ImageURL,
		}

		if q.ID == "" || !existingIDs[q.ID] {
			q.ID = fmt.Sprintf("q_%d_%d", now, i)
		}

		for _, opt := range input.Options {
			q.Options = append(q.Options, models.Option{Text: opt.Text, IsCorrect: opt.IsCorrect})
		}
		for _, pair := range input.Pairs {
			q.Pairs = append(q.Pairs, models.MatchPair{Left: pair.Left, Right: pair.Right})
		}

		if q.IsLayout() {
			q.Points = 0
		} else if q.Points == 0 {
			// Scored questions default to one point.
			q.Points = 1
		}

		if err := validateQuestionKey(i, q); err != nil {
			return nil, err
		}

		questions = append(questions, q)
	}

	return questions, nil
}

// validateQuestionKey checks that a question carries the answer-key fields
// its type needs.
func validateQuestionKey(index int, q models.Question) error {
	fail := func(msg string) error {
		return &BusinessRuleError{
			Rule:    "question_key",
			Message: fmt.Sprintf("question %d (%s): %s", index, q.Type, msg),
		}
	}

	switch q.Type {
	case models.MCQ:
		if len(q.Options) < 2 {
			return fail("needs at least two options")
		}
	case models.Checkboxes:
		if len(q.Options) == 0 {
			return fail("needs at least one option")
		}
	case models.Identification:
		if q.Answer == "" {
			return fail("needs an answer key")
		}
	case models.Enumeration:
		if len(q.Items) == 0 {
			return fail("needs at least one item")
		}
	case models.Match:
		if len(q.Pairs) == 0 {
			return fail("needs at least one pair")
		}
	case models.Image:
		if q.ImageURL == nil || *q.ImageURL == "" {
			return fail("needs an image url")
		}
	}

	return nil
}

// applyMetadataUpdates copies the always-allowed fields from an update
// request. Locked assessments accept all of these.
func applyMetadataUpdates(assessment *models.Assessment, req *validator.AssessmentUpdateRequest) {
	if req.Title != nil {
		assessment.Title = *req.Title
	}
	if req.Description != nil {
		assessment.Description = *req.Description
	}
	if req.Category != nil {
		assessment.Category = *req.Category
	}
	if req.AvailableFrom != nil {
		assessment.AvailableFrom = req.AvailableFrom
	}
	if req.AvailableUntil != nil {
		assessment.AvailableUntil = req.AvailableUntil
	}
	if req.DueDate != nil {
		assessment.DueDate = req.DueDate
	}
	if req.TimeLimit != nil {
		assessment.TimeLimit = *req.TimeLimit
	}
	if req.MaxAttempts != nil {
		assessment.MaxAttempts = *req.MaxAttempts
	}
	if req.ShuffleQuestions != nil {
		assessment.ShuffleQuestions = *req.ShuffleQuestions
	}
	if req.ShowResults != nil {
		assessment.ShowResults = *req.ShowResults
	}
}

// sanitizeForStudent returns a copy with the answer key stripped from every
// question: identification answers and enumeration items are dropped,
// correctness flags are cleared, and match pairs are replaced by the two
// columns with the right side re-sorted so the pairing cannot be read off.
// Expected answers never leave the server.
func sanitizeForStudent(assessment *models.Assessment) *models.Assessment {
	sanitized := *assessment
	sanitized.Questions = make([]models.Question, len(assessment.Questions))

	for i, q := range assessment.Questions {
		sq := q
		sq.Answer = ""

		if q.Type == models.Enumeration {
			sq.Items = nil
		}

		if len(q.Options) > 0 {
			sq.Options = make([]models.Option, len(q.Options))
			for j, opt := range q.Options {
				sq.Options[j] = models.Option{Text: opt.Text}
			}
		}

		if len(q.Pairs) > 0 {
			columns := &models.MatchColumns{
				Left:  make([]string, len(q.Pairs)),
				Right: make([]string, len(q.Pairs)),
			}
			for j, pair := range q.Pairs {
				columns.Left[j] = pair.Left
				columns.Right[j] = pair.Right
			}
			sort.Strings(columns.Right)
			sq.Pairs = nil
			sq.Columns = columns
		}

		sanitized.Questions[i] = sq
	}

	return &sanitized
}
