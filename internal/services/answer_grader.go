package services

import (
	"encoding/json"
	"math"
	"strings"

	"gorm.io/datatypes"

	"github.com/classware/assessment-engine/internal/models"
	"github.com/classware/assessment-engine/internal/validator"
)

// GradeResult is the grading outcome for a single response.
type GradeResult struct {
	IsCorrect   bool
	Points      float64
	NeedsReview bool
}

// Grade scores one raw answer against a question definition. It is a pure
// function of its inputs.
//
// Per-type behavior:
//   - mcq: correct iff the answer equals the first option. The isCorrect
//     flags on options are intentionally ignored; changing this breaks
//     compatibility with previously graded submissions. TODO: revisit once
//     product decides whether mcq should honor option correctness flags.
//   - identification: case-insensitive, whitespace-trimmed match.
//   - short, paragraph: half points as a placeholder, flagged for review.
//   - checkboxes, enumeration, match: zero points pending manual grading.
//   - layout types: never scored.
func Grade(question models.Question, rawAnswer json.RawMessage) GradeResult {
	if question.IsLayout() {
		return GradeResult{}
	}

	switch question.Type {
	case models.MCQ:
		return gradeMCQ(question, rawAnswer)
	case models.Identification:
		return gradeIdentification(question, rawAnswer)
	case models.Short, models.Paragraph:
		return GradeResult{
			IsCorrect:   false,
			Points:      question.Points / 2,
			NeedsReview: true,
		}
	case models.Checkboxes, models.Enumeration, models.Match:
		return GradeResult{
			IsCorrect:   false,
			Points:      0,
			NeedsReview: true,
		}
	default:
		return GradeResult{NeedsReview: true}
	}
}

func gradeMCQ(question models.Question, rawAnswer json.RawMessage) GradeResult {
	if len(question.Options) == 0 {
		return GradeResult{}
	}

	answer, ok := answerAsString(rawAnswer)
	if !ok {
		return GradeResult{}
	}

	if answer == question.Options[0].Text {
		return GradeResult{IsCorrect: true, Points: question.Points}
	}
	return GradeResult{}
}

func gradeIdentification(question models.Question, rawAnswer json.RawMessage) GradeResult {
	answer, ok := answerAsString(rawAnswer)
	if !ok {
		return GradeResult{}
	}

	if equalsIgnoringCase(answer, question.Answer) {
		return GradeResult{IsCorrect: true, Points: question.Points}
	}
	return GradeResult{}
}

// GradeAll grades a full set of responses against an assessment's questions.
// The returned maxScore sums points over every scored question, answered or
// not, so a partially answered attempt is scored out of the full total.
// Responses whose questionId matches no current question pass through with
// zero points and no correctness verdict. Duplicate questionIds keep only the
// first occurrence so a question can never earn more than its point value.
func GradeAll(assessment *models.Assessment, inputs []validator.ResponseInput) (responses []models.Response, score, maxScore float64) {
	responses = make([]models.Response, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))

	for _, input := range inputs {
		if seen[input.QuestionID] {
			continue
		}
		seen[input.QuestionID] = true

		resp := models.Response{
			QuestionID: input.QuestionID,
			Answer:     datatypes.JSON(input.Answer),
		}

		question, found := assessment.QuestionByID(input.QuestionID)
		if found && question.IsScored() {
			result := Grade(question, input.Answer)
			isCorrect := result.IsCorrect
			resp.IsCorrect = &isCorrect
			resp.Points = result.Points
			resp.NeedsReview = result.NeedsReview
			score += result.Points
		}

		responses = append(responses, resp)
	}

	for _, q := range assessment.Questions {
		if q.IsScored() {
			maxScore += q.Points
		}
	}

	return responses, RoundScore(score), maxScore
}

// RoundScore rounds to two decimal places. Half-point placeholders make
// fractional scores possible.
func RoundScore(score float64) float64 {
	return math.Round(score*100) / 100
}

func answerAsString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}

	// Clients sometimes send the bare value without JSON quoting.
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed[0] == '{' || trimmed[0] == '[' {
		return "", false
	}
	return trimmed, true
}

func equalsIgnoringCase(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
