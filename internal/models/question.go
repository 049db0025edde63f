package models

type QuestionType string

const (
	// Scored question types.
	Short          QuestionType = "short"
	Paragraph      QuestionType = "paragraph"
	MCQ            QuestionType = "mcq"
	Checkboxes     QuestionType = "checkboxes"
	Identification QuestionType = "identification"
	Enumeration    QuestionType = "enumeration"
	Match          QuestionType = "match"

	// Layout-only types. Never scored, excluded from grading entirely.
	Title   QuestionType = "title"
	Section QuestionType = "section"
	Image   QuestionType = "image"
)

// Question is a value type owned by its Assessment. The ID is assigned once at
// save time and must remain stable across edits so stored responses can be
// matched back to their definitions.
type Question struct {
	ID     string       `json:"id"`
	Type   QuestionType `json:"type"`
	Text   string       `json:"text"`
	Points float64      `json:"points"`

	// Type-specific answer key. Only the fields for the question's type are set.
	Options []Option    `json:"options,omitempty"` // mcq, checkboxes
	Answer  string      `json:"answer,omitempty"`  // identification
	Items   []string    `json:"items,omitempty"`   // enumeration
	Pairs   []MatchPair `json:"pairs,omitempty"`   // match

	// Columns carries a match question's two sides without the pairing. Set
	// only on sanitized copies served to students, never persisted.
	Columns *MatchColumns `json:"columns,omitempty"`

	ImageURL *string `json:"image_url,omitempty"` // image layout blocks
}

type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type MatchPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type MatchColumns struct {
	Left  []string `json:"left"`
	Right []string `json:"right"`
}

// IsLayout reports whether the question is a non-scored layout block.
func (q Question) IsLayout() bool {
	switch q.Type {
	case Title, Section, Image:
		return true
	}
	return false
}

// IsScored reports whether the question contributes to an assessment's total points.
func (q Question) IsScored() bool {
	return !q.IsLayout()
}

// IsAutoGradable reports whether correctness can be determined without human judgment.
func (q Question) IsAutoGradable() bool {
	switch q.Type {
	case MCQ, Identification:
		return true
	}
	return false
}

// NeedsManualReview reports whether the type always requires a human grade.
// Short and paragraph answers receive a partial-credit placeholder until then;
// checkboxes, enumeration and match receive zero until then.
func (q Question) NeedsManualReview() bool {
	switch q.Type {
	case Short, Paragraph, Checkboxes, Enumeration, Match:
		return true
	}
	return false
}

// ValidQuestionTypes lists every member of the closed variant set.
var ValidQuestionTypes = []QuestionType{
	Short, Paragraph, MCQ, Checkboxes, Identification, Enumeration, Match,
	Title, Section, Image,
}

func IsValidQuestionType(t QuestionType) bool {
	for _, vt := range ValidQuestionTypes {
		if t == vt {
			return true
		}
	}
	return false
}
