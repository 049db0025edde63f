package services

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by services. Handlers map these to HTTP statuses.
var (
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrUserNotFound       = errors.New("user not found")

	// Submission gate errors, in deny-precedence order. When several apply the
	// earliest one wins.
	ErrAssessmentNotPublished    = errors.New("assessment is not published")
	ErrAssessmentNotYetAvailable = errors.New("assessment is not yet available")
	ErrAssessmentWindowClosed    = errors.New("assessment submission window has closed")
	ErrAttemptsExhausted         = errors.New("maximum attempts reached")

	ErrAssessmentLocked         = errors.New("assessment is locked for editing")
	ErrAssessmentHasSubmissions = errors.New("assessment has submissions and cannot be deleted")
	ErrGradeOutOfRange          = errors.New("grade is outside the valid range")
	ErrWrongModality            = errors.New("operation does not match assessment modality")
	ErrNoFilesAttached          = errors.New("submission has no files attached")
)

// PermissionError reports an action the caller's role or ownership does not
// allow.
type PermissionError struct {
	UserID   string
	Action   string
	Resource string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s is not allowed to %s %s", e.UserID, e.Action, e.Resource)
}

// BusinessRuleError reports a domain rule violation that is not a simple
// not-found or permission failure.
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

// PersistenceError wraps storage failures so handlers can report them as
// internal without leaking driver details.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
