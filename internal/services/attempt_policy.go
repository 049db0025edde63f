package services

import (
	"time"

	"github.com/classware/assessment-engine/internal/models"
)

// CanSubmit decides whether a student may submit a new attempt right now.
// Checks run in a fixed order so the caller always gets the same denial when
// several conditions hold: unpublished first, then the availability window,
// then the attempt limit. The due date is deliberately absent here; passing
// it only marks the submission late.
func CanSubmit(assessment *models.Assessment, attemptCount int, now time.Time) error {
	if !assessment.Published {
		return ErrAssessmentNotPublished
	}
	if assessment.AvailableFrom != nil && now.Before(*assessment.AvailableFrom) {
		return ErrAssessmentNotYetAvailable
	}
	if assessment.AvailableUntil != nil && now.After(*assessment.AvailableUntil) {
		return ErrAssessmentWindowClosed
	}
	if attemptCount >= assessment.MaxAttempts {
		return ErrAttemptsExhausted
	}
	return nil
}

// IsLate reports whether a submission at the given time counts as late.
func IsLate(assessment *models.Assessment, now time.Time) bool {
	return assessment.DueDate != nil && now.After(*assessment.DueDate)
}

// SubmissionStatusAt returns the status a fresh submission gets at the given
// time.
func SubmissionStatusAt(assessment *models.Assessment, now time.Time) models.SubmissionStatus {
	if IsLate(assessment, now) {
		return models.StatusLate
	}
	return models.StatusSubmitted
}

// RemainingAttempts never goes below zero.
func RemainingAttempts(assessment *models.Assessment, attemptCount int) int {
	remaining := assessment.MaxAttempts - attemptCount
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}
