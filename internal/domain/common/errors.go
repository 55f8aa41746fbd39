// Package common holds the error taxonomy shared across the voting engine.
// Handlers map each sentinel to a distinct HTTP status and user-facing
// message so the client can route the shareholder to the right remediation.
package common

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a code, resolution, meeting or shareholder is absent
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates an already-used code, an already-cast vote, or any
	// other unique-constraint violation
	ErrConflict = errors.New("conflict")

	// ErrExpired indicates a verification link past its expires_at
	ErrExpired = errors.New("expired")

	// ErrInvalidBallot indicates a structurally or semantically invalid ballot
	ErrInvalidBallot = errors.New("invalid ballot")

	// ErrInactiveResolution indicates a vote against a resolution that is not
	// open for voting
	ErrInactiveResolution = errors.New("resolution is not active")
)

// Eligibility gate steps, carried by NotEligibleError so the caller knows
// which remediation applies.
const (
	StepVerification = "verification"
	StepRegistration = "registration"
	StepApproval     = "registration_approval"
	StepAttendance   = "attendance"
)

// NotEligibleError reports which eligibility-gate step failed
type NotEligibleError struct {
	Step   string
	Reason string
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("not eligible: %s (%s)", e.Reason, e.Step)
}

// NotEligible creates a NotEligibleError for the given step
func NotEligible(step, reason string) *NotEligibleError {
	return &NotEligibleError{Step: step, Reason: reason}
}

// IsNotEligible reports whether err is an eligibility-gate failure
func IsNotEligible(err error) (*NotEligibleError, bool) {
	var ne *NotEligibleError
	if errors.As(err, &ne) {
		return ne, true
	}
	return nil, false
}
