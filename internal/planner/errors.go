package planner

import (
	"errors"
	"fmt"
)

// InvariantError reports a plan that violates completeness or connectivity.
// It indicates a bug, never a property of the input query.
type InvariantError struct {
	// Code identifies the violated invariant.
	Code InvariantCode

	// Message is a human-readable description.
	Message string

	// Plan is the offending plan, rendered.
	Plan string
}

// InvariantCode categorizes invariant violations.
type InvariantCode string

const (
	// ErrCodeIncompletePlan indicates an atom missing from or duplicated in a plan.
	ErrCodeIncompletePlan InvariantCode = "INCOMPLETE_PLAN"

	// ErrCodeDisconnectedPlan indicates a plan element sharing no variable
	// with earlier elements of its component.
	ErrCodeDisconnectedPlan InvariantCode = "DISCONNECTED_PLAN"
)

// Error implements the error interface.
func (e *InvariantError) Error() string {
	if e.Plan != "" {
		return fmt.Sprintf("%s: %s\n%s", e.Code, e.Message, e.Plan)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvariantError reports whether err wraps an *InvariantError.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// IsIncompletePlan reports whether err is a completeness violation.
func IsIncompletePlan(err error) bool {
	var ie *InvariantError
	if errors.As(err, &ie) {
		return ie.Code == ErrCodeIncompletePlan
	}
	return false
}

// IsDisconnectedPlan reports whether err is a connectivity violation.
func IsDisconnectedPlan(err error) bool {
	var ie *InvariantError
	if errors.As(err, &ie) {
		return ie.Code == ErrCodeDisconnectedPlan
	}
	return false
}
