package query

import (
	"errors"
	"fmt"
)

// Error reports a query that does not fit its schema.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Atom is the offending atom, rendered as a pattern.
	Atom string
}

// ErrorCode categorizes query construction errors.
type ErrorCode string

const (
	// ErrCodeNilSnapshot indicates a query built without a schema snapshot.
	ErrCodeNilSnapshot ErrorCode = "NIL_SNAPSHOT"

	// ErrCodeNilAtom indicates a nil atom in the atom list.
	ErrCodeNilAtom ErrorCode = "NIL_ATOM"

	// ErrCodeEmptyVars indicates an atom that mentions no variable.
	ErrCodeEmptyVars ErrorCode = "EMPTY_VARS"

	// ErrCodeUnknownType indicates an atom referencing an undefined type.
	ErrCodeUnknownType ErrorCode = "UNKNOWN_TYPE"

	// ErrCodeKindMismatch indicates a type used where another kind is required.
	ErrCodeKindMismatch ErrorCode = "KIND_MISMATCH"

	// ErrCodeUnknownRole indicates a role the relation type does not declare.
	ErrCodeUnknownRole ErrorCode = "UNKNOWN_ROLE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Atom != "" {
		return fmt.Sprintf("%s: %s (atom=%s)", e.Code, e.Message, e.Atom)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HasCode reports whether err wraps a query *Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code == code
	}
	return false
}
