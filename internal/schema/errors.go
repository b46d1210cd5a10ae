package schema

import (
	"errors"
	"fmt"
)

// Error reports an invalid schema definition.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Label is the type or rule the error refers to.
	Label string

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorizes schema errors.
type ErrorCode string

const (
	// ErrCodeEmptyLabel indicates a type or rule without a label.
	ErrCodeEmptyLabel ErrorCode = "EMPTY_LABEL"

	// ErrCodeDuplicateLabel indicates a label defined twice.
	ErrCodeDuplicateLabel ErrorCode = "DUPLICATE_LABEL"

	// ErrCodeInvalidKind indicates a kind other than entity, relation or attribute.
	ErrCodeInvalidKind ErrorCode = "INVALID_KIND"

	// ErrCodeUnknownType indicates a reference to an undefined type.
	ErrCodeUnknownType ErrorCode = "UNKNOWN_TYPE"

	// ErrCodeKindMismatch indicates a subtype whose kind differs from its supertype.
	ErrCodeKindMismatch ErrorCode = "KIND_MISMATCH"

	// ErrCodeSupertypeCycle indicates a type that is its own ancestor.
	ErrCodeSupertypeCycle ErrorCode = "SUPERTYPE_CYCLE"

	// ErrCodeEmptyRule indicates a rule without positive premises or conclusion.
	ErrCodeEmptyRule ErrorCode = "EMPTY_RULE"

	// ErrCodeNilSchema indicates a snapshot built without a schema.
	ErrCodeNilSchema ErrorCode = "NIL_SCHEMA"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("%s: %s (label=%s)", e.Code, e.Message, e.Label)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, label, format string, args ...any) *Error {
	return &Error{Code: code, Label: label, Message: fmt.Sprintf(format, args...)}
}

// HasCode reports whether err wraps a schema *Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
