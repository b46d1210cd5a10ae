package atom

import (
	"errors"
	"fmt"
)

// Error reports an atom that violates a construction precondition.
type Error struct {
	// Code identifies the violated precondition.
	Code ErrorCode

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorizes atom construction errors.
type ErrorCode string

const (
	// ErrCodeEmptyVars indicates an atom without any variable.
	ErrCodeEmptyVars ErrorCode = "EMPTY_VARS"

	// ErrCodeMissingType indicates an atom without a type label or type variable.
	ErrCodeMissingType ErrorCode = "MISSING_TYPE"

	// ErrCodeInvalidOperator indicates an unknown comparison operator.
	ErrCodeInvalidOperator ErrorCode = "INVALID_OPERATOR"

	// ErrCodeMissingOperand indicates a comparison without a right-hand side.
	ErrCodeMissingOperand ErrorCode = "MISSING_OPERAND"

	// ErrCodeAmbiguousOperand indicates both a variable and a literal were given
	// where only one is allowed.
	ErrCodeAmbiguousOperand ErrorCode = "AMBIGUOUS_OPERAND"
)

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// HasCode reports whether err wraps an *Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
