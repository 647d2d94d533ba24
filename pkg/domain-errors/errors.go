// Package domainerrors defines coded errors shared by domain models, services and
// transport. Callers import it as dErrors.
//
// Models raise validation and invariant failures with a Code; services wrap
// infrastructure failures with CodeInternal; handlers translate codes into
// HTTP responses. Error() returns the human message only, so messages surfaced
// to clients stay exactly as written at the raise site.
package domainerrors

import (
	"errors"
)

// Code classifies a domain error.
type Code string

const (
	// Registration invariants.
	CodeInvalidInput           Code = "invalid_input"
	CodeEmailMismatch          Code = "email_mismatch"
	CodePasswordNotComplex     Code = "password_not_complex"
	CodeInvalidStateTransition Code = "invalid_state_transition"
	CodeInvalidPhoneFormat     Code = "invalid_phone_format"

	// Transport and infrastructure.
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvariantViolation Code = "invariant_violation"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInternal           Code = "internal_error"
)

// Error is a coded domain error. Err, when set, is the underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error with the given message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error. Wrapping nil returns nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether the outermost coded error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code
}

// Is is an alias of HasCode kept for handler call sites.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code in err's chain, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
