// Package domainerrors carries typed error codes from services to transports.
//
// Services return *Error values (or wrap lower level errors with Wrap); the HTTP
// layer maps the Code to a status and never inspects messages.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure in a transport-agnostic way.
type Code string

// Generic codes.
const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"
	CodeUnavailable        Code = "unavailable"
	CodeInternal           Code = "internal_error"
	CodeInvariantViolation Code = "invariant_violation"
)

// Workflow engine codes. These are part of the public API contract.
const (
	CodeProfileLocked         Code = "E_PROFILE_LOCKED"
	CodeBlockingNotResolvable Code = "E_BLOCKING_NOT_RESOLVABLE"
	CodeNoteRequired          Code = "E_NOTE_REQUIRED"
	CodeAdvanceConflict       Code = "E_ADVANCE_CONFLICT"
	CodeAdvanceBlocked        Code = "E_ADVANCE_BLOCKED"
	CodeDocumentInvalidState  Code = "E_DOCUMENT_INVALID_STATE"
	CodeFileTooLarge          Code = "E_FILE_TOO_LARGE"
	CodeFileBadFormat         Code = "E_FILE_BAD_FORMAT"
	CodeConditionOutOfScope   Code = "E_CONDITION_OUT_OF_SCOPE"
	CodeEvidenceRequired      Code = "E_EVIDENCE_REQUIRED"
	CodePlanLimitExceeded     Code = "E_PLAN_LIMIT_EXCEEDED"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error. A nil err yields nil.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// As returns the outermost *Error in the chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// CodeOf returns the outermost code in the chain, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}
