// Package domainerrors provides code-carrying errors for the service.
//
// Services return these so the HTTP boundary can translate them into a fixed
// status and a user-safe message. Infrastructure detail stays in the wrapped
// cause and is logged server-side only.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for boundary translation.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	// CodeInvalidFormat marks a malformed claim code or claim token.
	CodeInvalidFormat Code = "invalid_format"
	CodeUnauthorized  Code = "unauthorized"
	CodeForbidden     Code = "forbidden"
	CodeNotFound      Code = "not_found"
	CodeConflict      Code = "conflict"
	CodeInternal      Code = "internal_error"

	// License redemption outcomes. These are user-facing terminal states for a
	// claim request, not transport failures.
	CodeAlreadyClaimed        Code = "already_claimed"
	CodeAlreadyClaimedBySelf  Code = "already_claimed_by_self"
	CodeAlreadyClaimedByOther Code = "already_claimed_by_other"
	CodeRejected              Code = "rejected"
	CodeNotClaimable          Code = "not_claimable"
	CodeBatchTooLarge         Code = "batch_too_large"
)

// Error carries a classification code, a user-safe message, and an optional
// wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with the given code and user-safe message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and user-safe message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that carry no classification.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the user-safe message from err. Unclassified errors get
// a generic message so internal detail never leaks to callers.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
