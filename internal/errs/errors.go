// Package errs provides the unified error type used across all of RestAdmin.
//
// Every subsystem (schema decoding, the HTTP client, the admin server, …)
// wraps its native errors into *errs.Error before returning them to callers.
// Callers use the Is* predicates to handle errors without inspecting
// transport- or backend-specific details.
//
// Usage:
//
//	// In the client — wrap native errors:
//	return errs.Wrap(errs.ErrKindTransport, "request failed", err)
//
//	// In a handler — check error kind:
//	if errs.IsAuth(err) {
//	    http.Error(w, "unauthorized", http.StatusUnauthorized)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing backend-specific codes.
// Every layer maps its native failures to one of these kinds, giving
// callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown         ErrKind = iota
	ErrKindTransport               // network failure, bad URL, unreachable host
	ErrKindDecode                  // malformed schema document or response body
	ErrKindSchema                  // unknown table/column, or no primary key where one is required
	ErrKindValidation              // local per-field validation failure, never sent to the server
	ErrKindServerRejection         // backend returned a structured constraint violation
	ErrKindAuth                    // no credential available, or the server said unauthorized
	ErrKindNotFound                // fetch-one matched no row
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindTransport:
		return "transport"
	case ErrKindDecode:
		return "decode"
	case ErrKindSchema:
		return "schema"
	case ErrKindValidation:
		return "validation"
	case ErrKindServerRejection:
		return "server_rejection"
	case ErrKindAuth:
		return "auth"
	case ErrKindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all RestAdmin subsystems.
// Lower layers produce it; callers inspect it via the Is* predicates below.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original lower-level error, preserved for logging

	// Code is the backend's machine-readable error code (e.g. the
	// PostgreSQL SQLSTATE "23502" for a not-null violation). Empty for
	// errors that did not originate from a structured server response.
	Code string

	// Column is the column name extracted from a server rejection, when
	// one could be extracted. Empty otherwise.
	Column string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Rejection creates a server-rejection *Error carrying the backend code and
// the column the rejection refers to (may be empty).
func Rejection(code, column, msg string) *Error {
	return &Error{Kind: ErrKindServerRejection, Message: msg, Code: code, Column: column}
}

// --- Predicates ---

// IsTransport reports whether err is a network-level failure.
func IsTransport(err error) bool {
	return kindOf(err) == ErrKindTransport
}

// IsDecode reports whether err was caused by a malformed document or body.
func IsDecode(err error) bool {
	return kindOf(err) == ErrKindDecode
}

// IsSchema reports whether err references a table or column that does not
// exist, or a table missing a required primary key.
func IsSchema(err error) bool {
	return kindOf(err) == ErrKindSchema
}

// IsValidation reports whether err is a local per-field validation failure.
func IsValidation(err error) bool {
	return kindOf(err) == ErrKindValidation
}

// IsServerRejection reports whether err is a structured constraint violation
// returned by the backend.
func IsServerRejection(err error) bool {
	return kindOf(err) == ErrKindServerRejection
}

// IsAuth reports whether err is a missing-credential or unauthorized failure.
func IsAuth(err error) bool {
	return kindOf(err) == ErrKindAuth
}

// IsNotFound reports whether err represents a "no such row" result.
func IsNotFound(err error) bool {
	return kindOf(err) == ErrKindNotFound
}

// AsError extracts the *Error from anywhere in the chain, or nil.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// kindOf extracts the ErrKind from any error in the chain.
func kindOf(err error) ErrKind {
	if e := AsError(err); e != nil {
		return e.Kind
	}
	return ErrKindUnknown
}
