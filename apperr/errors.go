// Package apperr classifies errors so calling loops can decide between
// rejecting a request and tearing down a connection, and so HTTP handlers
// can map failures to status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers that need to decide between
// rejecting a request, logging and moving on, or tearing a connection down.
type Kind int

const (
	// KindInternal covers store failures, serialization failures, and
	// transport errors. Fatal to the unit that hit it.
	KindInternal Kind = iota
	// KindValidation covers malformed input and stale references.
	KindValidation
	// KindAuthentication covers missing or bad credentials.
	KindAuthentication
	// KindAuthorization covers a known identity attempting something its
	// role does not permit.
	KindAuthorization
	// KindNotFound covers store lookup misses.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not found"
	default:
		return "internal"
	}
}

// Error is a kinded application error. Use the constructor helpers rather
// than building one by hand.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Internal creates an internal error, optionally wrapping a cause.
func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// Validation creates a validation error.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Authentication creates an authentication error.
func Authentication(format string, args ...any) error {
	return &Error{Kind: KindAuthentication, Msg: fmt.Sprintf(format, args...)}
}

// Authorization creates an authorization error.
func Authorization(format string, args ...any) error {
	return &Error{Kind: KindAuthorization, Msg: fmt.Sprintf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of err. Errors that carry no kind are treated
// as internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsFatal reports whether err should end the processing loop that hit it.
// Validation, authorization, and authentication failures are recoverable:
// the offending message is rejected and the loop continues.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindAuthentication, KindAuthorization:
		return false
	}
	return true
}

// HTTPStatus maps an error to the status code the REST layer responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
