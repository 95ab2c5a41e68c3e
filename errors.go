package capsule

import (
	"errors"
	"fmt"
)

// Application error codes.
//
// These are meant to classify failures so callers can branch on the kind of
// problem without inspecting error strings. The fetch pipeline maps HTTP and
// network conditions onto these codes; see httpclient.
const (
	ECONFLICT    = "conflict"     // conflicting state, e.g. filename collision exhaustion
	EFORBIDDEN   = "forbidden"    // HTTP 403
	EINTERNAL    = "internal"     // disk write failure or programmer error
	EINVALID     = "invalid"      // validation or parse failure on input
	EMISMATCH    = "mismatch"     // downloaded content rejected by the validator
	ENOTFOUND    = "not_found"    // missing resource, HTTP 404 or absent cache entry
	ERATELIMITED = "rate_limited" // HTTP 429
	EUNAVAILABLE = "unavailable"  // network error, timeout, or other non-2xx status
)

// Error represents an application-specific error. Application errors carry a
// machine-readable code and a human-readable message.
type Error struct {
	// Machine-readable error code.
	Code string

	// Human-readable message.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("capsule error: code=%s message=%s", e.Code, e.Message)
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error"
}

// Errorf is a helper function to return an Error with a given code and
// formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}
