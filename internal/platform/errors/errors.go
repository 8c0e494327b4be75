package errors

import (
	"fmt"
	"maps"
	"strings"
)

// Error carries a Code alongside the internal message. Metadata fills the
// placeholders of the localized text for Code; the message itself stays in
// logs and never reaches end users verbatim.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Cause != nil:
		return e.Message + ": " + e.Cause.Error()
	case e.Message != "":
		return e.Message
	case e.Cause != nil:
		return e.Cause.Error()
	default:
		return strings.ToLower(string(e.Code))
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error with the same code, so callers can test with a
// sentinel built by New(code, "").
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Code == e.Code
}

// Retryable reports whether resubmitting the same request may succeed.
// Only failures that recorded nothing qualify.
func (e *Error) Retryable() bool {
	switch e.Code {
	case CodeStorageFailure, CodeLedgerConflict:
		return true
	}
	return false
}

// With returns a copy of e with key set in its metadata.
func (e *Error) With(key, value string) *Error {
	out := *e
	out.Metadata = maps.Clone(e.Metadata)
	if out.Metadata == nil {
		out.Metadata = make(map[string]string, 1)
	}
	out.Metadata[key] = value
	return &out
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// WithMetadata is New plus template values for the localized message.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

// Wrap attaches code to a lower-level failure.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}
