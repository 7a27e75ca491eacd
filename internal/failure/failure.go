package failure

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// NetworkError reports a rejected fetch or a non-2xx upstream response.
type NetworkError struct {
	Source string
	Status int
	Err    error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.Source, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

// Unwrap exposes the transport error, if any.
func (e *NetworkError) Unwrap() error { return e.Err }

// NotFound reports whether the upstream answered 404.
func (e *NetworkError) NotFound() bool { return e.Status == http.StatusNotFound }

// ParseError reports a response body that is not the expected JSON document.
type ParseError struct {
	Source string
	Err    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

// Unwrap exposes the decoder error.
func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports user input that fails a format check.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Invalid is a shorthand for building a ValidationError.
func Invalid(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// Message converts err into the inline text shown in place of the affected widget.
// fallback is used for network and parse failures so each widget keeps its own wording.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return strings.TrimSpace(verr.Reason)
	}
	return fallback
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
