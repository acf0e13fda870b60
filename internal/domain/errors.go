package domain

import (
	"errors"
	"fmt"
)

// Error codes for ingestion and assessment failures
const (
	ErrNonMonotonicTime        = "NON_MONOTONIC_TIME"
	ErrIncompleteMeasurement   = "INCOMPLETE_MEASUREMENT"
	ErrAmbiguousCorrespondence = "AMBIGUOUS_CORRESPONDENCE"
	ErrInvalidInterval         = "INVALID_INTERVAL"
	ErrLesionNotFound          = "LESION_NOT_FOUND"
	ErrInvalidConfiguration    = "INVALID_CONFIGURATION"
)

// TrackingError represents a structured, recoverable error from the tracking
// core. Every TrackingError blocks the operation that raised it; none are
// process-fatal. The caller recovers by supplying corrected input.
type TrackingError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	LesionRef string `json:"lesion_ref,omitempty"`
}

// Error implements the error interface
func (e *TrackingError) Error() string {
	if e.LesionRef != "" {
		return fmt.Sprintf("%s: %s (lesion %s)", e.Code, e.Message, e.LesionRef)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewTrackingError creates a new TrackingError
func NewTrackingError(code, lesionRef, format string, args ...interface{}) *TrackingError {
	return &TrackingError{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		LesionRef: lesionRef,
	}
}

// IsTrackingError reports whether err is (or wraps) a TrackingError with the
// given code.
func IsTrackingError(err error, code string) bool {
	var te *TrackingError
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// ValidationError represents input validation errors on a single field
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
