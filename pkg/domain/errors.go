package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrUnknownGate   = errors.New("unknown gate")
	ErrConfigInvalid = errors.New("invalid configuration")
)

// UnknownGateError reports a gate name that resolved through neither the
// pre-registered factory map nor the registry's fallback loader. It aborts the
// pipeline run that triggered it; it is never converted into a pass or a denial.
type UnknownGateError struct {
	Name string
}

func (e *UnknownGateError) Error() string {
	return fmt.Sprintf("unknown gate %q", e.Name)
}

// Is makes the error matchable against ErrUnknownGate with errors.Is.
func (e *UnknownGateError) Is(target error) bool {
	return target == ErrUnknownGate
}

// ErrorResponse defines the standard JSON error model returned by the navigation
// hook when a request is denied or a run fails. It intentionally avoids exposing
// gate internals while providing a stable machine-readable code.
type ErrorResponse struct {
	Code    string `json:"code"`               // Machine-readable error code (e.g., NAVIGATION_CANCELLED)
	Message string `json:"message"`            // Human-readable message (safe for logs)
	TraceID string `json:"trace_id,omitempty"` // Optional trace/correlation ID
}
