package common

import (
	"errors"
)

// Common error constants
var (
	// ErrNavigationExhausted is returned when the hop budget runs out before a job board is found
	ErrNavigationExhausted = errors.New("navigation budget exhausted without finding a job board")

	// ErrSynthesisRejected is returned when the oracle cannot produce a well-formed configuration
	ErrSynthesisRejected = errors.New("oracle returned malformed configuration")

	// ErrExtractionFailure is returned when a candidate configuration extracts no usable records
	ErrExtractionFailure = errors.New("configuration extracted no usable records")

	// ErrRuntimeFailure is returned when the browser session fails mid-scrape
	ErrRuntimeFailure = errors.New("browser runtime failure")

	// ErrOracleUnavailable is returned when the reasoning oracle cannot be reached after retries
	ErrOracleUnavailable = errors.New("reasoning oracle unavailable")

	// ErrWorkflowTimeout is returned when a workflow exceeds its wall-clock ceiling
	ErrWorkflowTimeout = errors.New("workflow exceeded time limit")

	// ErrWorkflowNotFound is returned when a workflow id is unknown or expired
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowConflict is returned when a target already has a workflow in flight
	ErrWorkflowConflict = errors.New("workflow already in flight for target")

	// ErrTargetNotFound is returned when a target name is not registered
	ErrTargetNotFound = errors.New("target not found")

	// ErrInvalidConfig is returned when an invalid configuration is provided
	ErrInvalidConfig = errors.New("invalid configuration")
)
