package config

import (
	"errors"
	"fmt"
)

// Configuration validation errors returned by Config.Validate.
//
// Design decision: Package-level sentinel errors rather than ad hoc
// errors.New calls inside Validate, so callers can branch with
// errors.Is while still getting a human-readable message.
var (
	// ErrInvalidDomain is returned when Domain is missing, unparseable,
	// or uses a scheme other than http/https.
	ErrInvalidDomain = errors.New("invalid domain: must be an absolute http(s) URL")

	// ErrInvalidWorkerCount is returned when MaxWorkers is not positive.
	ErrInvalidWorkerCount = errors.New("invalid worker count: must be positive")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when the body size limit is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidRequestRate is returned when the request rate is negative.
	ErrInvalidRequestRate = errors.New("invalid request rate: must be non-negative")

	// ErrInvalidMaxURLDiff is returned when the URL-diff threshold is negative.
	// Use 0 to disable the guard.
	ErrInvalidMaxURLDiff = errors.New("invalid max url diff: must be non-negative")

	// ErrIndexWithoutOutput is returned when --as-index is set without
	// an output file. Child sitemap file names are derived from the
	// index file name, so stdout output cannot be split.
	ErrIndexWithoutOutput = errors.New("conflicting flags: --as-index requires --output")
)

// PatternError reports an exclude or drop pattern that is not a valid
// regular expression.
type PatternError struct {
	// Pattern is the offending expression as configured.
	Pattern string

	// Err is the regexp compilation error.
	Err error
}

// Error implements the error interface.
func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

// Unwrap returns the compilation error.
func (e *PatternError) Unwrap() error { return e.Err }
