package config

import "errors"

// Configuration validation errors returned by Config.Validate and the
// Require* checks. Callers match them with errors.Is.
var (
	// ErrNoTarget is returned when no document URL or path is given.
	ErrNoTarget = errors.New("no target specified: provide a URL or file path")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidSourceConcurrency is returned when the source concurrency is negative.
	ErrInvalidSourceConcurrency = errors.New("invalid source concurrency: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidLogFormat is returned for log formats other than text and json.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrEmptyMarker is returned when a marker selector is empty.
	ErrEmptyMarker = errors.New("invalid marker: selectors must not be empty")

	// ErrOutputWithManyTargets is returned when --output is combined with
	// more than one target.
	ErrOutputWithManyTargets = errors.New("--output can only be used with a single target")

	// ErrPageURLWithManyTargets is returned when --page-url is combined with
	// more than one target.
	ErrPageURLWithManyTargets = errors.New("--page-url can only be used with a single target")

	// ErrNoUpstream is returned when the proxy has no upstream.
	ErrNoUpstream = errors.New("no upstream specified: use --upstream")

	// ErrInvalidSessionTTL is returned when the session TTL is not positive.
	ErrInvalidSessionTTL = errors.New("invalid session ttl: must be positive")

	// ErrInvalidSessionCacheSize is returned when the session cache size is not positive.
	ErrInvalidSessionCacheSize = errors.New("invalid session cache size: must be positive")
)
