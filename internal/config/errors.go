package config

import "errors"

// Validation errors returned by the config package.
var (
	// ErrBaseURLRequired is returned when the API base URL is empty.
	ErrBaseURLRequired = errors.New("api base URL is required")
	// ErrInvalidAuthMode is returned when auth_mode is neither "body" nor "headers".
	ErrInvalidAuthMode = errors.New("auth mode must be \"body\" or \"headers\"")
	// ErrInvalidTimeout is returned when a timeout is zero or negative.
	ErrInvalidTimeout = errors.New("timeouts must be positive")
	// ErrInvalidMaxRetries is returned when max_retries is below one.
	ErrInvalidMaxRetries = errors.New("max retries must be at least 1")
	// ErrRunsDirRequired is returned when the runs directory is empty.
	ErrRunsDirRequired = errors.New("runs directory is required")
	// ErrNegativeDelay is returned when a pacing delay is negative.
	ErrNegativeDelay = errors.New("pacing delays must not be negative")
	// ErrDatasetDirRequired is returned when the dataset directory is empty.
	ErrDatasetDirRequired = errors.New("dataset directory is required")
	// ErrAPIKeyRequired is returned by commands that need API access when no key is set.
	ErrAPIKeyRequired = errors.New("api key is required")
)
