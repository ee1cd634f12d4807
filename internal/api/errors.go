package api

import (
	"errors"
	"fmt"
)

// ErrAuthentication is returned when the upstream API rejects the configured
// credentials. It is never retried; callers abort the whole run on it.
var ErrAuthentication = errors.New("authentication rejected by upstream API")

// ErrAPIKeyRequired is returned when a client is constructed without a key.
var ErrAPIKeyRequired = errors.New("api key is required")

// TransientError wraps a failure worth retrying: network errors, timeouts,
// rate limiting and upstream 5xx responses.
type TransientError struct {
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transient upstream failure (HTTP %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transient upstream failure: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// HTTPError is a non-retryable upstream response outside the 2xx range.
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d from upstream API: %s", e.StatusCode, e.Body)
}
