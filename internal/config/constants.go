// Package config provides typed configuration for the application, loaded
// through viper from config file, environment variables and defaults.
package config

import "time"

// Default configuration values.
const (
	// DefaultBaseURL is the upstream third-party API base URL.
	DefaultBaseURL = "https://statsportsproseries.com/thirdpartyapi/api"
	// DefaultAPIVersion is the api-version header value sent on every request.
	DefaultAPIVersion = "7"
	// DefaultAuthMode transmits credentials in the request body.
	DefaultAuthMode = "body"
	// DefaultTimeout is the normal request timeout for full-day fetches.
	DefaultTimeout = 60 * time.Second
	// DefaultDiscoveryTimeout is the short timeout used by existence probes.
	DefaultDiscoveryTimeout = 10 * time.Second
	// DefaultMaxRetries bounds retry attempts per request.
	DefaultMaxRetries = 3
	// DefaultRetryInitialWait is the first backoff delay.
	DefaultRetryInitialWait = time.Second
	// DefaultRetryMaxWait caps the backoff delay.
	DefaultRetryMaxWait = 30 * time.Second

	// DefaultInterHourDelay is the pause between consecutive hour-fallback requests.
	DefaultInterHourDelay = 200 * time.Millisecond
	// DefaultInterDayDelay is the pause between consecutive days.
	DefaultInterDayDelay = 500 * time.Millisecond

	// DefaultRunsDir is where per-run artifact directories are created.
	DefaultRunsDir = "runs"
	// DefaultDatasetDir is where cumulative per-athlete datasets live.
	DefaultDatasetDir = "dataset"

	// DefaultSchedule runs the daily catch-up extraction at 06:00.
	DefaultSchedule = "0 6 * * *"
)
