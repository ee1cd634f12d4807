package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/jonesrussell/gpspull/internal/logger"
)

// App holds application-level settings.
type App struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// API holds the upstream API client settings.
type API struct {
	// BaseURL is the root of the third-party API.
	BaseURL string `mapstructure:"base_url"`
	// Key is the tenant API key.
	Key string `mapstructure:"key"`
	// Secret is the optional API secret used by header-based auth.
	Secret string `mapstructure:"secret"`
	// Version is sent as the api-version header.
	Version string `mapstructure:"version"`
	// AuthMode selects how credentials are transmitted: "body" or "headers".
	AuthMode string `mapstructure:"auth_mode"`
	// Timeout is the normal request timeout for full-day and hour fetches.
	Timeout time.Duration `mapstructure:"timeout"`
	// DiscoveryTimeout is the short timeout used by existence probes.
	DiscoveryTimeout time.Duration `mapstructure:"discovery_timeout"`
	// MaxRetries bounds attempts per request, including the first.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryInitialWait is the first backoff delay.
	RetryInitialWait time.Duration `mapstructure:"retry_initial_wait"`
	// RetryMaxWait caps the backoff delay.
	RetryMaxWait time.Duration `mapstructure:"retry_max_wait"`
}

// Extract holds extraction pacing and artifact settings.
type Extract struct {
	RunsDir        string        `mapstructure:"runs_dir"`
	InterHourDelay time.Duration `mapstructure:"inter_hour_delay"`
	InterDayDelay  time.Duration `mapstructure:"inter_day_delay"`
}

// Dataset holds cumulative dataset settings.
type Dataset struct {
	Dir string `mapstructure:"dir"`
	// Athlete is the default athlete-name filter applied by merges.
	Athlete string `mapstructure:"athlete"`
}

// Storage holds object-storage settings for the upload collaborator.
type Storage struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// Scheduler holds the cron schedule for the daemon command.
type Scheduler struct {
	Schedule string `mapstructure:"schedule"`
}

// Config is the root configuration for the application.
type Config struct {
	App       App           `mapstructure:"app"`
	Logger    logger.Config `mapstructure:"logger"`
	API       API           `mapstructure:"api"`
	Extract   Extract       `mapstructure:"extract"`
	Dataset   Dataset       `mapstructure:"dataset"`
	Storage   Storage       `mapstructure:"storage"`
	Scheduler Scheduler     `mapstructure:"scheduler"`
}

// Load unmarshals the current viper state into a validated Config.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for structural problems. Credential
// presence is checked at the point of use so read-only commands keep working
// without API access.
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Extract.Validate(); err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	if c.Dataset.Dir == "" {
		return ErrDatasetDirRequired
	}
	return nil
}

// Validate checks the API settings.
func (a *API) Validate() error {
	if a.BaseURL == "" {
		return ErrBaseURLRequired
	}
	switch a.AuthMode {
	case "body", "headers":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAuthMode, a.AuthMode)
	}
	if a.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if a.DiscoveryTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if a.MaxRetries < 1 {
		return ErrInvalidMaxRetries
	}
	return nil
}

// Validate checks the extraction settings.
func (e *Extract) Validate() error {
	if e.RunsDir == "" {
		return ErrRunsDirRequired
	}
	if e.InterHourDelay < 0 || e.InterDayDelay < 0 {
		return ErrNegativeDelay
	}
	return nil
}
