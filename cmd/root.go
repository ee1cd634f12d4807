// Package cmd implements the command-line interface for gpspull.
// It provides the root command and subcommands for running, merging and
// shipping athlete-monitoring extractions.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joho/godotenv"
	"github.com/jonesrussell/gpspull/cmd/extract"
	cmdmerge "github.com/jonesrussell/gpspull/cmd/merge"
	cmdruns "github.com/jonesrussell/gpspull/cmd/runs"
	cmdscheduler "github.com/jonesrussell/gpspull/cmd/scheduler"
	"github.com/jonesrussell/gpspull/cmd/upload"
	"github.com/jonesrussell/gpspull/internal/config"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug enables debug mode for all commands
	Debug bool

	// rootCmd represents the root command for the gpspull CLI.
	rootCmd = &cobra.Command{
		Use:   "gpspull",
		Short: "Extract and reconcile athlete-monitoring sessions",
		Long: `gpspull extracts time-series athlete-monitoring sessions from a
third-party sports-analytics API, reconciles them into cumulative per-athlete
datasets and ships the result to object storage.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command
func Execute() error {
	// Load .env file early so environment variables are available
	_ = godotenv.Load()

	// Parse flags early to get debug flag before creating logger
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

// init initializes the root command and its subcommands.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug mode")

	rootCmd.AddCommand(extract.Command())
	rootCmd.AddCommand(cmdmerge.Command())
	rootCmd.AddCommand(cmdruns.Command())
	rootCmd.AddCommand(upload.Command())
	rootCmd.AddCommand(cmdscheduler.Command())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	// Enable automatic environment variable reading before setting defaults
	// so environment variables take precedence over defaults.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	// Config file is optional; environment variables and defaults suffice.
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Config file not found: %v (using defaults and environment variables)\n", err)
	}

	if err := bindEnvVars(); err != nil {
		return err
	}

	setupDevelopmentLogging()

	return nil
}

// bindEnvVars maps the upstream API's conventional environment variables to
// config keys.
func bindEnvVars() error {
	bindings := map[string][]string{
		"app.environment":       {"APP_ENV"},
		"app.debug":             {"APP_DEBUG"},
		"logger.level":          {"LOG_LEVEL"},
		"logger.encoding":       {"LOG_FORMAT"},
		"api.key":               {"STATSPORTS_API_KEY"},
		"api.secret":            {"STATSPORTS_API_SECRET"},
		"api.version":           {"STATSPORTS_API_VERSION"},
		"api.base_url":          {"STATSPORTS_BASE_URL"},
		"api.auth_mode":         {"STATSPORTS_AUTH_MODE"},
		"api.timeout":           {"STATSPORTS_TIMEOUT"},
		"api.discovery_timeout": {"STATSPORTS_DISCOVERY_TIMEOUT"},
		"storage.endpoint":      {"STORAGE_ENDPOINT"},
		"storage.access_key":    {"STORAGE_ACCESS_KEY"},
		"storage.secret_key":    {"STORAGE_SECRET_KEY"},
		"storage.bucket":        {"STORAGE_BUCKET"},
	}
	for key, envs := range bindings {
		if err := viper.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", envs[0], err)
		}
	}
	if err := viper.BindPFlag("app.debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("failed to bind debug flag: %w", err)
	}
	return nil
}

// setupDevelopmentLogging configures development logging based on environment
// and the debug flag.
func setupDevelopmentLogging() {
	debugFlag := Debug || viper.GetBool("app.debug")
	isDev := viper.GetString("app.environment") == "development"

	if debugFlag {
		viper.Set("logger.level", "debug")
	}

	if isDev {
		viper.Set("logger.development", true)
		viper.Set("logger.encoding", "console")
	}

	Debug = debugFlag
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app", map[string]any{
		"name":        "gpspull",
		"version":     "1.0.0",
		"environment": "production",
		"debug":       false,
	})

	viper.SetDefault("logger", map[string]any{
		"level":       "info",
		"development": false,
		"encoding":    "json",
		"outputPaths": []string{"stdout"},
	})

	viper.SetDefault("api", map[string]any{
		"base_url":           config.DefaultBaseURL,
		"version":            config.DefaultAPIVersion,
		"auth_mode":          config.DefaultAuthMode,
		"timeout":            config.DefaultTimeout.String(),
		"discovery_timeout":  config.DefaultDiscoveryTimeout.String(),
		"max_retries":        config.DefaultMaxRetries,
		"retry_initial_wait": config.DefaultRetryInitialWait.String(),
		"retry_max_wait":     config.DefaultRetryMaxWait.String(),
	})

	viper.SetDefault("extract", map[string]any{
		"runs_dir":         config.DefaultRunsDir,
		"inter_hour_delay": config.DefaultInterHourDelay.String(),
		"inter_day_delay":  config.DefaultInterDayDelay.String(),
	})

	viper.SetDefault("dataset", map[string]any{
		"dir":     config.DefaultDatasetDir,
		"athlete": "",
	})

	viper.SetDefault("storage", map[string]any{
		"enabled": false,
		"use_ssl": true,
	})

	viper.SetDefault("scheduler", map[string]any{
		"schedule": config.DefaultSchedule,
	})
}
