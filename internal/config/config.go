// Package config loads and validates the branchbuilder YAML configuration.
//
// The configuration is read once before any branch is processed and is never
// written afterwards. Every loading problem is reported as a config-category
// ClassifiedError so the CLI can abort the run before touching the forge.
package config

import "time"

// Config is the complete, typed configuration for one invocation.
type Config struct {
	Version string `yaml:"version,omitempty"`

	// Forge connection.
	Forge  ForgeType `yaml:"forge,omitempty"`
	Server string    `yaml:"server"`
	CA     string    `yaml:"ca,omitempty"`
	User   string    `yaml:"user,omitempty"`
	Token  string    `yaml:"token"`

	// Repository selection. Both keys must be present, possibly empty.
	WhitelistRepos []string `yaml:"whitelist_repos"`
	BlacklistRepos []string `yaml:"blacklist_repos"`
	IncludeTags    bool     `yaml:"include_tags,omitempty"`

	OutputDir        string `yaml:"output_dir"`
	ReportFile       string `yaml:"report_file,omitempty"`
	ReportingContext string `yaml:"reporting_context"`

	PublishStatus     bool `yaml:"publish_status"`
	ForceRebuild      bool `yaml:"force_rebuild"`
	SkipIfLastSuccess bool `yaml:"skip_if_last_success"`

	Concurrency int `yaml:"concurrency,omitempty"`

	Build    BuildConfig    `yaml:"build,omitempty"`
	Checkout CheckoutConfig `yaml:"checkout,omitempty"`
	Retry    RetryConfig    `yaml:"retry,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Events   EventsConfig   `yaml:"events,omitempty"`

	MetricsFile string `yaml:"metrics_file,omitempty"`
	HistoryDB   string `yaml:"history_db,omitempty"`
}

// BuildConfig describes how the external build command is invoked.
type BuildConfig struct {
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`
	CIFile  string   `yaml:"ci_file,omitempty"`
	// Timeout bounds a single build. Zero means unbounded.
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// KeepBuilds is the number of build directories retained per branch.
	KeepBuilds int `yaml:"keep_builds,omitempty"`
	// TargetURL is expanded with the build variables and attached to published statuses.
	TargetURL string `yaml:"target_url,omitempty"`
	// OutputTail caps the number of captured output bytes kept in the run report.
	OutputTail int `yaml:"output_tail,omitempty"`
}

// CheckoutConfig tunes clone and fetch.
type CheckoutConfig struct {
	// Timeout bounds each clone or fetch. Zero means unbounded.
	Timeout time.Duration `yaml:"timeout,omitempty"`
	Depth   int           `yaml:"depth,omitempty"`
}

// RetryConfig configures backoff for transient forge and git failures.
type RetryConfig struct {
	Backoff      RetryBackoffMode `yaml:"backoff,omitempty"`
	InitialDelay time.Duration    `yaml:"initial_delay,omitempty"`
	MaxDelay     time.Duration    `yaml:"max_delay,omitempty"`
	MaxRetries   *int             `yaml:"max_retries,omitempty"`
}

type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// EventsConfig enables publishing branch outcomes to NATS.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// Enabled reports whether an events publisher should be created.
func (e EventsConfig) Enabled() bool { return e.NATSURL != "" }
