package config

import "time"

const (
	DefaultForge        = ForgeGitHub
	DefaultConcurrency  = 1
	DefaultBuildCommand = "oak"
	DefaultCIFile       = "ci.json"
	DefaultKeepBuilds   = 5
	DefaultOutputTail   = 64 * 1024
	DefaultEventSubject = "branchbuilder.outcomes"
	DefaultMaxRetries   = 3
)

// DefaultBuildArgs mirrors the argument layout expected by oak.
var DefaultBuildArgs = []string{
	"-i", "${SOURCE_DIR}",
	"-o", "${BUILD_DIR}",
	"-r", "${REPOSITORY}",
	"-b", "${BRANCH}",
	"-c", "${COMMIT}",
	"-O", "${REPORT_FILE}",
	"${CI_FILE}",
}

func applyDefaults(cfg *Config) {
	if cfg.Version == "" {
		cfg.Version = "1"
	}
	if cfg.Forge == "" {
		cfg.Forge = DefaultForge
	} else {
		cfg.Forge = NormalizeForgeType(string(cfg.Forge))
	}
	if cfg.WhitelistRepos == nil {
		cfg.WhitelistRepos = []string{}
	}
	if cfg.BlacklistRepos == nil {
		cfg.BlacklistRepos = []string{}
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	b := &cfg.Build
	if b.Command == "" {
		b.Command = DefaultBuildCommand
	}
	if len(b.Args) == 0 {
		b.Args = append([]string(nil), DefaultBuildArgs...)
	}
	if b.CIFile == "" {
		b.CIFile = DefaultCIFile
	}
	if b.KeepBuilds == 0 {
		b.KeepBuilds = DefaultKeepBuilds
	}
	if b.OutputTail == 0 {
		b.OutputTail = DefaultOutputTail
	}

	r := &cfg.Retry
	if r.Backoff == "" {
		r.Backoff = RetryBackoffExponential
	} else {
		r.Backoff = NormalizeRetryBackoff(string(r.Backoff))
	}
	if r.InitialDelay == 0 {
		r.InitialDelay = time.Second
	}
	if r.MaxDelay == 0 {
		r.MaxDelay = 30 * time.Second
	}
	if r.MaxRetries == nil {
		n := DefaultMaxRetries
		r.MaxRetries = &n
	}

	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))

	if cfg.Events.Subject == "" {
		cfg.Events.Subject = DefaultEventSubject
	}
}
