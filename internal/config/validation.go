package config

import (
	"net/url"
	"os"
	"strings"

	foundationerrors "git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
)

// Validate checks a defaulted configuration and returns the first problem found.
func Validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateForge,
		validateRepositoryLists,
		validatePaths,
		validateExecution,
	} {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateForge(cfg *Config) error {
	if cfg.Forge == "" {
		return foundationerrors.ConfigError("unsupported forge type").
			WithContext("hint", "use github or forgejo").
			Build()
	}
	if cfg.Server == "" && cfg.Forge == ForgeForgejo {
		return foundationerrors.ConfigError("server is required for forgejo").Build()
	}
	if cfg.Server != "" {
		u, err := url.Parse(cfg.Server)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return foundationerrors.ConfigError("server must be an absolute URL").
				WithCause(err).
				WithContext("server", cfg.Server).
				Build()
		}
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return foundationerrors.ConfigError("token is required").Build()
	}
	if cfg.CA != "" {
		if _, err := os.Stat(cfg.CA); err != nil {
			return foundationerrors.ConfigError("ca certificate not readable").
				WithCause(err).
				WithContext("ca", cfg.CA).
				Build()
		}
	}
	return nil
}

func validateRepositoryLists(cfg *Config) error {
	for key, list := range map[string][]string{
		"whitelist_repos": cfg.WhitelistRepos,
		"blacklist_repos": cfg.BlacklistRepos,
	} {
		for _, name := range list {
			owner, repo, ok := strings.Cut(name, "/")
			if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
				return foundationerrors.ConfigError("repository names must be owner/name").
					WithContext("key", key).
					WithContext("value", name).
					Build()
			}
		}
	}
	return nil
}

func validatePaths(cfg *Config) error {
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return foundationerrors.ConfigError("output_dir is required").Build()
	}
	if strings.TrimSpace(cfg.ReportingContext) == "" {
		return foundationerrors.ConfigError("reporting_context is required").Build()
	}
	return nil
}

func validateExecution(cfg *Config) error {
	switch {
	case cfg.Concurrency < 1:
		return foundationerrors.ConfigError("concurrency must be >= 1").WithContext("concurrency", cfg.Concurrency).Build()
	case cfg.Build.Timeout < 0:
		return foundationerrors.ConfigError("build.timeout cannot be negative").Build()
	case cfg.Checkout.Timeout < 0:
		return foundationerrors.ConfigError("checkout.timeout cannot be negative").Build()
	case cfg.Checkout.Depth < 0:
		return foundationerrors.ConfigError("checkout.depth cannot be negative").Build()
	case cfg.Build.KeepBuilds < 1:
		return foundationerrors.ConfigError("build.keep_builds must be >= 1").Build()
	case cfg.Retry.Backoff == "":
		return foundationerrors.ConfigError("retry.backoff must be fixed, linear or exponential").Build()
	case cfg.Retry.MaxRetries != nil && *cfg.Retry.MaxRetries < 0:
		return foundationerrors.ConfigError("retry.max_retries cannot be negative").Build()
	case cfg.Retry.InitialDelay < 0 || cfg.Retry.MaxDelay < 0:
		return foundationerrors.ConfigError("retry delays cannot be negative").Build()
	}
	return nil
}
