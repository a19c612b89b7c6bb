package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	foundationerrors "git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
)

// ExampleConfig is written by Init. It is valid once FORGE_TOKEN is set.
const ExampleConfig = `# branchbuilder configuration
forge: github
server: https://github.example.com
# ca: /etc/ssl/certs/forge-ca.pem
user: ci-bot
token: ${FORGE_TOKEN}

# Both lists are required. A non-empty whitelist ignores the blacklist.
whitelist_repos: []
blacklist_repos: []
include_tags: false

output_dir: ./output
report_file: ./output/report.md
reporting_context: ci/branchbuilder

publish_status: true
force_rebuild: false
skip_if_last_success: true

concurrency: 1

build:
  command: oak
  ci_file: ci.json
  timeout: 0s
  keep_builds: 5

checkout:
  timeout: 0s

retry:
  backoff: exponential
  initial_delay: 1s
  max_delay: 30s
  max_retries: 3

logging:
  level: info
  format: text
`

// Init writes ExampleConfig to path. An existing file is only replaced when force is set.
func Init(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return foundationerrors.ValidationError("configuration file already exists (use --force to overwrite)").
				WithContext("path", path).
				Build()
		} else if !errors.Is(err, fs.ErrNotExist) {
			return foundationerrors.FileSystemError("cannot stat configuration file").WithCause(err).Build()
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return foundationerrors.FileSystemError("cannot create configuration directory").
				WithCause(err).
				WithContext("dir", dir).
				Build()
		}
	}
	if err := os.WriteFile(path, []byte(ExampleConfig), 0o600); err != nil {
		return foundationerrors.FileSystemError("cannot write configuration file").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return nil
}
