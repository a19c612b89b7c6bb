package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
)

// RequiredKeys must appear at the top level of every configuration file.
// They may hold empty lists but cannot be omitted.
var RequiredKeys = []string{"whitelist_repos", "blacklist_repos"}

// BuildVariables are left untouched by environment expansion so that they can be
// substituted per branch when the build command is invoked.
var BuildVariables = []string{
	"SOURCE_DIR", "BUILD_DIR", "REPOSITORY", "OWNER", "NAME",
	"BRANCH", "REF_KIND", "COMMIT", "CI_FILE", "REPORT_FILE", "RUN_ID",
}

// Load reads, expands, decodes, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		msg := "failed to read configuration file"
		if errors.Is(err, fs.ErrNotExist) {
			msg = "configuration file not found"
		}
		return nil, foundationerrors.ConfigError(msg).
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	cfg, err := Parse(data)
	if err != nil {
		if ce, ok := foundationerrors.AsClassified(err); ok {
			return nil, ce.WithContext("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

// Parse decodes raw YAML into a validated Config.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnv(string(data))

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
		return nil, foundationerrors.ConfigError("invalid YAML").WithCause(err).Build()
	}
	if err := checkRequiredKeys(&doc); err != nil {
		return nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, foundationerrors.ConfigError("failed to decode configuration").WithCause(err).Build()
	}

	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func checkRequiredKeys(doc *yaml.Node) error {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return foundationerrors.ConfigError("configuration must be a YAML mapping").Build()
	}
	root := doc.Content[0]
	present := make([]string, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		present = append(present, root.Content[i].Value)
	}
	for _, key := range RequiredKeys {
		if !slices.Contains(present, key) {
			return foundationerrors.ConfigError("required key missing: "+key).
				WithContext("key", key).
				Build()
		}
	}
	return nil
}

func expandEnv(s string) string {
	return os.Expand(s, func(name string) string {
		if slices.Contains(BuildVariables, name) {
			return "${" + name + "}"
		}
		return os.Getenv(name)
	})
}
