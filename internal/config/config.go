// Package config holds the run configuration for the crosscheck harness.
// Everything is read once at startup from the environment; the CLI may
// override individual fields from flags before the run begins. There is no
// runtime reconfiguration.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Default locations, relative to the repository root the harness runs from.
const (
	DefaultSampleDir    = "testdata/samples/priv"
	RestrictedSampleDir = "testdata/samples/pub"
	DefaultExceptions   = "testdata/schema-exceptions.yaml"
	DefaultToolBin      = "typegen"
	DefaultValidatorBin = "ajv"
)

// Config is the environment-derived configuration for one harness run.
type Config struct {
	// CI is true on continuous-integration runs.
	CI bool `yaml:"ci"`

	// Branch is the branch under test (informational, logged only).
	Branch string `yaml:"branch"`

	// Event is the CI event type: "push" or "pull-request".
	Event string `yaml:"event"`

	// Workers overrides the worker count when > 0.
	Workers int `yaml:"workers"`

	// OnlyFixture restricts the run to a single fixture by name.
	OnlyFixture string `yaml:"only_fixture"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug"`

	// ToolBin is the code-generator binary under test.
	ToolBin string `yaml:"tool_bin"`

	// ValidatorBin is the external JSON-schema validator binary.
	ValidatorBin string `yaml:"validator_bin"`

	// KeepSandboxes retains sandbox directories after each task for
	// post-mortem inspection instead of removing them.
	KeepSandboxes bool `yaml:"keep_sandboxes"`

	// ExceptionsPath points at the schema-fixture exception list.
	ExceptionsPath string `yaml:"exceptions_path"`
}

// FromEnv builds a Config from the process environment.
func FromEnv() *Config {
	cfg := &Config{
		ToolBin:        DefaultToolBin,
		ValidatorBin:   DefaultValidatorBin,
		ExceptionsPath: DefaultExceptions,
	}
	cfg.applyEnvOverrides()
	return cfg
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CI"); v != "" {
		c.CI = isTruthy(v)
	}
	if v := os.Getenv("CROSSCHECK_BRANCH"); v != "" {
		c.Branch = v
	}
	if v := os.Getenv("CROSSCHECK_EVENT"); v != "" {
		c.Event = v
	}
	if v := os.Getenv("CROSSCHECK_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Workers = n
		}
	}
	if v := os.Getenv("CROSSCHECK_FIXTURE"); v != "" {
		c.OnlyFixture = v
	}
	if v := os.Getenv("CROSSCHECK_DEBUG"); v != "" {
		c.Debug = isTruthy(v)
	}
	if v := os.Getenv("CROSSCHECK_TOOL"); v != "" {
		c.ToolBin = v
	}
	if v := os.Getenv("CROSSCHECK_VALIDATOR"); v != "" {
		c.ValidatorBin = v
	}
	if v := os.Getenv("CROSSCHECK_KEEP_SANDBOXES"); v != "" {
		c.KeepSandboxes = isTruthy(v)
	}
	if v := os.Getenv("CROSSCHECK_EXCEPTIONS"); v != "" {
		c.ExceptionsPath = v
	}
}

// Restricted reports whether the run only has access to public samples.
// Pull-request builds run without repository secrets, so the private sample
// corpus is not available to them.
func (c *Config) Restricted() bool {
	return c.CI && c.Event == "pull-request"
}

func isTruthy(v string) bool {
	switch v {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	}
	return false
}

// ExceptionEntry is one suppressed output comparison in the schema fixture.
// The note travels with the data so the reason lives in the file, not in code.
type ExceptionEntry struct {
	Sample string `yaml:"sample"`
	Note   string `yaml:"note"`
}

// ExceptionList is the schema-fixture allowlist file.
type ExceptionList struct {
	Samples []ExceptionEntry `yaml:"samples"`
}

// LoadExceptions reads the exception list at path. A missing file is not an
// error; it means no exceptions.
func LoadExceptions(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading exception list: %w", err)
	}
	var list ExceptionList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing exception list %s: %w", path, err)
	}
	out := make(map[string]string, len(list.Samples))
	for _, e := range list.Samples {
		out[e.Sample] = e.Note
	}
	return out, nil
}
