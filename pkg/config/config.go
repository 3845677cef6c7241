// Package config handles workspace configuration for domrunner.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the workspace configuration (config.yaml).
type Config struct {
	// Flow selection
	Flows       []string `yaml:"flows"`       // Glob patterns for flows
	IncludeTags []string `yaml:"includeTags"` // Tags to include
	ExcludeTags []string `yaml:"excludeTags"` // Tags to exclude

	// Execution settings
	Env map[string]string `yaml:"env"` // Environment variables

	// Registry construction (spec.md §4.B)
	BrowserName           string `yaml:"browserName"`           // Browser name recorded in the registry and reported in results
	StableRafCount        int    `yaml:"stableRafCount"`        // Consecutive same-rect frames required for stability
	ReplaceRafWithTimeout bool   `yaml:"replaceRafWithTimeout"` // Poll on a fixed interval instead of a frame clock

	// Custom engines (spec.md §4.D "extend")
	Extend []ExtendConfig `yaml:"extend"` // Custom selector engines to register at startup
}

// ExtendConfig names a custom-engine source file to load via
// session.Session.Extend, and the params/version constraint that call
// takes.
type ExtendConfig struct {
	Name                 string                 `yaml:"name"`
	Source               string                 `yaml:"source"` // Glob pattern resolving to a single .js file
	Params               map[string]interface{} `yaml:"params,omitempty"`
	APIVersionConstraint string                 `yaml:"apiVersionConstraint,omitempty"`
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromDir looks for config.yaml or config.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	// Try config.yaml first
	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// Try config.yml
	configPath = filepath.Join(dir, "config.yml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// No config file found, return empty config
	return &Config{}, nil
}

// ResolvedExtension is an ExtendConfig with its Source glob already
// expanded into file content, ready for session.Session.Extend.
type ResolvedExtension struct {
	ExtendConfig
	Body string
}

// ResolveExtensions expands each ExtendConfig's Source glob relative to
// baseDir and reads the matching file. Each pattern must resolve to
// exactly one file: zero matches or more than one is a configuration
// error, since Extend needs a single source string per engine.
func (c *Config) ResolveExtensions(baseDir string) ([]ResolvedExtension, error) {
	out := make([]ResolvedExtension, 0, len(c.Extend))
	for _, ext := range c.Extend {
		pattern := ext.Source
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(baseDir, pattern)
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) != 1 {
			return nil, &os.PathError{Op: "resolve extend source", Path: ext.Source, Err: os.ErrNotExist}
		}
		data, err := os.ReadFile(matches[0]) //#nosec G304 -- path resolved from workspace config, not request input
		if err != nil {
			return nil, err
		}
		out = append(out, ResolvedExtension{ExtendConfig: ext, Body: string(data)})
	}
	return out, nil
}
