// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Generation
	APIKey   string `json:"api_key,omitempty"`  // provider API key (env var preferred)
	Provider string `json:"provider,omitempty"` // "gemini" or "openai"

	// Execution
	Concurrency   int      `json:"concurrency,omitempty"`    // sections in flight per wave
	SourceURLs    []string `json:"source_urls,omitempty"`    // reference URLs for research sections
	UseBrowser    bool     `json:"use_browser,omitempty"`    // headless browser fallback for SPA sources
	Interpreter   string   `json:"interpreter,omitempty"`    // analysis script interpreter
	ScriptTimeout int      `json:"script_timeout,omitempty"` // seconds, analysis script wall clock
	TextTimeout   int      `json:"text_timeout,omitempty"`   // seconds, one text generation call
	MinComposite  float64  `json:"min_composite,omitempty"`  // quality pass threshold override
	MaxIterations int      `json:"max_iterations,omitempty"` // revision cap override
	SkipReview    bool     `json:"skip_review,omitempty"`    // disable the quality loop entirely
	Verbose       bool     `json:"verbose,omitempty"`        // print detailed debug information

	// Output
	OutputDir   string `json:"output_dir,omitempty"`   // exported Markdown/HTML destination
	ArtifactDir string `json:"artifact_dir,omitempty"` // analysis script artifact destination

	// Persistence
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required fields are not checked here; CLI flag validation handles those
// after merging.
func (c *Config) Validate() error {
	if c.Concurrency < 0 {
		return fmt.Errorf("config error: 'concurrency' must be non-negative")
	}
	if c.ScriptTimeout < 0 || c.TextTimeout < 0 {
		return fmt.Errorf("config error: timeouts must be non-negative")
	}
	if c.MinComposite < 0 || c.MinComposite > 10 {
		return fmt.Errorf("config error: 'min_composite' must be within [0,10]")
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("config error: 'max_iterations' must be non-negative")
	}
	if c.Provider != "" && c.Provider != "gemini" && c.Provider != "openai" {
		return fmt.Errorf("config error: unknown provider %q", c.Provider)
	}
	if c.OutputDir != "" {
		if info, err := os.Stat(c.OutputDir); err == nil && !info.IsDir() {
			return fmt.Errorf("config error: 'output_dir' is not a directory: %s", c.OutputDir)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This is used to apply config file values as defaults for CLI
// flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Provider == "" {
		result.Provider = defaults.Provider
	}
	if result.Interpreter == "" {
		result.Interpreter = defaults.Interpreter
	}
	if result.OutputDir == "" {
		result.OutputDir = defaults.OutputDir
	}
	if result.ArtifactDir == "" {
		result.ArtifactDir = defaults.ArtifactDir
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if len(result.SourceURLs) == 0 {
		result.SourceURLs = defaults.SourceURLs
	}

	if result.Concurrency == 0 {
		result.Concurrency = defaults.Concurrency
	}
	if result.ScriptTimeout == 0 {
		result.ScriptTimeout = defaults.ScriptTimeout
	}
	if result.TextTimeout == 0 {
		result.TextTimeout = defaults.TextTimeout
	}
	if result.MaxIterations == 0 {
		result.MaxIterations = defaults.MaxIterations
	}
	if result.MinComposite == 0 {
		result.MinComposite = defaults.MinComposite
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
