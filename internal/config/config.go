// Copyright (c) 2025-2026 Verniz Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// verniz-tui.
//
// Configuration comes from ~/.verniz/config.toml with built-in defaults and
// environment variable overrides, applied in that order.
package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete verniz-tui configuration.
type Config struct {
	Version string `toml:"version"`

	// API endpoints and request behavior
	API APIConfig `toml:"api"`

	// Local state storage
	Storage StorageConfig `toml:"storage"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// APIConfig contains the service endpoints and request behavior.
type APIConfig struct {
	// BackURL is the base URL of the account service.
	BackURL string `toml:"back_url"`
	// AgentURL is the base URL of the chat agent service.
	AgentURL string `toml:"agent_url"`
	// TimeoutSecs is the per-request timeout in seconds.
	TimeoutSecs int `toml:"timeout_secs"`
	// MaxRetries is the retry budget for transient failures.
	MaxRetries int `toml:"max_retries"`
}

// StorageConfig controls where session and conversation state live.
type StorageConfig struct {
	// Backend selects the key/value store: "file", "sqlite" or "memory".
	// "memory" keeps nothing across runs; useful for shared machines.
	Backend string `toml:"backend"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	// Theme is the color theme: "dark" or "light".
	Theme string `toml:"theme"`
	// ShowTimestamps renders a time next to each message.
	ShowTimestamps bool `toml:"show_timestamps"`
	// Suggestions shows prompt suggestions on an empty transcript.
	Suggestions bool `toml:"suggestions"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values. The endpoint
// defaults match a local development deployment of the verniz services.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		API: APIConfig{
			BackURL:     "http://localhost:8000",
			AgentURL:    "http://localhost:8001",
			TimeoutSecs: 60,
			MaxRetries:  3,
		},
		Storage: StorageConfig{
			Backend: "file",
		},
		UI: UIConfig{
			Theme:          "dark",
			ShowTimestamps: false,
			Suggestions:    true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the verniz configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".verniz"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file. On first run the
// default file is written so users have something to edit. Environment
// overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		cfg := Default()
		// Pristine defaults on disk; env overrides stay runtime-only.
		if err := Save(cfg); err != nil {
			log.Printf("config: failed to write default config: %v", err)
		}
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file with full
// validation. Fields absent from the file keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides to the config.
// Environment always wins over file values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("VERNIZ_BACK_API_URL"); v != "" {
		c.API.BackURL = v
	}
	if v := os.Getenv("VERNIZ_AGENT_API_URL"); v != "" {
		c.API.AgentURL = v
	}
	if v := os.Getenv("VERNIZ_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("VERNIZ_THEME"); v != "" {
		c.UI.Theme = v
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML file.
// SECURITY: Created with 0600 permissions; the file location sits next to
// the token store.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to a TOML file.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# verniz-tui configuration file")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a single configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validBackends = map[string]bool{
	"file":   true,
	"sqlite": true,
	"memory": true,
}

var validThemes = map[string]bool{
	"dark":  true,
	"light": true,
}

// Validate checks the configuration for invalid values. The first problem
// found is returned.
func (c *Config) Validate() error {
	if err := validateURL("api.back_url", c.API.BackURL); err != nil {
		return err
	}
	if err := validateURL("api.agent_url", c.API.AgentURL); err != nil {
		return err
	}
	if c.API.TimeoutSecs <= 0 {
		return ValidationError{Field: "api.timeout_secs", Message: "must be positive"}
	}
	if c.API.MaxRetries < 1 {
		return ValidationError{Field: "api.max_retries", Message: "must be at least 1"}
	}
	if !validBackends[c.Storage.Backend] {
		return ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("unknown backend %q (valid: file, sqlite, memory)", c.Storage.Backend),
		}
	}
	if !validThemes[c.UI.Theme] {
		return ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("unknown theme %q (valid: dark, light)", c.UI.Theme),
		}
	}
	return nil
}

func validateURL(field, value string) error {
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ValidationError{Field: field, Message: fmt.Sprintf("not a valid http(s) URL: %q", value)}
	}
	if strings.HasSuffix(value, " ") {
		return ValidationError{Field: field, Message: "trailing whitespace"}
	}
	return nil
}
