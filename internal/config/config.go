// Package config loads the TOML configuration file for the pre-ingest
// file storage client and applies environment variable overrides.
// Precedence is CLI flags > environment > config file; the flag layer is
// applied by the command layer, this package handles the other two.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultPath is the configuration file location used when --config is not given.
const DefaultPath = "~/.upload.toml"

// Config is the top-level structure parsed from the TOML configuration file.
type Config struct {
	Upload Upload `toml:"upload"`
}

// Upload holds the connection settings for the pre-ingest file storage.
// Token takes precedence over user/password when both are set.
type Upload struct {
	Host           string `toml:"host"`
	Token          string `toml:"token"`
	User           string `toml:"user"`
	Password       string `toml:"password"`
	DefaultProject string `toml:"default_project"`
	LogLevel       string `toml:"log_level"`
}

// EnvOverrides carries settings read from the process environment.
// Empty fields mean "not set".
type EnvOverrides struct {
	Host    string
	Token   string
	Project string
}

// ReadEnvOverrides collects recognized UPLOAD_* environment variables.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		Host:    os.Getenv("UPLOAD_HOST"),
		Token:   os.Getenv("UPLOAD_TOKEN"),
		Project: os.Getenv("UPLOAD_PROJECT"),
	}
}

// Load reads and validates the configuration file at path, then applies
// environment overrides. The path may start with "~/" which is expanded
// to the user's home directory.
func Load(path string, env EnvOverrides) (*Config, error) {
	expanded, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(expanded); err != nil {
		return nil, fmt.Errorf("config file %q not found: %w", path, err)
	}

	var cfg Config
	if _, err := toml.DecodeFile(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	cfg.applyEnv(env)

	if cfg.Upload.Host == "" {
		return nil, fmt.Errorf("config file %q has no upload.host", path)
	}

	return &cfg, nil
}

// applyEnv overlays environment values onto the file-based configuration.
func (c *Config) applyEnv(env EnvOverrides) {
	if env.Host != "" {
		c.Upload.Host = env.Host
	}

	if env.Token != "" {
		c.Upload.Token = env.Token
	}

	if env.Project != "" {
		c.Upload.DefaultProject = env.Project
	}
}

// ExpandHome resolves a leading "~/" to the current user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}

		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}

	return path, nil
}
