// Package config loads client settings from ROLLCALL_* environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "rollcall"

// Config holds everything the API client and CLI need.
type Config struct {
	BaseURL    string        `envconfig:"API_BASE_URL" default:"http://localhost:8000"`
	APIVersion string        `envconfig:"API_VERSION" default:"v1"`
	Timeout    time.Duration `envconfig:"API_TIMEOUT" default:"10s"`
	TokenFile  string        `envconfig:"TOKEN_FILE"`
	LoginPath  string        `envconfig:"LOGIN_PATH" default:"/login"`
}

// Load reads ROLLCALL_* variables and validates them.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.TokenFile == "" {
		cfg.TokenFile = defaultTokenFile()
	}
	return &cfg, nil
}

// Validate rejects settings the client cannot work with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid API base url %q", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("API timeout must be positive")
	}
	return nil
}

// APIURL is the versioned API root, e.g. http://localhost:8000/api/v1
func (c *Config) APIURL() string {
	root := strings.TrimRight(c.BaseURL, "/") + "/api"
	if v := strings.Trim(c.APIVersion, "/"); v != "" {
		root += "/" + v
	}
	return root
}

// LoginURL is where a browser user re-authenticates.
func (c *Config) LoginURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(c.LoginPath, "/")
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "rollcall", "session.json")
}
