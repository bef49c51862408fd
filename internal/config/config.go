package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

const (
	MinTimeout = 1
	MaxTimeout = 600
)

// Config represents the command-line configuration
type Config struct {
	AccessToken string       `toml:"access_token"`
	ShortName   string       `toml:"short_name"`
	AuthorName  string       `toml:"author_name"`
	AuthorURL   string       `toml:"author_url"`
	Loglevel    string       `toml:"loglevel"`
	Timeout     int          `toml:"timeout"`
	API         APIConfig    `toml:"api"`
	Upload      UploadConfig `toml:"upload"`
}

// APIConfig holds the Telegraph endpoints
type APIConfig struct {
	BaseURL   string `toml:"base_url"`
	UploadURL string `toml:"upload_url"`
}

// UploadConfig holds upload behavior
type UploadConfig struct {
	// DetectExtension names uploaded local files after their sniffed content
	// type instead of always using .png.
	DetectExtension bool `toml:"detect_extension"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Loglevel: "info",
		Timeout:  30,
		API: APIConfig{
			BaseURL:   "https://api.telegra.ph",
			UploadURL: "https://telegra.ph/upload",
		},
	}
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "gotelegraph")

	return filepath.Join(configDir, "config.toml"), nil
}

// Load loads configuration from a TOML file
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads configPath, or returns the defaults when it does not exist.
func LoadOrDefault(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return Load(configPath)
}

// Save writes the configuration to configPath, backing up an existing file
// to configPath.bak first.
func (c *Config) Save(configPath string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := os.Rename(configPath, configPath+".bak"); err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file holds an access token.
	if err := os.WriteFile(configPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Loglevel); err != nil {
		return fmt.Errorf("loglevel must be one of: panic, fatal, error, warn, info, debug, trace")
	}
	if c.Timeout < MinTimeout || c.Timeout > MaxTimeout {
		return fmt.Errorf("timeout must be between %d and %d seconds", MinTimeout, MaxTimeout)
	}

	validateURL := func(name, value string) error {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
		if _, err := url.ParseRequestURI(value); err != nil {
			return fmt.Errorf("%s is invalid: %v", name, err)
		}
		return nil
	}

	if err := validateURL("api.base_url", c.API.BaseURL); err != nil {
		return err
	}
	if err := validateURL("api.upload_url", c.API.UploadURL); err != nil {
		return err
	}

	if utf8.RuneCountInString(c.ShortName) > 32 {
		return fmt.Errorf("short_name must be at most 32 characters")
	}

	return nil
}

// RequireToken reports an error when no access token is configured.
func (c *Config) RequireToken() error {
	if c.AccessToken == "" {
		return fmt.Errorf("access_token is required, run 'gotelegraph create-account' first")
	}
	return nil
}
