package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the crawl engine.
type Config struct {
	// Target site settings
	Site SiteConfig `yaml:"site" json:"site"`

	// Request pacing configuration
	Pacing PacingConfig `yaml:"pacing" json:"pacing"`

	// Headless browser settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Crawl loop settings
	Crawl CrawlConfig `yaml:"crawl" json:"crawl"`

	// Passive browsing settings
	Behavior BehaviorConfig `yaml:"behavior" json:"behavior"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SiteConfig holds settings for the remote site.
type SiteConfig struct {
	BaseURL  string `yaml:"base_url" json:"base_url"`
	HomePath string `yaml:"home_path" json:"home_path"`
}

// PacingConfig holds the request pacing knobs.
type PacingConfig struct {
	HourlyCeiling int           `yaml:"hourly_ceiling" json:"hourly_ceiling"`
	MinDelay      time.Duration `yaml:"min_delay" json:"min_delay"`
	MaxDelay      time.Duration `yaml:"max_delay" json:"max_delay"`
}

// BrowserConfig holds headless browser settings. The fingerprint values are
// fixed at page-context creation, not per call.
type BrowserConfig struct {
	Headless          bool          `yaml:"headless" json:"headless"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	ViewportWidth     int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight    int           `yaml:"viewport_height" json:"viewport_height"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	LoadSettle        time.Duration `yaml:"load_settle" json:"load_settle"`
}

// CrawlConfig holds crawl loop settings.
type CrawlConfig struct {
	DefaultLimit   int `yaml:"default_limit" json:"default_limit"`
	RecordsPerPage int `yaml:"records_per_page" json:"records_per_page"`
}

// BehaviorConfig holds passive browsing probabilities and pause band.
type BehaviorConfig struct {
	MinPause    time.Duration `yaml:"min_pause" json:"min_pause"`
	MaxPause    time.Duration `yaml:"max_pause" json:"max_pause"`
	ScrollProb  float64       `yaml:"scroll_prob" json:"scroll_prob"`
	EngageProb  float64       `yaml:"engage_prob" json:"engage_prob"`
	OpenProb    float64       `yaml:"open_prob" json:"open_prob"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// DefaultConfig returns a Config instance with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:  "https://x.com",
			HomePath: "/home",
		},
		Pacing: PacingConfig{
			HourlyCeiling: 20,
			MinDelay:      3 * time.Second,
			MaxDelay:      8 * time.Second,
		},
		Browser: BrowserConfig{
			Headless:          true,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			ViewportWidth:     1366,
			ViewportHeight:    768,
			NavigationTimeout: 30 * time.Second,
			LoadSettle:        1500 * time.Millisecond,
		},
		Crawl: CrawlConfig{
			DefaultLimit:   50,
			RecordsPerPage: 10,
		},
		Behavior: BehaviorConfig{
			MinPause:   2 * time.Second,
			MaxPause:   6 * time.Second,
			ScrollProb: 0.6,
			EngageProb: 0.15,
			OpenProb:   0.25,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   false,
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
func (c *Config) LoadFromEnv() error {
	if baseURL := os.Getenv("XSCRAPER_BASE_URL"); baseURL != "" {
		c.Site.BaseURL = baseURL
	}
	if userAgent := os.Getenv("XSCRAPER_USER_AGENT"); userAgent != "" {
		c.Browser.UserAgent = userAgent
	}

	if ceiling := os.Getenv("XSCRAPER_HOURLY_CEILING"); ceiling != "" {
		var val int
		fmt.Sscanf(ceiling, "%d", &val)
		if val > 0 {
			c.Pacing.HourlyCeiling = val
		}
	}
	if minDelay := os.Getenv("XSCRAPER_MIN_DELAY_MS"); minDelay != "" {
		var val int
		fmt.Sscanf(minDelay, "%d", &val)
		if val > 0 {
			c.Pacing.MinDelay = time.Duration(val) * time.Millisecond
		}
	}
	if maxDelay := os.Getenv("XSCRAPER_MAX_DELAY_MS"); maxDelay != "" {
		var val int
		fmt.Sscanf(maxDelay, "%d", &val)
		if val > 0 {
			c.Pacing.MaxDelay = time.Duration(val) * time.Millisecond
		}
	}

	if headless := os.Getenv("XSCRAPER_HEADLESS"); headless != "" {
		c.Browser.Headless = strings.ToLower(headless) != "false"
	}

	if logLevel := os.Getenv("XSCRAPER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("XSCRAPER_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file.
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations.
func (c *Config) findConfigFile() string {
	locations := []string{
		".xscraper.yaml",
		".xscraper.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "xscraper", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "xscraper", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".xscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Site.BaseURL == "" {
		errs = append(errs, errors.New("site base URL is required"))
	}
	if !strings.HasPrefix(c.Site.BaseURL, "http") {
		errs = append(errs, errors.New("site base URL must be an absolute http(s) URL"))
	}

	if c.Pacing.HourlyCeiling <= 0 {
		errs = append(errs, errors.New("hourly ceiling must be positive"))
	}
	if c.Pacing.MinDelay <= 0 {
		errs = append(errs, errors.New("min delay must be positive"))
	}
	if c.Pacing.MaxDelay < c.Pacing.MinDelay {
		errs = append(errs, errors.New("max delay must not be below min delay"))
	}

	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		errs = append(errs, errors.New("viewport dimensions must be positive"))
	}
	if c.Browser.NavigationTimeout <= 0 {
		errs = append(errs, errors.New("navigation timeout must be positive"))
	}
	if c.Browser.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}

	if c.Crawl.RecordsPerPage <= 0 {
		errs = append(errs, errors.New("records per page must be positive"))
	}
	if c.Crawl.DefaultLimit <= 0 {
		errs = append(errs, errors.New("default limit must be positive"))
	}

	if sum := c.Behavior.ScrollProb + c.Behavior.EngageProb + c.Behavior.OpenProb; sum > 1.0 {
		errs = append(errs, errors.New("behavior probabilities must not sum above 1.0"))
	}
	if c.Behavior.MaxPause < c.Behavior.MinPause {
		errs = append(errs, errors.New("max pause must not be below min pause"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Environment variables > .env file > Config file > Defaults
func Load(configPath string) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".xscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
