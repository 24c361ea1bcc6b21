package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://x.com", cfg.Site.BaseURL)
	assert.Equal(t, 20, cfg.Pacing.HourlyCeiling)
	assert.Equal(t, 3*time.Second, cfg.Pacing.MinDelay)
	assert.Equal(t, 8*time.Second, cfg.Pacing.MaxDelay)
	assert.Equal(t, 50, cfg.Crawl.DefaultLimit)
	assert.True(t, cfg.Browser.Headless)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Site.BaseURL = "not-a-url"
	cfg.Pacing.HourlyCeiling = 0
	cfg.Pacing.MaxDelay = cfg.Pacing.MinDelay - time.Second
	cfg.Crawl.RecordsPerPage = 0
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)

	for _, want := range []string{
		"absolute http(s) URL",
		"hourly ceiling",
		"max delay",
		"records per page",
		"log level",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateBehaviorProbabilities(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Behavior.ScrollProb = 0.7
	cfg.Behavior.EngageProb = 0.3
	cfg.Behavior.OpenProb = 0.2

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "probabilities")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("XSCRAPER_BASE_URL", "https://staging.example.com")
	t.Setenv("XSCRAPER_HOURLY_CEILING", "5")
	t.Setenv("XSCRAPER_MIN_DELAY_MS", "500")
	t.Setenv("XSCRAPER_MAX_DELAY_MS", "900")
	t.Setenv("XSCRAPER_HEADLESS", "false")
	t.Setenv("XSCRAPER_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "https://staging.example.com", cfg.Site.BaseURL)
	assert.Equal(t, 5, cfg.Pacing.HourlyCeiling)
	assert.Equal(t, 500*time.Millisecond, cfg.Pacing.MinDelay)
	assert.Equal(t, 900*time.Millisecond, cfg.Pacing.MaxDelay)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("XSCRAPER_HOURLY_CEILING", "banana")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, 20, cfg.Pacing.HourlyCeiling)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
site:
  base_url: https://x.example.org
pacing:
  hourly_ceiling: 12
  min_delay: 1s
  max_delay: 4s
crawl:
  default_limit: 25
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "https://x.example.org", cfg.Site.BaseURL)
	assert.Equal(t, 12, cfg.Pacing.HourlyCeiling)
	assert.Equal(t, time.Second, cfg.Pacing.MinDelay)
	assert.Equal(t, 25, cfg.Crawl.DefaultLimit)
	// Untouched sections keep their defaults.
	assert.Equal(t, 10, cfg.Crawl.RecordsPerPage)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFileMissingPath(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Pacing.HourlyCeiling = 7
	require.NoError(t, cfg.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, 7, loaded.Pacing.HourlyCeiling)
}
