package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.CacheDuration())
	assert.Equal(t, 2*time.Hour, cfg.SnapshotMaxAge())
	assert.Equal(t, 30*time.Second, cfg.ListingTimeout())
	assert.Equal(t, 20*time.Second, cfg.DetailTimeout())
	assert.Equal(t, time.Second, cfg.RetryDelay())
	assert.Equal(t, 10, cfg.Details.Concurrency)
	assert.Equal(t, 2, cfg.Details.Attempts)
	assert.Equal(t, "", cfg.Source())
	assert.Len(t, cfg.Sources.DevfolioKnownLinks, 5)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	p := writeConfig(t, `
server:
  port: 9090
cache:
  backend: leveldb
  duration: 1m
details:
  concurrency: 4
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "leveldb", cfg.Cache.Backend)
	assert.Equal(t, time.Minute, cfg.CacheDuration())
	assert.Equal(t, 4, cfg.Details.Concurrency)
	// untouched sections keep their defaults
	assert.Equal(t, 2, cfg.Details.Attempts)
	assert.Equal(t, p, cfg.Source())
}

func TestLoadCapsUpstreamTimeouts(t *testing.T) {
	p := writeConfig(t, `
upstream:
  listingTimeout: 2m
  detailTimeout: 0s
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, MaxUpstreamTimeout, cfg.ListingTimeout())
	assert.Equal(t, MaxUpstreamTimeout, cfg.DetailTimeout())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"bad duration":     "cache:\n  duration: soon\n",
		"zero duration":    "cache:\n  duration: 0s\n",
		"unknown backend":  "cache:\n  backend: redis\n",
		"short max age":    "cache:\n  duration: 3h\n",
		"zero concurrency": "details:\n  concurrency: 0\n",
		"bad port":         "server:\n  port: 70000\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("SCRAPER_API_KEY", "abc123")
	t.Setenv("HACKATHONS_CACHE_DIR", "/tmp/hc")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "abc123", cfg.ScraperKey())
	assert.Equal(t, "/tmp/hc", cfg.Cache.Dir)
}

func TestPlaceholderKeyCountsAsUnset(t *testing.T) {
	t.Setenv("SCRAPER_API_KEY", "your_api_key_here")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "", cfg.ScraperKey())
}
