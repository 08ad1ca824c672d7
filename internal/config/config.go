package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxUpstreamTimeout caps every upstream request so a stuck call cannot hold a worker.
const MaxUpstreamTimeout = 30 * time.Second

// placeholderAPIKey is the value shipped in sample env files; it counts as no key.
const placeholderAPIKey = "your_api_key_here"

// Config is the YAML configuration. Durations are strings compiled by Load.
type Config struct {
	Server struct {
		Port            int    `yaml:"port"`
		DefaultLocation string `yaml:"defaultLocation"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Cache struct {
		Dir      string `yaml:"dir"`
		Backend  string `yaml:"backend"`
		Duration string `yaml:"duration"`
	} `yaml:"cache"`

	Snapshots struct {
		Dir    string `yaml:"dir"`
		MaxAge string `yaml:"maxAge"`
	} `yaml:"snapshots"`

	Upstream struct {
		ListingTimeout string `yaml:"listingTimeout"`
		DetailTimeout  string `yaml:"detailTimeout"`
		HostInterval   string `yaml:"hostInterval"`
		MaxBodyBytes   int64  `yaml:"maxBodyBytes"`
		UserAgent      string `yaml:"userAgent"`
	} `yaml:"upstream"`

	ScraperAPI struct {
		Endpoint string `yaml:"endpoint"`
		APIKey   string `yaml:"apiKey"`
	} `yaml:"scraperApi"`

	Details struct {
		Concurrency int    `yaml:"concurrency"`
		Attempts    int    `yaml:"attempts"`
		RetryDelay  string `yaml:"retryDelay"`
	} `yaml:"details"`

	Refresh struct {
		CycleTimeout string `yaml:"cycleTimeout"`
	} `yaml:"refresh"`

	Sources struct {
		HackerEarthURL     string   `yaml:"hackerearthUrl"`
		DevfolioURL        string   `yaml:"devfolioUrl"`
		DevfolioKnownLinks []string `yaml:"devfolioKnownLinks"`
	} `yaml:"sources"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`

	// compiled
	cacheDur       time.Duration
	snapshotMaxAge time.Duration
	listingTimeout time.Duration
	detailTimeout  time.Duration
	hostInterval   time.Duration
	retryDelay     time.Duration
	cycleTimeout   time.Duration
	loadedFromFile string
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.Server.Port = 8080
	cfg.Server.DefaultLocation = "India"
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.Cache.Dir = "./data/cache"
	cfg.Cache.Backend = "file"
	cfg.Cache.Duration = "5m"
	cfg.Snapshots.Dir = "./data/snapshots"
	cfg.Snapshots.MaxAge = "2h"
	cfg.Upstream.ListingTimeout = "30s"
	cfg.Upstream.DetailTimeout = "20s"
	cfg.Upstream.HostInterval = "200ms"
	cfg.Upstream.MaxBodyBytes = 8 << 20
	cfg.Upstream.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	cfg.ScraperAPI.Endpoint = "http://api.scraperapi.com"
	cfg.Details.Concurrency = 10
	cfg.Details.Attempts = 2
	cfg.Details.RetryDelay = "1s"
	cfg.Refresh.CycleTimeout = "5m"
	cfg.Sources.HackerEarthURL = "https://www.hackerearth.com/challenges/hackathon/"
	cfg.Sources.DevfolioURL = "https://devfolio.co/hackathons/open"
	cfg.Sources.DevfolioKnownLinks = []string{
		"https://rns-hackoverflow-2.devfolio.co/",
		"https://hackhazards-25.devfolio.co/",
		"https://bitbox-5-0.devfolio.co/",
		"https://synapses-25.devfolio.co/",
		"https://amuhacks-4-0.devfolio.co/",
	}
	cfg.Metrics.Enabled = true
	return cfg
}

// Load reads a YAML file over the defaults, applies env overrides and validates.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		cfg.loadedFromFile = path
	}
	cfg.applyEnv()
	if err := cfg.compile(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("SCRAPER_API_KEY"); v != "" {
		c.ScraperAPI.APIKey = v
	}
	if v := os.Getenv("HACKATHONS_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("HACKATHONS_SNAPSHOT_DIR"); v != "" {
		c.Snapshots.Dir = v
	}
}

func (c *Config) compile() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: invalid port %d", c.Server.Port)
	}
	switch c.Cache.Backend {
	case "file", "leveldb":
	default:
		return fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend)
	}
	if strings.TrimSpace(c.Cache.Dir) == "" {
		return errors.New("cache.dir is required")
	}
	if strings.TrimSpace(c.Snapshots.Dir) == "" {
		return errors.New("snapshots.dir is required")
	}
	if c.Details.Concurrency < 1 {
		return fmt.Errorf("details.concurrency: must be at least 1, got %d", c.Details.Concurrency)
	}
	if c.Details.Attempts < 1 {
		return fmt.Errorf("details.attempts: must be at least 1, got %d", c.Details.Attempts)
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"cache.duration", c.Cache.Duration, &c.cacheDur},
		{"snapshots.maxAge", c.Snapshots.MaxAge, &c.snapshotMaxAge},
		{"upstream.listingTimeout", c.Upstream.ListingTimeout, &c.listingTimeout},
		{"upstream.detailTimeout", c.Upstream.DetailTimeout, &c.detailTimeout},
		{"upstream.hostInterval", c.Upstream.HostInterval, &c.hostInterval},
		{"details.retryDelay", c.Details.RetryDelay, &c.retryDelay},
		{"refresh.cycleTimeout", c.Refresh.CycleTimeout, &c.cycleTimeout},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		if v < 0 {
			return fmt.Errorf("%s: negative duration", d.name)
		}
		*d.dst = v
	}
	if c.cacheDur == 0 {
		return errors.New("cache.duration must be positive")
	}
	if c.snapshotMaxAge < c.cacheDur {
		return fmt.Errorf("snapshots.maxAge (%s) must not be shorter than cache.duration (%s)", c.snapshotMaxAge, c.cacheDur)
	}
	if c.listingTimeout == 0 || c.listingTimeout > MaxUpstreamTimeout {
		c.listingTimeout = MaxUpstreamTimeout
	}
	if c.detailTimeout == 0 || c.detailTimeout > MaxUpstreamTimeout {
		c.detailTimeout = MaxUpstreamTimeout
	}
	return nil
}

// Compiled durations, valid after Load.
func (c Config) CacheDuration() time.Duration { return c.cacheDur }
func (c Config) SnapshotMaxAge() time.Duration { return c.snapshotMaxAge }
func (c Config) ListingTimeout() time.Duration { return c.listingTimeout }
func (c Config) DetailTimeout() time.Duration { return c.detailTimeout }
func (c Config) HostInterval() time.Duration { return c.hostInterval }
func (c Config) RetryDelay() time.Duration { return c.retryDelay }
func (c Config) CycleTimeout() time.Duration { return c.cycleTimeout }

// Source returns the file the config was read from, or "" for defaults.
func (c Config) Source() string { return c.loadedFromFile }

// ScraperKey returns the scraping proxy key, or "" when none or the sample placeholder is set.
func (c Config) ScraperKey() string {
	k := strings.TrimSpace(c.ScraperAPI.APIKey)
	if k == placeholderAPIKey {
		return ""
	}
	return k
}
