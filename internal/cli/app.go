package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/aggregator"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/cache"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/clock"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/config"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/fetcher"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/metrics"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/refresh"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/snapshot"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/store"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/upstream"
)

// app is the fully wired engine shared by serve and fetch.
type app struct {
	cfg        config.Config
	logger     *slog.Logger
	cache      cache.Store
	coord      *refresh.Coordinator
	aggregator *aggregator.Aggregator
	metrics    http.Handler
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Log.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// buildApp opens the stores and wires fetchers, the refresh coordinator and
// the aggregator. withMetrics registers a fresh Prometheus registry.
func buildApp(cfg config.Config, logger *slog.Logger, withMetrics bool) (*app, error) {
	clk := clock.Real{}

	var (
		m       *metrics.Collector
		handler http.Handler
	)
	if withMetrics && cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		m = metrics.NewCollector(reg)
		handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	c, err := cache.Open(cfg.Cache.Backend, cache.Options{
		Dir:      cfg.Cache.Dir,
		Duration: cfg.CacheDuration(),
		Clock:    clk,
		Logger:   logger.With("component", "cache"),
	})
	if err != nil {
		return nil, err
	}

	snaps, err := snapshot.New(cfg.Snapshots.Dir, clk, logger.With("component", "snapshot"))
	if err != nil {
		c.Close()
		return nil, err
	}

	client, err := upstream.NewHTTPClient(upstream.Options{
		UserAgent:    cfg.Upstream.UserAgent,
		HostInterval: cfg.HostInterval(),
		MaxBodyBytes: cfg.Upstream.MaxBodyBytes,
		Metrics:      m,
		Logger:       logger.With("component", "upstream"),
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("http client: %w", err)
	}

	proxy := upstream.Proxy{Endpoint: cfg.ScraperAPI.Endpoint, APIKey: cfg.ScraperKey()}
	if !proxy.Enabled() {
		logger.Warn("no scraping proxy key configured, devfolio pages will be fetched directly")
	}

	dfOpts := fetcher.DevfolioOptions{
		ListingURL:     cfg.Sources.DevfolioURL,
		KnownLinks:     cfg.Sources.DevfolioKnownLinks,
		Proxy:          proxy,
		ListingTimeout: cfg.ListingTimeout(),
		DetailTimeout:  cfg.DetailTimeout(),
		Concurrency:    cfg.Details.Concurrency,
		Attempts:       cfg.Details.Attempts,
		RetryDelay:     cfg.RetryDelay(),
		SnapshotMaxAge: cfg.SnapshotMaxAge(),
	}
	details := fetcher.NewDetailFetcher(client, snaps, fetcher.DevfolioDetailConfig(dfOpts, clk), m, logger.With("component", "details"))
	sources := []*fetcher.Source{
		fetcher.NewHackerEarthSource(cfg.Sources.HackerEarthURL, cfg.ListingTimeout(), clk),
		fetcher.NewDevfolioSource(dfOpts, details),
	}

	f := fetcher.New(client, snaps, c, fetcher.Options{
		SnapshotMaxAge: cfg.SnapshotMaxAge(),
		Metrics:        m,
		Logger:         logger.With("component", "fetcher"),
	})

	state := store.New()
	coord := refresh.New(state, f, sources, c, refresh.Options{
		CacheDuration: cfg.CacheDuration(),
		CycleTimeout:  cfg.CycleTimeout(),
		Clock:         clk,
		Metrics:       m,
		Logger:        logger.With("component", "refresh"),
	})

	return &app{
		cfg:        cfg,
		logger:     logger,
		cache:      c,
		coord:      coord,
		aggregator: aggregator.New(state, coord, clk, logger.With("component", "aggregator")),
		metrics:    handler,
	}, nil
}

// Close waits for background cycles and releases the cache.
func (a *app) Close() error {
	a.coord.Wait()
	return a.cache.Close()
}
