package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/metrics"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/models"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/snapshot"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/upstream"
)

// DetailConfig describes how detail pages of one source are fetched.
type DetailConfig struct {
	Source models.Source

	// Key maps a detail link to its snapshot key.
	Key func(link string) string
	// Variants are the retried attempts, in order. At most Attempts are used.
	Variants func(link string) []upstream.Variant
	// Fallback is tried once after the attempts are exhausted.
	Fallback func(link string) []upstream.Variant
	Extract  func(raw []byte, link string) (models.Item, error)

	Concurrency    int
	Attempts       int
	RetryDelay     time.Duration
	SnapshotMaxAge time.Duration
}

// DetailFetcher fetches many detail pages with bounded concurrency.
// Each page degrades on its own; a failed page is dropped from the result.
type DetailFetcher struct {
	cfg       DetailConfig
	client    upstream.Client
	snapshots *snapshot.Store
	metrics   *metrics.Collector
	logger    *slog.Logger
}

// NewDetailFetcher returns a DetailFetcher. Concurrency and Attempts below one are raised to one.
func NewDetailFetcher(client upstream.Client, snapshots *snapshot.Store, cfg DetailConfig, m *metrics.Collector, logger *slog.Logger) *DetailFetcher {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DetailFetcher{cfg: cfg, client: client, snapshots: snapshots, metrics: m, logger: logger}
}

// FetchAll returns the items that could be obtained for links, in no particular order.
// Only AccessNetwork issues requests; each link then gets at most Attempts
// variants plus the fallback.
func (d *DetailFetcher) FetchAll(ctx context.Context, links []string, access Access) []models.Item {
	results := make([]*models.Item, len(links))

	var g errgroup.Group
	g.SetLimit(d.cfg.Concurrency)
	for i, link := range links {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("detail fetch panic", "link", link, "panic", r)
					d.metrics.RecordDetail(string(d.cfg.Source), "dropped")
				}
			}()
			item, tier, err := d.fetchOne(ctx, link, access)
			if err != nil {
				d.logger.Warn("detail dropped", "source", d.cfg.Source, "link", link, "error", err)
				d.metrics.RecordDetail(string(d.cfg.Source), "dropped")
				return nil
			}
			d.metrics.RecordDetail(string(d.cfg.Source), string(tier))
			results[i] = &item
			return nil
		})
	}
	_ = g.Wait()

	items := make([]models.Item, 0, len(links))
	for _, r := range results {
		if r != nil {
			items = append(items, *r)
		}
	}
	d.logger.Info("details fetched", "source", d.cfg.Source, "links", len(links), "items", len(items))
	return items
}

// fetchOne runs the per-page chain: fresh snapshot, retried variants,
// fallback variants, stale snapshot.
func (d *DetailFetcher) fetchOne(ctx context.Context, link string, access Access) (models.Item, Tier, error) {
	key := d.cfg.Key(link)

	if raw, ok := d.snapshots.FindFresh(key, d.cfg.SnapshotMaxAge); ok {
		if item, err := d.cfg.Extract(raw, link); err == nil {
			return item, TierSnapshot, nil
		}
	}
	switch access {
	case AccessFresh:
		return models.Item{}, TierNone, ErrNoSnapshot
	case AccessSnapshots:
		return d.stale(key, link, ErrNoSnapshot)
	}

	variants := d.cfg.Variants(link)
	if len(variants) > d.cfg.Attempts {
		variants = variants[:d.cfg.Attempts]
	}
	var lastErr error
	for i, v := range variants {
		if i > 0 {
			if err := sleep(ctx, d.cfg.RetryDelay); err != nil {
				return models.Item{}, TierNone, err
			}
		}
		item, err := d.try(ctx, key, link, v)
		if err == nil {
			return item, TierLive, nil
		}
		lastErr = err
	}
	if d.cfg.Fallback != nil {
		for _, v := range d.cfg.Fallback(link) {
			item, err := d.try(ctx, key, link, v)
			if err == nil {
				return item, TierLive, nil
			}
			lastErr = err
		}
	}

	if lastErr == nil {
		lastErr = ErrNoSnapshot
	}
	return d.stale(key, link, lastErr)
}

// stale serves the newest snapshot of any age, or fails with cause.
func (d *DetailFetcher) stale(key, link string, cause error) (models.Item, Tier, error) {
	if raw, ok := d.snapshots.FindLatest(key); ok {
		if item, err := d.cfg.Extract(raw, link); err == nil {
			return item, TierStaleSnapshot, nil
		}
	}
	return models.Item{}, TierNone, cause
}

func (d *DetailFetcher) try(ctx context.Context, key, link string, v upstream.Variant) (models.Item, error) {
	resp, err := d.client.Get(ctx, v.Request)
	if err != nil {
		return models.Item{}, fmt.Errorf("%s: %w", v.Name, err)
	}
	if !resp.OK() {
		return models.Item{}, fmt.Errorf("%s: status %d", v.Name, resp.StatusCode)
	}
	item, err := d.cfg.Extract(resp.Body, link)
	if err != nil {
		return models.Item{}, fmt.Errorf("%s: %w", v.Name, err)
	}
	if err := d.snapshots.Save(key, resp.Body); err != nil {
		d.logger.Warn("detail snapshot save failed", "link", link, "error", err)
	}
	return item, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
