// Package fetcher acquires items from one upstream source, degrading through
// progressively staler tiers until something can be served.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/cache"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/metrics"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/models"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/snapshot"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/upstream"
)

var (
	// ErrNoSnapshot means no usable snapshot existed for a cached-only lookup.
	ErrNoSnapshot = errors.New("no usable snapshot")

	// ErrDetailsUnavailable is returned by extractors whose payload was good
	// but whose follow-up pages all failed. The live tier tries no further
	// variants after it.
	ErrDetailsUnavailable = errors.New("no detail page could be obtained")
)

// Access bounds what an extractor may do to complete a payload.
type Access int

const (
	// AccessNetwork allows upstream requests.
	AccessNetwork Access = iota
	// AccessFresh allows snapshots within the max age and nothing else.
	AccessFresh
	// AccessSnapshots allows snapshots of any age and no network.
	AccessSnapshots
)

// Status classifies an Outcome.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusEmpty    Status = "empty"
)

// Tier names where an Outcome's items came from.
type Tier string

const (
	TierLive          Tier = "live"
	TierSnapshot      Tier = "snapshot"
	TierStaleSnapshot Tier = "stale_snapshot"
	TierCache         Tier = "cache"
	TierSeed          Tier = "seed"
	TierNone          Tier = "none"
)

// Outcome is the result of one Fetch. Items is empty only when Status is StatusEmpty.
type Outcome struct {
	Source models.Source `json:"source"`
	Status Status        `json:"status"`
	Tier   Tier          `json:"tier"`
	Items  []models.Item `json:"items"`
	Reason string        `json:"reason,omitempty"`
}

// Extractor parses a raw listing payload. access tells extractors that fetch
// more pages how far they may go.
type Extractor func(ctx context.Context, raw []byte, access Access) ([]models.Item, error)

// Source describes one upstream: how to reach it, where its payloads are kept
// and how to parse them.
type Source struct {
	Name        models.Source
	SnapshotKey string
	CacheKey    string
	Variants    []upstream.Variant
	Extract     Extractor
	Seed        func() []models.Item
}

// CacheKey is the Cache Store key a source's items are written under.
func CacheKey(s models.Source) string { return string(s) + "_events" }

// Options configures a Fetcher.
type Options struct {
	SnapshotMaxAge time.Duration
	Metrics        *metrics.Collector
	Logger         *slog.Logger
}

// Fetcher runs the tiered acquisition chain for a Source.
type Fetcher struct {
	client    upstream.Client
	snapshots *snapshot.Store
	cache     cache.Store
	maxAge    time.Duration
	metrics   *metrics.Collector
	logger    *slog.Logger
}

// New returns a Fetcher. cache may be nil, which skips the cache tier.
func New(client upstream.Client, snapshots *snapshot.Store, c cache.Store, opts Options) *Fetcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Fetcher{
		client:    client,
		snapshots: snapshots,
		cache:     c,
		maxAge:    opts.SnapshotMaxAge,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
}

// Fetch produces the best items currently obtainable for src. It never fails;
// failures show up as a degraded or empty Outcome.
func (f *Fetcher) Fetch(ctx context.Context, src *Source, cachedOnly bool) Outcome {
	out := f.fetch(ctx, src, cachedOnly)
	out.Source = src.Name

	f.metrics.RecordFetch(string(src.Name), string(out.Status), string(out.Tier))
	level := slog.LevelInfo
	if out.Status != StatusOK {
		level = slog.LevelWarn
	}
	f.logger.Log(ctx, level, "source fetched",
		"source", src.Name,
		"status", out.Status,
		"tier", out.Tier,
		"items", len(out.Items),
		"reason", out.Reason,
	)
	return out
}

func (f *Fetcher) fetch(ctx context.Context, src *Source, cachedOnly bool) Outcome {
	if cachedOnly {
		raw, ok := f.snapshots.FindFresh(src.SnapshotKey, f.maxAge)
		if !ok {
			return Outcome{Status: StatusEmpty, Tier: TierNone, Reason: ErrNoSnapshot.Error()}
		}
		items, err := f.parse(ctx, src, raw, AccessFresh)
		if err != nil {
			return Outcome{Status: StatusEmpty, Tier: TierNone, Reason: "snapshot: " + err.Error()}
		}
		return Outcome{Status: StatusOK, Tier: TierSnapshot, Items: items}
	}

	if raw, ok := f.snapshots.FindFresh(src.SnapshotKey, f.maxAge); ok {
		items, err := f.parse(ctx, src, raw, AccessFresh)
		if err == nil {
			return Outcome{Status: StatusOK, Tier: TierSnapshot, Items: items}
		}
		f.logger.Warn("fresh snapshot unusable", "source", src.Name, "error", err)
	}

	items, liveErr := f.live(ctx, src)
	if liveErr == nil {
		return Outcome{Status: StatusOK, Tier: TierLive, Items: items}
	}
	reason := "live: " + liveErr.Error()

	if raw, ok := f.snapshots.FindLatest(src.SnapshotKey); ok {
		items, err := f.parse(ctx, src, raw, AccessSnapshots)
		if err == nil {
			return Outcome{Status: StatusDegraded, Tier: TierStaleSnapshot, Items: items, Reason: reason}
		}
		f.logger.Warn("stale snapshot unusable", "source", src.Name, "error", err)
	}

	if f.cache != nil {
		items, err := f.cache.Get(src.CacheKey)
		if err == nil && len(items) > 0 {
			return Outcome{Status: StatusDegraded, Tier: TierCache, Items: items, Reason: reason}
		}
	}

	if src.Seed != nil {
		if seed := src.Seed(); len(seed) > 0 {
			return Outcome{Status: StatusDegraded, Tier: TierSeed, Items: seed, Reason: reason}
		}
	}
	return Outcome{Status: StatusEmpty, Tier: TierNone, Reason: reason}
}

// live tries each request variant in order. The first 200 whose payload
// yields items is kept as the new snapshot. A payload that parsed but whose
// detail pages all failed ends the loop.
func (f *Fetcher) live(ctx context.Context, src *Source) ([]models.Item, error) {
	if len(src.Variants) == 0 {
		return nil, errors.New("no request variants")
	}
	var lastErr error
	for _, v := range src.Variants {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := f.client.Get(ctx, v.Request)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", v.Name, err)
			f.logger.Warn("live fetch failed", "source", src.Name, "variant", v.Name, "error", err)
			continue
		}
		if !resp.OK() {
			lastErr = fmt.Errorf("%s: status %d", v.Name, resp.StatusCode)
			f.logger.Warn("live fetch rejected", "source", src.Name, "variant", v.Name, "status", resp.StatusCode)
			continue
		}
		items, err := f.parse(ctx, src, resp.Body, AccessNetwork)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", v.Name, err)
			f.logger.Warn("live payload unusable", "source", src.Name, "variant", v.Name, "error", err)
			if errors.Is(err, ErrDetailsUnavailable) {
				return nil, lastErr
			}
			continue
		}
		if err := f.snapshots.Save(src.SnapshotKey, resp.Body); err != nil {
			f.logger.Warn("snapshot save failed", "source", src.Name, "error", err)
		}
		return items, nil
	}
	return nil, lastErr
}

// parse runs the extractor, treating errors, panics and zero items alike.
func (f *Fetcher) parse(ctx context.Context, src *Source, raw []byte, access Access) (items []models.Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			items, err = nil, fmt.Errorf("extractor panic: %v", r)
		}
	}()
	items, err = src.Extract(ctx, raw, access)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.New("no items extracted")
	}
	return items, nil
}
