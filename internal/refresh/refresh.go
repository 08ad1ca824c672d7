// Package refresh runs background refresh cycles, at most one at a time.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/cache"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/clock"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/fetcher"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/metrics"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/models"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/store"
)

// ErrInProgress is returned by RunOnce when another cycle holds the refresh slot.
var ErrInProgress = errors.New("refresh already in progress")

// Fetcher acquires one source. *fetcher.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, src *fetcher.Source, cachedOnly bool) fetcher.Outcome
}

// Options configures a Coordinator. CycleTimeout defaults to five minutes.
type Options struct {
	CacheDuration time.Duration
	CycleTimeout  time.Duration
	Clock         clock.Clock
	Metrics       *metrics.Collector
	Logger        *slog.Logger
}

// Coordinator is the only writer of the refresh state.
type Coordinator struct {
	state   *store.Store
	fetcher Fetcher
	sources []*fetcher.Source
	cache   cache.Store

	cacheDur     time.Duration
	cycleTimeout time.Duration
	clock        clock.Clock
	metrics      *metrics.Collector
	logger       *slog.Logger

	wg sync.WaitGroup
}

// New returns a Coordinator that publishes into state and caches into c.
func New(state *store.Store, f Fetcher, sources []*fetcher.Source, c cache.Store, opts Options) *Coordinator {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CycleTimeout <= 0 {
		opts.CycleTimeout = 5 * time.Minute
	}
	return &Coordinator{
		state:        state,
		fetcher:      f,
		sources:      sources,
		cache:        c,
		cacheDur:     opts.CacheDuration,
		cycleTimeout: opts.CycleTimeout,
		clock:        opts.Clock,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
	}
}

// RefreshAsync starts a cycle in the background and returns at once.
// It returns false, doing nothing, when a cycle is already running.
func (c *Coordinator) RefreshAsync() bool {
	return c.start(false)
}

func (c *Coordinator) start(force bool) bool {
	if !c.state.BeginRefresh() {
		return false
	}
	if force {
		c.clearCache()
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.cycle(context.Background())
	}()
	return true
}

// Trigger handles an explicit refresh request.
func (c *Coordinator) Trigger(force bool) models.TriggerResult {
	if c.state.IsRefreshing() {
		return inProgress()
	}
	if !force {
		if remaining, fresh := c.remaining(); fresh {
			secs := int(remaining.Seconds())
			msg := fmt.Sprintf("Cache is still fresh. Auto-refresh will occur in %d minute(s). Use force=true to override.", secs/60)
			return models.TriggerResult{Status: models.TriggerCacheFresh, Message: msg, ETASeconds: &secs}
		}
	}
	if !c.start(force) {
		return inProgress()
	}
	msg := "Event refresh started in background"
	if force {
		msg += " (forced refresh)"
	}
	return models.TriggerResult{Status: models.TriggerStarted, Message: msg}
}

func inProgress() models.TriggerResult {
	return models.TriggerResult{
		Status:  models.TriggerInProgress,
		Message: "A refresh operation is already in progress. Please wait for it to complete.",
	}
}

// remaining reports how long the held data stays fresh.
func (c *Coordinator) remaining() (time.Duration, bool) {
	last, ok := c.state.LastFetch()
	if !ok {
		return 0, false
	}
	left := c.cacheDur - c.clock.Now().Sub(last)
	return left, left > 0
}

// Stale reports whether the held data is older than the cache duration.
// Without any fetch the data counts as stale.
func (c *Coordinator) Stale() bool {
	last, ok := c.state.LastFetch()
	return !ok || c.clock.Now().Sub(last) > c.cacheDur
}

// Status describes the refresh state.
func (c *Coordinator) Status() models.RefreshStatus {
	st := models.RefreshStatus{
		IsRefreshing:         c.state.IsRefreshing(),
		Counts:               c.state.Counts(),
		CacheDurationSeconds: int(c.cacheDur.Seconds()),
	}
	if last, ok := c.state.LastFetch(); ok {
		st.LastFetchTime = &last
		left, _ := c.remaining()
		secs := max(0, int(left.Seconds()))
		st.SecondsUntilRefresh = &secs
	}
	return st
}

// RestoreFromCache publishes cached items when nothing is held yet and every
// source has a valid cache entry. No network I/O is done. The fetch time is
// that of the oldest entry, so restored data goes stale when it really does.
func (c *Coordinator) RestoreFromCache() bool {
	if c.cache == nil || !c.state.Empty() {
		return false
	}
	if !c.state.BeginRefresh() {
		return false
	}
	defer c.state.EndRefresh()

	items := make(map[models.Source][]models.Item, len(c.sources))
	var oldest time.Time
	for _, src := range c.sources {
		e, err := c.cache.Lookup(src.CacheKey)
		if err != nil || len(e.Items) == 0 {
			return false
		}
		items[src.Name] = e.Items
		if oldest.IsZero() || e.StoredAt.Before(oldest) {
			oldest = e.StoredAt
		}
	}
	c.state.Publish(items, oldest)
	c.logger.Info("restored from cache", "items", c.state.Counts().Total, "fetched_at", oldest)
	return true
}

// RunOnce runs one cycle synchronously.
func (c *Coordinator) RunOnce(ctx context.Context) ([]fetcher.Outcome, error) {
	if !c.state.BeginRefresh() {
		return nil, ErrInProgress
	}
	return c.cycle(ctx), nil
}

// Wait blocks until background cycles have finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// cycle fetches every source and publishes the result. The caller must hold
// the refresh slot; cycle always releases it.
func (c *Coordinator) cycle(parent context.Context) (outcomes []fetcher.Outcome) {
	id := uuid.NewString()
	log := c.logger.With("cycle", id)
	start := time.Now()
	result := "ok"

	defer func() {
		if r := recover(); r != nil {
			result = "panic"
			log.Error("refresh cycle panicked", "panic", r)
		}
		c.state.EndRefresh()
		c.metrics.RecordRefresh(result, time.Since(start))
		log.Info("refresh cycle finished", "result", result, "took", time.Since(start))
	}()

	log.Info("refresh cycle starting", "sources", len(c.sources))
	ctx, cancel := context.WithTimeout(parent, c.cycleTimeout)
	defer cancel()

	outcomes = make([]fetcher.Outcome, len(c.sources))
	var g errgroup.Group
	for i, src := range c.sources {
		g.Go(func() error {
			outcomes[i] = c.fetchSource(ctx, src, log)
			return nil
		})
	}
	_ = g.Wait()

	next := make(map[models.Source][]models.Item, len(c.sources))
	for i, src := range c.sources {
		out := outcomes[i]
		if len(out.Items) == 0 {
			// keep what we had rather than publishing nothing
			next[src.Name] = c.state.Items(src.Name)
			result = "partial"
			continue
		}
		if out.Status != fetcher.StatusOK {
			result = "partial"
		}
		next[src.Name] = out.Items
		if c.cache != nil {
			if err := c.cache.Put(src.CacheKey, out.Items); err != nil {
				log.Warn("cache write failed", "source", src.Name, "error", err)
			}
		}
	}

	c.state.Publish(next, c.clock.Now())
	for src, list := range next {
		c.metrics.SetItems(string(src), len(list))
	}
	return outcomes
}

func (c *Coordinator) fetchSource(ctx context.Context, src *fetcher.Source, log *slog.Logger) (out fetcher.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("source fetch panicked", "source", src.Name, "panic", r)
			out = fetcher.Outcome{Source: src.Name, Status: fetcher.StatusEmpty, Tier: fetcher.TierNone, Reason: fmt.Sprint("panic: ", r)}
		}
	}()
	out = c.fetcher.Fetch(ctx, src, false)
	out.Source = src.Name
	return out
}

func (c *Coordinator) clearCache() {
	if c.cache == nil {
		return
	}
	for _, src := range c.sources {
		if err := c.cache.Delete(src.CacheKey); err != nil {
			c.logger.Warn("cache clear failed", "source", src.Name, "error", err)
		}
	}
}
