package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/clock"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/extract"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/models"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/snapshot"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/upstream"
)

// NewHackerEarthSource fetches the challenges page directly; HackerEarth
// serves it without a rendering proxy.
func NewHackerEarthSource(listingURL string, timeout time.Duration, clk clock.Clock) *Source {
	return &Source{
		Name:        models.SourceHackerEarth,
		SnapshotKey: snapshot.ListingKey(string(models.SourceHackerEarth)),
		CacheKey:    CacheKey(models.SourceHackerEarth),
		Variants:    []upstream.Variant{upstream.Direct(listingURL, timeout)},
		Extract: func(_ context.Context, raw []byte, _ Access) ([]models.Item, error) {
			return extract.HackerEarthListing(raw, clk.Now())
		},
		Seed: HackerEarthSeed,
	}
}

// DevfolioOptions configures the Devfolio listing and its detail pages.
type DevfolioOptions struct {
	ListingURL     string
	KnownLinks     []string
	Proxy          upstream.Proxy
	ListingTimeout time.Duration
	DetailTimeout  time.Duration
	Concurrency    int
	Attempts       int
	RetryDelay     time.Duration
	SnapshotMaxAge time.Duration
}

// DevfolioDetailConfig fetches detail pages through the proxy, rendered then
// plain, and falls back to a direct request.
func DevfolioDetailConfig(opts DevfolioOptions, clk clock.Clock) DetailConfig {
	return DetailConfig{
		Source: models.SourceDevfolio,
		Key: func(link string) string {
			return snapshot.DetailKey(string(models.SourceDevfolio), extract.DevfolioID(link))
		},
		Variants: func(link string) []upstream.Variant {
			return opts.Proxy.Variants(link, opts.DetailTimeout)
		},
		Fallback: func(link string) []upstream.Variant {
			return []upstream.Variant{upstream.Direct(link, opts.DetailTimeout)}
		},
		Extract: func(raw []byte, link string) (models.Item, error) {
			return extract.DevfolioDetail(raw, link, clk.Now())
		},
		Concurrency:    opts.Concurrency,
		Attempts:       opts.Attempts,
		RetryDelay:     opts.RetryDelay,
		SnapshotMaxAge: opts.SnapshotMaxAge,
	}
}

// NewDevfolioSource reads hackathon links off the listing page and fetches each
// detail page through details. When the page has no links the known list is used.
func NewDevfolioSource(opts DevfolioOptions, details *DetailFetcher) *Source {
	return &Source{
		Name:        models.SourceDevfolio,
		SnapshotKey: snapshot.ListingKey(string(models.SourceDevfolio)),
		CacheKey:    CacheKey(models.SourceDevfolio),
		Variants:    opts.Proxy.Chain(opts.ListingURL, opts.ListingTimeout),
		Extract: func(ctx context.Context, raw []byte, access Access) ([]models.Item, error) {
			links, err := extract.DevfolioLinks(raw)
			if err != nil {
				return nil, err
			}
			if len(links) == 0 {
				links = opts.KnownLinks
			}
			items := Dedupe(details.FetchAll(ctx, links, access))
			if len(items) == 0 {
				if access == AccessNetwork {
					return nil, fmt.Errorf("%w: %d links", ErrDetailsUnavailable, len(links))
				}
				return nil, extract.ErrNoItems
			}
			return items, nil
		},
		Seed: DevfolioSeed,
	}
}

// Dedupe keeps the first item of each id.
func Dedupe(items []models.Item) []models.Item {
	seen := make(map[string]bool, len(items))
	out := items[:0:0]
	for _, it := range items {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	return out
}
