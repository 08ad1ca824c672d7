package cache_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/cache"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/clock"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/models"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleItems() []models.Item {
	return []models.Item{
		{ID: "he-1", Source: models.SourceHackerEarth, Title: "Code Horizon", Location: "Online", Mode: models.ModeOnline},
		{
			ID: "bitbox", Source: models.SourceDevfolio, Title: "BitBox", Location: "India", Mode: models.ModeOnline,
			Extras: &models.Extras{Prize: "Exciting prizes to be won", TeamSize: &models.TeamSize{Min: 1, Max: 4}},
		},
	}
}

func backends(t *testing.T, clk clock.Clock) map[string]cache.Store {
	t.Helper()
	out := map[string]cache.Store{}
	for _, b := range []string{"file", "leveldb"} {
		s, err := cache.Open(b, cache.Options{Dir: filepath.Join(t.TempDir(), b), Duration: 5 * time.Minute, Clock: clk})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		out[b] = s
	}
	return out
}

func TestPutGetRoundTrip(t *testing.T) {
	clk := clock.NewFake(epoch)
	for name, s := range backends(t, clk) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put("devfolio_events", sampleItems()))

			got, err := s.Get("devfolio_events")
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "bitbox", got[1].ID)
			require.True(t, got[1].HasExtras())
			assert.Equal(t, 4, got[1].TeamSize.Max)
			assert.False(t, got[0].HasExtras())
		})
	}
}

func TestLookupReportsWriteTime(t *testing.T) {
	clk := clock.NewFake(epoch)
	for name, s := range backends(t, clk) {
		t.Run(name, func(t *testing.T) {
			clk.Set(epoch)
			require.NoError(t, s.Put("hackerearth_events", sampleItems()))
			clk.Advance(3 * time.Minute)

			e, err := s.Lookup("hackerearth_events")
			require.NoError(t, err)
			assert.True(t, e.StoredAt.Equal(epoch), "stored at %s", e.StoredAt)
			assert.Len(t, e.Items, 2)

			clk.Advance(3 * time.Minute)
			_, err = s.Lookup("hackerearth_events")
			assert.ErrorIs(t, err, cache.ErrNotFound)
		})
	}
}

func TestGetMissingKey(t *testing.T) {
	for name, s := range backends(t, clock.NewFake(epoch)) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get("hackerearth_events")
			assert.ErrorIs(t, err, cache.ErrNotFound)
		})
	}
}

func TestEntryExpiresAfterDuration(t *testing.T) {
	clk := clock.NewFake(epoch)
	for name, s := range backends(t, clk) {
		t.Run(name, func(t *testing.T) {
			clk.Set(epoch)
			require.NoError(t, s.Put("hackerearth_events", sampleItems()))

			clk.Advance(5 * time.Minute)
			_, err := s.Get("hackerearth_events")
			require.NoError(t, err, "entry exactly at the boundary is still valid")

			clk.Advance(time.Second)
			_, err = s.Get("hackerearth_events")
			assert.ErrorIs(t, err, cache.ErrNotFound)
		})
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	for name, s := range backends(t, clock.NewFake(epoch)) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put("k", sampleItems()))
			require.NoError(t, s.Delete("k"))
			require.NoError(t, s.Delete("k"))

			_, err := s.Get("k")
			assert.ErrorIs(t, err, cache.ErrNotFound)
		})
	}
}

func TestEmptyListIsAHit(t *testing.T) {
	for name, s := range backends(t, clock.NewFake(epoch)) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put("k", nil))
			got, err := s.Get("k")
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestFileStoreCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	s, err := cache.NewFileStore(cache.Options{Dir: dir, Duration: time.Minute, Clock: clock.NewFake(epoch)})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(s.Path("k"), []byte("{not json"), 0o644))
	_, err = s.Get("k")
	assert.ErrorIs(t, err, cache.ErrNotFound)

	// a later write replaces the corrupt file
	require.NoError(t, s.Put("k", sampleItems()))
	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := cache.NewFileStore(cache.Options{Dir: dir, Duration: time.Minute})
	require.NoError(t, err)

	require.NoError(t, s.Put("a", sampleItems()))
	require.NoError(t, s.Put("b", sampleItems()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, ".cache", filepath.Ext(e.Name()))
	}
}

func TestOpenValidates(t *testing.T) {
	_, err := cache.Open("redis", cache.Options{Dir: t.TempDir(), Duration: time.Minute})
	assert.Error(t, err)

	_, err = cache.Open("file", cache.Options{Dir: t.TempDir()})
	assert.Error(t, err)
}
