package store_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/models"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/store"
)

func TestNewStoreIsEmpty(t *testing.T) {
	s := store.New()

	if !s.Empty() {
		t.Fatal("expected new store to be empty")
	}
	if _, ok := s.LastFetch(); ok {
		t.Fatal("expected no last fetch time")
	}
	if c := s.Counts(); c.Total != 0 {
		t.Fatalf("expected 0 items, got %d", c.Total)
	}
}

func TestBeginRefreshIsSingleFlight(t *testing.T) {
	s := store.New()

	if !s.BeginRefresh() {
		t.Fatal("expected first BeginRefresh to succeed")
	}
	if s.BeginRefresh() {
		t.Fatal("expected second BeginRefresh to fail while refreshing")
	}
	if !s.IsRefreshing() {
		t.Fatal("expected store to report refreshing")
	}

	s.EndRefresh()
	if !s.BeginRefresh() {
		t.Fatal("expected BeginRefresh to succeed after EndRefresh")
	}
}

func TestConcurrentBeginRefresh(t *testing.T) {
	s := store.New()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.BeginRefresh() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", wins.Load())
	}
}

func TestPublishReplacesCollections(t *testing.T) {
	s := store.New()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.Publish(map[models.Source][]models.Item{
		models.SourceHackerEarth: {{ID: "h1"}, {ID: "h2"}},
		models.SourceDevfolio:    {{ID: "d1"}},
	}, at)

	all := s.All()
	if len(all) != 3 || all[0].ID != "h1" || all[2].ID != "d1" {
		t.Fatalf("unexpected merge order: %+v", all)
	}
	if got, ok := s.LastFetch(); !ok || !got.Equal(at) {
		t.Fatalf("expected last fetch %v, got %v", at, got)
	}

	s.Publish(map[models.Source][]models.Item{
		models.SourceDevfolio: {{ID: "d2"}},
	}, at.Add(time.Minute))

	if _, ok := s.Find(models.SourceHackerEarth, "h1"); ok {
		t.Fatal("expected old collection to be replaced")
	}
	c := s.Counts()
	if c.Total != 1 || c.PerSource[models.SourceDevfolio] != 1 || c.PerSource[models.SourceHackerEarth] != 0 {
		t.Fatalf("unexpected counts: %+v", c)
	}
}

func TestReadersGetCopies(t *testing.T) {
	s := store.New()
	in := []models.Item{{ID: "h1", Title: "Original"}}
	s.Publish(map[models.Source][]models.Item{models.SourceHackerEarth: in}, time.Now())

	in[0].Title = "Mutated by publisher"
	out := s.All()
	out[0].Title = "Mutated by reader"

	got, ok := s.Find(models.SourceHackerEarth, "h1")
	if !ok || got.Title != "Original" {
		t.Fatalf("store state leaked: %+v", got)
	}
}
