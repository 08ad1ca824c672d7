package store

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/models"
)

// Store holds the process-wide refresh state: the items of every source, when
// they were last fetched and whether a refresh is running.
// All public methods are safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	items     map[models.Source][]models.Item
	lastFetch time.Time

	refreshing atomic.Bool
}

// New creates an empty Store ready for use.
func New() *Store {
	return &Store{items: make(map[models.Source][]models.Item)}
}

// ---------- Refresh flag ----------

// BeginRefresh claims the refresh slot. It returns false if a refresh is
// already running, in which case the caller must not start another.
func (s *Store) BeginRefresh() bool {
	return s.refreshing.CompareAndSwap(false, true)
}

// EndRefresh releases the slot claimed by BeginRefresh.
func (s *Store) EndRefresh() {
	s.refreshing.Store(false)
}

// IsRefreshing reports whether a cycle holds the refresh slot.
func (s *Store) IsRefreshing() bool {
	return s.refreshing.Load()
}

// ---------- Items ----------

// Publish replaces the held collections and sets the fetch time in one step.
// Sources absent from items keep nothing.
func (s *Store) Publish(items map[models.Source][]models.Item, at time.Time) {
	next := make(map[models.Source][]models.Item, len(items))
	for src, list := range items {
		next[src] = clone(list)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = next
	s.lastFetch = at
}

// LastFetch returns the time of the last publish, or false if there was none.
func (s *Store) LastFetch() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastFetch, !s.lastFetch.IsZero()
}

// Empty reports whether no source holds any item.
func (s *Store) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, list := range s.items {
		if len(list) > 0 {
			return false
		}
	}
	return true
}

// All returns every held item, sources in their merge order.
func (s *Store) All() []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Item
	for _, src := range models.Sources() {
		out = append(out, s.items[src]...)
	}
	return out
}

// Items returns the collection held for one source.
func (s *Store) Items(src models.Source) []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.items[src])
}

// Find looks up one item by identity.
func (s *Store) Find(src models.Source, id string) (models.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, it := range s.items[src] {
		if it.ID == id {
			return it, true
		}
	}
	return models.Item{}, false
}

// Counts returns per-source and total item counts.
func (s *Store) Counts() models.Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := models.Counts{PerSource: make(map[models.Source]int, len(models.Sources()))}
	for _, src := range models.Sources() {
		n := len(s.items[src])
		c.PerSource[src] = n
		c.Total += n
	}
	return c
}

func clone(items []models.Item) []models.Item {
	out := make([]models.Item, len(items))
	copy(out, items)
	return out
}
