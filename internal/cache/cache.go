// Package cache persists normalized item lists under a time-to-live.
//
// Entries are addressed by a stable hash of a logical key such as
// "hackerearth_events". An entry older than the configured duration is
// treated exactly like a missing one, even if its bytes are still on disk.
// Undecodable entries (an interrupted write, a foreign file) are misses too:
// the cache must never block the system.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/clock"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/models"
)

var (
	// ErrNotFound is returned for absent, expired or unreadable entries.
	ErrNotFound = errors.New("cache entry not found")

	errKeyMismatch = errors.New("cache entry belongs to another key")
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Store is a keyed, time-boxed store of item lists.
type Store interface {
	Get(key string) ([]models.Item, error)
	// Lookup is Get that also reports when the entry was written.
	Lookup(key string) (Entry, error)
	Put(key string, items []models.Item) error
	Delete(key string) error
	Close() error
}

// Options configures a Store backend.
type Options struct {
	Dir      string
	Duration time.Duration
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Open returns the backend named by backend ("file" or "leveldb").
func Open(backend string, opts Options) (Store, error) {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Duration <= 0 {
		return nil, fmt.Errorf("cache: duration must be positive, got %s", opts.Duration)
	}
	switch backend {
	case "", "file":
		return NewFileStore(opts)
	case "leveldb":
		return NewLevelStore(opts)
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", backend)
	}
}

// Entry is the persisted form of one key.
type Entry struct {
	Key      string        `json:"key"`
	StoredAt time.Time     `json:"stored_at"`
	Items    []models.Item `json:"items"`
}

// hashKey maps a logical key to its storage address.
func hashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:16])
}

func encodeEntry(key string, items []models.Item, now time.Time) ([]byte, error) {
	if items == nil {
		items = []models.Item{}
	}
	return codec.Marshal(Entry{Key: key, StoredAt: now.UTC(), Items: items})
}

// decodeEntry validates ownership and age. Any failure is reported as a miss.
func decodeEntry(key string, b []byte, now time.Time, ttl time.Duration) (Entry, error) {
	var e Entry
	if err := codec.Unmarshal(b, &e); err != nil {
		return Entry{}, fmt.Errorf("%w: decode: %v", ErrNotFound, err)
	}
	if e.Key != key {
		return Entry{}, fmt.Errorf("%w: %v", ErrNotFound, errKeyMismatch)
	}
	if now.Sub(e.StoredAt) > ttl {
		return Entry{}, fmt.Errorf("%w: expired %s ago", ErrNotFound, now.Sub(e.StoredAt)-ttl)
	}
	return e, nil
}
