package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/clock"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/models"
)

// LevelStore keeps entries in a leveldb database under Dir.
// leveldb writes are atomic per key, so no temp files are needed.
type LevelStore struct {
	db     *leveldb.DB
	ttl    time.Duration
	clock  clock.Clock
	logger *slog.Logger
}

// NewLevelStore opens or creates the database in Dir.
func NewLevelStore(opts Options) (*LevelStore, error) {
	db, err := leveldb.OpenFile(opts.Dir, nil)
	if err != nil {
		return nil, fmt.Errorf("cache: open leveldb: %w", err)
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &LevelStore{db: db, ttl: opts.Duration, clock: opts.Clock, logger: opts.Logger}, nil
}

func levelKey(key string) []byte { return []byte("e:" + hashKey(key)) }

// Get returns the items stored under key, or ErrNotFound when absent or expired.
func (s *LevelStore) Get(key string) ([]models.Item, error) {
	e, err := s.Lookup(key)
	if err != nil {
		return nil, err
	}
	return e.Items, nil
}

// Lookup returns the live entry for key with its write time.
func (s *LevelStore) Lookup(key string) (Entry, error) {
	b, err := s.db.Get(levelKey(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return Entry{}, ErrNotFound
		}
		s.logger.Warn("cache read failed", "key", key, "error", err)
		return Entry{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	e, err := decodeEntry(key, b, s.clock.Now(), s.ttl)
	if err != nil {
		s.logger.Debug("cache miss", "key", key, "reason", err)
		return Entry{}, err
	}
	return e, nil
}

// Put replaces the entry for key.
func (s *LevelStore) Put(key string, items []models.Item) error {
	b, err := encodeEntry(key, items, s.clock.Now())
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	if err := s.db.Put(levelKey(key), b, nil); err != nil {
		return fmt.Errorf("cache: put %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *LevelStore) Delete(key string) error {
	if err := s.db.Delete(levelKey(key), nil); err != nil {
		return fmt.Errorf("cache: delete %s: %w", key, err)
	}
	return nil
}

// Close releases the database.
func (s *LevelStore) Close() error { return s.db.Close() }
