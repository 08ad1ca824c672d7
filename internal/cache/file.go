package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/clock"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/models"
)

// FileStore keeps one file per key under Dir. Writes go to a temp file in the
// same directory and are renamed into place, so readers see whole entries.
type FileStore struct {
	dir    string
	ttl    time.Duration
	clock  clock.Clock
	logger *slog.Logger
}

// NewFileStore creates Dir if needed.
func NewFileStore(opts Options) (*FileStore, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create dir: %w", err)
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &FileStore{dir: opts.Dir, ttl: opts.Duration, clock: opts.Clock, logger: opts.Logger}, nil
}

// Path returns the file an entry for key lives in.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, hashKey(key)+".cache")
}

// Get returns the items stored under key, or ErrNotFound when absent or expired.
func (s *FileStore) Get(key string) ([]models.Item, error) {
	e, err := s.Lookup(key)
	if err != nil {
		return nil, err
	}
	return e.Items, nil
}

// Lookup returns the live entry for key with its write time.
func (s *FileStore) Lookup(key string) (Entry, error) {
	b, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
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
func (s *FileStore) Put(key string, items []models.Item) error {
	b, err := encodeEntry(key, items, s.clock.Now())
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".entry-*.tmp")
	if err != nil {
		return fmt.Errorf("cache: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("cache: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("cache: close temp: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path(key)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("cache: rename: %w", err)
	}
	s.logger.Debug("cache stored", "key", key, "items", len(items))
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *FileStore) Delete(key string) error {
	err := os.Remove(s.Path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cache: delete %s: %w", key, err)
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }
