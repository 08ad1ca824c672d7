// Package snapshot keeps the raw payloads fetched from upstreams so they can
// be re-parsed later without another network round trip.
package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/clock"
)

const ext = ".html"

// Store is a directory of <key>.html files whose mtime is the save time.
type Store struct {
	dir    string
	clock  clock.Clock
	logger *slog.Logger
}

// New returns a Store rooted at dir, creating it if needed.
func New(dir string, clk clock.Clock, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: create dir: %w", err)
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, clock: clk, logger: logger}, nil
}

// DetailKey is the snapshot key of one item's detail page.
func DetailKey(source, id string) string {
	return source + "_detail_" + Sanitize(id)
}

// ListingKey is the snapshot key of a source's listing page.
func ListingKey(source string) string { return source + "_listing" }

// Sanitize maps a free-form identifier onto characters that are safe in a
// file name and carry no glob meaning.
func Sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), ".")
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+ext)
}

// Save atomically replaces the snapshot for key and stamps it with the store clock.
func (s *Store) Save(key string, raw []byte) error {
	if key == "" || strings.ContainsAny(key, `/\*?[`) {
		return fmt.Errorf("snapshot: invalid key %q", key)
	}
	tmp, err := os.CreateTemp(s.dir, ".snap-*.tmp")
	if err != nil {
		return fmt.Errorf("snapshot: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: close temp: %w", err)
	}
	now := s.clock.Now()
	if err := os.Chtimes(tmpPath, now, now); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: stamp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path(key)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: rename: %w", err)
	}
	s.logger.Debug("snapshot saved", "key", key, "bytes", len(raw))
	return nil
}

// IsFresh reports whether key exists and was saved no more than maxAge ago.
func (s *Store) IsFresh(key string, maxAge time.Duration) bool {
	info, err := os.Stat(s.path(key))
	if err != nil {
		return false
	}
	return s.clock.Now().Sub(info.ModTime()) <= maxAge
}

// FindFresh returns the newest snapshot matching pattern that is at most maxAge old.
func (s *Store) FindFresh(pattern string, maxAge time.Duration) ([]byte, bool) {
	return s.find(pattern, maxAge)
}

// FindLatest returns the newest snapshot matching pattern, whatever its age.
func (s *Store) FindLatest(pattern string) ([]byte, bool) {
	return s.find(pattern, -1)
}

// find globs over keys. A negative maxAge disables the age check.
func (s *Store) find(pattern string, maxAge time.Duration) ([]byte, bool) {
	matches, err := filepath.Glob(filepath.Join(s.dir, pattern+ext))
	if err != nil {
		s.logger.Warn("snapshot pattern invalid", "pattern", pattern, "error", err)
		return nil, false
	}

	now := s.clock.Now()
	var (
		best    string
		bestMod time.Time
	)
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if maxAge >= 0 && now.Sub(info.ModTime()) > maxAge {
			continue
		}
		if best == "" || info.ModTime().After(bestMod) {
			best, bestMod = m, info.ModTime()
		}
	}
	if best == "" {
		return nil, false
	}

	raw, err := os.ReadFile(best)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("snapshot read failed", "path", best, "error", err)
		}
		return nil, false
	}
	return raw, true
}
