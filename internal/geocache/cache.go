// Package geocache persists geocoding results between runs.
//
// The cache file is a JSON object keyed by location key. A successful lookup
// is stored as {"lon": x, "lat": y}; a lookup that failed is stored as
// {"failed": true} so it is not retried by later runs. A key missing from the
// file has never been attempted.
//
// Before the first write of a process, the file contents read by Open are
// written to "<path>.bak" (or an empty cache when there was no file).
// Every write goes to a temporary file that is fsynced and renamed into place,
// so a crash loses at most the lookups of the current run.
package geocache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/couchcryptid/sightings-etl/internal/domain"
)

// BackupSuffix is appended to the cache path to name the backup copy.
const BackupSuffix = ".bak"

// Entry is a cached geocoding outcome: coordinates, or a failure marker.
type Entry struct {
	Coordinates domain.Coordinates
	Failed      bool
}

// Success returns an entry holding coordinates.
func Success(c domain.Coordinates) Entry {
	return Entry{Coordinates: c}
}

// Failure returns the marker stored for a lookup that produced nothing usable.
func Failure() Entry {
	return Entry{Failed: true}
}

type fileEntry struct {
	Lon    *float64 `json:"lon,omitempty"`
	Lat    *float64 `json:"lat,omitempty"`
	Failed bool     `json:"failed,omitempty"`
}

// MarshalJSON writes {"lon","lat"} or {"failed":true}.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Failed {
		return json.Marshal(fileEntry{Failed: true})
	}
	lon, lat := e.Coordinates.Lon, e.Coordinates.Lat
	return json.Marshal(fileEntry{Lon: &lon, Lat: &lat})
}

// UnmarshalJSON reads an entry. Entries missing either coordinate, or holding
// non-finite values, load as failures.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var fe fileEntry
	if err := json.Unmarshal(data, &fe); err != nil {
		return err
	}
	if fe.Failed || fe.Lon == nil || fe.Lat == nil || !finite(*fe.Lon) || !finite(*fe.Lat) {
		*e = Failure()
		return nil
	}
	*e = Success(domain.Coordinates{Lon: *fe.Lon, Lat: *fe.Lat})
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Cache is the in-memory view of a cache file. It is safe for concurrent use.
type Cache struct {
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	entries  map[string]Entry
	backedUp bool

	// onDisk holds the file contents read by Open; nil when there was no file.
	onDisk []byte
}

// Open loads the cache file at path. A missing file yields an empty cache; a
// file that cannot be decoded is an error.
func Open(path string, logger *slog.Logger) (*Cache, error) {
	c := &Cache{
		path:    path,
		logger:  logger,
		entries: make(map[string]Entry),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("no geocode cache found, starting empty", "path", path)
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("read geocode cache: %w", err)
	}

	c.onDisk = data
	if len(data) > 0 {
		if err := json.Unmarshal(data, &c.entries); err != nil {
			return nil, fmt.Errorf("decode geocode cache %s: %w", path, err)
		}
		if c.entries == nil {
			c.entries = make(map[string]Entry)
		}
	}

	logger.Info("loaded geocode cache",
		"path", path,
		"entries", len(c.entries),
		"resolved", c.resolved(),
	)
	return c, nil
}

// Path returns the cache file location.
func (c *Cache) Path() string { return c.path }

// BackupPath returns where the pre-run copy of the cache file is written.
func (c *Cache) BackupPath() string { return c.path + BackupSuffix }

// Lookup returns the stored entry for key. ok is false when the key has never
// been attempted.
func (c *Cache) Lookup(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

// Store records the outcome for key, replacing any previous entry.
func (c *Cache) Store(key string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
}

// Len returns the number of keys held, successes and failures alike.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Resolved returns the number of keys holding coordinates.
func (c *Cache) Resolved() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolved()
}

func (c *Cache) resolved() int {
	n := 0
	for _, e := range c.entries {
		if !e.Failed {
			n++
		}
	}
	return n
}

// Flush writes the cache to disk. The first call of the process backs up the
// existing file before overwriting it.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.backedUp {
		if err := c.backup(); err != nil {
			return err
		}
		c.backedUp = true
	}

	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode geocode cache: %w", err)
	}
	if err := writeFileAtomic(c.path, data); err != nil {
		return fmt.Errorf("write geocode cache: %w", err)
	}

	c.logger.Debug("flushed geocode cache", "path", c.path, "entries", len(c.entries))
	return nil
}

// Close flushes the cache.
func (c *Cache) Close() error {
	return c.Flush()
}

// backup writes the file contents seen by Open, or an empty cache when there
// was no file, to the backup path.
func (c *Cache) backup() error {
	data := c.onDisk
	if data == nil {
		data = []byte("{}\n")
	}
	if err := writeFileAtomic(c.BackupPath(), data); err != nil {
		return fmt.Errorf("write geocode cache backup: %w", err)
	}
	c.logger.Info("backed up geocode cache", "backup", c.BackupPath())
	return nil
}

// writeFileAtomic replaces path with data via a synced temporary file in the
// same directory.
func writeFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Use opens the cache at path, runs fn, and flushes the cache on every exit
// path, including a panic in fn. A flush error is joined into the result.
func Use(path string, logger *slog.Logger, fn func(*Cache) error) (err error) {
	c, err := Open(path, logger)
	if err != nil {
		return err
	}

	defer func() {
		flushErr := c.Flush()
		if r := recover(); r != nil {
			if flushErr != nil {
				logger.Error("geocode cache flush failed during panic", "path", path, "error", flushErr)
			}
			panic(r)
		}
		if flushErr != nil {
			err = errors.Join(err, fmt.Errorf("flush geocode cache: %w", flushErr))
		}
		logger.Info("geocode cache saved", "path", path, "entries", c.Len(), "resolved", c.Resolved())
	}()

	return fn(c)
}
