package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DiskCache implements persistent file-per-key caching
type DiskCache struct {
	dir string
	ttl time.Duration
}

// NewDiskCache creates a new disk cache rooted at dir
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{
		dir: dir,
		ttl: ttl,
	}
}

type diskEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Get retrieves a value; expired or unreadable entries are removed and reported as misses
func (c *DiskCache) Get(key string) ([]byte, bool) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry diskEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		zap.L().Debug("cache: dropping corrupt disk entry", zap.String("path", path), zap.Error(err))
		_ = os.Remove(path)
		return nil, false
	}

	if time.Now().After(entry.ExpiresAt) {
		_ = os.Remove(path)
		return nil, false
	}

	return entry.Data, true
}

// Set stores a value on disk
func (c *DiskCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}

	data, err := json.Marshal(diskEntry{
		Data:      value,
		ExpiresAt: time.Now().Add(ttl),
	})
	if err != nil {
		return eris.Wrap(err, "cache: marshal disk entry")
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return eris.Wrap(err, "cache: create dir")
	}

	// Write to a temp file first so concurrent readers never see a partial entry
	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return eris.Wrap(err, "cache: create temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return eris.Wrap(err, "cache: write temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return eris.Wrap(err, "cache: close temp file")
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return eris.Wrap(err, "cache: rename entry")
	}

	return nil
}

// Delete removes a value; a missing entry is not an error
func (c *DiskCache) Delete(key string) error {
	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return eris.Wrap(err, "cache: delete entry")
	}
	return nil
}

// Clear removes all cached files
func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.dir)
}

func (c *DiskCache) path(key string) string {
	return filepath.Join(c.dir, sanitizeKey(key)+".cache")
}

// sanitizeKey replaces the namespace separators, which are not portable in file names
func sanitizeKey(key string) string {
	out := []byte(key)
	for i, b := range out {
		if b == ':' || b == '/' || b == '\\' {
			out[i] = '_'
		}
	}
	return string(out)
}
