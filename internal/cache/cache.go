package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a namespaced cache key from a kind (llm, search, ...) and the parts identifying the entry
func Key(kind string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "claimcheck:v1:" + kind + ":" + hex.EncodeToString(hash[:])
}

// GetJSON decodes a cached JSON value into out. A corrupt entry is treated as a miss.
func GetJSON(c Cache, key string, out any) bool {
	if c == nil {
		return false
	}
	data, found := c.Get(key)
	if !found {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

// SetJSON stores value as JSON
func SetJSON(c Cache, key string, value any, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return eris.Wrap(err, "cache: marshal value")
	}
	return c.Set(key, data, ttl)
}
