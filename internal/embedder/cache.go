package embedder

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Fingerprint returns the cache key for a text: the hex SHA-256 of the exact
// input bytes, stable across runs.
func Fingerprint(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// cacheEntry is the persisted form of one cached vector. Provider and model
// are recorded so an entry is never reused across a provider swap.
type cacheEntry struct {
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	Vector    []float32 `json:"vector"`
}

// Cache is a content-addressed embedding cache: one file per fingerprint
// under a directory, fronted by an in-memory LRU. Concurrent writers racing
// on the same key write identical content, so last-write-wins is harmless.
type Cache struct {
	dir      string
	provider string
	model    string
	mem      *lru.Cache[string, []float32]
	log      *slog.Logger
}

// NewCache creates a cache rooted at dir, scoped to one provider/model pair.
// memSize bounds the in-memory front; values at or below zero use a default.
func NewCache(dir, provider, model string, memSize int) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}

	if memSize <= 0 {
		memSize = 10000
	}
	mem, err := lru.New[string, []float32](memSize)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}

	return &Cache{
		dir:      dir,
		provider: provider,
		model:    model,
		mem:      mem,
		log:      slog.Default().With("component", "embedder.cache"),
	}, nil
}

// Get returns the cached vector for text, if present and produced by the
// same provider, model and dimensionality.
func (c *Cache) Get(text string, dimension int) ([]float32, bool) {
	key := Fingerprint(text)

	if v, ok := c.mem.Get(key); ok {
		if len(v) == dimension {
			return cloneVector(v), true
		}
		return nil, false
	}

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.log.Warn("discarding unreadable cache entry", "key", key, "error", err)
		return nil, false
	}
	if entry.Provider != c.provider || entry.Model != c.model || entry.Dimension != dimension {
		return nil, false
	}

	c.mem.Add(key, entry.Vector)
	return cloneVector(entry.Vector), true
}

// Put stores a vector for text. Write failures are logged, not fatal: the
// cache is an optimization, never a correctness dependency.
func (c *Cache) Put(text string, vector []float32) {
	key := Fingerprint(text)
	c.mem.Add(key, cloneVector(vector))

	entry := cacheEntry{
		Provider:  c.provider,
		Model:     c.model,
		Dimension: len(vector),
		Vector:    vector,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		c.log.Warn("cache entry marshal failed", "key", key, "error", err)
		return
	}
	if err := os.WriteFile(c.path(key), data, 0644); err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
	}
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
