package ner

import (
	"fmt"
	"sync"

	bolt "go.etcd.io/bbolt"

	"ner-anonymizer/internal/logger"
)

// DetectionCache stores serialized detection results keyed by a document
// content hash, so re-running a model over unchanged text is free. Entries in
// the bbolt-backed implementation survive process restarts.
//
// All implementations must be safe for concurrent use.
type DetectionCache interface {
	// Get returns the cached detection payload for key, if present.
	Get(key string) (val []byte, ok bool)

	// Set stores key → val. Overwrites any existing entry silently.
	Set(key string, val []byte)

	// Close releases any resources held by the cache (e.g. file handles).
	Close() error
}

// NewCache returns a bbolt-backed cache when path is non-empty, otherwise an
// in-memory cache bounded at maxMemoryEntries.
func NewCache(path string, log *logger.Logger) (DetectionCache, error) {
	if path == "" {
		return newMemoryCache(), nil
	}
	return newBboltCache(path, log)
}

// --- memoryCache ---------------------------------------------------------

const maxMemoryEntries = 10_000

// memoryCache is a bounded in-memory DetectionCache. When the entry limit is
// exceeded the oldest quarter of entries is evicted, FIFO by insertion order.
type memoryCache struct {
	mu    sync.RWMutex
	store map[string][]byte
	order []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{store: make(map[string][]byte)}
}

func (c *memoryCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	v, ok := c.store[key]
	c.mu.RUnlock()
	return v, ok
}

func (c *memoryCache) Set(key string, val []byte) {
	c.mu.Lock()
	if _, exists := c.store[key]; !exists {
		c.order = append(c.order, key)
	}
	c.store[key] = val
	if len(c.store) > maxMemoryEntries {
		evict := maxMemoryEntries / 4
		for _, k := range c.order[:evict] {
			delete(c.store, k)
		}
		// Compact order: keep only keys still present in the store
		// (handles duplicate keys caused by re-insertion after eviction).
		alive := c.order[:0]
		for _, k := range c.order[evict:] {
			if _, ok := c.store[k]; ok {
				alive = append(alive, k)
			}
		}
		c.order = alive
	}
	c.mu.Unlock()
}

func (c *memoryCache) Close() error { return nil }

// --- bboltCache ----------------------------------------------------------

const bboltBucket = "ner_detections"

type bboltCache struct {
	db  *bolt.DB
	log *logger.Logger
}

// newBboltCache opens (or creates) the bbolt database at path and ensures
// the bucket exists.
func newBboltCache(path string, log *logger.Logger) (DetectionCache, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open detection cache %q: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bboltBucket))
		return err
	}); err != nil {
		db.Close() //nolint:errcheck // best-effort close on init failure
		return nil, fmt.Errorf("create cache bucket: %w", err)
	}

	log.Infof("cache", "detection cache opened at %s", path)
	return &bboltCache{db: db, log: log}, nil
}

func (c *bboltCache) Get(key string) ([]byte, bool) {
	var val []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bboltBucket))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			val = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		c.log.Errorf("cache", "bbolt Get error: %v", err)
		return nil, false
	}
	return val, val != nil
}

func (c *bboltCache) Set(key string, val []byte) {
	if err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bboltBucket))
		if b == nil {
			return fmt.Errorf("bucket %q not found", bboltBucket)
		}
		return b.Put([]byte(key), val)
	}); err != nil {
		c.log.Errorf("cache", "bbolt Set error: %v", err)
	}
}

func (c *bboltCache) Close() error {
	return c.db.Close()
}
