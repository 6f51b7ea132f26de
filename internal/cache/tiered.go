package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"retail-intel/internal/config"
)

// entry is the stored form of a cached value. The same envelope is kept in
// both tiers so validity is judged by the recorded timestamp and TTL, not
// by which tier served the read.
type entry struct {
	Payload   json.RawMessage   `json:"payload"`
	Timestamp time.Time         `json:"timestamp"`
	TTL       time.Duration     `json:"ttl"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (e *entry) valid(now time.Time) bool {
	return now.Sub(e.Timestamp) < e.TTL
}

// OperationRecorder receives the outcome of cache operations. The metrics
// collector satisfies it.
type OperationRecorder interface {
	RecordCacheOperation(operation, result string)
}

// flight tracks an in-progress GetOrSet fetch so concurrent callers for the
// same key share one fetcher invocation.
type flight struct {
	wg      sync.WaitGroup
	payload json.RawMessage
	err     error
}

// TieredCache is a two-tier cache: a bounded in-memory map in front of a
// PersistentStore. Reads check memory first and promote persistent hits.
// Writes go to both tiers. Persistent-tier failures degrade to memory-only
// operation instead of failing the call.
type TieredCache struct {
	logger          *zap.Logger
	store           PersistentStore
	defaultTTL      time.Duration
	maxSize         int
	cleanupInterval time.Duration
	now             func() time.Time
	recorder        OperationRecorder

	mu      sync.RWMutex
	entries map[string]*entry

	flightMu sync.Mutex
	flights  map[string]*flight

	stop     chan struct{}
	stopOnce sync.Once
}

// NewTieredCache creates a cache over the given persistent store. A nil
// store leaves the cache memory-only.
func NewTieredCache(cfg *config.CacheConfig, store PersistentStore, logger *zap.Logger) *TieredCache {
	if store == nil {
		store = NoopStore{}
	}
	c := &TieredCache{
		logger:          logger,
		store:           store,
		defaultTTL:      5 * time.Minute,
		maxSize:         1000,
		cleanupInterval: time.Minute,
		now:             time.Now,
		entries:         make(map[string]*entry),
		flights:         make(map[string]*flight),
		stop:            make(chan struct{}),
	}
	if cfg != nil {
		if cfg.DefaultTTL > 0 {
			c.defaultTTL = cfg.DefaultTTL
		}
		if cfg.MaxSize > 0 {
			c.maxSize = cfg.MaxSize
		}
		if cfg.CleanupInterval > 0 {
			c.cleanupInterval = cfg.CleanupInterval
		}
	}
	return c
}

// WithClock overrides the cache's clock, mainly for tests.
func (c *TieredCache) WithClock(now func() time.Time) *TieredCache {
	c.now = now
	return c
}

// WithRecorder attaches an operation recorder. Set it before first use.
func (c *TieredCache) WithRecorder(r OperationRecorder) *TieredCache {
	c.recorder = r
	return c
}

func (c *TieredCache) record(operation, result string) {
	if c.recorder != nil {
		c.recorder.RecordCacheOperation(operation, result)
	}
}

// Start launches the background cleanup loop. Stop it with Close.
func (c *TieredCache) Start() {
	go func() {
		ticker := time.NewTicker(c.cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				removed := c.Cleanup()
				if removed > 0 {
					c.logger.Debug("cache cleanup completed", zap.Int("removed", removed))
				}
			case <-c.stop:
				return
			}
		}
	}()
}

// Close stops the cleanup loop and closes the persistent store.
func (c *TieredCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return c.store.Close()
}

// Set stores a value in both tiers. A non-positive TTL uses the default.
func (c *TieredCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return c.setRaw(ctx, key, payload, ttl)
}

func (c *TieredCache) setRaw(ctx context.Context, key string, payload json.RawMessage, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	e := &entry{
		Payload:   payload,
		Timestamp: c.now(),
		TTL:       ttl,
	}

	c.mu.Lock()
	c.entries[key] = e
	overflow := len(c.entries) > c.maxSize
	c.mu.Unlock()

	if overflow {
		c.Cleanup()
	}

	stored, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := c.store.Set(ctx, key, stored, ttl); err != nil {
		c.logger.Warn("persistent cache write failed, continuing memory-only",
			zap.Error(err),
			zap.String("key", key))
		c.record("set", "error")
		return nil
	}
	c.record("set", "success")
	return nil
}

// Get reads a value into dest. It returns false when the key is absent or
// expired in both tiers. A persistent hit is promoted into memory.
func (c *TieredCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		if e.valid(now) {
			c.record("get", "hit")
			return true, json.Unmarshal(e.Payload, dest)
		}
		// Expired entries are dropped on read.
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
	}

	data, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("persistent cache read failed",
			zap.Error(err),
			zap.String("key", key))
		c.record("get", "error")
		return false, nil
	}
	if data == nil {
		c.record("get", "miss")
		return false, nil
	}

	var stored entry
	if err := json.Unmarshal(data, &stored); err != nil {
		c.logger.Warn("discarding malformed persistent cache entry",
			zap.Error(err),
			zap.String("key", key))
		_ = c.store.Delete(ctx, key)
		c.record("get", "error")
		return false, nil
	}
	if !stored.valid(now) {
		_ = c.store.Delete(ctx, key)
		c.record("get", "miss")
		return false, nil
	}

	c.mu.Lock()
	c.entries[key] = &stored
	c.mu.Unlock()

	c.record("get", "hit")
	return true, json.Unmarshal(stored.Payload, dest)
}

// Has reports whether a valid entry exists for the key in either tier.
func (c *TieredCache) Has(ctx context.Context, key string) bool {
	var raw json.RawMessage
	ok, err := c.Get(ctx, key, &raw)
	return err == nil && ok
}

// Delete removes a key from both tiers.
func (c *TieredCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete from persistent tier: %w", err)
	}
	return nil
}

// Clear drops every entry from both tiers.
func (c *TieredCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()

	if err := c.store.DeletePrefix(ctx, ""); err != nil {
		return fmt.Errorf("failed to clear persistent tier: %w", err)
	}
	return nil
}

// GetOrSet reads the key into dest, invoking fetch on a miss and caching the
// fetched value. Concurrent callers for the same key share one fetch.
func (c *TieredCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, fetch func(ctx context.Context) (interface{}, error), dest interface{}) error {
	ok, err := c.Get(ctx, key, dest)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	c.flightMu.Lock()
	if f, inFlight := c.flights[key]; inFlight {
		c.flightMu.Unlock()
		f.wg.Wait()
		if f.err != nil {
			return f.err
		}
		return json.Unmarshal(f.payload, dest)
	}
	f := &flight{}
	f.wg.Add(1)
	c.flights[key] = f
	c.flightMu.Unlock()

	defer func() {
		c.flightMu.Lock()
		delete(c.flights, key)
		c.flightMu.Unlock()
		f.wg.Done()
	}()

	value, err := fetch(ctx)
	if err != nil {
		f.err = err
		return err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		f.err = fmt.Errorf("failed to marshal fetched value: %w", err)
		return f.err
	}
	f.payload = payload

	if err := c.setRaw(ctx, key, payload, ttl); err != nil {
		return err
	}
	return json.Unmarshal(payload, dest)
}

// SetMany stores several values under one TTL.
func (c *TieredCache) SetMany(ctx context.Context, values map[string]interface{}, ttl time.Duration) error {
	for key, value := range values {
		if err := c.Set(ctx, key, value, ttl); err != nil {
			return fmt.Errorf("failed to set %q: %w", key, err)
		}
	}
	return nil
}

// GetMany reads the raw payloads for the given keys. Missing or expired
// keys are absent from the result.
func (c *TieredCache) GetMany(ctx context.Context, keys []string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		var raw json.RawMessage
		ok, err := c.Get(ctx, key, &raw)
		if err != nil || !ok {
			continue
		}
		out[key] = raw
	}
	return out
}

// Len reports the number of entries in the memory tier, including any not
// yet swept by Cleanup.
func (c *TieredCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cleanup drops expired memory entries, then evicts the oldest entries
// until the memory tier fits the size bound. Returns the number removed.
func (c *TieredCache) Cleanup() int {
	now := c.now()
	removed := 0

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if !e.valid(now) {
			delete(c.entries, key)
			removed++
		}
	}

	if len(c.entries) > c.maxSize {
		type aged struct {
			key string
			at  time.Time
		}
		ordered := make([]aged, 0, len(c.entries))
		for key, e := range c.entries {
			ordered = append(ordered, aged{key: key, at: e.Timestamp})
		}
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].at.Before(ordered[j].at) })

		for _, a := range ordered[:len(c.entries)-c.maxSize] {
			delete(c.entries, a.key)
			removed++
		}
	}

	return removed
}

// Ping tests the persistent tier connection.
func (c *TieredCache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// NewPersistentStore creates the configured persistent tier: Redis when
// enabled, an in-process store otherwise.
func NewPersistentStore(cfg *config.Config, logger *zap.Logger) (PersistentStore, error) {
	if !cfg.Redis.Enabled {
		logger.Info("redis disabled, using in-process persistent store")
		return NewMemoryStore(), nil
	}
	return NewRedisStore(&cfg.Redis, cfg.Cache.KeyPrefix, logger)
}
