package hybrid

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"retail-intel/internal/cache"
	"retail-intel/internal/config"
)

const snapshotCacheKey = "hybrid:snapshot"

// Mode selects which source the hybrid reads from.
type Mode string

const (
	ModeAuto   Mode = "auto"   // remote first, static on failure
	ModeRemote Mode = "remote" // remote only, failures surface
	ModeStatic Mode = "static" // static only
)

// HybridSource serves snapshots remote-first with a static fallback. The
// current snapshot is cached so repeated dashboard reads within the TTL
// hit the cache, not the database.
type HybridSource struct {
	logger *zap.Logger
	remote Source
	static Source
	cache  *cache.TieredCache
	ttl    time.Duration

	mu   sync.RWMutex
	mode Mode
}

// NewHybridSource creates the hybrid over the given remote and static
// sources. A nil cache disables snapshot caching.
func NewHybridSource(cfg *config.EngineConfig, remote, static Source, snapshotCache *cache.TieredCache, logger *zap.Logger) *HybridSource {
	ttl := 2 * time.Minute
	if cfg != nil && cfg.SnapshotCacheTTL > 0 {
		ttl = cfg.SnapshotCacheTTL
	}
	return &HybridSource{
		logger: logger,
		remote: remote,
		static: static,
		cache:  snapshotCache,
		ttl:    ttl,
		mode:   ModeAuto,
	}
}

func (h *HybridSource) Name() string { return "hybrid" }

// Mode reports the current source selection.
func (h *HybridSource) Mode() Mode {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.mode
}

// SetMode overrides the source selection and drops the cached snapshot so
// the next read reflects the new mode.
func (h *HybridSource) SetMode(ctx context.Context, mode Mode) {
	h.mu.Lock()
	h.mode = mode
	h.mu.Unlock()

	if h.cache != nil {
		if err := h.cache.Delete(ctx, snapshotCacheKey); err != nil {
			h.logger.Warn("failed to drop cached snapshot on mode change", zap.Error(err))
		}
	}
	h.logger.Info("data source mode changed", zap.String("mode", string(mode)))
}

// UseStatic pins reads to the built-in catalog.
func (h *HybridSource) UseStatic(ctx context.Context) { h.SetMode(ctx, ModeStatic) }

// UseRemote pins reads to the database.
func (h *HybridSource) UseRemote(ctx context.Context) { h.SetMode(ctx, ModeRemote) }

// UseAuto restores remote-first with static fallback.
func (h *HybridSource) UseAuto(ctx context.Context) { h.SetMode(ctx, ModeAuto) }

// Fetch returns the current snapshot, served from cache within the TTL.
func (h *HybridSource) Fetch(ctx context.Context) (*Snapshot, error) {
	if h.cache == nil {
		return h.fetchDirect(ctx)
	}

	var snap Snapshot
	err := h.cache.GetOrSet(ctx, snapshotCacheKey, h.ttl, func(ctx context.Context) (interface{}, error) {
		return h.fetchDirect(ctx)
	}, &snap)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Refresh drops the cached snapshot and fetches a fresh one.
func (h *HybridSource) Refresh(ctx context.Context) (*Snapshot, error) {
	if h.cache != nil {
		if err := h.cache.Delete(ctx, snapshotCacheKey); err != nil {
			h.logger.Warn("failed to drop cached snapshot", zap.Error(err))
		}
	}
	return h.Fetch(ctx)
}

func (h *HybridSource) fetchDirect(ctx context.Context) (*Snapshot, error) {
	switch h.Mode() {
	case ModeStatic:
		return h.static.Fetch(ctx)
	case ModeRemote:
		return h.remote.Fetch(ctx)
	}

	snap, err := h.remote.Fetch(ctx)
	if err == nil {
		return snap, nil
	}

	h.logger.Warn("remote source failed, falling back to static catalog",
		zap.Error(err))

	fallback, ferr := h.static.Fetch(ctx)
	if ferr != nil {
		return nil, ferr
	}
	fallback.Fallback = true
	fallback.Err = err.Error()
	return fallback, nil
}
