package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"retail-intel/internal/cache"
	"retail-intel/internal/hybrid"
	"retail-intel/internal/offline"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	cache  *cache.TieredCache
	queue  *offline.Queue
	source *hybrid.HybridSource
	logger *zap.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(
	tiered *cache.TieredCache,
	queue *offline.Queue,
	source *hybrid.HybridSource,
	logger *zap.Logger,
) *HealthHandler {
	return &HealthHandler{
		cache:  tiered,
		queue:  queue,
		source: source,
		logger: logger,
	}
}

// Health returns basic health status
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "retail-intel",
		"version":   "1.0.0",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// Ready checks if the service is ready to handle requests. The remote
// backend being down does not make the service unready, the offline queue
// covers that; only the cache layer is required.
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	start := time.Now()

	checks := make(map[string]interface{})
	allHealthy := true

	cacheCtx, cacheCancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cacheCancel()

	cacheStart := time.Now()
	if err := h.cache.Ping(cacheCtx); err != nil {
		checks["cache"] = map[string]interface{}{
			"status":   "unhealthy",
			"error":    err.Error(),
			"duration": time.Since(cacheStart).Milliseconds(),
		}
		allHealthy = false
		h.logger.Warn("cache health check failed", zap.Error(err))
	} else {
		checks["cache"] = map[string]interface{}{
			"status":   "healthy",
			"duration": time.Since(cacheStart).Milliseconds(),
		}
	}

	queueStatus := h.queue.Status()
	checks["offline_queue"] = map[string]interface{}{
		"status":        "healthy",
		"online":        queueStatus.Online,
		"pending_count": queueStatus.PendingCount,
		"failed_count":  queueStatus.FailedCount,
	}

	checks["data_source"] = map[string]interface{}{
		"status": "healthy",
		"mode":   h.source.Mode(),
	}

	status := http.StatusOK
	overallStatus := "ready"
	if !allHealthy {
		status = http.StatusServiceUnavailable
		overallStatus = "not_ready"
	}

	response := gin.H{
		"status":         overallStatus,
		"service":        "retail-intel",
		"checks":         checks,
		"total_duration": time.Since(start).Milliseconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	}

	c.JSON(status, response)
}

// Live checks if the service is alive (minimal check)
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   "retail-intel",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
