package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"retail-intel/internal/monitoring"
	"retail-intel/internal/offline"
)

// OfflineHandler exposes the offline queue: status, manual sync, failed
// action management and the connectivity toggle.
type OfflineHandler struct {
	queue    *offline.Queue
	monitor  *offline.ManualMonitor
	activity *monitoring.ActivityLog
	logger   *zap.Logger
}

// NewOfflineHandler creates a new offline handler
func NewOfflineHandler(queue *offline.Queue, monitor *offline.ManualMonitor, activity *monitoring.ActivityLog, logger *zap.Logger) *OfflineHandler {
	return &OfflineHandler{
		queue:    queue,
		monitor:  monitor,
		activity: activity,
		logger:   logger,
	}
}

// GetStatus reports the queue state
// GET /api/v1/offline/status
func (h *OfflineHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": h.queue.Status()})
}

// GetPending lists actions waiting for sync
// GET /api/v1/offline/pending
func (h *OfflineHandler) GetPending(c *gin.Context) {
	pending := h.queue.Pending()
	c.JSON(http.StatusOK, gin.H{
		"actions": pending,
		"meta": gin.H{
			"count": len(pending),
		},
	})
}

// ForceSync runs a sync pass immediately
// POST /api/v1/offline/sync
func (h *OfflineHandler) ForceSync(c *gin.Context) {
	h.queue.ForceSync(c.Request.Context())

	status := h.queue.Status()
	h.logger.Info("manual sync completed",
		zap.Int("pending", status.PendingCount),
		zap.Int("failed", status.FailedCount))

	h.activity.Record(monitoring.EventQueueSync, "Manual sync completed", map[string]interface{}{
		"pending": status.PendingCount,
		"failed":  status.FailedCount,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Sync completed",
		"status":  status,
	})
}

// GetFailed lists actions that exhausted their retry budget
// GET /api/v1/offline/failed
func (h *OfflineHandler) GetFailed(c *gin.Context) {
	failed := h.queue.FailedActions()
	c.JSON(http.StatusOK, gin.H{
		"actions": failed,
		"meta": gin.H{
			"count": len(failed),
		},
	})
}

// RetryFailed moves failed actions back to the pending list with a fresh
// retry budget
// POST /api/v1/offline/failed/retry
func (h *OfflineHandler) RetryFailed(c *gin.Context) {
	count := h.queue.RetryFailed(c.Request.Context())

	h.logger.Info("failed actions requeued", zap.Int("count", count))
	h.activity.Record(monitoring.EventFailedActionsRetry, "Failed actions requeued", map[string]interface{}{
		"count": count,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":       "Failed actions requeued",
		"retried_count": count,
		"status":        h.queue.Status(),
	})
}

// ClearFailed drops the failed action list
// DELETE /api/v1/offline/failed
func (h *OfflineHandler) ClearFailed(c *gin.Context) {
	count := h.queue.ClearFailed(c.Request.Context())

	h.logger.Info("failed actions cleared", zap.Int("count", count))
	h.activity.Record(monitoring.EventFailedActionsClear, "Failed actions cleared", map[string]interface{}{
		"count": count,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":       "Failed actions cleared",
		"cleared_count": count,
	})
}

// SetConnectivity toggles the connectivity state. Going back online
// triggers a sync pass.
// PUT /api/v1/offline/connectivity
func (h *OfflineHandler) SetConnectivity(c *gin.Context) {
	var req struct {
		Online *bool `json:"online" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid connectivity request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	h.monitor.SetOnline(*req.Online)
	h.logger.Info("connectivity changed", zap.Bool("online", *req.Online))

	h.activity.Record(monitoring.EventConnectivityChanged, "Connectivity state changed", map[string]interface{}{
		"online": *req.Online,
	})

	c.JSON(http.StatusOK, gin.H{
		"online": *req.Online,
		"status": h.queue.Status(),
	})
}
