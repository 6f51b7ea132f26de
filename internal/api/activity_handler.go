package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"retail-intel/internal/monitoring"
)

// ActivityHandler exposes the operator activity trail.
type ActivityHandler struct {
	activity *monitoring.ActivityLog
	logger   *zap.Logger
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activity *monitoring.ActivityLog, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		activity: activity,
		logger:   logger,
	}
}

func parseActivityQuery(c *gin.Context) *monitoring.ActivityQuery {
	query := &monitoring.ActivityQuery{
		Status: c.Query("status"),
		Limit:  50,
	}

	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			query.Limit = parsed
		}
	}

	if since := c.Query("since"); since != "" {
		if parsed, err := time.Parse(time.RFC3339, since); err == nil {
			query.Since = &parsed
		}
	}

	if eventType := c.Query("type"); eventType != "" {
		query.EventTypes = []monitoring.ActivityEventType{monitoring.ActivityEventType(eventType)}
	}

	return query
}

// GetActivity lists recorded activity events, newest first
// GET /api/v1/activity?type=&status=&since=&limit=
func (h *ActivityHandler) GetActivity(c *gin.Context) {
	h.activity.Flush()

	query := parseActivityQuery(c)
	events := h.activity.Query(query)

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"meta": gin.H{
			"count": len(events),
		},
	})
}

// GetActivitySummary aggregates the recorded events
// GET /api/v1/activity/summary
func (h *ActivityHandler) GetActivitySummary(c *gin.Context) {
	h.activity.Flush()

	query := parseActivityQuery(c)
	query.Limit = 0

	c.JSON(http.StatusOK, gin.H{
		"summary": h.activity.Summary(query),
	})
}
