package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"retail-intel/internal/hybrid"
	"retail-intel/internal/models"
	"retail-intel/internal/monitoring"
	"retail-intel/internal/services"
)

// DashboardHandler serves the computed dashboard: metrics, dimensions,
// insights, the time series, and the recommendation feed.
type DashboardHandler struct {
	service  *services.IntelService
	activity *monitoring.ActivityLog
	logger   *zap.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service *services.IntelService, activity *monitoring.ActivityLog, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		service:  service,
		activity: activity,
		logger:   logger,
	}
}

// GetDashboard returns the full dashboard payload
// GET /api/v1/dashboard
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	start := time.Now()

	data, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to compute dashboard", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute dashboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dashboard": data,
		"meta": gin.H{
			"processing_time_ms": time.Since(start).Milliseconds(),
			"source":             data.Source,
			"fallback":           data.Fallback,
		},
	})
}

// RefreshDashboard forces a snapshot fetch and recompute
// POST /api/v1/dashboard/refresh
func (h *DashboardHandler) RefreshDashboard(c *gin.Context) {
	start := time.Now()

	data, err := h.service.Refresh(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to refresh dashboard", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh dashboard"})
		return
	}

	h.logger.Info("dashboard refreshed",
		zap.String("source", data.Source),
		zap.Duration("duration", time.Since(start)))

	h.activity.Record(monitoring.EventDashboardRefresh, "Dashboard recomputed on demand", map[string]interface{}{
		"source":   data.Source,
		"fallback": data.Fallback,
	})
	if data.Fallback {
		h.activity.RecordStatus(monitoring.EventSourceFallback, "failure", "Remote source unavailable, served static catalog", map[string]interface{}{
			"error": data.SourceErr,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"dashboard": data,
		"meta": gin.H{
			"processing_time_ms": time.Since(start).Milliseconds(),
			"operation":          "refresh",
		},
	})
}

// GetRecommendations returns the current recommendation feed
// GET /api/v1/recommendations?priority=critical&type=restock
func (h *DashboardHandler) GetRecommendations(c *gin.Context) {
	priority := models.Priority(c.Query("priority"))
	recType := models.RecommendationType(c.Query("type"))

	start := time.Now()
	recs, err := h.service.Recommendations(c.Request.Context(), priority, recType)
	if err != nil {
		h.logger.Error("failed to get recommendations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve recommendations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recommendations": recs,
		"meta": gin.H{
			"processing_time_ms": time.Since(start).Milliseconds(),
			"count":              len(recs),
		},
	})
}

// ImplementRecommendation marks a recommendation as implemented and removes
// it from the feed
// POST /api/v1/recommendations/:id/implement
func (h *DashboardHandler) ImplementRecommendation(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Recommendation ID is required"})
		return
	}

	if !h.service.ImplementRecommendation(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recommendation not found"})
		return
	}

	h.logger.Info("recommendation implemented", zap.String("recommendation_id", id))

	h.activity.Record(monitoring.EventRecommendationImplemented, "Recommendation marked as implemented", map[string]interface{}{
		"recommendation_id": id,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Recommendation implemented",
		"meta": gin.H{
			"operation": "implement",
		},
	})
}

// GetInsights returns the business insights from the current dashboard
// GET /api/v1/insights
func (h *DashboardHandler) GetInsights(c *gin.Context) {
	data, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to compute insights", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve insights"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"insights": data.Insights,
		"meta": gin.H{
			"count":        len(data.Insights),
			"refreshed_at": data.RefreshedAt,
		},
	})
}

// GetMetrics returns the KPI metric cards
// GET /api/v1/bi/metrics
func (h *DashboardHandler) GetMetrics(c *gin.Context) {
	data, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to compute metrics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve metrics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"metrics": data.Metrics,
		"meta": gin.H{
			"refreshed_at": data.RefreshedAt,
		},
	})
}

// GetDimensions returns the category breakdowns for charts
// GET /api/v1/bi/dimensions
func (h *DashboardHandler) GetDimensions(c *gin.Context) {
	data, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to compute dimensions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve dimensions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dimensions": data.Dimensions,
		"meta": gin.H{
			"refreshed_at": data.RefreshedAt,
		},
	})
}

// GetTimeSeries returns the daily performance series
// GET /api/v1/bi/timeseries
func (h *DashboardHandler) GetTimeSeries(c *gin.Context) {
	data, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to compute time series", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve time series"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"time_series": data.TimeSeries,
		"meta": gin.H{
			"points":       len(data.TimeSeries),
			"refreshed_at": data.RefreshedAt,
		},
	})
}

// GetSourceMode reports which data source the dashboard reads from
// GET /api/v1/source
func (h *DashboardHandler) GetSourceMode(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"mode": h.service.Source().Mode(),
	})
}

// SetSourceMode switches the data source between auto, remote and static
// PUT /api/v1/source
func (h *DashboardHandler) SetSourceMode(c *gin.Context) {
	var req struct {
		Mode string `json:"mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid source mode request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	mode := hybrid.Mode(req.Mode)
	switch mode {
	case hybrid.ModeAuto, hybrid.ModeRemote, hybrid.ModeStatic:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mode (expected auto, remote or static)"})
		return
	}

	h.service.Source().SetMode(c.Request.Context(), mode)
	h.logger.Info("data source mode changed", zap.String("mode", string(mode)))

	h.activity.Record(monitoring.EventSourceModeChanged, "Data source mode changed", map[string]interface{}{
		"mode": string(mode),
	})

	c.JSON(http.StatusOK, gin.H{
		"mode": mode,
		"meta": gin.H{
			"operation": "set_source_mode",
		},
	})
}
