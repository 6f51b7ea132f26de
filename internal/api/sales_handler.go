package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"retail-intel/internal/config"
	"retail-intel/internal/models"
	"retail-intel/internal/monitoring"
	"retail-intel/internal/offline"
	"retail-intel/internal/repository"
)

// SalesHandler serves the sales history endpoint and records new sales
// through the offline queue.
type SalesHandler struct {
	sales    *repository.SaleRepository
	queue    *offline.Queue
	activity *monitoring.ActivityLog
	config   *config.ServerConfig
	logger   *zap.Logger
}

// NewSalesHandler creates a new sales handler
func NewSalesHandler(sales *repository.SaleRepository, queue *offline.Queue, activity *monitoring.ActivityLog, cfg *config.Config, logger *zap.Logger) *SalesHandler {
	return &SalesHandler{
		sales:    sales,
		queue:    queue,
		activity: activity,
		config:   &cfg.Server,
		logger:   logger,
	}
}

// ListSales returns sales matching the query filters
// GET /api/v1/sales?status=&payment_method=&date_from=&date_to=&page=&limit=
func (h *SalesHandler) ListSales(c *gin.Context) {
	var query models.SaleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.logger.Warn("invalid sales query", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 || query.Limit > 100 {
		query.Limit = 20
	}

	ctx := c.Request.Context()
	if h.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	sales, total, err := h.sales.List(ctx, &query)
	if err != nil {
		h.logger.Error("failed to list sales", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve sales"})
		return
	}

	totalPages := int(total) / query.Limit
	if int(total)%query.Limit != 0 {
		totalPages++
	}

	h.logger.Debug("sales retrieved",
		zap.Int("count", len(sales)),
		zap.Int64("total", total),
		zap.Duration("duration", time.Since(start)))

	c.JSON(http.StatusOK, models.SalesEnvelope{
		Success: true,
		Sales:   sales,
		Data:    sales,
		Count:   len(sales),
		Pagination: models.Pagination{
			Page:       query.Page,
			Limit:      query.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// CreateSale records a sale, queuing it when the backend is unreachable
// POST /api/v1/sales
func (h *SalesHandler) CreateSale(c *gin.Context) {
	var req models.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create sale request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	payload, err := json.Marshal(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode request"})
		return
	}

	start := time.Now()
	queued, err := h.queue.Execute(c.Request.Context(), models.ActionCreate, "sale", payload)
	if err != nil {
		h.logger.Error("failed to record sale", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record sale"})
		return
	}

	if queued {
		h.activity.Record(monitoring.EventActionQueued, "Sale queued for sync", map[string]interface{}{
			"type":   string(models.ActionCreate),
			"entity": "sale",
		})
		c.JSON(http.StatusAccepted, gin.H{
			"success": true,
			"queued":  true,
			"message": "Backend unreachable, sale queued for sync",
			"meta": gin.H{
				"processing_time_ms": time.Since(start).Milliseconds(),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"queued":  false,
		"message": "Sale recorded",
		"meta": gin.H{
			"processing_time_ms": time.Since(start).Milliseconds(),
		},
	})
}
