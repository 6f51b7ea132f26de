package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"retail-intel/internal/models"
	"retail-intel/internal/monitoring"
	"retail-intel/internal/offline"
	"retail-intel/internal/repository"
	"retail-intel/internal/services"
)

// ProductHandler handles product catalog reads and routes mutations through
// the offline queue so they survive backend outages.
type ProductHandler struct {
	products   *repository.ProductRepository
	categories *repository.CategoryRepository
	queue      *offline.Queue
	activity   *monitoring.ActivityLog
	logger     *zap.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(
	products *repository.ProductRepository,
	categories *repository.CategoryRepository,
	queue *offline.Queue,
	activity *monitoring.ActivityLog,
	logger *zap.Logger,
) *ProductHandler {
	return &ProductHandler{
		products:   products,
		categories: categories,
		queue:      queue,
		activity:   activity,
		logger:     logger,
	}
}

// ListProducts returns products matching the query filters
// GET /api/v1/products?category_id=&active=&search=&limit=&offset=
func (h *ProductHandler) ListProducts(c *gin.Context) {
	query := &models.ProductQuery{}

	if categoryID := c.Query("category_id"); categoryID != "" {
		id, err := uuid.Parse(categoryID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
			return
		}
		query.CategoryID = &id
	}

	if isActive := c.Query("active"); isActive != "" {
		if active, err := strconv.ParseBool(isActive); err == nil {
			query.IsActive = &active
		}
	}

	query.Search = c.Query("search")

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}
	query.Limit = limit

	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			query.Offset = parsed
		}
	}

	start := time.Now()
	products, err := h.products.List(c.Request.Context(), query)
	if err != nil {
		h.logger.Error("failed to list products", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"meta": gin.H{
			"processing_time_ms": time.Since(start).Milliseconds(),
			"limit":              limit,
			"offset":             query.Offset,
			"returned":           len(products),
		},
	})
}

// GetProduct returns a single product
// GET /api/v1/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.logger.Warn("invalid product ID", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	product, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		h.logger.Error("failed to get product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// CreateProduct creates a product, queuing the mutation when offline
// POST /api/v1/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create product request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	payload, err := json.Marshal(services.ProductPayload{Create: &req})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode request"})
		return
	}

	h.dispatch(c, models.ActionCreate, payload, "Product created")
}

// UpdateProduct updates a product, queuing the mutation when offline
// PUT /api/v1/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.logger.Warn("invalid product ID", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update product request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	payload, err := json.Marshal(services.ProductPayload{ID: id.String(), Update: &req})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode request"})
		return
	}

	h.dispatch(c, models.ActionUpdate, payload, "Product updated")
}

// AdjustStock changes a product's stock level by a signed delta, queuing
// the mutation when offline
// POST /api/v1/products/:id/stock
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.logger.Warn("invalid product ID", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var req struct {
		Delta *int `json:"delta" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid stock adjustment request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	payload, err := json.Marshal(services.ProductPayload{ID: id.String(), StockDelta: req.Delta})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode request"})
		return
	}

	h.dispatch(c, models.ActionAdjustStock, payload, "Stock adjusted")
}

// DeleteProduct deletes a product, queuing the mutation when offline
// DELETE /api/v1/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.logger.Warn("invalid product ID", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	payload, err := json.Marshal(services.ProductPayload{ID: id.String()})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode request"})
		return
	}

	h.dispatch(c, models.ActionDelete, payload, "Product deleted")
}

// dispatch runs the mutation through the offline queue. A queued result
// means the backend was unreachable and the action will replay on sync.
func (h *ProductHandler) dispatch(c *gin.Context, typ models.OfflineActionType, payload json.RawMessage, message string) {
	start := time.Now()

	queued, err := h.queue.Execute(c.Request.Context(), typ, "product", payload)
	if err != nil {
		h.logger.Error("failed to dispatch product action",
			zap.String("type", string(typ)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process request"})
		return
	}

	if queued {
		h.activity.Record(monitoring.EventActionQueued, "Product action queued for sync", map[string]interface{}{
			"type":   string(typ),
			"entity": "product",
		})
		c.JSON(http.StatusAccepted, gin.H{
			"message": "Backend unreachable, action queued for sync",
			"queued":  true,
			"queue":   h.queue.Status(),
			"meta": gin.H{
				"processing_time_ms": time.Since(start).Milliseconds(),
				"operation":          string(typ),
			},
		})
		return
	}

	status := http.StatusOK
	if typ == models.ActionCreate {
		status = http.StatusCreated
	}

	c.JSON(status, gin.H{
		"message": message,
		"queued":  false,
		"meta": gin.H{
			"processing_time_ms": time.Since(start).Milliseconds(),
			"operation":          string(typ),
		},
	})
}

// ListCategories returns all product categories
// GET /api/v1/categories
func (h *ProductHandler) ListCategories(c *gin.Context) {
	categories, err := h.categories.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list categories", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"categories": categories,
		"meta": gin.H{
			"returned": len(categories),
		},
	})
}
