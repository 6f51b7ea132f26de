package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"retail-intel/internal/models"
	"retail-intel/internal/repository"
)

// ProductPayload is the offline action payload for product mutations. Create
// actions carry the create request, update actions carry the target ID and
// the patch, stock adjustments carry the ID and a signed delta, delete
// actions carry only the ID.
type ProductPayload struct {
	ID         string                       `json:"id,omitempty"`
	Create     *models.CreateProductRequest `json:"create,omitempty"`
	Update     *models.UpdateProductRequest `json:"update,omitempty"`
	StockDelta *int                         `json:"stock_delta,omitempty"`
}

// ActionExecutor applies queued offline actions against the remote backend
// through the repositories.
type ActionExecutor struct {
	products *repository.ProductRepository
	sales    *repository.SaleRepository
	logger   *zap.Logger
}

// NewActionExecutor creates an executor over the given repositories.
func NewActionExecutor(products *repository.ProductRepository, sales *repository.SaleRepository, logger *zap.Logger) *ActionExecutor {
	return &ActionExecutor{
		products: products,
		sales:    sales,
		logger:   logger,
	}
}

// Execute applies a single action. Unknown entities and malformed payloads
// fail permanently in the sense that retrying will not help, but the queue
// owns the retry policy, so they are reported as plain errors.
func (e *ActionExecutor) Execute(ctx context.Context, action models.OfflineAction) error {
	switch action.Entity {
	case "product":
		return e.executeProduct(ctx, action)
	case "sale":
		return e.executeSale(ctx, action)
	default:
		return fmt.Errorf("unknown action entity: %s", action.Entity)
	}
}

func (e *ActionExecutor) executeProduct(ctx context.Context, action models.OfflineAction) error {
	var payload ProductPayload
	if err := json.Unmarshal(action.Payload, &payload); err != nil {
		return fmt.Errorf("failed to decode product payload: %w", err)
	}

	switch action.Type {
	case models.ActionCreate:
		if payload.Create == nil {
			return fmt.Errorf("create action without create payload")
		}
		created, err := e.products.Create(ctx, payload.Create)
		if err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		e.logger.Info("queued product created",
			zap.String("product_id", created.ID.String()),
			zap.String("action_id", action.ID))
		return nil

	case models.ActionUpdate:
		id, err := uuid.Parse(payload.ID)
		if err != nil {
			return fmt.Errorf("invalid product id in update payload: %w", err)
		}
		if payload.Update == nil {
			return fmt.Errorf("update action without update payload")
		}
		if _, err := e.products.Update(ctx, id, payload.Update); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		return nil

	case models.ActionAdjustStock:
		id, err := uuid.Parse(payload.ID)
		if err != nil {
			return fmt.Errorf("invalid product id in stock payload: %w", err)
		}
		if payload.StockDelta == nil {
			return fmt.Errorf("stock adjustment without delta")
		}
		if err := e.products.AdjustStock(ctx, id, *payload.StockDelta); err != nil {
			return fmt.Errorf("failed to adjust stock: %w", err)
		}
		return nil

	case models.ActionDelete:
		id, err := uuid.Parse(payload.ID)
		if err != nil {
			return fmt.Errorf("invalid product id in delete payload: %w", err)
		}
		if err := e.products.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown action type: %s", action.Type)
	}
}

func (e *ActionExecutor) executeSale(ctx context.Context, action models.OfflineAction) error {
	if action.Type != models.ActionCreate {
		return fmt.Errorf("unsupported sale action type: %s", action.Type)
	}

	var req models.CreateSaleRequest
	if err := json.Unmarshal(action.Payload, &req); err != nil {
		return fmt.Errorf("failed to decode sale payload: %w", err)
	}

	if _, err := e.sales.Create(ctx, &req); err != nil {
		return fmt.Errorf("failed to record sale: %w", err)
	}
	return nil
}
