package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"retail-intel/internal/models"
)

// ProductRepository handles database operations for products
type ProductRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *pgxpool.Pool, logger *zap.Logger) *ProductRepository {
	return &ProductRepository{
		db:     db,
		logger: logger,
	}
}

const productColumns = `id, name, sku, description, cost_price, sale_price,
       stock_quantity, min_stock, category_id, supplier_id, is_active,
       discount_percent, images, created_at, updated_at`

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.SKU, &p.Description, &p.CostPrice, &p.SalePrice,
		&p.StockQuantity, &p.MinStock, &p.CategoryID, &p.SupplierID, &p.IsActive,
		&p.DiscountPercent, &p.Images, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID retrieves a product by its id
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		r.logger.Error("failed to get product",
			zap.Error(err),
			zap.String("product_id", id.String()))
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// List retrieves products matching the query filters
func (r *ProductRepository) List(ctx context.Context, q *models.ProductQuery) ([]models.Product, error) {
	start := time.Now()
	defer func() {
		r.logger.Debug("product list completed",
			zap.Duration("duration", time.Since(start)))
	}()

	var conditions []string
	var args []interface{}
	argIndex := 1

	if q != nil {
		if q.CategoryID != nil {
			conditions = append(conditions, fmt.Sprintf("category_id = $%d", argIndex))
			args = append(args, *q.CategoryID)
			argIndex++
		}
		if q.IsActive != nil {
			conditions = append(conditions, fmt.Sprintf("is_active = $%d", argIndex))
			args = append(args, *q.IsActive)
			argIndex++
		}
		if q.Search != "" {
			conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR sku ILIKE $%d)", argIndex, argIndex))
			args = append(args, "%"+q.Search+"%")
			argIndex++
		}
	}

	query := fmt.Sprintf(`SELECT %s FROM products`, productColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name ASC"

	if q != nil && q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, q.Limit)
		argIndex++
		if q.Offset > 0 {
			query += fmt.Sprintf(" OFFSET $%d", argIndex)
			args = append(args, q.Offset)
		}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list products", zap.Error(err))
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, nil
}

// Create inserts a new product
func (r *ProductRepository) Create(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	now := time.Now()
	p := &models.Product{
		ID:              uuid.New(),
		Name:            req.Name,
		SKU:             req.SKU,
		Description:     req.Description,
		CostPrice:       req.CostPrice,
		SalePrice:       req.SalePrice,
		StockQuantity:   req.StockQuantity,
		MinStock:        req.MinStock,
		CategoryID:      req.CategoryID,
		SupplierID:      req.SupplierID,
		IsActive:        true,
		DiscountPercent: req.DiscountPercent,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	query := `
		INSERT INTO products (
			id, name, sku, description, cost_price, sale_price,
			stock_quantity, min_stock, category_id, supplier_id, is_active,
			discount_percent, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		p.ID, p.Name, p.SKU, p.Description, p.CostPrice, p.SalePrice,
		p.StockQuantity, p.MinStock, p.CategoryID, p.SupplierID, p.IsActive,
		p.DiscountPercent, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, ErrAlreadyExists
		}
		r.logger.Error("failed to create product",
			zap.Error(err),
			zap.String("sku", req.SKU))
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	r.logger.Info("product created",
		zap.String("product_id", p.ID.String()),
		zap.String("sku", p.SKU))

	return p, nil
}

// Update applies a partial update to a product
func (r *ProductRepository) Update(ctx context.Context, id uuid.UUID, req *models.UpdateProductRequest) (*models.Product, error) {
	var setClauses []string
	var args []interface{}
	argIndex := 1

	addClause := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if req.Name != nil {
		addClause("name", *req.Name)
	}
	if req.Description != nil {
		addClause("description", *req.Description)
	}
	if req.CostPrice != nil {
		addClause("cost_price", *req.CostPrice)
	}
	if req.SalePrice != nil {
		addClause("sale_price", *req.SalePrice)
	}
	if req.StockQuantity != nil {
		addClause("stock_quantity", *req.StockQuantity)
	}
	if req.MinStock != nil {
		addClause("min_stock", *req.MinStock)
	}
	if req.CategoryID != nil {
		addClause("category_id", *req.CategoryID)
	}
	if req.IsActive != nil {
		addClause("is_active", *req.IsActive)
	}
	if req.DiscountPercent != nil {
		addClause("discount_percent", *req.DiscountPercent)
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, id)
	}

	addClause("updated_at", time.Now())

	query := fmt.Sprintf(`
		UPDATE products SET %s WHERE id = $%d
		RETURNING %s`,
		strings.Join(setClauses, ", "), argIndex, productColumns)
	args = append(args, id)

	p, err := scanProduct(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		r.logger.Error("failed to update product",
			zap.Error(err),
			zap.String("product_id", id.String()))
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return p, nil
}

// Delete removes a product
func (r *ProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("failed to delete product",
			zap.Error(err),
			zap.String("product_id", id.String()))
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	r.logger.Info("product deleted", zap.String("product_id", id.String()))
	return nil
}

// AdjustStock atomically changes a product's stock quantity by delta,
// clamping at zero.
func (r *ProductRepository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	query := `
		UPDATE products
		SET stock_quantity = GREATEST(stock_quantity + $2, 0),
		    updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, delta)
	if err != nil {
		r.logger.Error("failed to adjust stock",
			zap.Error(err),
			zap.String("product_id", id.String()),
			zap.Int("delta", delta))
		return fmt.Errorf("failed to adjust stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
