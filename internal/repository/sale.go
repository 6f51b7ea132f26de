package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"retail-intel/internal/models"
)

// SaleRepository handles database operations for sale records
type SaleRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewSaleRepository creates a new sale repository
func NewSaleRepository(db *pgxpool.Pool, logger *zap.Logger) *SaleRepository {
	return &SaleRepository{
		db:     db,
		logger: logger,
	}
}

// buildFilters translates a SaleQuery into WHERE conditions and args.
func buildFilters(q *models.SaleQuery) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	add := func(condition string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf(condition, argIndex))
		args = append(args, value)
		argIndex++
	}

	if q.Status != "" {
		add("status = $%d", q.Status)
	}
	if q.PaymentMethod != "" {
		add("payment_method = $%d", q.PaymentMethod)
	}
	if q.SaleType != "" {
		add("sale_type = $%d", q.SaleType)
	}
	if q.DateFrom != nil {
		add("created_at >= $%d", *q.DateFrom)
	}
	if q.DateTo != nil {
		// Inclusive upper bound: the whole end day counts.
		add("created_at < $%d", q.DateTo.AddDate(0, 0, 1))
	}
	if q.MinAmount != nil {
		add("total_amount >= $%d", *q.MinAmount)
	}
	if q.MaxAmount != nil {
		add("total_amount <= $%d", *q.MaxAmount)
	}
	if q.MinDiscount != nil {
		add("discount >= $%d", *q.MinDiscount)
	}
	if q.MaxDiscount != nil {
		add("discount <= $%d", *q.MaxDiscount)
	}
	if q.CouponCode != "" {
		add("coupon_code = $%d", q.CouponCode)
	}
	if q.HasCoupon != nil {
		if *q.HasCoupon {
			conditions = append(conditions, "coupon_code <> ''")
		} else {
			conditions = append(conditions, "coupon_code = ''")
		}
	}

	return conditions, args
}

// List retrieves sales matching the query with pagination, newest first.
func (r *SaleRepository) List(ctx context.Context, q *models.SaleQuery) ([]models.Sale, int64, error) {
	start := time.Now()
	defer func() {
		r.logger.Debug("sale list completed",
			zap.Duration("duration", time.Since(start)))
	}()

	conditions, args := buildFilters(q)
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM sales" + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("failed to count sales", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count sales: %w", err)
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(`
		SELECT id, status, payment_method, sale_type, total_amount,
		       discount, coupon_code, item_count, created_at
		FROM sales%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list sales", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	var sales []models.Sale
	for rows.Next() {
		var s models.Sale
		if err := rows.Scan(
			&s.ID, &s.Status, &s.PaymentMethod, &s.SaleType, &s.TotalAmount,
			&s.Discount, &s.CouponCode, &s.ItemCount, &s.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate sales: %w", err)
	}

	return sales, total, nil
}

// Create inserts a new sale record
func (r *SaleRepository) Create(ctx context.Context, req *models.CreateSaleRequest) (*models.Sale, error) {
	status := req.Status
	if status == "" {
		status = "completed"
	}
	saleType := req.SaleType
	if saleType == "" {
		saleType = "retail"
	}

	s := &models.Sale{
		ID:            uuid.New(),
		Status:        status,
		PaymentMethod: req.PaymentMethod,
		SaleType:      saleType,
		TotalAmount:   req.TotalAmount,
		Discount:      req.Discount,
		CouponCode:    req.CouponCode,
		ItemCount:     req.ItemCount,
		CreatedAt:     time.Now(),
	}

	query := `
		INSERT INTO sales (
			id, status, payment_method, sale_type, total_amount,
			discount, coupon_code, item_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		s.ID, s.Status, s.PaymentMethod, s.SaleType, s.TotalAmount,
		s.Discount, s.CouponCode, s.ItemCount, s.CreatedAt,
	).Scan(&s.ID, &s.CreatedAt)

	if err != nil {
		r.logger.Error("failed to create sale", zap.Error(err))
		return nil, fmt.Errorf("failed to create sale: %w", err)
	}

	r.logger.Info("sale recorded",
		zap.String("sale_id", s.ID.String()),
		zap.Float64("total_amount", s.TotalAmount))

	return s, nil
}
