package models

import (
	"time"

	"github.com/google/uuid"
)

// Sale represents a completed sale record served by the sales endpoint.
type Sale struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Status        string    `json:"status" db:"status"`
	PaymentMethod string    `json:"payment_method" db:"payment_method"`
	SaleType      string    `json:"sale_type" db:"sale_type"`
	TotalAmount   float64   `json:"total_amount" db:"total_amount"`
	Discount      float64   `json:"discount" db:"discount"`
	CouponCode    string    `json:"coupon_code,omitempty" db:"coupon_code"`
	ItemCount     int       `json:"item_count" db:"item_count"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// SaleQuery carries the filter and pagination parameters accepted by the
// sales endpoint.
type SaleQuery struct {
	Page          int        `form:"page"`
	Limit         int        `form:"limit"`
	Status        string     `form:"status"`
	PaymentMethod string     `form:"payment_method"`
	SaleType      string     `form:"sale_type"`
	DateFrom      *time.Time `form:"date_from" time_format:"2006-01-02"`
	DateTo        *time.Time `form:"date_to" time_format:"2006-01-02"`
	MinAmount     *float64   `form:"min_amount"`
	MaxAmount     *float64   `form:"max_amount"`
	MinDiscount   *float64   `form:"min_discount"`
	MaxDiscount   *float64   `form:"max_discount"`
	CouponCode    string     `form:"coupon_code"`
	HasCoupon     *bool      `form:"has_coupon"`
}

// Pagination describes the page window of a list response.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// SalesEnvelope is the response envelope of the sales endpoint.
type SalesEnvelope struct {
	Success    bool       `json:"success"`
	Sales      []Sale     `json:"sales"`
	Data       []Sale     `json:"data"`
	Count      int        `json:"count"`
	Pagination Pagination `json:"pagination"`
}

// CreateSaleRequest represents a request to record a sale.
type CreateSaleRequest struct {
	Status        string  `json:"status"`
	PaymentMethod string  `json:"payment_method" binding:"required"`
	SaleType      string  `json:"sale_type"`
	TotalAmount   float64 `json:"total_amount" binding:"required"`
	Discount      float64 `json:"discount"`
	CouponCode    string  `json:"coupon_code"`
	ItemCount     int     `json:"item_count"`
}
