package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecommendationType identifies the kind of action a recommendation suggests.
type RecommendationType string

const (
	RecommendationRestock         RecommendationType = "restock"
	RecommendationPriceAdjustment RecommendationType = "price_adjustment"
	RecommendationPromotion       RecommendationType = "promotion"
	RecommendationDiscontinue     RecommendationType = "discontinue"
	RecommendationCrossSell       RecommendationType = "cross_sell"
	RecommendationUpsell          RecommendationType = "upsell"
	RecommendationSeasonalBoost   RecommendationType = "seasonal_boost"
)

// Priority ranks recommendations and insights.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank returns a sortable weight for the priority, highest first.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// ExpectedImpact estimates the financial effect of acting on a recommendation.
type ExpectedImpact struct {
	Revenue  float64 `json:"revenue,omitempty"`
	Margin   float64 `json:"margin,omitempty"`
	Turnover float64 `json:"turnover,omitempty"`
}

// Recommendation is an actionable suggestion produced by the rule engine.
// Recommendations are ephemeral: they live only in the current session's
// store and are recomputed on every refresh cycle.
type Recommendation struct {
	ID              string             `json:"id"`
	ProductID       uuid.UUID          `json:"product_id"`
	ProductName     string             `json:"product_name"`
	Type            RecommendationType `json:"type"`
	Priority        Priority           `json:"priority"`
	Confidence      float64            `json:"confidence"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	SuggestedAction string             `json:"suggested_action"`
	ExpectedImpact  *ExpectedImpact    `json:"expected_impact,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	ExpiresAt       *time.Time         `json:"expires_at,omitempty"`
}

// IsExpired reports whether the recommendation has passed its expiry.
func (r *Recommendation) IsExpired(now time.Time) bool {
	if r.ExpiresAt == nil {
		return false
	}
	return now.After(*r.ExpiresAt)
}

// RecommendationID builds a unique id from the product id and a timestamp
// so repeated evaluations never collide.
func RecommendationID(kind RecommendationType, productID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("%s_%s_%d", kind, productID, at.UnixNano())
}
