package models

import "time"

// InsightType classifies a business-intelligence insight.
type InsightType string

const (
	InsightOpportunity InsightType = "opportunity"
	InsightRisk        InsightType = "risk"
	InsightTrend       InsightType = "trend"
	InsightAnomaly     InsightType = "anomaly"
)

// ImpactLevel grades how much an insight matters.
type ImpactLevel string

const (
	ImpactHigh   ImpactLevel = "high"
	ImpactMedium ImpactLevel = "medium"
	ImpactLow    ImpactLevel = "low"
)

// Insight is a prioritized, typed observation derived from metrics and the
// product snapshot. Same ephemeral lifecycle as Recommendation.
type Insight struct {
	ID               string      `json:"id"`
	Type             InsightType `json:"type"`
	Priority         Priority    `json:"priority"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Impact           ImpactLevel `json:"impact"`
	Confidence       float64     `json:"confidence"`
	Actionable       bool        `json:"actionable"`
	SuggestedActions []string    `json:"suggested_actions,omitempty"`
	RelatedMetrics   []string    `json:"related_metrics,omitempty"`
	EstimatedValue   float64     `json:"estimated_value,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}
