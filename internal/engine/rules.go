package engine

import (
	"fmt"
	"time"

	"retail-intel/internal/config"
	"retail-intel/internal/models"
)

// Rule pairs a condition with a recommendation builder. The engine evaluates
// every rule against every product; matching pairs each produce one
// recommendation whose base confidence is multiplied by the rule weight.
type Rule struct {
	ID          string
	Name        string
	Description string
	Weight      float64 // 0.0-1.0, multiplied into the base confidence
	Condition   func(p models.Product, ctx *Context) bool
	Build       func(p models.Product, ctx *Context) models.Recommendation
}

const (
	// marginFloor is the unit margin below which the margin-optimization
	// rule fires; the suggested price restores exactly this margin.
	marginFloor = 0.30
)

// builtinRules returns the default rule set. Thresholds are fixed contracts;
// downstream assertions depend on the exact values.
func builtinRules(cfg *config.EngineConfig) []Rule {
	seasonalExpiry := 30 * 24 * time.Hour
	if cfg != nil && cfg.SeasonalExpiry > 0 {
		seasonalExpiry = cfg.SeasonalExpiry
	}

	return []Rule{
		{
			ID:          "critical_stock",
			Name:        "Critical Stock",
			Description: "Product is completely out of stock",
			Weight:      1.0,
			Condition: func(p models.Product, _ *Context) bool {
				return p.StockQuantity == 0
			},
			Build: func(p models.Product, ctx *Context) models.Recommendation {
				sd := ctx.Sales.SalesFor(p.ID)
				lostRevenue := sd.Revenue
				if lostRevenue == 0 {
					lostRevenue = p.SalePrice * float64(p.MinStock)
				}
				return models.Recommendation{
					ID:              models.RecommendationID(models.RecommendationRestock, p.ID, ctx.Now),
					ProductID:       p.ID,
					ProductName:     p.Name,
					Type:            models.RecommendationRestock,
					Priority:        models.PriorityCritical,
					Confidence:      0.95,
					Title:           fmt.Sprintf("Out of stock: %s", p.Name),
					Description:     fmt.Sprintf("%s (%s) has zero units on hand and cannot be sold.", p.Name, p.SKU),
					SuggestedAction: fmt.Sprintf("Reorder at least %d units immediately", maxInt(p.MinStock, 1)),
					ExpectedImpact:  &models.ExpectedImpact{Revenue: lostRevenue},
					CreatedAt:       ctx.Now,
				}
			},
		},
		{
			ID:          "low_stock",
			Name:        "Low Stock",
			Description: "Stock is at or below the minimum threshold",
			Weight:      1.0,
			Condition: func(p models.Product, _ *Context) bool {
				return p.StockQuantity > 0 && p.StockQuantity <= p.MinStock
			},
			Build: func(p models.Product, ctx *Context) models.Recommendation {
				return models.Recommendation{
					ID:              models.RecommendationID(models.RecommendationRestock, p.ID, ctx.Now),
					ProductID:       p.ID,
					ProductName:     p.Name,
					Type:            models.RecommendationRestock,
					Priority:        models.PriorityHigh,
					Confidence:      0.85,
					Title:           fmt.Sprintf("Low stock: %s", p.Name),
					Description:     fmt.Sprintf("%s has %d units left against a minimum of %d.", p.Name, p.StockQuantity, p.MinStock),
					SuggestedAction: fmt.Sprintf("Reorder before stock reaches zero (current: %d)", p.StockQuantity),
					ExpectedImpact:  &models.ExpectedImpact{Revenue: p.SalePrice * float64(p.MinStock-p.StockQuantity+1)},
					CreatedAt:       ctx.Now,
				}
			},
		},
		{
			ID:          "margin_optimization",
			Name:        "Margin Optimization",
			Description: "Unit margin is below the target floor",
			Weight:      1.0,
			Condition: func(p models.Product, _ *Context) bool {
				return p.SalePrice > 0 && p.Margin() < marginFloor
			},
			Build: func(p models.Product, ctx *Context) models.Recommendation {
				targetPrice := p.CostPrice / (1 - marginFloor)
				return models.Recommendation{
					ID:              models.RecommendationID(models.RecommendationPriceAdjustment, p.ID, ctx.Now),
					ProductID:       p.ID,
					ProductName:     p.Name,
					Type:            models.RecommendationPriceAdjustment,
					Priority:        models.PriorityMedium,
					Confidence:      0.75,
					Title:           fmt.Sprintf("Thin margin: %s", p.Name),
					Description:     fmt.Sprintf("%s sells at %.2f with a %.1f%% margin, below the %.0f%% target.", p.Name, p.SalePrice, p.Margin()*100, marginFloor*100),
					SuggestedAction: fmt.Sprintf("Raise price to %.2f to restore a %.0f%% margin", targetPrice, marginFloor*100),
					ExpectedImpact:  &models.ExpectedImpact{Margin: (targetPrice - p.SalePrice) * float64(p.StockQuantity)},
					CreatedAt:       ctx.Now,
				}
			},
		},
		{
			ID:          "seasonal_boost",
			Name:        "Seasonal Boost",
			Description: "Seasonal category product during the December peak",
			Weight:      1.0,
			Condition: func(p models.Product, ctx *Context) bool {
				return ctx.Now.Month() == time.December && ctx.IsSeasonalCategory(p.CategoryID)
			},
			Build: func(p models.Product, ctx *Context) models.Recommendation {
				expires := ctx.Now.Add(seasonalExpiry)
				return models.Recommendation{
					ID:              models.RecommendationID(models.RecommendationSeasonalBoost, p.ID, ctx.Now),
					ProductID:       p.ID,
					ProductName:     p.Name,
					Type:            models.RecommendationSeasonalBoost,
					Priority:        models.PriorityMedium,
					Confidence:      0.70,
					Title:           fmt.Sprintf("Seasonal demand: %s", p.Name),
					Description:     fmt.Sprintf("%s belongs to a seasonal category entering its December demand peak.", p.Name),
					SuggestedAction: "Feature the product and verify stock covers the seasonal peak",
					ExpectedImpact:  &models.ExpectedImpact{Revenue: p.SalePrice * float64(p.StockQuantity) * 0.2},
					CreatedAt:       ctx.Now,
					ExpiresAt:       &expires,
				}
			},
		},
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
