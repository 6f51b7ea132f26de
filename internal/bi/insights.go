package bi

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"retail-intel/internal/config"
	"retail-intel/internal/models"
)

// Deterministic insight thresholds. Exact contracts; do not tune.
const (
	marginOpportunityFloor = 0.25 // unit margin below this flags the product
	marginRecoveryTarget   = 0.30 // impact priced to restore this margin
	concentrationShare     = 0.40 // top category revenue share above this is a risk
	anomalyPriceMultiple   = 3.0  // price above this multiple of the mean is anomalous
)

// Generator produces prioritized, typed insights from a product/category
// snapshot. Holds no state between calls.
type Generator struct {
	logger           *zap.Logger
	seasonalKeywords []string
	now              func() time.Time
}

// NewGenerator creates a BI insight generator.
func NewGenerator(cfg *config.EngineConfig, logger *zap.Logger) *Generator {
	keywords := []string{"makeup", "maquiagem"}
	if cfg != nil && len(cfg.SeasonalKeywords) > 0 {
		keywords = cfg.SeasonalKeywords
	}
	return &Generator{
		logger:           logger,
		seasonalKeywords: keywords,
		now:              time.Now,
	}
}

// WithClock overrides the generator's clock, mainly for tests.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Insights evaluates the deterministic insight rules against the snapshot.
func (g *Generator) Insights(products []models.Product, categories []models.Category) []models.Insight {
	now := g.now()

	var out []models.Insight
	if ins := g.outOfStockRisk(products, now); ins != nil {
		out = append(out, *ins)
	}
	if ins := g.marginOpportunity(products, now); ins != nil {
		out = append(out, *ins)
	}
	if ins := g.concentrationRisk(products, categories, now); ins != nil {
		out = append(out, *ins)
	}
	if ins := g.seasonalOpportunity(products, categories, now); ins != nil {
		out = append(out, *ins)
	}
	if ins := g.priceAnomaly(products, now); ins != nil {
		out = append(out, *ins)
	}

	g.logger.Debug("insights generated",
		zap.Int("products", len(products)),
		zap.Int("insights", len(out)))

	return out
}

func (g *Generator) outOfStockRisk(products []models.Product, now time.Time) *models.Insight {
	count := 0
	for _, p := range products {
		if p.StockQuantity == 0 {
			count++
		}
	}
	if count == 0 {
		return nil
	}

	return &models.Insight{
		ID:          insightID("out_of_stock_risk", now),
		Type:        models.InsightRisk,
		Priority:    models.PriorityCritical,
		Title:       "Products out of stock",
		Description: fmt.Sprintf("%d product(s) have zero units on hand and are losing sales.", count),
		Impact:      models.ImpactHigh,
		Confidence:  0.95,
		Actionable:  true,
		SuggestedActions: []string{
			"Reorder the out-of-stock products",
			"Review minimum-stock thresholds for repeat offenders",
		},
		RelatedMetrics: []string{"stock_alerts", "inventory_value"},
		CreatedAt:      now,
	}
}

func (g *Generator) marginOpportunity(products []models.Product, now time.Time) *models.Insight {
	flagged := 0
	potential := 0.0
	for _, p := range products {
		if p.SalePrice <= 0 || p.Margin() >= marginOpportunityFloor {
			continue
		}
		flagged++
		target := p.CostPrice / (1 - marginRecoveryTarget)
		potential += (target - p.SalePrice) * float64(p.StockQuantity)
	}
	if flagged == 0 {
		return nil
	}

	return &models.Insight{
		ID:          insightID("margin_opportunity", now),
		Type:        models.InsightOpportunity,
		Priority:    models.PriorityHigh,
		Title:       "Margin recovery opportunity",
		Description: fmt.Sprintf("%d product(s) sell below a %.0f%% margin; repricing them to a %.0f%% margin is worth %.2f over current stock.", flagged, marginOpportunityFloor*100, marginRecoveryTarget*100, potential),
		Impact:      models.ImpactHigh,
		Confidence:  0.78,
		Actionable:  true,
		SuggestedActions: []string{
			"Reprice the flagged products toward the target margin",
			"Renegotiate cost with suppliers where repricing is not viable",
		},
		RelatedMetrics: []string{"gross_margin"},
		EstimatedValue: potential,
		CreatedAt:      now,
	}
}

func (g *Generator) concentrationRisk(products []models.Product, categories []models.Category, now time.Time) *models.Insight {
	if len(categories) < 2 {
		return nil
	}

	revenueByCategory := make(map[string]float64)
	total := 0.0
	for _, p := range products {
		if p.CategoryID == nil {
			continue
		}
		v := p.SalePrice * float64(p.StockQuantity)
		revenueByCategory[p.CategoryID.String()] += v
		total += v
	}
	if total == 0 {
		return nil
	}

	topShare := 0.0
	topName := ""
	for _, c := range categories {
		share := revenueByCategory[c.ID.String()] / total
		if share > topShare {
			topShare = share
			topName = c.Name
		}
	}
	if topShare <= concentrationShare {
		return nil
	}

	return &models.Insight{
		ID:          insightID("category_concentration_risk", now),
		Type:        models.InsightRisk,
		Priority:    models.PriorityMedium,
		Title:       "Revenue concentrated in one category",
		Description: fmt.Sprintf("Category %q holds %.1f%% of inventory value; a demand shift there hits the whole business.", topName, topShare*100),
		Impact:      models.ImpactMedium,
		Confidence:  0.72,
		Actionable:  true,
		SuggestedActions: []string{
			"Broaden the assortment in under-represented categories",
		},
		RelatedMetrics: []string{"category_coverage", "inventory_value"},
		CreatedAt:      now,
	}
}

func (g *Generator) seasonalOpportunity(products []models.Product, categories []models.Category, now time.Time) *models.Insight {
	if now.Month() != time.December {
		return nil
	}

	seasonal := make(map[string]bool)
	for _, c := range categories {
		name := strings.ToLower(c.Name)
		for _, kw := range g.seasonalKeywords {
			if strings.Contains(name, strings.ToLower(kw)) {
				seasonal[c.ID.String()] = true
				break
			}
		}
	}
	if len(seasonal) == 0 {
		return nil
	}

	count := 0
	for _, p := range products {
		if p.CategoryID != nil && seasonal[p.CategoryID.String()] {
			count++
		}
	}
	if count == 0 {
		return nil
	}

	return &models.Insight{
		ID:          insightID("seasonal_opportunity", now),
		Type:        models.InsightOpportunity,
		Priority:    models.PriorityHigh,
		Title:       "December seasonal peak",
		Description: fmt.Sprintf("%d product(s) in seasonal categories are entering their December demand peak.", count),
		Impact:      models.ImpactHigh,
		Confidence:  0.85,
		Actionable:  true,
		SuggestedActions: []string{
			"Feature seasonal products prominently",
			"Verify stock covers the seasonal demand window",
		},
		RelatedMetrics: []string{"inventory_value"},
		CreatedAt:      now,
	}
}

func (g *Generator) priceAnomaly(products []models.Product, now time.Time) *models.Insight {
	if len(products) == 0 {
		return nil
	}

	prices := make([]float64, 0, len(products))
	for _, p := range products {
		prices = append(prices, p.SalePrice)
	}
	mean := stat.Mean(prices, nil)
	if mean <= 0 {
		return nil
	}

	var outliers []string
	for _, p := range products {
		if p.SalePrice > anomalyPriceMultiple*mean {
			outliers = append(outliers, p.Name)
		}
	}
	if len(outliers) == 0 {
		return nil
	}

	return &models.Insight{
		ID:             insightID("price_anomaly", now),
		Type:           models.InsightAnomaly,
		Priority:       models.PriorityLow,
		Title:          "Price outliers in catalog",
		Description:    fmt.Sprintf("%d product(s) are priced above 3x the catalog average (%.2f): %s.", len(outliers), mean, strings.Join(outliers, ", ")),
		Impact:         models.ImpactLow,
		Confidence:     0.65,
		Actionable:     false,
		RelatedMetrics: []string{"avg_sale_price"},
		CreatedAt:      now,
	}
}

func insightID(kind string, at time.Time) string {
	return fmt.Sprintf("insight_%s_%d", kind, at.UnixNano())
}
