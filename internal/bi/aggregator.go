package bi

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"retail-intel/internal/config"
	"retail-intel/internal/models"
)

// defaultLowStockThreshold is used for the stock-alert count when a product
// carries no per-product minimum.
const defaultLowStockThreshold = 5

// chartPalette provides display colors for dimensional breakdowns.
var chartPalette = []string{
	"#ec4899", "#8b5cf6", "#06b6d4", "#f59e0b", "#10b981",
	"#ef4444", "#6366f1", "#84cc16", "#f97316", "#14b8a6",
}

// Aggregator computes named dashboard metrics and dimensional breakdowns
// from a product/category snapshot. It holds no state between calls.
type Aggregator struct {
	logger           *zap.Logger
	lowStockFallback int
	now              func() time.Time
}

// NewAggregator creates a metrics aggregator.
func NewAggregator(cfg *config.EngineConfig, logger *zap.Logger) *Aggregator {
	fallback := defaultLowStockThreshold
	if cfg != nil && cfg.LowStockFallback > 0 {
		fallback = cfg.LowStockFallback
	}
	return &Aggregator{
		logger:           logger,
		lowStockFallback: fallback,
		now:              time.Now,
	}
}

// WithClock overrides the aggregator's clock, mainly for tests.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// snapshotTotals carries the intermediate sums shared by several metrics.
type snapshotTotals struct {
	revenue      float64 // Σ sale_price × stock
	cost         float64 // Σ cost_price × stock
	outOfStock   int
	lowStock     int
	activeCount  int
	prices       []float64
	coveredCount int
}

func (a *Aggregator) totals(products []models.Product, categories []models.Category) snapshotTotals {
	t := snapshotTotals{prices: make([]float64, 0, len(products))}

	covered := make(map[string]bool)
	for _, p := range products {
		stock := float64(p.StockQuantity)
		t.revenue += p.SalePrice * stock
		t.cost += p.CostPrice * stock
		t.prices = append(t.prices, p.SalePrice)

		if p.IsActive {
			t.activeCount++
		}

		threshold := p.MinStock
		if threshold <= 0 {
			threshold = a.lowStockFallback
		}
		switch {
		case p.StockQuantity == 0:
			t.outOfStock++
		case p.StockQuantity <= threshold:
			t.lowStock++
		}

		if p.CategoryID != nil {
			covered[p.CategoryID.String()] = true
		}
	}

	for _, c := range categories {
		if covered[c.ID.String()] {
			t.coveredCount++
		}
	}

	return t
}

// Metrics computes the dashboard metric set for the snapshot.
func (a *Aggregator) Metrics(products []models.Product, categories []models.Category) []models.Metric {
	t := a.totals(products, categories)

	grossMarginPct := 0.0
	if t.revenue > 0 {
		grossMarginPct = (t.revenue - t.cost) / t.revenue * 100
	}

	// Annualized: monthly cost basis extrapolated over the inventory value.
	turnover := 0.0
	if t.revenue > 0 {
		turnover = t.cost * 12 / t.revenue
	}

	coveragePct := 0.0
	if len(categories) > 0 {
		coveragePct = float64(t.coveredCount) / float64(len(categories)) * 100
	}

	avgPrice := 0.0
	if len(t.prices) > 0 {
		avgPrice = stat.Mean(t.prices, nil)
	}

	stockAlerts := t.outOfStock + t.lowStock
	alertPriority := models.PriorityLow
	if t.outOfStock > 0 {
		alertPriority = models.PriorityCritical
	} else if stockAlerts > 0 {
		alertPriority = models.PriorityHigh
	}

	marginTarget := 30.0
	coverageTarget := 100.0

	metrics := []models.Metric{
		{
			ID:          "inventory_value",
			Name:        "Inventory Value",
			Value:       t.revenue,
			Trend:       models.TrendStable,
			Format:      models.FormatCurrency,
			Category:    models.MetricFinancial,
			Priority:    models.PriorityHigh,
			Description: "Total sale value of all units on hand",
		},
		{
			ID:          "gross_margin",
			Name:        "Gross Margin",
			Value:       grossMarginPct,
			Trend:       models.TrendStable,
			Format:      models.FormatPercentage,
			Category:    models.MetricFinancial,
			Priority:    models.PriorityHigh,
			Description: "Margin over the inventory cost basis",
			Target:      &marginTarget,
		},
		{
			ID:          "stock_alerts",
			Name:        "Stock Alerts",
			Value:       float64(stockAlerts),
			Trend:       models.TrendStable,
			Format:      models.FormatNumber,
			Category:    models.MetricOperational,
			Priority:    alertPriority,
			Description: fmt.Sprintf("%d out of stock, %d low", t.outOfStock, t.lowStock),
		},
		{
			ID:          "inventory_turnover",
			Name:        "Inventory Turnover",
			Value:       turnover,
			Trend:       models.TrendStable,
			Format:      models.FormatNumber,
			Category:    models.MetricPerformance,
			Priority:    models.PriorityMedium,
			Description: "Annualized cost-to-value rotation estimate",
		},
		{
			ID:          "category_coverage",
			Name:        "Category Coverage",
			Value:       coveragePct,
			Trend:       models.TrendStable,
			Format:      models.FormatPercentage,
			Category:    models.MetricStrategic,
			Priority:    models.PriorityMedium,
			Description: "Share of categories holding at least one product",
			Target:      &coverageTarget,
		},
		{
			ID:          "active_products",
			Name:        "Active Products",
			Value:       float64(t.activeCount),
			Trend:       models.TrendStable,
			Format:      models.FormatNumber,
			Category:    models.MetricOperational,
			Priority:    models.PriorityLow,
			Description: "Products currently enabled for sale",
		},
		{
			ID:          "avg_sale_price",
			Name:        "Average Sale Price",
			Value:       avgPrice,
			Trend:       models.TrendStable,
			Format:      models.FormatCurrency,
			Category:    models.MetricPerformance,
			Priority:    models.PriorityLow,
			Description: "Mean catalog sale price",
		},
	}

	a.logger.Debug("metrics computed",
		zap.Int("products", len(products)),
		zap.Float64("inventory_value", t.revenue),
		zap.Int("stock_alerts", stockAlerts))

	return metrics
}

// Dimensions computes dimensional breakdowns: revenue and stock grouped by
// category, ordered by value descending with percentage-of-total shares.
func (a *Aggregator) Dimensions(products []models.Product, categories []models.Category) []models.Dimension {
	buckets := make(map[string]*bucket, len(categories)+1)
	for _, c := range categories {
		buckets[c.ID.String()] = &bucket{name: c.Name}
	}

	for _, p := range products {
		key := "uncategorized"
		if p.CategoryID != nil {
			key = p.CategoryID.String()
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{name: "Uncategorized"}
			buckets[key] = b
		}
		b.revenue += p.SalePrice * float64(p.StockQuantity)
		b.stock += float64(p.StockQuantity)
	}

	return []models.Dimension{
		buildDimension("revenue_by_category", "Revenue by Category", buckets, func(b *bucket) float64 { return b.revenue }),
		buildDimension("stock_by_category", "Stock by Category", buckets, func(b *bucket) float64 { return b.stock }),
	}
}

func buildDimension(id, name string, buckets map[string]*bucket, value func(*bucket) float64) models.Dimension {
	type entry struct {
		id    string
		name  string
		value float64
	}

	entries := make([]entry, 0, len(buckets))
	total := 0.0
	for key, b := range buckets {
		v := value(b)
		if v == 0 {
			continue
		}
		entries = append(entries, entry{id: key, name: b.name, value: v})
		total += v
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].value != entries[j].value {
			return entries[i].value > entries[j].value
		}
		return entries[i].name < entries[j].name
	})

	items := make([]models.DimensionItem, 0, len(entries))
	for i, e := range entries {
		pct := 0.0
		if total > 0 {
			pct = e.value / total * 100
		}
		items = append(items, models.DimensionItem{
			ID:         e.id,
			Name:       e.name,
			Value:      e.value,
			Percentage: pct,
			Color:      chartPalette[i%len(chartPalette)],
		})
	}

	return models.Dimension{ID: id, Name: name, Items: items}
}

// bucket accumulates per-category sums for dimensional breakdowns.
type bucket struct {
	name    string
	revenue float64
	stock   float64
}
