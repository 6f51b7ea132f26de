package bi

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"retail-intel/internal/config"
	"retail-intel/internal/models"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func product(name string, catID *uuid.UUID, sale, cost float64, stock, minStock int) models.Product {
	return models.Product{
		ID:            uuid.New(),
		Name:          name,
		SKU:           "SKU-" + name,
		SalePrice:     sale,
		CostPrice:     cost,
		StockQuantity: stock,
		MinStock:      minStock,
		CategoryID:    catID,
		IsActive:      true,
	}
}

func metricByID(t *testing.T, metrics []models.Metric, id string) models.Metric {
	t.Helper()
	for _, m := range metrics {
		if m.ID == id {
			return m
		}
	}
	t.Fatalf("metric %s not found", id)
	return models.Metric{}
}

func TestMetricsFormulas(t *testing.T) {
	a := NewAggregator(nil, zap.NewNop())

	catA := uuid.New()
	catB := uuid.New()
	cats := []models.Category{
		{ID: catA, Name: "Skincare", IsActive: true},
		{ID: catB, Name: "Hair", IsActive: true},
	}

	products := []models.Product{
		product("p1", &catA, 100, 60, 10, 5), // revenue 1000, cost 600
		product("p2", &catA, 50, 20, 4, 5),   // low stock; revenue 200, cost 80
		product("p3", nil, 20, 10, 0, 0),     // out of stock
	}

	metrics := a.Metrics(products, cats)

	inv := metricByID(t, metrics, "inventory_value")
	assert.InDelta(t, 1200.0, inv.Value, 1e-9)

	// margin = (1200 - 680) / 1200 * 100
	margin := metricByID(t, metrics, "gross_margin")
	assert.InDelta(t, (1200.0-680.0)/1200.0*100, margin.Value, 1e-9)

	// one out of stock + one low stock
	alerts := metricByID(t, metrics, "stock_alerts")
	assert.InDelta(t, 2.0, alerts.Value, 1e-9)
	assert.Equal(t, models.PriorityCritical, alerts.Priority)

	turnover := metricByID(t, metrics, "inventory_turnover")
	assert.InDelta(t, 680.0*12/1200.0, turnover.Value, 1e-9)

	// only catA is covered -> 50%
	coverage := metricByID(t, metrics, "category_coverage")
	assert.InDelta(t, 50.0, coverage.Value, 1e-9)

	avg := metricByID(t, metrics, "avg_sale_price")
	assert.InDelta(t, (100.0+50.0+20.0)/3.0, avg.Value, 1e-9)
}

func TestMetricsEmptySnapshotGuards(t *testing.T) {
	a := NewAggregator(nil, zap.NewNop())
	metrics := a.Metrics(nil, nil)

	assert.InDelta(t, 0, metricByID(t, metrics, "inventory_value").Value, 1e-9)
	assert.InDelta(t, 0, metricByID(t, metrics, "gross_margin").Value, 1e-9)
	assert.InDelta(t, 0, metricByID(t, metrics, "inventory_turnover").Value, 1e-9)
	assert.InDelta(t, 0, metricByID(t, metrics, "category_coverage").Value, 1e-9)
}

func TestStockAlertFallbackThreshold(t *testing.T) {
	a := NewAggregator(nil, zap.NewNop())

	// No per-product minimum: the fixed threshold of 5 applies.
	low := product("low", nil, 10, 5, 5, 0)
	fine := product("fine", nil, 10, 5, 6, 0)

	metrics := a.Metrics([]models.Product{low, fine}, nil)
	assert.InDelta(t, 1.0, metricByID(t, metrics, "stock_alerts").Value, 1e-9)
}

func TestDimensionsRevenueByCategory(t *testing.T) {
	a := NewAggregator(nil, zap.NewNop())

	catA := uuid.New()
	catB := uuid.New()
	cats := []models.Category{
		{ID: catA, Name: "Makeup", IsActive: true},
		{ID: catB, Name: "Hair", IsActive: true},
	}

	products := []models.Product{
		product("m1", &catA, 100, 40, 3, 1), // 300
		product("h1", &catB, 50, 20, 2, 1),  // 100
	}

	dims := a.Dimensions(products, cats)
	require.Len(t, dims, 2)

	revenue := dims[0]
	assert.Equal(t, "revenue_by_category", revenue.ID)
	require.Len(t, revenue.Items, 2)
	assert.Equal(t, "Makeup", revenue.Items[0].Name)
	assert.InDelta(t, 300.0, revenue.Items[0].Value, 1e-9)
	assert.InDelta(t, 75.0, revenue.Items[0].Percentage, 1e-9)
	assert.NotEmpty(t, revenue.Items[0].Color)
	assert.InDelta(t, 25.0, revenue.Items[1].Percentage, 1e-9)
}

func TestOutOfStockInsight(t *testing.T) {
	g := NewGenerator(nil, zap.NewNop()).WithClock(fixedClock(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))

	insights := g.Insights([]models.Product{product("gone", nil, 50, 20, 0, 5)}, nil)

	found := findInsight(insights, models.InsightRisk, models.PriorityCritical)
	require.NotNil(t, found)
	assert.InDelta(t, 0.95, found.Confidence, 1e-9)
	assert.True(t, found.Actionable)
}

func TestMarginOpportunityImpactEstimate(t *testing.T) {
	g := NewGenerator(nil, zap.NewNop()).WithClock(fixedClock(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))

	// margin 0.20 < 0.25; target price = 80 / 0.7
	p := product("thin", nil, 100, 80, 10, 2)
	insights := g.Insights([]models.Product{p}, nil)

	found := findInsight(insights, models.InsightOpportunity, models.PriorityHigh)
	require.NotNil(t, found)
	assert.InDelta(t, 0.78, found.Confidence, 1e-9)

	expected := (80.0/0.7 - 100.0) * 10
	assert.InDelta(t, expected, found.EstimatedValue, 1e-6)
}

func TestConcentrationRiskThreshold(t *testing.T) {
	catA := uuid.New()
	catB := uuid.New()
	cats := []models.Category{
		{ID: catA, Name: "Makeup", IsActive: true},
		{ID: catB, Name: "Hair", IsActive: true},
	}
	clock := fixedClock(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))

	// Category A at 45% of inventory value: insight present.
	g := NewGenerator(nil, zap.NewNop()).WithClock(clock)
	products := []models.Product{
		product("a", &catA, 45, 10, 10, 1), // 450
		product("b", &catB, 55, 10, 10, 1), // 550
	}
	insights := g.Insights(products, cats)
	concentration := findInsightByTitle(insights, "Revenue concentrated in one category")
	require.NotNil(t, concentration)
	assert.Equal(t, models.PriorityMedium, concentration.Priority)
	assert.InDelta(t, 0.72, concentration.Confidence, 1e-9)

	// At 35% / 65%... the 65% side trips the rule instead, so compare with
	// an even split below the threshold: 35% / 33% / 32% across three.
	catC := uuid.New()
	cats3 := append(cats, models.Category{ID: catC, Name: "Nails", IsActive: true})
	products = []models.Product{
		product("a", &catA, 35, 10, 10, 1), // 350
		product("b", &catB, 33, 10, 10, 1), // 330
		product("c", &catC, 32, 10, 10, 1), // 320
	}
	insights = g.Insights(products, cats3)
	assert.Nil(t, findInsightByTitle(insights, "Revenue concentrated in one category"))
}

func TestSeasonalOpportunityDecemberOnly(t *testing.T) {
	catID := uuid.New()
	cats := []models.Category{{ID: catID, Name: "Makeup", IsActive: true}}
	p := product("lipstick", &catID, 30, 10, 5, 2)

	december := NewGenerator(nil, zap.NewNop()).WithClock(fixedClock(time.Date(2024, time.December, 5, 0, 0, 0, 0, time.UTC)))
	insights := december.Insights([]models.Product{p}, cats)
	seasonal := findInsightByTitle(insights, "December seasonal peak")
	require.NotNil(t, seasonal)
	assert.InDelta(t, 0.85, seasonal.Confidence, 1e-9)

	march := NewGenerator(nil, zap.NewNop()).WithClock(fixedClock(time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)))
	insights = march.Insights([]models.Product{p}, cats)
	assert.Nil(t, findInsightByTitle(insights, "December seasonal peak"))
}

func TestPriceAnomalyNonActionable(t *testing.T) {
	g := NewGenerator(nil, zap.NewNop()).WithClock(fixedClock(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))

	products := []models.Product{
		product("a", nil, 10, 5, 3, 1),
		product("b", nil, 12, 5, 3, 1),
		product("c", nil, 11, 5, 3, 1),
		product("lux", nil, 200, 50, 3, 1), // mean ~58.25, 200 > 3x mean
	}
	insights := g.Insights(products, nil)

	anomaly := findInsight(insights, models.InsightAnomaly, models.PriorityLow)
	require.NotNil(t, anomaly)
	assert.InDelta(t, 0.65, anomaly.Confidence, 1e-9)
	assert.False(t, anomaly.Actionable)
}

func TestTimeSeriesShape(t *testing.T) {
	cfg := &config.EngineConfig{TimeSeriesDays: 30, TimeSeriesSeed: 42}
	now := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
	g := NewTimeSeriesGenerator(cfg, zap.NewNop()).WithClock(fixedClock(now))

	products := []models.Product{
		product("a", nil, 100, 40, 30, 5),
		product("b", nil, 50, 20, 60, 5),
	}

	points := g.Series(products)
	require.Len(t, points, 30)

	assert.Equal(t, time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC), points[0].Date)
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), points[29].Date)

	for _, pt := range points {
		assert.GreaterOrEqual(t, pt.Metrics.Revenue, 0.0)
		assert.GreaterOrEqual(t, pt.Metrics.Orders, 0)
		assert.GreaterOrEqual(t, pt.Metrics.ConversionRate, 0.02)
		assert.LessOrEqual(t, pt.Metrics.ConversionRate, 0.05)
		if pt.Metrics.Orders > 0 {
			assert.InDelta(t, pt.Metrics.Revenue/float64(pt.Metrics.Orders), pt.Metrics.AvgOrderValue, 1e-9)
		}
	}

	// Same seed, same clock: the series is reproducible.
	again := NewTimeSeriesGenerator(cfg, zap.NewNop()).WithClock(fixedClock(now)).Series(products)
	assert.Equal(t, points, again)
}

func findInsight(insights []models.Insight, typ models.InsightType, prio models.Priority) *models.Insight {
	for i := range insights {
		if insights[i].Type == typ && insights[i].Priority == prio {
			return &insights[i]
		}
	}
	return nil
}

func findInsightByTitle(insights []models.Insight, title string) *models.Insight {
	for i := range insights {
		if insights[i].Title == title {
			return &insights[i]
		}
	}
	return nil
}
