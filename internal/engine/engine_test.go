package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"retail-intel/internal/models"
)

func testProduct(stock, minStock int, sale, cost float64) models.Product {
	return models.Product{
		ID:            uuid.New(),
		Name:          "Test Product",
		SKU:           "SKU-1",
		SalePrice:     sale,
		CostPrice:     cost,
		StockQuantity: stock,
		MinStock:      minStock,
		IsActive:      true,
	}
}

func testContext(now time.Time, categories []models.Category) *Context {
	return NewContext(categories, now, nil, nil)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(nil, zap.NewNop())
}

func TestEvaluateCriticalStock(t *testing.T) {
	e := newTestEngine(t)
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	p := testProduct(0, 5, 50, 20)
	recs := e.Evaluate([]models.Product{p}, testContext(now, nil))

	var restocks []models.Recommendation
	for _, r := range recs {
		if r.Type == models.RecommendationRestock {
			restocks = append(restocks, r)
		}
	}

	require.Len(t, restocks, 1)
	assert.Equal(t, models.PriorityCritical, restocks[0].Priority)
	assert.InDelta(t, 0.95, restocks[0].Confidence, 1e-9)
	assert.Equal(t, p.ID, restocks[0].ProductID)
}

func TestEvaluateLowStock(t *testing.T) {
	e := newTestEngine(t)
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	for _, stock := range []int{1, 3, 5} {
		p := testProduct(stock, 5, 100, 40)
		recs := e.Evaluate([]models.Product{p}, testContext(now, nil))

		var restocks []models.Recommendation
		for _, r := range recs {
			if r.Type == models.RecommendationRestock {
				restocks = append(restocks, r)
			}
		}

		require.Len(t, restocks, 1, "stock=%d", stock)
		assert.Equal(t, models.PriorityHigh, restocks[0].Priority)
		assert.InDelta(t, 0.85, restocks[0].Confidence, 1e-9)
	}

	// Above the minimum no restock fires.
	p := testProduct(6, 5, 100, 40)
	recs := e.Evaluate([]models.Product{p}, testContext(now, nil))
	for _, r := range recs {
		assert.NotEqual(t, models.RecommendationRestock, r.Type)
	}
}

func TestEvaluateMarginOptimization(t *testing.T) {
	e := newTestEngine(t)
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	p := testProduct(10, 2, 100, 80) // margin 0.20
	recs := e.Evaluate([]models.Product{p}, testContext(now, nil))

	var adjustments []models.Recommendation
	for _, r := range recs {
		if r.Type == models.RecommendationPriceAdjustment {
			adjustments = append(adjustments, r)
		}
	}

	require.Len(t, adjustments, 1)
	assert.Equal(t, models.PriorityMedium, adjustments[0].Priority)
	assert.InDelta(t, 0.75, adjustments[0].Confidence, 1e-9)

	// Suggested price restores a 30% margin: cost / 0.7.
	require.NotNil(t, adjustments[0].ExpectedImpact)
	target := 80.0 / 0.7
	assert.InDelta(t, (target-100.0)*10, adjustments[0].ExpectedImpact.Margin, 1e-6)
	assert.Contains(t, adjustments[0].SuggestedAction, "114.29")
}

func TestEvaluateMarginBoundaryNotFlagged(t *testing.T) {
	// Exact scenario: stock 0, min 5, sale 20000, cost 14000.
	// Margin is exactly 0.30 so the margin rule must NOT fire; only the
	// critical restock recommendation is produced.
	e := newTestEngine(t)
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	p := testProduct(0, 5, 20000, 14000)
	recs := e.Evaluate([]models.Product{p}, testContext(now, nil))

	require.Len(t, recs, 1)
	assert.Equal(t, models.RecommendationRestock, recs[0].Type)
	assert.Equal(t, models.PriorityCritical, recs[0].Priority)
}

func TestEvaluateSeasonalBoost(t *testing.T) {
	e := newTestEngine(t)
	catID := uuid.New()
	cats := []models.Category{{ID: catID, Name: "Makeup & Lips", IsActive: true}}

	p := testProduct(10, 2, 100, 50)
	p.CategoryID = &catID

	december := time.Date(2024, time.December, 5, 12, 0, 0, 0, time.UTC)
	recs := e.Evaluate([]models.Product{p}, testContext(december, cats))

	var seasonal []models.Recommendation
	for _, r := range recs {
		if r.Type == models.RecommendationSeasonalBoost {
			seasonal = append(seasonal, r)
		}
	}
	require.Len(t, seasonal, 1)
	assert.InDelta(t, 0.70, seasonal[0].Confidence, 1e-9)
	require.NotNil(t, seasonal[0].ExpiresAt)
	assert.Equal(t, december.Add(30*24*time.Hour), *seasonal[0].ExpiresAt)

	// Outside December the rule stays silent.
	november := time.Date(2024, time.November, 5, 12, 0, 0, 0, time.UTC)
	recs = e.Evaluate([]models.Product{p}, testContext(november, cats))
	for _, r := range recs {
		assert.NotEqual(t, models.RecommendationSeasonalBoost, r.Type)
	}
}

func TestEvaluateOrdering(t *testing.T) {
	e := newTestEngine(t)
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	products := []models.Product{
		testProduct(10, 2, 100, 80), // margin only -> medium 0.75
		testProduct(0, 5, 100, 40),  // critical 0.95
		testProduct(2, 5, 100, 40),  // high 0.85
	}

	recs := e.Evaluate(products, testContext(now, nil))
	require.GreaterOrEqual(t, len(recs), 3)

	for i := 1; i < len(recs); i++ {
		prev, cur := recs[i-1], recs[i]
		if prev.Priority.Rank() == cur.Priority.Rank() {
			assert.GreaterOrEqual(t, prev.Confidence, cur.Confidence)
		} else {
			assert.Greater(t, prev.Priority.Rank(), cur.Priority.Rank())
		}
	}
	assert.Equal(t, models.PriorityCritical, recs[0].Priority)
}

func TestSortRecommendationsPermutationInvariant(t *testing.T) {
	e := newTestEngine(t)
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	// Three critical restocks tie on both priority and confidence, so the
	// ordering has to come from the recommendations themselves.
	products := []models.Product{
		testProduct(0, 5, 50, 20),
		testProduct(0, 5, 60, 25),
		testProduct(0, 5, 70, 30),
	}

	base := e.Evaluate(products, testContext(now, nil))
	require.Len(t, base, 3)

	permuted := []models.Product{products[2], products[0], products[1]}
	again := e.Evaluate(permuted, testContext(now, nil))
	require.Len(t, again, 3)

	for i := range base {
		assert.Equal(t, base[i].ProductID, again[i].ProductID)
		assert.Equal(t, base[i].Type, again[i].Type)
	}
}

func TestEvaluateIdempotence(t *testing.T) {
	e := newTestEngine(t)
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	products := []models.Product{
		testProduct(0, 5, 100, 40),
		testProduct(2, 5, 100, 40),
		testProduct(10, 2, 100, 80),
	}

	first := e.Evaluate(products, testContext(now, nil))
	second := e.Evaluate(products, testContext(now, nil))

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Type, second[i].Type)
		assert.Equal(t, first[i].Priority, second[i].Priority)
		assert.Equal(t, first[i].ProductID, second[i].ProductID)
		assert.Equal(t, first[i].Confidence, second[i].Confidence)
	}
}

func TestCustomRuleWeight(t *testing.T) {
	e := newTestEngine(t)
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	err := e.AddRule(Rule{
		ID:     "discount_promo",
		Name:   "Discount Promotion",
		Weight: 0.5,
		Condition: func(p models.Product, _ *Context) bool {
			return p.DiscountPercent > 0
		},
		Build: func(p models.Product, ctx *Context) models.Recommendation {
			return models.Recommendation{
				ID:         models.RecommendationID(models.RecommendationPromotion, p.ID, ctx.Now),
				ProductID:  p.ID,
				Type:       models.RecommendationPromotion,
				Priority:   models.PriorityLow,
				Confidence: 0.8,
				CreatedAt:  ctx.Now,
			}
		},
	})
	require.NoError(t, err)

	p := testProduct(10, 2, 100, 50)
	p.DiscountPercent = 15

	recs := e.Evaluate([]models.Product{p}, testContext(now, nil))

	var promos []models.Recommendation
	for _, r := range recs {
		if r.Type == models.RecommendationPromotion {
			promos = append(promos, r)
		}
	}
	require.Len(t, promos, 1)
	assert.InDelta(t, 0.4, promos[0].Confidence, 1e-9) // 0.8 * 0.5

	require.NoError(t, e.RemoveRule("discount_promo"))
	assert.Error(t, e.RemoveRule("discount_promo"))
}

func TestPanickingRuleIsSkipped(t *testing.T) {
	e := newTestEngine(t)
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, e.AddRule(Rule{
		ID:     "broken",
		Name:   "Broken Rule",
		Weight: 1.0,
		Condition: func(models.Product, *Context) bool {
			panic("boom")
		},
		Build: func(p models.Product, ctx *Context) models.Recommendation {
			return models.Recommendation{}
		},
	}))

	p := testProduct(0, 5, 100, 40)
	recs := e.Evaluate([]models.Product{p}, testContext(now, nil))

	// The broken rule is skipped; the built-in critical rule still fires.
	require.Len(t, recs, 1)
	assert.Equal(t, models.RecommendationRestock, recs[0].Type)
}

func TestStoreLifecycle(t *testing.T) {
	s := NewStore()
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	s.Replace([]models.Recommendation{
		{ID: "a", Type: models.RecommendationRestock, Priority: models.PriorityCritical},
		{ID: "b", Type: models.RecommendationPromotion, Priority: models.PriorityLow, ExpiresAt: &expired},
		{ID: "c", Type: models.RecommendationRestock, Priority: models.PriorityHigh, ExpiresAt: &future},
	})

	assert.Equal(t, 3, s.Len())
	assert.Len(t, s.ByType(models.RecommendationRestock), 2)
	assert.Len(t, s.ByPriority(models.PriorityCritical), 1)

	assert.Equal(t, 1, s.SweepExpired(now))
	assert.Equal(t, 2, s.Len())

	assert.True(t, s.MarkImplemented("a"))
	assert.False(t, s.MarkImplemented("a"))
	assert.Equal(t, 1, s.Len())
}
