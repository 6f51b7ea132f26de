package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"retail-intel/internal/config"
	"retail-intel/internal/engine"
	"retail-intel/internal/hybrid"
	"retail-intel/internal/metrics"
	"retail-intel/internal/models"
)

type countingSource struct {
	mu      sync.Mutex
	inner   hybrid.Source
	err     error
	fetches int
}

func (s *countingSource) Name() string { return s.inner.Name() }

func (s *countingSource) Fetch(ctx context.Context) (*hybrid.Snapshot, error) {
	s.mu.Lock()
	s.fetches++
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.inner.Fetch(ctx)
}

func (s *countingSource) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func testConfig() *config.Config {
	return &config.Config{
		Engine: config.EngineConfig{
			LowStockFallback: 5,
			SeasonalKeywords: []string{"makeup", "maquiagem"},
			SeasonalExpiry:   720 * time.Hour,
			TimeSeriesDays:   30,
			TimeSeriesSeed:   7,
			RefreshInterval:  time.Hour,
			SnapshotCacheTTL: time.Minute,
			ResultsCacheTTL:  time.Minute,
		},
		Metrics: config.MetricsConfig{Enabled: false},
	}
}

func newTestService(remote hybrid.Source) (*IntelService, *countingSource) {
	cfg := testConfig()
	counting := &countingSource{inner: remote}
	source := hybrid.NewHybridSource(&cfg.Engine, counting, hybrid.NewStaticSource(), nil, zap.NewNop())
	collector := metrics.NewMetricsCollector(&cfg.Metrics, zap.NewNop())
	return NewIntelService(cfg, source, collector, zap.NewNop()), counting
}

func TestDashboardComputedFromStaticCatalog(t *testing.T) {
	svc, _ := newTestService(hybrid.NewStaticSource())
	defer svc.Close()

	data, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, data.Metrics)
	assert.Len(t, data.Dimensions, 2)
	assert.Len(t, data.TimeSeries, 30)
	assert.NotEmpty(t, data.Insights)
	assert.False(t, data.RefreshedAt.IsZero())

	// The demo catalog has an out-of-stock product, so the engine must
	// produce a critical restock recommendation.
	recs, err := svc.Recommendations(context.Background(), models.PriorityCritical, models.RecommendationRestock)
	require.NoError(t, err)
	assert.NotEmpty(t, recs)
}

func TestDashboardServesCachedResultWithinTTL(t *testing.T) {
	svc, counting := newTestService(hybrid.NewStaticSource())
	defer svc.Close()
	ctx := context.Background()

	_, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	_, err = svc.Dashboard(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, counting.fetchCount())
}

func TestRefreshBypassesResultCache(t *testing.T) {
	svc, counting := newTestService(hybrid.NewStaticSource())
	defer svc.Close()
	ctx := context.Background()

	_, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	_, err = svc.Refresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, counting.fetchCount())
}

func TestFallbackSurfacedInDashboard(t *testing.T) {
	svc, counting := newTestService(hybrid.NewStaticSource())
	defer svc.Close()
	counting.err = errors.New("remote unreachable")

	data, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.True(t, data.Fallback)
	assert.Equal(t, "static", data.Source)
	assert.Contains(t, data.SourceErr, "remote unreachable")
	assert.NotEmpty(t, data.Metrics)
}

func TestImplementRecommendation(t *testing.T) {
	svc, _ := newTestService(hybrid.NewStaticSource())
	defer svc.Close()
	ctx := context.Background()

	recs, err := svc.Recommendations(ctx, "", "")
	require.NoError(t, err)
	require.NotEmpty(t, recs)

	assert.True(t, svc.ImplementRecommendation(recs[0].ID))
	assert.False(t, svc.ImplementRecommendation("nonexistent"))

	updated, err := svc.Recommendations(ctx, "", "")
	require.NoError(t, err)
	for _, rec := range updated {
		assert.NotEqual(t, recs[0].ID, rec.ID)
	}
	assert.Len(t, updated, len(recs)-1)
}

func TestCustomRuleFlowsIntoDashboard(t *testing.T) {
	svc, _ := newTestService(hybrid.NewStaticSource())
	defer svc.Close()
	ctx := context.Background()

	err := svc.Engine().AddRule(engine.Rule{
		ID:     "flag_premium",
		Name:   "Flag premium products",
		Weight: 1.0,
		Condition: func(p models.Product, _ *engine.Context) bool {
			return p.SalePrice > 100
		},
		Build: func(p models.Product, _ *engine.Context) models.Recommendation {
			return models.Recommendation{
				ID:         models.RecommendationID(models.RecommendationPromotion, p.ID, time.Now()),
				Type:       models.RecommendationPromotion,
				Priority:   models.PriorityLow,
				ProductID:  p.ID,
				Title:      "Premium product",
				Confidence: 0.5,
			}
		},
	})
	require.NoError(t, err)

	_, err = svc.Refresh(ctx)
	require.NoError(t, err)

	promos, err := svc.Recommendations(ctx, "", models.RecommendationPromotion)
	require.NoError(t, err)
	assert.NotEmpty(t, promos)
}
