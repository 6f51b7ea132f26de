package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"retail-intel/internal/config"
	"retail-intel/internal/hybrid"
	"retail-intel/internal/metrics"
	"retail-intel/internal/models"
	"retail-intel/internal/monitoring"
	"retail-intel/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: time.Second},
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
		Sync: config.SyncConfig{
			Interval:    time.Hour,
			MaxRetries:  3,
			StoreKey:    "offline:queue",
			StoreTTL:    time.Hour,
			ExecTimeout: time.Second,
		},
		Metrics: config.MetricsConfig{Enabled: false},
	}
}

func newTestService(t *testing.T) *services.IntelService {
	t.Helper()

	cfg := testConfig()
	source := hybrid.NewHybridSource(&cfg.Engine, hybrid.NewStaticSource(), hybrid.NewStaticSource(), nil, zap.NewNop())
	collector := metrics.NewMetricsCollector(&cfg.Metrics, zap.NewNop())
	svc := services.NewIntelService(cfg, source, collector, zap.NewNop())
	t.Cleanup(func() { svc.Close() })
	return svc
}

func newDashboardRouter(t *testing.T) (*gin.Engine, *services.IntelService) {
	t.Helper()

	svc := newTestService(t)
	activity := monitoring.NewActivityLog(zap.NewNop())
	t.Cleanup(func() { activity.Close() })
	handler := NewDashboardHandler(svc, activity, zap.NewNop())

	router := gin.New()
	router.GET("/api/v1/dashboard", handler.GetDashboard)
	router.POST("/api/v1/dashboard/refresh", handler.RefreshDashboard)
	router.GET("/api/v1/recommendations", handler.GetRecommendations)
	router.POST("/api/v1/recommendations/:id/implement", handler.ImplementRecommendation)
	router.GET("/api/v1/insights", handler.GetInsights)
	router.GET("/api/v1/bi/metrics", handler.GetMetrics)
	router.GET("/api/v1/bi/timeseries", handler.GetTimeSeries)
	router.GET("/api/v1/source", handler.GetSourceMode)
	router.PUT("/api/v1/source", handler.SetSourceMode)
	return router, svc
}

func perform(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetDashboardServesComputedPayload(t *testing.T) {
	router, _ := newDashboardRouter(t)

	w := perform(router, http.MethodGet, "/api/v1/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Dashboard services.DashboardData `json:"dashboard"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.NotEmpty(t, resp.Dashboard.Metrics)
	assert.Len(t, resp.Dashboard.TimeSeries, 30)
	assert.Equal(t, "static", resp.Dashboard.Source)
}

func TestGetRecommendationsFiltersByPriority(t *testing.T) {
	router, _ := newDashboardRouter(t)

	w := perform(router, http.MethodGet, "/api/v1/recommendations?priority=critical", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Recommendations []models.Recommendation `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.NotEmpty(t, resp.Recommendations)
	for _, rec := range resp.Recommendations {
		assert.Equal(t, models.PriorityCritical, rec.Priority)
	}
}

func TestImplementRecommendation(t *testing.T) {
	router, svc := newDashboardRouter(t)

	recs, err := svc.Recommendations(context.Background(), "", "")
	require.NoError(t, err)
	require.NotEmpty(t, recs)

	w := perform(router, http.MethodPost, "/api/v1/recommendations/"+recs[0].ID+"/implement", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(router, http.MethodPost, "/api/v1/recommendations/"+recs[0].ID+"/implement", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetInsightsEndpoint(t *testing.T) {
	router, _ := newDashboardRouter(t)

	w := perform(router, http.MethodGet, "/api/v1/insights", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Insights []models.Insight `json:"insights"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Insights)
}

func TestRefreshDashboardEndpoint(t *testing.T) {
	router, _ := newDashboardRouter(t)

	w := perform(router, http.MethodPost, "/api/v1/dashboard/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"operation":"refresh"`)
}

func TestSourceModeEndpoint(t *testing.T) {
	router, _ := newDashboardRouter(t)

	w := perform(router, http.MethodPut, "/api/v1/source", `{"mode":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(router, http.MethodPut, "/api/v1/source", `{"mode":"static"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(router, http.MethodGet, "/api/v1/source", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"mode":"static"`)
}
