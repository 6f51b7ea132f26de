package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"retail-intel/internal/cache"
	"retail-intel/internal/hybrid"
	"retail-intel/internal/models"
	"retail-intel/internal/monitoring"
	"retail-intel/internal/offline"
)

type recordingExecutor struct {
	mu      sync.Mutex
	actions []models.OfflineAction
	err     error
}

func (e *recordingExecutor) Execute(ctx context.Context, action models.OfflineAction) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.actions = append(e.actions, action)
	return nil
}

func (e *recordingExecutor) executed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.actions)
}

type offlineFixture struct {
	router  *gin.Engine
	queue   *offline.Queue
	monitor *offline.ManualMonitor
	exec    *recordingExecutor
}

func newOfflineFixture(t *testing.T, online bool) *offlineFixture {
	t.Helper()

	cfg := testConfig()
	monitor := offline.NewManualMonitor(online)
	exec := &recordingExecutor{}
	queue := offline.NewQueue(&cfg.Sync, cache.NewMemoryStore(), monitor, exec, zap.NewNop())
	t.Cleanup(func() { queue.Close() })

	activity := monitoring.NewActivityLog(zap.NewNop())
	t.Cleanup(func() { activity.Close() })

	productHandler := NewProductHandler(nil, nil, queue, activity, zap.NewNop())
	salesHandler := NewSalesHandler(nil, queue, activity, cfg, zap.NewNop())
	offlineHandler := NewOfflineHandler(queue, monitor, activity, zap.NewNop())
	activityHandler := NewActivityHandler(activity, zap.NewNop())

	router := gin.New()
	router.POST("/api/v1/products", productHandler.CreateProduct)
	router.PUT("/api/v1/products/:id", productHandler.UpdateProduct)
	router.POST("/api/v1/products/:id/stock", productHandler.AdjustStock)
	router.DELETE("/api/v1/products/:id", productHandler.DeleteProduct)
	router.POST("/api/v1/sales", salesHandler.CreateSale)
	router.GET("/api/v1/offline/status", offlineHandler.GetStatus)
	router.GET("/api/v1/offline/pending", offlineHandler.GetPending)
	router.POST("/api/v1/offline/sync", offlineHandler.ForceSync)
	router.GET("/api/v1/offline/failed", offlineHandler.GetFailed)
	router.POST("/api/v1/offline/failed/retry", offlineHandler.RetryFailed)
	router.DELETE("/api/v1/offline/failed", offlineHandler.ClearFailed)
	router.PUT("/api/v1/offline/connectivity", offlineHandler.SetConnectivity)
	router.GET("/api/v1/activity", activityHandler.GetActivity)
	router.GET("/api/v1/activity/summary", activityHandler.GetActivitySummary)

	return &offlineFixture{router: router, queue: queue, monitor: monitor, exec: exec}
}

func TestCreateProductQueuedWhenOffline(t *testing.T) {
	f := newOfflineFixture(t, false)

	w := perform(f.router, http.MethodPost, "/api/v1/products",
		`{"name":"Matte Lipstick","sku":"MKP-100","cost_price":10,"sale_price":25,"stock_quantity":8}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"queued":true`)

	status := f.queue.Status()
	assert.Equal(t, 1, status.PendingCount)
	assert.Zero(t, f.exec.executed())
}

func TestCreateProductExecutesImmediatelyWhenOnline(t *testing.T) {
	f := newOfflineFixture(t, true)

	w := perform(f.router, http.MethodPost, "/api/v1/products",
		`{"name":"Matte Lipstick","sku":"MKP-100","cost_price":10,"sale_price":25}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"queued":false`)

	assert.Equal(t, 1, f.exec.executed())
	assert.Zero(t, f.queue.Status().PendingCount)
}

func TestCreateProductValidation(t *testing.T) {
	f := newOfflineFixture(t, true)

	w := perform(f.router, http.MethodPost, "/api/v1/products", `{"sku":"MKP-100"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateProductRejectsBadID(t *testing.T) {
	f := newOfflineFixture(t, true)

	w := perform(f.router, http.MethodPut, "/api/v1/products/not-a-uuid", `{"name":"Renamed"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdjustStockQueuedWhenOffline(t *testing.T) {
	f := newOfflineFixture(t, false)

	w := perform(f.router, http.MethodPost, "/api/v1/products/7b9e8f3a-1c2d-4e5f-8a9b-0c1d2e3f4a5b/stock",
		`{"delta":-3}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"queued":true`)

	pending := f.queue.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, models.ActionAdjustStock, pending[0].Type)
	assert.Contains(t, string(pending[0].Payload), `"stock_delta":-3`)
}

func TestAdjustStockValidation(t *testing.T) {
	f := newOfflineFixture(t, true)

	w := perform(f.router, http.MethodPost, "/api/v1/products/not-a-uuid/stock", `{"delta":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(f.router, http.MethodPost, "/api/v1/products/7b9e8f3a-1c2d-4e5f-8a9b-0c1d2e3f4a5b/stock", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateSaleQueuedWhenOffline(t *testing.T) {
	f := newOfflineFixture(t, false)

	w := perform(f.router, http.MethodPost, "/api/v1/sales",
		`{"payment_method":"card","total_amount":99.90,"item_count":2}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"queued":true`)

	w = perform(f.router, http.MethodPost, "/api/v1/sales", `{"total_amount":10}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestForceSyncDrainsQueue(t *testing.T) {
	f := newOfflineFixture(t, false)

	perform(f.router, http.MethodPost, "/api/v1/sales",
		`{"payment_method":"cash","total_amount":45.50}`)
	require.Equal(t, 1, f.queue.Status().PendingCount)

	f.monitor.SetOnline(true)
	w := perform(f.router, http.MethodPost, "/api/v1/offline/sync", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Zero(t, f.queue.Status().PendingCount)
	assert.Equal(t, 1, f.exec.executed())
}

func TestFailedActionsLifecycle(t *testing.T) {
	f := newOfflineFixture(t, false)
	f.exec.err = errors.New("backend rejected action")

	perform(f.router, http.MethodPost, "/api/v1/sales",
		`{"payment_method":"cash","total_amount":45.50}`)

	f.monitor.SetOnline(true)
	for i := 0; i < 3; i++ {
		perform(f.router, http.MethodPost, "/api/v1/offline/sync", "")
	}

	w := perform(f.router, http.MethodGet, "/api/v1/offline/failed", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, f.queue.Status().FailedCount)

	f.exec.err = nil
	w = perform(f.router, http.MethodPost, "/api/v1/offline/failed/retry", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"retried_count":1`)

	perform(f.router, http.MethodPost, "/api/v1/offline/sync", "")
	assert.Zero(t, f.queue.Status().PendingCount)
	assert.Zero(t, f.queue.Status().FailedCount)
	assert.Equal(t, 1, f.exec.executed())
}

func TestClearFailedEndpoint(t *testing.T) {
	f := newOfflineFixture(t, true)
	f.exec.err = errors.New("backend rejected action")

	perform(f.router, http.MethodPost, "/api/v1/sales",
		`{"payment_method":"cash","total_amount":45.50}`)
	for i := 0; i < 3; i++ {
		perform(f.router, http.MethodPost, "/api/v1/offline/sync", "")
	}
	require.Equal(t, 1, f.queue.Status().FailedCount)

	w := perform(f.router, http.MethodDelete, "/api/v1/offline/failed", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cleared_count":1`)
	assert.Zero(t, f.queue.Status().FailedCount)
}

func TestConnectivityEndpoint(t *testing.T) {
	f := newOfflineFixture(t, false)

	w := perform(f.router, http.MethodPut, "/api/v1/offline/connectivity", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(f.router, http.MethodPut, "/api/v1/offline/connectivity", `{"online":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, f.queue.Status().Online)
}

func TestHealthEndpoints(t *testing.T) {
	cfg := testConfig()
	tiered := cache.NewTieredCache(&cfg.Cache, cache.NewMemoryStore(), zap.NewNop())
	monitor := offline.NewManualMonitor(true)
	queue := offline.NewQueue(&cfg.Sync, cache.NewMemoryStore(), monitor, &recordingExecutor{}, zap.NewNop())
	t.Cleanup(func() { queue.Close() })
	source := hybrid.NewHybridSource(&cfg.Engine, hybrid.NewStaticSource(), hybrid.NewStaticSource(), nil, zap.NewNop())

	handler := NewHealthHandler(tiered, queue, source, zap.NewNop())
	router := gin.New()
	router.GET("/health", handler.Health)
	router.GET("/health/ready", handler.Ready)
	router.GET("/health/live", handler.Live)

	for _, path := range []string{"/health", "/health/ready", "/health/live"} {
		w := perform(router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestActivityTrailRecordsQueueEvents(t *testing.T) {
	f := newOfflineFixture(t, false)

	perform(f.router, http.MethodPost, "/api/v1/sales",
		`{"payment_method":"cash","total_amount":45.50}`)
	perform(f.router, http.MethodPost, "/api/v1/offline/sync", "")

	require.Eventually(t, func() bool {
		w := perform(f.router, http.MethodGet, "/api/v1/activity?type=action_queued", "")
		return w.Code == http.StatusOK && strings.Contains(w.Body.String(), `"count":1`)
	}, time.Second, 10*time.Millisecond)

	w := perform(f.router, http.MethodGet, "/api/v1/activity/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"queue_sync"`)
}
