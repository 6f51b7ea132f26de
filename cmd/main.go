package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"retail-intel/internal/api"
	"retail-intel/internal/cache"
	"retail-intel/internal/config"
	"retail-intel/internal/hybrid"
	"retail-intel/internal/metrics"
	"retail-intel/internal/models"
	"retail-intel/internal/monitoring"
	"retail-intel/internal/offline"
	"retail-intel/internal/repository"
	"retail-intel/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Configuration
		fx.Provide(config.NewConfig),

		// Logging
		fx.Provide(NewLogger),

		// Database
		fx.Provide(repository.NewPostgresDB),
		fx.Provide(repository.NewProductRepository),
		fx.Provide(repository.NewCategoryRepository),
		fx.Provide(repository.NewSaleRepository),

		// Cache
		fx.Provide(cache.NewPersistentStore),
		fx.Provide(NewTieredCache),

		// Offline queue
		fx.Provide(NewConnectivityMonitor),
		fx.Provide(services.NewActionExecutor),
		fx.Provide(NewOfflineQueue),

		// Data sources
		fx.Provide(NewRemoteSource),
		fx.Provide(hybrid.NewStaticSource),
		fx.Provide(NewHybridSource),

		// Metrics
		fx.Provide(NewMetricsCollector),
		fx.Provide(monitoring.NewActivityLog),

		// Services
		fx.Provide(services.NewIntelService),

		// API
		fx.Provide(NewGinEngine),
		fx.Provide(api.NewDashboardHandler),
		fx.Provide(api.NewProductHandler),
		fx.Provide(api.NewSalesHandler),
		fx.Provide(api.NewOfflineHandler),
		fx.Provide(api.NewActivityHandler),
		fx.Provide(api.NewHealthHandler),

		// HTTP Server
		fx.Provide(NewHTTPServer),

		// Lifecycle
		fx.Invoke(RegisterRoutes),
		fx.Invoke(WireQueueMetrics),
		fx.Invoke(StartBackground),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	if !cfg.Logging.Development {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func NewTieredCache(cfg *config.Config, store cache.PersistentStore, collector *metrics.MetricsCollector, logger *zap.Logger) *cache.TieredCache {
	return cache.NewTieredCache(&cfg.Cache, store, logger).WithRecorder(collector)
}

func NewConnectivityMonitor() *offline.ManualMonitor {
	return offline.NewManualMonitor(true)
}

func NewOfflineQueue(cfg *config.Config, store cache.PersistentStore, monitor *offline.ManualMonitor, exec *services.ActionExecutor, logger *zap.Logger) *offline.Queue {
	return offline.NewQueue(&cfg.Sync, store, monitor, exec, logger)
}

func NewRemoteSource(products *repository.ProductRepository, categories *repository.CategoryRepository, logger *zap.Logger) *hybrid.RemoteSource {
	return hybrid.NewRemoteSource(products, categories, logger)
}

func NewHybridSource(cfg *config.Config, remote *hybrid.RemoteSource, static *hybrid.StaticSource, tiered *cache.TieredCache, logger *zap.Logger) *hybrid.HybridSource {
	return hybrid.NewHybridSource(&cfg.Engine, remote, static, tiered, logger)
}

func NewMetricsCollector(cfg *config.Config, logger *zap.Logger) *metrics.MetricsCollector {
	return metrics.NewMetricsCollector(&cfg.Metrics, logger)
}

func NewGinEngine(cfg *config.Config, collector *metrics.MetricsCollector) *gin.Engine {
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())
	engine.Use(api.MetricsMiddleware(collector))

	// CORS middleware
	engine.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	return engine
}

func NewHTTPServer(cfg *config.Config, engine *gin.Engine) *http.Server {
	return &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        engine,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
}

func RegisterRoutes(
	engine *gin.Engine,
	dashboardHandler *api.DashboardHandler,
	productHandler *api.ProductHandler,
	salesHandler *api.SalesHandler,
	offlineHandler *api.OfflineHandler,
	activityHandler *api.ActivityHandler,
	healthHandler *api.HealthHandler,
) {
	// Health endpoints
	engine.GET("/health", healthHandler.Health)
	engine.GET("/health/ready", healthHandler.Ready)
	engine.GET("/health/live", healthHandler.Live)

	// Metrics endpoint
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API v1 routes
	v1 := engine.Group("/api/v1")
	{
		// Dashboard
		v1.GET("/dashboard", dashboardHandler.GetDashboard)
		v1.POST("/dashboard/refresh", dashboardHandler.RefreshDashboard)
		v1.GET("/recommendations", dashboardHandler.GetRecommendations)
		v1.POST("/recommendations/:id/implement", dashboardHandler.ImplementRecommendation)
		v1.GET("/insights", dashboardHandler.GetInsights)
		v1.GET("/bi/metrics", dashboardHandler.GetMetrics)
		v1.GET("/bi/dimensions", dashboardHandler.GetDimensions)
		v1.GET("/bi/timeseries", dashboardHandler.GetTimeSeries)
		v1.GET("/source", dashboardHandler.GetSourceMode)
		v1.PUT("/source", dashboardHandler.SetSourceMode)

		// Catalog
		v1.GET("/products", productHandler.ListProducts)
		v1.GET("/products/:id", productHandler.GetProduct)
		v1.POST("/products", productHandler.CreateProduct)
		v1.PUT("/products/:id", productHandler.UpdateProduct)
		v1.POST("/products/:id/stock", productHandler.AdjustStock)
		v1.DELETE("/products/:id", productHandler.DeleteProduct)
		v1.GET("/categories", productHandler.ListCategories)

		// Sales
		v1.GET("/sales", salesHandler.ListSales)
		v1.POST("/sales", salesHandler.CreateSale)

		// Offline queue
		v1.GET("/offline/status", offlineHandler.GetStatus)
		v1.GET("/offline/pending", offlineHandler.GetPending)
		v1.POST("/offline/sync", offlineHandler.ForceSync)
		v1.GET("/offline/failed", offlineHandler.GetFailed)
		v1.POST("/offline/failed/retry", offlineHandler.RetryFailed)
		v1.DELETE("/offline/failed", offlineHandler.ClearFailed)
		v1.PUT("/offline/connectivity", offlineHandler.SetConnectivity)

		// Activity trail
		v1.GET("/activity", activityHandler.GetActivity)
		v1.GET("/activity/summary", activityHandler.GetActivitySummary)
	}
}

// WireQueueMetrics feeds queue state changes and sync passes into the
// Prometheus gauges and counters.
func WireQueueMetrics(queue *offline.Queue, collector *metrics.MetricsCollector) {
	queue.Subscribe(func(s models.QueueStatus) {
		collector.UpdateOfflineQueue(s.PendingCount, s.FailedCount, s.DroppedCount)
	})
	queue.OnSync(collector.RecordOfflineSync)

	status := queue.Status()
	collector.UpdateOfflineQueue(status.PendingCount, status.FailedCount, status.DroppedCount)
}

func StartBackground(
	lc fx.Lifecycle,
	tiered *cache.TieredCache,
	queue *offline.Queue,
	service *services.IntelService,
	activity *monitoring.ActivityLog,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			tiered.Start()
			queue.Start()
			service.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := service.Close(); err != nil {
				return err
			}
			if err := queue.Close(); err != nil {
				return err
			}
			if err := activity.Close(); err != nil {
				return err
			}
			return tiered.Close()
		},
	})
}

func StartServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	server *http.Server,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting Retail Intel Service",
				zap.String("addr", server.Addr))

			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal("Failed to start server", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down Retail Intel Service")

			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()

			return server.Shutdown(shutdownCtx)
		},
	})

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Received shutdown signal")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
	}()
}
