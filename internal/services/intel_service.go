package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"retail-intel/internal/bi"
	"retail-intel/internal/config"
	"retail-intel/internal/engine"
	"retail-intel/internal/hybrid"
	"retail-intel/internal/insights"
	"retail-intel/internal/metrics"
	"retail-intel/internal/models"
)

// DashboardData is the full analytical result computed from one catalog
// snapshot. It is rebuilt on refresh and served as a unit so every panel
// of the dashboard reflects the same snapshot.
type DashboardData struct {
	Metrics     []models.Metric          `json:"metrics"`
	Dimensions  []models.Dimension       `json:"dimensions"`
	Insights    []models.Insight         `json:"insights"`
	TimeSeries  []models.TimeSeriesPoint `json:"time_series"`
	Analysis    insights.Analysis        `json:"analysis"`
	Source      string                   `json:"source"`
	Fallback    bool                     `json:"fallback,omitempty"`
	SourceErr   string                   `json:"source_error,omitempty"`
	RefreshedAt time.Time                `json:"refreshed_at"`
}

// IntelService orchestrates the snapshot pipeline: fetch the catalog, run
// the rule engine, compute insights and dashboard metrics, and keep the
// recommendation store current.
type IntelService struct {
	config     *config.Config
	logger     *zap.Logger
	source     *hybrid.HybridSource
	engine     *engine.Engine
	store      *engine.Store
	analyzer   *insights.Analyzer
	aggregator *bi.Aggregator
	generator  *bi.Generator
	timeseries *bi.TimeSeriesGenerator
	collector  *metrics.MetricsCollector
	sales      engine.SalesDataProvider
	now        func() time.Time

	mu        sync.RWMutex
	dashboard *DashboardData

	stop     chan struct{}
	stopOnce sync.Once
}

// NewIntelService creates the service and its computation pipeline.
func NewIntelService(cfg *config.Config, source *hybrid.HybridSource, collector *metrics.MetricsCollector, logger *zap.Logger) *IntelService {
	engineCfg := &cfg.Engine
	return &IntelService{
		config:     cfg,
		logger:     logger,
		source:     source,
		engine:     engine.NewEngine(engineCfg, logger),
		store:      engine.NewStore(),
		analyzer:   insights.NewAnalyzer(engineCfg, logger),
		aggregator: bi.NewAggregator(engineCfg, logger),
		generator:  bi.NewGenerator(engineCfg, logger),
		timeseries: bi.NewTimeSeriesGenerator(engineCfg, logger),
		collector:  collector,
		sales:      engine.NoopSalesProvider{},
		now:        time.Now,
		stop:       make(chan struct{}),
	}
}

// WithClock overrides the service clock, mainly for tests. The pipeline
// components keep their own clocks; tests set those separately.
func (s *IntelService) WithClock(now func() time.Time) *IntelService {
	s.now = now
	return s
}

// SetSalesProvider wires a sales history source into rule evaluation.
func (s *IntelService) SetSalesProvider(p engine.SalesDataProvider) {
	if p != nil {
		s.sales = p
	}
}

// Engine exposes the rule engine for custom rule registration.
func (s *IntelService) Engine() *engine.Engine {
	return s.engine
}

// Store exposes the recommendation store.
func (s *IntelService) Store() *engine.Store {
	return s.store
}

// Source exposes the hybrid data source for mode control.
func (s *IntelService) Source() *hybrid.HybridSource {
	return s.source
}

// Start launches the periodic refresh loop. Stop it with Close.
func (s *IntelService) Start() {
	interval := s.config.Engine.RefreshInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.Refresh(context.Background()); err != nil {
					s.logger.Warn("periodic refresh failed", zap.Error(err))
				}
			case <-s.stop:
				return
			}
		}
	}()
}

// Close stops the refresh loop.
func (s *IntelService) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// Dashboard returns the current dashboard data, computing it on first use
// or when the cached result aged past the results TTL.
func (s *IntelService) Dashboard(ctx context.Context) (*DashboardData, error) {
	ttl := s.config.Engine.ResultsCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	s.mu.RLock()
	current := s.dashboard
	s.mu.RUnlock()

	if current != nil && s.now().Sub(current.RefreshedAt) < ttl {
		return current, nil
	}
	return s.Refresh(ctx)
}

// Refresh fetches a fresh snapshot and recomputes every analytical result.
func (s *IntelService) Refresh(ctx context.Context) (*DashboardData, error) {
	start := time.Now()

	snap, err := s.source.Fetch(ctx)
	if err != nil {
		s.collector.RecordSnapshotFetch("hybrid", "error", time.Since(start))
		return nil, fmt.Errorf("failed to fetch snapshot: %w", err)
	}

	fetchResult := "success"
	if snap.Fallback {
		fetchResult = "fallback"
	}
	s.collector.RecordSnapshotFetch(snap.Source, fetchResult, time.Since(start))

	data, err := s.compute(snap)
	if err != nil {
		s.collector.RecordEvaluation("error", time.Since(start))
		return nil, err
	}
	s.collector.RecordEvaluation("success", time.Since(start))

	s.mu.Lock()
	s.dashboard = data
	s.mu.Unlock()

	s.logger.Info("dashboard refreshed",
		zap.String("source", snap.Source),
		zap.Bool("fallback", snap.Fallback),
		zap.Int("products", len(snap.Products)),
		zap.Int("recommendations", s.store.Len()),
		zap.Int("insights", len(data.Insights)),
		zap.Duration("duration", time.Since(start)))

	return data, nil
}

// compute runs the full pipeline over a snapshot. A panic anywhere in the
// computation is recovered into an error so one bad snapshot cannot take
// the service down.
func (s *IntelService) compute(snap *hybrid.Snapshot) (data *DashboardData, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("dashboard computation panicked", zap.Any("panic", r))
			data = nil
			err = fmt.Errorf("dashboard computation failed: %v", r)
		}
	}()

	now := s.now()
	evalCtx := engine.NewContext(snap.Categories, now, s.sales, s.config.Engine.SeasonalKeywords)

	recs := s.engine.Evaluate(snap.Products, evalCtx)
	s.store.Replace(recs)
	s.store.SweepExpired(now)

	byPriority := make(map[string]int)
	for _, rec := range s.store.All() {
		byPriority[string(rec.Priority)]++
	}
	s.collector.UpdateRecommendationCounts(byPriority)

	generated := s.generator.Insights(snap.Products, snap.Categories)
	for _, ins := range generated {
		s.collector.RecordInsight(string(ins.Type))
	}

	return &DashboardData{
		Metrics:     s.aggregator.Metrics(snap.Products, snap.Categories),
		Dimensions:  s.aggregator.Dimensions(snap.Products, snap.Categories),
		Insights:    generated,
		TimeSeries:  s.timeseries.Series(snap.Products),
		Analysis:    s.analyzer.Analyze(snap.Products, snap.Categories),
		Source:      snap.Source,
		Fallback:    snap.Fallback,
		SourceErr:   snap.Err,
		RefreshedAt: now,
	}, nil
}

// Recommendations returns the active recommendations, optionally filtered
// by priority and type. Empty filter values match everything.
func (s *IntelService) Recommendations(ctx context.Context, priority models.Priority, recType models.RecommendationType) ([]models.Recommendation, error) {
	if _, err := s.Dashboard(ctx); err != nil {
		return nil, err
	}

	recs := s.store.All()
	if priority == "" && recType == "" {
		return recs, nil
	}

	filtered := make([]models.Recommendation, 0, len(recs))
	for _, rec := range recs {
		if priority != "" && rec.Priority != priority {
			continue
		}
		if recType != "" && rec.Type != recType {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered, nil
}

// ImplementRecommendation marks a recommendation as acted on.
func (s *IntelService) ImplementRecommendation(id string) bool {
	return s.store.MarkImplemented(id)
}
