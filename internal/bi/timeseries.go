package bi

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"retail-intel/internal/config"
	"retail-intel/internal/models"
)

// TimeSeriesGenerator synthesizes a daily trend series from the current
// snapshot value. It is an explicit stand-in for real sales history: an
// integration with actual history should replace this generator while
// preserving the point shape.
type TimeSeriesGenerator struct {
	logger *zap.Logger
	days   int
	seed   int64
	now    func() time.Time
}

// NewTimeSeriesGenerator creates a generator producing cfg.TimeSeriesDays
// points. A zero seed derives one from the current date so the series is
// stable within a day but varies across days.
func NewTimeSeriesGenerator(cfg *config.EngineConfig, logger *zap.Logger) *TimeSeriesGenerator {
	days := 30
	var seed int64
	if cfg != nil {
		if cfg.TimeSeriesDays > 0 {
			days = cfg.TimeSeriesDays
		}
		seed = cfg.TimeSeriesSeed
	}
	return &TimeSeriesGenerator{
		logger: logger,
		days:   days,
		seed:   seed,
		now:    time.Now,
	}
}

// WithClock overrides the generator's clock, mainly for tests.
func (g *TimeSeriesGenerator) WithClock(now func() time.Time) *TimeSeriesGenerator {
	g.now = now
	return g
}

// Series produces the synthetic daily points, oldest first, ending today.
func (g *TimeSeriesGenerator) Series(products []models.Product) []models.TimeSeriesPoint {
	now := g.now()

	inventoryValue := 0.0
	totalUnits := 0
	for _, p := range products {
		inventoryValue += p.SalePrice * float64(p.StockQuantity)
		totalUnits += p.StockQuantity
	}

	seed := g.seed
	if seed == 0 {
		seed = now.Truncate(24 * time.Hour).Unix()
	}
	rng := rand.New(rand.NewSource(seed))

	// Daily baseline: assume the inventory turns roughly once over the
	// window, then apply bounded per-day variance.
	dailyRevenue := inventoryValue / float64(g.days)
	dailyUnits := float64(totalUnits) / float64(g.days)

	points := make([]models.TimeSeriesPoint, 0, g.days)
	day := now.AddDate(0, 0, -(g.days - 1))
	for i := 0; i < g.days; i++ {
		variance := 0.8 + rng.Float64()*0.4 // 0.8 .. 1.2
		revenue := dailyRevenue * variance

		sold := int(dailyUnits * variance)
		orders := sold / 2
		if sold > 0 && orders == 0 {
			orders = 1
		}

		avgOrder := 0.0
		if orders > 0 {
			avgOrder = revenue / float64(orders)
		}

		points = append(points, models.TimeSeriesPoint{
			Date: time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location()),
			Metrics: models.TimeSeriesMetrics{
				Revenue:        revenue,
				Orders:         orders,
				ProductsSold:   sold,
				AvgOrderValue:  avgOrder,
				ConversionRate: 0.02 + rng.Float64()*0.03,
			},
		})
		day = day.AddDate(0, 0, 1)
	}

	g.logger.Debug("time series synthesized",
		zap.Int("points", len(points)),
		zap.Float64("inventory_value", inventoryValue))

	return points
}
