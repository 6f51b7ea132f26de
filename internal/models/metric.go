package models

import "time"

// MetricFormat tells the presentation layer how to render a metric value.
type MetricFormat string

const (
	FormatCurrency   MetricFormat = "currency"
	FormatNumber     MetricFormat = "number"
	FormatPercentage MetricFormat = "percentage"
)

// MetricCategory groups metrics for dashboard layout.
type MetricCategory string

const (
	MetricFinancial   MetricCategory = "financial"
	MetricOperational MetricCategory = "operational"
	MetricPerformance MetricCategory = "performance"
	MetricStrategic   MetricCategory = "strategic"
)

// Trend describes the direction of a metric relative to its previous value.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// Metric is a named dashboard figure with optional comparison fields.
type Metric struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Value         float64        `json:"value"`
	PreviousValue *float64       `json:"previous_value,omitempty"`
	Change        *float64       `json:"change,omitempty"`
	ChangePercent *float64       `json:"change_percent,omitempty"`
	Trend         Trend          `json:"trend"`
	Format        MetricFormat   `json:"format"`
	Category      MetricCategory `json:"category"`
	Priority      Priority       `json:"priority"`
	Description   string         `json:"description,omitempty"`
	Target        *float64       `json:"target,omitempty"`
	Benchmark     *float64       `json:"benchmark,omitempty"`
}

// DimensionItem is one slice of a dimensional breakdown.
type DimensionItem struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// Dimension is an ordered breakdown of a metric across a grouping,
// e.g. revenue by category.
type Dimension struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Items []DimensionItem `json:"items"`
}

// TimeSeriesMetrics is the fixed metric set carried by each synthetic
// time-series point.
type TimeSeriesMetrics struct {
	Revenue        float64 `json:"revenue"`
	Orders         int     `json:"orders"`
	ProductsSold   int     `json:"products_sold"`
	AvgOrderValue  float64 `json:"avg_order_value"`
	ConversionRate float64 `json:"conversion_rate"`
}

// TimeSeriesPoint is one daily sample of the trend series.
type TimeSeriesPoint struct {
	Date    time.Time         `json:"date"`
	Metrics TimeSeriesMetrics `json:"metrics"`
}
