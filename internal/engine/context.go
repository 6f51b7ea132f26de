package engine

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"retail-intel/internal/models"
)

// SalesData summarizes real sales history for one product over a period.
type SalesData struct {
	ProductID uuid.UUID `json:"product_id"`
	UnitsSold int       `json:"units_sold"`
	Revenue   float64   `json:"revenue"`
	Period    string    `json:"period"`
}

// SalesDataProvider supplies sales aggregates to the rule engine. The engine
// never generates its own numbers; integrations plug real history in here.
type SalesDataProvider interface {
	SalesFor(productID uuid.UUID) SalesData
}

// NoopSalesProvider returns empty sales data for every product. It is the
// default when no real history source is wired.
type NoopSalesProvider struct{}

// SalesFor implements SalesDataProvider.
func (NoopSalesProvider) SalesFor(productID uuid.UUID) SalesData {
	return SalesData{ProductID: productID}
}

// StaticSalesProvider serves a fixed map of sales aggregates, mainly for tests
// and seeded environments.
type StaticSalesProvider map[uuid.UUID]SalesData

// SalesFor implements SalesDataProvider.
func (p StaticSalesProvider) SalesFor(productID uuid.UUID) SalesData {
	if sd, ok := p[productID]; ok {
		return sd
	}
	return SalesData{ProductID: productID}
}

// Context bundles the shared inputs of one evaluation pass: the category
// list, the evaluation time, a seasonality label, and the sales provider.
type Context struct {
	Categories       []models.Category
	Now              time.Time
	Season           string
	Sales            SalesDataProvider
	SeasonalKeywords []string

	categoryByID map[uuid.UUID]models.Category
}

// NewContext builds an evaluation context for the given snapshot and time.
func NewContext(categories []models.Category, now time.Time, sales SalesDataProvider, seasonalKeywords []string) *Context {
	if sales == nil {
		sales = NoopSalesProvider{}
	}
	if len(seasonalKeywords) == 0 {
		seasonalKeywords = []string{"makeup", "maquiagem"}
	}

	byID := make(map[uuid.UUID]models.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	return &Context{
		Categories:       categories,
		Now:              now,
		Season:           seasonLabel(now.Month()),
		Sales:            sales,
		SeasonalKeywords: seasonalKeywords,
		categoryByID:     byID,
	}
}

// CategoryName resolves a category reference to its name, or "" when the
// reference is nil or dangling.
func (c *Context) CategoryName(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	if cat, ok := c.categoryByID[*id]; ok {
		return cat.Name
	}
	return ""
}

// IsSeasonalCategory reports whether the referenced category name matches one
// of the configured seasonal keywords.
func (c *Context) IsSeasonalCategory(id *uuid.UUID) bool {
	name := strings.ToLower(c.CategoryName(id))
	if name == "" {
		return false
	}
	for _, kw := range c.SeasonalKeywords {
		if strings.Contains(name, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// seasonLabel maps a month to a coarse seasonality label.
func seasonLabel(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "holiday"
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "mid_year"
	default:
		return "fall"
	}
}
