package insights

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"retail-intel/internal/config"
	"retail-intel/internal/models"
)

// Fixed heuristic thresholds. These are exact contracts, not tunables:
// downstream assertions depend on the cutoffs.
const (
	fastMoverCount       = 3
	slowMoverMultiplier  = 3
	overstockMultiplier  = 5
	crossSellConfidence  = 0.65
	upsellConfidence     = 0.55
	upsellPriceRatio     = 1.5
	bundleExpectedLift   = 0.15
	priceCompetitionEdge = 0.25
)

// Trends groups products by movement pattern.
type Trends struct {
	FastMovers []models.Product `json:"fast_movers"`
	SlowMovers []models.Product `json:"slow_movers"`
	Seasonal   []models.Product `json:"seasonal"`
	Declining  []models.Product `json:"declining"`
}

// CrossSellSuggestion pairs a product with same-category siblings to offer
// alongside it.
type CrossSellSuggestion struct {
	ProductID   uuid.UUID        `json:"product_id"`
	ProductName string           `json:"product_name"`
	Related     []models.Product `json:"related"`
	Confidence  float64          `json:"confidence"`
}

// UpsellSuggestion points from a product to a pricier same-category upgrade.
type UpsellSuggestion struct {
	ProductID   uuid.UUID      `json:"product_id"`
	ProductName string         `json:"product_name"`
	Upgrade     models.Product `json:"upgrade"`
	Confidence  float64        `json:"confidence"`
}

// BundleSuggestion proposes selling a flagged category's products together.
type BundleSuggestion struct {
	CategoryID   uuid.UUID        `json:"category_id"`
	CategoryName string           `json:"category_name"`
	Products     []models.Product `json:"products"`
	ExpectedLift float64          `json:"expected_lift"`
}

// Opportunities groups sales-expansion candidates.
type Opportunities struct {
	CrossSell []CrossSellSuggestion `json:"cross_sell"`
	Upsell    []UpsellSuggestion    `json:"upsell"`
	Bundles   []BundleSuggestion    `json:"bundles"`
}

// Risks buckets products by exposure.
type Risks struct {
	Overstock        []models.Product `json:"overstock"`
	Understock       []models.Product `json:"understock"`
	PriceCompetition []models.Product `json:"price_competition"`
}

// Analysis is the full output of one analyzer pass over a snapshot.
type Analysis struct {
	Trends        Trends        `json:"trends"`
	Opportunities Opportunities `json:"opportunities"`
	Risks         Risks         `json:"risks"`
	GeneratedAt   time.Time     `json:"generated_at"`
}

// Analyzer derives categorical groupings from a product/category snapshot.
// It holds no state between calls.
type Analyzer struct {
	logger           *zap.Logger
	seasonalKeywords []string
	now              func() time.Time
}

// NewAnalyzer creates an analyzer using the engine's seasonal keyword list.
func NewAnalyzer(cfg *config.EngineConfig, logger *zap.Logger) *Analyzer {
	keywords := []string{"makeup", "maquiagem"}
	if cfg != nil && len(cfg.SeasonalKeywords) > 0 {
		keywords = cfg.SeasonalKeywords
	}
	return &Analyzer{
		logger:           logger,
		seasonalKeywords: keywords,
		now:              time.Now,
	}
}

// WithClock overrides the analyzer's clock, mainly for tests.
func (a *Analyzer) WithClock(now func() time.Time) *Analyzer {
	a.now = now
	return a
}

// Analyze computes trends, opportunities, and risks for the snapshot. Pure
// function of its inputs and the current time.
func (a *Analyzer) Analyze(products []models.Product, categories []models.Category) Analysis {
	start := a.now()

	flagged := a.flaggedCategories(categories)
	byCategory := groupByCategory(products)

	analysis := Analysis{
		Trends: Trends{
			FastMovers: fastMovers(products),
			SlowMovers: slowMovers(products),
			Seasonal:   a.seasonalProducts(products, flagged, start),
			Declining:  decliningProducts(products),
		},
		Opportunities: Opportunities{
			CrossSell: crossSell(byCategory, flagged),
			Upsell:    upsell(byCategory),
			Bundles:   bundles(byCategory, flagged),
		},
		Risks: Risks{
			Overstock:        filterProducts(products, func(p models.Product) bool { return p.StockQuantity > overstockMultiplier*p.MinStock }),
			Understock:       filterProducts(products, func(p models.Product) bool { return p.StockQuantity <= p.MinStock }),
			PriceCompetition: filterProducts(products, func(p models.Product) bool { return p.Margin() < priceCompetitionEdge }),
		},
		GeneratedAt: start,
	}

	a.logger.Debug("snapshot analyzed",
		zap.Int("products", len(products)),
		zap.Int("fast_movers", len(analysis.Trends.FastMovers)),
		zap.Int("cross_sell", len(analysis.Opportunities.CrossSell)),
		zap.Int("understock", len(analysis.Risks.Understock)))

	return analysis
}

// flaggedCategories returns the ids of categories matching the seasonal
// keyword list.
func (a *Analyzer) flaggedCategories(categories []models.Category) map[uuid.UUID]models.Category {
	flagged := make(map[uuid.UUID]models.Category)
	for _, c := range categories {
		name := strings.ToLower(c.Name)
		for _, kw := range a.seasonalKeywords {
			if strings.Contains(name, strings.ToLower(kw)) {
				flagged[c.ID] = c
				break
			}
		}
	}
	return flagged
}

// fastMovers returns the top products by sale price among in-stock items.
// Price stands in for velocity until real sales history is wired.
func fastMovers(products []models.Product) []models.Product {
	inStock := filterProducts(products, func(p models.Product) bool { return p.StockQuantity > 0 })
	sort.SliceStable(inStock, func(i, j int) bool {
		return inStock[i].SalePrice > inStock[j].SalePrice
	})
	if len(inStock) > fastMoverCount {
		inStock = inStock[:fastMoverCount]
	}
	return inStock
}

func slowMovers(products []models.Product) []models.Product {
	return filterProducts(products, func(p models.Product) bool {
		return p.StockQuantity > slowMoverMultiplier*p.MinStock
	})
}

// seasonalProducts surfaces flagged-category products during winter months
// only (November through January).
func (a *Analyzer) seasonalProducts(products []models.Product, flagged map[uuid.UUID]models.Category, now time.Time) []models.Product {
	switch now.Month() {
	case time.November, time.December, time.January:
	default:
		return nil
	}
	return filterProducts(products, func(p models.Product) bool {
		if p.CategoryID == nil {
			return false
		}
		_, ok := flagged[*p.CategoryID]
		return ok
	})
}

// decliningProducts are in-stock items carrying an active discount.
func decliningProducts(products []models.Product) []models.Product {
	return filterProducts(products, func(p models.Product) bool {
		return p.StockQuantity > 0 && p.DiscountPercent > 0
	})
}

// crossSell suggests, for every product in a flagged category, up to two
// same-category siblings.
func crossSell(byCategory map[uuid.UUID][]models.Product, flagged map[uuid.UUID]models.Category) []CrossSellSuggestion {
	var out []CrossSellSuggestion
	for catID := range flagged {
		group := byCategory[catID]
		for _, p := range group {
			var related []models.Product
			for _, sibling := range group {
				if sibling.ID == p.ID {
					continue
				}
				related = append(related, sibling)
				if len(related) == 2 {
					break
				}
			}
			if len(related) == 0 {
				continue
			}
			out = append(out, CrossSellSuggestion{
				ProductID:   p.ID,
				ProductName: p.Name,
				Related:     related,
				Confidence:  crossSellConfidence,
			})
		}
	}
	return out
}

// upsell finds, for each product, the cheapest same-category alternative
// priced at least 1.5x higher.
func upsell(byCategory map[uuid.UUID][]models.Product) []UpsellSuggestion {
	var out []UpsellSuggestion
	for _, group := range byCategory {
		for _, p := range group {
			var best *models.Product
			for i := range group {
				alt := group[i]
				if alt.ID == p.ID || alt.SalePrice < p.SalePrice*upsellPriceRatio {
					continue
				}
				if best == nil || alt.SalePrice < best.SalePrice {
					best = &group[i]
				}
			}
			if best == nil {
				continue
			}
			out = append(out, UpsellSuggestion{
				ProductID:   p.ID,
				ProductName: p.Name,
				Upgrade:     *best,
				Confidence:  upsellConfidence,
			})
		}
	}
	return out
}

// bundles proposes a bundle for every flagged category holding two or more
// products.
func bundles(byCategory map[uuid.UUID][]models.Product, flagged map[uuid.UUID]models.Category) []BundleSuggestion {
	var out []BundleSuggestion
	for catID, cat := range flagged {
		group := byCategory[catID]
		if len(group) < 2 {
			continue
		}
		out = append(out, BundleSuggestion{
			CategoryID:   catID,
			CategoryName: cat.Name,
			Products:     group,
			ExpectedLift: bundleExpectedLift,
		})
	}
	return out
}

func groupByCategory(products []models.Product) map[uuid.UUID][]models.Product {
	byCategory := make(map[uuid.UUID][]models.Product)
	for _, p := range products {
		if p.CategoryID == nil {
			continue
		}
		byCategory[*p.CategoryID] = append(byCategory[*p.CategoryID], p)
	}
	return byCategory
}

func filterProducts(products []models.Product, keep func(models.Product) bool) []models.Product {
	var out []models.Product
	for _, p := range products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
