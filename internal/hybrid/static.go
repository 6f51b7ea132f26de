package hybrid

import (
	"context"
	"time"

	"github.com/google/uuid"

	"retail-intel/internal/models"
)

// Fixed ids keep the static catalog stable across restarts so cached
// snapshots and queued actions keep referring to the same entities.
var (
	catMakeup   = uuid.MustParse("a1f0c2d4-0001-4a7e-9b1c-0d8e6f3a2b01")
	catSkincare = uuid.MustParse("a1f0c2d4-0002-4a7e-9b1c-0d8e6f3a2b02")
	catHair     = uuid.MustParse("a1f0c2d4-0003-4a7e-9b1c-0d8e6f3a2b03")
	catPerfume  = uuid.MustParse("a1f0c2d4-0004-4a7e-9b1c-0d8e6f3a2b04")

	staticEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// StaticSource serves a built-in demo catalog. It backs the dashboard when
// the remote source is unreachable and no cached snapshot survives.
type StaticSource struct {
	now func() time.Time
}

// NewStaticSource creates the built-in catalog source.
func NewStaticSource() *StaticSource {
	return &StaticSource{now: time.Now}
}

func (s *StaticSource) Name() string { return "static" }

// Fetch returns the embedded catalog. It never fails.
func (s *StaticSource) Fetch(ctx context.Context) (*Snapshot, error) {
	return &Snapshot{
		Products:   staticProducts(),
		Categories: staticCategories(),
		FetchedAt:  s.now(),
		Source:     s.Name(),
	}, nil
}

func staticCategories() []models.Category {
	return []models.Category{
		{ID: catMakeup, Name: "Makeup", Description: "Maquiagem e cosméticos", IsActive: true, CreatedAt: staticEpoch, UpdatedAt: staticEpoch},
		{ID: catSkincare, Name: "Skincare", Description: "Cuidados com a pele", IsActive: true, CreatedAt: staticEpoch, UpdatedAt: staticEpoch},
		{ID: catHair, Name: "Hair Care", Description: "Cuidados capilares", IsActive: true, CreatedAt: staticEpoch, UpdatedAt: staticEpoch},
		{ID: catPerfume, Name: "Perfume", Description: "Fragrâncias", IsActive: true, CreatedAt: staticEpoch, UpdatedAt: staticEpoch},
	}
}

func staticProducts() []models.Product {
	build := func(id string, name, sku string, cat uuid.UUID, cost, sale float64, stock, min int) models.Product {
		catID := cat
		return models.Product{
			ID:            uuid.MustParse(id),
			Name:          name,
			SKU:           sku,
			CostPrice:     cost,
			SalePrice:     sale,
			StockQuantity: stock,
			MinStock:      min,
			CategoryID:    &catID,
			IsActive:      true,
			CreatedAt:     staticEpoch,
			UpdatedAt:     staticEpoch,
		}
	}

	return []models.Product{
		build("b2e1d3c5-0001-4f8a-8c2d-1e9f7a4b3c01", "Matte Lipstick Ruby", "MKP-001", catMakeup, 12.50, 34.90, 42, 10),
		build("b2e1d3c5-0002-4f8a-8c2d-1e9f7a4b3c02", "Liquid Foundation Beige 30", "MKP-002", catMakeup, 22.00, 59.90, 8, 10),
		build("b2e1d3c5-0003-4f8a-8c2d-1e9f7a4b3c03", "Volume Mascara Black", "MKP-003", catMakeup, 9.80, 29.90, 0, 8),
		build("b2e1d3c5-0004-4f8a-8c2d-1e9f7a4b3c04", "Eyeshadow Palette Sunset", "MKP-004", catMakeup, 28.00, 89.90, 25, 5),
		build("b2e1d3c5-0005-4f8a-8c2d-1e9f7a4b3c05", "Vitamin C Serum 30ml", "SKN-001", catSkincare, 31.00, 79.90, 18, 6),
		build("b2e1d3c5-0006-4f8a-8c2d-1e9f7a4b3c06", "Hyaluronic Moisturizer", "SKN-002", catSkincare, 19.50, 49.90, 33, 8),
		build("b2e1d3c5-0007-4f8a-8c2d-1e9f7a4b3c07", "SPF 50 Facial Sunscreen", "SKN-003", catSkincare, 24.00, 54.90, 4, 6),
		build("b2e1d3c5-0008-4f8a-8c2d-1e9f7a4b3c08", "Repair Shampoo 300ml", "HAR-001", catHair, 11.00, 27.90, 51, 12),
		build("b2e1d3c5-0009-4f8a-8c2d-1e9f7a4b3c09", "Keratin Hair Mask", "HAR-002", catHair, 16.50, 39.90, 22, 6),
		build("b2e1d3c5-0010-4f8a-8c2d-1e9f7a4b3c10", "Argan Oil Finisher", "HAR-003", catHair, 21.00, 25.90, 14, 5),
		build("b2e1d3c5-0011-4f8a-8c2d-1e9f7a4b3c11", "Eau de Parfum Floral 50ml", "PRF-001", catPerfume, 68.00, 189.90, 9, 3),
		build("b2e1d3c5-0012-4f8a-8c2d-1e9f7a4b3c12", "Body Splash Citrus", "PRF-002", catPerfume, 14.00, 36.90, 27, 8),
	}
}
