package hybrid

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"retail-intel/internal/models"
)

// ProductLister and CategoryLister are the repository surface the remote
// source needs.
type ProductLister interface {
	List(ctx context.Context, q *models.ProductQuery) ([]models.Product, error)
}

type CategoryLister interface {
	List(ctx context.Context) ([]models.Category, error)
}

// RemoteSource fetches snapshots from the backing database.
type RemoteSource struct {
	products   ProductLister
	categories CategoryLister
	logger     *zap.Logger
	now        func() time.Time
}

// NewRemoteSource creates a database-backed source.
func NewRemoteSource(products ProductLister, categories CategoryLister, logger *zap.Logger) *RemoteSource {
	return &RemoteSource{
		products:   products,
		categories: categories,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *RemoteSource) Name() string { return "remote" }

// Fetch loads the full catalog from the database.
func (s *RemoteSource) Fetch(ctx context.Context) (*Snapshot, error) {
	start := time.Now()

	products, err := s.products.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}

	s.logger.Debug("remote snapshot fetched",
		zap.Int("products", len(products)),
		zap.Int("categories", len(categories)),
		zap.Duration("duration", time.Since(start)))

	return &Snapshot{
		Products:   products,
		Categories: categories,
		FetchedAt:  s.now(),
		Source:     s.Name(),
	}, nil
}
