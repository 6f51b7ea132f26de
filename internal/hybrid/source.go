package hybrid

import (
	"context"
	"time"

	"retail-intel/internal/models"
)

// Snapshot is a point-in-time view of the catalog. Fallback marks data
// served from the static source after the remote failed; Err carries the
// remote error text in that case.
type Snapshot struct {
	Products   []models.Product  `json:"products"`
	Categories []models.Category `json:"categories"`
	FetchedAt  time.Time         `json:"fetched_at"`
	Source     string            `json:"source"`
	Fallback   bool              `json:"fallback,omitempty"`
	Err        string            `json:"error,omitempty"`
}

// Source supplies catalog snapshots.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (*Snapshot, error)
}
