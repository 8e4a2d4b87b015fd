package tracking

import (
	"context"

	"github.com/BearBump/PackBox/internal/models"
)

// TrackingData is what the provider knows about a code right after
// subscription: the current tag and whatever checkpoints already exist
// (often none for a fresh shipment).
type TrackingData struct {
	Status   string
	Timeline []models.Checkpoint
}

type Provider interface {
	// CreateTracking registers the code with the provider (carrier
	// auto-detected) and returns the initial state. Unknown/invalid codes
	// fail with models.ErrNotFound, anything else with models.ErrProviderFailure.
	CreateTracking(ctx context.Context, code string) (TrackingData, error)
	// DeleteTracking unregisters the code. Callers decide whether the error
	// matters; local deletion must never depend on it.
	DeleteTracking(ctx context.Context, code string) error
}
