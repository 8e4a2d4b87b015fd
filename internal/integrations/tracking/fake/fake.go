package fake

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/BearBump/PackBox/internal/integrations/tracking"
	"github.com/BearBump/PackBox/internal/models"
)

// FakeProvider stands in for AfterShip in local runs. Status is deterministic
// by code so repeated creates agree with each other.
type FakeProvider struct{}

func New() *FakeProvider { return &FakeProvider{} }

func (f *FakeProvider) CreateTracking(ctx context.Context, code string) (tracking.TrackingData, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(code))
	v := h.Sum32()

	// 20% of codes start out already delivered.
	status := "InTransit"
	if v%5 == 0 {
		status = "Delivered"
	}

	return tracking.TrackingData{
		Status: status,
		Timeline: []models.Checkpoint{
			{
				Tag:            status,
				Message:        "fake carrier update",
				CheckpointTime: time.Now().UTC().Format(time.RFC3339),
			},
		},
	}, nil
}

func (f *FakeProvider) DeleteTracking(ctx context.Context, code string) error {
	return nil
}
