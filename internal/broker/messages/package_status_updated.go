package messages

import (
	"time"

	"github.com/google/uuid"
)

// PackageStatusUpdated is published after a carrier push was applied to the
// store. PackageIDs lists every record the fan-out touched, across owners.
type PackageStatusUpdated struct {
	TrackingCode string      `json:"tracking_code"`
	Status       string      `json:"status"`
	PackageIDs   []uuid.UUID `json:"package_ids"`
	Updated      int         `json:"updated"`
	OccurredAt   time.Time   `json:"occurred_at"`
}
