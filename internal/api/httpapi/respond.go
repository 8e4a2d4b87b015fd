package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/BearBump/PackBox/internal/models"
	"github.com/pkg/errors"
)

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Warn("encode response failed", "error", err)
	}
}

func (a *API) writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps the domain taxonomy onto status codes. Anything outside the
// taxonomy is an internal error; its details stay in the log.
func (a *API) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrConflict):
		a.writeErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrNotFound):
		a.writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrUnauthorized):
		a.writeErrorMessage(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, models.ErrProviderFailure):
		a.log.Error("provider failure", "error", err)
		a.writeErrorMessage(w, http.StatusBadGateway, "tracking provider is unavailable")
	default:
		a.log.Error("internal error", "error", err)
		a.writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}

type packageResponse struct {
	ID           string              `json:"id"`
	OwnerID      string              `json:"ownerId"`
	Name         string              `json:"name"`
	TrackingCode string              `json:"trackingCode"`
	Status       string              `json:"status"`
	Timeline     []models.Checkpoint `json:"timeline"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

func toPackageResponse(p *models.Package) packageResponse {
	timeline := p.Timeline
	if timeline == nil {
		timeline = []models.Checkpoint{}
	}
	return packageResponse{
		ID:           p.ID.String(),
		OwnerID:      p.OwnerID.String(),
		Name:         p.Name,
		TrackingCode: p.TrackingCode,
		Status:       p.Status,
		Timeline:     timeline,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toPackageResponses(ps []*models.Package) []packageResponse {
	out := make([]packageResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPackageResponse(p))
	}
	return out
}

type statusEventResponse struct {
	ID           uint64    `json:"id"`
	PackageID    string    `json:"packageId"`
	TrackingCode string    `json:"trackingCode"`
	Status       string    `json:"status"`
	OccurredAt   time.Time `json:"occurredAt"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toStatusEventResponses(evs []*models.StatusEvent) []statusEventResponse {
	out := make([]statusEventResponse, 0, len(evs))
	for _, e := range evs {
		out = append(out, statusEventResponse{
			ID:           e.ID,
			PackageID:    e.PackageID.String(),
			TrackingCode: e.TrackingCode,
			Status:       e.Status,
			OccurredAt:   e.OccurredAt,
			CreatedAt:    e.CreatedAt,
		})
	}
	return out
}
