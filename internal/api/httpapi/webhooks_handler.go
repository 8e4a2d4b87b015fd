package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/BearBump/PackBox/internal/services/webhooks"
)

// handleAfterShipWebhook always answers 200: the provider retries on anything
// else and we never want a retry storm over a body we could not use.
func (a *API) handleAfterShipWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhooks.UpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		a.log.Warn("malformed webhook body", "error", err)
		a.writeJSON(w, http.StatusOK, webhooks.Result{Success: true, Updated: 0})
		return
	}

	result := a.webhooks.HandleAfterShipUpdate(r.Context(), payload)
	a.writeJSON(w, http.StatusOK, result)
}
