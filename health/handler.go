// Package health serves the liveness probe. No business logic: it reports
// that the process is up and relays the background monitor's view of the
// database without issuing any query of its own.
package health

import (
	"encoding/json"
	"net/http"

	"github.com/user/userdir-go/background"
)

// Handler serves the health endpoints.
type Handler struct {
	monitor *background.Monitor
}

// NewHandler creates a health Handler backed by the given monitor.
func NewHandler(monitor *background.Monitor) *Handler {
	return &Handler{monitor: monitor}
}

// statusResponse is the liveness payload.
type statusResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// HandleLiveness serves GET /health (and GET /). Always 200 with
// {"status": "ok"}; the database field reflects the latest probe.
func (h *Handler) HandleLiveness() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{Status: "ok", Database: "down"}
		if h.monitor != nil && h.monitor.Healthy() {
			resp.Database = "up"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	}
}
