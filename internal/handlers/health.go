package handlers

import (
	"context"
	"net/http"
)

// HealthHandler responds with service health information. Check, when set,
// probes the database.
type HealthHandler struct {
	Check func(ctx context.Context) error
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.Check != nil {
		if err := h.Check(ctx); err != nil {
			respondJSON(ctx, w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
			return
		}
	}
	respondJSON(ctx, w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
