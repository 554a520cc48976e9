package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/GregMSThompson/utilization-pilot/pkg/logger"
)

type healthHandlers struct {
	deps *Deps
}

func NewHealthHandlers(deps *Deps) *healthHandlers {
	return &healthHandlers{deps: deps}
}

type healthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment"`
}

// Health is written without the success envelope so load balancers can read it directly.
func (h *healthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(healthResponse{
		Status:      "healthy",
		Timestamp:   h.deps.now().UTC(),
		Environment: h.deps.Environment,
	}); err != nil {
		logger.FromContextOr(r.Context(), h.deps.Log).Error("failed to encode health response", "error", err)
	}
}
