package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/kiranshivaraju/copydesk/internal/api/response"
)

const healthCheckTimeout = 3 * time.Second

// HealthCheck probes one dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health. It
// answers 503 when any check fails.
func NewHealthHandler(checks ...HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				resp.Checks[c.Name] = "error: " + err.Error()
				resp.Status = "degraded"
				continue
			}
			resp.Checks[c.Name] = "ok"
		}

		if resp.Status != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "SERVICE_DEGRADED", "One or more dependencies are unavailable", resp.Checks)
			return
		}
		response.JSON(w, resp)
	}
}
