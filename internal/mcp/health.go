package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Index     string `json:"index"`
	Qdrant    string `json:"qdrant"`
	Timestamp string `json:"timestamp"`
}

// HealthChecker interface defines the health check dependency.
// The Qdrant mirror implements this via its Health() method.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewHealthHandler creates an HTTP handler for the /health endpoint.
// A missing index reports "degraded" with 200 since keyword answers still work;
// an unreachable Qdrant mirror reports 503. qdrant may be nil when disabled.
func NewHealthHandler(indexLoaded bool, qdrant HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:    "healthy",
			Index:     "loaded",
			Qdrant:    "disabled",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		code := http.StatusOK

		if !indexLoaded {
			response.Status = "degraded"
			response.Index = "missing"
		}

		if qdrant != nil {
			if err := qdrant.Health(ctx); err != nil {
				response.Status = "unhealthy"
				response.Qdrant = "disconnected"
				code = http.StatusServiceUnavailable
			} else {
				response.Qdrant = "connected"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(response)
	}
}
