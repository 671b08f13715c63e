package handlers

import (
	"context"
	"net/http"
	"time"
)

const (
	serviceName    = "Planet Evolution Game API"
	serviceVersion = "1.0.0"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// StatusResponse is returned by the root and readiness endpoints.
type StatusResponse struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
	Version string `json:"version,omitempty"`
}

// Root is a liveness probe. It never touches the database.
func Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:  "healthy",
		Service: serviceName,
		Version: serviceVersion,
	})
}

// Healthz reports readiness by pinging the database.
func Healthz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, StatusResponse{Status: "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
	}
}
