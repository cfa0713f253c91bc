package server

import (
	"encoding/json"
	"errors"
	"net/http"
)

// HandleHealthz responds to liveness probe requests.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests with detailed system checks.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"discord_gateway", func() error {
			if !h.deps.Ready() {
				return errors.New("gateway session not ready")
			}
			return nil
		}},
		{"journal", func() error {
			if h.deps.History == nil {
				return nil
			}
			return h.deps.History.Ping(r.Context())
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			// Set headers before writing status code
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}
