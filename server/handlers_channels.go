package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/onnwee/tempvoice/lifecycle"
	"github.com/onnwee/tempvoice/registry"
	"github.com/onnwee/tempvoice/telemetry"
)

type channelsResponse struct {
	Count    int                `json:"count"`
	Channels []registry.Channel `json:"channels"`
}

// HandleChannels lists the temporary channels currently tracked.
func (h *Handlers) HandleChannels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap := h.deps.Registry.Snapshot()
	writeJSON(w, http.StatusOK, channelsResponse{Count: len(snap), Channels: snap})
}

// HandleChannelHistory returns recent journal events (?limit=, default 50).
func (h *Handlers) HandleChannelHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.deps.History == nil {
		http.Error(w, "journal disabled (DB_DSN not set)", http.StatusNotFound)
		return
	}
	events, err := h.deps.History.Recent(r.Context(), parseIntQuery(r, "limit", 50))
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("channel history query failed", slog.Any("err", err))
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

type sweepAction struct {
	Kind      lifecycle.ActionKind `json:"kind"`
	ChannelID string               `json:"channel_id,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// HandleAdminSweep runs a sweep immediately and reports what it did.
func (h *Handlers) HandleAdminSweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.deps.Sweeper == nil {
		http.Error(w, "sweeper unavailable", http.StatusServiceUnavailable)
		return
	}
	rep := h.deps.Sweeper.Sweep(r.Context())
	actions := make([]sweepAction, 0, len(rep.Actions))
	for _, a := range rep.Actions {
		sa := sweepAction{Kind: a.Kind, ChannelID: a.Channel.ID}
		if a.Err != nil {
			sa.Error = a.Err.Error()
		}
		actions = append(actions, sa)
	}
	telemetry.LoggerWithCorr(r.Context()).Info("manual sweep", slog.Int("actions", len(actions)), slog.String("component", "http"))
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted": rep.Count(lifecycle.ActionDelete) + rep.Count(lifecycle.ActionForget),
		"failed":  rep.Count(lifecycle.ActionDeleteFailed) + rep.Count(lifecycle.ActionCountFailed),
		"actions": actions,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
