package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/relayroom/relayroom/common/events"
	"github.com/relayroom/relayroom/common/httputil"
)

// AdminHandler exposes the event publisher's health and manual backend
// controls to operators.
type AdminHandler struct {
	publisher *events.AdaptivePublisher
}

func NewAdminHandler(publisher *events.AdaptivePublisher) *AdminHandler {
	return &AdminHandler{
		publisher: publisher,
	}
}

type publisherStatusResponse struct {
	Health    events.HealthStatus     `json:"health"`
	Metrics   events.PublisherMetrics `json:"metrics"`
	Decisions []switchDecisionView    `json:"recent_decisions"`
}

type switchDecisionView struct {
	From       string    `json:"from"`
	To         string    `json:"to"`
	Reason     string    `json:"reason"`
	Overridden bool      `json:"overridden"`
	At         time.Time `json:"at"`
}

func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	decisions := h.publisher.SwitchDecisions()
	views := make([]switchDecisionView, 0, len(decisions))
	for _, d := range decisions {
		views = append(views, switchDecisionView{
			From:       d.From.String(),
			To:         d.To.String(),
			Reason:     d.Reason.String(),
			Overridden: d.Reason == events.DegradationManualOverride,
			At:         d.Timestamp,
		})
	}

	httputil.WriteJSON(w, http.StatusOK, publisherStatusResponse{
		Health:    h.publisher.HealthCheck(),
		Metrics:   h.publisher.Metrics(),
		Decisions: views,
	})
}

type switchRequest struct {
	Backend string `json:"backend"`
}

func (h *AdminHandler) Switch(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var backend events.Backend
	switch req.Backend {
	case "high_performance":
		backend = events.BackendHighPerformance
	case "legacy":
		backend = events.BackendLegacy
	default:
		httputil.WriteError(w, http.StatusBadRequest, "backend must be high_performance or legacy")
		return
	}

	h.publisher.SwitchBackend(backend)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"active_backend": backend.String()})
}

func (h *AdminHandler) ClearOverride(w http.ResponseWriter, r *http.Request) {
	h.publisher.ClearOverride()
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"active_backend": h.publisher.HealthCheck().Backend.String(),
	})
}
