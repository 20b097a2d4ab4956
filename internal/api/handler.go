// Package api exposes the events resource and the operational endpoints over HTTP.
package api

import (
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/alerts/internal/alerts"
	"github.com/gyaneshwarpardhi/alerts/internal/metrics"
	"github.com/gyaneshwarpardhi/alerts/internal/trigger"
)

// TenantHeader carries the tenant of every events request.
const TenantHeader = "Hawkular-Tenant"

// Engine is the evaluation engine as seen by the operational endpoints.
type Engine interface {
	QueueUtilization() float64
	Graph() *trigger.Graph
}

// TriggerReloader re-reads the trigger config and installs the rebuilt graph.
type TriggerReloader interface {
	Reload() (*trigger.Graph, error)
}

// Handler holds all HTTP handler dependencies.
type Handler struct {
	svc      alerts.Service
	eng      Engine
	reloader TriggerReloader
	mux      *http.ServeMux
}

// New creates an HTTP handler and registers all routes. A nil reloader
// disables POST /triggers/reload.
func New(svc alerts.Service, eng Engine, reloader TriggerReloader) http.Handler {
	h := &Handler{svc: svc, eng: eng, reloader: reloader, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /events", h.tenantScoped(h.createEvent))
	h.mux.HandleFunc("POST /events/{$}", h.tenantScoped(h.createEvent))
	h.mux.HandleFunc("POST /events/data", h.tenantScoped(h.sendEvents))
	h.mux.HandleFunc("PUT /events/tags", h.tenantScoped(h.addTags))
	h.mux.HandleFunc("DELETE /events/tags", h.tenantScoped(h.removeTags))
	h.mux.HandleFunc("GET /events", h.tenantScoped(h.findEvents))
	h.mux.HandleFunc("GET /events/{$}", h.tenantScoped(h.findEvents))
	h.mux.HandleFunc("DELETE /events/{eventId}", h.tenantScoped(h.deleteEvent))
	h.mux.HandleFunc("PUT /events/delete", h.tenantScoped(h.deleteEvents))
	h.mux.HandleFunc("GET /events/event/{eventId}", h.tenantScoped(h.getEvent))

	h.mux.HandleFunc("GET /triggers", h.listTriggers)
	h.mux.HandleFunc("POST /triggers/reload", h.reloadTriggers)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(os.Getenv("ALERTS_DEBUG_PANICS") != ""),
	)
	return recovery(loggingMiddleware(h.mux))
}

// triggerSummary is the JSON view of a loaded trigger.
type triggerSummary struct {
	ID            string            `json:"id"`
	Description   string            `json:"description,omitempty"`
	Categories    []string          `json:"categories,omitempty"`
	DataSources   []string          `json:"dataSources,omitempty"`
	EventCategory string            `json:"eventCategory"`
	Tags          map[string]string `json:"tags,omitempty"`
	Dampening     dampeningSummary  `json:"dampening"`
}

type dampeningSummary struct {
	Type     string `json:"type"`
	EvalTrue int    `json:"evalTrueSetting"`
}

func summarize(g *trigger.Graph) map[string]any {
	out := map[string]any{"version": "", "triggers": []triggerSummary{}}
	if g == nil {
		return out
	}
	triggers := make([]triggerSummary, 0, len(g.Triggers()))
	for _, tn := range g.Triggers() {
		d := tn.Dampening()
		triggers = append(triggers, triggerSummary{
			ID:            tn.ID(),
			Description:   tn.Description(),
			Categories:    tn.Categories(),
			DataSources:   tn.DataSources(),
			EventCategory: tn.EventCategory(),
			Tags:          tn.Tags(),
			Dampening:     dampeningSummary{Type: d.Type, EvalTrue: d.EvalTrue},
		})
	}
	out["version"] = g.Version()
	out["triggers"] = triggers
	return out
}

// GET /triggers: list enabled triggers of the active graph.
func (h *Handler) listTriggers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, summarize(h.eng.Graph()))
}

// POST /triggers/reload: re-read the trigger config and swap the graph.
func (h *Handler) reloadTriggers(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		writeError(w, http.StatusNotImplemented, "trigger reload is not configured")
		return
	}
	g, err := h.reloader.Reload()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reloaded":       true,
		"version":        g.Version(),
		"triggers_count": len(g.Triggers()),
	})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if event queue >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ready",
		"queue_utilization": util,
	})
}
