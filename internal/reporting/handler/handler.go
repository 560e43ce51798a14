// Package handler exposes the monitoring surface: health, metric summaries,
// KPIs, the daily digest, alerts, structured logs, and the compliance report.
// Reads never panic; a partially failing collector degrades to an error
// envelope on its own endpoint only.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/josephcall20-lang/Admissions-co-pilot/internal/compliance"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/observability"
	dErrors "github.com/josephcall20-lang/Admissions-co-pilot/pkg/domain-errors"
	"github.com/josephcall20-lang/Admissions-co-pilot/pkg/platform/httputil"
	"github.com/josephcall20-lang/Admissions-co-pilot/pkg/platform/sentinel"
)

const defaultWindowHours = 24

// kpiTargets pairs each KPI with its operating target for dashboard rendering.
var kpiTargets = map[string]float64{
	"docs_to_consult_conversion":  60,
	"median_docs_completion_days": 5,
	"consult_overrun_rate":        10,
	"automation_failure_rate":     1,
	"consent_compliance_rate":     100,
}

// Handler wires monitoring endpoints to the observability engine and the
// compliance gate.
type Handler struct {
	obs    *observability.Engine
	gate   *compliance.Gate
	logger *slog.Logger
}

// New constructs a monitoring handler.
func New(obs *observability.Engine, gate *compliance.Gate, logger *slog.Logger) *Handler {
	return &Handler{obs: obs, gate: gate, logger: logger}
}

// Probes mounts the load-balancer health endpoint, outside staff auth.
func (h *Handler) Probes(r chi.Router) {
	r.Get("/monitoring/health", h.HandleHealth)
}

// Register mounts staff-facing monitoring endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/monitoring/metrics", h.HandleMetrics)
	r.Get("/monitoring/kpis", h.HandleKPIs)
	r.Get("/monitoring/digest/daily", h.HandleDailyDigest)
	r.Get("/monitoring/alerts", h.HandleAlerts)
	r.Post("/monitoring/alerts/{id}/acknowledge", h.HandleAcknowledgeAlert)
	r.Get("/monitoring/logs", h.HandleLogs)
	r.Get("/monitoring/compliance/report", h.HandleComplianceReport)
	r.Get("/monitoring/performance/api", h.HandleAPIPerformance)
	r.Get("/monitoring/system/status", h.HandleSystemStatus)
}

// HandleHealth handles GET /monitoring/health requests. An unhealthy system
// answers 503 so load balancers can rotate the instance out.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := h.obs.HealthCheck(r.Context())

	code := http.StatusOK
	if status.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, status)
}

// HandleMetrics handles GET /monitoring/metrics requests. With ?metric= it
// returns one summary; without, a summary per recorded metric.
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	hours := queryInt(r, "hours", defaultWindowHours)

	if name := r.URL.Query().Get("metric"); name != "" {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"metric":       name,
			"window_hours": hours,
			"summary":      h.obs.GetMetricsSummary(name, hours),
		})
		return
	}

	summaries := make(map[string]observability.MetricSummary)
	for _, name := range h.obs.MetricNames() {
		summaries[name] = h.obs.GetMetricsSummary(name, hours)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"window_hours": hours,
		"metrics":      summaries,
	})
}

// HandleKPIs handles GET /monitoring/kpis requests.
func (h *Handler) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	kpis, err := h.obs.CalculateKPIs(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "kpi calculation failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"kpis":    kpis,
		"targets": kpiTargets,
	})
}

// HandleDailyDigest handles GET /monitoring/digest/daily requests.
func (h *Handler) HandleDailyDigest(w http.ResponseWriter, r *http.Request) {
	digest, err := h.obs.GetDailyDigest(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "daily digest failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, digest)
}

// HandleAlerts handles GET /monitoring/alerts requests. ?active_only=true
// filters out acknowledged alerts.
func (h *Handler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"
	alerts := h.obs.Alerts(activeOnly)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// HandleAcknowledgeAlert handles POST /monitoring/alerts/{id}/acknowledge.
// Acknowledging an already-acknowledged alert succeeds without change.
func (h *Handler) HandleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.obs.AcknowledgeAlert(id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "alert %s not found", id))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to acknowledge alert"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"alert_id": id,
		"status":   "acknowledged",
	})
}

// HandleLogs handles GET /monitoring/logs requests with ?level=, ?event_type=,
// and ?limit= filters.
func (h *Handler) HandleLogs(w http.ResponseWriter, r *http.Request) {
	level := r.URL.Query().Get("level")
	eventType := r.URL.Query().Get("event_type")
	limit := queryInt(r, "limit", 100)

	logs := h.obs.Logs(level, eventType, limit)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"logs":  logs,
		"count": len(logs),
		"total": h.obs.LogCount(),
	})
}

// HandleComplianceReport handles GET /monitoring/compliance/report requests.
func (h *Handler) HandleComplianceReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.gate.GenerateComplianceReport(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "compliance report failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleAPIPerformance handles GET /monitoring/performance/api requests.
func (h *Handler) HandleAPIPerformance(w http.ResponseWriter, r *http.Request) {
	hours := queryInt(r, "hours", defaultWindowHours)
	httputil.WriteJSON(w, http.StatusOK, h.obs.APIPerformance(hours))
}

// HandleSystemStatus handles GET /monitoring/system/status requests, a compact
// roll-up for status pages.
func (h *Handler) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	health := h.obs.HealthCheck(r.Context())
	active := h.obs.Alerts(true)

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":        health.Status,
		"checks":        health.Checks,
		"active_alerts": len(active),
		"timestamp":     health.Timestamp,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
