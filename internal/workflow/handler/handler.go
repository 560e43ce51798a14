// Package handler wires the stage-transition engine to its HTTP surface.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/josephcall20-lang/Admissions-co-pilot/internal/compliance"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/esign"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/lead"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/observability"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/workflow"
	dErrors "github.com/josephcall20-lang/Admissions-co-pilot/pkg/domain-errors"
	"github.com/josephcall20-lang/Admissions-co-pilot/pkg/platform/httputil"
	"github.com/josephcall20-lang/Admissions-co-pilot/pkg/platform/sentinel"
	"github.com/josephcall20-lang/Admissions-co-pilot/pkg/requestcontext"
)

// maxWebhookBody caps inbound webhook payloads.
const maxWebhookBody = 64 << 10

// metricsWindowHours is the lookback for the workflow metrics rollup.
const metricsWindowHours = 24

// Handler exposes workflow trigger, webhook, and maintenance endpoints.
type Handler struct {
	engine        *workflow.Engine
	store         lead.Store
	obs           *observability.Engine
	webhookSecret string
	logger        *slog.Logger
}

// New constructs a workflow handler with its dependencies. An empty
// webhookSecret disables signature verification, for local development only.
func New(engine *workflow.Engine, store lead.Store, obs *observability.Engine, webhookSecret string, logger *slog.Logger) *Handler {
	return &Handler{
		engine:        engine,
		store:         store,
		obs:           obs,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// Register mounts staff-facing workflow endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/workflows/maintenance/daily", h.HandleDailyMaintenance)
	r.Post("/workflows/reminders/send", h.HandleSendReminders)
	r.Get("/workflows/status/{lead_id}", h.HandleStatus)
	r.Get("/workflows/metrics", h.HandleMetrics)
	r.Post("/workflows/{type}/{lead_id}", h.HandleTrigger)
}

// Webhooks mounts provider-facing endpoints. These sit outside staff auth;
// the HMAC signature is their authentication.
func (h *Handler) Webhooks(r chi.Router) {
	r.Post("/workflows/consent/webhook", h.HandleConsentWebhook)
}

// HandleTrigger handles POST /workflows/{type}/{lead_id} requests, running one
// Advance pass for the lead.
func (h *Handler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workflowType := chi.URLParam(r, "type")
	leadID := chi.URLParam(r, "lead_id")

	switch workflowType {
	case workflow.WorkflowWebLead, workflow.WorkflowPhoneLead:
	default:
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "unknown workflow type: %q", workflowType))
		return
	}

	result, err := h.engine.Advance(ctx, leadID)
	if err != nil {
		// A precondition miss still carries a useful result body; everything
		// else maps straight to an error envelope.
		if dErrors.HasCode(err, dErrors.CodePreconditionNotMet) && result != nil {
			httputil.WriteJSON(w, http.StatusUnprocessableEntity, result)
			return
		}
		h.logger.ErrorContext(ctx, "workflow trigger failed",
			"workflow", workflowType,
			"lead_id", leadID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleConsentWebhook handles POST /workflows/consent/webhook deliveries from
// the e-sign provider. The raw body is read once so the HMAC covers exactly
// the bytes that were signed.
func (h *Handler) HandleConsentWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unreadable webhook body"))
		return
	}

	if h.webhookSecret != "" {
		signature := r.Header.Get("X-Signature")
		if !esign.VerifySignature(body, signature, h.webhookSecret) {
			h.logger.WarnContext(ctx, "webhook signature verification failed",
				"remote_ip", requestcontext.ClientIP(ctx),
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}
	}

	var payload esign.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed webhook payload"))
		return
	}
	if payload.EnvelopeID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "envelope_id is required"))
		return
	}

	h.logger.InfoContext(ctx, "consent webhook received",
		"details", compliance.SanitizeMetadata(map[string]string{
			"envelope_id": payload.EnvelopeID,
			"status":      payload.Status,
		}),
	)

	result, err := h.engine.HandleConsentWebhook(ctx, payload.EnvelopeID, payload.Status)
	if err != nil {
		h.logger.ErrorContext(ctx, "consent webhook processing failed",
			"envelope_id", payload.EnvelopeID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleDailyMaintenance handles POST /workflows/maintenance/daily requests,
// typically from a scheduler.
func (h *Handler) HandleDailyMaintenance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.engine.RunDailyMaintenance(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "daily maintenance failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, summary)
}

// HandleSendReminders handles POST /workflows/reminders/send requests, a
// manual trigger for the reminder pass outside the daily schedule.
func (h *Handler) HandleSendReminders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.engine.SendReminders(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "reminder pass failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, summary)
}

// HandleMetrics handles GET /workflows/metrics requests: the funnel snapshot
// plus the recent execution-duration summary.
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snapshot, err := h.engine.PipelineMetrics(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "pipeline metrics failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"pipeline":            snapshot,
		"execution_last_24h":  h.obs.GetMetricsSummary(observability.MetricWorkflowDurationMS, metricsWindowHours),
		"failures_last_24h":   h.obs.GetMetricsSummary(observability.MetricWorkflowFailures, metricsWindowHours),
		"consent_completions": h.obs.GetMetricsSummary(observability.MetricConsentCompleted, metricsWindowHours),
	})
}

// HandleStatus handles GET /workflows/status/{lead_id} requests with the
// lead's pipeline position and gating state.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	leadID := chi.URLParam(r, "lead_id")

	l, err := h.store.FindByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "lead %s not found", leadID))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to load lead"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"lead_id":       l.ID,
		"stage":         l.Stage,
		"has_consent":   l.HasConsent,
		"missing_docs":  l.MissingDocs,
		"last_touch":    l.LastTouch,
		"stage_history": l.StageHistory,
	})
}
