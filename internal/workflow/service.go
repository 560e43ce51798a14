package workflow

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/josephcall20-lang/Admissions-co-pilot/internal/compliance"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/documents"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/esign"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/lead"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/notify"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/observability"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/platform/metrics"
	dErrors "github.com/josephcall20-lang/Admissions-co-pilot/pkg/domain-errors"
	"github.com/josephcall20-lang/Admissions-co-pilot/pkg/platform/sentinel"
	"github.com/josephcall20-lang/Admissions-co-pilot/pkg/requestcontext"
)

//go:generate mockgen -destination=mocks/collaborators.go -package=mocks github.com/josephcall20-lang/Admissions-co-pilot/internal/documents Tracker
//go:generate mockgen -destination=mocks/esign.go -package=mocks github.com/josephcall20-lang/Admissions-co-pilot/internal/esign Provider
//go:generate mockgen -destination=mocks/notify.go -package=mocks github.com/josephcall20-lang/Admissions-co-pilot/internal/notify Notifier

// maintenanceConcurrency bounds parallel lead processing during maintenance.
const maintenanceConcurrency = 4

const consentType = "hipaa_authorization"

// Config carries the engine's operational knobs.
type Config struct {
	ConsentTemplateVersion string
	ReminderAfter          time.Duration
}

// Engine coordinates stage transitions. Side effects are ordered so a crash
// between steps leaves the lead in a state from which re-invoking Advance
// safely resumes: channel creation before notification, notification before
// the stage write. Collaborators must tolerate at-least-once delivery.
type Engine struct {
	leads    lead.Store
	gate     *compliance.Gate
	docs     documents.Tracker
	esign    esign.Provider
	notifier notify.Notifier
	obs      *observability.Engine
	prom     *metrics.Metrics
	cfg      Config
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewEngine(
	leads lead.Store,
	gate *compliance.Gate,
	docs documents.Tracker,
	provider esign.Provider,
	notifier notify.Notifier,
	obs *observability.Engine,
	prom *metrics.Metrics,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		leads:    leads,
		gate:     gate,
		docs:     docs,
		esign:    provider,
		notifier: notifier,
		obs:      obs,
		prom:     prom,
		cfg:      cfg,
		logger:   logger,
		tracer:   otel.Tracer("workflow"),
	}
}

// Advance moves a lead one stage forward when its gating conditions hold.
// Concurrent calls for the same lead serialize on the store's per-lead lock;
// the persisted stage is written only after every side effect succeeded.
func (e *Engine) Advance(ctx context.Context, leadID string) (*TransitionResult, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.advance",
		trace.WithAttributes(attribute.String("lead_id", leadID)))
	defer span.End()

	start := time.Now()
	unlock := e.leads.Lock(leadID)
	defer unlock()

	l, err := e.loadLead(ctx, leadID)
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{LeadID: leadID, FromStage: l.Stage, Stage: l.Stage, Steps: []Step{}}

	switch l.Stage {
	case lead.StageInquiry:
		err = e.advanceFromInquiry(ctx, l, result)
	case lead.StageDocsRequested:
		err = e.advanceFromDocsRequested(ctx, l, result)
	default:
		result.Reason = "no automated transition from " + l.Stage.String()
		result.addStep("stage_check", "lead already in "+l.Stage.String()+" stage")
	}

	// A lead whose documents are still outstanding is normal pipeline state,
	// not an automation failure.
	success := err == nil || dErrors.HasCode(err, dErrors.CodePreconditionNotMet)
	e.obs.TrackWorkflowExecution(WorkflowWebLead, leadID, time.Since(start), success)
	if err != nil {
		span.RecordError(err)
		return result, err
	}
	span.SetAttributes(attribute.String("stage", l.Stage.String()))
	return result, nil
}

// advanceFromInquiry opens the document and consent channels, sends the intake
// notification, and only then commits docs_requested.
func (e *Engine) advanceFromInquiry(ctx context.Context, l *lead.Lead, result *TransitionResult) error {
	channel, err := e.docs.CreateUploadChannel(ctx, l.ID)
	if err != nil {
		return e.collaboratorFailure(ctx, l.ID, "create upload channel", err)
	}
	result.addStep("upload_link_created", "upload link created")

	envelope, err := e.esign.CreateConsentEnvelope(ctx, esign.SignerInfo{
		Name:         l.FullName(),
		Email:        l.Email,
		Relationship: string(l.Relationship),
	}, e.cfg.ConsentTemplateVersion)
	if err != nil {
		return e.collaboratorFailure(ctx, l.ID, "create consent envelope", err)
	}
	result.addStep("consent_link_generated", "consent envelope "+envelope.EnvelopeID)

	err = e.notifier.Send(ctx, l.Email, notify.TemplateSecureUploadAndConsent, map[string]string{
		"first_name":   l.FirstName,
		"upload_link":  channel.Link,
		"consent_link": envelope.SigningURL,
		"expires":      channel.ExpiresAt.Format(time.RFC1123),
	})
	if err != nil {
		return e.collaboratorFailure(ctx, l.ID, "send intake notification", err)
	}
	result.addStep("notification_sent", "intake email sent")

	now := requestcontext.Now(ctx)
	l.ConsentEnvelopeID = envelope.EnvelopeID
	if err := l.TransitionTo(lead.StageDocsRequested, now); err != nil {
		return err
	}
	if err := e.leads.Update(ctx, l); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to persist stage transition")
	}

	result.Advanced = true
	result.Stage = l.Stage
	result.addStep("stage_updated", "lead stage updated to docs_requested")
	e.obs.TrackLeadProgression(l.ID, lead.StageInquiry, lead.StageDocsRequested)
	return nil
}

// advanceFromDocsRequested re-checks the document tracker and commits
// docs_received once nothing is missing.
func (e *Engine) advanceFromDocsRequested(ctx context.Context, l *lead.Lead, result *TransitionResult) error {
	check, err := e.docs.CheckDocuments(ctx, l.ID)
	if err != nil {
		return e.collaboratorFailure(ctx, l.ID, "check documents", err)
	}

	l.SetDocuments(check.Received)
	result.addStep("documents_checked", "received "+joinOrNone(l.ReceivedDocs))

	if !l.DocsComplete() {
		// Persist the refreshed document sets so reporting sees them, but the
		// stage and last touch stay put.
		if err := e.leads.Update(ctx, l); err != nil {
			return dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to persist document state")
		}
		result.MissingDocs = append([]string(nil), l.MissingDocs...)
		result.Reason = "missing documents: " + joinOrNone(l.MissingDocs)
		e.logger.InfoContext(ctx, "lead not ready to advance",
			"lead_id", l.ID,
			"missing_docs", l.MissingDocs,
		)
		return dErrors.Newf(dErrors.CodePreconditionNotMet,
			"lead %s has %d missing documents", l.ID, len(l.MissingDocs))
	}

	now := requestcontext.Now(ctx)
	if err := l.TransitionTo(lead.StageDocsReceived, now); err != nil {
		return err
	}
	if err := e.leads.Update(ctx, l); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to persist stage transition")
	}

	result.Advanced = true
	result.Stage = l.Stage
	result.addStep("stage_updated", "lead stage updated to docs_received")
	e.obs.TrackLeadProgression(l.ID, lead.StageDocsRequested, lead.StageDocsReceived)
	return nil
}

// HandleConsentWebhook maps an e-sign status to an outcome. Deliveries are
// at-least-once: a completed replay for an already-consented lead is absorbed
// without re-counting metrics or re-firing notifications.
func (e *Engine) HandleConsentWebhook(ctx context.Context, envelopeID, status string) (*WebhookResult, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.consent_webhook",
		trace.WithAttributes(attribute.String("envelope_id", envelopeID), attribute.String("status", status)))
	defer span.End()

	result := &WebhookResult{EnvelopeID: envelopeID, Timestamp: requestcontext.Now(ctx)}

	switch status {
	case esign.StatusCompleted:
		if err := e.consentCompleted(ctx, envelopeID, result); err != nil {
			span.RecordError(err)
			return nil, err
		}
		result.Action = OutcomeConsentCompleted
	case esign.StatusDeclined:
		e.consentDeclined(ctx, envelopeID, result)
		result.Action = OutcomeConsentDeclined
	default:
		result.Action = OutcomeStatusUpdate
		result.Status = status
	}

	e.prom.IncrementWebhookEvent(string(result.Action))
	e.obs.LogEvent("CONSENT_WEBHOOK", "envelope "+envelopeID+" status "+status,
		observability.LevelInfo, map[string]string{
			"envelope_id": envelopeID,
			"status":      status,
			"action":      string(result.Action),
		})
	return result, nil
}

func (e *Engine) consentCompleted(ctx context.Context, envelopeID string, result *WebhookResult) error {
	l, err := e.leads.FindByEnvelopeID(ctx, envelopeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "no lead for envelope %s", envelopeID)
		}
		return dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to load lead for envelope")
	}

	unlock := e.leads.Lock(l.ID)
	defer unlock()

	// Re-load under the lock so the consent check and write are atomic with
	// respect to concurrent webhook replays.
	l, err = e.loadLead(ctx, l.ID)
	if err != nil {
		return err
	}
	result.LeadID = l.ID

	now := requestcontext.Now(ctx)
	if !l.RecordConsent(consentType, e.cfg.ConsentTemplateVersion, now) {
		result.Duplicate = true
		return nil
	}
	if err := e.leads.Update(ctx, l); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to persist consent")
	}

	e.obs.RecordMetric(observability.MetricConsentCompleted, 1, map[string]string{
		"lead_id": l.ID,
	})
	e.logger.InfoContext(ctx, "consent completed",
		"lead_id", l.ID,
		"envelope_id", envelopeID,
		"consent_version", l.ConsentVersion,
	)
	return nil
}

func (e *Engine) consentDeclined(ctx context.Context, envelopeID string, result *WebhookResult) {
	l, err := e.leads.FindByEnvelopeID(ctx, envelopeID)
	if err != nil {
		e.logger.WarnContext(ctx, "consent declined for unknown envelope", "envelope_id", envelopeID)
		return
	}
	result.LeadID = l.ID

	e.logger.WarnContext(ctx, "consent declined", "lead_id", l.ID, "envelope_id", envelopeID)
	if err := e.notifier.Send(ctx, l.Email, notify.TemplateConsentDeclined, map[string]string{
		"first_name": l.FirstName,
	}); err != nil {
		// Best effort: the decline is recorded regardless.
		e.obs.LogEvent(observability.EventError, "declined follow-up notification failed: "+err.Error(),
			observability.LevelError, map[string]string{"lead_id": l.ID})
	}
}

// RunDailyMaintenance sends reminders to stale docs_requested leads, re-runs
// Advance for them, and collects retention decisions for every lead. Safe to
// re-enter: per-lead locks serialize the reminder check and the advance.
func (e *Engine) RunDailyMaintenance(ctx context.Context) (*MaintenanceSummary, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.daily_maintenance")
	defer span.End()

	summary := &MaintenanceSummary{
		Timestamp:       requestcontext.Now(ctx),
		PurgeCandidates: []compliance.RetentionDecision{},
	}

	counts, err := e.reminderPass(ctx)
	if err != nil {
		return nil, err
	}
	summary.LeadsProcessed = counts.processed
	summary.RemindersSent = counts.reminders
	summary.LeadsAdvanced = counts.advanced
	summary.Failures = counts.failures

	all, err := e.leads.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to list leads for retention")
	}
	now := requestcontext.Now(ctx)
	for _, l := range all {
		decision := e.gate.CheckRetention(l, now)
		if decision.Action == compliance.ActionPurge {
			summary.PurgeCandidates = append(summary.PurgeCandidates, decision)
		} else {
			summary.RetainedCount++
		}
	}

	e.obs.LogEvent("MAINTENANCE", "daily maintenance completed", observability.LevelInfo,
		map[string]string{
			"leads_processed":  strconv.Itoa(summary.LeadsProcessed),
			"reminders_sent":   strconv.Itoa(summary.RemindersSent),
			"purge_candidates": strconv.Itoa(len(summary.PurgeCandidates)),
		})
	return summary, nil
}

// SendReminders runs a reminder pass on demand, outside the daily schedule.
func (e *Engine) SendReminders(ctx context.Context) (*ReminderSummary, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.send_reminders")
	defer span.End()

	counts, err := e.reminderPass(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &ReminderSummary{
		Status:        "completed",
		LeadsChecked:  counts.processed,
		RemindersSent: counts.reminders,
		LeadsAdvanced: counts.advanced,
		Failures:      counts.failures,
		Timestamp:     requestcontext.Now(ctx),
	}, nil
}

type reminderCounts struct {
	processed int
	reminders int
	advanced  int
	failures  int
}

// reminderPass fans remindAndAdvance out over every docs_requested lead.
// Per-lead failures are absorbed so the batch continues; a lead that simply
// has documents outstanding is normal pipeline state, not a failure.
func (e *Engine) reminderPass(ctx context.Context) (reminderCounts, error) {
	var counts reminderCounts

	stale, err := e.leads.ListByStage(ctx, lead.StageDocsRequested)
	if err != nil {
		return counts, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to list leads for reminders")
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maintenanceConcurrency)
	for _, candidate := range stale {
		g.Go(func() error {
			sent, advanced, err := e.remindAndAdvance(gctx, candidate.ID)
			mu.Lock()
			defer mu.Unlock()
			counts.processed++
			if sent {
				counts.reminders++
			}
			if advanced {
				counts.advanced++
			}
			if err != nil && !dErrors.HasCode(err, dErrors.CodePreconditionNotMet) {
				counts.failures++
				e.logger.ErrorContext(gctx, "reminder pass failed for lead",
					"lead_id", candidate.ID,
					"error", err.Error(),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return counts, err
	}
	return counts, nil
}

// PipelineMetrics snapshots the funnel from the lead store: stage distribution
// and the derived consent, completion, and conversion rates.
func (e *Engine) PipelineMetrics(ctx context.Context) (*PipelineSnapshot, error) {
	all, err := e.leads.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to list leads for metrics")
	}

	snap := &PipelineSnapshot{
		TotalLeads:        len(all),
		StageDistribution: make(map[string]int, len(lead.Stages)),
		Timestamp:         requestcontext.Now(ctx),
	}
	for _, stage := range lead.Stages {
		snap.StageDistribution[stage.String()] = 0
	}

	var consented, docsComplete, scheduled int
	for _, l := range all {
		snap.StageDistribution[l.Stage.String()]++
		if l.HasConsent {
			consented++
		}
		if l.Stage.AtLeast(lead.StageDocsReceived) {
			docsComplete++
		}
		if l.Stage == lead.StageScheduled {
			scheduled++
		}
	}
	if len(all) > 0 {
		snap.ConsentRate = round2(float64(consented) / float64(len(all)) * 100)
		snap.DocsCompletionRate = round2(float64(docsComplete) / float64(len(all)) * 100)
	}
	if docsComplete > 0 {
		snap.DocsToConsultConversion = round2(float64(scheduled) / float64(docsComplete) * 100)
	}
	return snap, nil
}

// remindAndAdvance sends a reminder when the lead is stale enough, then
// re-runs Advance to pick up any newly arrived documents.
func (e *Engine) remindAndAdvance(ctx context.Context, leadID string) (reminded, advanced bool, err error) {
	unlock := e.leads.Lock(leadID)
	l, err := e.loadLead(ctx, leadID)
	if err != nil {
		unlock()
		return false, false, err
	}

	now := requestcontext.Now(ctx)
	stale := l.Stage == lead.StageDocsRequested && now.Sub(l.LastTouch) > e.cfg.ReminderAfter
	if stale {
		// The tracker reissues the lead's upload channel, so the reminder
		// carries a working link even after the original expired.
		channel, err := e.docs.CreateUploadChannel(ctx, l.ID)
		if err != nil {
			unlock()
			return false, false, e.collaboratorFailure(ctx, leadID, "refresh upload channel", err)
		}
		if err := e.notifier.Send(ctx, l.Email, notify.TemplateDocsReminder, map[string]string{
			"first_name":   l.FirstName,
			"missing_docs": joinOrNone(l.MissingDocs),
			"upload_link":  channel.Link,
		}); err != nil {
			unlock()
			return false, false, e.collaboratorFailure(ctx, leadID, "send reminder", err)
		}
		reminded = true
		l.LastTouch = now
		if err := e.leads.Update(ctx, l); err != nil {
			unlock()
			return reminded, false, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to persist reminder touch")
		}
	}
	unlock()

	result, err := e.Advance(ctx, leadID)
	if err != nil {
		return reminded, false, err
	}
	return reminded, result.Advanced, nil
}

func (e *Engine) loadLead(ctx context.Context, leadID string) (*lead.Lead, error) {
	l, err := e.leads.FindByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "lead %s not found", leadID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to load lead")
	}
	return l, nil
}

// collaboratorFailure absorbs a transient external failure into the log and
// metric stream and surfaces it as a non-fatal, retryable error.
func (e *Engine) collaboratorFailure(ctx context.Context, leadID, operation string, err error) error {
	e.obs.LogEvent(observability.EventError, operation+" failed: "+err.Error(),
		observability.LevelError, map[string]string{
			"lead_id":   leadID,
			"operation": operation,
		})
	e.logger.ErrorContext(ctx, "collaborator call failed",
		"lead_id", leadID,
		"operation", operation,
		"error", err.Error(),
	)
	return dErrors.Wrap(err, dErrors.CodeCollaboratorUnavailable, operation+" failed")
}

func (r *TransitionResult) addStep(name, details string) {
	r.Steps = append(r.Steps, Step{
		Step:      name,
		Status:    "completed",
		Timestamp: time.Now(),
		Details:   details,
	})
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
