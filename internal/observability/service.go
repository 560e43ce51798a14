package observability

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/josephcall20-lang/Admissions-co-pilot/internal/lead"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/platform/metrics"
	dErrors "github.com/josephcall20-lang/Admissions-co-pilot/pkg/domain-errors"
	"github.com/josephcall20-lang/Admissions-co-pilot/pkg/platform/sentinel"
)

const (
	maxSamplesPerMetric = 1000
	maxLogEntries       = 1000

	// Fixed operational targets. Deliberately not configurable.
	conversionTarget       = 60.0
	completionDaysTarget   = 5.0
	consultTargetMinutes   = 60.0
	recentErrorUnhealthyAt = 5
)

// thresholds is the static per-metric alert table; checks are per-sample.
var thresholds = map[string]float64{
	MetricAPIResponseTimeMS:   1000,
	"docs_completion_days":    5,
	"consult_overrun_rate":    10,
	"automation_failure_rate": 1,
}

// LeadReader is the read-only view of the lead store the engine needs.
type LeadReader interface {
	List(ctx context.Context) ([]*lead.Lead, error)
	Count(ctx context.Context) (int, error)
}

// Engine owns the metric history, event log, and alert collections. All three
// are process-lifetime state with bounded growth; a durable deployment may
// flush them elsewhere, but nothing here depends on that.
type Engine struct {
	leads  LeadReader
	prom   *metrics.Metrics
	logger *slog.Logger

	mu     sync.RWMutex
	series map[string][]MetricSample
	logs   []LogEntry
	alerts []Alert
}

func NewEngine(leads LeadReader, prom *metrics.Metrics, logger *slog.Logger) *Engine {
	return &Engine{
		leads:  leads,
		prom:   prom,
		logger: logger,
		series: make(map[string][]MetricSample),
	}
}

// RecordMetric appends a sample, evicts beyond the retention cap, and checks
// the static threshold table for the new value.
func (e *Engine) RecordMetric(name string, value float64, tags map[string]string) {
	sample := MetricSample{Timestamp: time.Now(), Value: value, Tags: tags}

	e.mu.Lock()
	samples := append(e.series[name], sample)
	if len(samples) > maxSamplesPerMetric {
		samples = samples[len(samples)-maxSamplesPerMetric:]
	}
	e.series[name] = samples
	e.mu.Unlock()

	if threshold, ok := thresholds[name]; ok && value > threshold {
		alert := e.CreateAlert("threshold_exceeded",
			name+" exceeded threshold", SeverityWarning)
		e.logger.Warn("metric threshold exceeded",
			"metric", name,
			"value", value,
			"threshold", threshold,
			"alert_id", alert.ID,
		)
	}
}

// LogEvent appends to the bounded event log. No alerting side effect.
func (e *Engine) LogEvent(eventType, message, level string, metadata map[string]string) {
	entry := LogEntry{
		Timestamp: time.Now(),
		EventType: eventType,
		Level:     level,
		Message:   message,
		Metadata:  metadata,
	}

	e.mu.Lock()
	e.logs = append(e.logs, entry)
	if len(e.logs) > maxLogEntries {
		e.logs = e.logs[len(e.logs)-maxLogEntries:]
	}
	e.mu.Unlock()
}

// GetMetricsSummary aggregates samples within the trailing window. A window
// with no samples yields a zeroed summary, never an error.
func (e *Engine) GetMetricsSummary(name string, windowHours int) MetricSummary {
	cutoff := time.Now().Add(-time.Duration(windowHours) * time.Hour)

	e.mu.RLock()
	defer e.mu.RUnlock()

	var summary MetricSummary
	for _, s := range e.series[name] {
		if !s.Timestamp.After(cutoff) {
			continue
		}
		if summary.Count == 0 {
			summary.Min = s.Value
			summary.Max = s.Value
		} else {
			summary.Min = math.Min(summary.Min, s.Value)
			summary.Max = math.Max(summary.Max, s.Value)
		}
		summary.Count++
		summary.Avg += s.Value
		summary.Latest = s.Value
	}
	if summary.Count > 0 {
		summary.Avg = round2(summary.Avg / float64(summary.Count))
	}
	return summary
}

// MetricNames lists every metric with recorded history.
func (e *Engine) MetricNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.series))
	for name := range e.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateAlert raises an alert and mirrors it into the event log.
func (e *Engine) CreateAlert(alertType, message, severity string) Alert {
	alert := Alert{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Type:      alertType,
		Message:   message,
		Severity:  severity,
	}

	e.mu.Lock()
	e.alerts = append(e.alerts, alert)
	e.mu.Unlock()

	e.prom.IncrementAlertsRaised(severity)
	e.LogEvent(EventAlert, message, levelFor(severity), map[string]string{
		"alert_id":   alert.ID,
		"alert_type": alertType,
		"severity":   severity,
	})
	return alert
}

// AcknowledgeAlert marks the alert acknowledged, keyed by ID. Acknowledging an
// already-acknowledged alert is a no-op success.
func (e *Engine) AcknowledgeAlert(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.alerts {
		if e.alerts[i].ID == id {
			if !e.alerts[i].Acknowledged {
				e.alerts[i].Acknowledged = true
				e.alerts[i].AcknowledgedAt = time.Now()
			}
			return nil
		}
	}
	return sentinel.ErrNotFound
}

// Alerts returns a snapshot of alerts, optionally only unacknowledged ones.
func (e *Engine) Alerts(activeOnly bool) []Alert {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Alert, 0, len(e.alerts))
	for _, a := range e.alerts {
		if activeOnly && a.Acknowledged {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Logs returns up to limit entries matching the optional level and event type
// filters, most recent last.
func (e *Engine) Logs(level, eventType string, limit int) []LogEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []LogEntry
	for _, entry := range e.logs {
		if level != "" && entry.Level != level {
			continue
		}
		if eventType != "" && entry.EventType != eventType {
			continue
		}
		out = append(out, entry)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// LogCount reports the total entries currently retained.
func (e *Engine) LogCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.logs)
}

// TrackAPICall records endpoint latency for windowed aggregation.
// Satisfies middleware.APITracker.
func (e *Engine) TrackAPICall(endpoint string, duration time.Duration, statusCode int) {
	ms := float64(duration.Milliseconds())
	e.RecordMetric(MetricAPIResponseTimeMS, ms, map[string]string{
		"endpoint":    endpoint,
		"status_code": statusLabel(statusCode),
	})
	e.LogEvent(EventAPICall, endpoint, LevelInfo, map[string]string{
		"endpoint":    endpoint,
		"duration_ms": formatMS(ms),
		"status_code": statusLabel(statusCode),
	})
}

// TrackLeadProgression records a committed stage transition.
func (e *Engine) TrackLeadProgression(leadID string, from, to lead.Stage) {
	e.LogEvent(EventLeadProgression, "lead "+leadID+" moved from "+from.String()+" to "+to.String(),
		LevelInfo, map[string]string{
			"lead_id":    leadID,
			"from_stage": from.String(),
			"to_stage":   to.String(),
		})
	e.RecordMetric(MetricStageTransitions, 1, map[string]string{
		"from_stage": from.String(),
		"to_stage":   to.String(),
	})
	e.prom.IncrementStageTransition(from.String(), to.String())
}

// TrackWorkflowExecution records one workflow run with its outcome.
func (e *Engine) TrackWorkflowExecution(workflowType, leadID string, duration time.Duration, success bool) {
	ms := float64(duration.Milliseconds())
	e.RecordMetric(MetricWorkflowDurationMS, ms, map[string]string{
		"workflow_type": workflowType,
		"success":       boolLabel(success),
	})
	outcome := "success"
	level := LevelInfo
	if !success {
		outcome = "failure"
		level = LevelError
		e.RecordMetric(MetricWorkflowFailures, 1, map[string]string{
			"workflow_type": workflowType,
		})
	}
	e.prom.IncrementWorkflowRun(workflowType, outcome)
	e.LogEvent(EventWorkflowExecution, "workflow "+workflowType+" for lead "+leadID, level,
		map[string]string{
			"workflow_type": workflowType,
			"lead_id":       leadID,
			"duration_ms":   formatMS(ms),
			"success":       boolLabel(success),
		})
}

// CalculateKPIs derives indicators from the lead snapshot and metric history,
// raising kpi_below_target alerts against the fixed operational targets.
func (e *Engine) CalculateKPIs(ctx context.Context) (KPISet, error) {
	leads, err := e.leads.List(ctx)
	if err != nil {
		e.LogEvent(EventError, "kpi calculation failed: "+err.Error(), LevelError, nil)
		return KPISet{}, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to list leads for KPIs")
	}

	if len(leads) == 0 {
		return KPISet{ConsentComplianceRate: 100}, nil
	}

	var docsReceived, scheduled, consented int
	var completionDays []float64
	for _, l := range leads {
		if l.HasConsent {
			consented++
		}
		if l.Stage.AtLeast(lead.StageDocsReceived) {
			docsReceived++
			if days, ok := docCompletionDays(l); ok {
				completionDays = append(completionDays, days)
			}
		}
		if l.Stage.AtLeast(lead.StageScheduled) {
			scheduled++
		}
	}

	kpis := KPISet{
		MedianDocsCompletionDays: median(completionDays),
		ConsultOverrunRate:       e.consultOverrunRate(),
		AutomationFailureRate:    e.automationFailureRate(),
		ConsentComplianceRate:    round2(float64(consented) / float64(len(leads)) * 100),
	}
	if docsReceived > 0 {
		kpis.DocsToConsultConversion = round2(float64(scheduled) / float64(docsReceived) * 100)
	}

	if kpis.DocsToConsultConversion < conversionTarget {
		e.CreateAlert("kpi_below_target", "docs to consult conversion below 60%", SeverityWarning)
	}
	if kpis.MedianDocsCompletionDays > completionDaysTarget {
		e.CreateAlert("kpi_below_target", "median docs completion time exceeds 5 days", SeverityWarning)
	}

	return kpis, nil
}

// HealthCheck aggregates store reachability, recent error volume, and
// unacknowledged critical alerts.
func (e *Engine) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Timestamp: time.Now(),
		Status:    "healthy",
		Checks:    make(map[string]CheckResult),
	}

	count, err := e.leads.Count(ctx)
	if err != nil {
		status.Checks["database"] = CheckResult{
			Status:  "unhealthy",
			Details: map[string]any{"error": err.Error()},
		}
		status.Status = "unhealthy"
	} else {
		status.Checks["database"] = CheckResult{
			Status:  "healthy",
			Details: map[string]any{"lead_count": count},
		}
	}

	cutoff := time.Now().Add(-time.Hour)
	recentErrors := 0
	e.mu.RLock()
	for _, entry := range e.logs {
		if entry.Level == LevelError && entry.Timestamp.After(cutoff) {
			recentErrors++
		}
	}
	var active, critical int
	for _, a := range e.alerts {
		if a.Acknowledged {
			continue
		}
		active++
		if a.Severity == SeverityCritical {
			critical++
		}
	}
	e.mu.RUnlock()

	errorStatus := "healthy"
	if recentErrors >= recentErrorUnhealthyAt {
		errorStatus = "unhealthy"
		status.Status = "unhealthy"
	}
	status.Checks["error_rate"] = CheckResult{
		Status:  errorStatus,
		Details: map[string]any{"recent_errors": recentErrors},
	}

	alertStatus := "healthy"
	if critical > 0 {
		alertStatus = "unhealthy"
		status.Status = "unhealthy"
	}
	status.Checks["alerts"] = CheckResult{
		Status:  alertStatus,
		Details: map[string]any{"active_alerts": active, "critical_alerts": critical},
	}

	return status
}

// GetDailyDigest snapshots stage distribution, 24h activity, alerts, and KPIs.
func (e *Engine) GetDailyDigest(ctx context.Context) (Digest, error) {
	leads, err := e.leads.List(ctx)
	if err != nil {
		e.LogEvent(EventError, "digest generation failed: "+err.Error(), LevelError, nil)
		return Digest{}, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to list leads for digest")
	}

	stageCounts := make(map[string]int)
	for _, l := range leads {
		stageCounts[l.Stage.String()]++
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	eventCounts := make(map[string]int)
	e.mu.RLock()
	for _, entry := range e.logs {
		if entry.Timestamp.After(cutoff) {
			eventCounts[entry.EventType]++
		}
	}
	active := 0
	for _, a := range e.alerts {
		if !a.Acknowledged {
			active++
		}
	}
	e.mu.RUnlock()

	kpis, err := e.CalculateKPIs(ctx)
	if err != nil {
		return Digest{}, err
	}

	health := "healthy"
	if active > 0 {
		health = "attention_needed"
	}

	return Digest{
		Date:           time.Now().UTC().Format("2006-01-02"),
		LeadCounts:     stageCounts,
		TotalLeads:     len(leads),
		RecentActivity: eventCounts,
		ActiveAlerts:   active,
		KPIs:           kpis,
		SystemHealth:   health,
	}, nil
}

// APIPerformance aggregates API_CALL log entries per endpoint over the window.
func (e *Engine) APIPerformance(windowHours int) APIPerformance {
	perf := APIPerformance{
		PeriodHours:    windowHours,
		OverallMetrics: e.GetMetricsSummary(MetricAPIResponseTimeMS, windowHours),
		EndpointStats:  make(map[string]EndpointStats),
	}

	cutoff := time.Now().Add(-time.Duration(windowHours) * time.Hour)
	type agg struct {
		count, errors int
		totalMS       float64
	}
	byEndpoint := make(map[string]*agg)

	e.mu.RLock()
	for _, entry := range e.logs {
		if entry.EventType != EventAPICall || !entry.Timestamp.After(cutoff) {
			continue
		}
		endpoint := entry.Metadata["endpoint"]
		if endpoint == "" {
			endpoint = "unknown"
		}
		a, ok := byEndpoint[endpoint]
		if !ok {
			a = &agg{}
			byEndpoint[endpoint] = a
		}
		a.count++
		a.totalMS += parseMS(entry.Metadata["duration_ms"])
		if isErrorStatus(entry.Metadata["status_code"]) {
			a.errors++
		}
		perf.TotalRequests++
	}
	e.mu.RUnlock()

	for endpoint, a := range byEndpoint {
		stats := EndpointStats{Count: a.count, Errors: a.errors}
		if a.count > 0 {
			stats.AvgDurationMS = round2(a.totalMS / float64(a.count))
			stats.ErrorRate = round2(float64(a.errors) / float64(a.count) * 100)
		}
		perf.EndpointStats[endpoint] = stats
	}
	return perf
}

func (e *Engine) consultOverrunRate() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	samples := e.series[MetricConsultDurationMin]
	if len(samples) == 0 {
		return 0
	}
	overruns := 0
	for _, s := range samples {
		if s.Value > consultTargetMinutes {
			overruns++
		}
	}
	return round2(float64(overruns) / float64(len(samples)) * 100)
}

func (e *Engine) automationFailureRate() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	total := len(e.series[MetricWorkflowDurationMS])
	if total == 0 {
		return 0
	}
	failures := 0.0
	for _, s := range e.series[MetricWorkflowFailures] {
		failures += s.Value
	}
	return round2(failures / float64(total) * 100)
}

// docCompletionDays measures how long a lead took to complete documents, from
// docs_requested entry (or creation) to docs_received entry.
func docCompletionDays(l *lead.Lead) (float64, bool) {
	received, ok := l.StageEnteredAt(lead.StageDocsReceived)
	if !ok {
		return 0, false
	}
	start, ok := l.StageEnteredAt(lead.StageDocsRequested)
	if !ok {
		start = l.CreatedAt
	}
	if start.IsZero() || received.Before(start) {
		return 0, false
	}
	return received.Sub(start).Hours() / 24, true
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return round2((sorted[mid-1] + sorted[mid]) / 2)
	}
	return round2(sorted[mid])
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func levelFor(severity string) string {
	switch severity {
	case SeverityCritical:
		return LevelCritical
	case SeverityWarning:
		return LevelWarning
	default:
		return LevelInfo
	}
}
