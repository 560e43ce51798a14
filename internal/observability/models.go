// Package observability records operational metrics, evaluates alert
// thresholds, and derives KPIs, health, and digests from the lead population
// and its own metric history. It reads leads, never writes them.
package observability

import "time"

// Log levels. Uppercase to match the wire format of log queries.
const (
	LevelInfo     = "INFO"
	LevelWarning  = "WARNING"
	LevelError    = "ERROR"
	LevelCritical = "CRITICAL"
)

// Alert severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Well-known event types.
const (
	EventAPICall           = "API_CALL"
	EventLeadProgression   = "LEAD_PROGRESSION"
	EventWorkflowExecution = "WORKFLOW_EXECUTION"
	EventAlert             = "ALERT"
	EventError             = "ERROR"
)

// Well-known metric names.
const (
	MetricAPIResponseTimeMS  = "api_response_time_ms"
	MetricStageTransitions   = "stage_transitions"
	MetricWorkflowDurationMS = "workflow_duration_ms"
	MetricWorkflowFailures   = "workflow_failures"
	MetricConsentCompleted   = "consent_completed"
	MetricConsultDurationMin = "consult_duration_min"
)

// MetricSample is one recorded observation of a named metric.
type MetricSample struct {
	Timestamp time.Time         `json:"timestamp"`
	Value     float64           `json:"value"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// MetricSummary aggregates samples over a trailing window.
type MetricSummary struct {
	Count  int     `json:"count"`
	Avg    float64 `json:"avg"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Latest float64 `json:"latest"`
}

// Alert is raised by threshold checks or KPI evaluation. Acknowledgement is
// keyed by ID, never by position, so it stays correct under concurrent appends.
type Alert struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Type           string    `json:"type"`
	Message        string    `json:"message"`
	Severity       string    `json:"severity"`
	Acknowledged   bool      `json:"acknowledged"`
	AcknowledgedAt time.Time `json:"acknowledged_at,omitzero"`
}

// LogEntry is one structured entry in the bounded event log.
type LogEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	Level     string            `json:"level"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// KPISet holds the derived key performance indicators.
type KPISet struct {
	DocsToConsultConversion  float64 `json:"docs_to_consult_conversion"`
	MedianDocsCompletionDays float64 `json:"median_docs_completion_days"`
	ConsultOverrunRate       float64 `json:"consult_overrun_rate"`
	AutomationFailureRate    float64 `json:"automation_failure_rate"`
	ConsentComplianceRate    float64 `json:"consent_compliance_rate"`
}

// CheckResult is one sub-check within a health status.
type CheckResult struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// HealthStatus aggregates sub-checks; Status is unhealthy when any check is.
type HealthStatus struct {
	Timestamp time.Time              `json:"timestamp"`
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks"`
}

// Digest is the daily operational summary.
type Digest struct {
	Date           string         `json:"date"`
	LeadCounts     map[string]int `json:"lead_counts"`
	TotalLeads     int            `json:"total_leads"`
	RecentActivity map[string]int `json:"recent_activity"`
	ActiveAlerts   int            `json:"active_alerts"`
	KPIs           KPISet         `json:"kpis"`
	SystemHealth   string         `json:"system_health"`
}

// EndpointStats aggregates API calls for one endpoint over a window.
type EndpointStats struct {
	Count         int     `json:"count"`
	Errors        int     `json:"errors"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
	ErrorRate     float64 `json:"error_rate"`
}

// APIPerformance is the per-endpoint performance aggregation.
type APIPerformance struct {
	PeriodHours    int                      `json:"period_hours"`
	OverallMetrics MetricSummary            `json:"overall_metrics"`
	EndpointStats  map[string]EndpointStats `json:"endpoint_stats"`
	TotalRequests  int                      `json:"total_requests"`
}
