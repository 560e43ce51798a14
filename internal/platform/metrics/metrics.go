// Package metrics holds the Prometheus instruments for the admissions service.
// These complement the in-process metric history kept by internal/observability:
// Prometheus is the scrape surface, observability answers windowed queries.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	APILatency       *prometheus.HistogramVec
	LeadsCreated     prometheus.Counter
	StageTransitions *prometheus.CounterVec
	WorkflowRuns     *prometheus.CounterVec
	WebhookEvents    *prometheus.CounterVec
	AlertsRaised     *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		APILatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "admissions_api_request_duration_seconds",
			Help:    "Duration of HTTP requests by endpoint and method",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"endpoint", "method"}),

		LeadsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "admissions_leads_created_total",
			Help: "Total number of leads created",
		}),

		StageTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "admissions_stage_transitions_total",
			Help: "Total lead stage transitions by from and to stage",
		}, []string{"from_stage", "to_stage"}),

		WorkflowRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "admissions_workflow_runs_total",
			Help: "Total workflow executions by type and outcome",
		}, []string{"workflow", "outcome"}),

		WebhookEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "admissions_consent_webhook_events_total",
			Help: "Total e-sign webhook deliveries by mapped outcome",
		}, []string{"outcome"}),

		AlertsRaised: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "admissions_alerts_raised_total",
			Help: "Total operational alerts raised by severity",
		}, []string{"severity"}),
	}
}

// ObserveAPILatency records the duration of a handled HTTP request.
func (m *Metrics) ObserveAPILatency(endpoint, method string, d time.Duration) {
	if m != nil {
		m.APILatency.WithLabelValues(endpoint, method).Observe(d.Seconds())
	}
}

// IncrementLeadsCreated records a newly created lead.
func (m *Metrics) IncrementLeadsCreated() {
	if m != nil {
		m.LeadsCreated.Inc()
	}
}

// IncrementStageTransition records a committed stage transition.
func (m *Metrics) IncrementStageTransition(from, to string) {
	if m != nil {
		m.StageTransitions.WithLabelValues(from, to).Inc()
	}
}

// IncrementWorkflowRun records one workflow execution outcome.
func (m *Metrics) IncrementWorkflowRun(workflow, outcome string) {
	if m != nil {
		m.WorkflowRuns.WithLabelValues(workflow, outcome).Inc()
	}
}

// IncrementWebhookEvent records one mapped webhook outcome.
func (m *Metrics) IncrementWebhookEvent(outcome string) {
	if m != nil {
		m.WebhookEvents.WithLabelValues(outcome).Inc()
	}
}

// IncrementAlertsRaised records a raised alert.
func (m *Metrics) IncrementAlertsRaised(severity string) {
	if m != nil {
		m.AlertsRaised.WithLabelValues(severity).Inc()
	}
}
