// Package workflow is the stage-transition engine. It advances a lead through
// the admissions pipeline when gate and document conditions hold, driving the
// document, e-sign, and notification collaborators.
package workflow

import (
	"time"

	"github.com/josephcall20-lang/Admissions-co-pilot/internal/compliance"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/lead"
)

// Workflow types accepted by the trigger endpoint.
const (
	WorkflowWebLead   = "F1_WebLead"
	WorkflowPhoneLead = "F2_PhoneLead"
)

// Step records one side effect performed during an Advance call, in order.
type Step struct {
	Step      string    `json:"step"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
}

// TransitionResult reports the outcome of one Advance call.
type TransitionResult struct {
	LeadID      string     `json:"lead_id"`
	FromStage   lead.Stage `json:"from_stage"`
	Stage       lead.Stage `json:"current_stage"`
	Advanced    bool       `json:"advanced"`
	Reason      string     `json:"reason,omitempty"`
	MissingDocs []string   `json:"missing_docs,omitempty"`
	Steps       []Step     `json:"steps"`
}

// WebhookOutcome is the mapped action for an e-sign webhook delivery.
type WebhookOutcome string

const (
	OutcomeConsentCompleted WebhookOutcome = "consent_completed"
	OutcomeConsentDeclined  WebhookOutcome = "consent_declined"
	OutcomeStatusUpdate     WebhookOutcome = "status_update"
)

// WebhookResult reports the outcome of one webhook delivery. Duplicate marks a
// replay that was absorbed without side effects.
type WebhookResult struct {
	Action     WebhookOutcome `json:"action"`
	EnvelopeID string         `json:"envelope_id"`
	LeadID     string         `json:"lead_id,omitempty"`
	Status     string         `json:"status,omitempty"`
	Duplicate  bool           `json:"duplicate,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// MaintenanceSummary reports one daily maintenance run. PurgeCandidates is
// advisory; no deletion happens during maintenance.
type MaintenanceSummary struct {
	Timestamp       time.Time                      `json:"timestamp"`
	LeadsProcessed  int                            `json:"leads_processed"`
	RemindersSent   int                            `json:"reminders_sent"`
	LeadsAdvanced   int                            `json:"leads_advanced"`
	Failures        int                            `json:"failures"`
	RetainedCount   int                            `json:"retained_count"`
	PurgeCandidates []compliance.RetentionDecision `json:"purge_candidates"`
}

// ReminderSummary reports one manually triggered reminder pass.
type ReminderSummary struct {
	Status        string    `json:"status"`
	LeadsChecked  int       `json:"leads_checked"`
	RemindersSent int       `json:"reminders_sent"`
	LeadsAdvanced int       `json:"leads_advanced"`
	Failures      int       `json:"failures"`
	Timestamp     time.Time `json:"timestamp"`
}

// PipelineSnapshot is a point-in-time view of the funnel, computed from the
// lead store rather than the metric history.
type PipelineSnapshot struct {
	TotalLeads              int            `json:"total_leads"`
	StageDistribution       map[string]int `json:"stage_distribution"`
	ConsentRate             float64        `json:"consent_rate"`
	DocsCompletionRate      float64        `json:"docs_completion_rate"`
	DocsToConsultConversion float64        `json:"docs_to_consult_conversion_rate"`
	Timestamp               time.Time      `json:"timestamp"`
}
