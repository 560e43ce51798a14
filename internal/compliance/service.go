// Package compliance evaluates consent and PHI-access rules against leads and
// intended operations, records audit entries, and produces the compliance
// report that gates sensitive-data access.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/josephcall20-lang/Admissions-co-pilot/internal/compliance/audit"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/lead"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/platform/config"
	dErrors "github.com/josephcall20-lang/Admissions-co-pilot/pkg/domain-errors"
	"github.com/josephcall20-lang/Admissions-co-pilot/pkg/requestcontext"
)

// PHI-touching operations with channel restrictions.
const (
	OperationEmailPHI    = "email_phi"
	OperationCalendarPHI = "calendar_phi"
)

// Retention actions.
const (
	ActionRetain = "retain"
	ActionPurge  = "purge"
)

// ValidationResult is the outcome of a PHI request check. Allowed is the
// logical AND of all checks; Violations lists every rule that failed.
type ValidationResult struct {
	Allowed    bool     `json:"allowed"`
	Violations []string `json:"violations"`
}

// RetentionDecision is advisory: the gate never deletes data itself.
type RetentionDecision struct {
	LeadID string `json:"lead_id"`
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// Report summarizes consent posture across the lead population.
type Report struct {
	ReportDate            time.Time               `json:"report_date"`
	TotalLeads            int                     `json:"total_leads"`
	ConsentedLeads        int                     `json:"consented_leads"`
	ConsentComplianceRate float64                 `json:"consent_compliance_rate"`
	PolicySettings        config.ComplianceConfig `json:"policy_settings"`
	Violations            []ReportViolation       `json:"violations"`
	AuditEntriesCount     int                     `json:"audit_entries_count"`
}

// ReportViolation aggregates one class of violation; leads are counted, never
// enumerated, to keep the report itself PHI-free.
type ReportViolation struct {
	Type        string `json:"type"`
	Count       int    `json:"count"`
	Description string `json:"description"`
}

// LeadReader is the read-only view of the lead store the gate needs. The gate
// never mutates leads.
type LeadReader interface {
	List(ctx context.Context) ([]*lead.Lead, error)
	Count(ctx context.Context) (int, error)
}

// Gate enforces the compliance policy. Construct once at process start and
// pass by reference; there is no package-level instance.
type Gate struct {
	policy    config.ComplianceConfig
	leads     LeadReader
	store     audit.Store
	publisher audit.Publisher
	logger    *slog.Logger
}

func NewGate(policy config.ComplianceConfig, leads LeadReader, store audit.Store, publisher audit.Publisher, logger *slog.Logger) *Gate {
	return &Gate{policy: policy, leads: leads, store: store, publisher: publisher, logger: logger}
}

// CheckConsentGate reports whether PHI-touching operations may proceed for the
// lead: true when policy does not require pre-PHI consent, or consent is on file.
func (g *Gate) CheckConsentGate(l *lead.Lead) bool {
	if !g.policy.RequireConsentBeforePHI {
		return true
	}
	return l.HasConsent
}

// ValidatePHIRequest checks a PHI request against channel and consent rules.
// Violations are ordered: consent first, then channel rules.
func (g *Gate) ValidatePHIRequest(l *lead.Lead, operation string) ValidationResult {
	result := ValidationResult{Allowed: true, Violations: []string{}}

	if !g.CheckConsentGate(l) {
		result.Allowed = false
		result.Violations = append(result.Violations, "consent required before PHI access")
	}

	if operation == OperationEmailPHI && g.policy.PHIInEmailForbidden {
		result.Allowed = false
		result.Violations = append(result.Violations, "PHI in email is forbidden")
	}
	if operation == OperationCalendarPHI && g.policy.PHIInCalendarForbidden {
		result.Allowed = false
		result.Violations = append(result.Violations, "PHI in calendar is forbidden")
	}

	return result
}

// RequirePHIAccess is ValidatePHIRequest as an error: callers that must block
// on violation get a CodeComplianceViolation carrying every failed rule.
func (g *Gate) RequirePHIAccess(l *lead.Lead, operation string) error {
	result := g.ValidatePHIRequest(l, operation)
	if result.Allowed {
		return nil
	}
	return dErrors.Newf(dErrors.CodeComplianceViolation, "phi request denied: %v", result.Violations)
}

// AuditAccess appends an immutable audit entry and fans it out to the
// compliance sink. Best-effort: failures are logged, never propagated, so the
// audited operation is not blocked.
func (g *Gate) AuditAccess(ctx context.Context, leadID, userID, operation string, details map[string]string) audit.Entry {
	if userID == "" {
		userID = requestcontext.UserID(ctx)
	}
	entry := audit.Entry{
		ID:        uuid.NewString(),
		Timestamp: requestcontext.Now(ctx),
		LeadID:    leadID,
		UserID:    userID,
		Operation: operation,
		Outcome:   "recorded",
		Details:   details,
		IPAddress: requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
	}
	if err := g.store.Append(ctx, entry); err != nil {
		g.logger.ErrorContext(ctx, "audit append failed",
			"lead_id", leadID,
			"operation", operation,
			"error", err.Error(),
		)
	}
	if g.publisher != nil {
		if err := g.publisher.Publish(ctx, entry); err != nil {
			g.logger.WarnContext(ctx, "audit publish failed",
				"lead_id", leadID,
				"error", err.Error(),
			)
		}
	}
	return entry
}

// CheckRetention decides whether a lead's data should be retained or purged.
// Enrolled leads (terminal stage) are always retained. The decision is
// advisory; physical deletion is a separate administrative action.
func (g *Gate) CheckRetention(l *lead.Lead, now time.Time) RetentionDecision {
	if l.LastTouch.IsZero() {
		return RetentionDecision{LeadID: l.ID, Action: ActionRetain, Reason: "no last touch date"}
	}
	days := int(now.Sub(l.LastTouch).Hours() / 24)
	if days > g.policy.DataRetentionDays {
		if l.Stage.IsTerminal() {
			return RetentionDecision{LeadID: l.ID, Action: ActionRetain, Reason: "patient enrolled"}
		}
		return RetentionDecision{
			LeadID: l.ID,
			Action: ActionPurge,
			Reason: fmt.Sprintf("retention period exceeded (%d days)", days),
		}
	}
	return RetentionDecision{
		LeadID: l.ID,
		Action: ActionRetain,
		Reason: fmt.Sprintf("within retention period (%d days)", days),
	}
}

// GenerateComplianceReport aggregates consent posture and policy settings.
func (g *Gate) GenerateComplianceReport(ctx context.Context) (*Report, error) {
	leads, err := g.leads.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to list leads for report")
	}

	consented := 0
	for _, l := range leads {
		if l.HasConsent {
			consented++
		}
	}

	rate := 100.0
	if len(leads) > 0 {
		rate = float64(consented) / float64(len(leads)) * 100
	}

	auditCount, err := g.store.Count(ctx)
	if err != nil {
		g.logger.WarnContext(ctx, "audit count unavailable for report", "error", err.Error())
	}

	report := &Report{
		ReportDate:            requestcontext.Now(ctx),
		TotalLeads:            len(leads),
		ConsentedLeads:        consented,
		ConsentComplianceRate: rate,
		PolicySettings:        g.policy,
		Violations:            []ReportViolation{},
		AuditEntriesCount:     auditCount,
	}

	if missing := len(leads) - consented; missing > 0 {
		report.Violations = append(report.Violations, ReportViolation{
			Type:        "missing_consent",
			Count:       missing,
			Description: "leads without proper consent on file",
		})
	}

	return report, nil
}
