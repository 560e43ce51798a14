// Package lead defines the Lead aggregate and its ordered admissions pipeline.
//
// Invariants:
//   - MissingDocs = RequiredDocs − ReceivedDocs at all times
//   - Stage at or beyond docs_received requires an empty missing set
//   - Stage at or beyond clinical_review requires recorded consent (clinical
//     records are PHI; the consent gate sits in front of them)
//   - Stage transitions are monotonic; only administrative deletion removes a lead
package lead

import (
	"time"

	dErrors "github.com/josephcall20-lang/Admissions-co-pilot/pkg/domain-errors"
)

// Stage is the lead's position in the ordered admissions pipeline.
type Stage string

const (
	StageInquiry        Stage = "inquiry"
	StageDocsRequested  Stage = "docs_requested"
	StageDocsReceived   Stage = "docs_received"
	StageClinicalReview Stage = "clinical_review"
	StageConsultReady   Stage = "consult_ready"
	StageScheduled      Stage = "scheduled"
	StageDecision       Stage = "decision"
)

// Stages lists all pipeline stages in order.
var Stages = []Stage{
	StageInquiry,
	StageDocsRequested,
	StageDocsReceived,
	StageClinicalReview,
	StageConsultReady,
	StageScheduled,
	StageDecision,
}

var stageOrder = map[Stage]int{
	StageInquiry:        0,
	StageDocsRequested:  1,
	StageDocsReceived:   2,
	StageClinicalReview: 3,
	StageConsultReady:   4,
	StageScheduled:      5,
	StageDecision:       6,
}

// ParseStage constructs a Stage from external input.
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	if _, ok := stageOrder[st]; !ok {
		return "", dErrors.Newf(dErrors.CodeBadRequest, "invalid stage: %q", s)
	}
	return st, nil
}

func (s Stage) String() string { return string(s) }

// Index returns the stage's position in the pipeline order, -1 when invalid.
func (s Stage) Index() int {
	if i, ok := stageOrder[s]; ok {
		return i
	}
	return -1
}

// AtLeast reports whether s is at or beyond other in pipeline order.
func (s Stage) AtLeast(other Stage) bool {
	return s.Index() >= other.Index()
}

// IsTerminal reports whether the lead has reached the enrollment decision.
func (s Stage) IsTerminal() bool { return s == StageDecision }

// Relationship describes who is completing intake on the patient's behalf.
type Relationship string

const (
	RelationshipSelf           Relationship = "self"
	RelationshipRepresentative Relationship = "authorized_representative"
)

// StageChange records when a lead entered a stage, enabling measured
// completion-time KPIs instead of placeholder constants.
type StageChange struct {
	Stage     Stage     `json:"stage"`
	EnteredAt time.Time `json:"entered_at"`
}

// Lead is a prospective patient record moving through the admissions pipeline.
type Lead struct {
	ID           string       `json:"lead_id"`
	FirstName    string       `json:"first_name"`
	LastName     string       `json:"last_name"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	Timezone     string       `json:"timezone"`
	Relationship Relationship `json:"relationship"`
	Stage        Stage        `json:"stage"`

	HasConsent       bool      `json:"has_consent"`
	ConsentType      string    `json:"consent_type,omitempty"`
	ConsentVersion   string    `json:"consent_version,omitempty"`
	ConsentTimestamp time.Time `json:"consent_timestamp,omitzero"`

	RequiredDocs []string `json:"required_docs"`
	ReceivedDocs []string `json:"received_docs"`
	MissingDocs  []string `json:"missing_docs"`

	// ConsentEnvelopeID maps e-sign webhook deliveries back to this lead.
	ConsentEnvelopeID string `json:"consent_envelope_id,omitempty"`

	OwnerUserID    string        `json:"owner_user_id,omitempty"`
	LastTouch      time.Time     `json:"last_touch"`
	IdempotencyKey string        `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	StageHistory   []StageChange `json:"stage_history,omitempty"`
}

// FullName returns the lead's display name for notification templates.
func (l *Lead) FullName() string {
	return l.FirstName + " " + l.LastName
}

// SetDocuments replaces the received set and recomputes missing from required,
// preserving the missing = required − received invariant.
func (l *Lead) SetDocuments(received []string) {
	got := make(map[string]bool, len(received))
	for _, d := range received {
		got[d] = true
	}
	l.ReceivedDocs = l.ReceivedDocs[:0]
	l.MissingDocs = l.MissingDocs[:0]
	for _, d := range l.RequiredDocs {
		if got[d] {
			l.ReceivedDocs = append(l.ReceivedDocs, d)
		} else {
			l.MissingDocs = append(l.MissingDocs, d)
		}
	}
}

// DocsComplete reports whether every required document category was received.
func (l *Lead) DocsComplete() bool { return len(l.MissingDocs) == 0 }

// CanEnter validates the preconditions for moving to the target stage.
func (l *Lead) CanEnter(target Stage) error {
	if target.Index() < 0 {
		return dErrors.Newf(dErrors.CodeBadRequest, "invalid stage: %q", target)
	}
	if target.Index() <= l.Stage.Index() {
		return dErrors.Newf(dErrors.CodePreconditionNotMet,
			"stage transitions are monotonic: %s -> %s", l.Stage, target)
	}
	if target.AtLeast(StageDocsReceived) && !l.DocsComplete() {
		return dErrors.Newf(dErrors.CodePreconditionNotMet,
			"cannot enter %s with %d missing documents", target, len(l.MissingDocs))
	}
	if target.AtLeast(StageClinicalReview) && !l.HasConsent {
		return dErrors.Newf(dErrors.CodePreconditionNotMet,
			"cannot enter %s without consent on file", target)
	}
	return nil
}

// TransitionTo advances the lead to the target stage after validating
// preconditions, recording the entry timestamp and last touch.
func (l *Lead) TransitionTo(target Stage, now time.Time) error {
	if err := l.CanEnter(target); err != nil {
		return err
	}
	l.Stage = target
	l.LastTouch = now
	l.StageHistory = append(l.StageHistory, StageChange{Stage: target, EnteredAt: now})
	return nil
}

// RecordConsent marks consent as granted with its metadata. Idempotent: a
// second grant for the same lead leaves the original metadata in place.
func (l *Lead) RecordConsent(consentType, version string, at time.Time) bool {
	if l.HasConsent {
		return false
	}
	l.HasConsent = true
	l.ConsentType = consentType
	l.ConsentVersion = version
	l.ConsentTimestamp = at
	l.LastTouch = at
	return true
}

// StageEnteredAt returns when the lead first entered the given stage.
func (l *Lead) StageEnteredAt(stage Stage) (time.Time, bool) {
	for _, c := range l.StageHistory {
		if c.Stage == stage {
			return c.EnteredAt, true
		}
	}
	return time.Time{}, false
}
