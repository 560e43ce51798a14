package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/josephcall20-lang/Admissions-co-pilot/internal/compliance"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/compliance/audit"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/documents"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/esign"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/lead"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/notify"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/observability"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/platform/config"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/workflow"
	"github.com/josephcall20-lang/Admissions-co-pilot/pkg/testutil"
)

const webhookSecret = "test-webhook-secret"

// WorkflowHandlerSuite runs the full engine behind the HTTP surface with
// in-memory collaborators, covering intake to consent end to end.
type WorkflowHandlerSuite struct {
	suite.Suite
	ctx      context.Context
	store    *lead.InMemoryStore
	tracker  *documents.InMemoryTracker
	provider *esign.InMemoryProvider
	notifier *notify.LogNotifier
	router   chi.Router
}

func (s *WorkflowHandlerSuite) SetupTest() {
	s.ctx = context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.store = lead.NewInMemoryStore()
	s.tracker = documents.NewInMemoryTracker(168 * time.Hour)
	s.provider = esign.NewInMemoryProvider()
	s.notifier = notify.NewLogNotifier(logger)

	obs := observability.NewEngine(s.store, nil, logger)
	gate := compliance.NewGate(config.ComplianceConfig{
		RequireConsentBeforePHI: true,
		DataRetentionDays:       365,
	}, s.store, audit.NewInMemoryStore(), nil, logger)
	engine := workflow.NewEngine(s.store, gate, s.tracker, s.provider, s.notifier, obs, nil, workflow.Config{
		ConsentTemplateVersion: "v1.2",
		ReminderAfter:          72 * time.Hour,
	}, logger)

	h := New(engine, s.store, obs, webhookSecret, logger)
	s.router = chi.NewRouter()
	h.Register(s.router)
	h.Webhooks(s.router)
}

func TestWorkflowHandlerSuite(t *testing.T) {
	suite.Run(t, new(WorkflowHandlerSuite))
}

func (s *WorkflowHandlerSuite) seedLead() *lead.Lead {
	l := &lead.Lead{
		ID:           "lead-1",
		FirstName:    "Maya",
		LastName:     "Osei",
		Email:        "maya@example.com",
		Stage:        lead.StageInquiry,
		RequiredDocs: documents.Categories(),
		MissingDocs:  documents.Categories(),
		ReceivedDocs: []string{},
		CreatedAt:    time.Now(),
		LastTouch:    time.Now(),
	}
	require.NoError(s.T(), s.store.Create(s.ctx, l))
	return l
}

func signPayload(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *WorkflowHandlerSuite) webhookRequest(payload esign.WebhookPayload) *http.Request {
	body, err := json.Marshal(payload)
	require.NoError(s.T(), err)
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/workflows/consent/webhook", string(body))
	req.Header.Set("X-Signature", signPayload(body))
	return req
}

func (s *WorkflowHandlerSuite) TestTriggerRejectsUnknownWorkflowType() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/workflows/F9_Unknown/lead-1"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *WorkflowHandlerSuite) TestTriggerUnknownLead() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/workflows/F1_WebLead/ghost"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *WorkflowHandlerSuite) TestIntakeToConsentScenario() {
	s.seedLead()

	// Inquiry: first trigger opens channels and requests documents.
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/workflows/F1_WebLead/lead-1"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	result := testutil.UnmarshalResponse[workflow.TransitionResult](s.T(), rr)
	assert.True(s.T(), result.Advanced)
	assert.Equal(s.T(), lead.StageDocsRequested, result.Stage)

	sent := s.notifier.Sent()
	require.Len(s.T(), sent, 1)
	assert.Equal(s.T(), notify.TemplateSecureUploadAndConsent, sent[0].Template)

	// Documents incomplete: re-trigger reports what is missing.
	s.tracker.RecordUpload("lead-1", documents.CategoryImaging)
	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/workflows/F1_WebLead/lead-1"))
	testutil.AssertStatus(s.T(), rr, http.StatusUnprocessableEntity)
	result = testutil.UnmarshalResponse[workflow.TransitionResult](s.T(), rr)
	assert.False(s.T(), result.Advanced)
	assert.Len(s.T(), result.MissingDocs, 4)

	// All documents in: the lead reaches docs_received.
	for _, category := range documents.Categories() {
		s.tracker.RecordUpload("lead-1", category)
	}
	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/workflows/F1_WebLead/lead-1"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	result = testutil.UnmarshalResponse[workflow.TransitionResult](s.T(), rr)
	assert.True(s.T(), result.Advanced)
	assert.Equal(s.T(), lead.StageDocsReceived, result.Stage)

	// Consent webhook completes the gate.
	stored, err := s.store.FindByID(s.ctx, "lead-1")
	require.NoError(s.T(), err)
	require.NotEmpty(s.T(), stored.ConsentEnvelopeID)

	rr = testutil.DoRequest(s.router, s.webhookRequest(esign.WebhookPayload{
		EnvelopeID: stored.ConsentEnvelopeID,
		Status:     esign.StatusCompleted,
	}))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	webhookResult := testutil.UnmarshalResponse[workflow.WebhookResult](s.T(), rr)
	assert.Equal(s.T(), workflow.OutcomeConsentCompleted, webhookResult.Action)
	assert.False(s.T(), webhookResult.Duplicate)

	// A replayed delivery is absorbed.
	rr = testutil.DoRequest(s.router, s.webhookRequest(esign.WebhookPayload{
		EnvelopeID: stored.ConsentEnvelopeID,
		Status:     esign.StatusCompleted,
	}))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	webhookResult = testutil.UnmarshalResponse[workflow.WebhookResult](s.T(), rr)
	assert.True(s.T(), webhookResult.Duplicate)

	final, err := s.store.FindByID(s.ctx, "lead-1")
	require.NoError(s.T(), err)
	assert.True(s.T(), final.HasConsent)
	assert.Equal(s.T(), "v1.2", final.ConsentVersion)
}

func (s *WorkflowHandlerSuite) TestWebhookRejectsBadSignature() {
	body, err := json.Marshal(esign.WebhookPayload{EnvelopeID: "env-1", Status: esign.StatusCompleted})
	require.NoError(s.T(), err)

	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/workflows/consent/webhook", string(body))
	req.Header.Set("X-Signature", "deadbeef")
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *WorkflowHandlerSuite) TestWebhookRejectsMissingEnvelopeID() {
	rr := testutil.DoRequest(s.router, s.webhookRequest(esign.WebhookPayload{Status: esign.StatusCompleted}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *WorkflowHandlerSuite) TestStatusEndpoint() {
	s.seedLead()

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/workflows/status/lead-1"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	testutil.AssertJSONContains(s.T(), rr, "stage", "inquiry")
	testutil.AssertJSONContains(s.T(), rr, "has_consent", false)
}

func (s *WorkflowHandlerSuite) TestDailyMaintenanceEndpoint() {
	l := s.seedLead()
	l.Stage = lead.StageDocsRequested
	l.LastTouch = time.Now().Add(-100 * time.Hour)
	require.NoError(s.T(), s.store.Update(s.ctx, l))

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/workflows/maintenance/daily"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	summary := testutil.UnmarshalResponse[workflow.MaintenanceSummary](s.T(), rr)
	assert.Equal(s.T(), 1, summary.LeadsProcessed)
	assert.Equal(s.T(), 1, summary.RemindersSent)
}

func (s *WorkflowHandlerSuite) TestSendRemindersEndpoint() {
	l := s.seedLead()
	l.Stage = lead.StageDocsRequested
	l.LastTouch = time.Now().Add(-100 * time.Hour)
	require.NoError(s.T(), s.store.Update(s.ctx, l))

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/workflows/reminders/send"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	summary := testutil.UnmarshalResponse[workflow.ReminderSummary](s.T(), rr)
	assert.Equal(s.T(), "completed", summary.Status)
	assert.Equal(s.T(), 1, summary.LeadsChecked)
	assert.Equal(s.T(), 1, summary.RemindersSent)
	assert.Len(s.T(), s.notifier.Sent(), 1)
}

func (s *WorkflowHandlerSuite) TestMetricsEndpoint() {
	s.seedLead()

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/workflows/metrics"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	type response struct {
		Pipeline workflow.PipelineSnapshot `json:"pipeline"`
	}
	resp := testutil.UnmarshalResponse[response](s.T(), rr)
	assert.Equal(s.T(), 1, resp.Pipeline.TotalLeads)
	assert.Equal(s.T(), 1, resp.Pipeline.StageDistribution["inquiry"])
	assert.Zero(s.T(), resp.Pipeline.ConsentRate)
}
