package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/josephcall20-lang/Admissions-co-pilot/internal/compliance"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/compliance/audit"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/lead"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/platform/config"
	"github.com/josephcall20-lang/Admissions-co-pilot/pkg/testutil"
)

type LeadHandlerSuite struct {
	suite.Suite
	ctx        context.Context
	store      *lead.InMemoryStore
	auditStore *audit.InMemoryStore
	router     chi.Router
}

func (s *LeadHandlerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = lead.NewInMemoryStore()
	s.auditStore = audit.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gate := compliance.NewGate(config.ComplianceConfig{
		RequireConsentBeforePHI: true,
		AuditAllPHIAccess:       true,
		DataRetentionDays:       365,
	}, s.store, s.auditStore, nil, logger)

	h := New(s.store, gate, logger, nil)
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func TestLeadHandlerSuite(t *testing.T) {
	suite.Run(t, new(LeadHandlerSuite))
}

func (s *LeadHandlerSuite) TestCreateLead() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/leads", CreateRequest{
		FirstName:    "Maya",
		LastName:     "Osei",
		Email:        "maya@example.com",
		Phone:        "555-0001",
		Relationship: "self",
	})
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	created := testutil.UnmarshalResponse[lead.Lead](s.T(), rr)
	assert.NotEmpty(s.T(), created.ID)
	assert.Equal(s.T(), lead.StageInquiry, created.Stage)
	assert.Len(s.T(), created.MissingDocs, 5)
	assert.Empty(s.T(), created.ReceivedDocs)
}

func (s *LeadHandlerSuite) TestCreateLeadIdempotent() {
	body := CreateRequest{
		FirstName:      "Maya",
		LastName:       "Osei",
		Email:          "maya@example.com",
		IdempotencyKey: "intake-42",
	}

	first := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/leads", body))
	testutil.AssertStatus(s.T(), first, http.StatusCreated)
	created := testutil.UnmarshalResponse[lead.Lead](s.T(), first)

	second := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/leads", body))
	testutil.AssertStatus(s.T(), second, http.StatusOK)
	replayed := testutil.UnmarshalResponse[lead.Lead](s.T(), second)
	assert.Equal(s.T(), created.ID, replayed.ID)

	count, err := s.store.Count(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, count)
}

func (s *LeadHandlerSuite) TestCreateLeadValidation() {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/leads", CreateRequest{
		FirstName: "NoLast",
	}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/leads", CreateRequest{
		FirstName:    "Maya",
		LastName:     "Osei",
		Email:        "maya@example.com",
		Relationship: "neighbor",
	}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")

	rr = testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/leads", "{not json"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *LeadHandlerSuite) TestCreateLeadConflict() {
	body := CreateRequest{FirstName: "Maya", LastName: "Osei", Email: "maya@example.com"}
	testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/leads", body))

	dup := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/leads", CreateRequest{
		FirstName: "Other", LastName: "Person", Email: "maya@example.com",
	}))
	testutil.AssertStatusAndError(s.T(), dup, http.StatusConflict, "conflict")
}

func (s *LeadHandlerSuite) TestGetLeadAuditsAccess() {
	created := testutil.UnmarshalResponse[lead.Lead](s.T(), testutil.DoRequest(s.router,
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/leads", CreateRequest{
			FirstName: "Maya", LastName: "Osei", Email: "maya@example.com",
		})))

	req := testutil.WithUserID(testutil.NewRequest(s.T(), http.MethodGet, "/leads/"+created.ID), "staff-7")
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	entries, err := s.auditStore.ListByLead(s.ctx, created.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 1)
	assert.Equal(s.T(), "lead_read", entries[0].Operation)
	assert.Equal(s.T(), "staff-7", entries[0].UserID)
}

func (s *LeadHandlerSuite) TestGetLeadNotFound() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/leads/ghost"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *LeadHandlerSuite) TestListLeadsByStage() {
	testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/leads", CreateRequest{
		FirstName: "Maya", LastName: "Osei", Email: "maya@example.com",
	}))

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/leads?stage=inquiry"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	testutil.AssertJSONContains(s.T(), rr, "count", float64(1))

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/leads?stage=bogus"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *LeadHandlerSuite) seedReviewCandidate(hasConsent bool) *lead.Lead {
	created := testutil.UnmarshalResponse[lead.Lead](s.T(), testutil.DoRequest(s.router,
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/leads", CreateRequest{
			FirstName: "Maya", LastName: "Osei", Email: "maya@example.com",
		})))

	l, err := s.store.FindByID(s.ctx, created.ID)
	require.NoError(s.T(), err)
	l.SetDocuments(l.RequiredDocs)
	l.Stage = lead.StageDocsReceived
	l.HasConsent = hasConsent
	require.NoError(s.T(), s.store.Update(s.ctx, l))
	return l
}

func (s *LeadHandlerSuite) TestUpdateStageToClinicalReview() {
	l := s.seedReviewCandidate(true)

	req := testutil.WithUserID(testutil.NewJSONRequest(s.T(), http.MethodPut,
		"/leads/"+l.ID+"/stage", StageRequest{Stage: "clinical_review"}), "staff-7")
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	updated := testutil.UnmarshalResponse[lead.Lead](s.T(), rr)
	assert.Equal(s.T(), lead.StageClinicalReview, updated.Stage)

	entries, err := s.auditStore.ListByLead(s.ctx, l.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 1)
	assert.Equal(s.T(), "stage_transition", entries[0].Operation)
	assert.Equal(s.T(), "clinical_review", entries[0].Details["to_stage"])
}

func (s *LeadHandlerSuite) TestUpdateStageDeniedWithoutConsent() {
	l := s.seedReviewCandidate(false)

	req := testutil.NewJSONRequest(s.T(), http.MethodPut,
		"/leads/"+l.ID+"/stage", StageRequest{Stage: "clinical_review"})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "compliance_violation")

	stored, err := s.store.FindByID(s.ctx, l.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), lead.StageDocsReceived, stored.Stage)
}

func (s *LeadHandlerSuite) TestUpdateStageRejectsBackwardMove() {
	l := s.seedReviewCandidate(true)

	req := testutil.NewJSONRequest(s.T(), http.MethodPut,
		"/leads/"+l.ID+"/stage", StageRequest{Stage: "inquiry"})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "precondition_not_met")
}

func (s *LeadHandlerSuite) TestUpdateStageRejectsUnknownStage() {
	l := s.seedReviewCandidate(true)

	req := testutil.NewJSONRequest(s.T(), http.MethodPut,
		"/leads/"+l.ID+"/stage", StageRequest{Stage: "graduated"})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *LeadHandlerSuite) TestDeleteLeadAuditsPurge() {
	created := testutil.UnmarshalResponse[lead.Lead](s.T(), testutil.DoRequest(s.router,
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/leads", CreateRequest{
			FirstName: "Maya", LastName: "Osei", Email: "maya@example.com",
		})))

	req := testutil.WithUserID(testutil.NewRequest(s.T(), http.MethodDelete, "/leads/"+created.ID), "admin-1")
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

	_, err := s.store.FindByID(s.ctx, created.ID)
	assert.ErrorIs(s.T(), err, lead.ErrNotFound)

	entries, err := s.auditStore.ListByLead(s.ctx, created.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 1)
	assert.Equal(s.T(), "lead_purge", entries[0].Operation)
}
