package lead

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	dErrors "github.com/josephcall20-lang/Admissions-co-pilot/pkg/domain-errors"
)

type LeadModelSuite struct {
	suite.Suite
	now time.Time
}

func (s *LeadModelSuite) SetupTest() {
	s.now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
}

func TestLeadModelSuite(t *testing.T) {
	suite.Run(t, new(LeadModelSuite))
}

func (s *LeadModelSuite) newLead() *Lead {
	return &Lead{
		ID:           "lead-1",
		FirstName:    "Ada",
		LastName:     "Nguyen",
		Email:        "ada@example.com",
		Stage:        StageInquiry,
		RequiredDocs: []string{"imaging", "labs"},
		MissingDocs:  []string{"imaging", "labs"},
		ReceivedDocs: []string{},
		CreatedAt:    s.now,
		LastTouch:    s.now,
	}
}

func (s *LeadModelSuite) TestTransitionIsMonotonic() {
	l := s.newLead()
	require.NoError(s.T(), l.TransitionTo(StageDocsRequested, s.now))

	err := l.TransitionTo(StageInquiry, s.now)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodePreconditionNotMet))
	assert.Equal(s.T(), StageDocsRequested, l.Stage)
}

func (s *LeadModelSuite) TestDocsReceivedRequiresCompleteDocuments() {
	l := s.newLead()
	require.NoError(s.T(), l.TransitionTo(StageDocsRequested, s.now))

	err := l.TransitionTo(StageDocsReceived, s.now)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodePreconditionNotMet))

	l.SetDocuments([]string{"imaging", "labs"})
	assert.True(s.T(), l.DocsComplete())
	require.NoError(s.T(), l.TransitionTo(StageDocsReceived, s.now))
}

func (s *LeadModelSuite) TestClinicalReviewRequiresConsent() {
	l := s.newLead()
	l.SetDocuments([]string{"imaging", "labs"})
	require.NoError(s.T(), l.TransitionTo(StageDocsRequested, s.now))
	require.NoError(s.T(), l.TransitionTo(StageDocsReceived, s.now))

	err := l.TransitionTo(StageClinicalReview, s.now)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodePreconditionNotMet))

	assert.True(s.T(), l.RecordConsent("hipaa_authorization", "v1.2", s.now))
	require.NoError(s.T(), l.TransitionTo(StageClinicalReview, s.now))
}

func (s *LeadModelSuite) TestSetDocumentsIgnoresUnknownCategories() {
	l := s.newLead()
	l.SetDocuments([]string{"imaging", "tax_returns"})

	assert.Equal(s.T(), []string{"imaging"}, l.ReceivedDocs)
	assert.Equal(s.T(), []string{"labs"}, l.MissingDocs)
}

func (s *LeadModelSuite) TestRecordConsentIsIdempotent() {
	l := s.newLead()
	first := s.now
	later := s.now.Add(2 * time.Hour)

	require.True(s.T(), l.RecordConsent("hipaa_authorization", "v1.2", first))
	assert.False(s.T(), l.RecordConsent("hipaa_authorization", "v1.3", later))

	assert.Equal(s.T(), "v1.2", l.ConsentVersion)
	assert.Equal(s.T(), first, l.ConsentTimestamp)
}

func (s *LeadModelSuite) TestStageHistoryRecordsEntryTimes() {
	l := s.newLead()
	requested := s.now.Add(time.Hour)
	received := s.now.Add(26 * time.Hour)

	require.NoError(s.T(), l.TransitionTo(StageDocsRequested, requested))
	l.SetDocuments([]string{"imaging", "labs"})
	require.NoError(s.T(), l.TransitionTo(StageDocsReceived, received))

	at, ok := l.StageEnteredAt(StageDocsRequested)
	require.True(s.T(), ok)
	assert.Equal(s.T(), requested, at)

	at, ok = l.StageEnteredAt(StageDocsReceived)
	require.True(s.T(), ok)
	assert.Equal(s.T(), received, at)

	_, ok = l.StageEnteredAt(StageScheduled)
	assert.False(s.T(), ok)
}

func (s *LeadModelSuite) TestParseStageRejectsUnknownValues() {
	_, err := ParseStage("enrolled")
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeBadRequest))

	stage, err := ParseStage("clinical_review")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), StageClinicalReview, stage)
}

func (s *LeadModelSuite) TestStageOrdering() {
	assert.True(s.T(), StageDecision.AtLeast(StageInquiry))
	assert.False(s.T(), StageInquiry.AtLeast(StageDocsRequested))
	assert.True(s.T(), StageDecision.IsTerminal())
	assert.False(s.T(), StageScheduled.IsTerminal())
	assert.Equal(s.T(), -1, Stage("bogus").Index())
}
