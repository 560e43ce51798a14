//go:build integration

package lead_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/josephcall20-lang/Admissions-co-pilot/internal/lead"
	"github.com/josephcall20-lang/Admissions-co-pilot/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx      context.Context
	postgres *containers.PostgresContainer
	store    *lead.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.NewPostgresContainer(s.T())
	s.postgres.Exec(s.T(), lead.Schema())
	s.store = lead.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.postgres.Exec(s.T(), "TRUNCATE TABLE leads")
}

func newLead(id, email, phone string) *lead.Lead {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &lead.Lead{
		ID:           id,
		FirstName:    "Jordan",
		LastName:     "Reyes",
		Email:        email,
		Phone:        phone,
		Timezone:     "America/Phoenix",
		Relationship: lead.RelationshipSelf,
		Stage:        lead.StageInquiry,
		RequiredDocs: []string{"insurance_card", "photo_id"},
		MissingDocs:  []string{"insurance_card", "photo_id"},
		LastTouch:    now,
		CreatedAt:    now,
		StageHistory: []lead.StageChange{{Stage: lead.StageInquiry, EnteredAt: now}},
	}
}

func (s *PostgresStoreSuite) seed(id, email, phone string) *lead.Lead {
	l := newLead(id, email, phone)
	s.Require().NoError(s.store.Create(s.ctx, l))
	return l
}

func (s *PostgresStoreSuite) TestCreateAndFindRoundTrip() {
	created := s.seed("lead-1", "jordan@example.com", "+14805550101")

	found, err := s.store.FindByID(s.ctx, "lead-1")
	s.Require().NoError(err)
	s.Equal(created.Email, found.Email)
	s.Equal(lead.StageInquiry, found.Stage)
	s.ElementsMatch([]string{"insurance_card", "photo_id"}, found.MissingDocs)
	s.Require().Len(found.StageHistory, 1)
	s.Equal(lead.StageInquiry, found.StageHistory[0].Stage)
	s.WithinDuration(created.LastTouch, found.LastTouch, time.Second)
}

func (s *PostgresStoreSuite) TestDuplicateEmailIsConflict() {
	s.seed("lead-1", "jordan@example.com", "+14805550101")

	dup := newLead("lead-2", "jordan@example.com", "+14805550102")
	s.ErrorIs(s.store.Create(s.ctx, dup), lead.ErrConflict)
}

func (s *PostgresStoreSuite) TestFindByIdempotencyKey() {
	l := newLead("lead-1", "jordan@example.com", "+14805550101")
	l.IdempotencyKey = "form-submit-42"
	s.Require().NoError(s.store.Create(s.ctx, l))

	found, err := s.store.FindByIdempotencyKey(s.ctx, "form-submit-42")
	s.Require().NoError(err)
	s.Equal("lead-1", found.ID)

	_, err = s.store.FindByIdempotencyKey(s.ctx, "")
	s.ErrorIs(err, lead.ErrNotFound)

	_, err = s.store.FindByIdempotencyKey(s.ctx, "unknown")
	s.ErrorIs(err, lead.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdatePersistsConsentAndStage() {
	l := s.seed("lead-1", "jordan@example.com", "+14805550101")

	now := time.Now().UTC().Truncate(time.Millisecond)
	l.ConsentEnvelopeID = "env-9"
	s.Require().NoError(l.TransitionTo(lead.StageDocsRequested, now))
	s.Require().NoError(s.store.Update(s.ctx, l))

	s.Require().True(l.RecordConsent("hipaa_authorization", "v1.2", now))
	s.Require().NoError(s.store.Update(s.ctx, l))

	found, err := s.store.FindByEnvelopeID(s.ctx, "env-9")
	s.Require().NoError(err)
	s.Equal("lead-1", found.ID)
	s.Equal(lead.StageDocsRequested, found.Stage)
	s.True(found.HasConsent)
	s.Equal("v1.2", found.ConsentVersion)
	s.WithinDuration(now, found.ConsentTimestamp, time.Second)
	s.Len(found.StageHistory, 2)
}

func (s *PostgresStoreSuite) TestUpdateUnknownLead() {
	l := s.seed("lead-1", "jordan@example.com", "+14805550101")
	s.Require().NoError(s.store.Delete(s.ctx, l.ID))
	s.ErrorIs(s.store.Update(s.ctx, l), lead.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByStageAndCount() {
	s.seed("lead-1", "a@example.com", "+14805550101")
	s.seed("lead-2", "b@example.com", "+14805550102")

	l3 := s.seed("lead-3", "c@example.com", "+14805550103")
	s.Require().NoError(l3.TransitionTo(lead.StageDocsRequested, time.Now().UTC()))
	s.Require().NoError(s.store.Update(s.ctx, l3))

	inquiry, err := s.store.ListByStage(s.ctx, lead.StageInquiry)
	s.Require().NoError(err)
	s.Len(inquiry, 2)

	requested, err := s.store.ListByStage(s.ctx, lead.StageDocsRequested)
	s.Require().NoError(err)
	s.Require().Len(requested, 1)
	s.Equal("lead-3", requested[0].ID)

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, count)
}

func (s *PostgresStoreSuite) TestDeleteRemovesLead() {
	s.seed("lead-1", "jordan@example.com", "+14805550101")

	s.Require().NoError(s.store.Delete(s.ctx, "lead-1"))
	_, err := s.store.FindByID(s.ctx, "lead-1")
	s.ErrorIs(err, lead.ErrNotFound)

	s.ErrorIs(s.store.Delete(s.ctx, "lead-1"), lead.ErrNotFound)
}
