//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"immersion/internal/agency"
	"immersion/internal/convention/models"
	"immersion/internal/convention/store"
	id "immersion/pkg/domain"
	"immersion/pkg/platform/sentinel"
	"immersion/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
	agencies *agency.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.agencies = agency.NewPostgres(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "assessments", "conventions", "agencies")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) seedAgency() *agency.Agency {
	now := time.Now().UTC().Truncate(time.Microsecond)
	a := &agency.Agency{
		ID:               id.NewAgencyID(),
		Name:             "Mission Locale de Tours",
		Kind:             agency.KindMissionLocale,
		CounsellorEmails: []string{"counsellor@agency.test"},
		ValidatorEmails:  []string{"validator@agency.test"},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.Require().NoError(s.agencies.Create(context.Background(), a))
	return a
}

func (s *PostgresStoreSuite) newConvention(agencyID id.AgencyID) *models.Convention {
	start := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	c, err := models.New(id.NewConventionID(), models.CreateParams{
		AgencyID:  agencyID,
		DateStart: start,
		DateEnd:   start.AddDate(0, 0, 4),
		Schedule: models.Schedule{Slots: []models.TimeSlot{
			{Start: start.Add(9 * time.Hour), End: start.Add(12 * time.Hour)},
			{Start: start.Add(14 * time.Hour), End: start.Add(17 * time.Hour)},
		}},
		Signatories: models.Signatories{
			Beneficiary: models.Signatory{
				Role: id.RoleBeneficiary, FirstName: "Nadia", LastName: "Bel",
				Email: "nadia@example.test",
			},
			EstablishmentRepresentative: models.Signatory{
				Role: id.RoleEstablishmentRepresentative, FirstName: "Marc", LastName: "Durand",
				Email: "marc@boulangerie.test",
			},
		},
		EstablishmentSiret:      "13002526500013",
		EstablishmentName:       "Boulangerie Durand",
		EstablishmentTutorEmail: "tuteur@boulangerie.test",
		ImmersionObjective:      "Discover the trade",
		InternshipKind:          "immersion",
	}, start.AddDate(0, -1, 0))
	s.Require().NoError(err)
	return c
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	a := s.seedAgency()
	c := s.newConvention(a.ID)

	s.Require().NoError(s.store.Create(ctx, c))

	got, err := s.store.GetByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c.ID, got.ID)
	s.Equal(id.StatusDraft, got.Status)
	s.Equal(c.EstablishmentSiret, got.EstablishmentSiret)
	s.Len(got.Schedule.Slots, 2)
	s.Equal("nadia@example.test", got.Signatories.Beneficiary.Email)
	s.Nil(got.DateValidation)
	s.Nil(got.RenewedFromID)
}

func (s *PostgresStoreSuite) TestUpdatePersistsTransitionSideEffects() {
	ctx := context.Background()
	a := s.seedAgency()
	c := s.newConvention(a.ID)
	s.Require().NoError(s.store.Create(ctx, c))

	now := time.Now().UTC().Truncate(time.Microsecond)
	c.Status = id.StatusAcceptedByValidator
	c.DateValidation = &now
	c.Validators.Validator = &models.ValidatorName{FirstName: "Claire", LastName: "Petit"}
	c.ExternalID = "PE-000042"
	c.UpdatedAt = now
	s.Require().NoError(s.store.Update(ctx, c))

	got, err := s.store.GetByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(id.StatusAcceptedByValidator, got.Status)
	s.Equal("PE-000042", got.ExternalID)
	s.Require().NotNil(got.DateValidation)
	s.WithinDuration(now, *got.DateValidation, time.Millisecond)
	s.Require().NotNil(got.Validators.Validator)
	s.Equal("Petit", got.Validators.Validator.LastName)
}

func (s *PostgresStoreSuite) TestGetByIDNotFound() {
	_, err := s.store.GetByID(context.Background(), id.NewConventionID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdateUnknownConvention() {
	a := s.seedAgency()
	c := s.newConvention(a.ID)
	err := s.store.Update(context.Background(), c)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestGetByIDsSkipsUnknown() {
	ctx := context.Background()
	a := s.seedAgency()
	c := s.newConvention(a.ID)
	s.Require().NoError(s.store.Create(ctx, c))

	got, err := s.store.GetByIDs(ctx, []id.ConventionID{c.ID, id.NewConventionID()})
	s.Require().NoError(err)
	s.Len(got, 1)
}
