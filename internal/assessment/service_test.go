package assessment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"immersion/internal/agency"
	"immersion/internal/assessment"
	"immersion/internal/convention/models"
	"immersion/internal/convention/store"
	"immersion/internal/outbox"
	id "immersion/pkg/domain"
	dErrors "immersion/pkg/domain-errors"
	"immersion/pkg/requestcontext"
)

var testNow = time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC)

type fixture struct {
	svc         *assessment.Service
	assessments *assessment.InMemory
	conventions *store.InMemory
	agencies    *agency.InMemory
	events      *outbox.InMemoryStore
	agency      *agency.Agency
	convention  *models.Convention
}

// newFixture seeds one validated convention whose schedule totals 28 hours
// (four seven-hour days).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		assessments: assessment.NewInMemory(),
		conventions: store.NewInMemory(),
		agencies:    agency.NewInMemory(),
		events:      outbox.NewInMemoryStore(),
	}
	f.agency = &agency.Agency{
		ID:               id.NewAgencyID(),
		Name:             "Cap Emploi Nord",
		Kind:             agency.KindCapEmploi,
		CounsellorEmails: []string{"counsellor@agency.test"},
		ValidatorEmails:  []string{"validator@agency.test"},
	}
	require.NoError(t, f.agencies.Create(context.Background(), f.agency))

	dateStart := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	var slots []models.TimeSlot
	for day := 0; day < 4; day++ {
		start := dateStart.AddDate(0, 0, day).Add(9 * time.Hour)
		slots = append(slots, models.TimeSlot{Start: start, End: start.Add(7 * time.Hour)})
	}
	c, err := models.New(id.NewConventionID(), models.CreateParams{
		AgencyID:  f.agency.ID,
		DateStart: dateStart,
		DateEnd:   dateStart.AddDate(0, 0, 4),
		Schedule:  models.Schedule{Slots: slots},
		Signatories: models.Signatories{
			Beneficiary: models.Signatory{
				Role: id.RoleBeneficiary, FirstName: "Nadia", LastName: "Bel", Email: "nadia@example.test",
			},
			EstablishmentRepresentative: models.Signatory{
				Role: id.RoleEstablishmentRepresentative, FirstName: "Marc", LastName: "Durand", Email: "marc@corp.test",
			},
		},
		EstablishmentSiret:      "13002526500013",
		EstablishmentName:       "Boulangerie Durand",
		EstablishmentTutorEmail: "tutor@corp.test",
		ImmersionObjective:      "discover the trade",
		InternshipKind:          "immersion",
	}, testNow)
	require.NoError(t, err)
	c.Status = id.StatusAcceptedByValidator
	require.NoError(t, f.conventions.Create(context.Background(), c))
	f.convention = c

	f.svc = assessment.NewService(f.assessments, f.conventions, f.agencies, outbox.NewPublisher(f.events))
	return f
}

func testCtx() context.Context {
	return requestcontext.WithTime(context.Background(), testNow)
}

func tutorCtx(conventionID id.ConventionID) context.Context {
	return requestcontext.WithActor(testCtx(), requestcontext.ActorContext{
		Role:         id.RoleEstablishmentRepresentative,
		Email:        "tutor@corp.test",
		ConventionID: conventionID,
	})
}

func completedRequest(conventionID id.ConventionID) assessment.CreateRequest {
	return assessment.CreateRequest{
		ConventionID: conventionID,
		Params: assessment.CreateParams{
			Status:                assessment.StatusCompleted,
			EstablishmentFeedback: "serious and punctual",
		},
		Role:  id.RoleValidator,
		Email: "validator@agency.test",
	}
}

func TestCreateAssessment(t *testing.T) {
	t.Run("validator with email standing", func(t *testing.T) {
		f := newFixture(t)
		a, err := f.svc.Create(testCtx(), completedRequest(f.convention.ID))
		require.NoError(t, err)
		require.Equal(t, assessment.StatusCompleted, a.Status)
		require.InDelta(t, 28.0, a.NumberOfHoursActuallyMade, 1e-9)
		require.Len(t, f.events.ByTopic(assessment.TopicCreated), 1)
	})

	t.Run("partially completed computes hours actually made", func(t *testing.T) {
		f := newFixture(t)
		lastDay := f.convention.DateStart.AddDate(0, 0, 3)
		a, err := f.svc.Create(testCtx(), assessment.CreateRequest{
			ConventionID: f.convention.ID,
			Params: assessment.CreateParams{
				Status:              assessment.StatusPartiallyCompleted,
				LastDayOfPresence:   &lastDay,
				NumberOfMissedHours: 2.5,
			},
			Role:  id.RoleCounsellor,
			Email: "counsellor@agency.test",
		})
		require.NoError(t, err)
		require.InDelta(t, 25.5, a.NumberOfHoursActuallyMade, 1e-9)
	})

	t.Run("partially completed requires last day of presence in range", func(t *testing.T) {
		f := newFixture(t)
		outside := f.convention.DateEnd.AddDate(0, 0, 7)
		_, err := f.svc.Create(testCtx(), assessment.CreateRequest{
			ConventionID: f.convention.ID,
			Params: assessment.CreateParams{
				Status:              assessment.StatusPartiallyCompleted,
				LastDayOfPresence:   &outside,
				NumberOfMissedHours: 2.5,
			},
			Role:  id.RoleValidator,
			Email: "validator@agency.test",
		})
		require.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects a convention not yet validated", func(t *testing.T) {
		f := newFixture(t)
		f.convention.Status = id.StatusInReview
		require.NoError(t, f.conventions.Update(context.Background(), f.convention))

		_, err := f.svc.Create(testCtx(), completedRequest(f.convention.ID))
		require.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
		require.ErrorContains(t, err, "IN_REVIEW")
	})

	t.Run("second creation conflicts", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(testCtx(), completedRequest(f.convention.ID))
		require.NoError(t, err)
		_, err = f.svc.Create(testCtx(), completedRequest(f.convention.ID))
		require.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("unknown convention", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(testCtx(), completedRequest(id.NewConventionID()))
		require.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("tutor through the convention magic link", func(t *testing.T) {
		f := newFixture(t)
		req := completedRequest(f.convention.ID)
		req.Role = id.RoleEstablishmentRepresentative
		req.Email = "tutor@corp.test"
		_, err := f.svc.Create(tutorCtx(f.convention.ID), req)
		require.NoError(t, err)
	})

	t.Run("tutor link for another convention is refused", func(t *testing.T) {
		f := newFixture(t)
		req := completedRequest(f.convention.ID)
		req.Role = id.RoleEstablishmentRepresentative
		req.Email = "tutor@corp.test"
		_, err := f.svc.Create(tutorCtx(id.NewConventionID()), req)
		require.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("counsellor without email standing is refused", func(t *testing.T) {
		f := newFixture(t)
		req := completedRequest(f.convention.ID)
		req.Role = id.RoleCounsellor
		req.Email = "stranger@agency.test"
		_, err := f.svc.Create(testCtx(), req)
		require.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("signatory roles other than the tutor are refused", func(t *testing.T) {
		f := newFixture(t)
		req := completedRequest(f.convention.ID)
		req.Role = id.RoleBeneficiary
		req.Email = "nadia@example.test"
		_, err := f.svc.Create(testCtx(), req)
		require.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func TestDeleteAssessment(t *testing.T) {
	adminDelete := func(conventionID id.ConventionID) assessment.DeleteRequest {
		return assessment.DeleteRequest{
			ConventionID:  conventionID,
			Justification: "filed against the wrong convention",
			Role:          id.RoleBackOfficeAdmin,
			Email:         "admin@immersion.test",
		}
	}

	t.Run("admin deletes with justification", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(testCtx(), completedRequest(f.convention.ID))
		require.NoError(t, err)

		require.NoError(t, f.svc.Delete(testCtx(), adminDelete(f.convention.ID)))

		_, err = f.svc.GetByConventionID(testCtx(), f.convention.ID)
		require.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

		deleted := f.events.ByTopic(assessment.TopicDeleted)
		require.Len(t, deleted, 1)
	})

	t.Run("non-admin is refused", func(t *testing.T) {
		f := newFixture(t)
		req := adminDelete(f.convention.ID)
		req.Role = id.RoleValidator
		err := f.svc.Delete(testCtx(), req)
		require.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("justification is mandatory", func(t *testing.T) {
		f := newFixture(t)
		req := adminDelete(f.convention.ID)
		req.Justification = ""
		err := f.svc.Delete(testCtx(), req)
		require.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("missing assessment", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.Delete(testCtx(), adminDelete(f.convention.ID))
		require.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
