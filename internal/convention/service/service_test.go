package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"immersion/internal/agency"
	"immersion/internal/convention/models"
	"immersion/internal/convention/service"
	"immersion/internal/convention/store"
	"immersion/internal/outbox"
	id "immersion/pkg/domain"
	dErrors "immersion/pkg/domain-errors"
	"immersion/pkg/requestcontext"
)

var testNow = time.Date(2026, time.February, 10, 9, 30, 0, 0, time.UTC)

type assessmentStub struct {
	exists bool
	err    error
}

func (a *assessmentStub) ExistsForConvention(ctx context.Context, _ id.ConventionID) (bool, error) {
	return a.exists, a.err
}

type fixture struct {
	svc         *service.Service
	conventions *store.InMemory
	agencies    *agency.InMemory
	events      *outbox.InMemoryStore
	assessments *assessmentStub
	agency      *agency.Agency
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		conventions: store.NewInMemory(),
		agencies:    agency.NewInMemory(),
		events:      outbox.NewInMemoryStore(),
		assessments: &assessmentStub{},
	}
	f.agency = &agency.Agency{
		ID:               id.NewAgencyID(),
		Name:             "Mission Locale Sud",
		Kind:             agency.KindMissionLocale,
		CounsellorEmails: []string{"counsellor@agency.test"},
		ValidatorEmails:  []string{"validator@agency.test"},
		CreatedAt:        testNow,
		UpdatedAt:        testNow,
	}
	require.NoError(t, f.agencies.Create(context.Background(), f.agency))
	f.svc = service.New(f.conventions, f.agencies, f.assessments, outbox.NewPublisher(f.events))
	return f
}

func testCtx() context.Context {
	return requestcontext.WithTime(context.Background(), testNow)
}

func validParams(agencyID id.AgencyID) models.CreateParams {
	dateStart := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	return models.CreateParams{
		AgencyID:  agencyID,
		DateStart: dateStart,
		DateEnd:   dateStart.AddDate(0, 0, 4),
		Schedule: models.Schedule{Slots: []models.TimeSlot{
			{Start: dateStart.Add(9 * time.Hour), End: dateStart.Add(12 * time.Hour)},
			{Start: dateStart.Add(14 * time.Hour), End: dateStart.Add(17 * time.Hour)},
		}},
		Signatories: models.Signatories{
			Beneficiary: models.Signatory{
				Role:      id.RoleBeneficiary,
				FirstName: "Nadia",
				LastName:  "Bel",
				Email:     "nadia@example.test",
			},
			EstablishmentRepresentative: models.Signatory{
				Role:      id.RoleEstablishmentRepresentative,
				FirstName: "Marc",
				LastName:  "Durand",
				Email:     "marc@corp.test",
			},
		},
		EstablishmentSiret:      "13002526500013",
		EstablishmentName:       "Boulangerie Durand",
		EstablishmentTutorEmail: "tutor@corp.test",
		ImmersionObjective:      "discover the trade",
		InternshipKind:          "immersion",
	}
}

// seed stores a convention directly at the given status, bypassing the
// transition rules, so each test starts exactly where it needs to.
func (f *fixture) seed(t *testing.T, status id.ConventionStatus) *models.Convention {
	t.Helper()
	c, err := models.New(id.NewConventionID(), validParams(f.agency.ID), testNow)
	require.NoError(t, err)
	c.Status = status
	require.NoError(t, f.conventions.Create(context.Background(), c))
	return c
}

func TestCreate(t *testing.T) {
	t.Run("stores a draft", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.svc.Create(testCtx(), validParams(f.agency.ID))
		require.NoError(t, err)
		require.Equal(t, id.StatusDraft, c.Status)
		require.Equal(t, testNow, c.DateSubmission)

		stored, err := f.svc.GetByID(testCtx(), c.ID)
		require.NoError(t, err)
		require.Equal(t, c.ID, stored.ID)
	})

	t.Run("rejects an unknown agency", func(t *testing.T) {
		f := newFixture(t)
		p := validParams(id.NewAgencyID())
		_, err := f.svc.Create(testCtx(), p)
		require.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects an inverted date range", func(t *testing.T) {
		f := newFixture(t)
		p := validParams(f.agency.ID)
		p.DateStart, p.DateEnd = p.DateEnd, p.DateStart
		_, err := f.svc.Create(testCtx(), p)
		require.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects a renewal without justification", func(t *testing.T) {
		f := newFixture(t)
		p := validParams(f.agency.ID)
		renewed := id.NewConventionID()
		p.RenewedFromID = &renewed
		_, err := f.svc.Create(testCtx(), p)
		require.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestRequestStatusChange(t *testing.T) {
	t.Run("draft to ready to sign", func(t *testing.T) {
		f := newFixture(t)
		c := f.seed(t, id.StatusDraft)

		updated, err := f.svc.RequestStatusChange(testCtx(), service.StatusChangeRequest{
			ConventionID: c.ID,
			Target:       id.StatusReadyToSign,
			Role:         id.RoleBeneficiary,
		})
		require.NoError(t, err)
		require.Equal(t, id.StatusReadyToSign, updated.Status)

		events := f.events.ByTopic(models.TopicStatusChanged)
		require.Len(t, events, 1)
	})

	t.Run("same target conflicts and emits nothing", func(t *testing.T) {
		f := newFixture(t)
		c := f.seed(t, id.StatusReadyToSign)

		_, err := f.svc.RequestStatusChange(testCtx(), service.StatusChangeRequest{
			ConventionID: c.ID,
			Target:       id.StatusReadyToSign,
			Role:         id.RoleBeneficiary,
		})
		require.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
		require.Empty(t, f.events.All())
	})

	t.Run("unknown convention", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.RequestStatusChange(testCtx(), service.StatusChangeRequest{
			ConventionID: id.NewConventionID(),
			Target:       id.StatusReadyToSign,
			Role:         id.RoleBeneficiary,
		})
		require.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("role not allowed", func(t *testing.T) {
		f := newFixture(t)
		c := f.seed(t, id.StatusDraft)

		_, err := f.svc.RequestStatusChange(testCtx(), service.StatusChangeRequest{
			ConventionID: c.ID,
			Target:       id.StatusReadyToSign,
			Role:         id.RoleBackOfficeAdmin,
		})
		require.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("rejection requires a justification", func(t *testing.T) {
		f := newFixture(t)
		c := f.seed(t, id.StatusInReview)

		_, err := f.svc.RequestStatusChange(testCtx(), service.StatusChangeRequest{
			ConventionID: c.ID,
			Target:       id.StatusRejected,
			Role:         id.RoleValidator,
		})
		require.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
		require.Empty(t, f.events.All())
	})

	t.Run("terminal statuses never move", func(t *testing.T) {
		f := newFixture(t)
		for _, terminal := range []id.ConventionStatus{id.StatusRejected, id.StatusCancelled, id.StatusDeprecated} {
			c := f.seed(t, terminal)
			for _, target := range id.AllConventionStatuses {
				if target == terminal {
					continue
				}
				_, err := f.svc.RequestStatusChange(testCtx(), service.StatusChangeRequest{
					ConventionID:  c.ID,
					Target:        target,
					Role:          id.RoleBackOfficeAdmin,
					Justification: "attempt",
					Validator:     models.ValidatorName{FirstName: "A", LastName: "B"},
				})
				require.Errorf(t, err, "%s -> %s must be rejected", terminal, target)
			}
		}
	})

	t.Run("signature driven statuses cannot be requested directly", func(t *testing.T) {
		f := newFixture(t)
		c := f.seed(t, id.StatusReadyToSign)
		for _, target := range []id.ConventionStatus{id.StatusPartiallySigned, id.StatusInReview} {
			_, err := f.svc.RequestStatusChange(testCtx(), service.StatusChangeRequest{
				ConventionID: c.ID,
				Target:       target,
				Role:         id.RoleBeneficiary,
			})
			require.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
		}
	})

	t.Run("reset to draft clears every signature", func(t *testing.T) {
		f := newFixture(t)
		c := f.seed(t, id.StatusReadyToSign)
		_, err := f.svc.Sign(testCtx(), service.SignRequest{ConventionID: c.ID, Role: id.RoleBeneficiary})
		require.NoError(t, err)

		updated, err := f.svc.RequestStatusChange(testCtx(), service.StatusChangeRequest{
			ConventionID:  c.ID,
			Target:        id.StatusDraft,
			Role:          id.RoleCounsellor,
			Justification: "wrong establishment contact",
		})
		require.NoError(t, err)
		require.Equal(t, id.StatusDraft, updated.Status)
		require.Zero(t, updated.Signatories.SignedCount())
		require.Len(t, updated.StatusJustifications, 1)
	})

	t.Run("counsellor acceptance needs a two step agency", func(t *testing.T) {
		f := newFixture(t)
		c := f.seed(t, id.StatusInReview)

		_, err := f.svc.RequestStatusChange(testCtx(), service.StatusChangeRequest{
			ConventionID: c.ID,
			Target:       id.StatusAcceptedByCounsellor,
			Role:         id.RoleCounsellor,
			Validator:    models.ValidatorName{FirstName: "Paul", LastName: "Roux"},
		})
		require.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("counsellor acceptance on a two step agency", func(t *testing.T) {
		f := newFixture(t)
		parent := id.NewAgencyID()
		f.agency.RefersToAgencyID = &parent
		require.NoError(t, f.agencies.Update(context.Background(), f.agency))
		c := f.seed(t, id.StatusInReview)

		updated, err := f.svc.RequestStatusChange(testCtx(), service.StatusChangeRequest{
			ConventionID: c.ID,
			Target:       id.StatusAcceptedByCounsellor,
			Role:         id.RoleCounsellor,
			Validator:    models.ValidatorName{FirstName: "Paul", LastName: "Roux"},
		})
		require.NoError(t, err)
		require.Equal(t, id.StatusAcceptedByCounsellor, updated.Status)
		require.NotNil(t, updated.Validators.Counsellor)
		require.Equal(t, "Paul", updated.Validators.Counsellor.FirstName)
	})

	t.Run("validator acceptance stamps the validation date", func(t *testing.T) {
		f := newFixture(t)
		c := f.seed(t, id.StatusInReview)

		updated, err := f.svc.RequestStatusChange(testCtx(), service.StatusChangeRequest{
			ConventionID: c.ID,
			Target:       id.StatusAcceptedByValidator,
			Role:         id.RoleValidator,
			Validator:    models.ValidatorName{FirstName: "Ana", LastName: "Lopez"},
		})
		require.NoError(t, err)
		require.NotNil(t, updated.DateValidation)
		require.Equal(t, testNow, *updated.DateValidation)
		require.NotNil(t, updated.Validators.Validator)
	})

	t.Run("validator acceptance requires the validator name", func(t *testing.T) {
		f := newFixture(t)
		c := f.seed(t, id.StatusInReview)

		_, err := f.svc.RequestStatusChange(testCtx(), service.StatusChangeRequest{
			ConventionID: c.ID,
			Target:       id.StatusAcceptedByValidator,
			Role:         id.RoleValidator,
		})
		require.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("cancellation blocked once an assessment exists", func(t *testing.T) {
		f := newFixture(t)
		f.assessments.exists = true
		c := f.seed(t, id.StatusAcceptedByValidator)

		_, err := f.svc.RequestStatusChange(testCtx(), service.StatusChangeRequest{
			ConventionID:  c.ID,
			Target:        id.StatusCancelled,
			Role:          id.RoleValidator,
			Justification: "establishment closed",
		})
		require.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("cancellation without an assessment", func(t *testing.T) {
		f := newFixture(t)
		c := f.seed(t, id.StatusAcceptedByValidator)

		updated, err := f.svc.RequestStatusChange(testCtx(), service.StatusChangeRequest{
			ConventionID:  c.ID,
			Target:        id.StatusCancelled,
			Role:          id.RoleValidator,
			Justification: "establishment closed",
		})
		require.NoError(t, err)
		require.Equal(t, id.StatusCancelled, updated.Status)
	})

	t.Run("magic link actor is scoped to its convention", func(t *testing.T) {
		f := newFixture(t)
		c := f.seed(t, id.StatusDraft)
		other := f.seed(t, id.StatusDraft)

		ctx := requestcontext.WithActor(testCtx(), requestcontext.ActorContext{
			Role:         id.RoleBeneficiary,
			Email:        "nadia@example.test",
			ConventionID: other.ID,
		})
		_, err := f.svc.RequestStatusChange(ctx, service.StatusChangeRequest{
			ConventionID: c.ID,
			Target:       id.StatusReadyToSign,
			Role:         id.RoleBeneficiary,
		})
		require.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("status change event carries the transition", func(t *testing.T) {
		f := newFixture(t)
		c := f.seed(t, id.StatusInReview)

		_, err := f.svc.RequestStatusChange(testCtx(), service.StatusChangeRequest{
			ConventionID:  c.ID,
			Target:        id.StatusRejected,
			Role:          id.RoleValidator,
			Justification: "incomplete schedule",
		})
		require.NoError(t, err)

		events := f.events.ByTopic(models.TopicStatusChanged)
		require.Len(t, events, 1)
		var payload models.StatusChangedEvent
		require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
		require.Equal(t, c.ID, payload.ConventionID)
		require.Equal(t, id.StatusInReview, payload.From)
		require.Equal(t, id.StatusRejected, payload.To)
		require.Equal(t, "incomplete schedule", payload.Justification)
	})
}

func TestSign(t *testing.T) {
	t.Run("a draft cannot be signed", func(t *testing.T) {
		f := newFixture(t)
		c := f.seed(t, id.StatusDraft)

		_, err := f.svc.Sign(testCtx(), service.SignRequest{ConventionID: c.ID, Role: id.RoleBeneficiary})
		require.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("only signatory roles sign", func(t *testing.T) {
		f := newFixture(t)
		c := f.seed(t, id.StatusReadyToSign)

		_, err := f.svc.Sign(testCtx(), service.SignRequest{ConventionID: c.ID, Role: id.RoleValidator})
		require.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("first signature moves to partially signed", func(t *testing.T) {
		f := newFixture(t)
		c := f.seed(t, id.StatusReadyToSign)

		updated, err := f.svc.Sign(testCtx(), service.SignRequest{ConventionID: c.ID, Role: id.RoleBeneficiary})
		require.NoError(t, err)
		require.Equal(t, id.StatusPartiallySigned, updated.Status)
		require.Equal(t, 1, updated.Signatories.SignedCount())
		require.Len(t, f.events.ByTopic(models.TopicPartiallySigned), 1)
		require.Len(t, f.events.ByTopic(models.TopicStatusChanged), 1)
		require.Empty(t, f.events.ByTopic(models.TopicFullySigned))
	})

	t.Run("signing twice conflicts", func(t *testing.T) {
		f := newFixture(t)
		c := f.seed(t, id.StatusReadyToSign)

		_, err := f.svc.Sign(testCtx(), service.SignRequest{ConventionID: c.ID, Role: id.RoleBeneficiary})
		require.NoError(t, err)
		_, err = f.svc.Sign(testCtx(), service.SignRequest{ConventionID: c.ID, Role: id.RoleBeneficiary})
		require.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("final signature tips into review", func(t *testing.T) {
		f := newFixture(t)
		c := f.seed(t, id.StatusReadyToSign)

		_, err := f.svc.Sign(testCtx(), service.SignRequest{ConventionID: c.ID, Role: id.RoleBeneficiary})
		require.NoError(t, err)
		updated, err := f.svc.Sign(testCtx(), service.SignRequest{ConventionID: c.ID, Role: id.RoleEstablishmentRepresentative})
		require.NoError(t, err)

		require.Equal(t, id.StatusInReview, updated.Status)
		require.Len(t, f.events.ByTopic(models.TopicFullySigned), 1)
		require.Len(t, f.events.ByTopic(models.TopicPartiallySigned), 1)
		require.Len(t, f.events.ByTopic(models.TopicStatusChanged), 2)
	})

	t.Run("optional signatories extend the required set", func(t *testing.T) {
		f := newFixture(t)
		p := validParams(f.agency.ID)
		p.Signatories.BeneficiaryRepresentative = &models.Signatory{
			Role:      id.RoleBeneficiaryRepresentative,
			FirstName: "Ines",
			LastName:  "Bel",
			Email:     "ines@example.test",
		}
		c, err := models.New(id.NewConventionID(), p, testNow)
		require.NoError(t, err)
		c.Status = id.StatusReadyToSign
		require.NoError(t, f.conventions.Create(context.Background(), c))

		_, err = f.svc.Sign(testCtx(), service.SignRequest{ConventionID: c.ID, Role: id.RoleBeneficiary})
		require.NoError(t, err)
		updated, err := f.svc.Sign(testCtx(), service.SignRequest{ConventionID: c.ID, Role: id.RoleEstablishmentRepresentative})
		require.NoError(t, err)
		require.Equal(t, id.StatusPartiallySigned, updated.Status)

		updated, err = f.svc.Sign(testCtx(), service.SignRequest{ConventionID: c.ID, Role: id.RoleBeneficiaryRepresentative})
		require.NoError(t, err)
		require.Equal(t, id.StatusInReview, updated.Status)
	})
}

// TestFullLifecycle drives one convention from creation to validator
// acceptance through the public service surface only.
func TestFullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx()

	c, err := f.svc.Create(ctx, validParams(f.agency.ID))
	require.NoError(t, err)

	_, err = f.svc.RequestStatusChange(ctx, service.StatusChangeRequest{
		ConventionID: c.ID,
		Target:       id.StatusReadyToSign,
		Role:         id.RoleBeneficiary,
	})
	require.NoError(t, err)

	_, err = f.svc.Sign(ctx, service.SignRequest{ConventionID: c.ID, Role: id.RoleBeneficiary})
	require.NoError(t, err)
	_, err = f.svc.Sign(ctx, service.SignRequest{ConventionID: c.ID, Role: id.RoleEstablishmentRepresentative})
	require.NoError(t, err)

	final, err := f.svc.RequestStatusChange(ctx, service.StatusChangeRequest{
		ConventionID: c.ID,
		Target:       id.StatusAcceptedByValidator,
		Role:         id.RoleValidator,
		Validator:    models.ValidatorName{FirstName: "Ana", LastName: "Lopez"},
	})
	require.NoError(t, err)

	require.Equal(t, id.StatusAcceptedByValidator, final.Status)
	require.NotNil(t, final.DateValidation)
	require.True(t, final.Signatories.IsFullySigned())
	require.Len(t, f.events.ByTopic(models.TopicFullySigned), 1)
}
