package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"immersion/internal/agency"
	"immersion/internal/assessment"
	"immersion/internal/convention/models"
	"immersion/internal/convention/store"
	"immersion/internal/notification"
	"immersion/internal/outbox"
	"immersion/internal/platform/config"
	id "immersion/pkg/domain"
)

var testNow = time.Date(2026, time.May, 4, 10, 0, 0, 0, time.UTC)

type capturingGateway struct {
	emails   []notification.Email
	sms      []notification.SMS
	emailErr error
}

func (g *capturingGateway) SendEmail(ctx context.Context, email notification.Email) error {
	if g.emailErr != nil {
		return g.emailErr
	}
	g.emails = append(g.emails, email)
	return nil
}

func (g *capturingGateway) SendSMS(ctx context.Context, sms notification.SMS) error {
	g.sms = append(g.sms, sms)
	return nil
}

type fixture struct {
	consumer    *notification.Consumer
	gateway     *capturingGateway
	conventions *store.InMemory
	agencies    *agency.InMemory
	agency      *agency.Agency
	convention  *models.Convention
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		gateway:     &capturingGateway{},
		conventions: store.NewInMemory(),
		agencies:    agency.NewInMemory(),
	}
	f.agency = &agency.Agency{
		ID:               id.NewAgencyID(),
		Name:             "Mission Locale Sud",
		Kind:             agency.KindMissionLocale,
		CounsellorEmails: []string{"counsellor@agency.test"},
		ValidatorEmails:  []string{"validator@agency.test"},
	}
	require.NoError(t, f.agencies.Create(context.Background(), f.agency))

	dateStart := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	c, err := models.New(id.NewConventionID(), models.CreateParams{
		AgencyID:  f.agency.ID,
		DateStart: dateStart,
		DateEnd:   dateStart.AddDate(0, 0, 4),
		Schedule: models.Schedule{Slots: []models.TimeSlot{
			{Start: dateStart.Add(9 * time.Hour), End: dateStart.Add(16 * time.Hour)},
		}},
		Signatories: models.Signatories{
			Beneficiary: models.Signatory{
				Role: id.RoleBeneficiary, FirstName: "Nadia", LastName: "Bel",
				Email: "nadia@example.test", Phone: "+33600000001",
			},
			EstablishmentRepresentative: models.Signatory{
				Role: id.RoleEstablishmentRepresentative, FirstName: "Marc", LastName: "Durand",
				Email: "marc@corp.test",
			},
		},
		EstablishmentSiret:      "13002526500013",
		EstablishmentName:       "Boulangerie Durand",
		EstablishmentTutorEmail: "tutor@corp.test",
		ImmersionObjective:      "discover the trade",
		InternshipKind:          "immersion",
	}, testNow)
	require.NoError(t, err)
	require.NoError(t, f.conventions.Create(context.Background(), c))
	f.convention = c

	f.consumer = notification.NewConsumer(
		f.conventions, f.agencies, f.gateway,
		notification.NewRateLimiter(nil, nil),
		config.NotificationConfig{EmailPerMinute: 100, SMSPerHour: 100},
	)
	return f
}

func statusChangedEvent(t *testing.T, c *models.Convention, to id.ConventionStatus, justification string) outbox.Event {
	t.Helper()
	raw, err := json.Marshal(models.StatusChangedEvent{
		ConventionID:  c.ID,
		AgencyID:      c.AgencyID,
		From:          c.Status,
		To:            to,
		Justification: justification,
		At:            testNow,
	})
	require.NoError(t, err)
	return outbox.Event{ID: id.NewEventID(), Topic: models.TopicStatusChanged, Payload: raw}
}

func TestConsumer(t *testing.T) {
	t.Run("ready to sign asks every signatory and texts the beneficiary", func(t *testing.T) {
		f := newFixture(t)
		err := f.consumer.Deliver(context.Background(), statusChangedEvent(t, f.convention, id.StatusReadyToSign, ""))
		require.NoError(t, err)

		require.Len(t, f.gateway.emails, 1)
		require.Equal(t, notification.KindSignatureRequest, f.gateway.emails[0].Kind)
		require.ElementsMatch(t,
			[]string{"nadia@example.test", "marc@corp.test"},
			f.gateway.emails[0].Recipients)
		require.Len(t, f.gateway.sms, 1)
		require.Equal(t, "+33600000001", f.gateway.sms[0].PhoneNumber)
	})

	t.Run("draft reset carries the justification", func(t *testing.T) {
		f := newFixture(t)
		err := f.consumer.Deliver(context.Background(), statusChangedEvent(t, f.convention, id.StatusDraft, "wrong dates"))
		require.NoError(t, err)

		require.Len(t, f.gateway.emails, 1)
		require.Equal(t, notification.KindModificationRequest, f.gateway.emails[0].Kind)
		require.Contains(t, f.gateway.emails[0].Body, "wrong dates")
	})

	t.Run("full signature alerts the agency", func(t *testing.T) {
		f := newFixture(t)
		raw, err := json.Marshal(models.FullySignedEvent{ConventionID: f.convention.ID, At: testNow})
		require.NoError(t, err)

		err = f.consumer.Deliver(context.Background(), outbox.Event{
			ID: id.NewEventID(), Topic: models.TopicFullySigned, Payload: raw,
		})
		require.NoError(t, err)

		require.Len(t, f.gateway.emails, 1)
		require.Equal(t, notification.KindReadyForReview, f.gateway.emails[0].Kind)
		require.ElementsMatch(t,
			[]string{"counsellor@agency.test", "validator@agency.test"},
			f.gateway.emails[0].Recipients)
	})

	t.Run("assessment creation alerts the agency", func(t *testing.T) {
		f := newFixture(t)
		raw, err := json.Marshal(assessment.CreatedEvent{
			ConventionID: f.convention.ID,
			AssessmentID: id.NewAssessmentID(),
			Status:       assessment.StatusCompleted,
			At:           testNow,
		})
		require.NoError(t, err)

		err = f.consumer.Deliver(context.Background(), outbox.Event{
			ID: id.NewEventID(), Topic: assessment.TopicCreated, Payload: raw,
		})
		require.NoError(t, err)
		require.Len(t, f.gateway.emails, 1)
		require.Equal(t, notification.KindAssessmentCreated, f.gateway.emails[0].Kind)
	})

	t.Run("a failing provider never fails the delivery", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.emailErr = errors.New("smtp unavailable")

		err := f.consumer.Deliver(context.Background(), statusChangedEvent(t, f.convention, id.StatusRejected, "incomplete"))
		require.NoError(t, err)
		require.Empty(t, f.gateway.emails)
	})

	t.Run("unknown topics pass through", func(t *testing.T) {
		f := newFixture(t)
		err := f.consumer.Deliver(context.Background(), outbox.Event{
			ID: id.NewEventID(), Topic: "something.else", Payload: []byte(`{}`),
		})
		require.NoError(t, err)
		require.Empty(t, f.gateway.emails)
	})
}
