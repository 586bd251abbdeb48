package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"immersion/internal/agency"
	"immersion/internal/assessment"
	"immersion/internal/convention/models"
	"immersion/internal/convention/service"
	"immersion/internal/convention/store"
	"immersion/internal/magiclink"
	"immersion/internal/outbox"
	id "immersion/pkg/domain"
	"immersion/pkg/platform/middleware/actor"
)

type webFixture struct {
	router http.Handler
	links  *magiclink.Service
	agency *agency.Agency
}

func newWebFixture(t *testing.T) *webFixture {
	t.Helper()

	conventions := store.NewInMemory()
	agencies := agency.NewInMemory()
	events := outbox.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a := &agency.Agency{
		ID:               id.NewAgencyID(),
		Name:             "Mission Locale de Tours",
		Kind:             agency.KindMissionLocale,
		CounsellorEmails: []string{"counsellor@agency.test"},
		ValidatorEmails:  []string{"validator@agency.test"},
	}
	require.NoError(t, agencies.Create(context.Background(), a))

	svc := service.New(conventions, agencies, assessment.NewInMemory(), outbox.NewPublisher(events),
		service.WithLogger(logger),
	)
	links := magiclink.NewService("handler-test-key")

	h := New(svc, logger)
	r := chi.NewRouter()
	r.Use(actor.Middleware(links, logger))
	h.Register(r)

	return &webFixture{router: r, links: links, agency: a}
}

func (f *webFixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *webFixture) createBody() CreateRequest {
	start := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	return CreateRequest{
		AgencyID:  f.agency.ID.String(),
		DateStart: start,
		DateEnd:   start.AddDate(0, 0, 4),
		Schedule: models.Schedule{Slots: []models.TimeSlot{
			{Start: start.Add(9 * time.Hour), End: start.Add(12 * time.Hour)},
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
	}
}

func (f *webFixture) createConvention(t *testing.T) models.Convention {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/conventions", f.createBody(), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var c models.Convention
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	return c
}

func TestHandleCreate(t *testing.T) {
	t.Run("creates a draft", func(t *testing.T) {
		f := newWebFixture(t)
		c := f.createConvention(t)
		require.Equal(t, id.StatusDraft, c.Status)
		require.False(t, c.ID.IsNil())
	})

	t.Run("rejects an unknown agency", func(t *testing.T) {
		f := newWebFixture(t)
		body := f.createBody()
		body.AgencyID = id.NewAgencyID().String()
		rec := f.do(t, http.MethodPost, "/conventions", body, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects a malformed agency id", func(t *testing.T) {
		f := newWebFixture(t)
		body := f.createBody()
		body.AgencyID = "not-a-uuid"
		rec := f.do(t, http.MethodPost, "/conventions", body, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleGet(t *testing.T) {
	f := newWebFixture(t)
	c := f.createConvention(t)

	rec := f.do(t, http.MethodGet, "/conventions/"+c.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/conventions/"+id.NewConventionID().String(), nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/conventions/garbage", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStatusChange(t *testing.T) {
	asBeneficiary := map[string]string{
		actor.RoleHeader:  string(id.RoleBeneficiary),
		actor.EmailHeader: "nadia@example.test",
	}

	t.Run("requires an authenticated actor", func(t *testing.T) {
		f := newWebFixture(t)
		c := f.createConvention(t)
		rec := f.do(t, http.MethodPost, "/conventions/"+c.ID.String()+"/status",
			StatusChangeRequest{Status: string(id.StatusReadyToSign)}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("moves a draft to ready to sign", func(t *testing.T) {
		f := newWebFixture(t)
		c := f.createConvention(t)
		rec := f.do(t, http.MethodPost, "/conventions/"+c.ID.String()+"/status",
			StatusChangeRequest{Status: string(id.StatusReadyToSign)}, asBeneficiary)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated models.Convention
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		require.Equal(t, id.StatusReadyToSign, updated.Status)
	})

	t.Run("rejects an unknown target status", func(t *testing.T) {
		f := newWebFixture(t)
		c := f.createConvention(t)
		rec := f.do(t, http.MethodPost, "/conventions/"+c.ID.String()+"/status",
			StatusChangeRequest{Status: "SHIPPED"}, asBeneficiary)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps entitlement failures to 403", func(t *testing.T) {
		f := newWebFixture(t)
		c := f.createConvention(t)
		rec := f.do(t, http.MethodPost, "/conventions/"+c.ID.String()+"/status",
			StatusChangeRequest{Status: string(id.StatusReadyToSign)},
			map[string]string{actor.RoleHeader: string(id.RoleValidator)})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestHandleSign(t *testing.T) {
	setup := func(t *testing.T) (*webFixture, models.Convention) {
		f := newWebFixture(t)
		c := f.createConvention(t)
		rec := f.do(t, http.MethodPost, "/conventions/"+c.ID.String()+"/status",
			StatusChangeRequest{Status: string(id.StatusReadyToSign)},
			map[string]string{actor.RoleHeader: string(id.RoleBeneficiary)})
		require.Equal(t, http.StatusOK, rec.Code)
		return f, c
	}

	t.Run("records a signature through a magic link", func(t *testing.T) {
		f, c := setup(t)
		token, err := f.links.Generate(c.ID, id.RoleBeneficiary, "nadia@example.test", time.Hour)
		require.NoError(t, err)

		rec := f.do(t, http.MethodPost, "/conventions/"+c.ID.String()+"/signature", nil,
			map[string]string{"Authorization": "Bearer " + token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var signed models.Convention
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signed))
		require.Equal(t, id.StatusPartiallySigned, signed.Status)
	})

	t.Run("rejects a link scoped to another convention", func(t *testing.T) {
		f, c := setup(t)
		token, err := f.links.Generate(id.NewConventionID(), id.RoleBeneficiary, "nadia@example.test", time.Hour)
		require.NoError(t, err)

		rec := f.do(t, http.MethodPost, "/conventions/"+c.ID.String()+"/signature", nil,
			map[string]string{"Authorization": "Bearer " + token})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("rejects an expired link", func(t *testing.T) {
		f, c := setup(t)
		token, err := f.links.Generate(c.ID, id.RoleBeneficiary, "nadia@example.test", -time.Minute)
		require.NoError(t, err)

		rec := f.do(t, http.MethodPost, "/conventions/"+c.ID.String()+"/signature", nil,
			map[string]string{"Authorization": "Bearer " + token})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
