// Package handler exposes the convention lifecycle over HTTP. The acting
// identity comes from the actor middleware (magic link or upstream proxy);
// handlers translate DTOs and leave every decision to the service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"immersion/internal/convention/models"
	"immersion/internal/convention/service"
	id "immersion/pkg/domain"
	dErrors "immersion/pkg/domain-errors"
	"immersion/pkg/platform/httputil"
	"immersion/pkg/requestcontext"
)

// Service defines the convention operations the handler exposes.
type Service interface {
	Create(ctx context.Context, p models.CreateParams) (*models.Convention, error)
	GetByID(ctx context.Context, conventionID id.ConventionID) (*models.Convention, error)
	RequestStatusChange(ctx context.Context, req service.StatusChangeRequest) (*models.Convention, error)
	Sign(ctx context.Context, req service.SignRequest) (*models.Convention, error)
}

// Handler wires convention endpoints to the transition service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a convention handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts convention endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/conventions", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/{conventionID}", h.HandleGet)
		r.Post("/{conventionID}/status", h.HandleStatusChange)
		r.Post("/{conventionID}/signature", h.HandleSign)
	})
}

// CreateRequest is the convention creation form.
type CreateRequest struct {
	AgencyID                string             `json:"agency_id"`
	DateStart               time.Time          `json:"date_start"`
	DateEnd                 time.Time          `json:"date_end"`
	Schedule                models.Schedule    `json:"schedule"`
	Signatories             models.Signatories `json:"signatories"`
	EstablishmentSiret      string             `json:"establishment_siret"`
	EstablishmentName       string             `json:"establishment_name"`
	EstablishmentTutorEmail string             `json:"establishment_tutor_email"`
	ImmersionObjective      string             `json:"immersion_objective"`
	InternshipKind          string             `json:"internship_kind"`
	RenewedFromID           string             `json:"renewed_from_id,omitempty"`
	RenewedJustification    string             `json:"renewed_justification,omitempty"`
}

// StatusChangeRequest is the direct transition form.
type StatusChangeRequest struct {
	Status        string `json:"status"`
	Justification string `json:"justification,omitempty"`
	Validator     struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"validator,omitempty"`
}

// HandleCreate handles POST /conventions.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.Decode[CreateRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	agencyID, err := id.ParseAgencyID(req.AgencyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	params := models.CreateParams{
		AgencyID:                agencyID,
		DateStart:               req.DateStart,
		DateEnd:                 req.DateEnd,
		Schedule:                req.Schedule,
		Signatories:             req.Signatories,
		EstablishmentSiret:      req.EstablishmentSiret,
		EstablishmentName:       req.EstablishmentName,
		EstablishmentTutorEmail: req.EstablishmentTutorEmail,
		ImmersionObjective:      req.ImmersionObjective,
		InternshipKind:          req.InternshipKind,
		RenewedJustification:    req.RenewedJustification,
	}
	if req.RenewedFromID != "" {
		renewedFromID, err := id.ParseConventionID(req.RenewedFromID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		params.RenewedFromID = &renewedFromID
	}

	c, err := h.service.Create(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "convention creation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

// HandleGet handles GET /conventions/{conventionID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	conventionID, err := id.ParseConventionID(chi.URLParam(r, "conventionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.GetByID(r.Context(), conventionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

// HandleStatusChange handles POST /conventions/{conventionID}/status.
func (h *Handler) HandleStatusChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := requireActor(w, ctx)
	if !ok {
		return
	}
	conventionID, err := id.ParseConventionID(chi.URLParam(r, "conventionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[StatusChangeRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	target, err := id.ParseConventionStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	c, err := h.service.RequestStatusChange(ctx, service.StatusChangeRequest{
		ConventionID:  conventionID,
		Target:        target,
		Role:          actor.Role,
		Justification: req.Justification,
		Validator: models.ValidatorName{
			FirstName: req.Validator.FirstName,
			LastName:  req.Validator.LastName,
		},
	})
	if err != nil {
		h.logger.WarnContext(ctx, "status change refused",
			"request_id", requestcontext.RequestID(ctx),
			"convention_id", conventionID,
			"target", target,
			"role", actor.Role,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

// HandleSign handles POST /conventions/{conventionID}/signature.
func (h *Handler) HandleSign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := requireActor(w, ctx)
	if !ok {
		return
	}
	conventionID, err := id.ParseConventionID(chi.URLParam(r, "conventionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	c, err := h.service.Sign(ctx, service.SignRequest{
		ConventionID: conventionID,
		Role:         actor.Role,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "signature refused",
			"request_id", requestcontext.RequestID(ctx),
			"convention_id", conventionID,
			"role", actor.Role,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func requireActor(w http.ResponseWriter, ctx context.Context) (requestcontext.ActorContext, bool) {
	actor := requestcontext.Actor(ctx)
	if actor.Role == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return actor, false
	}
	return actor, true
}
