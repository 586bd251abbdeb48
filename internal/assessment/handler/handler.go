// Package handler exposes the assessment sub-lifecycle over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"immersion/internal/assessment"
	id "immersion/pkg/domain"
	dErrors "immersion/pkg/domain-errors"
	"immersion/pkg/platform/httputil"
	"immersion/pkg/requestcontext"
)

// Service defines the assessment operations the handler exposes.
type Service interface {
	Create(ctx context.Context, req assessment.CreateRequest) (*assessment.Assessment, error)
	Delete(ctx context.Context, req assessment.DeleteRequest) error
	GetByConventionID(ctx context.Context, conventionID id.ConventionID) (*assessment.Assessment, error)
}

// Handler wires assessment endpoints to the assessment service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an assessment handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts assessment endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/conventions/{conventionID}/assessment", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleGet)
		r.Delete("/", h.HandleDelete)
	})
}

// CreateRequest is the completion report form.
type CreateRequest struct {
	Status                string     `json:"status"`
	LastDayOfPresence     *time.Time `json:"last_day_of_presence,omitempty"`
	NumberOfMissedHours   float64    `json:"number_of_missed_hours"`
	EstablishmentFeedback string     `json:"establishment_feedback"`
	EstablishmentAdvice   string     `json:"establishment_advice"`
	EndedWithAJob         bool       `json:"ended_with_a_job"`
}

// DeleteRequest carries the mandatory deletion justification.
type DeleteRequest struct {
	Justification string `json:"justification"`
}

// HandleCreate handles POST /conventions/{conventionID}/assessment.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := requestcontext.Actor(ctx)
	if actor.Role == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	conventionID, err := id.ParseConventionID(chi.URLParam(r, "conventionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[CreateRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := assessment.ParseStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	a, err := h.service.Create(ctx, assessment.CreateRequest{
		ConventionID: conventionID,
		Params: assessment.CreateParams{
			Status:                status,
			LastDayOfPresence:     req.LastDayOfPresence,
			NumberOfMissedHours:   req.NumberOfMissedHours,
			EstablishmentFeedback: req.EstablishmentFeedback,
			EstablishmentAdvice:   req.EstablishmentAdvice,
			EndedWithAJob:         req.EndedWithAJob,
		},
		Role:  actor.Role,
		Email: actor.Email,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "assessment creation refused",
			"request_id", requestcontext.RequestID(ctx),
			"convention_id", conventionID,
			"role", actor.Role,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a)
}

// HandleGet handles GET /conventions/{conventionID}/assessment.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	conventionID, err := id.ParseConventionID(chi.URLParam(r, "conventionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.service.GetByConventionID(r.Context(), conventionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

// HandleDelete handles DELETE /conventions/{conventionID}/assessment.
// Mounted behind the admin middleware in the router.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := requestcontext.Actor(ctx)
	conventionID, err := id.ParseConventionID(chi.URLParam(r, "conventionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[DeleteRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Delete(ctx, assessment.DeleteRequest{
		ConventionID:  conventionID,
		Justification: req.Justification,
		Role:          actor.Role,
		Email:         actor.Email,
	}); err != nil {
		h.logger.WarnContext(ctx, "assessment deletion refused",
			"request_id", requestcontext.RequestID(ctx),
			"convention_id", conventionID,
			"role", actor.Role,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
