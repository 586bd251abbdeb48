// Package handler exposes the partner reconciliation surface to back-office
// operators: trigger a resync batch, list and resolve broadcast errors.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"immersion/internal/partner"
	id "immersion/pkg/domain"
	"immersion/pkg/platform/httputil"
	"immersion/pkg/requestcontext"
)

const defaultErrorListLimit = 100

// Service defines the reconciliation operations the handler exposes.
type Service interface {
	Resync(ctx context.Context, limit int) (*partner.Report, error)
	ListUnhandledErrors(ctx context.Context, limit int) ([]partner.BroadcastError, error)
	MarkErrorAsHandled(ctx context.Context, errorID id.BroadcastErrorID) error
}

// Handler wires the admin reconciliation endpoints to the resync service.
type Handler struct {
	service      Service
	defaultLimit int
	logger       *slog.Logger
}

// New constructs the partner admin handler. defaultLimit bounds a resync
// request that does not name its own limit.
func New(service Service, defaultLimit int, logger *slog.Logger) *Handler {
	return &Handler{service: service, defaultLimit: defaultLimit, logger: logger}
}

// Register mounts the endpoints; the caller wraps them in the admin
// middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/resync-conventions", h.HandleResync)
	r.Get("/broadcast-errors", h.HandleListErrors)
	r.Post("/broadcast-errors/{errorID}/handled", h.HandleMarkHandled)
}

// ResyncRequest optionally overrides the batch limit.
type ResyncRequest struct {
	Limit int `json:"limit,omitempty"`
}

// HandleResync handles POST /admin/resync-conventions.
func (h *Handler) HandleResync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := h.defaultLimit
	if r.ContentLength > 0 {
		req, err := httputil.Decode[ResyncRequest](r)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		if req.Limit > 0 {
			limit = req.Limit
		}
	}

	report, err := h.service.Resync(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "resync failed",
			"request_id", requestcontext.RequestID(ctx),
			"limit", limit,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleListErrors handles GET /admin/broadcast-errors.
func (h *Handler) HandleListErrors(w http.ResponseWriter, r *http.Request) {
	errs, err := h.service.ListUnhandledErrors(r.Context(), defaultErrorListLimit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if errs == nil {
		errs = []partner.BroadcastError{}
	}
	httputil.WriteJSON(w, http.StatusOK, errs)
}

// HandleMarkHandled handles POST /admin/broadcast-errors/{errorID}/handled.
func (h *Handler) HandleMarkHandled(w http.ResponseWriter, r *http.Request) {
	errorID, err := id.ParseBroadcastErrorID(chi.URLParam(r, "errorID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.MarkErrorAsHandled(r.Context(), errorID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
