package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	assessmenthandler "immersion/internal/assessment/handler"
	conventionhandler "immersion/internal/convention/handler"
	"immersion/internal/magiclink"
	partnerhandler "immersion/internal/partner/handler"
	"immersion/internal/platform/config"
	"immersion/pkg/platform/middleware/actor"
	"immersion/pkg/platform/middleware/admin"
	"immersion/pkg/platform/middleware/requestid"
	"immersion/pkg/platform/middleware/requesttime"
)

type routerDeps struct {
	conventions *conventionhandler.Handler
	assessments *assessmenthandler.Handler
	partner     *partnerhandler.Handler
	links       *magiclink.Service
	cfg         config.Config
	logger      *slog.Logger
}

// newRouter assembles the HTTP surface. Convention and assessment endpoints
// sit behind the actor middleware; the reconciliation surface sits behind the
// admin token. Assessment deletion requires the admin role, which only the
// admin middleware grants, so the /admin tree mounts the same handler again.
func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(actor.Middleware(d.links, d.logger))
		d.conventions.Register(r)
		d.assessments.Register(r)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(admin.RequireAdminToken(d.cfg.AdminTokenHash, d.logger))
		d.partner.Register(r)
		r.Delete("/conventions/{conventionID}/assessment", d.assessments.HandleDelete)
	})

	return r
}
