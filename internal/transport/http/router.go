// Package httptransport assembles the chi router: middleware pipeline, public
// endpoints, and the authenticated API surface.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/josephcall20-lang/Admissions-co-pilot/internal/platform/metrics"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/platform/middleware"
)

const requestTimeout = 30 * time.Second

// Deps carries everything the router needs.
type Deps struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Tracker   middleware.APITracker
	Validator middleware.TokenValidator

	// Public receives unauthenticated registrations (webhooks, health probes).
	Public []func(chi.Router)
	// Authenticated receives registrations behind the bearer-token check.
	Authenticated []func(chi.Router)
}

// NewRouter wires the middleware pipeline and mounts all endpoint groups.
// Webhook and monitoring-health endpoints stay outside auth so external
// collaborators and load balancers can reach them.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Latency(d.Metrics, d.Tracker))

	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		for _, mount := range d.Public {
			mount(r)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(d.Validator, d.Logger))
		r.Use(middleware.ContentTypeJSON)
		for _, mount := range d.Authenticated {
			mount(r)
		}
	})

	return r
}
