// Package httptransport assembles the HTTP surface: middleware chain, public
// routes, and the authenticated API.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "clave/internal/auth/handler"
	"clave/internal/contacts"
	evalhandler "clave/internal/evaluation/handler"
	"clave/internal/platform/middleware"
)

// Deps collects everything the router wires together.
type Deps struct {
	Logger      *slog.Logger
	JWT         middleware.JWTValidator
	TRL         middleware.RevocationChecker
	Auth        *authhandler.Handler
	Evaluations *evalhandler.Handler
	Contacts    *contacts.Handler
}

// NewRouter wires all endpoints. Everything except /healthz, /metrics and the
// token endpoint sits behind authentication; report-scoped tokens only reach
// the report group.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(d.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	d.Auth.RegisterPublic(r)

	r.Group(func(api chi.Router) {
		api.Use(middleware.RequireAuth(d.JWT, d.TRL, d.Logger, false))
		d.Auth.RegisterProtected(api)
		d.Evaluations.Register(api)
		d.Contacts.Register(api)
	})

	r.Group(func(reports chi.Router) {
		reports.Use(middleware.RequireAuth(d.JWT, d.TRL, d.Logger, true))
		d.Evaluations.RegisterReport(reports)
	})

	return r
}
