// Package httpapi assembles the HTTP surface: public verification and
// health, then the authenticated registration and certificate routes.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	certhandler "ysvs/internal/certificate/handler"
	"ysvs/internal/platform/health"
	"ysvs/internal/platform/middleware"
	reghandler "ysvs/internal/registration/handler"
)

type Deps struct {
	Registrations *reghandler.Handler
	Certificates  *certhandler.Handler
	Health        *health.Handler
	JWTSigningKey string
	Logger        *slog.Logger
}

// NewRouter wires every endpoint. The verification lookup and the health
// endpoints stay outside the auth chain; everything else requires a bearer
// token, with the admin gate applied per route by the handlers.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)

	deps.Health.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	deps.Certificates.RegisterPublic(r)

	requireAdmin := middleware.RequireAdmin(deps.Logger)
	r.Group(func(authed chi.Router) {
		authed.Use(middleware.RequireAuth(deps.JWTSigningKey, deps.Logger))
		deps.Registrations.Register(authed, requireAdmin)
		deps.Certificates.Register(authed, requireAdmin)
	})
	return r
}
