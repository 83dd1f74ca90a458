package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/wsgraph/engine/internal/api/handlers"
	mw "github.com/wsgraph/engine/internal/api/middleware"
)

type Dependencies struct {
	// JWTSecret enables the bearer gate on /api/v1 when non-empty.
	JWTSecret        []byte
	RateLimiter      *mw.RateLimiter
	HealthHandler    *handlers.HealthHandler
	IngestionHandler *handlers.IngestionHandler
	GraphsHandler    *handlers.GraphsHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	if dep.RateLimiter != nil {
		r.Use(dep.RateLimiter.Middleware)
	}
	r.Use(chimid.Compress(5))

	r.Get("/healthz", dep.HealthHandler.Liveness)
	r.Get("/readyz", dep.HealthHandler.Readiness)

	r.Route("/api/v1", func(api chi.Router) {
		if len(dep.JWTSecret) > 0 {
			api.Use(mw.Auth(dep.JWTSecret))
		}

		api.Post("/ingestions", dep.IngestionHandler.Create)

		api.Route("/workspaces/{workspaceId}", func(wr chi.Router) {
			wr.Get("/latest", dep.GraphsHandler.Latest)
			wr.Get("/versions", dep.GraphsHandler.Versions)
			wr.Get("/versions/{version}", dep.GraphsHandler.Version)
		})
	})

	return r
}
