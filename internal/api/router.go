package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sourcemesh/router/internal/lookup"
	"github.com/sourcemesh/router/internal/routing"
	"github.com/sourcemesh/router/internal/store"
)

func NewRouter(s store.Store, e *routing.Engine, rk *routing.Ranker, tables *lookup.Tables, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(120))

	assignments := NewAssignmentsHandler(s, e)
	offers := NewOffersHandler(s, e)
	ranking := NewRankingHandler(rk)
	admin := NewAdminHandler(s, e, tables)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/route", assignments.Route)
		r.Post("/assignments", assignments.Create)
		r.Get("/assignments/{id}", assignments.Get)
		r.With(BuyerIDMiddleware).Post("/assignments/{id}/claim", assignments.Claim)

		r.Get("/ranking", ranking.Preview)

		r.Post("/offers", offers.Create)
		r.Get("/offers/{id}", offers.Get)
		r.Post("/offers/{id}/reconfirm", offers.Reconfirm)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminToken))
			r.Get("/stats", admin.Stats)
			r.Post("/sweep", admin.Sweep)
			r.Post("/lookups/reload", admin.ReloadLookups)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
