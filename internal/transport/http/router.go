package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pyvlad/quizzz-spa/internal/app"
)

// NewRouter mounts the REST API, the live standings socket, health and metrics.
func NewRouter(service *app.Service, logger *slog.Logger, gatherer prometheus.Gatherer) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := NewHandler(service, logger)
	ws := NewWSHandler(service, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.With(requireUser).Get("/ws/tournaments/{tournament_id}/standings", ws.ServeStandings)

	r.Route("/api", func(r chi.Router) {
		r.Use(requireUser)

		r.Route("/communities/{community_id}/tournaments", func(r chi.Router) {
			r.Get("/", h.ListTournaments)
			r.Post("/", h.CreateTournament)
		})
		r.Get("/communities/{community_id}/quiz-pool", h.ListQuizPool)
		r.Route("/tournaments/{tournament_id}", func(r chi.Router) {
			r.Get("/", h.GetTournament)
			r.Put("/", h.UpdateTournament)
			r.Delete("/", h.DeleteTournament)
			r.Get("/standings", h.TournamentStandings)
			r.Get("/rounds", h.ListRounds)
			r.Post("/rounds", h.CreateRound)
		})
		r.Route("/rounds/{round_id}", func(r chi.Router) {
			r.Get("/", h.GetRound)
			r.Put("/", h.UpdateRound)
			r.Delete("/", h.DeleteRound)
			r.Get("/standings", h.RoundStandings)
			r.Post("/start", h.StartRound)
			r.Post("/submit", h.SubmitRound)
			r.Get("/review", h.ReviewRound)
		})
	})
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(started),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
