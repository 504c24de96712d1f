package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is a dependency whose liveness gates /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter mounts every route of the engine.
func NewRouter(h *Handler, health map[string]Pinger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/applications/{id}", func(r chi.Router) {
		r.Get("/steps", h.handleSteps)
		r.Get("/completeness", h.handleCompleteness)
		r.Post("/submit", h.handleSubmit)

		r.Route("/verifications", func(r chi.Router) {
			r.Post("/identity/otp", h.handleSubmitOTP)
			r.Post("/{kind}", h.handleStartVerification)
			r.Get("/{kind}", h.handleVerificationStatus)
			r.Delete("/{kind}", h.handleCancelVerification)
		})
	})

	r.Post("/events/status", h.handleStatusEvent)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", healthHandler(health))

	return r
}

func healthHandler(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		report := make(map[string]string, len(deps))
		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				report[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}
		writeJSON(w, status, report)
	}
}
