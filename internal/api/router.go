package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clinicware/booking-ledger/internal/clinic"
)

type RouterConfig struct {
	Service *clinic.Service
	PgPool  *pgxpool.Pool // nil unless the postgres backend is in use
	Redis   *redis.Client // nil when the slot lock is disabled
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", bookHandler(cfg.Service))
		r.Get("/{id}", getAppointmentHandler(cfg.Service))
		r.Post("/{id}/reschedule", rescheduleHandler(cfg.Service))
		r.Post("/{id}/cancel", cancelHandler(cfg.Service))
		r.Post("/{id}/outcome", outcomeHandler(cfg.Service))
		r.Get("/{id}/outcome", getOutcomeHandler(cfg.Service))
	})

	r.Get("/patients/{id}/appointments", patientAppointmentsHandler(cfg.Service))

	r.Route("/practitioners/{id}", func(r chi.Router) {
		r.Get("/pending", practitionerPendingHandler(cfg.Service))
		r.Get("/confirmed", practitionerConfirmedHandler(cfg.Service))
		r.Get("/sessions", sessionBoardHandler(cfg.Service))
		r.Post("/slots/accept", acceptHandler(cfg.Service))
		r.Post("/slots/decline", declineHandler(cfg.Service))
		r.Post("/slots/toggle", toggleHandler(cfg.Service))
	})

	return r
}
