package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/careslot/appointment-booking/internal/booking"
	"github.com/careslot/appointment-booking/internal/schedule"
)

// BookingService is the slice of booking.Service the handlers use.
type BookingService interface {
	AvailableSlots(ctx context.Context, doctorID uuid.UUID, from, to time.Time, duration time.Duration) ([]schedule.Slot, error)
	BookAppointment(ctx context.Context, req booking.BookingRequest, actor schedule.Actor) (*schedule.Appointment, error)
	UpdateAppointment(ctx context.Context, req booking.UpdateRequest, actor schedule.Actor) (*schedule.Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID, actor schedule.Actor) (*schedule.Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID, actor schedule.Actor) error
	GetAppointment(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error)
	ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]schedule.Appointment, error)

	UpsertTemplate(ctx context.Context, tpl schedule.AvailabilityTemplate, actor schedule.Actor) error
	ToggleTemplate(ctx context.Context, doctorID uuid.UUID, day schedule.Weekday, period string, active bool, actor schedule.Actor) error
	DeleteTemplate(ctx context.Context, doctorID uuid.UUID, day schedule.Weekday, period string, actor schedule.Actor) error
	ListTemplates(ctx context.Context, doctorID uuid.UUID) ([]schedule.AvailabilityTemplate, error)

	AddUnavailability(ctx context.Context, w schedule.UnavailabilityWindow, actor schedule.Actor) (*schedule.UnavailabilityWindow, error)
	RemoveUnavailability(ctx context.Context, doctorID, windowID uuid.UUID, actor schedule.Actor) error
	ListUnavailability(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]schedule.UnavailabilityWindow, error)
}

type RouterConfig struct {
	Service BookingService
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Log     zerolog.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chiRouter(cfg)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/doctors/{doctorID}", func(r chi.Router) {
		r.Get("/slots", getSlotsHandler(cfg.Service))
		r.Get("/appointments", listAppointmentsHandler(cfg.Service))

		r.Get("/availability", listTemplatesHandler(cfg.Service))
		r.Put("/availability", upsertTemplateHandler(cfg.Service))
		r.Post("/availability/toggle", toggleTemplateHandler(cfg.Service))
		r.Delete("/availability/{day}", deleteTemplateHandler(cfg.Service))

		r.Get("/unavailability", listWindowsHandler(cfg.Service))
		r.Post("/unavailability", createWindowHandler(cfg.Service))
		r.Delete("/unavailability/{windowID}", deleteWindowHandler(cfg.Service))
	})

	r.Post("/appointments", createAppointmentHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Patch("/appointments/{id}", updateAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
	r.Delete("/appointments/{id}", deleteAppointmentHandler(cfg.Service))

	return r
}

func chiRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	return r
}
