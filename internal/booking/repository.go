package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/careslot/appointment-booking/internal/schedule"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrTemplateNotFound    = errors.New("availability template not found")
	ErrWindowNotFound      = errors.New("unavailability window not found")
)

// Repository contains all DB interactions needed by the service. The
// scheduling core never sees it; the service fetches snapshots here and
// hands them to the core as plain values.
type Repository interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// Weekly availability templates, keyed (doctor, day, period).
	ListTemplates(ctx context.Context, doctorID uuid.UUID) ([]schedule.AvailabilityTemplate, error)
	UpsertTemplate(ctx context.Context, tpl schedule.AvailabilityTemplate) error
	SetTemplateActive(ctx context.Context, doctorID uuid.UUID, day schedule.Weekday, period string, active bool) error
	DeleteTemplate(ctx context.Context, doctorID uuid.UUID, day schedule.Weekday, period string) error

	// Unavailability windows are created and deleted, never updated.
	CreateWindow(ctx context.Context, w schedule.UnavailabilityWindow) (*schedule.UnavailabilityWindow, error)
	DeleteWindow(ctx context.Context, doctorID, windowID uuid.UUID) error
	ListWindows(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]schedule.UnavailabilityWindow, error)

	// Appointments. Create and Update surface schedule.ErrSlotConflict
	// when the overlap exclusion constraint fires.
	CreateAppointment(ctx context.Context, a schedule.Appointment) (*schedule.Appointment, error)
	UpdateAppointment(ctx context.Context, a schedule.Appointment) (*schedule.Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error)
	ListAppointments(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]schedule.Appointment, error)

	// Completion worker input: confirmed appointments already over.
	FindFinishedConfirmed(ctx context.Context, now time.Time) ([]schedule.Appointment, error)
}
