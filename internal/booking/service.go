package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careslot/appointment-booking/internal/config"
	redisclient "github.com/careslot/appointment-booking/internal/redis"
	"github.com/careslot/appointment-booking/internal/schedule"
)

var (
	ErrCalendarBusy         = errors.New("doctor's calendar is being updated, please retry")
	ErrNotAllowed           = errors.New("role is not allowed to perform this operation")
	ErrGuestDetailsRequired = errors.New("guest bookings require a name and email")
)

// Service orchestrates the scheduling core: it fetches snapshots,
// invokes the pure computations, and persists admitted changes under a
// per-doctor lock.
type Service struct {
	repo   Repository
	locker redisclient.Locker
	cfg    config.Config
	log    zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
		log:    log.With().Str("component", "booking").Logger(),
	}
}

// AvailableSlots returns the bookable slots for one doctor over
// [from, to). A zero duration picks the configured default.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, from, to time.Time, duration time.Duration) ([]schedule.Slot, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}

	snap, err := s.snapshot(ctx, doctorID, from, to)
	if err != nil {
		return nil, err
	}

	if duration == 0 {
		duration = s.cfg.SlotDuration
	}
	now := time.Now()
	gen, err := schedule.NewGenerator(snap, schedule.Options{
		Now:          now,
		SlotDuration: duration,
		Horizon:      now.AddDate(0, s.cfg.BookingHorizonMonths, 0),
	})
	if err != nil {
		return nil, err
	}

	return slices.Collect(gen.Slots(from, to)), nil
}

type BookingRequest struct {
	DoctorID    uuid.UUID
	PatientID   uuid.UUID // uuid.Nil for guest bookings
	GuestName   string
	GuestEmail  string
	Start       time.Time
	End         time.Time // zero: Start plus the configured slot duration
	Status      schedule.Status
	Reason      string
	Notes       string
	ConfirmedBy uuid.UUID
}

// BookAppointment validates and persists a new booking. The admission
// check runs against a snapshot fetched inside the doctor lock; a
// conflict that still slips through (lock expiry) comes back from the
// repository as schedule.ErrSlotConflict and the caller should re-query
// slots.
func (s *Service) BookAppointment(ctx context.Context, req BookingRequest, actor schedule.Actor) (*schedule.Appointment, error) {
	if _, err := s.repo.GetDoctorByID(ctx, req.DoctorID); err != nil {
		return nil, err
	}
	if req.PatientID != uuid.Nil {
		if _, err := s.repo.GetPatientByID(ctx, req.PatientID); err != nil {
			return nil, err
		}
	} else if req.GuestName == "" || req.GuestEmail == "" {
		return nil, ErrGuestDetailsRequired
	}

	status := req.Status
	if status == "" {
		status = schedule.StatusPending
	}
	end := req.End
	if end.IsZero() {
		end = req.Start.Add(s.cfg.SlotDuration)
	}
	confirmedBy := req.ConfirmedBy
	if status == schedule.StatusConfirmed && confirmedBy == uuid.Nil {
		confirmedBy = actor.ID
	}

	var created *schedule.Appointment

	err := s.locker.WithDoctorLock(ctx, req.DoctorID, func(lockCtx context.Context) error {
		snap, err := s.snapshotAround(lockCtx, req.DoctorID, req.Start, end)
		if err != nil {
			return err
		}
		ctrl, err := schedule.NewAdmissionController(snap)
		if err != nil {
			return err
		}

		res := ctrl.Admit(schedule.Proposal{
			DoctorID:    req.DoctorID,
			PatientID:   req.PatientID,
			Start:       req.Start,
			End:         end,
			Status:      status,
			ConfirmedBy: confirmedBy,
		}, actor, nil)
		if !res.Admitted {
			return res.Reason
		}

		created, err = s.repo.CreateAppointment(lockCtx, schedule.Appointment{
			ID:          uuid.New(),
			DoctorID:    req.DoctorID,
			PatientID:   req.PatientID,
			BookedBy:    actor.ID,
			GuestName:   req.GuestName,
			GuestEmail:  req.GuestEmail,
			Start:       req.Start,
			End:         end,
			Status:      status,
			Reason:      req.Reason,
			Notes:       req.Notes,
			ConfirmedBy: confirmedBy,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrCalendarBusy
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("doctor_id", created.DoctorID.String()).
		Time("start", created.Start).
		Str("status", string(created.Status)).
		Msg("appointment booked")

	return created, nil
}

type UpdateRequest struct {
	ID          uuid.UUID
	Start       time.Time // zero: unchanged
	End         time.Time // zero: unchanged
	Status      schedule.Status
	Reason      *string
	Notes       *string
	ConfirmedBy uuid.UUID
}

// UpdateAppointment applies a status/interval/notes edit after
// re-validating it against a fresh snapshot.
func (s *Service) UpdateAppointment(ctx context.Context, req UpdateRequest, actor schedule.Actor) (*schedule.Appointment, error) {
	var updated *schedule.Appointment

	err := s.withAppointmentLock(ctx, req.ID, func(lockCtx context.Context, current *schedule.Appointment) error {
		next := *current
		if !req.Start.IsZero() {
			next.Start = req.Start
		}
		if !req.End.IsZero() {
			next.End = req.End
		}
		if req.Status != "" {
			next.Status = req.Status
		}
		if req.Reason != nil {
			next.Reason = *req.Reason
		}
		if req.Notes != nil {
			next.Notes = *req.Notes
		}
		if next.Status == schedule.StatusConfirmed && current.Status != schedule.StatusConfirmed {
			next.ConfirmedBy = req.ConfirmedBy
			if next.ConfirmedBy == uuid.Nil {
				next.ConfirmedBy = actor.ID
			}
		}

		snap, err := s.snapshotAround(lockCtx, current.DoctorID, next.Start, next.End)
		if err != nil {
			return err
		}
		ctrl, err := schedule.NewAdmissionController(snap)
		if err != nil {
			return err
		}

		res := ctrl.Admit(schedule.Proposal{
			AppointmentID: current.ID,
			DoctorID:      current.DoctorID,
			PatientID:     current.PatientID,
			Start:         next.Start,
			End:           next.End,
			Status:        next.Status,
			ConfirmedBy:   next.ConfirmedBy,
		}, actor, current)
		if !res.Admitted {
			return res.Reason
		}

		updated, err = s.repo.UpdateAppointment(lockCtx, next)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", updated.ID.String()).
		Str("status", string(updated.Status)).
		Msg("appointment updated")

	return updated, nil
}

// CancelAppointment is the one edit a patient may make to their own
// booking; staff use it too.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, actor schedule.Actor) (*schedule.Appointment, error) {
	return s.UpdateAppointment(ctx, UpdateRequest{ID: id, Status: schedule.StatusCancelled}, actor)
}

// DeleteAppointment removes the record entirely. Only doctors,
// secretaries and managers may do that.
func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID, actor schedule.Actor) error {
	switch actor.Role {
	case schedule.RoleDoctor, schedule.RoleSecretary, schedule.RoleManager:
	default:
		return ErrNotAllowed
	}
	if err := s.repo.DeleteAppointment(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("appointment_id", id.String()).Msg("appointment deleted")
	return nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

func (s *Service) ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]schedule.Appointment, error) {
	return s.repo.ListAppointments(ctx, doctorID, from, to)
}

// Availability management. Doctors maintain their own calendars.

func (s *Service) UpsertTemplate(ctx context.Context, tpl schedule.AvailabilityTemplate, actor schedule.Actor) error {
	if err := manageAllowed(actor, tpl.DoctorID); err != nil {
		return err
	}
	if tpl.Start >= tpl.End {
		return fmt.Errorf("%w: %s-%s", schedule.ErrInvalidInterval, tpl.Start, tpl.End)
	}
	return s.repo.UpsertTemplate(ctx, tpl)
}

// ToggleTemplate flips the active flag; the "remove" action in the
// weekly editor deactivates rather than deletes.
func (s *Service) ToggleTemplate(ctx context.Context, doctorID uuid.UUID, day schedule.Weekday, period string, active bool, actor schedule.Actor) error {
	if err := manageAllowed(actor, doctorID); err != nil {
		return err
	}
	return s.repo.SetTemplateActive(ctx, doctorID, day, period, active)
}

func (s *Service) DeleteTemplate(ctx context.Context, doctorID uuid.UUID, day schedule.Weekday, period string, actor schedule.Actor) error {
	if err := manageAllowed(actor, doctorID); err != nil {
		return err
	}
	return s.repo.DeleteTemplate(ctx, doctorID, day, period)
}

func (s *Service) ListTemplates(ctx context.Context, doctorID uuid.UUID) ([]schedule.AvailabilityTemplate, error) {
	return s.repo.ListTemplates(ctx, doctorID)
}

func (s *Service) AddUnavailability(ctx context.Context, w schedule.UnavailabilityWindow, actor schedule.Actor) (*schedule.UnavailabilityWindow, error) {
	if err := manageAllowed(actor, w.DoctorID); err != nil {
		return nil, err
	}
	if w.End.Before(w.Start) {
		return nil, fmt.Errorf("%w: unavailability %s after %s", schedule.ErrInvalidInterval, w.Start, w.End)
	}
	return s.repo.CreateWindow(ctx, w)
}

func (s *Service) RemoveUnavailability(ctx context.Context, doctorID, windowID uuid.UUID, actor schedule.Actor) error {
	if err := manageAllowed(actor, doctorID); err != nil {
		return err
	}
	return s.repo.DeleteWindow(ctx, doctorID, windowID)
}

func (s *Service) ListUnavailability(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]schedule.UnavailabilityWindow, error) {
	return s.repo.ListWindows(ctx, doctorID, from, to)
}

// CompleteFinished marks confirmed appointments whose end has passed as
// completed. The completion worker calls it periodically.
func (s *Service) CompleteFinished(ctx context.Context) (int, error) {
	finished, err := s.repo.FindFinishedConfirmed(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("find finished appointments: %w", err)
	}

	completed := 0
	for _, a := range finished {
		a.Status = schedule.StatusCompleted
		if _, err := s.repo.UpdateAppointment(ctx, a); err != nil {
			s.log.Error().Err(err).Str("appointment_id", a.ID.String()).Msg("failed to complete appointment")
			continue
		}
		completed++
	}
	return completed, nil
}

func manageAllowed(actor schedule.Actor, doctorID uuid.UUID) error {
	if actor.Role == schedule.RoleDoctor && actor.ID == doctorID {
		return nil
	}
	if actor.Role == schedule.RoleAdmin {
		return nil
	}
	return ErrNotAllowed
}

// withAppointmentLock loads the appointment, then re-loads and runs fn
// under its doctor's lock.
func (s *Service) withAppointmentLock(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, current *schedule.Appointment) error) error {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.locker.WithDoctorLock(ctx, appt.DoctorID, func(lockCtx context.Context) error {
		current, err := s.repo.GetAppointmentByID(lockCtx, id)
		if err != nil {
			return err
		}
		return fn(lockCtx, current)
	})
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return ErrCalendarBusy
	}
	return err
}

// snapshot fetches one doctor's scheduling state for a range.
func (s *Service) snapshot(ctx context.Context, doctorID uuid.UUID, from, to time.Time) (schedule.Snapshot, error) {
	templates, err := s.repo.ListTemplates(ctx, doctorID)
	if err != nil {
		return schedule.Snapshot{}, fmt.Errorf("list templates: %w", err)
	}
	windows, err := s.repo.ListWindows(ctx, doctorID, from, to)
	if err != nil {
		return schedule.Snapshot{}, fmt.Errorf("list unavailability: %w", err)
	}
	appts, err := s.repo.ListAppointments(ctx, doctorID, from, to)
	if err != nil {
		return schedule.Snapshot{}, fmt.Errorf("list appointments: %w", err)
	}
	return schedule.Snapshot{Templates: templates, Windows: windows, Appointments: appts}, nil
}

// snapshotAround covers the calendar days touched by [start, end] so
// admission sees every appointment that could conflict.
func (s *Service) snapshotAround(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (schedule.Snapshot, error) {
	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	dayEnd := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location()).AddDate(0, 0, 1)
	return s.snapshot(ctx, doctorID, dayStart, dayEnd)
}
