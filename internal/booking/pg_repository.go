package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careslot/appointment-booking/internal/schedule"
)

// exclusionViolation is the SQLSTATE raised when the per-doctor overlap
// EXCLUDE constraint fires (see migrations). It closes the snapshot race
// the admission controller cannot see.
const exclusionViolation = "23P01"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Specialty, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanAppointment(row pgx.Row) (*schedule.Appointment, error) {
	var a schedule.Appointment
	var patientID, confirmedBy *uuid.UUID
	var guestName, guestEmail, notes *string

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&patientID,
		&a.BookedBy,
		&guestName,
		&guestEmail,
		&a.Start,
		&a.End,
		&a.Status,
		&a.Reason,
		&notes,
		&confirmedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if patientID != nil {
		a.PatientID = *patientID
	}
	if confirmedBy != nil {
		a.ConfirmedBy = *confirmedBy
	}
	if guestName != nil {
		a.GuestName = *guestName
	}
	if guestEmail != nil {
		a.GuestEmail = *guestEmail
	}
	if notes != nil {
		a.Notes = *notes
	}
	return &a, nil
}

const appointmentColumns = `id, doctor_id, patient_id, booked_by, guest_name, guest_email,
		start_at, end_at, status, reason, notes, confirmed_by`

func nilIfZero(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// mapConflict rewrites exclusion-constraint violations into the core's
// conflict error so callers can re-drive the booking flow.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
		return fmt.Errorf("%w: appointment interval already taken", schedule.ErrSlotConflict)
	}
	return err
}

// Interface methods

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) ListTemplates(ctx context.Context, doctorID uuid.UUID) ([]schedule.AvailabilityTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT doctor_id, day_of_week, period, start_min, end_min, active
		FROM availability_templates
		WHERE doctor_id = $1
		ORDER BY day_of_week, start_min
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []schedule.AvailabilityTemplate
	for rows.Next() {
		var t schedule.AvailabilityTemplate
		var day, startMin, endMin int
		if err := rows.Scan(&t.DoctorID, &day, &t.Period, &startMin, &endMin, &t.Active); err != nil {
			return nil, err
		}
		t.Day = schedule.Weekday(day)
		t.Start = schedule.TimeOfDay(startMin)
		t.End = schedule.TimeOfDay(endMin)
		result = append(result, t)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpsertTemplate(ctx context.Context, tpl schedule.AvailabilityTemplate) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO availability_templates (doctor_id, day_of_week, period, start_min, end_min, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (doctor_id, day_of_week, period)
		DO UPDATE SET start_min = EXCLUDED.start_min,
		              end_min = EXCLUDED.end_min,
		              active = EXCLUDED.active,
		              updated_at = now()
	`, tpl.DoctorID, int(tpl.Day), tpl.Period, int(tpl.Start), int(tpl.End), tpl.Active)
	return err
}

func (r *PgRepository) SetTemplateActive(ctx context.Context, doctorID uuid.UUID, day schedule.Weekday, period string, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE availability_templates
		SET active = $4,
		    updated_at = now()
		WHERE doctor_id = $1 AND day_of_week = $2 AND period = $3
	`, doctorID, int(day), period, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func (r *PgRepository) DeleteTemplate(ctx context.Context, doctorID uuid.UUID, day schedule.Weekday, period string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_templates
		WHERE doctor_id = $1 AND day_of_week = $2 AND period = $3
	`, doctorID, int(day), period)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func (r *PgRepository) CreateWindow(ctx context.Context, w schedule.UnavailabilityWindow) (*schedule.UnavailabilityWindow, error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO unavailability_windows (id, doctor_id, start_at, end_at, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, w.ID, w.DoctorID, w.Start, w.End, w.Reason)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *PgRepository) DeleteWindow(ctx context.Context, doctorID, windowID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM unavailability_windows
		WHERE id = $1 AND doctor_id = $2
	`, windowID, doctorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWindowNotFound
	}
	return nil
}

func (r *PgRepository) ListWindows(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]schedule.UnavailabilityWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, start_at, end_at, reason
		FROM unavailability_windows
		WHERE doctor_id = $1 AND start_at <= $3 AND end_at >= $2
		ORDER BY start_at
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []schedule.UnavailabilityWindow
	for rows.Next() {
		var w schedule.UnavailabilityWindow
		if err := rows.Scan(&w.ID, &w.DoctorID, &w.Start, &w.End, &w.Reason); err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a schedule.Appointment) (*schedule.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, booked_by, guest_name, guest_email,
		                          start_at, end_at, status, reason, notes, confirmed_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
		RETURNING `+appointmentColumns+`
	`, a.ID, a.DoctorID, nilIfZero(a.PatientID), a.BookedBy, nilIfEmpty(a.GuestName), nilIfEmpty(a.GuestEmail),
		a.Start, a.End, a.Status, a.Reason, nilIfEmpty(a.Notes), nilIfZero(a.ConfirmedBy))

	appt, err := scanAppointment(row)
	if err != nil {
		return nil, mapConflict(err)
	}
	return appt, nil
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a schedule.Appointment) (*schedule.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET start_at = $2,
		    end_at = $3,
		    status = $4,
		    reason = $5,
		    notes = $6,
		    confirmed_by = $7,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, a.ID, a.Start, a.End, a.Status, a.Reason, nilIfEmpty(a.Notes), nilIfZero(a.ConfirmedBy))

	appt, err := scanAppointment(row)
	if err != nil {
		return nil, mapConflict(err)
	}
	return appt, nil
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM appointments
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]schedule.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND start_at < $3 AND end_at > $2
		ORDER BY start_at
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []schedule.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) FindFinishedConfirmed(ctx context.Context, now time.Time) ([]schedule.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'confirmed' AND end_at <= $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []schedule.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}
