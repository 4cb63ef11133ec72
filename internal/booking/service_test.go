package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careslot/appointment-booking/internal/config"
	redisclient "github.com/careslot/appointment-booking/internal/redis"
	"github.com/careslot/appointment-booking/internal/schedule"
)

type fakeRepo struct {
	doctors      map[uuid.UUID]Doctor
	patients     map[uuid.UUID]Patient
	templates    []schedule.AvailabilityTemplate
	windows      []schedule.UnavailabilityWindow
	appointments map[uuid.UUID]schedule.Appointment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		doctors:      make(map[uuid.UUID]Doctor),
		patients:     make(map[uuid.UUID]Patient),
		appointments: make(map[uuid.UUID]schedule.Appointment),
	}
}

func (r *fakeRepo) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (r *fakeRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *fakeRepo) ListTemplates(_ context.Context, doctorID uuid.UUID) ([]schedule.AvailabilityTemplate, error) {
	var out []schedule.AvailabilityTemplate
	for _, t := range r.templates {
		if t.DoctorID == doctorID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpsertTemplate(_ context.Context, tpl schedule.AvailabilityTemplate) error {
	for i, t := range r.templates {
		if t.DoctorID == tpl.DoctorID && t.Day == tpl.Day && t.Period == tpl.Period {
			r.templates[i] = tpl
			return nil
		}
	}
	r.templates = append(r.templates, tpl)
	return nil
}

func (r *fakeRepo) SetTemplateActive(_ context.Context, doctorID uuid.UUID, day schedule.Weekday, period string, active bool) error {
	for i, t := range r.templates {
		if t.DoctorID == doctorID && t.Day == day && t.Period == period {
			r.templates[i].Active = active
			return nil
		}
	}
	return ErrTemplateNotFound
}

func (r *fakeRepo) DeleteTemplate(_ context.Context, doctorID uuid.UUID, day schedule.Weekday, period string) error {
	for i, t := range r.templates {
		if t.DoctorID == doctorID && t.Day == day && t.Period == period {
			r.templates = append(r.templates[:i], r.templates[i+1:]...)
			return nil
		}
	}
	return ErrTemplateNotFound
}

func (r *fakeRepo) CreateWindow(_ context.Context, w schedule.UnavailabilityWindow) (*schedule.UnavailabilityWindow, error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	r.windows = append(r.windows, w)
	return &w, nil
}

func (r *fakeRepo) DeleteWindow(_ context.Context, doctorID, windowID uuid.UUID) error {
	for i, w := range r.windows {
		if w.ID == windowID && w.DoctorID == doctorID {
			r.windows = append(r.windows[:i], r.windows[i+1:]...)
			return nil
		}
	}
	return ErrWindowNotFound
}

func (r *fakeRepo) ListWindows(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]schedule.UnavailabilityWindow, error) {
	var out []schedule.UnavailabilityWindow
	for _, w := range r.windows {
		if w.DoctorID == doctorID && !w.Start.After(to) && !w.End.Before(from) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateAppointment(_ context.Context, a schedule.Appointment) (*schedule.Appointment, error) {
	r.appointments[a.ID] = a
	return &a, nil
}

func (r *fakeRepo) UpdateAppointment(_ context.Context, a schedule.Appointment) (*schedule.Appointment, error) {
	if _, ok := r.appointments[a.ID]; !ok {
		return nil, ErrAppointmentNotFound
	}
	r.appointments[a.ID] = a
	return &a, nil
}

func (r *fakeRepo) DeleteAppointment(_ context.Context, id uuid.UUID) error {
	if _, ok := r.appointments[id]; !ok {
		return ErrAppointmentNotFound
	}
	delete(r.appointments, id)
	return nil
}

func (r *fakeRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *fakeRepo) ListAppointments(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]schedule.Appointment, error) {
	var out []schedule.Appointment
	for _, a := range r.appointments {
		if a.DoctorID == doctorID && a.Start.Before(to) && a.End.After(from) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) FindFinishedConfirmed(_ context.Context, now time.Time) ([]schedule.Appointment, error) {
	var out []schedule.Appointment
	for _, a := range r.appointments {
		if a.Status == schedule.StatusConfirmed && !a.End.After(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeLocker struct {
	calls int
	fail  bool
}

func (l *fakeLocker) WithDoctorLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	l.calls++
	if l.fail {
		return redisclient.ErrLockNotAcquired
	}
	return fn(ctx)
}

func testConfig() config.Config {
	return config.Config{
		SlotDuration:         30 * time.Minute,
		BookingHorizonMonths: 2,
	}
}

// nextMonday returns the next Monday strictly in the future, so slot
// queries are unaffected by the past filter.
func nextMonday() time.Time {
	now := time.Now()
	days := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	d := now.AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}

func setupService(t *testing.T) (*Service, *fakeRepo, uuid.UUID, uuid.UUID) {
	t.Helper()
	repo := newFakeRepo()
	doctorID := uuid.New()
	patientID := uuid.New()
	repo.doctors[doctorID] = Doctor{ID: doctorID, Name: "Dr. Test"}
	repo.patients[patientID] = Patient{ID: patientID, Name: "Pat"}

	start, err := schedule.ParseTimeOfDay("08:30")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	end, err := schedule.ParseTimeOfDay("12:30")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	repo.templates = append(repo.templates, schedule.AvailabilityTemplate{
		DoctorID: doctorID, Day: schedule.Monday, Start: start, End: end, Active: true,
	})

	svc := NewService(repo, &fakeLocker{}, testConfig(), zerolog.Nop())
	return svc, repo, doctorID, patientID
}

func TestAvailableSlots(t *testing.T) {
	svc, _, doctorID, _ := setupService(t)
	monday := nextMonday()

	slots, err := svc.AvailableSlots(context.Background(), doctorID, monday, monday.AddDate(0, 0, 1), 0)
	if err != nil {
		t.Fatalf("available slots: %v", err)
	}
	if len(slots) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(slots))
	}
}

func TestAvailableSlots_UnknownDoctor(t *testing.T) {
	svc, _, _, _ := setupService(t)
	monday := nextMonday()

	_, err := svc.AvailableSlots(context.Background(), uuid.New(), monday, monday.AddDate(0, 0, 1), 0)
	if !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestBookAppointment(t *testing.T) {
	svc, repo, doctorID, patientID := setupService(t)
	monday := nextMonday()
	start := monday.Add(9 * time.Hour)

	appt, err := svc.BookAppointment(context.Background(), BookingRequest{
		DoctorID:  doctorID,
		PatientID: patientID,
		Start:     start,
		Reason:    "checkup",
	}, schedule.Actor{ID: patientID, Role: schedule.RolePatient})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if appt.Status != schedule.StatusPending {
		t.Errorf("status = %s, want pending", appt.Status)
	}
	if !appt.End.Equal(start.Add(30 * time.Minute)) {
		t.Errorf("end = %s, want start+30m", appt.End)
	}
	if appt.BookedBy != patientID {
		t.Errorf("booked_by = %s, want the actor", appt.BookedBy)
	}
	if len(repo.appointments) != 1 {
		t.Errorf("expected 1 stored appointment, got %d", len(repo.appointments))
	}
}

func TestBookAppointment_Conflict(t *testing.T) {
	svc, _, doctorID, patientID := setupService(t)
	monday := nextMonday()
	start := monday.Add(10 * time.Hour)
	actor := schedule.Actor{ID: patientID, Role: schedule.RolePatient}

	if _, err := svc.BookAppointment(context.Background(), BookingRequest{
		DoctorID: doctorID, PatientID: patientID, Start: start, Reason: "first",
	}, actor); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	_, err := svc.BookAppointment(context.Background(), BookingRequest{
		DoctorID: doctorID, PatientID: patientID, Start: start.Add(15 * time.Minute), Reason: "second",
	}, actor)
	if !errors.Is(err, schedule.ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}
}

func TestBookAppointment_OutsideHours(t *testing.T) {
	svc, _, doctorID, patientID := setupService(t)
	monday := nextMonday()

	_, err := svc.BookAppointment(context.Background(), BookingRequest{
		DoctorID: doctorID, PatientID: patientID,
		Start: monday.Add(15 * time.Hour), Reason: "late",
	}, schedule.Actor{ID: patientID, Role: schedule.RolePatient})
	if !errors.Is(err, schedule.ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
}

func TestBookAppointment_GuestNeedsDetails(t *testing.T) {
	svc, _, doctorID, _ := setupService(t)
	monday := nextMonday()
	secretary := schedule.Actor{ID: uuid.New(), Role: schedule.RoleSecretary}

	_, err := svc.BookAppointment(context.Background(), BookingRequest{
		DoctorID: doctorID, Start: monday.Add(9 * time.Hour), Reason: "walk-in",
	}, secretary)
	if !errors.Is(err, ErrGuestDetailsRequired) {
		t.Fatalf("expected ErrGuestDetailsRequired, got %v", err)
	}

	appt, err := svc.BookAppointment(context.Background(), BookingRequest{
		DoctorID: doctorID, Start: monday.Add(9 * time.Hour), Reason: "walk-in",
		GuestName: "Walk In", GuestEmail: "walkin@example.com",
	}, secretary)
	if err != nil {
		t.Fatalf("guest booking: %v", err)
	}
	if appt.PatientID != uuid.Nil {
		t.Errorf("guest booking should have no patient id")
	}
}

func TestBookAppointment_CalendarBusy(t *testing.T) {
	repo := newFakeRepo()
	doctorID := uuid.New()
	patientID := uuid.New()
	repo.doctors[doctorID] = Doctor{ID: doctorID}
	repo.patients[patientID] = Patient{ID: patientID}
	svc := NewService(repo, &fakeLocker{fail: true}, testConfig(), zerolog.Nop())

	_, err := svc.BookAppointment(context.Background(), BookingRequest{
		DoctorID: doctorID, PatientID: patientID, Start: nextMonday().Add(9 * time.Hour),
	}, schedule.Actor{ID: patientID, Role: schedule.RolePatient})
	if !errors.Is(err, ErrCalendarBusy) {
		t.Fatalf("expected ErrCalendarBusy, got %v", err)
	}
}

func TestUpdateAppointment_PatientCancel(t *testing.T) {
	svc, _, doctorID, patientID := setupService(t)
	monday := nextMonday()
	actor := schedule.Actor{ID: patientID, Role: schedule.RolePatient}

	appt, err := svc.BookAppointment(context.Background(), BookingRequest{
		DoctorID: doctorID, PatientID: patientID, Start: monday.Add(9 * time.Hour), Reason: "checkup",
	}, actor)
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	cancelled, err := svc.CancelAppointment(context.Background(), appt.ID, actor)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != schedule.StatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}
}

func TestUpdateAppointment_PatientCannotConfirm(t *testing.T) {
	svc, _, doctorID, patientID := setupService(t)
	monday := nextMonday()
	actor := schedule.Actor{ID: patientID, Role: schedule.RolePatient}

	appt, err := svc.BookAppointment(context.Background(), BookingRequest{
		DoctorID: doctorID, PatientID: patientID, Start: monday.Add(9 * time.Hour), Reason: "checkup",
	}, actor)
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	_, err = svc.UpdateAppointment(context.Background(), UpdateRequest{
		ID: appt.ID, Status: schedule.StatusConfirmed,
	}, actor)
	if !errors.Is(err, schedule.ErrIllegalStatusTransition) {
		t.Fatalf("expected ErrIllegalStatusTransition, got %v", err)
	}
}

func TestUpdateAppointment_ConfirmStampsActor(t *testing.T) {
	svc, _, doctorID, patientID := setupService(t)
	monday := nextMonday()

	appt, err := svc.BookAppointment(context.Background(), BookingRequest{
		DoctorID: doctorID, PatientID: patientID, Start: monday.Add(9 * time.Hour), Reason: "checkup",
	}, schedule.Actor{ID: patientID, Role: schedule.RolePatient})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	secretary := schedule.Actor{ID: uuid.New(), Role: schedule.RoleSecretary}
	confirmed, err := svc.UpdateAppointment(context.Background(), UpdateRequest{
		ID: appt.ID, Status: schedule.StatusConfirmed,
	}, secretary)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.ConfirmedBy != secretary.ID {
		t.Errorf("confirmed_by = %s, want the confirming actor %s", confirmed.ConfirmedBy, secretary.ID)
	}
}

func TestUpdateAppointment_MoveOntoOtherBooking(t *testing.T) {
	svc, _, doctorID, patientID := setupService(t)
	monday := nextMonday()
	actor := schedule.Actor{ID: uuid.New(), Role: schedule.RoleSecretary}

	first, err := svc.BookAppointment(context.Background(), BookingRequest{
		DoctorID: doctorID, PatientID: patientID, Start: monday.Add(9 * time.Hour), Reason: "a",
	}, actor)
	if err != nil {
		t.Fatalf("book first: %v", err)
	}
	if _, err := svc.BookAppointment(context.Background(), BookingRequest{
		DoctorID: doctorID, PatientID: patientID, Start: monday.Add(10 * time.Hour), Reason: "b",
	}, actor); err != nil {
		t.Fatalf("book second: %v", err)
	}

	_, err = svc.UpdateAppointment(context.Background(), UpdateRequest{
		ID:    first.ID,
		Start: monday.Add(10 * time.Hour),
		End:   monday.Add(10*time.Hour + 30*time.Minute),
	}, actor)
	if !errors.Is(err, schedule.ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}
}

func TestDeleteAppointment_Roles(t *testing.T) {
	svc, _, doctorID, patientID := setupService(t)
	monday := nextMonday()

	appt, err := svc.BookAppointment(context.Background(), BookingRequest{
		DoctorID: doctorID, PatientID: patientID, Start: monday.Add(9 * time.Hour), Reason: "checkup",
	}, schedule.Actor{ID: patientID, Role: schedule.RolePatient})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	patient := schedule.Actor{ID: patientID, Role: schedule.RolePatient}
	if err := svc.DeleteAppointment(context.Background(), appt.ID, patient); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("patient delete: expected ErrNotAllowed, got %v", err)
	}

	manager := schedule.Actor{ID: uuid.New(), Role: schedule.RoleManager}
	if err := svc.DeleteAppointment(context.Background(), appt.ID, manager); err != nil {
		t.Fatalf("manager delete: %v", err)
	}
}

func TestUpsertTemplate_Ownership(t *testing.T) {
	svc, _, doctorID, _ := setupService(t)
	start, _ := schedule.ParseTimeOfDay("14:00")
	end, _ := schedule.ParseTimeOfDay("17:00")
	tpl := schedule.AvailabilityTemplate{
		DoctorID: doctorID, Day: schedule.Tuesday, Start: start, End: end, Active: true,
	}

	otherDoctor := schedule.Actor{ID: uuid.New(), Role: schedule.RoleDoctor}
	if err := svc.UpsertTemplate(context.Background(), tpl, otherDoctor); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("expected ErrNotAllowed, got %v", err)
	}

	owner := schedule.Actor{ID: doctorID, Role: schedule.RoleDoctor}
	if err := svc.UpsertTemplate(context.Background(), tpl, owner); err != nil {
		t.Fatalf("owner upsert: %v", err)
	}

	bad := tpl
	bad.Start, bad.End = bad.End, bad.Start
	if err := svc.UpsertTemplate(context.Background(), bad, owner); !errors.Is(err, schedule.ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestToggleTemplate_HidesSlots(t *testing.T) {
	svc, _, doctorID, _ := setupService(t)
	owner := schedule.Actor{ID: doctorID, Role: schedule.RoleDoctor}
	monday := nextMonday()

	if err := svc.ToggleTemplate(context.Background(), doctorID, schedule.Monday, "", false, owner); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	slots, err := svc.AvailableSlots(context.Background(), doctorID, monday, monday.AddDate(0, 0, 1), 0)
	if err != nil {
		t.Fatalf("available slots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("deactivated template should yield 0 slots, got %d", len(slots))
	}
}

func TestUnavailability_BlocksBooking(t *testing.T) {
	svc, _, doctorID, patientID := setupService(t)
	owner := schedule.Actor{ID: doctorID, Role: schedule.RoleDoctor}
	monday := nextMonday()

	if _, err := svc.AddUnavailability(context.Background(), schedule.UnavailabilityWindow{
		DoctorID: doctorID, Start: monday, End: monday, Reason: "leave",
	}, owner); err != nil {
		t.Fatalf("add unavailability: %v", err)
	}

	_, err := svc.BookAppointment(context.Background(), BookingRequest{
		DoctorID: doctorID, PatientID: patientID, Start: monday.Add(9 * time.Hour), Reason: "checkup",
	}, schedule.Actor{ID: patientID, Role: schedule.RolePatient})
	if !errors.Is(err, schedule.ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
}

func TestCompleteFinished(t *testing.T) {
	svc, repo, doctorID, patientID := setupService(t)

	past := time.Now().Add(-2 * time.Hour)
	id := uuid.New()
	repo.appointments[id] = schedule.Appointment{
		ID: id, DoctorID: doctorID, PatientID: patientID,
		Start: past, End: past.Add(30 * time.Minute),
		Status: schedule.StatusConfirmed,
	}

	n, err := svc.CompleteFinished(context.Background())
	if err != nil {
		t.Fatalf("complete finished: %v", err)
	}
	if n != 1 {
		t.Fatalf("completed = %d, want 1", n)
	}
	if got := repo.appointments[id].Status; got != schedule.StatusCompleted {
		t.Errorf("status = %s, want completed", got)
	}
}
