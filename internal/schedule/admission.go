package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Actor identifies who is asking for the booking change. Identity and
// role come from the surrounding system; the core treats them as given.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// Proposal is a booking to validate before persistence. AppointmentID is
// uuid.Nil for a new booking and the existing record's ID for an edit.
type Proposal struct {
	AppointmentID uuid.UUID
	DoctorID      uuid.UUID
	PatientID     uuid.UUID
	Start         time.Time
	End           time.Time
	Status        Status
	ConfirmedBy   uuid.UUID
}

// AdmissionResult is the controller's decision. Reason is nil when
// admitted; otherwise it wraps one of the package error kinds with
// human-readable detail. Persistence stays with the caller either way.
type AdmissionResult struct {
	Admitted bool
	Reason   error
}

func admit() AdmissionResult { return AdmissionResult{Admitted: true} }
func reject(err error) AdmissionResult { return AdmissionResult{Reason: err} }

// AdmissionController validates proposed bookings against a snapshot of
// the doctor's schedule. Like the generator it is pure: a conflict found
// at persistence time (stale snapshot race) must be surfaced by the
// storage layer as ErrSlotConflict and re-driven by the caller.
type AdmissionController struct {
	idx *dayIndex
}

func NewAdmissionController(snap Snapshot) (*AdmissionController, error) {
	idx, err := newDayIndex(snap)
	if err != nil {
		return nil, err
	}
	return &AdmissionController{idx: idx}, nil
}

// Admit runs the checks in order: interval sanity, availability,
// conflict, then role and status rules. current is the stored record
// for edits and nil for a new booking.
func (c *AdmissionController) Admit(p Proposal, actor Actor, current *Appointment) AdmissionResult {
	if !p.Start.Before(p.End) {
		return reject(fmt.Errorf("%w: %s to %s", ErrInvalidInterval, p.Start, p.End))
	}

	intervalChanged := current == nil || !p.Start.Equal(current.Start) || !p.End.Equal(current.End)
	if intervalChanged {
		if err := c.checkAvailability(p); err != nil {
			return reject(err)
		}
	}

	if c.idx.conflicts.OverlapsExcluding(p.AppointmentID, p.Start, p.End) {
		return reject(fmt.Errorf("%w: %s to %s is already booked", ErrSlotConflict, p.Start, p.End))
	}

	if err := c.checkStatus(p, actor, current); err != nil {
		return reject(err)
	}

	return admit()
}

func (c *AdmissionController) checkAvailability(p Proposal) error {
	day := startOfDay(p.Start)
	if c.idx.dayBlocked(day) {
		return fmt.Errorf("%w: doctor is unavailable on %s", ErrSlotUnavailable, DateKey(day))
	}
	for _, iv := range c.idx.openIntervals(day) {
		if !p.Start.Before(iv.Start) && !p.End.After(iv.End) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s to %s is outside the doctor's hours", ErrSlotUnavailable, p.Start, p.End)
}

func (c *AdmissionController) checkStatus(p Proposal, actor Actor, current *Appointment) error {
	switch {
	case actor.Role == RolePatient:
		return checkPatientStatus(p, actor, current)
	case actor.Role.Staff():
		return checkStaffStatus(p, current)
	default:
		return fmt.Errorf("%w: unknown role %q", ErrIllegalStatusTransition, actor.Role)
	}
}

// Patients book for themselves and may only ever cancel afterwards.
func checkPatientStatus(p Proposal, actor Actor, current *Appointment) error {
	if current == nil {
		if p.PatientID != actor.ID {
			return fmt.Errorf("%w: patients may only book for themselves", ErrIllegalStatusTransition)
		}
		if p.Status != StatusPending {
			return fmt.Errorf("%w: patient bookings start as %s", ErrIllegalStatusTransition, StatusPending)
		}
		return nil
	}
	if current.PatientID != actor.ID {
		return fmt.Errorf("%w: patients may only modify their own appointments", ErrIllegalStatusTransition)
	}
	if p.Status != StatusCancelled {
		return fmt.Errorf("%w: patients may only cancel", ErrIllegalStatusTransition)
	}
	if !legalTransition(current.Status, p.Status) {
		return fmt.Errorf("%w: %s to %s", ErrIllegalStatusTransition, current.Status, p.Status)
	}
	return nil
}

func checkStaffStatus(p Proposal, current *Appointment) error {
	from := StatusPending
	if current != nil {
		from = current.Status
	} else if p.Status != StatusPending && p.Status != StatusConfirmed {
		return fmt.Errorf("%w: new bookings start as %s or %s", ErrIllegalStatusTransition, StatusPending, StatusConfirmed)
	}

	if !legalTransition(from, p.Status) {
		return fmt.Errorf("%w: %s to %s", ErrIllegalStatusTransition, from, p.Status)
	}
	if p.Status == StatusConfirmed && from != StatusConfirmed && p.ConfirmedBy == uuid.Nil {
		return fmt.Errorf("%w: confirming requires a confirmed-by identifier", ErrIllegalStatusTransition)
	}
	return nil
}

// legalTransition encodes the intended status machine: cancelled and
// completed are terminal, everything else funnels through confirmed.
// Same-status writes (notes or reason edits) always pass.
func legalTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCancelled || to == StatusCompleted
	default:
		return false
	}
}
