package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

type Role string

const (
	RolePatient   Role = "patient"
	RoleDoctor    Role = "doctor"
	RoleSecretary Role = "secretary"
	RoleManager   Role = "manager"
	RoleAdmin     Role = "admin"
)

// Staff reports whether the role may manage appointments it does not own.
func (r Role) Staff() bool {
	switch r {
	case RoleDoctor, RoleSecretary, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Named sub-periods of a day's availability. An empty period is the
// simple one-template-per-day model.
const (
	PeriodMorning   = "morning"
	PeriodAfternoon = "afternoon"
)

// TimeOfDay is minutes since local midnight.
type TimeOfDay int

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// On anchors the time of day to the given calendar day, keeping the
// day's location. All scheduling is timezone-naive local wall clock.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), int(t)/60, int(t)%60, 0, 0, day.Location())
}

// AvailabilityTemplate is one weekly recurring opening for a doctor.
// At most one active template exists per (doctor, day, period); the
// upsert in the persistence layer enforces that key.
type AvailabilityTemplate struct {
	DoctorID uuid.UUID
	Day      Weekday
	Period   string // "", "morning" or "afternoon"
	Start    TimeOfDay
	End      TimeOfDay
	Active   bool
}

// UnavailabilityWindow blocks out an explicit leave span. Windows are
// created and deleted, never edited.
type UnavailabilityWindow struct {
	ID       uuid.UUID
	DoctorID uuid.UUID
	Start    time.Time
	End      time.Time // inclusive
	Reason   string
}

type Appointment struct {
	ID          uuid.UUID
	DoctorID    uuid.UUID
	PatientID   uuid.UUID // uuid.Nil when booked for a non-account-holder
	BookedBy    uuid.UUID
	GuestName   string
	GuestEmail  string
	Start       time.Time
	End         time.Time
	Status      Status
	Reason      string
	Notes       string
	ConfirmedBy uuid.UUID // set when the booking transitions into confirmed
}

// Slot is a derived bookable interval. Slots are never persisted; they
// are regenerated from a fresh snapshot on every query.
type Slot struct {
	Start time.Time
	End   time.Time
}

type Interval struct {
	Start time.Time
	End   time.Time
}

const dateKeyLayout = "2006-01-02"

// DateKey renders the calendar day of t as YYYY-MM-DD, independent of
// time of day. Blocked-day membership tests use these keys.
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
