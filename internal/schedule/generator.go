package schedule

import (
	"fmt"
	"iter"
	"time"
)

// DefaultSlotDuration is the standard consultation length; one booking
// flow variant uses 15 minutes instead.
const DefaultSlotDuration = 30 * time.Minute

// DefaultHorizonMonths bounds how far ahead slots are offered.
const DefaultHorizonMonths = 2

// Snapshot is one doctor's scheduling state as fetched by the caller.
// The core never does I/O; it computes over whatever snapshot it is
// given, so staleness is the caller's concern (see ErrSlotConflict).
type Snapshot struct {
	Templates    []AvailabilityTemplate
	Windows      []UnavailabilityWindow
	Appointments []Appointment
}

// Options tunes slot generation. Zero values pick the defaults: 30-minute
// slots and a horizon two calendar months past Now.
type Options struct {
	Now          time.Time
	SlotDuration time.Duration
	Horizon      time.Time
}

// dayIndex is the prepared form of a snapshot shared by the generator
// and the admission controller.
type dayIndex struct {
	byDay     [7][]AvailabilityTemplate
	blocked   map[string]struct{}
	conflicts *ConflictIndex
}

func newDayIndex(snap Snapshot) (*dayIndex, error) {
	byDay, err := groupTemplates(snap.Templates)
	if err != nil {
		return nil, err
	}
	blocked, err := BlockedDays(snap.Windows)
	if err != nil {
		return nil, err
	}
	return &dayIndex{
		byDay:     byDay,
		blocked:   blocked,
		conflicts: NewConflictIndex(snap.Appointments),
	}, nil
}

func (ix *dayIndex) dayBlocked(day time.Time) bool {
	_, ok := ix.blocked[DateKey(day)]
	return ok
}

func (ix *dayIndex) openIntervals(day time.Time) []Interval {
	return openForDay(ix.byDay, day)
}

// Generator emits the bookable slots implied by one snapshot.
type Generator struct {
	idx      *dayIndex
	now      time.Time
	duration time.Duration
	horizon  time.Time
}

func NewGenerator(snap Snapshot, opts Options) (*Generator, error) {
	idx, err := newDayIndex(snap)
	if err != nil {
		return nil, err
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	duration := opts.SlotDuration
	if duration == 0 {
		duration = DefaultSlotDuration
	}
	if duration < 0 {
		return nil, fmt.Errorf("slot duration must be positive, got %s", duration)
	}
	horizon := opts.Horizon
	if horizon.IsZero() {
		horizon = now.AddDate(0, DefaultHorizonMonths, 0)
	}

	return &Generator{idx: idx, now: now, duration: duration, horizon: horizon}, nil
}

// Slots walks every calendar day in [rangeStart, rangeEnd) and yields
// bookable slots in chronological order, day-major then time-minor. The
// sequence is lazy, finite and restartable; ranging over it twice with
// the same snapshot yields identical output.
func (g *Generator) Slots(rangeStart, rangeEnd time.Time) iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		for day := startOfDay(rangeStart); day.Before(rangeEnd); day = day.AddDate(0, 0, 1) {
			if g.idx.dayBlocked(day) {
				continue
			}
			// Overlapping templates expand to overlapping intervals; the
			// high-water mark linearizes them so emitted slots never
			// overlap each other.
			var lastEnd time.Time
			for _, iv := range g.idx.openIntervals(day) {
				for t := iv.Start; !t.Add(g.duration).After(iv.End); t = t.Add(g.duration) {
					if !lastEnd.IsZero() && t.Before(lastEnd) {
						continue
					}
					end := t.Add(g.duration)
					if g.exclude(t, end) != nil {
						continue
					}
					if !yield(Slot{Start: t, End: end}) {
						return
					}
					lastEnd = end
				}
			}
		}
	}
}

// exclude classifies why a candidate slot must not be offered, or nil.
// Trailing partials never reach here; the walk drops any step that would
// overrun its interval rather than truncating it.
func (g *Generator) exclude(start, end time.Time) error {
	if !end.After(g.now) {
		return errSlotInPast
	}
	if !start.Before(g.horizon) {
		return ErrHorizonExceeded
	}
	if g.idx.conflicts.Overlaps(start, end) {
		return ErrSlotConflict
	}
	return nil
}
