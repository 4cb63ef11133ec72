package schedule

import (
	"time"

	"github.com/google/uuid"
)

// ConflictIndex is a pure occupied-interval query structure over one
// doctor's existing appointments. Cancelled and completed bookings never
// block a slot; only pending and confirmed ones are indexed. The index
// is rebuilt from a fresh snapshot whenever the appointment set changes
// and is never mutated or shared between requests.
type ConflictIndex struct {
	occupied []occupiedInterval
}

type occupiedInterval struct {
	id    uuid.UUID
	start time.Time
	end   time.Time
}

func NewConflictIndex(appts []Appointment) *ConflictIndex {
	ix := &ConflictIndex{}
	for _, a := range appts {
		if a.Status != StatusPending && a.Status != StatusConfirmed {
			continue
		}
		ix.occupied = append(ix.occupied, occupiedInterval{id: a.ID, start: a.Start, end: a.End})
	}
	return ix
}

// Overlaps reports whether [start, end) intersects any occupied
// interval. Half-open semantics: [a,b) and [c,d) overlap iff a < d && c < b,
// which also covers a candidate fully containing an occupied interval.
func (ix *ConflictIndex) Overlaps(start, end time.Time) bool {
	return ix.OverlapsExcluding(uuid.Nil, start, end)
}

// OverlapsExcluding is Overlaps ignoring one appointment, for edits that
// move the excluded record's own interval.
func (ix *ConflictIndex) OverlapsExcluding(exclude uuid.UUID, start, end time.Time) bool {
	for _, o := range ix.occupied {
		if exclude != uuid.Nil && o.id == exclude {
			continue
		}
		if start.Before(o.end) && o.start.Before(end) {
			return true
		}
	}
	return false
}
