package schedule

import "errors"

var (
	// ErrInvalidInterval reports a template, window or appointment whose
	// start does not precede its end.
	ErrInvalidInterval = errors.New("interval start must precede end")

	// ErrSlotUnavailable reports a candidate that falls outside every
	// availability interval, or on a blocked day.
	ErrSlotUnavailable = errors.New("slot is not within the doctor's availability")

	// ErrSlotConflict reports overlap with an existing pending or
	// confirmed appointment. Routine contention, not a caller bug: the
	// caller should re-fetch a fresh snapshot and re-present slots.
	ErrSlotConflict = errors.New("slot conflicts with an existing appointment")

	// ErrIllegalStatusTransition reports a status write the actor's role
	// does not permit, or a confirm transition missing its confirmed-by
	// stamp.
	ErrIllegalStatusTransition = errors.New("illegal status transition")

	// ErrHorizonExceeded marks candidates beyond the booking horizon.
	// It is a filter reason inside the generator, never an admission
	// rejection.
	ErrHorizonExceeded = errors.New("slot is beyond the booking horizon")

	errSlotInPast = errors.New("slot is entirely in the past")
)
