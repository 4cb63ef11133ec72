package schedule

import "fmt"

// BlockedDays expands unavailability windows into the set of fully
// blocked calendar-day keys. A window that covers any part of a day
// blocks the whole day for slot generation; the sub-day span is still
// available elsewhere for display. Whole-day granularity is a deliberate
// simplification and must stay.
func BlockedDays(windows []UnavailabilityWindow) (map[string]struct{}, error) {
	blocked := make(map[string]struct{})
	for _, w := range windows {
		if w.End.Before(w.Start) {
			return nil, fmt.Errorf("%w: unavailability %s after %s", ErrInvalidInterval, w.Start, w.End)
		}
		last := startOfDay(w.End)
		for day := startOfDay(w.Start); !day.After(last); day = day.AddDate(0, 0, 1) {
			blocked[DateKey(day)] = struct{}{}
		}
	}
	return blocked, nil
}
