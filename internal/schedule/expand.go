package schedule

import (
	"fmt"
	"sort"
	"time"
)

// DayOpenings holds the expanded open intervals for one calendar day.
// A day the doctor is closed has an empty Open list.
type DayOpenings struct {
	Date time.Time
	Open []Interval
}

// ExpandTemplates expands weekly availability templates into concrete
// per-day open intervals for every calendar day in [rangeStart, rangeEnd).
// Inactive templates contribute nothing. Overlapping templates for the
// same day each expand independently; no de-duplication happens here.
func ExpandTemplates(tpls []AvailabilityTemplate, rangeStart, rangeEnd time.Time) ([]DayOpenings, error) {
	byDay, err := groupTemplates(tpls)
	if err != nil {
		return nil, err
	}

	var days []DayOpenings
	for day := startOfDay(rangeStart); day.Before(rangeEnd); day = day.AddDate(0, 0, 1) {
		days = append(days, DayOpenings{
			Date: day,
			Open: openForDay(byDay, day),
		})
	}
	return days, nil
}

// groupTemplates validates active templates and buckets them by weekday,
// sorted by start time so expanded intervals come out chronological.
func groupTemplates(tpls []AvailabilityTemplate) ([7][]AvailabilityTemplate, error) {
	var byDay [7][]AvailabilityTemplate
	for _, t := range tpls {
		if !t.Active {
			continue
		}
		if t.Start >= t.End {
			return byDay, fmt.Errorf("%w: template %s %s %s-%s", ErrInvalidInterval, t.Day, t.Period, t.Start, t.End)
		}
		if t.Day < Sunday || t.Day > Saturday {
			return byDay, fmt.Errorf("template has unknown weekday %d", int(t.Day))
		}
		byDay[t.Day] = append(byDay[t.Day], t)
	}
	for d := range byDay {
		sort.Slice(byDay[d], func(i, j int) bool {
			return byDay[d][i].Start < byDay[d][j].Start
		})
	}
	return byDay, nil
}

func openForDay(byDay [7][]AvailabilityTemplate, day time.Time) []Interval {
	tpls := byDay[Weekday(day.Weekday())]
	if len(tpls) == 0 {
		return nil
	}
	open := make([]Interval, 0, len(tpls))
	for _, t := range tpls {
		open = append(open, Interval{Start: t.Start.On(day), End: t.End.On(day)})
	}
	return open
}
