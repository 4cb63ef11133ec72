package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func tod(t *testing.T, s string) TimeOfDay {
	t.Helper()
	v, err := ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

func TestExpandTemplates_WeekdayMatch(t *testing.T) {
	doctorID := uuid.New()
	tpls := []AvailabilityTemplate{
		{DoctorID: doctorID, Day: Monday, Start: tod(t, "08:30"), End: tod(t, "12:30"), Active: true},
		{DoctorID: doctorID, Day: Wednesday, Period: PeriodMorning, Start: tod(t, "09:00"), End: tod(t, "12:00"), Active: true},
		{DoctorID: doctorID, Day: Wednesday, Period: PeriodAfternoon, Start: tod(t, "14:00"), End: tod(t, "17:00"), Active: true},
		{DoctorID: doctorID, Day: Friday, Start: tod(t, "08:00"), End: tod(t, "12:00"), Active: false},
	}

	week := monday.AddDate(0, 0, 7)
	days, err := ExpandTemplates(tpls, monday, week)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(days) != 7 {
		t.Fatalf("expected an entry per day, got %d", len(days))
	}

	byKey := make(map[string]DayOpenings)
	for _, d := range days {
		byKey[DateKey(d.Date)] = d
	}

	mon := byKey[DateKey(monday)]
	if len(mon.Open) != 1 {
		t.Fatalf("monday openings = %d, want 1", len(mon.Open))
	}
	if !mon.Open[0].Start.Equal(mondayAt(8, 30)) || !mon.Open[0].End.Equal(mondayAt(12, 30)) {
		t.Errorf("monday interval = %v, want 08:30-12:30", mon.Open[0])
	}

	wed := byKey[DateKey(monday.AddDate(0, 0, 2))]
	if len(wed.Open) != 2 {
		t.Fatalf("wednesday openings = %d, want 2 (morning + afternoon)", len(wed.Open))
	}
	if !wed.Open[0].Start.Before(wed.Open[1].Start) {
		t.Errorf("intervals not sorted by start: %v", wed.Open)
	}

	// Inactive friday template contributes nothing.
	fri := byKey[DateKey(monday.AddDate(0, 0, 4))]
	if len(fri.Open) != 0 {
		t.Errorf("friday openings = %d, want 0 for inactive template", len(fri.Open))
	}

	// Days with no template at all are present but empty.
	tue := byKey[DateKey(monday.AddDate(0, 0, 1))]
	if len(tue.Open) != 0 {
		t.Errorf("tuesday openings = %d, want 0", len(tue.Open))
	}
}

func TestExpandTemplates_OverlappingTemplatesKeptSeparate(t *testing.T) {
	doctorID := uuid.New()
	tpls := []AvailabilityTemplate{
		{DoctorID: doctorID, Day: Monday, Start: tod(t, "08:00"), End: tod(t, "12:00"), Active: true},
		{DoctorID: doctorID, Day: Monday, Start: tod(t, "10:00"), End: tod(t, "14:00"), Active: true},
	}

	days, err := ExpandTemplates(tpls, monday, monday.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(days[0].Open) != 2 {
		t.Fatalf("overlapping templates must expand independently, got %d intervals", len(days[0].Open))
	}
}

func TestExpandTemplates_InvalidInterval(t *testing.T) {
	tpls := []AvailabilityTemplate{
		{DoctorID: uuid.New(), Day: Monday, Start: tod(t, "12:00"), End: tod(t, "09:00"), Active: true},
	}
	if _, err := ExpandTemplates(tpls, monday, monday.AddDate(0, 0, 1)); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}

	// An inactive template with a bad interval is never even validated.
	tpls[0].Active = false
	if _, err := ExpandTemplates(tpls, monday, monday.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("inactive template should be ignored, got %v", err)
	}
}

func TestExpandTemplates_EmptyRange(t *testing.T) {
	days, err := ExpandTemplates(nil, monday, monday)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(days) != 0 {
		t.Fatalf("empty range should expand to nothing, got %d days", len(days))
	}
}

func TestParseTimeOfDay(t *testing.T) {
	v, err := ParseTimeOfDay("08:30")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v != TimeOfDay(8*60+30) {
		t.Errorf("08:30 = %d minutes, want 510", int(v))
	}
	if v.String() != "08:30" {
		t.Errorf("String() = %q, want 08:30", v.String())
	}
	if _, err := ParseTimeOfDay("25:99"); err == nil {
		t.Error("expected error for 25:99")
	}

	at := v.On(monday)
	if !at.Equal(mondayAt(8, 30)) {
		t.Errorf("On(monday) = %s, want %s", at, mondayAt(8, 30))
	}
}

func TestWeekdayEncoding(t *testing.T) {
	d, err := ParseWeekday("sunday")
	if err != nil {
		t.Fatalf("parse sunday: %v", err)
	}
	if d != Sunday || int(d) != 0 {
		t.Errorf("sunday = %d, want 0", int(d))
	}
	if Monday.DisplayOrder() != 0 {
		t.Errorf("monday display order = %d, want 0 (weeks display Monday-first)", Monday.DisplayOrder())
	}
	if Sunday.DisplayOrder() != 6 {
		t.Errorf("sunday display order = %d, want 6", Sunday.DisplayOrder())
	}
	if _, err := ParseWeekday("funday"); err == nil {
		t.Error("expected error for unknown weekday")
	}
	for d := Sunday; d <= Saturday; d++ {
		back, err := ParseWeekday(d.String())
		if err != nil || back != d {
			t.Errorf("round trip %s failed: %v %v", d, back, err)
		}
	}
	// The internal encoding must line up with time.Weekday.
	if Weekday(monday.Weekday()) != Monday {
		t.Errorf("time.Weekday mapping broken: %v", monday.Weekday())
	}
}

func TestDateKey(t *testing.T) {
	if got := DateKey(time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC)); got != "2026-03-02" {
		t.Errorf("DateKey = %q, want 2026-03-02", got)
	}
}
