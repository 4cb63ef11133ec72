package schedule

import "fmt"

// Weekday uses the storage convention 0=Sunday..6=Saturday. Display
// surfaces order weeks Monday-first; use DisplayOrder for that and never
// re-map the raw value.
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var weekdayNames = [7]string{
	"sunday",
	"monday",
	"tuesday",
	"wednesday",
	"thursday",
	"friday",
	"saturday",
}

func (d Weekday) String() string {
	if d < Sunday || d > Saturday {
		return fmt.Sprintf("weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// DisplayOrder returns the Monday-first position of the weekday
// (monday=0 .. sunday=6) for presentation layers.
func (d Weekday) DisplayOrder() int {
	return (int(d) + 6) % 7
}

func ParseWeekday(s string) (Weekday, error) {
	for i, name := range weekdayNames {
		if s == name {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
