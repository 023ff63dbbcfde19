package attendance

import (
	"errors"
	"slices"
	"time"
)

// DateLayout is the key format of an AttendanceLedger.
const DateLayout = "2006-01-02"

// Class hours. The day is split into a forenoon block and an afternoon block.
const (
	FirstHour   = 1
	LastHour    = 7
	HoursPerDay = LastHour - FirstHour + 1
)

// Domain errors
var (
	ErrInvalidHour    = errors.New("hour must be between 1 and 7")
	ErrInvalidDate    = errors.New("date must be formatted YYYY-MM-DD")
	ErrEmptyStudentID = errors.New("student id cannot be empty")
)

// ForenoonHours and AfternoonHours partition 1..7.
var (
	ForenoonHours  = []int{1, 2, 3, 4}
	AfternoonHours = []int{5, 6, 7}
	AllHours       = []int{1, 2, 3, 4, 5, 6, 7}
)

// DailyAttendance holds the missed hours of every absent student on one date.
// INVARIANT: a student key is present only when its hour slice is non-empty,
// ascending and duplicate-free.
type DailyAttendance struct {
	Hours     map[string][]int `json:"hours"`
	IsNoClass bool             `json:"isNoClass,omitempty"`
}

// Ledger maps a YYYY-MM-DD date to that day's attendance.
type Ledger map[string]DailyAttendance

// NewDailyAttendance returns an empty day with no recorded absences.
func NewDailyAttendance() DailyAttendance {
	return DailyAttendance{Hours: map[string][]int{}}
}

// ValidateDate checks that date is a real calendar date in YYYY-MM-DD form.
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// ValidHour reports whether h is one of the seven class hours.
func ValidHour(h int) bool {
	return h >= FirstHour && h <= LastHour
}

// IsForenoon reports whether h belongs to the forenoon block.
func IsForenoon(h int) bool {
	return h >= 1 && h <= 4
}

// IsAfternoon reports whether h belongs to the afternoon block.
func IsAfternoon(h int) bool {
	return h >= 5 && h <= 7
}

// Clone returns a deep copy of the day.
// POST: mutating the copy never affects d
func (d DailyAttendance) Clone() DailyAttendance {
	out := DailyAttendance{Hours: make(map[string][]int, len(d.Hours)), IsNoClass: d.IsNoClass}
	for id, hrs := range d.Hours {
		out.Hours[id] = slices.Clone(hrs)
	}
	return out
}

// MissedHours returns the student's missed hours (nil when none).
func (d DailyAttendance) MissedHours(studentID string) []int {
	return d.Hours[studentID]
}

// IsFullDay reports whether the student missed all seven hours.
func (d DailyAttendance) IsFullDay(studentID string) bool {
	return len(d.Hours[studentID]) == HoursPerDay
}

// AbsentCount is the number of students with at least one missed hour.
// A no-class day has no absentees.
func (d DailyAttendance) AbsentCount() int {
	if d.IsNoClass {
		return 0
	}
	return len(d.Hours)
}

// Validate checks the stored-form invariants of the day.
// PRE: none
// POST: Returns nil if every hour slice is non-empty, ascending, unique and within 1..7
func (d DailyAttendance) Validate() error {
	for id, hrs := range d.Hours {
		if id == "" {
			return ErrEmptyStudentID
		}
		if len(hrs) == 0 {
			return errors.New("empty hour set stored for student " + id)
		}
		for i, h := range hrs {
			if !ValidHour(h) {
				return ErrInvalidHour
			}
			if i > 0 && hrs[i-1] >= h {
				return errors.New("hours must be ascending and unique for student " + id)
			}
		}
	}
	return nil
}

// ToggleHour flips one hour for a student and returns the new day.
// PRE: hour is within 1..7
// POST: hour removed if present, inserted otherwise; empty sets are deleted;
// IsNoClass is cleared. d itself is not modified.
// INVARIANT: stored hour slices stay ascending and duplicate-free
func ToggleHour(d DailyAttendance, studentID string, hour int) (DailyAttendance, error) {
	if studentID == "" {
		return d, ErrEmptyStudentID
	}
	if !ValidHour(hour) {
		return d, ErrInvalidHour
	}
	out := d.Clone()
	out.IsNoClass = false

	current := out.Hours[studentID]
	var next []int
	if i, found := slices.BinarySearch(current, hour); found {
		next = slices.Delete(current, i, i+1)
	} else {
		next = slices.Insert(current, i, hour)
	}

	if len(next) == 0 {
		delete(out.Hours, studentID)
	} else {
		out.Hours[studentID] = next
	}
	return out, nil
}

// ToggleFullDay marks a student absent for the whole day, or clears them if
// they already are. It replaces partial hours rather than adding to them.
// POST: the student's set has 0 or 7 members; IsNoClass is cleared
func ToggleFullDay(d DailyAttendance, studentID string) (DailyAttendance, error) {
	if studentID == "" {
		return d, ErrEmptyStudentID
	}
	out := d.Clone()
	out.IsNoClass = false
	if len(out.Hours[studentID]) == HoursPerDay {
		delete(out.Hours, studentID)
	} else {
		out.Hours[studentID] = slices.Clone(AllHours)
	}
	return out, nil
}

// SetNoClass flags the day as a holiday (or clears the flag). Hours are kept
// so that clearing the flag restores them.
func SetNoClass(d DailyAttendance, noClass bool) DailyAttendance {
	out := d.Clone()
	out.IsNoClass = noClass
	return out
}

// Clone returns a deep copy of the ledger.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for date, day := range l {
		out[date] = day.Clone()
	}
	return out
}

// Day returns the attendance for date, or an empty day when nothing is recorded.
func (l Ledger) Day(date string) DailyAttendance {
	if d, ok := l[date]; ok {
		return d.Clone()
	}
	return NewDailyAttendance()
}

// Dates returns the ledger's dates in ascending order.
func (l Ledger) Dates() []string {
	dates := make([]string, 0, len(l))
	for date := range l {
		dates = append(dates, date)
	}
	slices.Sort(dates)
	return dates
}

// Validate checks every date key and every day of the ledger.
func (l Ledger) Validate() error {
	for date, day := range l {
		if err := ValidateDate(date); err != nil {
			return err
		}
		if err := day.Validate(); err != nil {
			return err
		}
	}
	return nil
}
