package attendance

import (
	"slices"
	"strings"
)

// Absence is one date on which a student missed at least one hour.
type Absence struct {
	Date  string `json:"date"`
	Hours []int  `json:"hours"`
}

// History lists the dates on which the student missed hours, newest first.
// PRE: none
// POST: every returned entry has a non-empty Hours slice; the ledger is not modified
func History(l Ledger, studentID string) []Absence {
	var out []Absence
	for date, day := range l {
		hrs := day.Hours[studentID]
		if len(hrs) == 0 {
			continue
		}
		out = append(out, Absence{Date: date, Hours: slices.Clone(hrs)})
	}
	// YYYY-MM-DD sorts lexically in calendar order.
	slices.SortFunc(out, func(a, b Absence) int {
		return strings.Compare(b.Date, a.Date)
	})
	return out
}

// TotalHours sums the missed hours over a history.
func TotalHours(h []Absence) int {
	total := 0
	for _, a := range h {
		total += len(a.Hours)
	}
	return total
}
