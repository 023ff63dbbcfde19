package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"classtrack/internal/domain/attendance"
	"classtrack/internal/domain/student"
)

// EmptySections controls how a section without absentees is rendered.
type EmptySections string

const (
	// EmptySectionsNil prints the section header followed by "Nil".
	EmptySectionsNil EmptySections = "nil"
	// EmptySectionsOmit drops the section entirely.
	EmptySectionsOmit EmptySections = "omit"
)

// Fixed report wording.
const (
	HeadingForenoon  = "Forenoon"
	HeadingAfternoon = "Afternoon"
	HeadingFullDay   = "Full day"
	BodyNoClass      = "No Class / Holiday"
	BodyAllPresent   = "All present"
	EmptySectionText = "Nil"
)

// ErrUnknownPolicy is returned by ParseEmptySections for unrecognised values.
var ErrUnknownPolicy = errors.New("empty-section policy must be 'nil' or 'omit'")

// ParseEmptySections converts a config value into a policy.
func ParseEmptySections(v string) (EmptySections, error) {
	switch EmptySections(strings.ToLower(strings.TrimSpace(v))) {
	case "", EmptySectionsNil:
		return EmptySectionsNil, nil
	case EmptySectionsOmit:
		return EmptySectionsOmit, nil
	}
	return "", ErrUnknownPolicy
}

// Entry is a partially absent student together with the hours missed in one section.
type Entry struct {
	Student     student.Student `json:"student"`
	MissedHours []int           `json:"missedHours"`
}

// Report is the categorized absence summary of one date.
type Report struct {
	Date             string            `json:"date"`
	ForenoonAbsent   []Entry           `json:"forenoonAbsent"`
	AfternoonAbsent  []Entry           `json:"afternoonAbsent"`
	FullDayAbsent    []student.Student `json:"fullDayAbsent"`
	TotalAbsentCount int               `json:"totalAbsentCount"`
	IsNoClass        bool              `json:"isNoClass"`
}

// Build categorizes one day's absentees.
// PRE: day satisfies the DailyAttendance invariants
// POST: sections list students in roster order; full-day absentees appear only
// in FullDayAbsent; TotalAbsentCount is the number of absent students, not hours
func Build(date string, roster student.Roster, day attendance.DailyAttendance) Report {
	r := Report{
		Date:            date,
		ForenoonAbsent:  []Entry{},
		AfternoonAbsent: []Entry{},
		FullDayAbsent:   []student.Student{},
		IsNoClass:       day.IsNoClass,
	}
	if day.IsNoClass {
		return r
	}
	r.TotalAbsentCount = len(day.Hours)

	for _, s := range roster {
		hrs := day.Hours[s.ID]
		if len(hrs) == 0 {
			continue
		}
		if len(hrs) == attendance.HoursPerDay {
			r.FullDayAbsent = append(r.FullDayAbsent, s)
			continue
		}
		if fn := filterHours(hrs, attendance.IsForenoon); len(fn) > 0 {
			r.ForenoonAbsent = append(r.ForenoonAbsent, Entry{Student: s, MissedHours: fn})
		}
		if an := filterHours(hrs, attendance.IsAfternoon); len(an) > 0 {
			r.AfternoonAbsent = append(r.AfternoonAbsent, Entry{Student: s, MissedHours: an})
		}
	}
	return r
}

func filterHours(hrs []int, keep func(int) bool) []int {
	var out []int
	for _, h := range hrs {
		if keep(h) {
			out = append(out, h)
		}
	}
	return out
}

// DisplayDate formats a YYYY-MM-DD date as DD.MM.YYYY. Unparseable input is
// returned unchanged.
func DisplayDate(date string) string {
	t, err := time.Parse(attendance.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("02.01.2006")
}

// Text renders the report as the plain text teachers paste into a chat group.
func (r Report) Text(policy EmptySections) string {
	var b strings.Builder
	b.WriteString("Date: " + DisplayDate(r.Date) + "\n")

	switch {
	case r.IsNoClass:
		b.WriteString(BodyNoClass)
		return b.String()
	case r.TotalAbsentCount == 0:
		b.WriteString(BodyAllPresent)
		return b.String()
	}

	for _, sec := range r.sections(plainName) {
		if len(sec.lines) == 0 && policy == EmptySectionsOmit {
			continue
		}
		b.WriteString("\n" + sec.heading + "\n")
		if len(sec.lines) == 0 {
			b.WriteString(EmptySectionText + "\n")
		}
		for _, l := range sec.lines {
			b.WriteString(l + "\n")
		}
	}
	b.WriteString("\nTotal Absent: " + strconv.Itoa(r.TotalAbsentCount))
	return b.String()
}

// Markdown renders the same content as a markdown document for e-mail.
func (r Report) Markdown(policy EmptySections) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Date: %s\n\n", DisplayDate(r.Date))

	switch {
	case r.IsNoClass:
		b.WriteString("**" + BodyNoClass + "**\n")
		return b.String()
	case r.TotalAbsentCount == 0:
		b.WriteString("**" + BodyAllPresent + "**\n")
		return b.String()
	}

	for _, sec := range r.sections(escapeMarkdown) {
		if len(sec.lines) == 0 && policy == EmptySectionsOmit {
			continue
		}
		b.WriteString("### " + sec.heading + "\n\n")
		if len(sec.lines) == 0 {
			b.WriteString(EmptySectionText + "\n\n")
			continue
		}
		for _, l := range sec.lines {
			// "1)" at line start would otherwise parse as an ordered list marker.
			b.WriteString(strings.Replace(l, ")", `\)`, 1) + "  \n")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "**Total Absent: %d**\n", r.TotalAbsentCount)
	return b.String()
}

type section struct {
	heading string
	lines   []string
}

func (r Report) sections(name func(string) string) []section {
	return []section{
		{HeadingForenoon, entryLines(r.ForenoonAbsent, name)},
		{HeadingAfternoon, entryLines(r.AfternoonAbsent, name)},
		{HeadingFullDay, studentLines(r.FullDayAbsent, name)},
	}
}

func entryLines(entries []Entry, name func(string) string) []string {
	lines := make([]string, 0, len(entries))
	for i, e := range entries {
		lines = append(lines, fmt.Sprintf("%d)%s %s (%s %s)",
			i+1, e.Student.ShortReg(), name(e.Student.Name), joinHours(e.MissedHours), hourUnit(len(e.MissedHours))))
	}
	return lines
}

func studentLines(students []student.Student, name func(string) string) []string {
	lines := make([]string, 0, len(students))
	for i, s := range students {
		lines = append(lines, fmt.Sprintf("%d)%s %s", i+1, s.ShortReg(), name(s.Name)))
	}
	return lines
}

func plainName(s string) string { return s }

// markdownPunct is the ASCII punctuation CommonMark allows to be backslash-escaped.
const markdownPunct = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// escapeMarkdown makes a student name render literally.
func escapeMarkdown(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c < 0x80 && strings.ContainsRune(markdownPunct, c) {
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

func joinHours(hrs []int) string {
	parts := make([]string, len(hrs))
	for i, h := range hrs {
		parts[i] = strconv.Itoa(h)
	}
	return strings.Join(parts, ",")
}

func hourUnit(n int) string {
	if n == 1 {
		return "hr"
	}
	return "hrs"
}
