package projections

import (
	"context"

	domainAttendance "classtrack/internal/domain/attendance"
	domainStudent "classtrack/internal/domain/student"
)

// GetStudentHistoryQuery carries query parameters.
type GetStudentHistoryQuery struct {
	StudentID string
}

// StudentSummary is one student's absence record across the ledger.
type StudentSummary struct {
	Student          domainStudent.Student      `json:"student"`
	Entries          []domainAttendance.Absence `json:"entries"`
	TotalHoursMissed int                        `json:"totalHoursMissed"`
	TotalAbsentDays  int                        `json:"totalAbsentDays"`
}

// GetStudentHistoryDeps holds dependencies for GetStudentHistory.
type GetStudentHistoryDeps struct {
	RosterStore RosterStore
	LedgerStore LedgerStore
}

// QueryGetStudentHistory lists every date on which the student missed at
// least one hour, newest first, with totals.
// PRE: query.StudentID is non-empty
// POST: Returns domainStudent.ErrNotFound when the id is not on the roster
func QueryGetStudentHistory(ctx context.Context, query GetStudentHistoryQuery, deps GetStudentHistoryDeps) (StudentSummary, error) {
	roster, err := deps.RosterStore.List(ctx)
	if err != nil {
		return StudentSummary{}, err
	}
	st, err := roster.Find(query.StudentID)
	if err != nil {
		return StudentSummary{}, err
	}
	ledger, err := deps.LedgerStore.Load(ctx)
	if err != nil {
		return StudentSummary{}, err
	}

	entries := domainAttendance.History(ledger, st.ID)
	if entries == nil {
		entries = []domainAttendance.Absence{}
	}
	return StudentSummary{
		Student:          st,
		Entries:          entries,
		TotalHoursMissed: domainAttendance.TotalHours(entries),
		TotalAbsentDays:  len(entries),
	}, nil
}
