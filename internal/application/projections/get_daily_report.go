package projections

import (
	"context"

	domainAttendance "classtrack/internal/domain/attendance"
	"classtrack/internal/domain/report"
	domainStudent "classtrack/internal/domain/student"
)

// GetDailyReportQuery carries query parameters.
type GetDailyReportQuery struct {
	Date string
}

// GetDailyReportResult carries the day as stored and its report.
type GetDailyReportResult struct {
	Day    domainAttendance.DailyAttendance
	Report report.Report
	Roster domainStudent.Roster
}

// GetDailyReportDeps holds dependencies for GetDailyReport.
type GetDailyReportDeps struct {
	RosterStore RosterStore
	LedgerStore LedgerStore
}

// QueryGetDailyReport builds the absence report of one date from the stored
// roster and ledger.
// PRE: query.Date is YYYY-MM-DD
// POST: A date with no record yields an "All present" report
func QueryGetDailyReport(ctx context.Context, query GetDailyReportQuery, deps GetDailyReportDeps) (GetDailyReportResult, error) {
	if err := domainAttendance.ValidateDate(query.Date); err != nil {
		return GetDailyReportResult{}, err
	}
	roster, err := deps.RosterStore.List(ctx)
	if err != nil {
		return GetDailyReportResult{}, err
	}
	day, err := deps.LedgerStore.GetDay(ctx, query.Date)
	if err != nil {
		return GetDailyReportResult{}, err
	}
	return GetDailyReportResult{
		Day:    day,
		Report: report.Build(query.Date, roster, day),
		Roster: roster,
	}, nil
}
