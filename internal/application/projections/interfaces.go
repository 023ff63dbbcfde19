package projections

import (
	"context"

	domainAttendance "classtrack/internal/domain/attendance"
	domainStudent "classtrack/internal/domain/student"
)

// RosterStore interface for roster queries.
type RosterStore interface {
	List(ctx context.Context) (domainStudent.Roster, error)
}

// LedgerStore interface for attendance queries.
type LedgerStore interface {
	Load(ctx context.Context) (domainAttendance.Ledger, error)
	GetDay(ctx context.Context, date string) (domainAttendance.DailyAttendance, error)
}

// SettingStore interface for setting lookups.
type SettingStore interface {
	Get(ctx context.Context, key string) (string, error)
}
