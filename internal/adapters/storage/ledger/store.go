package ledger

import (
	"context"

	domain "classtrack/internal/domain/attendance"
)

// Store persists the attendance ledger.
type Store interface {
	Load(ctx context.Context) (domain.Ledger, error)
	Save(ctx context.Context, l domain.Ledger) error
	GetDay(ctx context.Context, date string) (domain.DailyAttendance, error)
	SaveDay(ctx context.Context, date string, day domain.DailyAttendance) error
	Reset(ctx context.Context) error
}
