package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	ledgerStore "classtrack/internal/adapters/storage/ledger"
	domain "classtrack/internal/domain/attendance"
	domainStudent "classtrack/internal/domain/student"
)

// RosterLookup resolves students for attendance edits.
type RosterLookup interface {
	GetByID(ctx context.Context, id string) (domainStudent.Student, error)
}

// MarkAttendanceDeps holds dependencies for the attendance edit orchestrators.
type MarkAttendanceDeps struct {
	LedgerStore  ledgerStore.Store
	RosterLookup RosterLookup
}

// ToggleHourInput identifies one student-hour on one date.
type ToggleHourInput struct {
	Date      string
	StudentID string
	Hour      int
}

// ExecuteToggleHour flips one hour for a student on the stored day.
// PRE: Date is YYYY-MM-DD; StudentID is on the roster; Hour is within 1..7
// POST: The updated day is stored (no sync) and returned; IsNoClass is cleared
func ExecuteToggleHour(ctx context.Context, input ToggleHourInput, deps MarkAttendanceDeps) (domain.DailyAttendance, error) {
	return editDay(ctx, input.Date, input.StudentID, deps, func(d domain.DailyAttendance) (domain.DailyAttendance, error) {
		return domain.ToggleHour(d, input.StudentID, input.Hour)
	})
}

// ToggleFullDayInput identifies one student on one date.
type ToggleFullDayInput struct {
	Date      string
	StudentID string
}

// ExecuteToggleFullDay marks or clears a whole-day absence on the stored day.
// PRE: Date is YYYY-MM-DD; StudentID is on the roster
// POST: The student's set has 0 or 7 hours; IsNoClass is cleared
func ExecuteToggleFullDay(ctx context.Context, input ToggleFullDayInput, deps MarkAttendanceDeps) (domain.DailyAttendance, error) {
	return editDay(ctx, input.Date, input.StudentID, deps, func(d domain.DailyAttendance) (domain.DailyAttendance, error) {
		return domain.ToggleFullDay(d, input.StudentID)
	})
}

// SetNoClassInput flags or unflags a date as a holiday.
type SetNoClassInput struct {
	Date    string
	NoClass bool
}

// ExecuteSetNoClass sets the no-class flag on the stored day. Recorded hours
// are kept so that clearing the flag restores them.
func ExecuteSetNoClass(ctx context.Context, input SetNoClassInput, deps MarkAttendanceDeps) (domain.DailyAttendance, error) {
	return editDay(ctx, input.Date, "", deps, func(d domain.DailyAttendance) (domain.DailyAttendance, error) {
		return domain.SetNoClass(d, input.NoClass), nil
	})
}

func editDay(ctx context.Context, date, studentID string, deps MarkAttendanceDeps, apply func(domain.DailyAttendance) (domain.DailyAttendance, error)) (domain.DailyAttendance, error) {
	if err := domain.ValidateDate(date); err != nil {
		return domain.DailyAttendance{}, err
	}
	if studentID != "" {
		if _, err := deps.RosterLookup.GetByID(ctx, studentID); err != nil {
			return domain.DailyAttendance{}, err
		}
	}

	syncMu.Lock()
	defer syncMu.Unlock()

	day, err := deps.LedgerStore.GetDay(ctx, date)
	if err != nil {
		return domain.DailyAttendance{}, err
	}
	next, err := apply(day)
	if err != nil {
		return domain.DailyAttendance{}, err
	}
	if err := deps.LedgerStore.SaveDay(ctx, date, next); err != nil {
		return domain.DailyAttendance{}, fmt.Errorf("save day: %w", err)
	}
	slog.Debug("attendance_edited", "date", date, "student_id", studentID, "absent", next.AbsentCount(), "no_class", next.IsNoClass)
	return next, nil
}
