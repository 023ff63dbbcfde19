package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"classtrack/internal/adapters/storage"
	domain "classtrack/internal/domain/attendance"
)

// SQLiteStore implements Store using SQLite. A day is one attendance_day row
// plus one absence row per absent student; hours are stored as a JSON array.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new ledger SQLiteStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Load reads the whole ledger.
// POST: Returns an empty ledger when nothing is stored; undecodable rows
// yield storage.ErrCorruptStore naming the offending date
func (s *SQLiteStore) Load(ctx context.Context) (domain.Ledger, error) {
	ledger := domain.Ledger{}

	rows, err := s.db.QueryContext(ctx, "SELECT date, is_no_class FROM attendance_day")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var date string
		var noClass bool
		if err := rows.Scan(&date, &noClass); err != nil {
			rows.Close()
			return nil, err
		}
		if err := domain.ValidateDate(date); err != nil {
			rows.Close()
			return nil, fmt.Errorf("date %q: %w", date, storage.ErrCorruptStore)
		}
		day := domain.NewDailyAttendance()
		day.IsNoClass = noClass
		ledger[date] = day
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT date, student_id, hours FROM absence")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var date, studentID, raw string
		if err := rows.Scan(&date, &studentID, &raw); err != nil {
			return nil, err
		}
		hours, err := decodeHours(date, studentID, raw)
		if err != nil {
			return nil, err
		}
		day, ok := ledger[date]
		if !ok {
			return nil, fmt.Errorf("absence for unknown date %q: %w", date, storage.ErrCorruptStore)
		}
		day.Hours[studentID] = hours
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for date, day := range ledger {
		if err := day.Validate(); err != nil {
			return nil, fmt.Errorf("date %s: %v: %w", date, err, storage.ErrCorruptStore)
		}
	}
	return ledger, nil
}

// Save replaces the stored ledger with l in one transaction.
// PRE: l has been validated
// POST: Load returns a ledger equal to l
func (s *SQLiteStore) Save(ctx context.Context, l domain.Ledger) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM absence"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM attendance_day"); err != nil {
		return err
	}
	for _, date := range l.Dates() {
		if err := writeDay(ctx, tx, date, l[date]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetDay returns one day's attendance.
// POST: Returns an empty day when nothing is recorded for date
func (s *SQLiteStore) GetDay(ctx context.Context, date string) (domain.DailyAttendance, error) {
	day := domain.NewDailyAttendance()
	err := s.db.QueryRowContext(ctx, "SELECT is_no_class FROM attendance_day WHERE date = ?", date).Scan(&day.IsNoClass)
	if errors.Is(err, sql.ErrNoRows) {
		return day, nil
	}
	if err != nil {
		return domain.DailyAttendance{}, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT student_id, hours FROM absence WHERE date = ?", date)
	if err != nil {
		return domain.DailyAttendance{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var studentID, raw string
		if err := rows.Scan(&studentID, &raw); err != nil {
			return domain.DailyAttendance{}, err
		}
		hours, err := decodeHours(date, studentID, raw)
		if err != nil {
			return domain.DailyAttendance{}, err
		}
		day.Hours[studentID] = hours
	}
	if err := rows.Err(); err != nil {
		return domain.DailyAttendance{}, err
	}
	if err := day.Validate(); err != nil {
		return domain.DailyAttendance{}, fmt.Errorf("date %s: %v: %w", date, err, storage.ErrCorruptStore)
	}
	return day, nil
}

// SaveDay overwrites one day without touching any other date.
// PRE: date is YYYY-MM-DD; day has been validated
func (s *SQLiteStore) SaveDay(ctx context.Context, date string, day domain.DailyAttendance) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM absence WHERE date = ?", date); err != nil {
		return err
	}
	if err := writeDay(ctx, tx, date, day); err != nil {
		return err
	}
	return tx.Commit()
}

// Reset deletes every stored day.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM absence"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM attendance_day"); err != nil {
		return err
	}
	return tx.Commit()
}

func writeDay(ctx context.Context, ex execer, date string, day domain.DailyAttendance) error {
	_, err := ex.ExecContext(ctx,
		"INSERT INTO attendance_day (date, is_no_class) VALUES (?, ?) ON CONFLICT(date) DO UPDATE SET is_no_class = excluded.is_no_class",
		date, day.IsNoClass)
	if err != nil {
		return fmt.Errorf("write day %s: %w", date, err)
	}
	for studentID, hours := range day.Hours {
		raw, err := json.Marshal(hours)
		if err != nil {
			return err
		}
		if _, err := ex.ExecContext(ctx,
			"INSERT INTO absence (date, student_id, hours) VALUES (?, ?, ?)",
			date, studentID, string(raw)); err != nil {
			return fmt.Errorf("write absence %s/%s: %w", date, studentID, err)
		}
	}
	return nil
}

func decodeHours(date, studentID, raw string) ([]int, error) {
	var hours []int
	if err := json.Unmarshal([]byte(raw), &hours); err != nil {
		return nil, fmt.Errorf("hours for %s/%s: %w", date, studentID, storage.ErrCorruptStore)
	}
	return hours, nil
}
