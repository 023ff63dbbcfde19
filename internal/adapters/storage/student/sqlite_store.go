package student

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"classtrack/internal/adapters/storage"
	domain "classtrack/internal/domain/student"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new student SQLiteStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// List returns the roster in its stored order.
// POST: Returns an empty roster (not an error) when no students exist
func (s *SQLiteStore) List(ctx context.Context) (domain.Roster, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, reg_number FROM student ORDER BY position, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roster := domain.Roster{}
	for rows.Next() {
		var st domain.Student
		if err := rows.Scan(&st.ID, &st.Name, &st.RegNumber); err != nil {
			return nil, err
		}
		roster = append(roster, st)
	}
	return roster, rows.Err()
}

// GetByID retrieves a student by id.
// PRE: id is non-empty
// POST: Returns domain.ErrNotFound (wrapped) when no row matches
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Student, error) {
	var st domain.Student
	err := s.db.QueryRowContext(ctx, "SELECT id, name, reg_number FROM student WHERE id = ?", id).
		Scan(&st.ID, &st.Name, &st.RegNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Student{}, fmt.Errorf("student %s: %w", id, domain.ErrNotFound)
	}
	return st, err
}

// Save inserts or updates a student. New students are appended to the end
// of the roster; existing students keep their position.
// PRE: st has been validated
func (s *SQLiteStore) Save(ctx context.Context, st domain.Student) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO student (id, name, reg_number, position)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM student))
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, reg_number = excluded.reg_number`,
		st.ID, st.Name, st.RegNumber)
	return err
}

// ReplaceAll swaps the whole roster in one transaction.
// PRE: roster has been validated
// POST: The stored roster equals roster, in the same order
func (s *SQLiteStore) ReplaceAll(ctx context.Context, roster domain.Roster) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM student"); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO student (id, name, reg_number, position) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, st := range roster {
		if _, err := stmt.ExecContext(ctx, st.ID, st.Name, st.RegNumber, i); err != nil {
			return fmt.Errorf("insert student %s: %w", st.ID, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of students on the roster.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM student").Scan(&n)
	return n, err
}
