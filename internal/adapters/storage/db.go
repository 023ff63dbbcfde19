package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrCorruptStore is returned when persisted rows cannot be decoded.
// The recovery path is resetting the ledger.
var ErrCorruptStore = errors.New("corrupt local store")

// schema is applied on every open; all statements are idempotent.
const schema = `
	CREATE TABLE IF NOT EXISTS student (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		reg_number TEXT NOT NULL,
		position INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attendance_day (
		date TEXT PRIMARY KEY,
		is_no_class INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS absence (
		date TEXT NOT NULL,
		student_id TEXT NOT NULL,
		hours TEXT NOT NULL,
		PRIMARY KEY (date, student_id),
		FOREIGN KEY (date) REFERENCES attendance_day(date) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_absence_student ON absence(student_id);

	CREATE TABLE IF NOT EXISTS setting (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
`

// Open opens (creating if needed) the SQLite database at path and applies the schema.
// PRE: path is a writable file path or ":memory:"
// POST: Returns a ready connection with WAL mode, foreign keys and busy timeout set
func Open(path string) (*sql.DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	if path == ":memory:" {
		dsn = ":memory:?_pragma=foreign_keys(ON)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	if err := InitDB(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitDB initializes the database schema.
// PRE: db is a valid database connection
// POST: All tables exist
func InitDB(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
