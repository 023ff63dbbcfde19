package setting

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"classtrack/internal/adapters/storage"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new setting SQLiteStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get returns the value stored under key.
// POST: Returns "" and nil when the key is unset
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM setting WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// Set stores value under key, replacing any previous value.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO setting (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	return err
}

// Delete removes key. Deleting an unset key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM setting WHERE key = ?", key)
	return err
}

// SyncCode returns the configured access code, or "" when sync is not set up.
func SyncCode(ctx context.Context, s Store) (string, error) {
	return s.Get(ctx, KeySyncCode)
}

// SetSyncCode stores code; an empty code clears the setting.
func SetSyncCode(ctx context.Context, s Store, code string) error {
	if code == "" {
		return s.Delete(ctx, KeySyncCode)
	}
	return s.Set(ctx, KeySyncCode, code)
}

// LastSync returns the time of the last successful sync, or the zero time.
// An unparsable stored value is treated as never synced.
func LastSync(ctx context.Context, s Store) (time.Time, error) {
	v, err := s.Get(ctx, KeyLastSync)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, nil
	}
	return t, nil
}

// TouchLastSync records now as the last successful sync and returns the
// stored RFC 3339 string.
func TouchLastSync(ctx context.Context, s Store, now time.Time) (string, error) {
	v := now.UTC().Format(time.RFC3339)
	return v, s.Set(ctx, KeyLastSync, v)
}
