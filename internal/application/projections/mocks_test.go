package projections

import (
	"context"
	"errors"

	domainAttendance "classtrack/internal/domain/attendance"
	domainStudent "classtrack/internal/domain/student"
)

var errStoreDown = errors.New("store down")

type mockRosterStore struct {
	roster domainStudent.Roster
	err    error
}

// List returns the seeded roster.
// PRE: none
// POST: Returns the seeded roster or the seeded error
func (m *mockRosterStore) List(_ context.Context) (domainStudent.Roster, error) {
	return m.roster, m.err
}

type mockLedgerStore struct {
	ledger domainAttendance.Ledger
	err    error
}

// Load returns the seeded ledger.
// PRE: none
// POST: Returns a copy of the seeded ledger or the seeded error
func (m *mockLedgerStore) Load(_ context.Context) (domainAttendance.Ledger, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.ledger.Clone(), nil
}

// GetDay returns one seeded day.
// PRE: date is YYYY-MM-DD
// POST: Returns an empty day when the date is not seeded
func (m *mockLedgerStore) GetDay(_ context.Context, date string) (domainAttendance.DailyAttendance, error) {
	if m.err != nil {
		return domainAttendance.DailyAttendance{}, m.err
	}
	return m.ledger.Day(date), nil
}

type mockSettingStore struct {
	values map[string]string
}

// Get returns a seeded setting.
// PRE: key is non-empty
// POST: Returns "" when unset
func (m *mockSettingStore) Get(_ context.Context, key string) (string, error) {
	return m.values[key], nil
}

var testRoster = domainStudent.Roster{
	{ID: "s1", Name: "Anu", RegNumber: "4201001"},
	{ID: "s2", Name: "Bala", RegNumber: "4201002"},
	{ID: "s3", Name: "Chitra", RegNumber: "4201003"},
}

func testLedger() domainAttendance.Ledger {
	return domainAttendance.Ledger{
		"2024-01-15": {Hours: map[string][]int{"s1": {1, 2}, "s3": {1, 2, 3, 4, 5, 6, 7}}},
		"2024-01-16": {Hours: map[string][]int{"s1": {5}}},
		"2024-01-17": {Hours: map[string][]int{"s1": {3}}, IsNoClass: true},
	}
}
