package orchestrators

import (
	"context"
	"fmt"
	"sync"

	"classtrack/internal/adapters/cloud"
	domain "classtrack/internal/domain/attendance"
	domainStudent "classtrack/internal/domain/student"
)

// memLedgerStore is an in-memory ledgerStore.Store.
type memLedgerStore struct {
	ledger  domain.Ledger
	saves   int
	loadErr error
}

func newMemLedgerStore(l domain.Ledger) *memLedgerStore {
	if l == nil {
		l = domain.Ledger{}
	}
	return &memLedgerStore{ledger: l.Clone()}
}

// Load returns a copy of the stored ledger.
// PRE: none
// POST: Returns loadErr when seeded
func (m *memLedgerStore) Load(_ context.Context) (domain.Ledger, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.ledger.Clone(), nil
}

// Save replaces the stored ledger.
// PRE: l is valid
// POST: Stored ledger equals l
func (m *memLedgerStore) Save(_ context.Context, l domain.Ledger) error {
	m.saves++
	m.ledger = l.Clone()
	return nil
}

// GetDay returns one day or an empty day.
// PRE: date is YYYY-MM-DD
// POST: Returns a copy
func (m *memLedgerStore) GetDay(_ context.Context, date string) (domain.DailyAttendance, error) {
	if m.loadErr != nil {
		return domain.DailyAttendance{}, m.loadErr
	}
	return m.ledger.Day(date), nil
}

// SaveDay stores one day.
// PRE: day is valid
// POST: Only date is changed
func (m *memLedgerStore) SaveDay(_ context.Context, date string, day domain.DailyAttendance) error {
	m.ledger[date] = day.Clone()
	return nil
}

// Reset clears the ledger.
// PRE: none
// POST: Ledger is empty
func (m *memLedgerStore) Reset(_ context.Context) error {
	m.ledger = domain.Ledger{}
	return nil
}

// memSettingStore is an in-memory settingStore.Store.
type memSettingStore struct {
	values map[string]string
}

func newMemSettingStore() *memSettingStore {
	return &memSettingStore{values: map[string]string{}}
}

// Get returns a value or "".
// PRE: key is non-empty
// POST: Never errors
func (m *memSettingStore) Get(_ context.Context, key string) (string, error) {
	return m.values[key], nil
}

// Set stores a value.
// PRE: key is non-empty
// POST: Get(key) returns value
func (m *memSettingStore) Set(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

// Delete removes a value.
// PRE: key is non-empty
// POST: Get(key) returns ""
func (m *memSettingStore) Delete(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

// fakeRemote is an in-memory cloud.Remote keyed by code.
type fakeRemote struct {
	mu       sync.Mutex
	data     map[string]domain.Ledger
	fetchErr error
	putErr   error
	fetches  int
	puts     int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{data: map[string]domain.Ledger{}}
}

// Fetch returns the ledger under code.
// PRE: code is non-empty
// POST: Unknown codes fail like a 404
func (f *fakeRemote) Fetch(_ context.Context, code string) (domain.Ledger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	l, ok := f.data[code]
	if !ok {
		return nil, fmt.Errorf("%w: GET returned 404", cloud.ErrRemote)
	}
	return l.Clone(), nil
}

// Put stores the ledger under code.
// PRE: code is non-empty
// POST: Fetch(code) returns l
func (f *fakeRemote) Put(_ context.Context, code string, l domain.Ledger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	f.data[code] = l.Clone()
	return nil
}

var errRemoteDown = fmt.Errorf("%w: connection refused", cloud.ErrRemote)

// memRosterStore is an in-memory roster store.
type memRosterStore struct {
	roster domainStudent.Roster
}

// List returns the roster.
// PRE: none
// POST: Returns a copy in roster order
func (m *memRosterStore) List(_ context.Context) (domainStudent.Roster, error) {
	return append(domainStudent.Roster{}, m.roster...), nil
}

// GetByID finds a student.
// PRE: id is non-empty
// POST: Returns ErrNotFound when absent
func (m *memRosterStore) GetByID(_ context.Context, id string) (domainStudent.Student, error) {
	return m.roster.Find(id)
}

// Save upserts a student, appending new ones.
// PRE: s is valid
// POST: s is on the roster
func (m *memRosterStore) Save(_ context.Context, s domainStudent.Student) error {
	for i := range m.roster {
		if m.roster[i].ID == s.ID {
			m.roster[i] = s
			return nil
		}
	}
	m.roster = append(m.roster, s)
	return nil
}

// ReplaceAll swaps the roster.
// PRE: roster is valid
// POST: Stored roster equals roster
func (m *memRosterStore) ReplaceAll(_ context.Context, roster domainStudent.Roster) error {
	if err := roster.Validate(); err != nil {
		return err
	}
	m.roster = append(domainStudent.Roster{}, roster...)
	return nil
}

var testRoster = domainStudent.Roster{
	{ID: "s1", Name: "Anu", RegNumber: "4201001"},
	{ID: "s2", Name: "Bala", RegNumber: "4201002"},
	{ID: "s3", Name: "Chitra", RegNumber: "4201003"},
}
