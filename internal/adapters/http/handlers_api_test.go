package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"classtrack/internal/adapters/cloud"
	"classtrack/internal/adapters/http/perf"
	"classtrack/internal/adapters/storage"
	ledgerStore "classtrack/internal/adapters/storage/ledger"
	settingStore "classtrack/internal/adapters/storage/setting"
	studentStore "classtrack/internal/adapters/storage/student"
	"classtrack/internal/application/orchestrators"
	"classtrack/internal/application/projections"
	"classtrack/internal/domain/attendance"
	"classtrack/internal/domain/student"
)

const testCode = "IFET-IT-ABC123"

var testRoster = student.Roster{
	{ID: "s1", Name: "Anu", RegNumber: "4201001"},
	{ID: "s2", Name: "Bala", RegNumber: "4201002"},
	{ID: "s3", Name: "Chitra", RegNumber: "4201003"},
}

// kvServer is an in-memory stand-in for the remote key-value endpoint.
type kvServer struct {
	mu   sync.Mutex
	data map[string][]byte
	down bool
}

// ServeHTTP stores POST bodies and returns them on GET.
// PRE: path is /{code}
// POST: Responds 503 while down
func (k *kvServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.down {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case "GET":
		w.Write(k.data[key])
	case "POST":
		body, _ := io.ReadAll(r.Body)
		k.data[key] = body
	}
}

type apiFixture struct {
	stores *Stores
	kv     *kvServer
}

// setupAPI points the package globals at a fresh in-memory database and a
// local key-value server.
func setupAPI(t *testing.T) *apiFixture {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	kv := &kvServer{data: map[string][]byte{}}
	srv := httptest.NewServer(kv)

	s := &Stores{
		StudentStore: studentStore.NewSQLiteStore(db),
		LedgerStore:  ledgerStore.NewSQLiteStore(db),
		SettingStore: settingStore.NewSQLiteStore(db),
	}
	if err := s.StudentStore.ReplaceAll(context.Background(), testRoster); err != nil {
		t.Fatalf("seed roster: %v", err)
	}

	prevNow := timeNow
	stores = s
	remote = cloud.NewHTTPClient(srv.URL, srv.Client(), time.Second)
	perfCollector = perf.NewCollector(100)
	timeNow = func() time.Time { return time.Date(2024, 1, 15, 10, 0, 0, 0, time.Local) }
	t.Cleanup(func() {
		timeNow = prevNow
		srv.Close()
		db.Close()
	})
	return &apiFixture{stores: s, kv: kv}
}

func (f *apiFixture) enableSync(t *testing.T) {
	t.Helper()
	if err := settingStore.SetSyncCode(context.Background(), f.stores.SettingStore, testCode); err != nil {
		t.Fatalf("set code: %v", err)
	}
}

func postJSON(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func get(h http.HandlerFunc, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest("GET", path, nil))
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return v
}

// TestHandleStudents verifies listing and search.
func TestHandleStudents(t *testing.T) {
	setupAPI(t)

	rr := get(handleStudents, "/api/students")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decodeBody[studentPage](t, rr); len(got.Students) != 3 || got.Students[0].ID != "s1" || got.Page.Total != 3 {
		t.Errorf("roster = %+v", got)
	}

	rr = get(handleStudents, "/api/students?q=chit")
	if got := decodeBody[studentPage](t, rr); len(got.Students) != 1 || got.Students[0].Name != "Chitra" {
		t.Errorf("search = %+v", got)
	}

	rr = get(handleStudents, "/api/students?page=2&per_page=10")
	if got := decodeBody[studentPage](t, rr); len(got.Students) != 3 || got.Page.Page != 1 || got.Page.TotalPages != 1 {
		t.Errorf("clamped page = %+v", got)
	}
}

// TestHandleToggleHour verifies a JSON toggle persists and is visible via GET.
func TestHandleToggleHour(t *testing.T) {
	setupAPI(t)

	rr := postJSON(handleToggleHour, "/api/attendance/toggle", `{"date":"2024-01-15","studentId":"s2","hour":3}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}

	rr = get(handleGetAttendance, "/api/attendance?date=2024-01-15")
	resp := decodeBody[attendanceResponse](t, rr)
	if resp.AbsentCount != 1 || len(resp.Day.Hours["s2"]) != 1 || resp.Day.Hours["s2"][0] != 3 {
		t.Errorf("attendance = %+v", resp)
	}
}

// TestHandleToggleHour_FormPost verifies form-encoded input is accepted.
func TestHandleToggleHour_FormPost(t *testing.T) {
	setupAPI(t)

	req := httptest.NewRequest("POST", "/api/attendance/toggle", strings.NewReader("student_id=s1&hour=7"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	handleToggleHour(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	resp := decodeBody[attendanceResponse](t, rr)
	if resp.Date != "2024-01-15" {
		t.Errorf("date = %q, want today's date", resp.Date)
	}
}

// TestHandleToggleHour_Errors verifies domain errors map to status codes.
func TestHandleToggleHour_Errors(t *testing.T) {
	setupAPI(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"hour out of range", `{"date":"2024-01-15","studentId":"s1","hour":8}`, http.StatusBadRequest},
		{"bad date", `{"date":"15-01-2024","studentId":"s1","hour":1}`, http.StatusBadRequest},
		{"unknown student", `{"date":"2024-01-15","studentId":"ghost","hour":1}`, http.StatusNotFound},
		{"unknown field", `{"date":"2024-01-15","student":"s1","hour":1}`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := postJSON(handleToggleHour, "/api/attendance/toggle", tt.body); rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

// TestHandleToggleFullDayAndNoClass verifies full-day and no-class edits.
func TestHandleToggleFullDayAndNoClass(t *testing.T) {
	setupAPI(t)

	rr := postJSON(handleToggleFullDay, "/api/attendance/fullday", `{"date":"2024-01-15","studentId":"s3"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("fullday status = %d", rr.Code)
	}
	if resp := decodeBody[attendanceResponse](t, rr); len(resp.Day.Hours["s3"]) != attendance.HoursPerDay {
		t.Errorf("hours = %v, want 7", resp.Day.Hours["s3"])
	}

	rr = postJSON(handleSetNoClass, "/api/attendance/noclass", `{"date":"2024-01-15","noClass":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("noclass status = %d", rr.Code)
	}
	resp := decodeBody[attendanceResponse](t, rr)
	if !resp.Day.IsNoClass || resp.AbsentCount != 0 {
		t.Errorf("day = %+v, want no class with zero absentees", resp)
	}
}

// TestHandleReport verifies the plain-text report and policy override.
func TestHandleReport(t *testing.T) {
	setupAPI(t)
	postJSON(handleToggleHour, "/api/attendance/toggle", `{"date":"2024-01-15","studentId":"s2","hour":1}`)

	rr := get(handleReport, "/api/report?date=2024-01-15")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rr.Body.String()
	for _, want := range []string{"Date: 15.01.2024", "1)002 Bala (1 hr)", "Nil", "Total Absent: 1"} {
		if !strings.Contains(body, want) {
			t.Errorf("report missing %q:\n%s", want, body)
		}
	}

	rr = get(handleReport, "/api/report?date=2024-01-15&empty=omit")
	if strings.Contains(rr.Body.String(), "Nil") {
		t.Errorf("omit policy still printed Nil:\n%s", rr.Body.String())
	}

	if rr = get(handleReport, "/api/report?empty=sometimes"); rr.Code != http.StatusBadRequest {
		t.Errorf("bad policy status = %d, want 400", rr.Code)
	}
}

// TestHandleHistory verifies the per-student summary.
func TestHandleHistory(t *testing.T) {
	setupAPI(t)
	postJSON(handleToggleFullDay, "/api/attendance/fullday", `{"date":"2024-01-12","studentId":"s1"}`)
	postJSON(handleToggleHour, "/api/attendance/toggle", `{"date":"2024-01-15","studentId":"s1","hour":2}`)

	rr := get(handleHistory, "/api/history?student_id=s1")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	sum := decodeBody[projections.StudentSummary](t, rr)
	if sum.TotalHoursMissed != 8 || sum.TotalAbsentDays != 2 || sum.Entries[0].Date != "2024-01-15" {
		t.Errorf("summary = %+v", sum)
	}

	if rr = get(handleHistory, "/api/history"); rr.Code != http.StatusBadRequest {
		t.Errorf("missing id status = %d, want 400", rr.Code)
	}
	if rr = get(handleHistory, "/api/history?student_id=ghost"); rr.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", rr.Code)
	}
}

// TestHandleSubmit_NoSync verifies a submit without a sync code only stores the day.
func TestHandleSubmit_NoSync(t *testing.T) {
	f := setupAPI(t)

	rr := postJSON(handleSubmitAttendance, "/api/attendance/submit", `{"date":"2024-01-15","day":{"hours":{"s1":[1,2]}}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	res := decodeBody[orchestrators.SubmitAttendanceResult](t, rr)
	if res.Sync != nil {
		t.Errorf("Sync = %+v, want nil without a code", res.Sync)
	}
	if len(f.kv.data) != 0 {
		t.Error("remote contacted without a sync code")
	}
}

// TestHandleSubmit_SyncsAndDegrades verifies submit pushes when the remote is
// up and still succeeds when it is down.
func TestHandleSubmit_SyncsAndDegrades(t *testing.T) {
	f := setupAPI(t)
	f.enableSync(t)

	rr := postJSON(handleSubmitAttendance, "/api/attendance/submit", `{"date":"2024-01-15","day":{"hours":{"s1":[1]}}}`)
	res := decodeBody[orchestrators.SubmitAttendanceResult](t, rr)
	if res.Sync == nil || !res.Sync.Pushed {
		t.Fatalf("Sync = %+v, want pushed", res.Sync)
	}
	if !strings.Contains(string(f.kv.data[testCode]), `"2024-01-15"`) {
		t.Errorf("remote = %s", f.kv.data[testCode])
	}

	f.kv.down = true
	rr = postJSON(handleSubmitAttendance, "/api/attendance/submit", `{"date":"2024-01-16","day":{"hours":{},"isNoClass":true}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, submit must survive a remote outage", rr.Code)
	}
	res = decodeBody[orchestrators.SubmitAttendanceResult](t, rr)
	if res.Sync == nil || !res.Sync.Degraded || res.Sync.Pushed {
		t.Errorf("Sync = %+v, want degraded and not pushed", res.Sync)
	}
}

// TestHandleSubmit_InvalidDay verifies malformed days are rejected.
func TestHandleSubmit_InvalidDay(t *testing.T) {
	setupAPI(t)

	rr := postJSON(handleSubmitAttendance, "/api/attendance/submit", `{"date":"2024-01-15","day":{"hours":{"s1":[3,1]}}}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}

	rr = postJSON(handleSubmitAttendance, "/api/attendance/submit", `{"date":"2024-01-15","day":{"hours":{"s9":[1]}}}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown student status = %d, want 404", rr.Code)
	}
	rr = get(handleReport, "/api/report?date=2024-01-15")
	if !strings.Contains(rr.Body.String(), "All present") {
		t.Errorf("report after rejected submit = %q", rr.Body.String())
	}
}

// TestHandleSync verifies status, pull and push endpoints.
func TestHandleSync(t *testing.T) {
	f := setupAPI(t)

	if rr := postJSON(handleSyncPull, "/api/sync/pull", ""); rr.Code != http.StatusConflict {
		t.Errorf("pull without code status = %d, want 409", rr.Code)
	}

	f.enableSync(t)
	f.kv.data[testCode] = []byte(`{"2024-01-10":{"hours":{"s3":[5,6]}}}`)

	rr := postJSON(handleSyncPull, "/api/sync/pull", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("pull status = %d", rr.Code)
	}
	if res := decodeBody[orchestrators.SyncResult](t, rr); !res.Pulled || res.Dates != 1 {
		t.Errorf("pull = %+v", res)
	}

	rr = get(handleSyncStatus, "/api/sync")
	status := decodeBody[projections.SyncStatus](t, rr)
	if !status.Enabled || status.Code != testCode || status.Dates != 1 || status.Fingerprint == "" {
		t.Errorf("status = %+v", status)
	}

	f.kv.down = true
	if rr := postJSON(handleSyncPush, "/api/sync/push", ""); rr.Code != http.StatusBadGateway {
		t.Errorf("push while down status = %d, want 502", rr.Code)
	}
}

// TestHandlePerf verifies the collector snapshot is served.
func TestHandlePerf(t *testing.T) {
	setupAPI(t)
	perfCollector.Record(perf.Entry{Kind: perf.KindRequest, Path: "GET /api/report", DurationMs: 4, Timestamp: timeNow()})

	rr := get(handlePerf, "/api/perf")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if snap := decodeBody[perf.Snapshot](t, rr); snap.TotalRecorded != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if rr = get(handlePerf, "/api/perf?window=yesterday"); rr.Code != http.StatusBadRequest {
		t.Errorf("bad window status = %d, want 400", rr.Code)
	}
}

// TestMethodNotAllowed verifies handlers reject the wrong verb.
func TestMethodNotAllowed(t *testing.T) {
	setupAPI(t)

	if rr := get(handleToggleHour, "/api/attendance/toggle"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET toggle status = %d, want 405", rr.Code)
	}
	if rr := postJSON(handleReport, "/api/report", "{}"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST report status = %d, want 405", rr.Code)
	}
}
