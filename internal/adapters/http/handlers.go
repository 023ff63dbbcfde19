package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"classtrack/internal/adapters/cloud"
	"classtrack/internal/application/listutil"
	"classtrack/internal/application/orchestrators"
	"classtrack/internal/application/projections"
	"classtrack/internal/domain/attendance"
	"classtrack/internal/domain/report"
	"classtrack/internal/domain/student"
)

// maxBody bounds request bodies; a full day for a large class is a few KB.
const maxBody = 1 << 20

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, attendance.ErrInvalidDate),
		errors.Is(err, attendance.ErrInvalidHour),
		errors.Is(err, attendance.ErrEmptyStudentID):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, student.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, cloud.ErrNoSyncCode):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, cloud.ErrRemote):
		slog.Warn("remote_error", "error", err.Error())
		http.Error(w, "sync endpoint unavailable", http.StatusBadGateway)
	default:
		internalError(w, err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json_encode_failed", "error", err.Error())
	}
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// decodeRequest fills v from a JSON body, or from form values via fromForm.
func decodeRequest(w http.ResponseWriter, r *http.Request, v any, fromForm func(url.Values) error) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err = r.ParseForm(); err == nil {
			err = fromForm(r.PostForm)
		}
	} else {
		err = strictDecode(r, v)
	}
	if err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return false
	}
	return true
}

// dateOrToday returns d, or today's date in local time when d is empty.
func dateOrToday(d string) string {
	if d = strings.TrimSpace(d); d != "" {
		return d
	}
	return timeNow().Format(attendance.DateLayout)
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func markDeps() orchestrators.MarkAttendanceDeps {
	return orchestrators.MarkAttendanceDeps{
		LedgerStore:  stores.LedgerStore,
		RosterLookup: stores.StudentStore,
	}
}

func syncDeps() orchestrators.SyncDeps {
	return orchestrators.SyncDeps{
		LedgerStore:  stores.LedgerStore,
		SettingStore: stores.SettingStore,
		Remote:       remote,
		RosterLookup: stores.StudentStore,
		Now:          timeNow,
	}
}

// handleHealthz handles GET /healthz
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

type studentPage struct {
	Students student.Roster   `json:"students"`
	Page     listutil.PageInfo `json:"page"`
}

// handleStudents handles GET /api/students?q=&page=&per_page=
func handleStudents(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "GET") {
		return
	}
	q := r.URL.Query()
	roster, err := projections.QueryGetRoster(r.Context(),
		projections.GetRosterQuery{Search: q.Get("q")},
		projections.GetRosterDeps{RosterStore: stores.StudentStore})
	if err != nil {
		internalError(w, err)
		return
	}
	page, info := listutil.Paginate(roster, listutil.ParsePageParams(q))
	if page == nil {
		page = student.Roster{}
	}
	writeJSON(w, studentPage{Students: page, Page: info})
}

type attendanceResponse struct {
	Date        string                     `json:"date"`
	Day         attendance.DailyAttendance `json:"day"`
	AbsentCount int                        `json:"absentCount"`
}

// handleGetAttendance handles GET /api/attendance?date=
func handleGetAttendance(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "GET") {
		return
	}
	date := dateOrToday(r.URL.Query().Get("date"))
	if err := attendance.ValidateDate(date); err != nil {
		writeError(w, err)
		return
	}
	day, err := stores.LedgerStore.GetDay(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, attendanceResponse{Date: date, Day: day, AbsentCount: day.AbsentCount()})
}

type toggleRequest struct {
	Date      string `json:"date"`
	StudentID string `json:"studentId"`
	Hour      int    `json:"hour"`
}

// handleToggleHour handles POST /api/attendance/toggle
func handleToggleHour(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "POST") {
		return
	}
	var req toggleRequest
	ok := decodeRequest(w, r, &req, func(f url.Values) error {
		req.Date = f.Get("date")
		req.StudentID = f.Get("student_id")
		h, err := strconv.Atoi(f.Get("hour"))
		req.Hour = h
		return err
	})
	if !ok {
		return
	}
	date := dateOrToday(req.Date)
	day, err := orchestrators.ExecuteToggleHour(r.Context(), orchestrators.ToggleHourInput{
		Date:      date,
		StudentID: req.StudentID,
		Hour:      req.Hour,
	}, markDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, attendanceResponse{Date: date, Day: day, AbsentCount: day.AbsentCount()})
}

type fullDayRequest struct {
	Date      string `json:"date"`
	StudentID string `json:"studentId"`
}

// handleToggleFullDay handles POST /api/attendance/fullday
func handleToggleFullDay(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "POST") {
		return
	}
	var req fullDayRequest
	ok := decodeRequest(w, r, &req, func(f url.Values) error {
		req.Date = f.Get("date")
		req.StudentID = f.Get("student_id")
		return nil
	})
	if !ok {
		return
	}
	date := dateOrToday(req.Date)
	day, err := orchestrators.ExecuteToggleFullDay(r.Context(), orchestrators.ToggleFullDayInput{
		Date:      date,
		StudentID: req.StudentID,
	}, markDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, attendanceResponse{Date: date, Day: day, AbsentCount: day.AbsentCount()})
}

type noClassRequest struct {
	Date    string `json:"date"`
	NoClass bool   `json:"noClass"`
}

// handleSetNoClass handles POST /api/attendance/noclass
func handleSetNoClass(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "POST") {
		return
	}
	var req noClassRequest
	ok := decodeRequest(w, r, &req, func(f url.Values) error {
		req.Date = f.Get("date")
		v := f.Get("no_class")
		req.NoClass = v == "on" || v == "true" || v == "1"
		return nil
	})
	if !ok {
		return
	}
	date := dateOrToday(req.Date)
	day, err := orchestrators.ExecuteSetNoClass(r.Context(), orchestrators.SetNoClassInput{
		Date:    date,
		NoClass: req.NoClass,
	}, markDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, attendanceResponse{Date: date, Day: day, AbsentCount: day.AbsentCount()})
}

type submitRequest struct {
	Date string                      `json:"date"`
	Day  *attendance.DailyAttendance `json:"day,omitempty"`
}

// handleSubmitAttendance handles POST /api/attendance/submit
// Without a day in the body the stored day is submitted.
func handleSubmitAttendance(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "POST") {
		return
	}
	var req submitRequest
	ok := decodeRequest(w, r, &req, func(f url.Values) error {
		req.Date = f.Get("date")
		return nil
	})
	if !ok {
		return
	}
	if req.Day != nil {
		if err := req.Day.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	result, err := orchestrators.ExecuteSubmitAttendance(r.Context(), orchestrators.SubmitAttendanceInput{
		Date: dateOrToday(req.Date),
		Day:  req.Day,
	}, syncDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

// handleReport handles GET /api/report?date=&empty=nil|omit
// Returns the plain-text report.
func handleReport(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "GET") {
		return
	}
	q := r.URL.Query()
	policy := reportPolicy
	if v := q.Get("empty"); v != "" {
		p, err := report.ParseEmptySections(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		policy = p
	}
	res, err := projections.QueryGetDailyReport(r.Context(),
		projections.GetDailyReportQuery{Date: dateOrToday(q.Get("date"))},
		projections.GetDailyReportDeps{RosterStore: stores.StudentStore, LedgerStore: stores.LedgerStore})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(res.Report.Text(policy)))
}

// handleHistory handles GET /api/history?student_id=
func handleHistory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "GET") {
		return
	}
	studentID := r.URL.Query().Get("student_id")
	if studentID == "" {
		http.Error(w, "student_id is required", http.StatusBadRequest)
		return
	}
	summary, err := projections.QueryGetStudentHistory(r.Context(),
		projections.GetStudentHistoryQuery{StudentID: studentID},
		projections.GetStudentHistoryDeps{RosterStore: stores.StudentStore, LedgerStore: stores.LedgerStore})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, summary)
}

// handleSyncStatus handles GET /api/sync
func handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "GET") {
		return
	}
	status, err := projections.QueryGetSyncStatus(r.Context(), projections.GetSyncStatusDeps{
		LedgerStore:  stores.LedgerStore,
		SettingStore: stores.SettingStore,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status)
}

// handleSyncPull handles POST /api/sync/pull
// A failed fetch is not an error: the result reports degraded mode.
func handleSyncPull(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "POST") {
		return
	}
	result, err := orchestrators.ExecutePull(r.Context(), syncDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

// handleSyncPush handles POST /api/sync/push
func handleSyncPush(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "POST") {
		return
	}
	result, err := orchestrators.ExecutePush(r.Context(), syncDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

// handlePerf handles GET /api/perf?window=1h
func handlePerf(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "GET") {
		return
	}
	if perfCollector == nil {
		http.NotFound(w, r)
		return
	}
	window := time.Hour
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			http.Error(w, "window must be a positive duration", http.StatusBadRequest)
			return
		}
		window = d
	}
	writeJSON(w, perfCollector.Snapshot(timeNow().Add(-window), 10))
}
