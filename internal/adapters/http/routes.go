package web

import "net/http"

// registerRoutes maps every endpoint onto mux.
func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", handleHealthz)

	mux.HandleFunc("/api/students", handleStudents)

	mux.HandleFunc("/api/attendance", handleGetAttendance)
	mux.HandleFunc("/api/attendance/toggle", handleToggleHour)
	mux.HandleFunc("/api/attendance/fullday", handleToggleFullDay)
	mux.HandleFunc("/api/attendance/noclass", handleSetNoClass)
	mux.HandleFunc("/api/attendance/submit", handleSubmitAttendance)

	mux.HandleFunc("/api/report", handleReport)
	mux.HandleFunc("/api/history", handleHistory)

	mux.HandleFunc("/api/sync", handleSyncStatus)
	mux.HandleFunc("/api/sync/pull", handleSyncPull)
	mux.HandleFunc("/api/sync/push", handleSyncPush)

	mux.HandleFunc("/api/perf", handlePerf)
}
