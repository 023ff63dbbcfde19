package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"classtrack/internal/adapters/cloud"
	"classtrack/internal/adapters/http/perf"
	"classtrack/internal/adapters/storage"
	ledgerStore "classtrack/internal/adapters/storage/ledger"
	settingStore "classtrack/internal/adapters/storage/setting"
	studentStore "classtrack/internal/adapters/storage/student"
	"classtrack/internal/application/orchestrators"
	"classtrack/internal/config"
	"classtrack/internal/domain/attendance"
	"classtrack/internal/domain/student"
)

// app holds everything a command needs once configuration is resolved.
type app struct {
	v   *viper.Viper
	cfg config.Config

	db        *storage.TimedDB
	collector *perf.Collector
	students  studentStore.Store
	ledger    ledgerStore.Store
	settings  settingStore.Store
	remote    cloud.Remote

	now func() time.Time
}

// open resolves configuration, installs the slog handler and opens the
// database. jsonLogs selects the JSON handler.
func (a *app) open(cmd *cobra.Command, configFile string, jsonLogs bool) error {
	if err := config.LoadDotEnv("."); err != nil {
		return err
	}
	cfg, err := config.Load(a.v, configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	setupLogging(cmd.ErrOrStderr(), cfg.LogLevel, jsonLogs || cfg.IsProduction())

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	a.collector = perf.NewCollector(perf.DefaultRingSize)
	a.db = storage.NewTimedDB(db, a.collector, cfg.SlowQuery)
	a.students = studentStore.NewSQLiteStore(a.db)
	a.ledger = ledgerStore.NewSQLiteStore(a.db)
	a.settings = settingStore.NewSQLiteStore(a.db)
	a.remote = cloud.NewHTTPClient(cfg.Sync.BaseURL, nil, cfg.Sync.Timeout)
	if a.now == nil {
		a.now = time.Now
	}
	slog.Debug("store_opened", "path", cfg.DBPath, "env", cfg.Env)
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func setupLogging(w io.Writer, level slog.Level, jsonLogs bool) {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if jsonLogs {
		h = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

// syncContext bounds one command's remote round trips.
func (a *app) syncContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 2*a.cfg.Sync.Timeout)
}

func (a *app) syncDeps() orchestrators.SyncDeps {
	return orchestrators.SyncDeps{
		LedgerStore:  a.ledger,
		SettingStore: a.settings,
		Remote:       a.remote,
		RosterLookup: a.students,
		Now:          a.now,
	}
}

func (a *app) markDeps() orchestrators.MarkAttendanceDeps {
	return orchestrators.MarkAttendanceDeps{
		LedgerStore:  a.ledger,
		RosterLookup: a.students,
	}
}

// date returns d or today's local date.
func (a *app) date(d string) string {
	if d = strings.TrimSpace(d); d != "" {
		return d
	}
	return a.now().Format(attendance.DateLayout)
}

// printDay writes one line per absent student in roster order, then any
// ids no longer on the roster.
func printDay(w io.Writer, roster student.Roster, date string, day attendance.DailyAttendance) {
	switch {
	case day.IsNoClass:
		fmt.Fprintf(w, "%s: no class\n", date)
		return
	case len(day.Hours) == 0:
		fmt.Fprintf(w, "%s: all present\n", date)
		return
	}
	fmt.Fprintf(w, "%s: %d absent\n", date, day.AbsentCount())
	seen := map[string]bool{}
	for _, s := range roster {
		if hrs := day.Hours[s.ID]; len(hrs) > 0 {
			fmt.Fprintf(w, "  %s %-24s %v\n", s.ShortReg(), s.Name, hrs)
			seen[s.ID] = true
		}
	}
	var orphans []string
	for id := range day.Hours {
		if !seen[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		fmt.Fprintf(w, "  ??? %-24s %v\n", id, day.Hours[id])
	}
}

func printSync(w io.Writer, r orchestrators.SyncResult) {
	switch {
	case r.Degraded:
		fmt.Fprintf(w, "sync %s: remote unreachable, working offline\n", r.Code)
	case r.Pushed && r.Pulled:
		fmt.Fprintf(w, "sync %s: merged and pushed %d dates\n", r.Code, r.Dates)
	case r.Pushed:
		fmt.Fprintf(w, "sync %s: pushed %d dates\n", r.Code, r.Dates)
	case r.Pulled:
		fmt.Fprintf(w, "sync %s: pulled, %d dates locally\n", r.Code, r.Dates)
	}
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
