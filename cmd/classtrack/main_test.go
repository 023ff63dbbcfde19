package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"classtrack/internal/config"
)

const testRosterCSV = "id,name,reg number\ns1,Arun,21CS001\ns2,Bala,21CS002\n"

// runCLI executes one command against dbPath with a fresh viper instance.
func runCLI(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(config.New())
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--db", dbPath, "--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dbPath string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, dbPath, args...)
	if err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}

func setupCLI(t *testing.T) (dir, dbPath string) {
	t.Helper()
	dir = t.TempDir()
	dbPath = filepath.Join(dir, "classtrack.db")
	csv := filepath.Join(dir, "roster.csv")
	if err := os.WriteFile(csv, []byte(testRosterCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	out := mustRun(t, dbPath, "students", "import", csv)
	if !strings.Contains(out, "imported 2 rows: 2 created, 0 updated, 0 skipped") {
		t.Fatalf("import output = %q", out)
	}
	return dir, dbPath
}

func TestCLI_StudentsList(t *testing.T) {
	_, db := setupCLI(t)

	out := mustRun(t, db, "students", "list")
	if !strings.Contains(out, "Arun") || !strings.Contains(out, "Bala") {
		t.Errorf("list output = %q", out)
	}
	out = mustRun(t, db, "students", "list", "--search", "bala")
	if strings.Contains(out, "Arun") || !strings.Contains(out, "Bala") {
		t.Errorf("search output = %q", out)
	}
}

func TestCLI_ImportDryRun(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "classtrack.db")
	csv := filepath.Join(dir, "roster.csv")
	if err := os.WriteFile(csv, []byte(testRosterCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	out := mustRun(t, db, "students", "import", "--dry-run", csv)
	if !strings.Contains(out, "would import 2 rows") {
		t.Errorf("dry run output = %q", out)
	}
	out = mustRun(t, db, "students", "list")
	if strings.Contains(out, "Arun") {
		t.Errorf("dry run saved students: %q", out)
	}
}

func TestCLI_ToggleReportHistory(t *testing.T) {
	_, db := setupCLI(t)

	out := mustRun(t, db, "toggle", "--date", "2024-01-15", "--student", "s1", "--hour", "1")
	if !strings.Contains(out, "1 absent") {
		t.Errorf("toggle output = %q", out)
	}

	out = mustRun(t, db, "report", "--date", "2024-01-15")
	if !strings.Contains(out, "Date: 15.01.2024") || !strings.Contains(out, "Arun") || !strings.Contains(out, "Total Absent: 1") {
		t.Errorf("report output = %q", out)
	}

	out = mustRun(t, db, "history", "s1")
	if !strings.Contains(out, "Arun (21CS001)") || !strings.Contains(out, "1 hours over 1 days") {
		t.Errorf("history output = %q", out)
	}
}

func TestCLI_ToggleRejectsBadHour(t *testing.T) {
	_, db := setupCLI(t)
	if _, err := runCLI(t, db, "toggle", "--date", "2024-01-15", "--student", "s1", "--hour", "8"); err == nil {
		t.Error("expected error for hour 8")
	}
	if _, err := runCLI(t, db, "toggle", "--date", "2024-01-15", "--student", "nobody", "--hour", "1"); err == nil {
		t.Error("expected error for unknown student")
	}
}

func TestCLI_NoClass(t *testing.T) {
	_, db := setupCLI(t)
	mustRun(t, db, "toggle", "--date", "2024-01-15", "--student", "s1", "--hour", "1")

	out := mustRun(t, db, "noclass", "--date", "2024-01-15")
	if !strings.Contains(out, "no class") {
		t.Errorf("noclass output = %q", out)
	}
	out = mustRun(t, db, "show", "--date", "2024-01-15")
	if !strings.Contains(out, "no class") {
		t.Errorf("show output = %q", out)
	}
}

func TestCLI_SyncStatusOff(t *testing.T) {
	_, db := setupCLI(t)
	out := mustRun(t, db, "sync", "status")
	if !strings.Contains(out, "sync off") || !strings.Contains(out, "last sync:   never") {
		t.Errorf("status output = %q", out)
	}
	if _, err := runCLI(t, db, "sync", "pull"); err == nil {
		t.Error("expected error pulling without an access code")
	}
}

func TestCLI_LedgerBackupRoundTrip(t *testing.T) {
	dir, db := setupCLI(t)
	mustRun(t, db, "toggle", "--date", "2024-01-15", "--student", "s1", "--hour", "1")
	mustRun(t, db, "fullday", "--date", "2024-01-16", "--student", "s2")

	backup := filepath.Join(dir, "backup.json")
	out := mustRun(t, db, "ledger", "export", backup)
	if !strings.Contains(out, "exported 2 dates") {
		t.Errorf("export output = %q", out)
	}

	if _, err := runCLI(t, db, "ledger", "reset"); err == nil {
		t.Error("reset without --yes should fail")
	}
	mustRun(t, db, "ledger", "reset", "--yes")
	out = mustRun(t, db, "show", "--date", "2024-01-15")
	if !strings.Contains(out, "all present") {
		t.Errorf("after reset show = %q", out)
	}

	out = mustRun(t, db, "ledger", "import", backup)
	if !strings.Contains(out, "ledger now holds 2 dates") {
		t.Errorf("import output = %q", out)
	}
	out = mustRun(t, db, "show", "--date", "2024-01-16")
	if !strings.Contains(out, "1 absent") || !strings.Contains(out, "Bala") {
		t.Errorf("restored show = %q", out)
	}
}
