package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"classtrack/internal/adapters/cloud"
	ledgerStore "classtrack/internal/adapters/storage/ledger"
	settingStore "classtrack/internal/adapters/storage/setting"
	domain "classtrack/internal/domain/attendance"
)

// syncMu serializes every read-merge-write of the ledger so a scheduled pull
// never interleaves with a submit or a manual sync.
var syncMu sync.Mutex

// SyncDeps holds dependencies shared by the sync orchestrators.
type SyncDeps struct {
	LedgerStore  ledgerStore.Store
	SettingStore settingStore.Store
	Remote       cloud.Remote
	RosterLookup RosterLookup // checks student ids on a submitted day
	Now          func() time.Time
}

func (d SyncDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// SyncResult reports what a sync round achieved.
// Degraded means the remote could not be read and the local ledger was kept
// unchanged; Pushed means the remote acknowledged the upload.
type SyncResult struct {
	Code     string `json:"code"`
	Pulled   bool   `json:"pulled"`
	Pushed   bool   `json:"pushed"`
	Degraded bool   `json:"degraded"`
	Dates    int    `json:"dates"`
	LastSync string `json:"lastSync,omitempty"`
}

// --- Submit ---

// SubmitAttendanceInput carries the day being submitted.
// Day nil means "submit what is already stored for Date".
type SubmitAttendanceInput struct {
	Date string
	Day  *domain.DailyAttendance
}

// SubmitAttendanceResult carries the outcome of a submit.
type SubmitAttendanceResult struct {
	Date string                 `json:"date"`
	Day  domain.DailyAttendance `json:"day"`
	Sync *SyncResult            `json:"sync,omitempty"`
}

// ExecuteSubmitAttendance persists one day and, when a sync code is set,
// merges the whole ledger with the remote copy and pushes the result.
// PRE: input.Date is YYYY-MM-DD; input.Day (if set) satisfies the day invariants
// and names only students on the roster
// POST: The day is stored verbatim (no merge); remote failures never fail the submit
// INVARIANT: A failed fetch leaves the local ledger exactly as submitted
func ExecuteSubmitAttendance(ctx context.Context, input SubmitAttendanceInput, deps SyncDeps) (SubmitAttendanceResult, error) {
	if err := domain.ValidateDate(input.Date); err != nil {
		return SubmitAttendanceResult{}, err
	}

	syncMu.Lock()
	defer syncMu.Unlock()

	var day domain.DailyAttendance
	if input.Day != nil {
		day = input.Day.Clone()
		if day.Hours == nil {
			day.Hours = map[string][]int{}
		}
		if err := day.Validate(); err != nil {
			return SubmitAttendanceResult{}, err
		}
		for _, id := range slices.Sorted(maps.Keys(day.Hours)) {
			if _, err := deps.RosterLookup.GetByID(ctx, id); err != nil {
				return SubmitAttendanceResult{}, fmt.Errorf("student %s: %w", id, err)
			}
		}
	} else {
		stored, err := deps.LedgerStore.GetDay(ctx, input.Date)
		if err != nil {
			return SubmitAttendanceResult{}, err
		}
		day = stored
	}

	if err := deps.LedgerStore.SaveDay(ctx, input.Date, day); err != nil {
		return SubmitAttendanceResult{}, fmt.Errorf("save day: %w", err)
	}
	slog.Info("attendance_submitted", "date", input.Date, "absent", day.AbsentCount(), "no_class", day.IsNoClass)

	result := SubmitAttendanceResult{Date: input.Date, Day: day}

	code, err := settingStore.SyncCode(ctx, deps.SettingStore)
	if err != nil {
		return result, err
	}
	if code == "" {
		return result, nil
	}
	sr, err := pullMergePush(ctx, code, deps)
	if err != nil {
		return result, err
	}
	result.Sync = &sr
	return result, nil
}

// --- Pull ---

// ExecutePull merges the remote ledger into the local one.
// PRE: a sync code is configured
// POST: On fetch failure the result is Degraded and the local ledger is unchanged
func ExecutePull(ctx context.Context, deps SyncDeps) (SyncResult, error) {
	syncMu.Lock()
	defer syncMu.Unlock()

	code, err := requireCode(ctx, deps)
	if err != nil {
		return SyncResult{}, err
	}
	return pull(ctx, code, deps)
}

func pull(ctx context.Context, code string, deps SyncDeps) (SyncResult, error) {
	result := SyncResult{Code: code}
	remote, err := deps.Remote.Fetch(ctx, code)
	if err != nil {
		slog.Warn("sync_pull_failed", "code", code, "error", err)
		result.Degraded = true
		return result, nil
	}
	local, err := deps.LedgerStore.Load(ctx)
	if err != nil {
		return result, err
	}
	merged := domain.Merge(local, remote)
	if err := deps.LedgerStore.Save(ctx, merged); err != nil {
		return result, fmt.Errorf("save merged ledger: %w", err)
	}
	stamp, err := settingStore.TouchLastSync(ctx, deps.SettingStore, deps.now())
	if err != nil {
		return result, err
	}
	result.Pulled = true
	result.Dates = len(merged)
	result.LastSync = stamp
	slog.Info("sync_pulled", "code", code, "local_dates", len(local), "remote_dates", len(remote), "merged_dates", len(merged))
	return result, nil
}

// --- Push ---

// ExecutePush uploads the local ledger, replacing the remote copy.
// PRE: a sync code is configured
// POST: Returns cloud.ErrRemote (wrapped) when the remote rejects the upload
func ExecutePush(ctx context.Context, deps SyncDeps) (SyncResult, error) {
	syncMu.Lock()
	defer syncMu.Unlock()

	code, err := requireCode(ctx, deps)
	if err != nil {
		return SyncResult{}, err
	}
	return push(ctx, code, deps)
}

func push(ctx context.Context, code string, deps SyncDeps) (SyncResult, error) {
	result := SyncResult{Code: code}
	local, err := deps.LedgerStore.Load(ctx)
	if err != nil {
		return result, err
	}
	if err := deps.Remote.Put(ctx, code, local); err != nil {
		slog.Warn("sync_push_failed", "code", code, "error", err)
		return result, err
	}
	stamp, err := settingStore.TouchLastSync(ctx, deps.SettingStore, deps.now())
	if err != nil {
		return result, err
	}
	result.Pushed = true
	result.Dates = len(local)
	result.LastSync = stamp
	slog.Info("sync_pushed", "code", code, "dates", len(local))
	return result, nil
}

// pullMergePush is the submit round: a degraded pull skips the push so a
// device that cannot read the remote never overwrites it.
func pullMergePush(ctx context.Context, code string, deps SyncDeps) (SyncResult, error) {
	pr, err := pull(ctx, code, deps)
	if err != nil || pr.Degraded {
		return pr, err
	}
	ps, err := push(ctx, code, deps)
	if err != nil {
		if errors.Is(err, cloud.ErrRemote) {
			return pr, nil
		}
		return pr, err
	}
	ps.Pulled = true
	return ps, nil
}

// --- Setup / Clear ---

// SetupSyncInput carries an optional user-entered code.
type SetupSyncInput struct {
	Code       string
	CodePrefix string
}

// SetupSyncResult reports the code in use and the initial sync round.
type SetupSyncResult struct {
	Code      string     `json:"code"`
	Generated bool       `json:"generated"`
	Sync      SyncResult `json:"sync"`
}

// ExecuteSetupSync configures sync. Without a code a fresh one is generated
// and the local ledger is pushed to seed it; with a code the device joins it
// and pulls.
// POST: The code is stored even if the first sync round fails
func ExecuteSetupSync(ctx context.Context, input SetupSyncInput, deps SyncDeps) (SetupSyncResult, error) {
	syncMu.Lock()
	defer syncMu.Unlock()

	code := cloud.NormalizeCode(input.Code)
	generated := false
	if code == "" {
		var err error
		code, err = cloud.GenerateCode(input.CodePrefix)
		if err != nil {
			return SetupSyncResult{}, err
		}
		generated = true
	}
	if err := settingStore.SetSyncCode(ctx, deps.SettingStore, code); err != nil {
		return SetupSyncResult{}, err
	}
	slog.Info("sync_code_set", "code", code, "generated", generated)

	result := SetupSyncResult{Code: code, Generated: generated}
	if generated {
		sr, err := push(ctx, code, deps)
		if err != nil && !errors.Is(err, cloud.ErrRemote) {
			return result, err
		}
		result.Sync = sr
		result.Sync.Degraded = err != nil
		return result, nil
	}
	sr, err := pull(ctx, code, deps)
	result.Sync = sr
	return result, err
}

// ExecuteClearSync forgets the sync code. The local ledger is kept.
func ExecuteClearSync(ctx context.Context, deps SyncDeps) error {
	syncMu.Lock()
	defer syncMu.Unlock()

	if err := settingStore.SetSyncCode(ctx, deps.SettingStore, ""); err != nil {
		return err
	}
	slog.Info("sync_code_cleared")
	return nil
}

func requireCode(ctx context.Context, deps SyncDeps) (string, error) {
	code, err := settingStore.SyncCode(ctx, deps.SettingStore)
	if err != nil {
		return "", err
	}
	if code == "" {
		return "", cloud.ErrNoSyncCode
	}
	return code, nil
}
