package projections

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"time"

	"golang.org/x/crypto/blake2b"

	settingStore "classtrack/internal/adapters/storage/setting"
	domainAttendance "classtrack/internal/domain/attendance"
)

// SyncStatus summarizes the local sync state.
type SyncStatus struct {
	Code        string    `json:"code"`
	Enabled     bool      `json:"enabled"`
	LastSync    time.Time `json:"lastSync"`
	Dates       int       `json:"dates"`
	Fingerprint string    `json:"fingerprint"`
}

// GetSyncStatusDeps holds dependencies for GetSyncStatus.
type GetSyncStatusDeps struct {
	LedgerStore  LedgerStore
	SettingStore SettingStore
}

// QueryGetSyncStatus reports the configured code, the last successful sync
// and a fingerprint of the local ledger. Two devices whose fingerprints match
// hold identical ledgers.
func QueryGetSyncStatus(ctx context.Context, deps GetSyncStatusDeps) (SyncStatus, error) {
	code, err := deps.SettingStore.Get(ctx, settingStore.KeySyncCode)
	if err != nil {
		return SyncStatus{}, err
	}
	var last time.Time
	if raw, err := deps.SettingStore.Get(ctx, settingStore.KeyLastSync); err != nil {
		return SyncStatus{}, err
	} else if raw != "" {
		last, _ = time.Parse(time.RFC3339, raw)
	}
	ledger, err := deps.LedgerStore.Load(ctx)
	if err != nil {
		return SyncStatus{}, err
	}
	fp, err := LedgerFingerprint(ledger)
	if err != nil {
		return SyncStatus{}, err
	}
	return SyncStatus{
		Code:        code,
		Enabled:     code != "",
		LastSync:    last,
		Dates:       len(ledger),
		Fingerprint: fp,
	}, nil
}

// LedgerFingerprint hashes the canonical JSON encoding of l with BLAKE2b-256
// and returns the first 8 bytes in hex.
// INVARIANT: equal ledgers yield equal fingerprints (JSON object keys are sorted)
func LedgerFingerprint(l domainAttendance.Ledger) (string, error) {
	if l == nil {
		l = domainAttendance.Ledger{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:8]), nil
}
