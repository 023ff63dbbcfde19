package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"classtrack/internal/adapters/storage"
	ledgerStore "classtrack/internal/adapters/storage/ledger"
	domain "classtrack/internal/domain/attendance"
)

// LedgerDeps holds dependencies for ledger backup and recovery.
type LedgerDeps struct {
	LedgerStore ledgerStore.Store
}

// ExecuteExportLedger writes the whole ledger as indented JSON, in the same
// shape the remote endpoint stores.
// POST: Returns the number of dates written
func ExecuteExportLedger(ctx context.Context, w io.Writer, deps LedgerDeps) (int, error) {
	l, err := deps.LedgerStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return 0, fmt.Errorf("encode ledger: %w", err)
	}
	slog.Info("ledger_exported", "dates", len(l))
	return len(l), nil
}

// ImportLedgerInput carries a backup file.
type ImportLedgerInput struct {
	Reader  io.Reader
	Replace bool // overwrite instead of merging
}

// ExecuteImportLedger restores a backup. By default the backup is merged into
// the local ledger with the same rules as a cloud pull.
// POST: A malformed backup yields storage.ErrCorruptStore and writes nothing
func ExecuteImportLedger(ctx context.Context, input ImportLedgerInput, deps LedgerDeps) (int, error) {
	var incoming domain.Ledger
	if err := json.NewDecoder(input.Reader).Decode(&incoming); err != nil {
		return 0, fmt.Errorf("decode backup: %v: %w", err, storage.ErrCorruptStore)
	}
	for date, day := range incoming {
		if day.Hours == nil {
			day.Hours = map[string][]int{}
			incoming[date] = day
		}
	}
	if err := incoming.Validate(); err != nil {
		return 0, fmt.Errorf("backup: %v: %w", err, storage.ErrCorruptStore)
	}

	syncMu.Lock()
	defer syncMu.Unlock()

	next := incoming
	if !input.Replace {
		local, err := deps.LedgerStore.Load(ctx)
		if err != nil {
			return 0, err
		}
		next = domain.Merge(local, incoming)
	}
	if err := deps.LedgerStore.Save(ctx, next); err != nil {
		return 0, fmt.Errorf("save ledger: %w", err)
	}
	slog.Info("ledger_imported", "incoming_dates", len(incoming), "dates", len(next), "replace", input.Replace)
	return len(next), nil
}

// ExecuteResetLedger deletes every stored day. This is the recovery path for
// a corrupt local store; the roster and sync settings are kept.
func ExecuteResetLedger(ctx context.Context, deps LedgerDeps) error {
	syncMu.Lock()
	defer syncMu.Unlock()

	if err := deps.LedgerStore.Reset(ctx); err != nil {
		return err
	}
	slog.Warn("ledger_reset")
	return nil
}
