package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"classtrack/internal/adapters/cloud"
)

// slogCronLogger routes cron's own logging through slog.
type slogCronLogger struct{}

// Info implements cron.Logger.
func (slogCronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron_"+msg, keysAndValues...)
}

// Error implements cron.Logger.
func (slogCronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron_"+msg, append([]any{"error", err}, keysAndValues...)...)
}

// RunAutoPull performs one scheduled pull. A missing sync code is not an error.
func RunAutoPull(ctx context.Context, deps SyncDeps) {
	res, err := ExecutePull(ctx, deps)
	switch {
	case errors.Is(err, cloud.ErrNoSyncCode):
		slog.Debug("auto_pull_skipped", "reason", "no sync code")
	case err != nil:
		slog.Error("auto_pull_failed", "error", err)
	case res.Degraded:
		slog.Warn("auto_pull_degraded", "code", res.Code)
	default:
		slog.Info("auto_pull_done", "code", res.Code, "dates", res.Dates)
	}
}

// StartAutoPull schedules RunAutoPull on a cron spec ("@every 15m",
// "*/10 8-17 * * 1-6", ...). Overlapping runs are skipped.
// PRE: spec is non-empty; timeout > 0
// POST: The returned scheduler is running; call Stop to end it
func StartAutoPull(spec string, timeout time.Duration, deps SyncDeps) (*cron.Cron, error) {
	logger := slogCronLogger{}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		RunAutoPull(ctx, deps)
	})
	if err != nil {
		return nil, fmt.Errorf("auto pull schedule %q: %w", spec, err)
	}
	c.Start()
	slog.Info("auto_pull_started", "schedule", spec)
	return c, nil
}
