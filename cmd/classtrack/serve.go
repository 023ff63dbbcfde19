package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	web "classtrack/internal/adapters/http"
	"classtrack/internal/adapters/http/middleware"
	settingStore "classtrack/internal/adapters/storage/setting"
	"classtrack/internal/application/orchestrators"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	var origins []string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if addr == "" {
				addr = a.cfg.Addr
			}

			csrfKey, err := web.LoadCSRFKey(a.cfg.CSRFKeyHex, a.cfg.IsProduction())
			if err != nil {
				return err
			}

			// Startup pull so the first page load sees other devices' work.
			if code, err := settingStore.SyncCode(ctx, a.settings); err != nil {
				return err
			} else if code != "" {
				pullCtx, cancel := context.WithTimeout(ctx, a.cfg.Sync.Timeout)
				orchestrators.RunAutoPull(pullCtx, a.syncDeps())
				cancel()
			}

			limiter := middleware.NewRateLimiter(web.RateLimitPerSecond, time.Second)
			housekeeping := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
			housekeeping.AddFunc("@every 1m", func() {
				if n := limiter.Prune(5 * time.Minute); n > 0 {
					slog.Debug("rate_limit_pruned", "visitors", n)
				}
			})
			housekeeping.Start()
			defer housekeeping.Stop()

			if a.cfg.Sync.Cron != "" {
				c, err := orchestrators.StartAutoPull(a.cfg.Sync.Cron, a.cfg.Sync.Timeout, a.syncDeps())
				if err != nil {
					return err
				}
				defer c.Stop()
			}

			handler := web.NewMux(&web.Stores{
				StudentStore: a.students,
				LedgerStore:  a.ledger,
				SettingStore: a.settings,
			}, a.remote, a.collector, web.Options{
				CSRFKey:        csrfKey,
				Production:     a.cfg.IsProduction(),
				TrustedOrigins: origins,
				SlowRequest:    a.cfg.SlowRequest,
				ReportPolicy:   a.cfg.Report.EmptySections,
				Limiter:        limiter,
			})

			srv := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 5 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				slog.Info("server_starting", "addr", addr, "version", version, "env", a.cfg.Env)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}
			slog.Info("server_stopping")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().StringSliceVar(&origins, "trusted-origin", nil, "Extra host:port allowed to post forms")
	return cmd
}
