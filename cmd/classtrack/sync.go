package main

import (
	"fmt"
	"time"

	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"classtrack/internal/application/orchestrators"
	"classtrack/internal/application/projections"
)

func newSyncCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Share the ledger with other devices through an access code",
	}
	cmd.AddCommand(
		newSyncSetupCmd(a),
		newSyncPullCmd(a),
		newSyncPushCmd(a),
		newSyncStatusCmd(a),
		newSyncClearCmd(a),
	)
	return cmd
}

func newSyncSetupCmd(a *app) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Join an access code, or generate a new one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.syncContext(cmd.Context())
			defer cancel()

			res, err := orchestrators.ExecuteSetupSync(ctx, orchestrators.SetupSyncInput{
				Code:       code,
				CodePrefix: a.cfg.Sync.CodePrefix,
			}, a.syncDeps())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Generated {
				fmt.Fprintf(out, "new access code: %s\nenter it on the other devices with: classtrack sync setup --code %s\n", res.Code, res.Code)
			} else {
				fmt.Fprintf(out, "joined %s\n", res.Code)
			}
			printSync(out, res.Sync)
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "Existing access code to join")
	return cmd
}

func newSyncPullCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Merge the shared ledger into this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.syncContext(cmd.Context())
			defer cancel()
			res, err := orchestrators.ExecutePull(ctx, a.syncDeps())
			if err != nil {
				return err
			}
			printSync(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func newSyncPushCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Overwrite the shared ledger with this device's copy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.syncContext(cmd.Context())
			defer cancel()
			res, err := orchestrators.ExecutePush(ctx, a.syncDeps())
			if err != nil {
				return err
			}
			printSync(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func newSyncStatusCmd(a *app) *cobra.Command {
	var qrFile string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the access code, last sync and ledger fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := projections.QueryGetSyncStatus(cmd.Context(), projections.GetSyncStatusDeps{
				LedgerStore:  a.ledger,
				SettingStore: a.settings,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !st.Enabled {
				fmt.Fprintln(out, "sync off")
			} else {
				fmt.Fprintf(out, "code:        %s\n", st.Code)
			}
			last := "never"
			if !st.LastSync.IsZero() {
				last = st.LastSync.Local().Format(time.DateTime)
			}
			fmt.Fprintf(out, "last sync:   %s\n", last)
			fmt.Fprintf(out, "dates:       %d\n", st.Dates)
			fmt.Fprintf(out, "fingerprint: %s\n", st.Fingerprint)

			if qrFile != "" {
				if !st.Enabled {
					return fmt.Errorf("no access code to encode")
				}
				if err := qrcode.WriteFile(st.Code, qrcode.Medium, 256, qrFile); err != nil {
					return fmt.Errorf("write qr code: %w", err)
				}
				fmt.Fprintf(out, "qr code written to %s\n", qrFile)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&qrFile, "qr", "", "Write the access code as a PNG QR code to this file")
	return cmd
}

func newSyncClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Stop syncing; the local ledger is kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := orchestrators.ExecuteClearSync(cmd.Context(), a.syncDeps()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sync off")
			return nil
		},
	}
}
