package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"classtrack/internal/application/orchestrators"
)

func newLedgerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Back up, restore or reset the attendance ledger",
	}
	cmd.AddCommand(newLedgerExportCmd(a), newLedgerImportCmd(a), newLedgerResetCmd(a))
	return cmd
}

func newLedgerExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE",
		Short: "Write the ledger as JSON (- for stdout)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			var w io.Writer = cmd.OutOrStdout()
			if args[0] != "-" {
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				defer func() {
					if cerr := f.Close(); err == nil {
						err = cerr
					}
				}()
				w = f
			}
			n, err := orchestrators.ExecuteExportLedger(cmd.Context(), w, orchestrators.LedgerDeps{LedgerStore: a.ledger})
			if err != nil {
				return err
			}
			if args[0] != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d dates to %s\n", n, args[0])
			}
			return nil
		},
	}
}

func newLedgerImportCmd(a *app) *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Merge a JSON backup into the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			n, err := orchestrators.ExecuteImportLedger(cmd.Context(), orchestrators.ImportLedgerInput{
				Reader:  f,
				Replace: replace,
			}, orchestrators.LedgerDeps{LedgerStore: a.ledger})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ledger now holds %d dates\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Overwrite the ledger instead of merging")
	return cmd
}

var errNeedsConfirm = errors.New("refusing to reset without --yes")

func newLedgerResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every recorded day (roster and sync code are kept)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errNeedsConfirm
			}
			if err := orchestrators.ExecuteResetLedger(cmd.Context(), orchestrators.LedgerDeps{LedgerStore: a.ledger}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ledger cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}
