package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newRootCmd builds the command tree around v, which carries defaults and
// environment bindings.
func newRootCmd(v *viper.Viper) *cobra.Command {
	a := &app{v: v}
	var configFile string

	root := &cobra.Command{
		Use:           "classtrack",
		Short:         "Record hourly class absences and share them between devices",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd, configFile, cmd.Name() == "serve")
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (yaml, toml or json)")
	pf.String("db", "", "SQLite database path (default classtrack.db)")
	pf.String("log-level", "", "debug, info, warn or error")
	pf.String("sync-url", "", "Base URL of the key-value endpoint")
	v.BindPFlag("db_path", pf.Lookup("db"))
	v.BindPFlag("log_level", pf.Lookup("log-level"))
	v.BindPFlag("sync.base_url", pf.Lookup("sync-url"))

	root.AddCommand(
		newStudentsCmd(a),
		newToggleCmd(a),
		newFullDayCmd(a),
		newNoClassCmd(a),
		newShowCmd(a),
		newSubmitCmd(a),
		newReportCmd(a),
		newHistoryCmd(a),
		newSyncCmd(a),
		newLedgerCmd(a),
		newServeCmd(a),
	)
	return root
}
