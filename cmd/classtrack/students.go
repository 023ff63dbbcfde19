package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"classtrack/internal/application/orchestrators"
	"classtrack/internal/application/projections"
)

func newStudentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "students",
		Short: "Manage the class roster",
	}
	cmd.AddCommand(newStudentsImportCmd(a), newStudentsListCmd(a))
	return cmd
}

func newStudentsImportCmd(a *app) *cobra.Command {
	var replace, dryRun bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import students from a .csv or .xlsx class list",
		Long: "Import students from a class list with name and registration number\n" +
			"columns (and optionally an id column). Students matched by id or\n" +
			"registration number keep their id so recorded absences stay attached.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := orchestrators.ExecuteImportRoster(cmd.Context(), orchestrators.ImportRosterInput{
				Reader:   f,
				Filename: filepath.Base(args[0]),
				Replace:  replace,
				DryRun:   dryRun,
			}, orchestrators.ImportRosterDeps{
				RosterStore: a.students,
				GenerateID:  uuid.NewString,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, re := range res.Errors {
				fmt.Fprintf(out, "row %d: %s\n", re.Row, re.Message)
			}
			verb := "imported"
			if res.DryRun {
				verb = "would import"
			}
			fmt.Fprintf(out, "%s %d rows: %d created, %d updated, %d skipped\n",
				verb, res.Total, res.Created, res.Updated, len(res.Errors))
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Drop students missing from the file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the file without saving")
	return cmd
}

func newStudentsListCmd(a *app) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List students in roster order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			roster, err := projections.QueryGetRoster(cmd.Context(),
				projections.GetRosterQuery{Search: search},
				projections.GetRosterDeps{RosterStore: a.students})
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tREG\tNAME")
			for _, s := range roster {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.RegNumber, s.Name)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by name or registration number")
	return cmd
}
