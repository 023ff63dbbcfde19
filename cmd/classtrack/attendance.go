package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"classtrack/internal/application/orchestrators"
	"classtrack/internal/domain/attendance"
)

// showEdited prints the day after an edit.
func showEdited(cmd *cobra.Command, a *app, date string, day attendance.DailyAttendance) error {
	roster, err := a.students.List(cmd.Context())
	if err != nil {
		return err
	}
	printDay(cmd.OutOrStdout(), roster, date, day)
	return nil
}

func newToggleCmd(a *app) *cobra.Command {
	var date, studentID string
	var hour int
	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Mark or unmark one missed hour",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := a.date(date)
			day, err := orchestrators.ExecuteToggleHour(cmd.Context(), orchestrators.ToggleHourInput{
				Date:      d,
				StudentID: studentID,
				Hour:      hour,
			}, a.markDeps())
			if err != nil {
				return err
			}
			return showEdited(cmd, a, d, day)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&studentID, "student", "", "Student id")
	cmd.Flags().IntVar(&hour, "hour", 0, "Class hour 1-7")
	cmd.MarkFlagRequired("student")
	cmd.MarkFlagRequired("hour")
	return cmd
}

func newFullDayCmd(a *app) *cobra.Command {
	var date, studentID string
	cmd := &cobra.Command{
		Use:   "fullday",
		Short: "Mark or clear a whole-day absence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := a.date(date)
			day, err := orchestrators.ExecuteToggleFullDay(cmd.Context(), orchestrators.ToggleFullDayInput{
				Date:      d,
				StudentID: studentID,
			}, a.markDeps())
			if err != nil {
				return err
			}
			return showEdited(cmd, a, d, day)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&studentID, "student", "", "Student id")
	cmd.MarkFlagRequired("student")
	return cmd
}

func newNoClassCmd(a *app) *cobra.Command {
	var date string
	var off bool
	cmd := &cobra.Command{
		Use:   "noclass",
		Short: "Flag a date as a holiday (hours are kept)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := a.date(date)
			day, err := orchestrators.ExecuteSetNoClass(cmd.Context(), orchestrators.SetNoClassInput{
				Date:    d,
				NoClass: !off,
			}, a.markDeps())
			if err != nil {
				return err
			}
			return showEdited(cmd, a, d, day)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Date as YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&off, "off", false, "Clear the flag instead")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the recorded absences for a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := a.date(date)
			if err := attendance.ValidateDate(d); err != nil {
				return err
			}
			day, err := a.ledger.GetDay(cmd.Context(), d)
			if err != nil {
				return err
			}
			return showEdited(cmd, a, d, day)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Date as YYYY-MM-DD (default today)")
	return cmd
}

func newSubmitCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a day and sync it when a code is set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.syncContext(cmd.Context())
			defer cancel()

			res, err := orchestrators.ExecuteSubmitAttendance(ctx, orchestrators.SubmitAttendanceInput{
				Date: a.date(date),
			}, a.syncDeps())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "submitted %s (%d absent)\n", res.Date, res.Day.AbsentCount())
			if res.Sync == nil {
				fmt.Fprintln(out, "sync off: saved on this device only")
				return nil
			}
			printSync(out, *res.Sync)
			if res.Sync.Pulled && !res.Sync.Pushed {
				fmt.Fprintln(out, "push was rejected; run `classtrack sync push` to retry")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Date as YYYY-MM-DD (default today)")
	return cmd
}
