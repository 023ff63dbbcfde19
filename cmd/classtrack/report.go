package main

import (
	"fmt"

	"github.com/spf13/cobra"

	emailAdapter "classtrack/internal/adapters/email"
	"classtrack/internal/application/orchestrators"
	"classtrack/internal/application/projections"
	"classtrack/internal/domain/report"
)

func newReportCmd(a *app) *cobra.Command {
	var date, empty string
	var email bool
	var to []string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the absence report for a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := a.cfg.Report.EmptySections
			if empty != "" {
				p, err := report.ParseEmptySections(empty)
				if err != nil {
					return err
				}
				policy = p
			}
			d := a.date(date)

			if email {
				recipients := to
				if len(recipients) == 0 {
					recipients = a.cfg.Report.Recipients
				}
				receipt, err := orchestrators.ExecuteEmailReport(cmd.Context(), orchestrators.EmailReportInput{
					Date:       d,
					Policy:     policy,
					Recipients: recipients,
				}, orchestrators.EmailReportDeps{
					RosterStore: a.students,
					LedgerStore: a.ledger,
					Sender:      a.emailSender(),
					From:        a.cfg.Resend.From,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "report for %s sent to %d recipients (%s)\n", d, len(recipients), receipt.MessageID)
				return nil
			}

			res, err := projections.QueryGetDailyReport(cmd.Context(),
				projections.GetDailyReportQuery{Date: d},
				projections.GetDailyReportDeps{RosterStore: a.students, LedgerStore: a.ledger})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Report.Text(policy))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&empty, "empty", "", "Empty sections: nil or omit (default from config)")
	cmd.Flags().BoolVar(&email, "email", false, "E-mail the report instead of printing it")
	cmd.Flags().StringSliceVar(&to, "to", nil, "Recipients (default report.recipients)")
	return cmd
}

// emailSender selects Resend when a key is configured.
func (a *app) emailSender() emailAdapter.Sender {
	if a.cfg.Resend.Key == "" {
		return emailAdapter.NewNoopSender()
	}
	return emailAdapter.NewResendSender(a.cfg.Resend.Key, a.cfg.Resend.From)
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history STUDENT_ID",
		Short: "List the dates a student missed, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := projections.QueryGetStudentHistory(cmd.Context(),
				projections.GetStudentHistoryQuery{StudentID: args[0]},
				projections.GetStudentHistoryDeps{RosterStore: a.students, LedgerStore: a.ledger})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", sum.Student.Name, sum.Student.RegNumber)
			for _, e := range sum.Entries {
				fmt.Fprintf(out, "  %s  %v\n", report.DisplayDate(e.Date), e.Hours)
			}
			fmt.Fprintf(out, "%d hours over %d days\n", sum.TotalHoursMissed, sum.TotalAbsentDays)
			return nil
		},
	}
}
