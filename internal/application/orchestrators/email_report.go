package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	emailAdapter "classtrack/internal/adapters/email"
	"classtrack/internal/application/projections"
	"classtrack/internal/domain/report"
)

// ErrNoRecipients is returned when no report recipients are configured.
var ErrNoRecipients = errors.New("no report recipients configured")

// EmailReportInput selects the report and its audience.
type EmailReportInput struct {
	Date       string
	Policy     report.EmptySections
	Recipients []string
}

// EmailReportDeps holds dependencies for EmailReport.
type EmailReportDeps struct {
	RosterStore projections.RosterStore
	LedgerStore projections.LedgerStore
	Sender      emailAdapter.Sender
	From        string
}

// ExecuteEmailReport renders one day's report and mails it as HTML with the
// plain-text report as alternative.
// PRE: Date is YYYY-MM-DD
// POST: Returns the provider receipt; nothing is sent when Recipients is empty
func ExecuteEmailReport(ctx context.Context, input EmailReportInput, deps EmailReportDeps) (emailAdapter.Receipt, error) {
	if len(input.Recipients) == 0 {
		return emailAdapter.Receipt{}, ErrNoRecipients
	}
	res, err := projections.QueryGetDailyReport(ctx, projections.GetDailyReportQuery{Date: input.Date}, projections.GetDailyReportDeps{
		RosterStore: deps.RosterStore,
		LedgerStore: deps.LedgerStore,
	})
	if err != nil {
		return emailAdapter.Receipt{}, err
	}

	html, err := res.Report.HTML(input.Policy)
	if err != nil {
		return emailAdapter.Receipt{}, fmt.Errorf("render report: %w", err)
	}
	msg := emailAdapter.Message{
		To:      input.Recipients,
		From:    deps.From,
		Subject: ReportSubject(res.Report),
		HTML:    html,
		Text:    res.Report.Text(input.Policy),
	}
	receipt, err := deps.Sender.Send(ctx, msg)
	if err != nil {
		return emailAdapter.Receipt{}, err
	}
	slog.Info("report_emailed", "date", input.Date, "recipients", len(input.Recipients), "message_id", receipt.MessageID)
	return receipt, nil
}

// ReportSubject is the e-mail subject for a report.
func ReportSubject(r report.Report) string {
	switch {
	case r.IsNoClass:
		return "No class " + report.DisplayDate(r.Date)
	case r.TotalAbsentCount == 0:
		return "All present " + report.DisplayDate(r.Date)
	}
	return fmt.Sprintf("Absentees %s (%d)", report.DisplayDate(r.Date), r.TotalAbsentCount)
}
