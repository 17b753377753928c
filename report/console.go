package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/replprobe/replprobe/types"
)

// ConsoleFormatter renders a completed run as a table on the console.
type ConsoleFormatter struct {
	out io.Writer
}

// NewConsoleFormatter creates a formatter writing to out.
func NewConsoleFormatter(out io.Writer) *ConsoleFormatter {
	return &ConsoleFormatter{out: out}
}

// FormatResults renders the run summary and its problem records.
func (f *ConsoleFormatter) FormatResults(runID string, summary types.TestRunSummary, severity types.Severity, records []types.TestResultRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle(fmt.Sprintf("Test Run %s (%.2fs)", runID, summary.Elapsed))

	t.AppendHeader(table.Row{
		"Test", "File", "Line", "Severity", "Message",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Line", Align: text.AlignRight},
		{Name: "Message", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, rec := range records {
		for _, problem := range rec.Problems() {
			line := "-"
			if problem.Line > 0 {
				line = fmt.Sprintf("%d", problem.Line)
			}
			t.AppendRow(table.Row{
				rec.TestID,
				rec.SourceFile,
				line,
				string(problem.Severity()),
				problem.ProblemMessage(),
			})
		}
	}

	switch severity {
	case types.SeveritySuccess:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	case types.SeverityFail:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		"",
		getResultString(severity),
		fmt.Sprintf("%d tests, %d passed, %d failed, %d errored",
			summary.Tests, summary.Passed, summary.Failed, summary.Errored),
	})

	t.Render()
}

// getResultString returns a short string representing the run outcome.
func getResultString(severity types.Severity) string {
	switch severity {
	case types.SeveritySuccess:
		return "✓ pass"
	case types.SeverityFail:
		return "✗ fail"
	default:
		return "✗ error"
	}
}
