package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/codescan-io/codescan/pkg/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
)

const (
	// descriptionWidth is where descriptions wrap when not printing to a terminal
	descriptionWidth = 60
	titleWidth       = 50
)

var (
	severityColor = map[models.Severity]lipgloss.Color{
		models.SeverityInfo:     lipgloss.Color("243"), // grey
		models.SeverityLow:      lipgloss.Color("28"),  // green
		models.SeverityMedium:   lipgloss.Color("208"), // orange
		models.SeverityHigh:     lipgloss.Color("160"), // red
		models.SeverityCritical: lipgloss.Color("88"),  // dark red
	}
	severityStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")). // white
			Bold(true).
			Align(lipgloss.Center)
	headingStyle = lipgloss.NewStyle().Bold(true)
)

// PrintTableResults prints the scan results into a human friendly table.
func PrintTableResults(results []models.ScanResult, outputWriter io.Writer, terminalWidth int) {
	if terminalWidth <= 0 {
		text.DisableColors()
	}

	total := 0

	for _, result := range results {
		total += result.IssueCount

		fmt.Fprintln(outputWriter, heading(fmt.Sprintf(
			"Scanned %s: %d files, %d lines of %s (job %s)",
			result.ProjectRoot,
			result.Payload.FileCount,
			result.ScannedLines,
			result.Language,
			result.JobID,
		), terminalWidth))

		if len(result.Issues) == 0 {
			continue
		}

		outputTable := newTable(outputWriter, terminalWidth)
		outputTable = tableBuilder(outputTable, result.Issues, terminalWidth)
		outputTable.Render()
	}

	if total == 0 {
		fmt.Fprintln(outputWriter, "No issues found")

		return
	}

	fmt.Fprintf(outputWriter, "Found %d %s in %d %s.\n", total, plural(total, "issue"), len(results), plural(len(results), "project"))
}

func newTable(outputWriter io.Writer, terminalWidth int) table.Writer {
	outputTable := table.NewWriter()
	outputTable.SetOutputMirror(outputWriter)

	// use fancy characters if we're outputting to a terminal
	if terminalWidth > 0 {
		outputTable.SetStyle(table.StyleRounded)
		outputTable.SetAllowedRowLength(terminalWidth)
	}

	outputTable.Style().Options.DoNotColorBordersAndSeparators = true
	outputTable.Style().Color.Row = text.Colors{text.Reset, text.BgHiBlack}
	outputTable.Style().Color.RowAlternate = text.Colors{text.Reset, text.BgBlack}

	return outputTable
}

func tableBuilder(outputTable table.Writer, issues []models.Issue, terminalWidth int) table.Writer {
	outputTable.AppendHeader(table.Row{"Severity", "Location", "Issue", "Detector"})

	wrapAt := descriptionWidth
	if terminalWidth > 0 {
		wrapAt = max(terminalWidth/3, 30)
	}

	for _, issue := range issues {
		summary := truncate.StringWithTail(issue.Title, titleWidth, "…")
		if issue.Description != "" {
			summary += "\n" + wordwrap.String(issue.Description, wrapAt)
		}

		outputTable.AppendRow(table.Row{
			renderSeverity(issue.Severity, terminalWidth),
			location(issue),
			summary,
			issue.DetectorID,
		})
	}

	return outputTable
}

func location(issue models.Issue) string {
	loc := issue.RelativePath + ":" + strconv.Itoa(issue.Location.Line.Start)
	if issue.Location.Line.End > issue.Location.Line.Start {
		loc += "-" + strconv.Itoa(issue.Location.Line.End)
	}

	return loc
}

func renderSeverity(severity models.Severity, terminalWidth int) string {
	label := string(severity)
	if label == "" {
		label = "Unknown"
	}

	if terminalWidth <= 0 {
		return label
	}

	color, ok := severityColor[severity]
	if !ok {
		color = severityColor[models.SeverityInfo]
	}

	return severityStyle.Width(10).Background(color).Render(label)
}

func heading(s string, terminalWidth int) string {
	if terminalWidth <= 0 {
		return s
	}

	return headingStyle.Render(s)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}

	return word + "s"
}
