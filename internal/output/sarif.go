package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/codescan-io/codescan/internal/version"
	"github.com/codescan-io/codescan/pkg/models"
	"github.com/owenrumney/go-sarif/v2/sarif"
)

// sarifLevel maps issue severities to SARIF result levels.
func sarifLevel(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical, models.SeverityHigh:
		return "error"
	case models.SeverityMedium:
		return "warning"
	case models.SeverityLow, models.SeverityInfo:
		return "note"
	default:
		return "warning"
	}
}

// ruleID identifies the rule an issue was raised by, falling back to its
// detector and then its title when the service does not name one.
func ruleID(issue models.Issue) string {
	for _, id := range []string{issue.RuleID, issue.DetectorID, issue.Title} {
		if id != "" {
			return id
		}
	}

	return "codescan"
}

// artifactPath is the path issues are reported against: relative to the
// working directory when the file is inside it, otherwise absolute.
func artifactPath(path string) string {
	if wd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(wd, path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}

	return filepath.ToSlash(path)
}

// PrintSARIFReport prints SARIF output to outputWriter
func PrintSARIFReport(results []models.ScanResult, outputWriter io.Writer) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return err
	}

	run := sarif.NewRunWithInformationURI("codescan", "https://github.com/codescan-io/codescan")
	run.Tool.Driver.WithVersion(version.CodescanVersion)

	rules := map[string]bool{}

	for _, result := range results {
		for _, issue := range result.Issues {
			id := ruleID(issue)

			if !rules[id] {
				rules[id] = true

				rule := run.AddRule(id).
					WithName(issue.Title).
					WithShortDescription(sarif.NewMultiformatMessageString(issue.Title)).
					WithFullDescription(sarif.NewMultiformatMessageString(issue.Description).WithMarkdown(issue.Description))

				if issue.HelpURL != "" {
					rule.WithMarkdownHelp(fmt.Sprintf("[%s](%s)", issue.Title, issue.HelpURL)).
						WithTextHelp(issue.HelpURL)
				}
			}

			path := artifactPath(issue.Path)
			run.AddDistinctArtifact(path)

			run.CreateResultForRule(id).
				WithLevel(sarifLevel(issue.Severity)).
				WithMessage(sarif.NewTextMessage(issue.Title)).
				AddLocation(
					sarif.NewLocationWithPhysicalLocation(
						sarif.NewPhysicalLocation().
							WithArtifactLocation(sarif.NewSimpleArtifactLocation(path)).
							WithRegion(
								sarif.NewRegion().
									WithStartLine(issue.Location.Line.Start).
									WithEndLine(issue.Location.Line.End).
									WithStartColumn(issue.Location.Column.Start).
									WithEndColumn(issue.Location.Column.End),
							),
					))
		}
	}

	report.AddRun(run)

	err = report.PrettyWrite(outputWriter)
	if err != nil {
		return err
	}
	fmt.Fprintln(outputWriter)

	return nil
}
