package output_test

import (
	"time"

	"github.com/codescan-io/codescan/pkg/models"
)

func issue(rel string, start, end int, title string, severity models.Severity) models.Issue {
	return models.Issue{
		Path:         "/work/proj/" + rel,
		RelativePath: rel,
		Location: models.FilePosition{
			Line:     models.Position{Start: start, End: end},
			Column:   models.Position{Start: 1, End: 12},
			Filename: "/work/proj/" + rel,
		},
		Title:       title,
		Description: "Untrusted input reaches a shell command, which allows attackers to run arbitrary commands.",
		DetectorID:  "python/os-command-injection@v1.0",
		RuleID:      "python-oscommandinjectionrule",
		Severity:    severity,
		HelpURL:     "https://cwe.mitre.org/data/definitions/78.html",
	}
}

func sampleResults() []models.ScanResult {
	issues := []models.Issue{
		issue("src/a.py", 3, 4, "OS command injection", models.SeverityHigh),
		issue("src/b.py", 10, 10, "OS command injection", models.SeverityLow),
	}

	return []models.ScanResult{
		{
			ProjectRoot:  "/work/proj",
			JobID:        "job-1",
			Language:     "python",
			PayloadSize:  2048,
			ScannedLines: 80,
			IssueCount:   len(issues),
			Issues:       issues,
			Payload: models.PayloadContext{
				Language:   "python",
				TotalLines: 80,
				FileCount:  2,
				Files:      []string{"/work/proj/src/a.py", "/work/proj/src/b.py"},
			},
			Elapsed: 3 * time.Second,
		},
	}
}
