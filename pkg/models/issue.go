package models

// Severity as reported by the scan service.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
	SeverityInfo     Severity = "Info"
)

// Issue is a single finding anchored to a file in the project.
type Issue struct {
	// Path is the absolute path of the file on disk
	Path string `json:"path"`
	// RelativePath is Path relative to the project root, using "/"
	RelativePath string       `json:"relativePath"`
	Location     FilePosition `json:"location"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`

	// The following are only set when the service provides them
	DetectorID string   `json:"detectorId,omitempty"`
	RuleID     string   `json:"ruleId,omitempty"`
	Severity   Severity `json:"severity,omitempty"`
	FindingID  string   `json:"findingId,omitempty"`
	HelpURL    string   `json:"helpUrl,omitempty"`
}
