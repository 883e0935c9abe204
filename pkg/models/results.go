package models

import "time"

// JobStatus is the lifecycle of a remote scan job. It only moves forward,
// and JobCompleted and JobFailed are terminal.
type JobStatus string

const (
	JobNotStarted JobStatus = "not-started"
	JobCreated    JobStatus = "created"
	JobRunning    JobStatus = "running"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// order gives the position of each status in the lifecycle
func (s JobStatus) order() int {
	switch s {
	case JobNotStarted:
		return 0
	case JobCreated:
		return 1
	case JobRunning:
		return 2
	case JobCompleted, JobFailed:
		return 3
	default:
		return -1
	}
}

// CanAdvanceTo reports whether a job with status s may move to next.
// Staying in the same non-terminal status is allowed, as polling observes
// the same status repeatedly.
func (s JobStatus) CanAdvanceTo(next JobStatus) bool {
	if s.IsTerminal() || next.order() < 0 {
		return false
	}

	return next.order() >= s.order()
}

// PayloadContext summarises the payload that was sent for a scan.
type PayloadContext struct {
	Language      string        `json:"language"`
	TotalLines    int           `json:"totalLines"`
	FileCount     int           `json:"fileCount"`
	BuildDuration time.Duration `json:"buildDuration"`
	Files         []string      `json:"files"`
	PayloadSize   int64         `json:"payloadSize"`
	ArchiveSize   int64         `json:"archiveSize"`
	ArchiveDigest string        `json:"archiveDigest"`
}

// ScanResult is the outcome of a successful scan.
type ScanResult struct {
	// ProjectRoot is the directory that was scanned
	ProjectRoot  string         `json:"projectRoot"`
	JobID        string         `json:"jobId"`
	Language     string         `json:"language"`
	PayloadSize  int64          `json:"payloadSize"`
	ScannedLines int            `json:"scannedLines"`
	IssueCount   int            `json:"issueCount"`
	Issues       []Issue        `json:"issues"`
	Payload      PayloadContext `json:"payload"`
	Elapsed      time.Duration  `json:"elapsed"`
}
