package scanapi

import "github.com/codescan-io/codescan/pkg/models"

// Artifact types accepted by the service.
const (
	ArtifactSourceCode = "SourceCode"
	ArtifactBuiltJars  = "BuiltJars"
)

// SchemaVersion of the findings documents this client understands.
const SchemaVersion = "1.0"

// Status of a scan as reported by the service.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusFailed     Status = "Failed"
)

// JobStatus maps the service's status to the job lifecycle. Unrecognised
// statuses are treated as still running.
func (s Status) JobStatus() models.JobStatus {
	switch s {
	case StatusPending:
		return models.JobCreated
	case StatusCompleted:
		return models.JobCompleted
	case StatusFailed:
		return models.JobFailed
	case StatusInProgress:
		return models.JobRunning
	default:
		return models.JobRunning
	}
}

type CreateUploadURLRequest struct {
	ContentMD5   string `json:"contentMd5"`
	ArtifactType string `json:"artifactType"`
}

// UploadURL is a short-lived destination for an artifact.
type UploadURL struct {
	URL      string `json:"uploadUrl"`
	UploadID string `json:"uploadId"`
	// KMSKeyARN is set when the service wants the object encrypted with a
	// specific key
	KMSKeyARN string `json:"kmsKeyArn,omitempty"`
}

type ProgrammingLanguage struct {
	LanguageName string `json:"languageName"`
}

type CreateScanRequest struct {
	ClientToken         string              `json:"clientToken"`
	ProgrammingLanguage ProgrammingLanguage `json:"programmingLanguage"`
	// Artifacts maps artifact types to upload ids
	Artifacts map[string]string `json:"artifacts"`
	Scope     string            `json:"scope,omitempty"`
}

type Scan struct {
	JobID        string `json:"jobId,omitempty"`
	Status       Status `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// FindingsPage is one page of findings. Findings holds the raw JSON array of
// recommendation records.
type FindingsPage struct {
	Findings  string
	NextToken string
}
