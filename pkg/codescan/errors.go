package codescan

import "errors"

var (
	ErrPayloadBuildTimeout = errors.New("payload build timed out")
	ErrUploadFailed        = errors.New("artifact upload failed")
	ErrScanCreationFailed  = errors.New("scan creation failed")
	ErrScanFailed          = errors.New("scan failed")
	ErrScanTimeout         = errors.New("scan timed out")
)

// ErrIssuesFound is returned by callers that want to signal that a scan
// completed and reported at least one issue.
var ErrIssuesFound = errors.New("issues found")

var errSessionAlreadyRun = errors.New("scan session has already been run")
