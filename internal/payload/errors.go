package payload

import "errors"

var (
	ErrNoFileSelected         = errors.New("no file selected")
	ErrPayloadTooLarge        = errors.New("payload exceeds the size limit")
	ErrNoValidFiles           = errors.New("no files with a supported language were found")
	ErrBuildArtifactsNotFound = errors.New("no build artifacts were found")

	// ErrFileUnreadable is logged and the file skipped, it never fails a build.
	ErrFileUnreadable = errors.New("file could not be read")
)
