package codescan

import (
	"context"
	"io"
	"time"

	"github.com/codescan-io/codescan/internal/archive"
	"github.com/codescan-io/codescan/internal/payload"
	"github.com/codescan-io/codescan/internal/scanapi"
)

const (
	DefaultPayloadBuildTimeout = 60 * time.Second
	DefaultScanTimeout         = 10 * time.Minute
	DefaultPollInterval        = time.Second
)

// Service is the remote scan service, as implemented by *scanapi.Client.
type Service interface {
	CreateUploadURL(ctx context.Context, contentMD5, artifactType string) (*scanapi.UploadURL, error)
	PutObject(ctx context.Context, dest *scanapi.UploadURL, body io.ReaderAt, size int64, contentMD5 string) error
	CreateScan(ctx context.Context, request scanapi.CreateScanRequest) (*scanapi.Scan, error)
	GetScan(ctx context.Context, jobID string) (*scanapi.Scan, error)
	ListFindings(ctx context.Context, jobID, schemaVersion, nextToken string) (*scanapi.FindingsPage, error)
}

// PayloadBuilder selects the files to send, as implemented by *payload.Builder.
type PayloadBuilder interface {
	Build(ctx context.Context, selectedFile string) (*payload.Metadata, error)
}

// Packager writes the selected files into archives, as implemented by
// archive.Packager.
type Packager interface {
	Package(files []string, projectRoot string, auxLog string) (*archive.Archive, error)
	PackageBuildArtifacts(files []string, projectRoot string) (*archive.Archive, error)
}

var _ Service = &scanapi.Client{}
var _ PayloadBuilder = &payload.Builder{}
var _ Packager = archive.Packager{}

type Options struct {
	Builder  PayloadBuilder
	Packager Packager
	Service  Service

	// ProjectRoot is the directory being scanned
	ProjectRoot string
	// SelectedFile is always part of the payload
	SelectedFile string
	// BuildLog is an optional log attached to the source archive
	BuildLog string
	// Scope is passed through to the service, either "project" or "file"
	Scope string

	PayloadBuildTimeout time.Duration
	// ScanTimeout is measured from the start of the session
	ScanTimeout  time.Duration
	PollInterval time.Duration

	// OnStateChange is called with every state the session moves to
	OnStateChange func(State)
}

func (o Options) withDefaults() Options {
	if o.Packager == nil {
		o.Packager = archive.Packager{}
	}
	if o.PayloadBuildTimeout <= 0 {
		o.PayloadBuildTimeout = DefaultPayloadBuildTimeout
	}
	if o.ScanTimeout <= 0 {
		o.ScanTimeout = DefaultScanTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}

	return o
}
