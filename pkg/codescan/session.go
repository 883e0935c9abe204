// Package codescan runs scans of a project against the remote scan service.
package codescan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/codescan-io/codescan/internal/archive"
	"github.com/codescan-io/codescan/internal/cmdlogger"
	"github.com/codescan-io/codescan/internal/findings"
	"github.com/codescan-io/codescan/internal/payload"
	"github.com/codescan-io/codescan/internal/scanapi"
	"github.com/codescan-io/codescan/pkg/models"
	"github.com/google/uuid"
)

// Job is the remote side of a session.
type Job struct {
	ID string
	// ClientToken makes job creation idempotent, and is the same for the
	// whole life of a session
	ClientToken string
	Status      models.JobStatus
}

// artifact is an archive waiting to be uploaded, along with its type tag.
type artifact struct {
	kind    string
	archive *archive.Archive
}

// Session is a single scan of a project: it builds and uploads the payload,
// starts a job, waits for it and collects its findings.
//
// A Session can only be run once; scanning again requires a new Session.
type Session struct {
	opts Options

	mu       sync.Mutex
	state    State
	started  bool
	job      Job
	archives []*archive.Archive
}

func NewSession(opts Options) *Session {
	return &Session{
		opts:  opts.withDefaults(),
		state: StateBuildingPayload,
		job: Job{
			ClientToken: uuid.NewString(),
			Status:      models.JobNotStarted,
		},
	}
}

// State returns the step the session is currently at.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Job returns a copy of the session's remote job.
func (s *Session) Job() Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.job
}

func (s *Session) setState(to State) {
	s.mu.Lock()
	next, err := transition(s.state, to)
	if err != nil {
		s.mu.Unlock()
		panic(err)
	}
	s.state = next
	s.mu.Unlock()

	cmdlogger.Debugf("Scan of %s is now %s", s.opts.ProjectRoot, next)

	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(next)
	}
}

func (s *Session) setJobStatus(status models.JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.job.Status.CanAdvanceTo(status) {
		cmdlogger.Debugf("Ignoring job %s moving from %s back to %s", s.job.ID, s.job.Status, status)

		return
	}

	s.job.Status = status
}

// Run performs the scan. Any failure leaves the session in StateFailed and is
// returned as the only error; temporary archives are removed either way.
func (s *Session) Run(ctx context.Context) (_ *models.ScanResult, err error) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()

		return nil, errSessionAlreadyRun
	}
	s.started = true
	s.mu.Unlock()

	start := time.Now()

	defer s.removeArchives()
	defer func() {
		if err != nil {
			s.setState(StateFailed)
		}
	}()

	pc, meta, artifacts, err := s.buildPayload(ctx)
	if err != nil {
		return nil, err
	}

	s.setState(StateUploading)
	uploads, err := s.upload(ctx, artifacts)
	if err != nil {
		return nil, err
	}

	s.setState(StateCreatingScan)
	if err := s.createScan(ctx, meta.Language, uploads); err != nil {
		return nil, err
	}

	// polling and fetching, retries included, share the scan deadline
	jobCtx, cancel := context.WithDeadline(ctx, start.Add(s.opts.ScanTimeout))
	defer cancel()

	s.setState(StatePolling)
	if err := s.poll(ctx, jobCtx); err != nil {
		return nil, err
	}

	s.setState(StateFetchingResults)
	pages, err := s.fetchFindings(ctx, jobCtx)
	if err != nil {
		return nil, err
	}

	issues := findings.NewMapper(s.opts.ProjectRoot).Map(pages)

	s.setState(StateDone)

	return &models.ScanResult{
		ProjectRoot:  s.opts.ProjectRoot,
		JobID:        s.Job().ID,
		Language:     meta.Language,
		PayloadSize:  meta.TotalSize,
		ScannedLines: meta.TotalLines,
		IssueCount:   len(issues),
		Issues:       issues,
		Payload:      *pc,
		Elapsed:      time.Since(start),
	}, nil
}

func (s *Session) track(a *archive.Archive) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.archives = append(s.archives, a)
}

func (s *Session) removeArchives() {
	s.mu.Lock()
	archives := s.archives
	s.archives = nil
	s.mu.Unlock()

	for _, a := range archives {
		if err := a.Remove(); err != nil {
			cmdlogger.Debugf("Failed to remove %s: %v", a.Path, err)
		}
	}
}

func (s *Session) buildPayload(ctx context.Context) (*models.PayloadContext, *payload.Metadata, []artifact, error) {
	buildCtx, cancel := context.WithTimeout(ctx, s.opts.PayloadBuildTimeout)
	defer cancel()

	started := time.Now()

	meta, err := s.opts.Builder.Build(buildCtx, s.opts.SelectedFile)
	if err != nil {
		return nil, nil, nil, s.buildError(ctx, err)
	}

	source, err := s.opts.Packager.Package(meta.Files, s.opts.ProjectRoot, s.opts.BuildLog)
	if err != nil {
		return nil, nil, nil, err
	}
	s.track(source)

	artifacts := []artifact{{kind: scanapi.ArtifactSourceCode, archive: source}}

	if len(meta.BuildArtifacts) > 0 {
		built, err := s.opts.Packager.PackageBuildArtifacts(meta.BuildArtifacts, s.opts.ProjectRoot)
		if err != nil {
			return nil, nil, nil, err
		}
		s.track(built)

		artifacts = append(artifacts, artifact{kind: scanapi.ArtifactBuiltJars, archive: built})
	}

	// packaging does not watch the context, so check it overran afterwards
	if err := buildCtx.Err(); err != nil {
		return nil, nil, nil, s.buildError(ctx, err)
	}

	cmdlogger.Infof(
		"Built payload of %d files (%d lines of %s) for %s",
		len(meta.Files), meta.TotalLines, meta.Language, s.opts.ProjectRoot,
	)

	return &models.PayloadContext{
		Language:      meta.Language,
		TotalLines:    meta.TotalLines,
		FileCount:     len(meta.Files),
		BuildDuration: time.Since(started),
		Files:         meta.Files,
		PayloadSize:   meta.TotalSize,
		ArchiveSize:   source.Size,
		ArchiveDigest: source.Digest.String(),
	}, meta, artifacts, nil
}

// buildError reports a build that ran out of time as ErrPayloadBuildTimeout,
// unless it was the caller's context that ended.
func (s *Session) buildError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: not finished after %s", ErrPayloadBuildTimeout, s.opts.PayloadBuildTimeout)
	}

	return err
}

// upload sends each artifact in order, returning the upload id of each by
// artifact type.
func (s *Session) upload(ctx context.Context, artifacts []artifact) (map[string]string, error) {
	uploads := make(map[string]string, len(artifacts))

	for _, a := range artifacts {
		id, err := s.uploadOne(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUploadFailed, a.kind, err)
		}

		uploads[a.kind] = id
	}

	return uploads, nil
}

func (s *Session) uploadOne(ctx context.Context, a artifact) (string, error) {
	f, err := os.Open(a.archive.Path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	checksum, err := scanapi.ContentMD5(f)
	if err != nil {
		return "", err
	}

	dest, err := s.opts.Service.CreateUploadURL(ctx, checksum, a.kind)
	if err != nil {
		return "", err
	}

	if err := s.opts.Service.PutObject(ctx, dest, f, a.archive.Size, checksum); err != nil {
		return "", err
	}

	cmdlogger.Debugf("Uploaded %s artifact as %s", a.kind, dest.UploadID)

	return dest.UploadID, nil
}

func (s *Session) createScan(ctx context.Context, language string, uploads map[string]string) error {
	scan, err := s.opts.Service.CreateScan(ctx, scanapi.CreateScanRequest{
		ClientToken:         s.Job().ClientToken,
		ProgrammingLanguage: scanapi.ProgrammingLanguage{LanguageName: language},
		Artifacts:           uploads,
		Scope:               s.opts.Scope,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrScanCreationFailed, err)
	}

	if scan.Status.JobStatus() == models.JobFailed {
		return fmt.Errorf("%w: %s", ErrScanCreationFailed, failureReason(scan))
	}

	s.mu.Lock()
	s.job.ID = scan.JobID
	s.mu.Unlock()

	s.setJobStatus(models.JobCreated)
	s.setJobStatus(scan.Status.JobStatus())

	cmdlogger.Infof("Started scan job %s for %s", scan.JobID, s.opts.ProjectRoot)

	return nil
}

// poll checks on the job every PollInterval until it finishes or jobCtx's
// deadline passes. No request is made once the deadline has passed.
func (s *Session) poll(ctx, jobCtx context.Context) error {
	jobID := s.Job().ID
	deadline, _ := jobCtx.Deadline()

	timer := time.NewTimer(s.opts.PollInterval)
	defer timer.Stop()

	for {
		if err := s.interrupted(ctx, jobCtx); err != nil {
			return err
		}

		scan, err := s.opts.Service.GetScan(jobCtx, jobID)
		if err != nil {
			if stopped := s.interrupted(ctx, jobCtx); stopped != nil {
				return stopped
			}

			return fmt.Errorf("%w: checking job %s: %w", ErrScanFailed, jobID, err)
		}

		s.setJobStatus(scan.Status.JobStatus())

		switch scan.Status.JobStatus() {
		case models.JobCompleted:
			return nil
		case models.JobFailed:
			return fmt.Errorf("%w: job %s: %s", ErrScanFailed, jobID, failureReason(scan))
		case models.JobNotStarted, models.JobCreated, models.JobRunning:
		}

		timer.Reset(min(s.opts.PollInterval, time.Until(deadline)))

		select {
		case <-jobCtx.Done():
		case <-timer.C:
		}
	}
}

// interrupted returns the caller's context error once it is done, or
// ErrScanTimeout once the scan deadline has passed.
func (s *Session) interrupted(ctx, jobCtx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline, ok := jobCtx.Deadline()
	if jobCtx.Err() != nil || (ok && !time.Now().Before(deadline)) {
		job := s.Job()

		return fmt.Errorf("%w: job %s still %s after %s", ErrScanTimeout, job.ID, job.Status, s.opts.ScanTimeout)
	}

	return nil
}

// fetchFindings follows the continuation tokens until the last page,
// returning the raw findings of every page in order.
func (s *Session) fetchFindings(ctx, jobCtx context.Context) ([]string, error) {
	jobID := s.Job().ID

	var pages []string

	nextToken := ""
	for {
		page, err := s.opts.Service.ListFindings(jobCtx, jobID, scanapi.SchemaVersion, nextToken)
		if err != nil {
			if stopped := s.interrupted(ctx, jobCtx); stopped != nil {
				return nil, stopped
			}

			return nil, fmt.Errorf("%w: fetching findings of job %s: %w", ErrScanFailed, jobID, err)
		}

		pages = append(pages, page.Findings)

		if page.NextToken == "" {
			return pages, nil
		}

		nextToken = page.NextToken
	}
}

func failureReason(scan *scanapi.Scan) string {
	if scan.ErrorMessage != "" {
		return scan.ErrorMessage
	}

	return "no reason given"
}
