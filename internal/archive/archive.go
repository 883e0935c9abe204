// Package archive packages payload files into the zip layout the scan
// service unpacks.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/codescan-io/codescan/internal/cmdlogger"
	"github.com/opencontainers/go-digest"
)

var ErrArchiveWrite = errors.New("failed to write archive")

// Directory markers written after the sources, in this order, even when
// empty.
const (
	ArtifactsDir = "requiredArtifacts/"
	LogsDir      = ArtifactsDir + "buildAndExecuteLogs/"
	RepoMapDir   = ArtifactsDir + "repoMapData/"
	CoverageDir  = ArtifactsDir + "testCoverage/"
)

var markers = []string{ArtifactsDir, LogsDir, RepoMapDir, CoverageDir}

// modified is stamped on every entry so that the same files in the same
// order always produce the same bytes.
var modified = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Archive is a zip file on disk. It is temporary and should be removed by
// whoever asked for it once it has been uploaded.
type Archive struct {
	Path    string
	Size    int64
	Digest  digest.Digest
	Entries []string
}

// Remove deletes the archive from disk.
func (a *Archive) Remove() error {
	if a == nil || a.Path == "" {
		return nil
	}

	err := os.Remove(a.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return err
}

// Packager writes archives into TempDir, or the system temporary directory
// if it is empty.
type Packager struct {
	TempDir string
}

// Package writes files, named relative to the parent of projectRoot, followed
// by the required directory markers and, when auxLog is not empty, the log
// file under [LogsDir].
func (p Packager) Package(files []string, projectRoot string, auxLog string) (*Archive, error) {
	return p.write("codescan-src-*.zip", files, projectRoot, true, auxLog)
}

// PackageBuildArtifacts writes compiled output files without any markers.
func (p Packager) PackageBuildArtifacts(files []string, projectRoot string) (*Archive, error) {
	return p.write("codescan-build-*.zip", files, projectRoot, false, "")
}

func (p Packager) write(pattern string, files []string, projectRoot string, withMarkers bool, auxLog string) (_ *Archive, err error) {
	f, err := os.CreateTemp(p.TempDir, pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchiveWrite, err)
	}

	archive := &Archive{Path: f.Name()}

	// partial archives must never be uploaded
	defer func() {
		if err == nil {
			return
		}

		_ = f.Close()
		if rmErr := archive.Remove(); rmErr != nil {
			cmdlogger.Debugf("failed to remove partial archive %s: %v", archive.Path, rmErr)
		}
	}()

	zw := zip.NewWriter(f)

	for _, file := range files {
		name, err := EntryName(projectRoot, file)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrArchiveWrite, file, err)
		}

		if err := addFile(zw, name, file); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrArchiveWrite, file, err)
		}
		archive.Entries = append(archive.Entries, name)
	}

	if withMarkers {
		for _, marker := range markers {
			if _, err := zw.CreateHeader(&zip.FileHeader{Name: marker, Method: zip.Store, Modified: modified}); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrArchiveWrite, marker, err)
			}
			archive.Entries = append(archive.Entries, marker)
		}
	}

	if auxLog != "" {
		name := LogsDir + filepath.Base(auxLog)
		if err := addFile(zw, name, auxLog); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrArchiveWrite, auxLog, err)
		}
		archive.Entries = append(archive.Entries, name)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrArchiveWrite, archive.Path, err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrArchiveWrite, archive.Path, err)
	}

	archive.Digest, err = digest.FromReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrArchiveWrite, archive.Path, err)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrArchiveWrite, archive.Path, err)
	}
	archive.Size = info.Size()

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrArchiveWrite, archive.Path, err)
	}

	return archive, nil
}

// EntryName is the name file is stored under: the base name of projectRoot
// followed by the path of file relative to it, separated by "/".
func EntryName(projectRoot, file string) (string, error) {
	rel, err := filepath.Rel(projectRoot, file)
	if err != nil {
		return "", err
	}

	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is not inside %s", file, projectRoot)
	}

	return path.Join(filepath.Base(projectRoot), rel), nil
}

func addFile(zw *zip.Writer, name, file string) error {
	src, err := os.Open(file)
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return err
	}

	_, err = io.Copy(w, src)

	return err
}
