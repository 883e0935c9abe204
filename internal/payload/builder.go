package payload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/codescan-io/codescan/internal/cmdlogger"
	"github.com/codescan-io/codescan/internal/language"
	"github.com/codescan-io/codescan/internal/project"
)

// headSize is how much of each file is given to the language detector.
const headSize = 512

type Limits struct {
	// MaxPayloadBytes caps the total size of the selected files, zero or
	// less meaning no limit
	MaxPayloadBytes int64
	// RequireBuildArtifacts fails the build unless the project has compiled
	// output to send alongside the sources
	RequireBuildArtifacts bool
}

// Builder walks a project and selects the files that make up its payload.
type Builder struct {
	Index    project.Index
	Detector language.Detector
	Limits   Limits
}

// Build selects the files to scan, starting with selectedFile, which is
// always included regardless of ignore rules.
//
// Module roots are walked depth-first. Ignored directories are not entered,
// and each directory is entered at most once even when reachable through
// symbolic links. Files that cannot be read are logged and skipped.
func (b *Builder) Build(ctx context.Context, selectedFile string) (*Metadata, error) {
	if selectedFile == "" {
		return nil, ErrNoFileSelected
	}

	selectedFile, err := filepath.Abs(selectedFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoFileSelected, err)
	}

	if info, err := os.Stat(selectedFile); err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a readable file", ErrNoFileSelected, selectedFile)
	}

	detector := b.Detector
	if detector == nil {
		detector = language.Default
	}

	m := NewManifest(b.Limits.MaxPayloadBytes)

	if err := b.addFile(m, detector, selectedFile); err != nil {
		if errors.Is(err, ErrPayloadTooLarge) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", ErrNoFileSelected, err)
	}

	if err := b.walk(ctx, m, detector, selectedFile); err != nil {
		return nil, err
	}

	metadata, err := m.Finalize()
	if err != nil {
		return nil, err
	}

	if b.Limits.RequireBuildArtifacts {
		metadata.BuildArtifacts, err = b.collectBuildArtifacts(ctx)
		if err != nil {
			return nil, err
		}
	}

	cmdlogger.Debugf("Selected %d files (%d bytes, %d lines), dominant language %s", len(metadata.Files), metadata.TotalSize, metadata.TotalLines, metadata.Language)

	return metadata, nil
}

func (b *Builder) walk(ctx context.Context, m *Manifest, detector language.Detector, selectedFile string) error {
	roots := b.Index.ModuleRoots()

	stack := make([]project.Entry, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, project.Entry{Path: roots[i], IsDir: true})
	}

	visited := make(map[string]struct{})

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		entry := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !entry.IsDir {
			if err := b.visitFile(m, detector, entry.Path, selectedFile); err != nil {
				return err
			}

			continue
		}

		key := directoryIdentity(entry.Path)
		if _, ok := visited[key]; ok {
			continue
		}
		visited[key] = struct{}{}

		children, err := b.Index.Children(entry.Path)
		if err != nil {
			cmdlogger.Warnf("%v: %s: %v", ErrFileUnreadable, entry.Path, err)

			continue
		}

		// pushed in reverse so that children are visited in listing order
		for i := len(children) - 1; i >= 0; i-- {
			child := children[i]

			if child.IsDir && (b.Index.IsVCSIgnored(child.Path, true) || b.Index.IsToolIgnored(child.Path, true)) {
				continue
			}

			stack = append(stack, child)
		}
	}

	return nil
}

func (b *Builder) visitFile(m *Manifest, detector language.Detector, path, selectedFile string) error {
	if path == selectedFile || m.Contains(path) {
		return nil
	}

	if b.Index.IsVCSIgnored(path, false) || b.Index.IsToolIgnored(path, false) || b.Index.IsInLibrary(path) {
		return nil
	}

	err := b.addFile(m, detector, path)

	if errors.Is(err, ErrFileUnreadable) {
		cmdlogger.Warnf("Skipping %v", err)

		return nil
	}

	return err
}

// addFile measures path and adds it to the manifest. The size limit is
// checked before the file is read.
func (b *Builder) addFile(m *Manifest, detector language.Detector, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFileUnreadable, path, err)
	}

	if !info.Mode().IsRegular() {
		return nil
	}

	if !m.Fits(info.Size()) {
		return m.overflow(path, info.Size())
	}

	size, lines, head, err := measure(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFileUnreadable, path, err)
	}

	return m.Add(path, size, lines, detector.Detect(path, head))
}

// measure reads the file at path, returning its size, its number of lines
// and its first few bytes.
func measure(path string) (int64, int, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, nil, err
	}
	defer f.Close()

	counter := &lineCounter{}

	size, err := io.Copy(counter, f)
	if err != nil {
		return 0, 0, nil, err
	}

	return size, counter.lines(), counter.head, nil
}

type lineCounter struct {
	head     []byte
	newlines int
	last     byte
	written  bool
}

func (c *lineCounter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if room := headSize - len(c.head); room > 0 {
		c.head = append(c.head, p[:min(room, len(p))]...)
	}

	c.newlines += bytes.Count(p, []byte{'\n'})
	c.last = p[len(p)-1]
	c.written = true

	return len(p), nil
}

// lines counts a final line that has no trailing newline.
func (c *lineCounter) lines() int {
	if c.written && c.last != '\n' {
		return c.newlines + 1
	}

	return c.newlines
}

// directoryIdentity is the key used to detect directories reached more than
// once, such as through a symbolic link back to an ancestor.
func directoryIdentity(dir string) string {
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return resolved
	}

	return filepath.Clean(dir)
}

func (b *Builder) collectBuildArtifacts(ctx context.Context) ([]string, error) {
	dirs := b.Index.BuildArtifactDirs()
	if len(dirs) == 0 {
		return nil, fmt.Errorf("%w: none of the build output directories exist", ErrBuildArtifactsNotFound)
	}

	var files []string

	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				cmdlogger.Warnf("%v: %s: %v", ErrFileUnreadable, path, err)

				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.Type().IsRegular() {
				files = append(files, path)
			}

			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: build output directories are empty", ErrBuildArtifactsNotFound)
	}

	return files, nil
}
