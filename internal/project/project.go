// Package project indexes a project directory for payload building.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/codescan-io/codescan/internal/ignore"
)

// Entry is a single child of a directory.
type Entry struct {
	Path  string
	IsDir bool
}

// Index is the read-only view of a project used while building a payload.
// All paths are absolute.
type Index interface {
	Root() string
	ModuleRoots() []string
	Children(dir string) ([]Entry, error)
	IsVCSIgnored(path string, isDir bool) bool
	IsToolIgnored(path string, isDir bool) bool
	IsInLibrary(path string) bool
	BuildArtifactDirs() []string
}

type Options struct {
	// ToolIgnoreFile is the name of the ignore file read from the root
	ToolIgnoreFile string
	// ExtraIgnores are additional tool ignore patterns
	ExtraIgnores []string
	// LibraryDirs are directory names holding third-party sources
	LibraryDirs []string
	// BuildArtifactDirs are root-relative directories holding compiled output
	BuildArtifactDirs []string
	// ModuleRoots are root-relative directories scanned in addition to the
	// root itself
	ModuleRoots []string
}

// DirIndex is an [Index] over a directory on disk.
type DirIndex struct {
	root      string
	modules   []string
	libraries []string
	artifacts []string
	vcs       *ignore.VCS
	tool      *ignore.Tool
}

var _ Index = &DirIndex{}

// Open indexes the project rooted at root.
func Open(root string, opts Options) (*DirIndex, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open project: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("failed to open project: %s is not a directory", root)
	}

	vcs, err := ignore.NewVCS(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read git ignore rules: %w", err)
	}

	tool, err := ignore.NewTool(root, opts.ToolIgnoreFile, opts.ExtraIgnores)
	if err != nil {
		return nil, err
	}

	idx := &DirIndex{
		root:      root,
		modules:   []string{root},
		libraries: slices.Clone(opts.LibraryDirs),
		vcs:       vcs,
		tool:      tool,
	}

	for _, m := range opts.ModuleRoots {
		p := idx.resolve(m)
		if info, err := os.Stat(p); err == nil && info.IsDir() && !slices.Contains(idx.modules, p) {
			idx.modules = append(idx.modules, p)
		}
	}

	for _, d := range opts.BuildArtifactDirs {
		p := idx.resolve(d)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			idx.artifacts = append(idx.artifacts, p)
		}
	}

	return idx, nil
}

func (idx *DirIndex) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}

	return filepath.Join(idx.root, filepath.FromSlash(p))
}

func (idx *DirIndex) Root() string {
	return idx.root
}

func (idx *DirIndex) ModuleRoots() []string {
	return idx.modules
}

// Children lists dir, following symbolic links to decide whether an entry
// is a directory. Dangling links are reported as files.
func (idx *DirIndex) Children(dir string) ([]Entry, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(des))

	for _, de := range des {
		p := filepath.Join(dir, de.Name())
		isDir := de.IsDir()

		if de.Type()&os.ModeSymlink != 0 {
			if info, err := os.Stat(p); err == nil {
				isDir = info.IsDir()
			}
		}

		entries = append(entries, Entry{Path: p, IsDir: isDir})
	}

	return entries, nil
}

func (idx *DirIndex) IsVCSIgnored(path string, isDir bool) bool {
	return idx.vcs.Match(path, isDir)
}

func (idx *DirIndex) IsToolIgnored(path string, isDir bool) bool {
	return idx.tool.Match(path, isDir)
}

// IsInLibrary reports whether any directory between the root and path is a
// library directory.
func (idx *DirIndex) IsInLibrary(path string) bool {
	rel, err := filepath.Rel(idx.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}

	parts := strings.Split(rel, string(filepath.Separator))

	for _, part := range parts[:len(parts)-1] {
		if slices.Contains(idx.libraries, part) {
			return true
		}
	}

	return false
}

func (idx *DirIndex) BuildArtifactDirs() []string {
	return idx.artifacts
}
