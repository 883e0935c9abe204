package project_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/codescan-io/codescan/internal/project"
	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()

	p := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "src/a.py", "")
	writeFile(t, dir, "sub/module/b.py", "")
	writeFile(t, dir, "build/classes/A.class", "")

	idx, err := project.Open(dir, project.Options{
		ModuleRoots:       []string{"sub/module", "missing", "."},
		BuildArtifactDirs: []string{"build/classes", "target/classes"},
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if idx.Root() != dir {
		t.Errorf("Root() = %q, want %q", idx.Root(), dir)
	}

	wantModules := []string{dir, filepath.Join(dir, "sub", "module")}
	if diff := cmp.Diff(wantModules, idx.ModuleRoots()); diff != "" {
		t.Errorf("ModuleRoots() mismatch (-want +got):\n%s", diff)
	}

	wantArtifacts := []string{filepath.Join(dir, "build", "classes")}
	if diff := cmp.Diff(wantArtifacts, idx.BuildArtifactDirs()); diff != "" {
		t.Errorf("BuildArtifactDirs() mismatch (-want +got):\n%s", diff)
	}
}

func TestOpen_NotADirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "file.txt", "")

	if _, err := project.Open(filepath.Join(dir, "file.txt"), project.Options{}); err == nil {
		t.Error("expected an error when opening a file")
	}
	if _, err := project.Open(filepath.Join(dir, "missing"), project.Options{}); err == nil {
		t.Error("expected an error when opening a missing directory")
	}
}

func TestDirIndex_Children(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "b.py", "")
	writeFile(t, dir, "a/x.py", "")

	if err := os.Symlink(filepath.Join(dir, "a"), filepath.Join(dir, "link")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	idx, err := project.Open(dir, project.Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	got, err := idx.Children(dir)
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}

	want := []project.Entry{
		{Path: filepath.Join(dir, "a"), IsDir: true},
		{Path: filepath.Join(dir, "b.py"), IsDir: false},
		{Path: filepath.Join(dir, "link"), IsDir: true},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Children() mismatch (-want +got):\n%s", diff)
	}
}

func TestDirIndex_IsInLibrary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	idx, err := project.Open(dir, project.Options{LibraryDirs: []string{"vendor", "node_modules"}})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	tests := []struct {
		path string
		want bool
	}{
		{path: "vendor/c.py", want: true},
		{path: "web/node_modules/react/index.js", want: true},
		{path: "src/vendor.py", want: false},
		{path: "vendor", want: false},
		{path: "src/a.py", want: false},
		{path: "..config/vendor/x.py", want: true},
	}

	for _, tt := range tests {
		if got := idx.IsInLibrary(filepath.Join(dir, filepath.FromSlash(tt.path))); got != tt.want {
			t.Errorf("IsInLibrary(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	if idx.IsInLibrary(filepath.Join(filepath.Dir(dir), "vendor", "x.py")) {
		t.Error("paths outside the root are never in a library")
	}
}

func TestDirIndex_IsToolIgnored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, ".codescanignore", "*.md\n")

	idx, err := project.Open(dir, project.Options{ToolIgnoreFile: ".codescanignore", ExtraIgnores: []string{"tmp/"}})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if !idx.IsToolIgnored(filepath.Join(dir, "README.md"), false) {
		t.Error("expected README.md to be ignored")
	}
	if !idx.IsToolIgnored(filepath.Join(dir, "tmp"), true) {
		t.Error("expected tmp/ to be ignored")
	}
	if idx.IsToolIgnored(filepath.Join(dir, "main.py"), false) {
		t.Error("did not expect main.py to be ignored")
	}
	if idx.IsVCSIgnored(filepath.Join(dir, "main.py"), false) {
		t.Error("nothing is ignored by git outside a repository")
	}
}
