package archive_test

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/codescan-io/codescan/internal/archive"
	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	p := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	return p
}

func readEntries(t *testing.T, path string) map[string]string {
	t.Helper()

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("could not open archive: %v", err)
	}
	defer r.Close()

	entries := make(map[string]string, len(r.File))
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("could not open entry %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("could not read entry %s: %v", f.Name, err)
		}
		entries[f.Name] = string(b)
	}

	return entries
}

func TestPackager_Package(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	root := filepath.Join(dir, "myproject")
	a := writeFile(t, root, "src/a.py", "print('a')\n")
	b := writeFile(t, root, "src/pkg/b.py", "print('b')\n")
	log := writeFile(t, dir, "logs/build.log", "BUILD OK\n")

	p := archive.Packager{TempDir: t.TempDir()}

	got, err := p.Package([]string{a, b}, root, log)
	if err != nil {
		t.Fatalf("Package() error = %v", err)
	}
	defer got.Remove()

	wantEntries := []string{
		"myproject/src/a.py",
		"myproject/src/pkg/b.py",
		"requiredArtifacts/",
		"requiredArtifacts/buildAndExecuteLogs/",
		"requiredArtifacts/repoMapData/",
		"requiredArtifacts/testCoverage/",
		"requiredArtifacts/buildAndExecuteLogs/build.log",
	}

	if diff := cmp.Diff(wantEntries, got.Entries); diff != "" {
		t.Errorf("Package().Entries mismatch (-want +got):\n%s", diff)
	}

	contents := readEntries(t, got.Path)

	if len(contents) != len(wantEntries) {
		t.Errorf("archive has %d entries, want %d", len(contents), len(wantEntries))
	}
	if contents["myproject/src/pkg/b.py"] != "print('b')\n" {
		t.Errorf("unexpected content for b.py: %q", contents["myproject/src/pkg/b.py"])
	}
	if contents["requiredArtifacts/buildAndExecuteLogs/build.log"] != "BUILD OK\n" {
		t.Errorf("unexpected content for build.log")
	}

	info, err := os.Stat(got.Path)
	if err != nil {
		t.Fatalf("archive missing: %v", err)
	}
	if info.Size() != got.Size {
		t.Errorf("Package().Size = %d, want %d", got.Size, info.Size())
	}
	if err := got.Digest.Validate(); err != nil {
		t.Errorf("Package().Digest is invalid: %v", err)
	}

	if err := got.Remove(); err != nil {
		t.Errorf("Remove() error = %v", err)
	}
	if _, err := os.Stat(got.Path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected archive to be removed, got %v", err)
	}
}

func TestPackager_Package_IsDeterministic(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "proj")
	a := writeFile(t, root, "a.go", "package a\n")
	b := writeFile(t, root, "b/b.go", "package b\n")

	p := archive.Packager{TempDir: t.TempDir()}

	first, err := p.Package([]string{a, b}, root, "")
	if err != nil {
		t.Fatalf("Package() error = %v", err)
	}
	defer first.Remove()

	second, err := p.Package([]string{a, b}, root, "")
	if err != nil {
		t.Fatalf("Package() error = %v", err)
	}
	defer second.Remove()

	if first.Digest != second.Digest {
		t.Errorf("same input gave different archives: %s != %s", first.Digest, second.Digest)
	}

	reversed, err := p.Package([]string{b, a}, root, "")
	if err != nil {
		t.Fatalf("Package() error = %v", err)
	}
	defer reversed.Remove()

	firstNames := append([]string{}, first.Entries...)
	reversedNames := append([]string{}, reversed.Entries...)
	sort.Strings(firstNames)
	sort.Strings(reversedNames)

	if diff := cmp.Diff(firstNames, reversedNames); diff != "" {
		t.Errorf("entry names depend on input order (-want +got):\n%s", diff)
	}
}

func TestPackager_Package_RejectsFilesOutsideRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	root := filepath.Join(dir, "proj")
	inside := writeFile(t, root, "a.py", "1\n")
	outside := writeFile(t, dir, "elsewhere/b.py", "2\n")

	tmp := t.TempDir()
	p := archive.Packager{TempDir: tmp}

	_, err := p.Package([]string{inside, outside}, root, "")
	if !errors.Is(err, archive.ErrArchiveWrite) {
		t.Fatalf("Package() error = %v, want %v", err, archive.ErrArchiveWrite)
	}

	leftovers, _ := os.ReadDir(tmp)
	if len(leftovers) != 0 {
		t.Errorf("expected partial archive to be removed, found %v", leftovers)
	}
}

func TestPackager_Package_MissingFile(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "proj")
	a := writeFile(t, root, "a.py", "1\n")

	tmp := t.TempDir()
	p := archive.Packager{TempDir: tmp}

	_, err := p.Package([]string{a, filepath.Join(root, "gone.py")}, root, "")
	if !errors.Is(err, archive.ErrArchiveWrite) {
		t.Fatalf("Package() error = %v, want %v", err, archive.ErrArchiveWrite)
	}

	leftovers, _ := os.ReadDir(tmp)
	if len(leftovers) != 0 {
		t.Errorf("expected partial archive to be removed, found %v", leftovers)
	}
}

func TestPackager_PackageBuildArtifacts(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "proj")
	class := writeFile(t, root, "build/classes/Main.class", "\xca\xfe")

	got, err := archive.Packager{TempDir: t.TempDir()}.PackageBuildArtifacts([]string{class}, root)
	if err != nil {
		t.Fatalf("PackageBuildArtifacts() error = %v", err)
	}
	defer got.Remove()

	if diff := cmp.Diff([]string{"proj/build/classes/Main.class"}, got.Entries); diff != "" {
		t.Errorf("PackageBuildArtifacts().Entries mismatch (-want +got):\n%s", diff)
	}
}

func TestEntryName(t *testing.T) {
	t.Parallel()

	root := filepath.Join(string(filepath.Separator)+"home", "dev", "proj")

	got, err := archive.EntryName(root, filepath.Join(root, "a", "b", "c.py"))
	if err != nil {
		t.Fatalf("EntryName() error = %v", err)
	}
	if got != "proj/a/b/c.py" {
		t.Errorf("EntryName() = %q, want %q", got, "proj/a/b/c.py")
	}

	if _, err := archive.EntryName(root, root); err == nil {
		t.Error("expected the root itself to be rejected")
	}
}
