package scan

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/codescan-io/codescan/internal/ignore"
	"github.com/codescan-io/codescan/internal/payload"
)

// target is one project to scan and the file the scan starts from.
type target struct {
	root     string
	selected string
}

// resolveTarget works out what to scan from a command line argument. A file
// is scanned as part of its enclosing git repository, or its own directory
// outside of one. A directory is scanned starting from selected, which is
// relative to the directory unless absolute.
func resolveTarget(arg, selected string) (target, error) {
	abs, err := filepath.Abs(arg)
	if err != nil {
		return target{}, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return target{}, fmt.Errorf("cannot scan %s: %w", arg, err)
	}

	if !info.IsDir() {
		return target{root: projectRootOf(abs), selected: abs}, nil
	}

	if selected == "" {
		return target{}, fmt.Errorf("%w: use --file to pick the file to scan from in %s", payload.ErrNoFileSelected, arg)
	}

	if !filepath.IsAbs(selected) {
		selected = filepath.Join(abs, selected)
	}

	return target{root: abs, selected: filepath.Clean(selected)}, nil
}

func projectRootOf(file string) string {
	dir := filepath.Dir(file)

	vcs, err := ignore.NewVCS(dir)
	if err != nil || vcs.RepoPath() == "" {
		return dir
	}

	return vcs.RepoPath()
}
