package ignore

import (
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// VCS reports whether paths are excluded by git.
type VCS struct {
	matcher  gitignore.Matcher
	repoPath string
}

// NewVCS reads the git ignore rules that apply to the project at root. A
// project outside of any git repository ignores nothing.
func NewVCS(root string) (*VCS, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	patterns, repoPath, err := parseGitIgnores(root)
	if err != nil {
		return nil, err
	}

	if repoPath == "" {
		return &VCS{}, nil
	}

	return &VCS{matcher: gitignore.NewMatcher(patterns), repoPath: repoPath}, nil
}

// Match returns true if the file or directory at absPath is ignored. The
// .git directory itself is always ignored.
func (m *VCS) Match(absPath string, isDir bool) bool {
	if m.matcher == nil {
		return false
	}

	pathInGit, err := filepath.Rel(m.repoPath, absPath)
	if err != nil || pathInGit == "." || outsideRoot(pathInGit) {
		return false
	}

	parts := strings.Split(pathInGit, string(filepath.Separator))
	if isDir && parts[len(parts)-1] == gitDir {
		return true
	}

	// must prepend "." to paths because of how gitignore patterns are parsed
	return m.matcher.Match(append([]string{"."}, parts...), isDir)
}

// RepoPath is the root of the enclosing git repository, or "" if there is
// none.
func (m *VCS) RepoPath() string {
	return m.repoPath
}
