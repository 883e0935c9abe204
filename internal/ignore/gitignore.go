// Package ignore decides whether project paths are excluded from a payload,
// either by version control (.gitignore and .git/info/exclude) or by the
// tool's own ignore file.
package ignore

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

const (
	commentPrefix   = "#"
	gitDir          = ".git"
	gitignoreFile   = ".gitignore"
	infoExcludeFile = gitDir + "/info/exclude"
)

// readIgnoreFile reads the patterns of a single ignore file, returning no
// patterns if it does not exist.
func readIgnoreFile(fs billy.Filesystem, path []string, ignoreFile string) ([]gitignore.Pattern, error) {
	f, err := fs.Open(fs.Join(append(path, ignoreFile)...))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}
	defer f.Close()

	var ps []gitignore.Pattern

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		s := scanner.Text()
		if !strings.HasPrefix(s, commentPrefix) && len(strings.TrimSpace(s)) > 0 {
			ps = append(ps, gitignore.ParsePattern(s, path))
		}
	}

	return ps, scanner.Err()
}

// readPatternsSkippingIgnored reads the .gitignore in path and every
// directory below it, without descending into directories that the patterns
// read so far already exclude.
func readPatternsSkippingIgnored(fs billy.Filesystem, path []string, accumulated []gitignore.Pattern) ([]gitignore.Pattern, error) {
	ps, err := readIgnoreFile(fs, path, gitignoreFile)
	if err != nil {
		return ps, err
	}

	fis, err := fs.ReadDir(fs.Join(path...))
	if err != nil {
		return ps, err
	}

	accumulated = append(accumulated, ps...)
	matcher := gitignore.NewMatcher(accumulated)

	for _, fi := range fis {
		if !fi.IsDir() || fi.Name() == gitDir {
			continue
		}

		childPath := append(append([]string{}, path...), fi.Name())
		if matcher.Match(childPath, true) {
			continue
		}

		subps, err := readPatternsSkippingIgnored(fs, childPath, accumulated)
		if err != nil {
			return ps, err
		}
		ps = append(ps, subps...)
	}

	return ps, nil
}

// parseGitIgnores collects the ignore patterns that apply to the project at
// root: the repository's info/exclude file, the .gitignore files of every
// ancestor up to the repository root, and those within root itself.
//
// The repository root is returned alongside the patterns, or "" when root is
// not inside a git repository, in which case no patterns are read.
func parseGitIgnores(root string) ([]gitignore.Pattern, string, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}

	tree, err := repo.Worktree()
	if err != nil {
		return nil, "", err
	}

	repoRoot, err := filepath.Abs(tree.Filesystem.Root())
	if err != nil {
		return nil, "", err
	}

	rel, err := filepath.Rel(repoRoot, root)
	if err != nil {
		return nil, "", err
	}

	fs := osfs.New(repoRoot)

	ps, err := readIgnoreFile(fs, []string{"."}, infoExcludeFile)
	if err != nil {
		return nil, "", err
	}

	// ancestors, from the repository root down to root's parent
	if rel != "." {
		var ancestors [][]string
		for p := filepath.Dir(rel); ; p = filepath.Dir(p) {
			ancestors = append([][]string{toGoGitPath(p)}, ancestors...)
			if p == "." {
				break
			}
		}

		for _, ancestor := range ancestors {
			newPs, err := readIgnoreFile(fs, ancestor, gitignoreFile)
			if err != nil {
				return nil, "", err
			}
			ps = append(ps, newPs...)
		}
	}

	newPs, err := readPatternsSkippingIgnored(fs, toGoGitPath(rel), ps)
	if err != nil {
		return nil, "", err
	}

	return append(ps, newPs...), repoRoot, nil
}

// toGoGitPath converts a relative path to the slice form go-git expects,
// eg "a/b" -> []string{".", "a", "b"}
func toGoGitPath(path string) []string {
	if path == "." {
		return []string{"."}
	}

	return append([]string{"."}, strings.Split(path, string(os.PathSeparator))...)
}
