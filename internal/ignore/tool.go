package ignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Tool matches paths against glob patterns read from the tool's ignore file
// (".codescanignore" by default) and from the command line.
//
// Patterns follow a reduced .gitignore syntax:
//   - "#" starts a comment line
//   - a pattern without "/" matches the base name at any depth, eg "*.min.js"
//   - a pattern containing "/" matches the path relative to the project
//     root, eg "/docs/**" or "testdata/*.json"
//   - a trailing "/" restricts the pattern to directories
//   - a leading "!" re-includes paths that an earlier pattern excluded
type Tool struct {
	root string

	exclude toolRules
	include toolRules
}

// toolRules are the compiled patterns of one polarity; nil globs match
// nothing.
type toolRules struct {
	name    glob.Glob
	path    glob.Glob
	dirName glob.Glob
	dirPath glob.Glob
}

// toolPatterns are the raw patterns of one polarity, split by how they
// match.
type toolPatterns struct {
	names, paths, dirNames, dirPaths []string
}

func (tp *toolPatterns) add(p string) {
	dirOnly := strings.HasSuffix(p, "/")
	p = strings.TrimSuffix(p, "/")

	anchored := strings.Contains(p, "/")
	p = strings.TrimPrefix(p, "/")

	switch {
	case dirOnly && anchored:
		tp.dirPaths = append(tp.dirPaths, p)
	case dirOnly:
		tp.dirNames = append(tp.dirNames, p)
	case anchored:
		tp.paths = append(tp.paths, p)
	default:
		tp.names = append(tp.names, p)
	}
}

func (tp *toolPatterns) compile() (toolRules, error) {
	var rules toolRules

	for _, c := range []struct {
		dst      *glob.Glob
		patterns []string
	}{
		{&rules.name, tp.names},
		{&rules.path, tp.paths},
		{&rules.dirName, tp.dirNames},
		{&rules.dirPath, tp.dirPaths},
	} {
		g, err := compileCombined(c.patterns)
		if err != nil {
			return toolRules{}, err
		}
		*c.dst = g
	}

	return rules, nil
}

// NewTool builds a matcher for the project at root from the patterns in
// root/ignoreFile (if it exists) plus any extra patterns.
func NewTool(root, ignoreFile string, extra []string) (*Tool, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	patterns := make([]string, 0, len(extra))

	if ignoreFile != "" {
		fromFile, err := readToolPatterns(filepath.Join(root, ignoreFile))
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, fromFile...)
	}
	patterns = append(patterns, extra...)

	var exclude, include toolPatterns

	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, commentPrefix) {
			continue
		}

		if negated, ok := strings.CutPrefix(p, "!"); ok {
			if negated = strings.TrimSpace(negated); negated != "" {
				include.add(negated)
			}

			continue
		}

		exclude.add(p)
	}

	t := &Tool{root: root}

	if t.exclude, err = exclude.compile(); err != nil {
		return nil, err
	}
	if t.include, err = include.compile(); err != nil {
		return nil, err
	}

	return t, nil
}

// compileCombined compiles patterns into a single glob using {p1,p2,...}
// syntax, returning nil if there are none.
func compileCombined(patterns []string) (glob.Glob, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	combined := patterns[0]
	if len(patterns) > 1 {
		combined = "{" + strings.Join(patterns, ",") + "}"
	}

	g, err := glob.Compile(combined, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid ignore pattern %q: %w", combined, err)
	}

	return g, nil
}

func readToolPatterns(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}
	defer f.Close()

	var patterns []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}

	return patterns, scanner.Err()
}

// Match returns true if the file or directory at absPath is excluded and
// not re-included by a "!" pattern.
func (t *Tool) Match(absPath string, isDir bool) bool {
	rel, err := filepath.Rel(t.root, absPath)
	if err != nil || rel == "." || outsideRoot(rel) {
		return false
	}

	rel = filepath.ToSlash(rel)
	name := filepath.Base(absPath)

	return t.exclude.match(name, rel, isDir) && !t.include.match(name, rel, isDir)
}

func (r toolRules) match(name, rel string, isDir bool) bool {
	if r.name != nil && r.name.Match(name) {
		return true
	}
	if r.path != nil && r.path.Match(rel) {
		return true
	}
	if !isDir {
		return false
	}
	if r.dirName != nil && r.dirName.Match(name) {
		return true
	}

	return r.dirPath != nil && r.dirPath.Match(rel)
}

// outsideRoot reports whether rel, as returned by filepath.Rel, leaves the
// directory it is relative to. Names such as "..config" stay inside.
func outsideRoot(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
