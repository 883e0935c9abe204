// Package findings turns raw finding documents from the scan service into
// issues anchored to files in the project.
package findings

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/codescan-io/codescan/internal/cmdlogger"
	"github.com/codescan-io/codescan/pkg/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tidwall/gjson"
)

// cachedFiles is how many files keep their lines in memory at once.
const cachedFiles = 128

// Mapper resolves findings against the files under ProjectRoot.
type Mapper struct {
	ProjectRoot string

	once  sync.Once
	lines *lru.Cache[string, []string]
}

func NewMapper(projectRoot string) *Mapper {
	return &Mapper{ProjectRoot: projectRoot}
}

func (m *Mapper) cache() *lru.Cache[string, []string] {
	m.once.Do(func() {
		// only fails for a non-positive size
		m.lines, _ = lru.New[string, []string](cachedFiles)
	})

	return m.lines
}

// Map converts every recommendation record in rawPages, in order. Records
// whose file cannot be found in the project are dropped, as are pages that
// are not JSON arrays.
func (m *Mapper) Map(rawPages []string) []models.Issue {
	issues := make([]models.Issue, 0)

	for i, page := range rawPages {
		if !gjson.Valid(page) {
			cmdlogger.Debugf("Skipping findings page %d: not valid json", i)

			continue
		}

		parsed := gjson.Parse(page)
		if !parsed.IsArray() {
			cmdlogger.Debugf("Skipping findings page %d: not a list of findings", i)

			continue
		}

		parsed.ForEach(func(_, record gjson.Result) bool {
			if issue, ok := m.mapRecord(record); ok {
				issues = append(issues, issue)
			}

			return true
		})
	}

	return issues
}

func (m *Mapper) mapRecord(record gjson.Result) (models.Issue, bool) {
	filePath := record.Get("filePath").String()
	if filePath == "" {
		cmdlogger.Debugf("Dropping finding %q: no file path", record.Get("title").String())

		return models.Issue{}, false
	}

	path, ok := m.resolve(filePath)
	if !ok {
		cmdlogger.Debugf("Dropping finding %q: %s does not exist in the project", record.Get("title").String(), filePath)

		return models.Issue{}, false
	}

	startLine := max(int(record.Get("startLine").Int()), 1)
	endLine := max(int(record.Get("endLine").Int()), startLine)

	rel, err := filepath.Rel(m.ProjectRoot, path)
	if err != nil {
		rel = path
	}

	return models.Issue{
		Path:         path,
		RelativePath: filepath.ToSlash(rel),
		Location: models.FilePosition{
			Line:     models.Position{Start: startLine, End: endLine},
			Column:   models.Position{Start: 1, End: m.lineWidth(path, endLine) + 1},
			Filename: path,
		},
		Title:       record.Get("title").String(),
		Description: description(record.Get("description")),
		DetectorID:  record.Get("detectorId").String(),
		RuleID:      record.Get("ruleId").String(),
		Severity:    models.Severity(record.Get("severity").String()),
		FindingID:   record.Get("findingId").String(),
		HelpURL:     record.Get("remediation.recommendation.url").String(),
	}, true
}

// description accepts either a plain string or an object with text and
// markdown renditions, preferring markdown.
func description(d gjson.Result) string {
	if d.Type == gjson.String {
		return d.Str
	}

	if md := d.Get("markdown").String(); md != "" {
		return md
	}

	return d.Get("text").String()
}

// resolve finds the file a finding refers to. Paths in findings normally
// start with the project's base name, as they do in the uploaded archive,
// so they are tried against the project's parent before the project itself.
func (m *Mapper) resolve(filePath string) (string, bool) {
	filePath = filepath.FromSlash(filePath)

	var candidates []string
	if filepath.IsAbs(filePath) {
		candidates = []string{filepath.Clean(filePath)}
	} else {
		candidates = []string{
			filepath.Join(filepath.Dir(m.ProjectRoot), filePath),
			filepath.Join(m.ProjectRoot, filePath),
		}
	}

	for _, candidate := range candidates {
		if !m.contains(candidate) {
			continue
		}

		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true
		}
	}

	return "", false
}

func (m *Mapper) contains(path string) bool {
	rel, err := filepath.Rel(m.ProjectRoot, path)

	return err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// lineWidth is the number of characters on the given 1-based line, or zero
// if the file has no such line.
func (m *Mapper) lineWidth(path string, line int) int {
	lines, ok := m.cache().Get(path)
	if !ok {
		lines = readLines(path)
		m.cache().Add(path, lines)
	}

	if line < 1 || line > len(lines) {
		return 0
	}

	return utf8.RuneCountInString(lines[line-1])
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		cmdlogger.Debugf("Could not read %s: %v", path, err)

		return nil
	}
	defer f.Close()

	var lines []string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}

	return lines
}
