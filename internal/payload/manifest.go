// Package payload selects the files of a project that are sent for scanning.
package payload

import (
	"fmt"
	"maps"
	"slices"
)

// Manifest accumulates the files of a payload along with their aggregate
// size, line count and language occurrences. A Manifest is owned by a single
// build and is not safe for concurrent use.
type Manifest struct {
	limit int64

	files      []string
	seen       map[string]struct{}
	totalSize  int64
	totalLines int

	// languages in the order they were first encountered
	languages []string
	counts    map[string]int
}

// NewManifest returns an empty manifest that holds at most limit bytes. A
// limit of zero or less disables the check.
func NewManifest(limit int64) *Manifest {
	return &Manifest{
		limit:  limit,
		seen:   make(map[string]struct{}),
		counts: make(map[string]int),
	}
}

// Fits reports whether size more bytes can be added without exceeding the
// limit.
func (m *Manifest) Fits(size int64) bool {
	return m.limit <= 0 || m.totalSize+size <= m.limit
}

// Add records a file. Adding a file that is already present does nothing.
// If the file would take the manifest over its limit, ErrPayloadTooLarge is
// returned and the manifest is left unchanged. An empty lang counts towards
// size and lines but not towards language selection.
func (m *Manifest) Add(path string, size int64, lines int, lang string) error {
	if _, ok := m.seen[path]; ok {
		return nil
	}

	if !m.Fits(size) {
		return m.overflow(path, size)
	}

	m.seen[path] = struct{}{}
	m.files = append(m.files, path)
	m.totalSize += size
	m.totalLines += lines

	if lang != "" {
		if _, ok := m.counts[lang]; !ok {
			m.languages = append(m.languages, lang)
		}
		m.counts[lang]++
	}

	return nil
}

func (m *Manifest) overflow(path string, size int64) error {
	return fmt.Errorf("%w: adding %s (%d bytes) to %d bytes would exceed %d bytes", ErrPayloadTooLarge, path, size, m.totalSize, m.limit)
}

func (m *Manifest) Contains(path string) bool {
	_, ok := m.seen[path]

	return ok
}

func (m *Manifest) Files() []string {
	return m.files
}

func (m *Manifest) TotalSize() int64 {
	return m.totalSize
}

func (m *Manifest) TotalLines() int {
	return m.totalLines
}

// DominantLanguage returns the language with the most files, preferring the
// one encountered first on a tie. It returns false if no file had a known
// language.
func (m *Manifest) DominantLanguage() (string, bool) {
	best := ""
	for _, lang := range m.languages {
		if best == "" || m.counts[lang] > m.counts[best] {
			best = lang
		}
	}

	return best, best != ""
}

// Metadata is the finalized view of a manifest.
type Metadata struct {
	Files          []string
	TotalSize      int64
	TotalLines     int
	Language       string
	LanguageCounts map[string]int
	// BuildArtifacts lists compiled output files, only when requested
	BuildArtifacts []string
}

// Finalize picks the dominant language, failing with ErrNoValidFiles if there
// is none.
func (m *Manifest) Finalize() (*Metadata, error) {
	lang, ok := m.DominantLanguage()
	if !ok {
		return nil, fmt.Errorf("%w: %d files considered", ErrNoValidFiles, len(m.files))
	}

	return &Metadata{
		Files:          slices.Clone(m.files),
		TotalSize:      m.totalSize,
		TotalLines:     m.totalLines,
		Language:       lang,
		LanguageCounts: maps.Clone(m.counts),
	}, nil
}
