package testutility

import (
	"runtime"
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
)

// CleanSnapshots ensures that snapshots are relevant and sorted for consistency
func CleanSnapshots(m *testing.M) {
	snaps.Clean(m, snaps.CleanOpts{Sort: true})
}

// applyWindowsReplacements will replace any matching strings if on Windows
func applyWindowsReplacements(content string, replacements map[string]string) string {
	if //goland:noinspection GoBoolExpressions
	runtime.GOOS == "windows" {
		for match, replacement := range replacements {
			content = strings.ReplaceAll(content, match, replacement)
		}
	}

	return content
}

// NormalizeDir replaces every occurrence of dir in str with placeholder,
// using "/" separators so that output is the same on every OS.
func NormalizeDir(t *testing.T, str, dir, placeholder string) string {
	t.Helper()

	str = strings.ReplaceAll(str, "\\\\", "/")
	str = strings.ReplaceAll(str, "\\", "/")
	dir = strings.ReplaceAll(dir, "\\", "/")

	return strings.ReplaceAll(str, dir, placeholder)
}
