package testutility

import (
	"os"
	"testing"
)

// load returns the contents of the fixture file after applying any replacements if on Windows
func load(t *testing.T, path string, windowsReplacements map[string]string) []byte {
	t.Helper()

	file, err := os.ReadFile(path)

	if err != nil {
		t.Fatalf("Failed to open fixture: %s", err)
	}

	return []byte(applyWindowsReplacements(string(file), windowsReplacements))
}

// LoadTextFixture returns the contents of the fixture file as a string
func LoadTextFixture(t *testing.T, path string) string {
	t.Helper()

	return string(load(t, path, map[string]string{}))
}
