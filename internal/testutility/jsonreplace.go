package testutility

import (
	"strconv"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

type JSONReplaceRule struct {
	Path        string
	ReplaceFunc func(toReplace gjson.Result) any
}

var (
	// ZeroDurationsRule blanks timings that differ between runs
	ZeroDurationsRule = JSONReplaceRule{
		Path: "results.#.elapsed",
		ReplaceFunc: func(gjson.Result) any {
			return 0
		},
	}
	ZeroBuildDurationRule = JSONReplaceRule{
		Path: "results.#.payload.buildDuration",
		ReplaceFunc: func(gjson.Result) any {
			return 0
		},
	}
	// ArchiveDigestRule hides the archive digest, which changes with file
	// modification times
	ArchiveDigestRule = JSONReplaceRule{
		Path: "results.#.payload.archiveDigest",
		ReplaceFunc: func(toReplace gjson.Result) any {
			if toReplace.String() == "" {
				return ""
			}

			return "sha256:<digest>"
		},
	}
	ArchiveSizeRule = JSONReplaceRule{
		Path: "results.#.payload.archiveSize",
		ReplaceFunc: func(gjson.Result) any {
			return 0
		},
	}
)

// expandArrayPaths turns every "#" in path into the indexes of the array at
// that point of jsonInput.
func expandArrayPaths(t *testing.T, jsonInput string, path string) []string {
	t.Helper()

	before, after, found := strings.Cut(path, ".#")
	if !found {
		return []string{path}
	}

	count := gjson.Get(jsonInput, before+".#").Int()

	var paths []string
	for i := range count {
		paths = append(paths, expandArrayPaths(t, jsonInput, before+"."+strconv.FormatInt(i, 10)+after)...)
	}

	return paths
}

// ReplaceJSONInput applies each rule to jsonInput, leaving paths that are
// not present untouched.
func ReplaceJSONInput(t *testing.T, jsonInput string, rules ...JSONReplaceRule) string {
	t.Helper()

	for _, rule := range rules {
		for _, path := range expandArrayPaths(t, jsonInput, rule.Path) {
			found := gjson.Get(jsonInput, path)
			if !found.Exists() {
				continue
			}

			var err error
			jsonInput, err = sjson.Set(jsonInput, path, rule.ReplaceFunc(found))
			if err != nil {
				t.Fatalf("failed to replace %s in JSON: %v", path, err)
			}
		}
	}

	return jsonInput
}
