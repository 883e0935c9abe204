package scan_test

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/codescan-io/codescan/cmd/codescan/internal/testcmd"
	"github.com/codescan-io/codescan/internal/testutility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const (
	token      = "secret"
	noFindings = "testdata/findings/none.json"
	oneFinding = "testdata/findings/one.json"
)

// newService mocks a scan service that accepts one upload and completes
// job-1 straight away with the findings in the given file.
func newService(t *testing.T, findings string) *testutility.MockHTTPServer {
	t.Helper()

	srv := testutility.NewMockHTTPServer(t)
	srv.SetAuthorization(t, "Bearer "+token)
	srv.SetResponse(t, "v1/uploads", []byte(`{"uploadUrl":"`+srv.URL+`/upload/src","uploadId":"upload-1"}`))
	srv.SetResponse(t, "upload/src", []byte{})
	srv.SetResponse(t, "v1/scans", []byte(`{"jobId":"job-1","status":"Pending"}`))
	srv.SetResponse(t, "v1/scans/job-1", []byte(`{"jobId":"job-1","status":"Completed"}`))
	srv.SetResponseFromFile(t, "v1/scans/job-1/findings", findings)

	return srv
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// newProject creates a small python project configured to talk to endpoint,
// returning its root.
func newProject(t *testing.T, endpoint, tok string) string {
	t.Helper()

	root := filepath.Join(t.TempDir(), "proj")

	writeFile(t, filepath.Join(root, "src", "app.py"), "import os\nos.system(cmd)\n")
	writeFile(t, filepath.Join(root, "src", "util.py"), "def util():\n    return 1\n")
	writeFile(t, filepath.Join(root, "codescan.toml"), `
endpoint = "`+endpoint+`"
token = "`+tok+`"
pollInterval = "10ms"
`)

	return root
}

func TestCommand_NoIssues(t *testing.T) {
	t.Parallel()

	srv := newService(t, noFindings)
	root := newProject(t, srv.URL, token)

	stdout, _ := testcmd.Run(t, testcmd.Case{
		Args: []string{"", "scan", "--file", "src/app.py", root},
		Exit: 0,
	})

	assert.Contains(t, stdout, "No issues found")
	assert.Contains(t, stdout, "(job job-1)")
	assert.Equal(t, 1, srv.Hits("upload/src"))
	assert.Equal(t, 1, srv.Hits("v1/scans"))
}

func TestCommand_DefaultsToScan(t *testing.T) {
	t.Parallel()

	srv := newService(t, noFindings)
	root := newProject(t, srv.URL, token)

	testcmd.Run(t, testcmd.Case{
		Args: []string{"", "--file", "src/app.py", root},
		Exit: 0,
	})

	assert.Equal(t, 1, srv.Hits("v1/scans"))
}

func TestCommand_IssuesFound(t *testing.T) {
	t.Parallel()

	srv := newService(t, oneFinding)
	root := newProject(t, srv.URL, token)

	stdout, _ := testcmd.Run(t, testcmd.Case{
		Args: []string{"", "scan", "--file", "src/app.py", root},
		Exit: 1,
	})

	assert.Contains(t, stdout, "src/app.py:2")
	assert.Contains(t, stdout, "OS command injection")
	assert.Contains(t, stdout, "Found 1 issue in 1 project.")
}

func TestCommand_JSONOutput(t *testing.T) {
	t.Parallel()

	srv := newService(t, oneFinding)
	root := newProject(t, srv.URL, token)

	stdout, _ := testcmd.Run(t, testcmd.Case{
		Args: []string{"", "scan", "--format", "json", "--file", "src/app.py", root},
		Exit: 1,
	})

	require.True(t, gjson.Valid(stdout), "stdout should only contain json:\n%s", stdout)

	stdout = testutility.NormalizeDir(t, stdout, root, "<root>")
	stdout = testutility.ReplaceJSONInput(t, stdout,
		testutility.ZeroDurationsRule,
		testutility.ZeroBuildDurationRule,
		testutility.ArchiveDigestRule,
		testutility.ArchiveSizeRule,
	)

	parsed := gjson.Parse(stdout)
	assert.Equal(t, int64(1), parsed.Get("issueCount").Int())
	assert.Equal(t, "job-1", parsed.Get("results.0.jobId").String())
	assert.Equal(t, "<root>", parsed.Get("results.0.projectRoot").String())
	assert.Equal(t, "python", parsed.Get("results.0.language").String())
	assert.Equal(t, int64(0), parsed.Get("results.0.elapsed").Int())
	assert.Equal(t, "sha256:<digest>", parsed.Get("results.0.payload.archiveDigest").String())
	assert.Contains(t, parsed.Get("results.0.payload.files").String(), "<root>/src/app.py")

	assert.JSONEq(t, testutility.LoadTextFixture(t, "testdata/one-issue.json"), parsed.Get("results.0.issues").Raw)
}

func TestCommand_OutputFile(t *testing.T) {
	t.Parallel()

	srv := newService(t, oneFinding)
	root := newProject(t, srv.URL, token)
	out := filepath.Join(t.TempDir(), "report.sarif")

	testcmd.Run(t, testcmd.Case{
		Args: []string{"", "scan", "--format", "sarif", "--output", out, "--file", "src/app.py", root},
		Exit: 1,
	})

	b, err := os.ReadFile(out)
	require.NoError(t, err)

	report := gjson.ParseBytes(b)
	assert.Equal(t, "2.1.0", report.Get("version").String())
	assert.Equal(t, "python-os-command-injection", report.Get("runs.0.results.0.ruleId").String())
	assert.Equal(t, "error", report.Get("runs.0.results.0.level").String())
}

func TestCommand_Parallel(t *testing.T) {
	t.Parallel()

	srv := newService(t, noFindings)
	first := newProject(t, srv.URL, token)
	second := newProject(t, srv.URL, token)

	stdout, _ := testcmd.Run(t, testcmd.Case{
		Args: []string{"", "scan", "--parallel", "2", "--format", "json", "--file", "src/app.py", first, second},
		Exit: 0,
	})

	parsed := gjson.Parse(stdout)
	assert.Equal(t, first, parsed.Get("results.0.projectRoot").String())
	assert.Equal(t, second, parsed.Get("results.1.projectRoot").String())
	assert.Equal(t, 2, srv.Hits("v1/scans"))
	assert.Equal(t, 2, srv.Hits("upload/src"))
}

func TestCommand_FileArgument(t *testing.T) {
	t.Parallel()

	srv := newService(t, noFindings)
	root := newProject(t, srv.URL, token)

	testcmd.Run(t, testcmd.Case{
		Args: []string{"", "scan", "--config", filepath.Join(root, "codescan.toml"), filepath.Join(root, "src", "app.py")},
		Exit: 0,
	})

	assert.Equal(t, 1, srv.Hits("v1/scans"))
}

func TestCommand_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(t *testing.T, srv *testutility.MockHTTPServer)
		token string
		args  []string
		exit  int
	}{
		{
			name: "directory without a selected file",
			exit: 128,
		},
		{
			name: "selected file that does not exist",
			args: []string{"--file", "src/missing.py"},
			exit: 128,
		},
		{
			name:  "token is rejected",
			token: "wrong",
			args:  []string{"--file", "src/app.py"},
			exit:  129,
		},
		{
			name: "scan is not created",
			setup: func(t *testing.T, srv *testutility.MockHTTPServer) {
				t.Helper()
				srv.SetResponseWithStatus(t, "v1/scans", http.StatusBadRequest, []byte(`{"message":"unsupported language"}`))
			},
			args: []string{"--file", "src/app.py"},
			exit: 129,
		},
		{
			name: "scan fails",
			setup: func(t *testing.T, srv *testutility.MockHTTPServer) {
				t.Helper()
				srv.SetResponse(t, "v1/scans/job-1", []byte(`{"jobId":"job-1","status":"Failed","errorMessage":"boom"}`))
			},
			args: []string{"--file", "src/app.py"},
			exit: 129,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := newService(t, noFindings)
			if tt.setup != nil {
				tt.setup(t, srv)
			}

			tok := token
			if tt.token != "" {
				tok = tt.token
			}

			root := newProject(t, srv.URL, tok)

			args := append([]string{"", "scan"}, tt.args...)
			args = append(args, root)

			testcmd.Run(t, testcmd.Case{Args: args, Exit: tt.exit})
		})
	}
}

func TestCommand_InvalidConfigOverride(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	conf := filepath.Join(dir, "codescan.toml")
	writeFile(t, conf, `not-a-key = true`)

	_, stderr := testcmd.Run(t, testcmd.Case{
		Args: []string{"", "scan", "--config", conf, dir},
		Exit: 127,
	})

	assert.Contains(t, stderr, "failed to read config file")
}

func TestCommand_InvalidFlags(t *testing.T) {
	t.Parallel()

	tests := []testcmd.Case{
		{
			Name: "unknown format",
			Args: []string{"", "scan", "--format", "xml", "."},
			Exit: 127,
		},
		{
			Name: "unknown scope",
			Args: []string{"", "scan", "--scope", "everything", "."},
			Exit: 127,
		},
		{
			Name: "no parallelism",
			Args: []string{"", "scan", "--parallel", "0", "."},
			Exit: 127,
		},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			t.Parallel()

			testcmd.Run(t, tt)
		})
	}
}
