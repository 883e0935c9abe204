package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codescan-io/codescan/internal/config"
	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func noEnv(string) string { return "" }

func TestManager_Get_Defaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := config.NewManager()
	m.Getenv = noEnv

	got := m.Get(dir)
	want := config.Defaults()

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_Get_TOML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "codescan.toml")
	writeFile(t, configPath, `
endpoint = "https://scan.internal"
maxPayloadBytes = 1024
scanTimeout = "90s"
libraryDirs = ["deps"]
scope = "file"
`)

	m := config.NewManager()
	m.Getenv = noEnv

	want := config.Defaults()
	want.Endpoint = "https://scan.internal"
	want.MaxPayloadBytes = 1024
	want.ScanTimeout = config.Duration(90 * time.Second)
	want.LibraryDirs = []string{"deps"}
	want.Scope = "file"
	want.LoadPath = configPath

	got := m.Get(dir)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_Get_YAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "codescan.yaml")
	writeFile(t, configPath, "token: abc\npollInterval: 250ms\n")
	writeFile(t, filepath.Join(dir, "app.py"), "print(1)\n")

	m := config.NewManager()
	m.Getenv = noEnv

	got := m.Get(filepath.Join(dir, "app.py"))

	want := config.Defaults()
	want.Token = "abc"
	want.PollInterval = config.Duration(250 * time.Millisecond)
	want.LoadPath = configPath

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_Get_InvalidFallsBackToDefault(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		file     string
		contents string
	}{
		{name: "unknown toml key", file: "codescan.toml", contents: "unknown = 1\n"},
		{name: "malformed toml", file: "codescan.toml", contents: "endpoint = \n"},
		{name: "unknown yaml key", file: "codescan.yaml", contents: "nope: true\n"},
		{name: "bad scope", file: "codescan.toml", contents: "scope = \"everything\"\n"},
		{name: "bad duration", file: "codescan.yaml", contents: "scanTimeout: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, tt.file), tt.contents)

			m := config.NewManager()
			m.Getenv = noEnv

			if diff := cmp.Diff(config.Defaults(), m.Get(dir)); diff != "" {
				t.Errorf("Get() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestManager_Get_EnvironmentOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "codescan.toml"), "endpoint = \"https://from-file\"\n")

	env := map[string]string{
		config.EnvEndpoint:        "https://from-env",
		config.EnvToken:           " secret ",
		config.EnvMaxPayloadBytes: "not-a-number",
		config.EnvScanTimeout:     "2m",
		config.EnvPollInterval:    "-1s",
	}

	m := config.NewManager()
	m.Getenv = func(key string) string { return env[key] }

	got := m.Get(dir)

	if got.Endpoint != "https://from-env" {
		t.Errorf("expected endpoint from env, got %q", got.Endpoint)
	}
	if got.Token != "secret" {
		t.Errorf("expected trimmed token, got %q", got.Token)
	}
	if got.MaxPayloadBytes != config.DefaultMaxPayloadBytes {
		t.Errorf("expected invalid size to be ignored, got %d", got.MaxPayloadBytes)
	}
	if got.ScanTimeout.Std() != 2*time.Minute {
		t.Errorf("expected scan timeout of 2m, got %s", got.ScanTimeout)
	}
	if got.PollInterval.Std() != config.DefaultPollInterval {
		t.Errorf("expected negative poll interval to be ignored, got %s", got.PollInterval)
	}
}

func TestManager_UseOverride(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	overridePath := filepath.Join(dir, "custom.toml")
	writeFile(t, overridePath, "endpoint = \"https://override\"\n")
	writeFile(t, filepath.Join(dir, "project", "codescan.toml"), "endpoint = \"https://project\"\n")

	m := config.NewManager()
	m.Getenv = noEnv

	if err := m.UseOverride(overridePath); err != nil {
		t.Fatalf("UseOverride() error = %v", err)
	}

	if got := m.Get(filepath.Join(dir, "project")).Endpoint; got != "https://override" {
		t.Errorf("expected override endpoint, got %q", got)
	}
}

func TestManager_UseOverride_Missing(t *testing.T) {
	t.Parallel()

	m := config.NewManager()

	if err := m.UseOverride(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected an error for a missing override file")
	}
}

func TestLoadDotEnv_MissingFileIsFine(t *testing.T) {
	t.Parallel()

	if err := config.LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("LoadDotEnv() error = %v", err)
	}
}
