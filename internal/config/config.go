// Package config manages the configuration for codescan.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigNames are the file names looked up in a project root, in order of
// preference.
var ConfigNames = []string{"codescan.toml", "codescan.yaml", "codescan.yml"}

const (
	DefaultMaxPayloadBytes     int64 = 200 * 1024 * 1024
	DefaultPayloadBuildTimeout       = 60 * time.Second
	DefaultScanTimeout               = 10 * time.Minute
	DefaultPollInterval              = time.Second
	DefaultToolIgnoreFile            = ".codescanignore"
	DefaultScope                     = "project"
	DefaultEndpoint                  = "https://codescan.example.com"
)

// DefaultLibraryDirs are directory names treated as third-party sources
// wherever they appear in a project.
var DefaultLibraryDirs = []string{"vendor", "node_modules", ".venv", "venv", "third_party"}

// DefaultBuildArtifactDirs are searched, relative to the project root, for
// compiled output when test generation needs it.
var DefaultBuildArtifactDirs = []string{"build/classes", "build/libs", "target/classes", "out/production"}

type Config struct {
	Endpoint            string   `toml:"endpoint,omitempty"            yaml:"endpoint,omitempty"`
	Token               string   `toml:"token,omitempty"               yaml:"token,omitempty"`
	MaxPayloadBytes     int64    `toml:"maxPayloadBytes,omitempty"     yaml:"maxPayloadBytes,omitempty"`
	PayloadBuildTimeout Duration `toml:"payloadBuildTimeout,omitempty" yaml:"payloadBuildTimeout,omitempty"`
	ScanTimeout         Duration `toml:"scanTimeout,omitempty"         yaml:"scanTimeout,omitempty"`
	PollInterval        Duration `toml:"pollInterval,omitempty"        yaml:"pollInterval,omitempty"`
	ToolIgnoreFile      string   `toml:"toolIgnoreFile,omitempty"      yaml:"toolIgnoreFile,omitempty"`
	LibraryDirs         []string `toml:"libraryDirs,omitempty"         yaml:"libraryDirs,omitempty"`
	BuildArtifactDirs   []string `toml:"buildArtifactDirs,omitempty"   yaml:"buildArtifactDirs,omitempty"`
	Scope               string   `toml:"scope,omitempty"               yaml:"scope,omitempty"`
	// The path to config file that this config was loaded from,
	// set by the manager after having successfully parsed the file
	LoadPath string `toml:"-" yaml:"-"`
}

// Defaults returns a Config with every field set to its default value.
func Defaults() Config {
	return Config{
		Endpoint:            DefaultEndpoint,
		MaxPayloadBytes:     DefaultMaxPayloadBytes,
		PayloadBuildTimeout: Duration(DefaultPayloadBuildTimeout),
		ScanTimeout:         Duration(DefaultScanTimeout),
		PollInterval:        Duration(DefaultPollInterval),
		ToolIgnoreFile:      DefaultToolIgnoreFile,
		LibraryDirs:         DefaultLibraryDirs,
		BuildArtifactDirs:   DefaultBuildArtifactDirs,
		Scope:               DefaultScope,
	}
}

// merge fills any unset field of c from base.
func (c Config) merge(base Config) Config {
	if c.Endpoint == "" {
		c.Endpoint = base.Endpoint
	}
	if c.Token == "" {
		c.Token = base.Token
	}
	if c.MaxPayloadBytes == 0 {
		c.MaxPayloadBytes = base.MaxPayloadBytes
	}
	if c.PayloadBuildTimeout == 0 {
		c.PayloadBuildTimeout = base.PayloadBuildTimeout
	}
	if c.ScanTimeout == 0 {
		c.ScanTimeout = base.ScanTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = base.PollInterval
	}
	if c.ToolIgnoreFile == "" {
		c.ToolIgnoreFile = base.ToolIgnoreFile
	}
	if c.LibraryDirs == nil {
		c.LibraryDirs = base.LibraryDirs
	}
	if c.BuildArtifactDirs == nil {
		c.BuildArtifactDirs = base.BuildArtifactDirs
	}
	if c.Scope == "" {
		c.Scope = base.Scope
	}

	return c
}

func (c Config) validate() error {
	if c.MaxPayloadBytes < 0 {
		return fmt.Errorf("maxPayloadBytes must not be negative, got %d", c.MaxPayloadBytes)
	}
	if c.PollInterval < 0 || c.ScanTimeout < 0 || c.PayloadBuildTimeout < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	switch c.Scope {
	case "", "project", "file":
	default:
		return fmt.Errorf("scope must be one of project, file; got %q", c.Scope)
	}

	return nil
}

// Duration is a [time.Duration] written as a string such as "90s" in
// config files.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)

	return nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}
