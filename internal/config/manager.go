package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/codescan-io/codescan/internal/cmdlogger"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that take precedence over config files.
const (
	EnvEndpoint          = "CODESCAN_ENDPOINT"
	EnvToken             = "CODESCAN_TOKEN"
	EnvMaxPayloadBytes   = "CODESCAN_MAX_PAYLOAD_BYTES"
	EnvPayloadBuildLimit = "CODESCAN_PAYLOAD_BUILD_TIMEOUT"
	EnvScanTimeout       = "CODESCAN_SCAN_TIMEOUT"
	EnvPollInterval      = "CODESCAN_POLL_INTERVAL"
	EnvScope             = "CODESCAN_SCOPE"
)

type Manager struct {
	// Override to replace all other configs
	OverrideConfig *Config
	// Config to use if no config file is found in the project root
	DefaultConfig Config
	// Cache to store loaded configs, keyed by project root
	ConfigMap map[string]Config
	// Getenv looks up environment overrides, defaulting to [os.Getenv]
	Getenv func(string) string

	mu sync.Mutex
}

func NewManager() *Manager {
	return &Manager{
		DefaultConfig: Defaults(),
		ConfigMap:     make(map[string]Config),
	}
}

// LoadDotEnv loads environment variables from the given .env files (or
// ".env" in the working directory), without overriding variables that are
// already set. Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	return nil
}

// UseOverride updates the Manager to use the config at the given path in place
// of any other config files that would be loaded when calling Get
func (c *Manager) UseOverride(configPath string) error {
	config, err := tryLoadConfig(configPath)
	if err != nil {
		return err
	}
	c.OverrideConfig = &config

	return nil
}

// Get returns the effective config for the project at targetPath: the file
// config (or the default), completed with defaults and environment overrides.
func (c *Manager) Get(targetPath string) Config {
	return c.applyEnv(c.fileConfig(targetPath).merge(Defaults()))
}

func (c *Manager) fileConfig(targetPath string) Config {
	if c.OverrideConfig != nil {
		return *c.OverrideConfig
	}

	dir, err := containingFolder(targetPath)
	if err != nil {
		return c.DefaultConfig
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ConfigMap == nil {
		c.ConfigMap = make(map[string]Config)
	}

	if config, alreadyExists := c.ConfigMap[dir]; alreadyExists {
		return config
	}

	config := c.DefaultConfig

	for _, name := range ConfigNames {
		configPath := filepath.Join(dir, name)
		loaded, configErr := tryLoadConfig(configPath)
		if configErr == nil {
			cmdlogger.Infof("Loaded config from: %s", loaded.LoadPath)
			config = loaded

			break
		}

		// anything other than the config file not existing is most likely due to an invalid config file
		if !errors.Is(configErr, os.ErrNotExist) {
			cmdlogger.Errorf("Ignored invalid config file at %s because: %v", configPath, configErr)

			break
		}
	}

	c.ConfigMap[dir] = config

	return config
}

func (c *Manager) getenv(key string) string {
	if c.Getenv != nil {
		return strings.TrimSpace(c.Getenv(key))
	}

	return strings.TrimSpace(os.Getenv(key))
}

func (c *Manager) applyEnv(config Config) Config {
	if v := c.getenv(EnvEndpoint); v != "" {
		config.Endpoint = v
	}
	if v := c.getenv(EnvToken); v != "" {
		config.Token = v
	}
	if v := c.getenv(EnvScope); v != "" {
		config.Scope = v
	}
	if v := c.getenv(EnvMaxPayloadBytes); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			cmdlogger.Warnf("Ignoring %s=%q: not a positive integer", EnvMaxPayloadBytes, v)
		} else {
			config.MaxPayloadBytes = n
		}
	}

	durations := []struct {
		key string
		dst *Duration
	}{
		{EnvPayloadBuildLimit, &config.PayloadBuildTimeout},
		{EnvScanTimeout, &config.ScanTimeout},
		{EnvPollInterval, &config.PollInterval},
	}

	for _, d := range durations {
		v := c.getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed <= 0 {
			cmdlogger.Warnf("Ignoring %s=%q: not a positive duration", d.key, v)

			continue
		}
		*d.dst = Duration(parsed)
	}

	return config
}

func containingFolder(target string) (string, error) {
	stat, err := os.Stat(target)
	if err != nil {
		return "", fmt.Errorf("failed to stat target: %w", err)
	}

	if !stat.IsDir() {
		return filepath.Dir(target), nil
	}

	return target, nil
}

// tryLoadConfig attempts to parse the config file at the given path as TOML or
// YAML depending on its extension, returning the Config object if successful
// or otherwise the error
func tryLoadConfig(configPath string) (Config, error) {
	config := Config{}

	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		content, err := os.ReadFile(configPath)
		if err != nil {
			return Config{}, err
		}

		dec := yaml.NewDecoder(bytes.NewReader(content))
		dec.KnownFields(true)

		// an empty document decodes to io.EOF, which is a valid empty config
		if err := dec.Decode(&config); err != nil && len(bytes.TrimSpace(content)) > 0 {
			return Config{}, err
		}
	default:
		m, err := toml.DecodeFile(configPath, &config)
		if err != nil {
			return Config{}, err
		}

		unknownKeys := m.Undecoded()

		if len(unknownKeys) > 0 {
			keys := make([]string, 0, len(unknownKeys))

			for _, key := range unknownKeys {
				keys = append(keys, key.String())
			}

			return Config{}, fmt.Errorf("unknown keys in config file: %s", strings.Join(keys, ", "))
		}
	}

	if err := config.validate(); err != nil {
		return Config{}, err
	}

	config.LoadPath = configPath

	return config, nil
}
