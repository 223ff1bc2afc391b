// Package configfile manages ~/.mdattach/config.yaml.
package configfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/natefinch/atomic"

	"github.com/docker/mdattach/pkg/attachment"
	"github.com/docker/mdattach/pkg/paths"
	"github.com/docker/mdattach/pkg/sizeguard"
	"github.com/docker/mdattach/pkg/upload"
)

const DefaultConfigFile = "config.yaml"

type Config struct {
	MaxSizeMiB       int    `yaml:"max_size_mib"`
	PlaceholderLabel string `yaml:"placeholder_label"`
	UploadMode       string `yaml:"upload_mode"`
	// Endpoint is the upload server. Empty stores attachments on local disk.
	Endpoint string `yaml:"endpoint,omitempty"`
	StoreDir string `yaml:"store_dir,omitempty"`
	// BaseURL prefixes the links of locally stored attachments and is the
	// address the upload server advertises.
	BaseURL string `yaml:"base_url"`
	// Concurrency caps parallel uploads, 0 means unlimited.
	Concurrency int `yaml:"concurrency"`
	// TokenEnv names the environment variable holding the bearer token.
	TokenEnv string `yaml:"token_env,omitempty"`
	Retries  int    `yaml:"retries"`
	// Theme of the terminal editor: "dark" or "light".
	Theme string `yaml:"theme"`
}

func defaultConfig() Config {
	return Config{
		MaxSizeMiB:       sizeguard.DefaultLimitMiB,
		PlaceholderLabel: attachment.DefaultPlaceholderLabel,
		UploadMode:       string(upload.ModeBestEffort),
		BaseURL:          "http://localhost:8080",
		Retries:          upload.DefaultRetries,
		Theme:            "dark",
	}
}

// Validate checks values that would otherwise fail later, deep in a command.
func (c Config) Validate() error {
	if c.MaxSizeMiB <= 0 {
		return fmt.Errorf("max_size_mib must be positive, got %d", c.MaxSizeMiB)
	}
	if _, err := upload.ParseMode(c.UploadMode); err != nil {
		return err
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Retries)
	}
	switch c.Theme {
	case "", "dark", "light":
	default:
		return fmt.Errorf("theme must be dark or light, got %q", c.Theme)
	}
	return nil
}

// ResolvedStoreDir returns StoreDir or the default under the data dir.
func (c Config) ResolvedStoreDir() string {
	if c.StoreDir != "" {
		return c.StoreDir
	}
	return paths.GetStoreDir()
}

type Manager struct {
	mu         sync.RWMutex
	config     Config
	configPath string
	saveMu     sync.Mutex
}

// NewManager loads ~/.mdattach/config.yaml, creating it with defaults when missing.
func NewManager() (*Manager, error) {
	return NewManagerAt(filepath.Join(paths.GetDataDir(), DefaultConfigFile))
}

func NewManagerAt(configPath string) (*Manager, error) {
	if err := ensureConfigExists(configPath); err != nil {
		return nil, err
	}

	m := &Manager{
		configPath: configPath,
		config:     defaultConfig(),
	}
	if err := m.Load(); err != nil {
		return nil, err
	}
	return m, nil
}

func ensureConfigExists(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		data, err := yaml.Marshal(defaultConfig())
		if err != nil {
			return fmt.Errorf("marshal default config: %w", err)
		}
		if err := atomic.WriteFile(configPath, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

func (m *Manager) Path() string {
	return m.configPath
}

// Load reads the file over the defaults, so keys missing from an older
// file keep their default value.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse %s: %w", m.configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

func (m *Manager) Save() error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.mu.RLock()
	configCopy := m.config
	m.mu.RUnlock()

	data, err := yaml.Marshal(configCopy)
	if err != nil {
		return err
	}
	return atomic.WriteFile(m.configPath, bytes.NewReader(data))
}

func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

func (m *Manager) UpdateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = cfg
	return nil
}

// setters maps config keys to a function parsing a string into the field.
var setters = map[string]func(*Config, string) error{
	"max_size_mib":      intSetter(func(c *Config) *int { return &c.MaxSizeMiB }),
	"concurrency":       intSetter(func(c *Config) *int { return &c.Concurrency }),
	"retries":           intSetter(func(c *Config) *int { return &c.Retries }),
	"placeholder_label": stringSetter(func(c *Config) *string { return &c.PlaceholderLabel }),
	"upload_mode":       stringSetter(func(c *Config) *string { return &c.UploadMode }),
	"endpoint":          stringSetter(func(c *Config) *string { return &c.Endpoint }),
	"store_dir":         stringSetter(func(c *Config) *string { return &c.StoreDir }),
	"base_url":          stringSetter(func(c *Config) *string { return &c.BaseURL }),
	"token_env":         stringSetter(func(c *Config) *string { return &c.TokenEnv }),
	"theme":             stringSetter(func(c *Config) *string { return &c.Theme }),
}

func intSetter(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func stringSetter(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

// Keys lists the settable keys, sorted.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set parses value into key and validates the result. Nothing changes on error.
func (m *Manager) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown config key %q (expected one of %s)", key, strings.Join(Keys(), ", "))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := m.config
	if err := set(&cfg, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Get returns the current value of key, as it would be written by Set.
func (m *Manager) Get(key string) (string, error) {
	if _, ok := setters[key]; !ok {
		return "", fmt.Errorf("unknown config key %q (expected one of %s)", key, strings.Join(Keys(), ", "))
	}

	data, err := yaml.Marshal(m.GetConfig())
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return "", fmt.Errorf("unmarshal config: %w", err)
	}

	value, ok := values[key]
	if !ok || value == nil {
		return "", nil
	}
	return fmt.Sprint(value), nil
}
