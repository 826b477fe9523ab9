// Package config provides the application settings file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// AppName names the per-user configuration directory.
const AppName = "autokeybind"

const (
	settingsFile        = "settings.yaml"
	defaultProfilesFile = "profiles.json"
	defaultSettleMs     = 100
	defaultQueueSize    = 16
	maxSettleMs         = 5000
)

// Config holds the application settings. Bindings live in the profiles file,
// not here.
type Config struct {
	// ProfilesFile is the JSON profiles store. Relative paths are resolved
	// against the settings directory.
	ProfilesFile string `yaml:"profiles_file"`

	// ActiveProfile is the profile selected when the app last ran.
	ActiveProfile string `yaml:"active_profile"`

	// DragSettleMs is how long a drag holds the button at the target.
	DragSettleMs int `yaml:"drag_settle_ms"`

	// ActionQueueSize bounds triggers waiting to be performed.
	ActionQueueSize int `yaml:"action_queue_size"`

	StartOnBoot bool   `yaml:"start_on_boot"`
	LogLevel    string `yaml:"log_level"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() Config {
	c := Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.ProfilesFile == "" {
		c.ProfilesFile = defaultProfilesFile
	}
	if c.DragSettleMs == 0 {
		c.DragSettleMs = defaultSettleMs
	}
	if c.ActionQueueSize == 0 {
		c.ActionQueueSize = defaultQueueSize
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	if c.DragSettleMs < 0 || c.DragSettleMs > maxSettleMs {
		return fmt.Errorf("drag_settle_ms must be between 0 and %d, got %d", maxSettleMs, c.DragSettleMs)
	}
	if c.ActionQueueSize < 0 {
		return fmt.Errorf("action_queue_size must not be negative, got %d", c.ActionQueueSize)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a log_level value onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", s, err)
	}
	return l, nil
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     Config

	// ioMu orders disk reads and writes; lastSaved is the content of our
	// most recent write, so the watcher can skip its own echo.
	ioMu      sync.Mutex
	lastSaved []byte

	cbMu      sync.Mutex
	onChanged []func(Config)
}

// NewManager creates a manager for the settings file at path, or at the
// per-user default location when path is empty.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		p, err := getConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}, nil
}

// Dir returns the directory holding the settings file.
func Dir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", AppName)
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, AppName)
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, AppName)
			break
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", AppName)
	}
	return configDir, nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath() (string, error) {
	configDir, err := Dir()
	if err != nil {
		return "", err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(configDir, settingsFile), nil
}

// Path returns the settings file path.
func (m *Manager) Path() string {
	return m.configPath
}

// Load reads the configuration from disk. A missing file keeps the current
// values. An invalid file is rejected and the current values are kept. A
// file holding exactly what this manager last wrote is not reloaded.
func (m *Manager) Load() error {
	cfg, changed, err := m.load()
	if err != nil {
		return err
	}
	if changed {
		slog.Debug("[config] settings loaded", "path", m.configPath)
		m.notify(cfg)
	}
	return nil
}

func (m *Manager) load() (Config, bool, error) {
	m.ioMu.Lock()
	defer m.ioMu.Unlock()

	data, err := os.ReadFile(m.configPath)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("[config] no settings file, using defaults", "path", m.configPath)
		return Config{}, false, nil
	}
	if err != nil {
		return Config{}, false, fmt.Errorf("read settings: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		// Seen mid-write by another program; the next event carries the content.
		return Config{}, false, nil
	}
	if m.lastSaved != nil && bytes.Equal(data, m.lastSaved) {
		return Config{}, false, nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("parse settings %s: %w", m.configPath, err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, false, fmt.Errorf("invalid settings %s: %w", m.configPath, err)
	}

	m.mu.Lock()
	changed := cfg != m.config
	m.config = cfg
	m.mu.Unlock()
	return cfg, changed, nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.ioMu.Lock()
	defer m.ioMu.Unlock()
	return m.saveLocked(m.Get())
}

func (m *Manager) saveLocked(cfg Config) error {
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	data = append([]byte("# autokeybind settings\n"), data...)

	slog.Debug("[config] saving settings", "path", m.configPath, "bytes", len(data))
	if err := atomicWrite(m.configPath, data); err != nil {
		return err
	}
	m.lastSaved = data
	return nil
}

// atomicWrite writes data to a temp file in the same directory and renames it
// over path, so the watcher never reads a partial file.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("save settings: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+settingsFile+".tmp.*")
	if err != nil {
		return fmt.Errorf("save settings: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
		}
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("save settings: write: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("save settings: sync: %w", err)
	}
	err = tmp.Close()
	tmp = nil
	if err != nil {
		return fmt.Errorf("save settings: close: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("save settings: rename: %w", err)
	}
	return nil
}

// Get returns the current configuration
func (m *Manager) Get() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Set validates and replaces the configuration.
func (m *Manager) Set(cfg Config) error {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return err
	}
	m.mu.Lock()
	changed := cfg != m.config
	m.config = cfg
	m.mu.Unlock()
	if changed {
		m.notify(cfg)
	}
	return nil
}

// Update applies fn to a copy of the configuration, then sets and saves it.
// No reload can slip in between the two.
func (m *Manager) Update(fn func(*Config)) error {
	m.ioMu.Lock()
	cfg := m.Get()
	fn(&cfg)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		m.ioMu.Unlock()
		return err
	}
	m.mu.Lock()
	changed := cfg != m.config
	m.config = cfg
	m.mu.Unlock()
	err := m.saveLocked(cfg)
	m.ioMu.Unlock()

	if changed {
		m.notify(cfg)
	}
	return err
}

// ProfilesPath resolves ProfilesFile against the settings directory.
func (m *Manager) ProfilesPath() string {
	p := m.Get().ProfilesFile
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(m.configPath), p)
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func(Config)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.onChanged = append(m.onChanged, fn)
}

func (m *Manager) notify(cfg Config) {
	m.cbMu.Lock()
	fns := make([]func(Config), len(m.onChanged))
	copy(fns, m.onChanged)
	m.cbMu.Unlock()
	for _, fn := range fns {
		fn(cfg)
	}
}
