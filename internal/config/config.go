package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/justyntemme/multipane/internal/logging"
)

// Config holds all user-configurable settings loaded from config.json
type Config struct {
	Listing  ListingConfig  `json:"listing"`
	Resolver ResolverConfig `json:"resolver"`
	Search   SearchConfig   `json:"search"`
	Transfer TransferConfig `json:"transfer"`
	Sort     SortConfig     `json:"sort"`
	Watch    WatchConfig    `json:"watch"`
	Journal  JournalConfig  `json:"journal"`
	Log      LogConfig      `json:"log"`
}

// ListingConfig holds directory listing settings
type ListingConfig struct {
	BatchSize int `json:"batchSize"` // entries per EntriesAppended batch
}

// ResolverConfig holds lazy attribute resolution settings
type ResolverConfig struct {
	BatchSize      int `json:"batchSize"`
	ViewportMargin int `json:"viewportMargin"` // rows resolved beyond the visible range
	StopWaitMs     int `json:"stopWaitMs"`
}

// SearchConfig holds search-related settings
type SearchConfig struct {
	BatchSize   int `json:"batchSize"`
	ResultLimit int `json:"resultLimit"`
}

// TransferConfig holds copy/move settings
type TransferConfig struct {
	ScanFileLimit      int `json:"scanFileLimit"`
	ScanTimeLimitMs    int `json:"scanTimeLimitMs"`
	ProgressIntervalMs int `json:"progressIntervalMs"`
	CopyBufferSize     int `json:"copyBufferSize"`
}

// SortConfig holds the default ordering
type SortConfig struct {
	Column     string `json:"column"` // "name" | "size" | "type" | "modified"
	Descending bool   `json:"descending"`
	Locale     string `json:"locale"` // BCP 47 tag for name collation
}

// WatchConfig holds directory watcher settings
type WatchConfig struct {
	Enabled    bool `json:"enabled"`
	DebounceMs int  `json:"debounceMs"`
}

// JournalConfig holds transfer journal settings
type JournalConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"` // empty = journal.db next to config.json
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `json:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `json:"format"` // "console" | "json"
}

func (r ResolverConfig) StopWait() time.Duration {
	return time.Duration(r.StopWaitMs) * time.Millisecond
}

func (t TransferConfig) ScanTimeLimit() time.Duration {
	return time.Duration(t.ScanTimeLimitMs) * time.Millisecond
}

func (t TransferConfig) ProgressInterval() time.Duration {
	return time.Duration(t.ProgressIntervalMs) * time.Millisecond
}

func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// Manager handles loading, saving, and accessing configuration
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	parseErr error // Stores parsing error if config failed to load
}

// NewManager creates a configuration manager for the default path
func NewManager() *Manager {
	return NewManagerAt(ConfigPath())
}

// NewManagerAt creates a configuration manager backed by path
func NewManagerAt(path string) *Manager {
	return &Manager{
		config: DefaultConfig(),
		path:   path,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Listing: ListingConfig{
			BatchSize: 400,
		},
		Resolver: ResolverConfig{
			BatchSize:      256,
			ViewportMargin: 40,
			StopWaitMs:     100,
		},
		Search: SearchConfig{
			BatchSize:   600,
			ResultLimit: 50000,
		},
		Transfer: TransferConfig{
			ScanFileLimit:      6000,
			ScanTimeLimitMs:    1200,
			ProgressIntervalMs: 50,
			CopyBufferSize:     1 << 20, // 1MB
		},
		Sort: SortConfig{
			Column: "name",
			Locale: "und",
		},
		Watch: WatchConfig{
			Enabled:    true,
			DebounceMs: 200,
		},
		Journal: JournalConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// ConfigPath returns the config file path: ~/.config/multipane/config.json
// This is consistent across all platforms (Windows, macOS, Linux)
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "multipane", "config.json")
}

// Path returns the file this manager reads and writes
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// JournalPath resolves the journal database location
func (m *Manager) JournalPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config != nil && m.config.Journal.Path != "" {
		return m.config.Journal.Path
	}
	return filepath.Join(filepath.Dir(m.path), "journal.db")
}

// Load reads the configuration from the config file
// If the file doesn't exist, creates it with defaults
// If parsing fails, stores the error and returns defaults
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.parseErr = nil

	// Ensure config directory exists
	configDir := filepath.Dir(m.path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		logging.Warn("config: failed to create directory", logging.String("dir", configDir), logging.Err(err))
		return err
	}

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		logging.Info("config: creating default config", logging.String("path", m.path))
		m.config = DefaultConfig()
		if saveErr := m.saveUnlocked(); saveErr != nil {
			logging.Warn("config: failed to save default config", logging.Err(saveErr))
			return saveErr
		}
		return nil
	}
	if err != nil {
		logging.Warn("config: failed to read", logging.String("path", m.path), logging.Err(err))
		return err
	}

	// Unset keys keep their defaults
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		logging.Warn("config: JSON parse error, using defaults", logging.String("path", m.path), logging.Err(err))
		m.parseErr = err
		m.config = DefaultConfig()
		return nil // Don't return error - we're using defaults
	}

	logging.Debug("config: loaded", logging.String("path", m.path))
	m.config = cfg
	return nil
}

// saveUnlocked saves config without acquiring lock (caller must hold lock)
func (m *Manager) saveUnlocked() error {
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}
	return writeLocked(m.path, data)
}

// writeLocked replaces path with data while holding path.lock, so two
// processes saving at once cannot interleave.
func writeLocked(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock config: %w", err)
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveUnlocked()
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return *DefaultConfig()
	}
	return *m.config
}

// Update applies fn to the configuration and saves it
func (m *Manager) Update(fn func(*Config)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.config)
	return m.saveUnlocked()
}

// ParseError returns the parsing error if config failed to load
func (m *Manager) ParseError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parseErr
}

// GenerateConfig backs up the config at configPath and writes a fresh default.
// Returns the backup path if a backup was created, or empty string if no existing config
func GenerateConfig(configPath string) (backupPath string, err error) {
	if _, err := os.Stat(configPath); err == nil {
		timestamp := time.Now().Format("20060102-150405")
		backupPath = filepath.Join(filepath.Dir(configPath), "config.backup."+timestamp+".json")

		data, err := os.ReadFile(configPath)
		if err != nil {
			return "", fmt.Errorf("failed to read existing config: %w", err)
		}
		if err := os.WriteFile(backupPath, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write backup: %w", err)
		}
	}

	data, err := json.MarshalIndent(DefaultConfig(), "", "  ")
	if err != nil {
		return backupPath, fmt.Errorf("failed to marshal default config: %w", err)
	}
	if err := writeLocked(configPath, data); err != nil {
		return backupPath, fmt.Errorf("failed to write config: %w", err)
	}
	return backupPath, nil
}
