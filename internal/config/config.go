package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	ContentDir       string `toml:"content_dir"`
	StateDir         string `toml:"state_dir"`
	LogDir           string `toml:"log_dir"`
	FallbackSnapshot string `toml:"fallback_snapshot"`
	APIBind          string `toml:"api_bind"`
	APIToken         string `toml:"api_token"`
}

// Notion contains the CMS integration credentials.
type Notion struct {
	IntegrationSecret string `toml:"integration_secret"`
	PageURL           string `toml:"page_url"`
	BaseURL           string `toml:"base_url"`
	Version           string `toml:"version"`
	RequestTimeout    int    `toml:"request_timeout"`

	// PageID is derived from PageURL during normalization.
	PageID string `toml:"-"`
}

// Sync contains configuration for synchronization passes.
type Sync struct {
	IntervalMinutes int `toml:"interval_minutes"`
	DownloadTimeout int `toml:"download_timeout"`
	LockTimeout     int `toml:"lock_timeout"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	SyncFailures   bool   `toml:"sync_failures"`
	SyncCompleted  bool   `toml:"sync_completed"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for folio.
//
// Configuration sections by subsystem:
//   - Paths: content, state, and log directories plus the API bind address
//   - Notion: CMS credentials and root page
//   - Sync: scheduler interval and download/lock timeouts
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Notion        Notion        `toml:"notion"`
	Sync          Sync          `toml:"sync"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory is loaded
// first so its values act as environment fallbacks.
func Load(path string) (*Config, string, bool, error) {
	_ = godotenv.Load()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("folio.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon and CLI operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ContentDir, c.MediaDir(), c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MediaDir returns the directory holding downloaded media files.
func (c *Config) MediaDir() string {
	return filepath.Join(c.Paths.ContentDir, "media")
}

// SnapshotPath returns the path of the generated snapshot document.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.Paths.ContentDir, "profileData.json")
}

// MetadataPath returns the path of the update metadata document.
func (c *Config) MetadataPath() string {
	return filepath.Join(c.Paths.ContentDir, "lastUpdate.json")
}

// SyncLockPath returns the lock file serializing synchronization passes across processes.
func (c *Config) SyncLockPath() string {
	return filepath.Join(c.Paths.ContentDir, ".sync.lock")
}

// HistoryDBPath returns the sqlite database recording sync runs.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// DaemonLockPath returns the lock file enforcing a single daemon instance.
func (c *Config) DaemonLockPath() string {
	return filepath.Join(c.Paths.StateDir, "folio.lock")
}

// SyncInterval returns the scheduler interval. Zero disables scheduled passes.
func (c *Config) SyncInterval() time.Duration {
	if c.Sync.IntervalMinutes <= 0 {
		return 0
	}
	return time.Duration(c.Sync.IntervalMinutes) * time.Minute
}

// DownloadTimeout returns the per-download timeout.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Sync.DownloadTimeout) * time.Second
}

// LockTimeout returns how long a sync pass waits for another process to release the sync lock.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Sync.LockTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// Sample returns the annotated sample configuration.
func Sample() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
