// Package config provides configuration management for permisync.
// It supports YAML and TOML configuration files, environment variables,
// and sensible defaults. The file also persists sync state: the
// last-sync watermark, alert silences, and free-form key/value pairs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/klauern/permisync/internal/util"
)

// Duration wraps time.Duration so config files can carry values like
// "500ms" or "2m" in both YAML and TOML.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config represents the complete permisync configuration.
type Config struct {
	// Remote configures the spreadsheet ledger connection
	Remote RemoteConfig `yaml:"remote" toml:"remote"`

	// Sync configures default synchronization behavior
	Sync SyncConfig `yaml:"sync" toml:"sync"`

	// Storage configures local database and log locations
	Storage StorageConfig `yaml:"storage" toml:"storage"`

	// Output configures display preferences
	Output OutputConfig `yaml:"output" toml:"output"`

	// Alerts configures the health/alerting engine
	Alerts AlertsConfig `yaml:"alerts" toml:"alerts"`

	// State holds values the program writes back: the watermark and
	// arbitrary key/value pairs
	State StateConfig `yaml:"state" toml:"state"`
}

// RemoteConfig holds the spreadsheet ledger settings.
type RemoteConfig struct {
	// SpreadsheetID identifies the remote spreadsheet
	SpreadsheetID string `yaml:"spreadsheet_id" toml:"spreadsheet_id"`
	// Worksheet is the tab within the spreadsheet holding leave requests
	Worksheet string `yaml:"worksheet" toml:"worksheet"`
	// CredentialsPath points at the service-account credentials file
	CredentialsPath string `yaml:"credentials_path" toml:"credentials_path"`
}

// SyncConfig holds synchronization settings.
type SyncConfig struct {
	// MaxAttempts is the total number of attempts per run, including the first
	MaxAttempts int `yaml:"max_attempts" toml:"max_attempts"`
	// InitialBackoff is the sleep before the second attempt
	InitialBackoff Duration `yaml:"initial_backoff" toml:"initial_backoff"`
	// BackoffMultiplier scales the backoff after each failed attempt
	BackoffMultiplier float64 `yaml:"backoff_multiplier" toml:"backoff_multiplier"`
	// Timeout is the hard wall-clock budget for a single attempt
	Timeout Duration `yaml:"timeout" toml:"timeout"`
	// CheckSchema runs the schema check before the first attempt
	CheckSchema bool `yaml:"check_schema" toml:"check_schema"`
}

// StorageConfig holds local storage locations.
type StorageConfig struct {
	// DatabasePath is the SQLite database location
	DatabasePath string `yaml:"database_path" toml:"database_path"`
	// HistoryDir holds the sync history and conflict-decision audit logs
	HistoryDir string `yaml:"history_dir" toml:"history_dir"`
	// EventLogPath is the JSONL structured event sink; empty disables it
	EventLogPath string `yaml:"event_log_path" toml:"event_log_path"`
	// BackupDir holds compressed database snapshots
	BackupDir string `yaml:"backup_dir" toml:"backup_dir"`
}

// OutputConfig holds display preferences.
type OutputConfig struct {
	// Color controls color output (auto, always, never)
	Color string `yaml:"color" toml:"color"`
	// Verbose enables verbose output
	Verbose bool `yaml:"verbose" toml:"verbose"`
}

// AlertsConfig holds alerting settings.
type AlertsConfig struct {
	// StaleDays is how many days without a sync counts as stale
	StaleDays int `yaml:"stale_days" toml:"stale_days"`
	// Silenced maps alert keys to the instant their snooze expires
	Silenced map[string]time.Time `yaml:"silenced,omitempty" toml:"silenced,omitempty"`
}

// StateConfig holds values written back by the program.
type StateConfig struct {
	// LastSyncAt is the watermark of the last successful sync
	LastSyncAt string `yaml:"last_sync_at,omitempty" toml:"last_sync_at,omitempty"`
	// Values holds free-form key/value pairs
	Values map[string]string `yaml:"values,omitempty" toml:"values,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Sync: SyncConfig{
			MaxAttempts:       3,
			InitialBackoff:    Duration(500 * time.Millisecond),
			BackoffMultiplier: 2.0,
			Timeout:           Duration(60 * time.Second),
			CheckSchema:       true,
		},
		Storage: StorageConfig{
			DatabasePath: util.DatabasePath(),
			HistoryDir:   util.SyncHistoryPath(),
			EventLogPath: util.EventLogPath(),
			BackupDir:    util.BackupsPath(),
		},
		Output: OutputConfig{
			Color:   "auto",
			Verbose: false,
		},
		Alerts: AlertsConfig{
			StaleDays: 7,
		},
	}
}

// configFileName is the name of the config file.
const configFileName = "config.yaml"

// FilePath returns the path to the config file.
func FilePath() string {
	return filepath.Join(util.PermisyncConfigPath(), configFileName)
}

// Load loads the configuration from file, merging with defaults.
// If the config file doesn't exist, returns default configuration.
func Load() (*Config, error) {
	configPath := FilePath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := Default()
		cfg.applyEnvironment()
		return cfg, nil
	}
	return LoadFromPath(configPath)
}

// LoadFromPath loads configuration from a specific path. Files ending in
// .toml are parsed as TOML, everything else as YAML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	// #nosec G304 - path is provided by caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyEnvironment()
	return cfg, nil
}

// Save writes the configuration to the config file.
func (c *Config) Save() error {
	return c.SaveToPath(FilePath())
}

// SaveToPath writes the configuration to a specific path as YAML.
func (c *Config) SaveToPath(path string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// #nosec G306 - config file should be readable by user
	return os.WriteFile(path, data, 0o644)
}

// applyEnvironment applies environment variable overrides.
// Environment variables follow the pattern PERMISYNC_<SECTION>_<KEY>.
func (c *Config) applyEnvironment() {
	// Remote settings
	if v := os.Getenv("PERMISYNC_REMOTE_SPREADSHEET_ID"); v != "" {
		c.Remote.SpreadsheetID = v
	}
	if v := os.Getenv("PERMISYNC_REMOTE_WORKSHEET"); v != "" {
		c.Remote.Worksheet = v
	}
	if v := os.Getenv("PERMISYNC_REMOTE_CREDENTIALS"); v != "" {
		c.Remote.CredentialsPath = v
	}

	// Sync settings
	if v := os.Getenv("PERMISYNC_SYNC_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			c.Sync.MaxAttempts = n
		}
	}
	if v := os.Getenv("PERMISYNC_SYNC_INITIAL_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			c.Sync.InitialBackoff = Duration(d)
		}
	}
	if v := os.Getenv("PERMISYNC_SYNC_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Sync.Timeout = Duration(d)
		}
	}
	if v := os.Getenv("PERMISYNC_SYNC_CHECK_SCHEMA"); v != "" {
		c.Sync.CheckSchema = parseBool(v)
	}

	// Storage settings
	if v := os.Getenv("PERMISYNC_STORAGE_DATABASE"); v != "" {
		c.Storage.DatabasePath = v
	}
	if v := os.Getenv("PERMISYNC_STORAGE_HISTORY_DIR"); v != "" {
		c.Storage.HistoryDir = v
	}
	if v := os.Getenv("PERMISYNC_STORAGE_EVENT_LOG"); v != "" {
		c.Storage.EventLogPath = v
	}
	if v := os.Getenv("PERMISYNC_STORAGE_BACKUP_DIR"); v != "" {
		c.Storage.BackupDir = v
	}

	// Output settings
	if v := os.Getenv("PERMISYNC_OUTPUT_COLOR"); v != "" {
		c.Output.Color = v
	}
	if v := os.Getenv("PERMISYNC_OUTPUT_VERBOSE"); v != "" {
		c.Output.Verbose = parseBool(v)
	}

	// Alert settings
	if v := os.Getenv("PERMISYNC_ALERTS_STALE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Alerts.StaleDays = n
		}
	}
}

// parseBool parses a boolean from common string representations.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// Exists returns true if a config file exists.
func Exists() bool {
	_, err := os.Stat(FilePath())
	return err == nil
}
