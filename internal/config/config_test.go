package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Sync.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.Sync.MaxAttempts)
	}
	if cfg.Sync.InitialBackoff.Std() != 500*time.Millisecond {
		t.Errorf("InitialBackoff = %s, want 500ms", cfg.Sync.InitialBackoff)
	}
	if cfg.Sync.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %g, want 2.0", cfg.Sync.BackoffMultiplier)
	}
	if !cfg.Sync.CheckSchema {
		t.Error("CheckSchema should default to true")
	}
	if cfg.Alerts.StaleDays != 7 {
		t.Errorf("StaleDays = %d, want 7", cfg.Alerts.StaleDays)
	}
	if cfg.Output.Color != "auto" {
		t.Errorf("Color = %q, want auto", cfg.Output.Color)
	}
	if cfg.Storage.BackupDir == "" {
		t.Error("BackupDir should have a default")
	}
}

func TestLoadFromPath_YAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
remote:
  spreadsheet_id: 1abc
  worksheet: Permisos2026
  credentials_path: /etc/permisync/credentials.json
sync:
  max_attempts: 5
  timeout: 90s
state:
  last_sync_at: "2026-02-01T00:00:00"
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}

	if cfg.Remote.SpreadsheetID != "1abc" || cfg.Remote.Worksheet != "Permisos2026" {
		t.Errorf("remote = %+v", cfg.Remote)
	}
	if cfg.Sync.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.Sync.MaxAttempts)
	}
	if cfg.Sync.Timeout.Std() != 90*time.Second {
		t.Errorf("Timeout = %s, want 90s", cfg.Sync.Timeout)
	}
	// Unset values keep their defaults.
	if cfg.Sync.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %g, want default 2.0", cfg.Sync.BackoffMultiplier)
	}
	if cfg.State.LastSyncAt != "2026-02-01T00:00:00" {
		t.Errorf("LastSyncAt = %q", cfg.State.LastSyncAt)
	}
}

func TestLoadFromPath_TOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[remote]
spreadsheet_id = "1toml"
worksheet = "Permisos2026"

[sync]
max_attempts = 4
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}

	if cfg.Remote.SpreadsheetID != "1toml" {
		t.Errorf("SpreadsheetID = %q, want 1toml", cfg.Remote.SpreadsheetID)
	}
	if cfg.Sync.MaxAttempts != 4 {
		t.Errorf("MaxAttempts = %d, want 4", cfg.Sync.MaxAttempts)
	}
}

func TestLoadFromPath_Missing(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestApplyEnvironment(t *testing.T) {
	t.Setenv("PERMISYNC_REMOTE_WORKSHEET", "Permisos2027")
	t.Setenv("PERMISYNC_SYNC_MAX_ATTEMPTS", "6")
	t.Setenv("PERMISYNC_SYNC_TIMEOUT", "2m")
	t.Setenv("PERMISYNC_OUTPUT_VERBOSE", "yes")
	t.Setenv("PERMISYNC_SYNC_CHECK_SCHEMA", "off")

	cfg := Default()
	cfg.applyEnvironment()

	if cfg.Remote.Worksheet != "Permisos2027" {
		t.Errorf("Worksheet = %q", cfg.Remote.Worksheet)
	}
	if cfg.Sync.MaxAttempts != 6 {
		t.Errorf("MaxAttempts = %d, want 6", cfg.Sync.MaxAttempts)
	}
	if cfg.Sync.Timeout.Std() != 2*time.Minute {
		t.Errorf("Timeout = %s, want 2m", cfg.Sync.Timeout)
	}
	if !cfg.Output.Verbose {
		t.Error("Verbose override not applied")
	}
	if cfg.Sync.CheckSchema {
		t.Error("CheckSchema = true, want env override to false")
	}
}

func TestApplyEnvironment_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("PERMISYNC_SYNC_MAX_ATTEMPTS", "zero")
	t.Setenv("PERMISYNC_SYNC_TIMEOUT", "soon")

	cfg := Default()
	cfg.applyEnvironment()

	if cfg.Sync.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want default 3", cfg.Sync.MaxAttempts)
	}
	if cfg.Sync.Timeout.Std() != 60*time.Second {
		t.Errorf("Timeout = %s, want default 60s", cfg.Sync.Timeout)
	}
}

func TestSaveToPath_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Remote.SpreadsheetID = "1round"
	cfg.State.LastSyncAt = "2026-03-01T12:00:00"
	if err := cfg.SaveToPath(path); err != nil {
		t.Fatalf("SaveToPath() error: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if loaded.Remote.SpreadsheetID != "1round" {
		t.Errorf("SpreadsheetID = %q", loaded.Remote.SpreadsheetID)
	}
	if loaded.State.LastSyncAt != "2026-03-01T12:00:00" {
		t.Errorf("LastSyncAt = %q", loaded.State.LastSyncAt)
	}
}

func TestStore_WatermarkPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	store := NewStore(Default(), path)

	ts, err := store.LastSyncAt()
	if err != nil {
		t.Fatalf("LastSyncAt() error: %v", err)
	}
	if ts != "" {
		t.Errorf("fresh store watermark = %q, want empty", ts)
	}

	if err := store.SetLastSyncAt("2026-03-01T12:00:00"); err != nil {
		t.Fatalf("SetLastSyncAt() error: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if loaded.State.LastSyncAt != "2026-03-01T12:00:00" {
		t.Errorf("persisted watermark = %q", loaded.State.LastSyncAt)
	}
}

func TestStore_KeyValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	store := NewStore(Default(), path)

	if err := store.Set("worksheet_etag", "abc123"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	got, err := store.Get("worksheet_etag")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != "abc123" {
		t.Errorf("Get() = %q, want abc123", got)
	}

	missing, err := store.Get("unset")
	if err != nil || missing != "" {
		t.Errorf("Get(unset) = %q, %v", missing, err)
	}
}

func TestStore_Silences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	store := NewStore(Default(), path)

	until := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if err := store.Silence("stale_sync", until); err != nil {
		t.Fatalf("Silence() error: %v", err)
	}

	silenced := store.Silenced()
	if !silenced["stale_sync"].Equal(until) {
		t.Errorf("Silenced() = %v", silenced)
	}

	// The returned map is a copy.
	silenced["stale_sync"] = until.Add(time.Hour)
	if store.Silenced()["stale_sync"].Add(time.Hour) != silenced["stale_sync"] {
		t.Error("mutating the returned map changed the store")
	}
}
