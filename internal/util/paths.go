package util

import (
	"os"
	"path/filepath"
	"strings"
)

// HomeDir returns the user's home directory
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return home
}

// PermisyncConfigPath returns the permisync configuration directory
func PermisyncConfigPath() string {
	return filepath.Join(HomeDir(), ".config", "permisync")
}

// PermisyncDataPath returns the directory holding the local database and logs
func PermisyncDataPath() string {
	return filepath.Join(HomeDir(), ".local", "share", "permisync")
}

// DatabasePath returns the default SQLite database location
func DatabasePath() string {
	return filepath.Join(PermisyncDataPath(), "permisos.db")
}

// BackupsPath returns the directory for database snapshots
func BackupsPath() string {
	return filepath.Join(PermisyncDataPath(), "backups")
}

// SyncHistoryPath returns the directory for sync history and audit logs
func SyncHistoryPath() string {
	return filepath.Join(PermisyncDataPath(), "logs", "sync_history")
}

// EventLogPath returns the default JSONL event sink location
func EventLogPath() string {
	return filepath.Join(PermisyncDataPath(), "logs", "sync_events.jsonl")
}

// ExpandPath expands a leading ~ to the home directory and resolves
// relative paths against baseDir. An empty input stays empty.
func ExpandPath(path, baseDir string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		return HomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(HomeDir(), path[2:])
	}
	if !filepath.IsAbs(path) && baseDir != "" {
		return filepath.Join(baseDir, path)
	}
	return path
}
