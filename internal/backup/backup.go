// Package backup provides compressed snapshots of the local permit database
package backup

import (
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const (
	// DirPerm is the permission for backup directories (rwxr-x---)
	DirPerm = 0o750
	// FilePerm is the permission for snapshot files (rw-r-----)
	FilePerm = 0o640

	// TriggerManual marks snapshots requested from the command line
	TriggerManual = "manual"
	// TriggerPreSync marks snapshots taken automatically before a sync run
	TriggerPreSync = "pre-sync"

	snapshotExt = ".db.gz"
)

// Options configures snapshot creation
type Options struct {
	Trigger     string // What produced the snapshot (manual, pre-sync)
	Description string // Human-readable description
}

// Create takes a compressed snapshot of the database at databasePath and
// stores it under dir, recording it in the index.
func Create(dir, databasePath string, opts Options) (*Metadata, error) {
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	sourceInfo, err := os.Stat(databasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat database %q: %w", databasePath, err)
	}

	// #nosec G304 - databasePath comes from the user's configuration
	content, err := os.ReadFile(databasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read database %q: %w", databasePath, err)
	}

	hash := sha256.Sum256(content)
	hashStr := hex.EncodeToString(hash[:])

	snapshotID := time.Now().Format("20060102-150405-") + hashStr[:8]
	snapshotPath := filepath.Join(dir, snapshotID+snapshotExt)

	if err := writeCompressed(snapshotPath, content); err != nil {
		return nil, err
	}

	storedInfo, err := os.Stat(snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}

	trigger := opts.Trigger
	if trigger == "" {
		trigger = TriggerManual
	}

	metadata := &Metadata{
		ID:           snapshotID,
		SourcePath:   databasePath,
		SnapshotPath: snapshotPath,
		Trigger:      trigger,
		CreatedAt:    time.Now(),
		ModifiedAt:   sourceInfo.ModTime(),
		Hash:         hashStr,
		Size:         sourceInfo.Size(),
		StoredSize:   storedInfo.Size(),
		Description:  opts.Description,
	}

	index, err := LoadIndex(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot index: %w", err)
	}

	if err := index.Add(dir, *metadata); err != nil {
		return nil, fmt.Errorf("failed to add snapshot to index: %w", err)
	}

	return metadata, nil
}

// Restore decompresses the identified snapshot to targetPath, verifying its
// hash before writing.
func Restore(dir, snapshotID, targetPath string) error {
	index, err := LoadIndex(dir)
	if err != nil {
		return fmt.Errorf("failed to load snapshot index: %w", err)
	}

	metadata, exists := index.Snapshots[snapshotID]
	if !exists {
		return fmt.Errorf("snapshot %q not found", snapshotID)
	}

	content, err := readCompressed(metadata.SnapshotPath)
	if err != nil {
		return err
	}

	hash := sha256.Sum256(content)
	if hex.EncodeToString(hash[:]) != metadata.Hash {
		return fmt.Errorf("snapshot corrupted: hash mismatch")
	}

	targetDir := filepath.Dir(targetPath)
	if err := os.MkdirAll(targetDir, DirPerm); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}

	if err := os.WriteFile(targetPath, content, FilePerm); err != nil {
		return fmt.Errorf("failed to write database file: %w", err)
	}

	return nil
}

// List returns all snapshots under dir, newest first
func List(dir string) ([]Metadata, error) {
	index, err := LoadIndex(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot index: %w", err)
	}

	return index.List(), nil
}

// Delete removes a snapshot file and its index entry
func Delete(dir, snapshotID string) error {
	index, err := LoadIndex(dir)
	if err != nil {
		return fmt.Errorf("failed to load snapshot index: %w", err)
	}

	metadata, exists := index.Snapshots[snapshotID]
	if !exists {
		return fmt.Errorf("snapshot %q not found", snapshotID)
	}

	if err := os.Remove(metadata.SnapshotPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot file: %w", err)
	}

	if err := index.Remove(dir, snapshotID); err != nil {
		return fmt.Errorf("failed to remove snapshot from index: %w", err)
	}

	return nil
}

// Verify checks that a snapshot is intact and matches its recorded hash
func Verify(dir, snapshotID string) error {
	index, err := LoadIndex(dir)
	if err != nil {
		return fmt.Errorf("failed to load snapshot index: %w", err)
	}

	metadata, exists := index.Snapshots[snapshotID]
	if !exists {
		return fmt.Errorf("snapshot %q not found", snapshotID)
	}

	if _, err := os.Stat(metadata.SnapshotPath); os.IsNotExist(err) {
		return fmt.Errorf("snapshot file missing: %s", metadata.SnapshotPath)
	}

	content, err := readCompressed(metadata.SnapshotPath)
	if err != nil {
		return err
	}

	hash := sha256.Sum256(content)
	if got := hex.EncodeToString(hash[:]); got != metadata.Hash {
		return fmt.Errorf("snapshot corrupted: hash mismatch (expected %s, got %s)", metadata.Hash, got)
	}

	return nil
}

func writeCompressed(path string, content []byte) error {
	// #nosec G304 - path is derived from the configured backup directory
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, FilePerm)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}

	zw := gzip.NewWriter(f)
	if _, err := zw.Write(content); err != nil {
		_ = zw.Close()
		_ = f.Close()
		return fmt.Errorf("failed to compress snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to finish snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot file: %w", err)
	}

	return nil
}

func readCompressed(path string) ([]byte, error) {
	// #nosec G304 - path comes from the snapshot index
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer func() { _ = f.Close() }()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	defer func() { _ = zr.Close() }()

	content, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}

	return content, nil
}
