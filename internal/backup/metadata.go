// Package backup provides compressed snapshots of the local permit database
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Metadata describes a single database snapshot
type Metadata struct {
	ID           string    `json:"id"`            // Unique snapshot identifier (timestamp-based)
	SourcePath   string    `json:"source_path"`   // Database file the snapshot was taken from
	SnapshotPath string    `json:"snapshot_path"` // Path to the compressed snapshot
	Trigger      string    `json:"trigger"`       // What produced the snapshot (manual, pre-sync)
	CreatedAt    time.Time `json:"created_at"`
	ModifiedAt   time.Time `json:"modified_at"` // Database modification time at snapshot
	Hash         string    `json:"hash"`        // SHA256 of the uncompressed database
	Size         int64     `json:"size"`        // Uncompressed size in bytes
	StoredSize   int64     `json:"stored_size"` // Compressed size on disk
	Description  string    `json:"description,omitempty"`
}

// Index maintains an index of all snapshots in a backup directory
type Index struct {
	Version   string              `json:"version"`
	Updated   time.Time           `json:"updated"`
	Snapshots map[string]Metadata `json:"snapshots"` // Key: snapshot ID
}

const (
	// IndexVersion is the current version of the snapshot index format
	IndexVersion = "1.0"
	// IndexFilename is the name of the index file
	IndexFilename = "index.json"
)

// LoadIndex loads the snapshot index from dir. A missing index yields an
// empty one.
func LoadIndex(dir string) (*Index, error) {
	indexPath := filepath.Join(dir, IndexFilename)

	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		return &Index{
			Version:   IndexVersion,
			Updated:   time.Now(),
			Snapshots: make(map[string]Metadata),
		}, nil
	}

	// #nosec G304 - indexPath is derived from the configured backup directory
	data, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse index file: %w", err)
	}

	return &index, nil
}

// SaveIndex saves the snapshot index under dir
func SaveIndex(dir string, index *Index) error {
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	index.Updated = time.Now()

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	indexPath := filepath.Join(dir, IndexFilename)
	// #nosec G306 - index.json is metadata and can be group-readable
	if err := os.WriteFile(indexPath, data, FilePerm); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}

	return nil
}

// Add records a snapshot in the index and saves it
func (idx *Index) Add(dir string, metadata Metadata) error {
	if idx.Snapshots == nil {
		idx.Snapshots = make(map[string]Metadata)
	}

	idx.Snapshots[metadata.ID] = metadata

	return SaveIndex(dir, idx)
}

// Remove drops a snapshot from the index and saves it
func (idx *Index) Remove(dir, id string) error {
	delete(idx.Snapshots, id)
	return SaveIndex(dir, idx)
}

// List returns all snapshots sorted by creation time, newest first
func (idx *Index) List() []Metadata {
	snapshots := make([]Metadata, 0, len(idx.Snapshots))
	for _, snap := range idx.Snapshots {
		snapshots = append(snapshots, snap)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})

	return snapshots
}
