// Package backup provides compressed snapshots of the local permit database
package backup

import (
	"fmt"
	"sort"
	"time"
)

// CleanupOptions configures snapshot retention
type CleanupOptions struct {
	// MaxSnapshots limits the number of snapshots to keep per database (0 = unlimited)
	MaxSnapshots int

	// MaxAge is the maximum age of snapshots to keep (0 = unlimited)
	MaxAge time.Duration

	// KeepAtLeastOne ensures at least one snapshot survives per database
	KeepAtLeastOne bool

	// DryRun previews what would be deleted without actually deleting
	DryRun bool
}

// DefaultCleanupOptions returns sensible retention defaults
func DefaultCleanupOptions() CleanupOptions {
	return CleanupOptions{
		MaxSnapshots:   10,
		MaxAge:         30 * 24 * time.Hour,
		KeepAtLeastOne: true,
	}
}

// Cleanup removes old snapshots from dir based on the retention options and
// returns the IDs it deleted (or would delete, in dry-run mode).
func Cleanup(dir string, opts CleanupOptions) ([]string, error) {
	index, err := LoadIndex(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot index: %w", err)
	}

	// Group snapshots by the database they were taken from
	groups := make(map[string][]Metadata)
	for _, snap := range index.Snapshots {
		groups[snap.SourcePath] = append(groups[snap.SourcePath], snap)
	}

	var toDelete []string
	now := time.Now()

	for _, snapshots := range groups {
		sort.Slice(snapshots, func(i, j int) bool {
			return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
		})

		keepCount := 0
		var groupDelete []string
		for i, snap := range snapshots {
			expired := opts.MaxAge > 0 && now.Sub(snap.CreatedAt) > opts.MaxAge
			overflow := opts.MaxSnapshots > 0 && i >= opts.MaxSnapshots

			if expired || overflow {
				groupDelete = append(groupDelete, snap.ID)
			} else {
				keepCount++
			}
		}

		// Never delete the newest snapshot when it is all that remains
		if opts.KeepAtLeastOne && keepCount == 0 && len(groupDelete) > 0 {
			groupDelete = groupDelete[1:]
		}

		toDelete = append(toDelete, groupDelete...)
	}

	var deleted []string
	for _, snapshotID := range toDelete {
		if !opts.DryRun {
			if err := Delete(dir, snapshotID); err != nil {
				return deleted, fmt.Errorf("failed to delete snapshot %q: %w", snapshotID, err)
			}
		}
		deleted = append(deleted, snapshotID)
	}

	return deleted, nil
}

// Stats summarizes the snapshots in a backup directory
type Stats struct {
	TotalSnapshots int
	TotalSize      int64
	StoredSize     int64
	ByTrigger      map[string]int
	Oldest         time.Time
	Newest         time.Time
}

// ComputeStats returns statistics about the snapshots under dir
func ComputeStats(dir string) (*Stats, error) {
	index, err := LoadIndex(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot index: %w", err)
	}

	stats := &Stats{
		TotalSnapshots: len(index.Snapshots),
		ByTrigger:      make(map[string]int),
		Oldest:         time.Now(),
	}

	for _, snap := range index.Snapshots {
		stats.TotalSize += snap.Size
		stats.StoredSize += snap.StoredSize
		stats.ByTrigger[snap.Trigger]++

		if snap.CreatedAt.Before(stats.Oldest) {
			stats.Oldest = snap.CreatedAt
		}
		if snap.CreatedAt.After(stats.Newest) {
			stats.Newest = snap.CreatedAt
		}
	}

	if stats.TotalSnapshots == 0 {
		stats.Oldest = time.Time{}
	}

	return stats, nil
}
