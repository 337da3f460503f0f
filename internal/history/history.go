// Package history persists the rolling record of sync runs: a JSON-Lines
// file capped to the most recent entries plus a "last sync" snapshot
// rewritten after every run.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauern/permisync/internal/logging"
	"github.com/klauern/permisync/internal/sync"
)

// DefaultLimit is how many runs the history file retains.
const DefaultLimit = 20

const (
	historyFile      = "history.jsonl"
	lastSyncJSONFile = "last_sync.json"
	lastSyncMarkdown = "last_sync.md"
)

// Entry is one recorded sync run.
type Entry struct {
	Operation         string    `json:"operation"`
	DryRun            bool      `json:"dry_run,omitempty"`
	Status            string    `json:"status"`
	Attempts          int       `json:"attempts"`
	Creations         int       `json:"creations"`
	Updates           int       `json:"updates"`
	OmittedDuplicates int       `json:"omitted_duplicates"`
	Conflicts         int       `json:"conflicts"`
	ConflictLabels    []string  `json:"conflict_labels,omitempty"`
	Errors            []string  `json:"errors,omitempty"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
	DurationSeconds   float64   `json:"duration_seconds"`
}

// EntryFromReport converts an orchestrator report into a history entry.
func EntryFromReport(r *sync.Report) Entry {
	return Entry{
		Operation:         string(r.Operation),
		DryRun:            r.DryRun,
		Status:            string(r.Status),
		Attempts:          r.Attempts,
		Creations:         r.Creations,
		Updates:           r.Updates,
		OmittedDuplicates: r.OmittedDuplicates,
		Conflicts:         r.Conflicts,
		ConflictLabels:    append([]string(nil), r.ConflictLabels...),
		Errors:            append([]string(nil), r.Errors...),
		StartedAt:         r.StartedAt,
		FinishedAt:        r.FinishedAt,
		DurationSeconds:   r.Duration.Seconds(),
	}
}

// Store reads and writes the history directory.
type Store struct {
	dir   string
	limit int
}

// NewStore creates a store rooted at dir, keeping at most DefaultLimit
// entries.
func NewStore(dir string) *Store {
	return &Store{dir: dir, limit: DefaultLimit}
}

// NewStoreWithLimit creates a store with an explicit retention limit.
func NewStoreWithLimit(dir string, limit int) *Store {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Store{dir: dir, limit: limit}
}

// Path returns the JSONL history file path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, historyFile)
}

// Entries returns all retained runs, oldest first. A missing file is an
// empty history.
func (s *Store) Entries() ([]Entry, error) {
	entries, err := logging.ReadJSONLines[Entry](s.Path())
	if err != nil {
		return nil, fmt.Errorf("read sync history: %w", err)
	}
	return entries, nil
}

// Latest returns the most recent run, or false when the history is empty.
func (s *Store) Latest() (Entry, bool, error) {
	entries, err := s.Entries()
	if err != nil || len(entries) == 0 {
		return Entry{}, false, err
	}
	return entries[len(entries)-1], true, nil
}

// Append records one run, prunes history past the retention limit, and
// rewrites the last-sync snapshots.
func (s *Store) Append(entry Entry) error {
	entries, err := s.Entries()
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	if len(entries) > s.limit {
		entries = entries[len(entries)-s.limit:]
	}

	if err := s.rewrite(entries); err != nil {
		return err
	}
	if err := s.writeSnapshots(entry); err != nil {
		return err
	}

	logging.Debug("recorded sync run",
		logging.Path(s.Path()),
		logging.Count(len(entries)),
	)
	return nil
}

// rewrite replaces the history file with the retained entries. Pruning
// requires a full rewrite; the file stays small by construction.
func (s *Store) rewrite(entries []Entry) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("encode history entry: %w", err)
		}
	}
	if err := os.WriteFile(s.Path(), []byte(buf.String()), 0o644); err != nil {
		return fmt.Errorf("write sync history: %w", err)
	}
	return nil
}

func (s *Store) writeSnapshots(entry Entry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encode last-sync snapshot: %w", err)
	}
	jsonPath := filepath.Join(s.dir, lastSyncJSONFile)
	if err := os.WriteFile(jsonPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write last-sync snapshot: %w", err)
	}

	mdPath := filepath.Join(s.dir, lastSyncMarkdown)
	if err := os.WriteFile(mdPath, []byte(renderMarkdown(entry)), 0o644); err != nil {
		return fmt.Errorf("write last-sync summary: %w", err)
	}
	return nil
}

func renderMarkdown(entry Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Última sincronización\n\n")
	fmt.Fprintf(&b, "- **Operación**: %s\n", entry.Operation)
	fmt.Fprintf(&b, "- **Estado**: %s\n", entry.Status)
	fmt.Fprintf(&b, "- **Intentos**: %d\n", entry.Attempts)
	fmt.Fprintf(&b, "- **Altas**: %d\n", entry.Creations)
	fmt.Fprintf(&b, "- **Actualizaciones**: %d\n", entry.Updates)
	fmt.Fprintf(&b, "- **Duplicados omitidos**: %d\n", entry.OmittedDuplicates)
	fmt.Fprintf(&b, "- **Conflictos**: %d\n", entry.Conflicts)
	fmt.Fprintf(&b, "- **Finalizada**: %s\n", entry.FinishedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Duración**: %.2fs\n", entry.DurationSeconds)
	if len(entry.Errors) > 0 {
		fmt.Fprintf(&b, "\n## Errores\n\n")
		for _, e := range entry.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	return b.String()
}
