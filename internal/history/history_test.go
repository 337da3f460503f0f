package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauern/permisync/internal/sync"
)

func entryAt(finished time.Time, status string) Entry {
	return Entry{
		Operation:  "bidirectional",
		Status:     status,
		Attempts:   1,
		StartedAt:  finished.Add(-2 * time.Second),
		FinishedAt: finished,
	}
}

func TestAppend_RetainsOnlyMostRecentEntries(t *testing.T) {
	store := NewStoreWithLimit(t.TempDir(), 3)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		e := entryAt(base.Add(time.Duration(i)*time.Hour), "OK")
		e.Attempts = i + 1
		if err := store.Append(e); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	entries, err := store.Entries()
	if err != nil {
		t.Fatalf("Entries() error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("retained %d entries, want 3", len(entries))
	}
	// Oldest pruned: attempts 1 and 2 are gone, 3..5 remain in order.
	for i, e := range entries {
		if e.Attempts != i+3 {
			t.Errorf("entries[%d].Attempts = %d, want %d", i, e.Attempts, i+3)
		}
	}
}

func TestLatest_EmptyHistory(t *testing.T) {
	store := NewStore(t.TempDir())
	_, found, err := store.Latest()
	if err != nil {
		t.Fatalf("Latest() error: %v", err)
	}
	if found {
		t.Error("Latest() found an entry in an empty history")
	}
}

func TestAppend_WritesSnapshots(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	e := entryAt(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), "ERROR")
	e.Errors = []string{"connection to remote service failed: refused"}
	if err := store.Append(e); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	jsonData, err := os.ReadFile(filepath.Join(dir, "last_sync.json"))
	if err != nil {
		t.Fatalf("read json snapshot: %v", err)
	}
	if !strings.Contains(string(jsonData), `"status": "ERROR"`) {
		t.Errorf("json snapshot missing status: %s", jsonData)
	}

	md, err := os.ReadFile(filepath.Join(dir, "last_sync.md"))
	if err != nil {
		t.Fatalf("read markdown snapshot: %v", err)
	}
	for _, want := range []string{"Última sincronización", "**Estado**: ERROR", "## Errores"} {
		if !strings.Contains(string(md), want) {
			t.Errorf("markdown snapshot missing %q:\n%s", want, md)
		}
	}
}

func TestAppend_SnapshotsOverwrittenEachRun(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	if err := store.Append(entryAt(base, "ERROR")); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if err := store.Append(entryAt(base.Add(time.Hour), "OK")); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	md, err := os.ReadFile(filepath.Join(dir, "last_sync.md"))
	if err != nil {
		t.Fatalf("read markdown snapshot: %v", err)
	}
	if strings.Contains(string(md), "ERROR") {
		t.Errorf("snapshot still shows the previous run:\n%s", md)
	}
}

func TestEntryFromReport(t *testing.T) {
	started := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	report := &sync.Report{
		Operation:         sync.OperationPull,
		Status:            sync.StatusOK,
		Attempts:          2,
		Creations:         3,
		OmittedDuplicates: 1,
		ConflictLabels:    []string{"row-a"},
		StartedAt:         started,
		FinishedAt:        started.Add(1500 * time.Millisecond),
		Duration:          1500 * time.Millisecond,
	}

	entry := EntryFromReport(report)
	if entry.Operation != "pull" || entry.Status != "OK" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Creations != 3 || entry.Attempts != 2 {
		t.Errorf("counts not carried: %+v", entry)
	}
	if entry.DurationSeconds != 1.5 {
		t.Errorf("DurationSeconds = %g, want 1.5", entry.DurationSeconds)
	}
	if len(entry.ConflictLabels) != 1 || entry.ConflictLabels[0] != "row-a" {
		t.Errorf("ConflictLabels = %v", entry.ConflictLabels)
	}
}
