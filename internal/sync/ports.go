package sync

import (
	"context"
	"time"

	"github.com/klauern/permisync/internal/model"
)

// LocalStore is the relational side of the reconciliation. Implementations
// must expose updated_at per row as sortable ISO-8601 text.
type LocalStore interface {
	// ChangedSince returns rows changed after the watermark. An empty
	// watermark returns every row.
	ChangedSince(ctx context.Context, watermark string) ([]model.Record, error)

	// ByUUID looks a row up by uuid. The second result is false when no
	// such row exists.
	ByUUID(ctx context.Context, uuid string) (model.Record, bool, error)

	// Insert stores a new row.
	Insert(ctx context.Context, rec model.Record) error

	// Update overwrites an existing row.
	Update(ctx context.Context, rec model.Record) error

	// RecordConflict stores a divergent row for later explicit resolution.
	RecordConflict(ctx context.Context, uuid, reason string) error
}

// RemoteStore is the shared worksheet ledger. The sync core never issues
// per-row remote writes: reads fetch the whole sheet and writes overwrite
// the whole range, which keeps retries after a timed-out attempt idempotent.
type RemoteStore interface {
	// ReadRows returns every data row of the worksheet in sheet order,
	// including legacy rows without a uuid.
	ReadRows(ctx context.Context) ([]model.Record, error)

	// Overwrite replaces the entire sheet range with the given matrix,
	// header row first.
	Overwrite(ctx context.Context, matrix [][]any) error
}

// ConfigStore persists the sync watermark and generic key/value settings.
type ConfigStore interface {
	// LastSyncAt returns the watermark as ISO-8601 text, or "" when no
	// sync has succeeded yet.
	LastSyncAt() (string, error)

	// SetLastSyncAt persists a new watermark. Called exactly once per
	// successful attempt, never during planning.
	SetLastSyncAt(ts string) error

	// Get returns a config value, or "" when unset.
	Get(key string) (string, error)

	// Set persists a config value.
	Set(key, value string) error
}

// SchemaChecker verifies the local schema before a sync and reports the
// actions it took (created tables, added columns).
type SchemaChecker interface {
	CheckSchema(ctx context.Context) ([]string, error)
}

// Clock abstracts time for deterministic tests of backoff and staleness.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
	After(d time.Duration) <-chan time.Time
}

// RealClock is the production Clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// Sleep pauses the calling goroutine.
func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

// After returns a channel that fires after d.
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Dispatcher executes one sync attempt for the requested operation and
// reports what moved. Implementations should honor context cancellation
// promptly; the orchestrator signals it on timeout but does not wait for
// confirmed termination.
type Dispatcher interface {
	Dispatch(ctx context.Context, op Operation) (*Summary, error)
}
