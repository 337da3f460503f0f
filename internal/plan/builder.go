package plan

import (
	"fmt"
	"sort"
	"time"

	"github.com/klauern/permisync/internal/conflict"
	"github.com/klauern/permisync/internal/model"
)

// Builder computes execution plans. It is pure relative to its inputs and
// safe to call from any goroutine.
type Builder struct {
	header []string
}

// NewBuilder creates a builder using the canonical worksheet header.
func NewBuilder() *Builder {
	return &Builder{header: model.CanonicalHeader()}
}

// NewBuilderWithHeader creates a builder with a custom field ordering.
// Primarily for tests with reduced schemas.
func NewBuilderWithHeader(header []string) *Builder {
	return &Builder{header: append([]string(nil), header...)}
}

// BuildInput carries the two replica snapshots a plan is computed from.
type BuildInput struct {
	// Worksheet names the remote worksheet.
	Worksheet string

	// Local holds the local rows changed since the watermark, or all rows
	// when no watermark exists. Order is preserved in the plan.
	Local []model.Record

	// Remote indexes the current worksheet rows by uuid.
	Remote map[string]model.Record

	// LastSyncAt is the watermark as ISO-8601 text, or "" when no sync has
	// succeeded yet.
	LastSyncAt string

	// GeneratedAt stamps the plan. Injected so planning stays deterministic
	// under test.
	GeneratedAt time.Time
}

// Build compares the local snapshot against the remote index and produces
// the execution plan. Local rows without a uuid are recorded in
// PotentialErrors and excluded entirely. Remote rows never seen locally, and
// the remote version of conflicted rows, are carried into the values matrix
// verbatim so a whole-sheet rewrite cannot drop data the local side has not
// won the right to replace.
func (b *Builder) Build(in BuildInput) *ExecutionPlan {
	p := &ExecutionPlan{
		GeneratedAt:     in.GeneratedAt,
		Worksheet:       in.Worksheet,
		ToCreate:        []Item{},
		ToUpdate:        []Item{},
		Unchanged:       []Item{},
		Conflicts:       []Item{},
		PotentialErrors: []string{},
	}

	headerRow := make([]any, len(b.header))
	for i, field := range b.header {
		headerRow[i] = field
	}
	p.ValuesMatrix = append(p.ValuesMatrix, headerRow)

	seen := make(map[string]bool, len(in.Local))
	for i, local := range in.Local {
		uuid := local.UUID()
		if uuid == "" {
			p.PotentialErrors = append(p.PotentialErrors, fmt.Sprintf(
				"local row %d (delegada=%s fecha=%s) has no uuid and was excluded",
				i, local.DelegadaUUID(), model.FormatValue(local[model.FieldFecha])))
			continue
		}
		seen[uuid] = true

		remote, exists := in.Remote[uuid]
		if !exists {
			p.ToCreate = append(p.ToCreate, Item{
				UUID:   uuid,
				Action: ActionCreate,
				Reason: "not present in worksheet",
			})
			p.ValuesMatrix = append(p.ValuesMatrix, local.Row(b.header))
			continue
		}

		if conflict.IsConflict(local.UpdatedAt(), remote.UpdatedAt(), in.LastSyncAt) {
			p.Conflicts = append(p.Conflicts, Item{
				UUID:   uuid,
				Action: ActionConflict,
				Reason: fmt.Sprintf(
					"modified locally (%s) and remotely (%s) after last sync (%s)",
					local.UpdatedAt(), remote.UpdatedAt(), in.LastSyncAt),
			})
			// Conflicted rows keep their current remote content in the
			// matrix: a mixed plan still rewrites the whole range, and a
			// later keep_remote resolution reads the remote version back
			// from the sheet.
			p.ValuesMatrix = append(p.ValuesMatrix, remote.Row(b.header))
			continue
		}

		diffs := b.diffFields(remote, local)
		if len(diffs) > 0 {
			p.ToUpdate = append(p.ToUpdate, Item{
				UUID:   uuid,
				Action: ActionUpdate,
				Diffs:  diffs,
			})
		} else {
			p.Unchanged = append(p.Unchanged, Item{
				UUID:   uuid,
				Action: ActionUnchanged,
			})
		}
		p.ValuesMatrix = append(p.ValuesMatrix, local.Row(b.header))
	}

	// Remote rows the local side never produced are preserved verbatim.
	// Sorted by uuid so the matrix is deterministic.
	remoteOnly := make([]string, 0, len(in.Remote))
	for uuid := range in.Remote {
		if !seen[uuid] {
			remoteOnly = append(remoteOnly, uuid)
		}
	}
	sort.Strings(remoteOnly)
	for _, uuid := range remoteOnly {
		p.ValuesMatrix = append(p.ValuesMatrix, in.Remote[uuid].Row(b.header))
	}

	return p
}

// diffFields compares remote against local field by field in header order.
// Values are compared as rendered strings; an absent or nil value renders
// as the literal "None" so the comparison matches the ledger's historical
// text form (a "0" cell and an integer 0 compare equal, a nil and an empty
// string do not).
func (b *Builder) diffFields(remote, local model.Record) []FieldDiff {
	var diffs []FieldDiff
	for _, field := range b.header {
		current := diffValue(remote, field)
		next := diffValue(local, field)
		if current != next {
			diffs = append(diffs, FieldDiff{
				Field:        field,
				CurrentValue: current,
				NewValue:     next,
			})
		}
	}
	return diffs
}

func diffValue(rec model.Record, field string) string {
	v, ok := rec[field]
	if !ok || v == nil {
		return "None"
	}
	return model.FormatValue(v)
}
