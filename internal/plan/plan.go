// Package plan builds and adjusts execution plans: the pure, side-effect-free
// description of what a sync will write, computed by comparing the local
// store against the remote worksheet. Plans are executed separately, so they
// can be simulated (dry-run), resolved, or narrowed to failed items without
// touching either replica.
package plan

import "time"

// Action classifies what the plan intends to do with a row.
type Action string

const (
	// ActionCreate indicates the row does not exist on the worksheet yet.
	ActionCreate Action = "create"

	// ActionUpdate indicates the worksheet row will be overwritten with
	// local changes.
	ActionUpdate Action = "update"

	// ActionUnchanged indicates local and remote content already agree.
	ActionUnchanged Action = "unchanged"

	// ActionConflict indicates both replicas changed the row after the last
	// sync; the row needs an explicit resolution before it can be written.
	ActionConflict Action = "conflict"
)

// ItemStatus records the per-item outcome of executing a plan.
type ItemStatus string

const (
	// StatusOK indicates the item was written successfully.
	StatusOK ItemStatus = "OK"

	// StatusError indicates the write failed and should be retried.
	StatusError ItemStatus = "ERROR"

	// StatusConflict indicates the item is still awaiting resolution.
	StatusConflict ItemStatus = "CONFLICT"
)

// FieldDiff describes one field whose remote and local values differ.
type FieldDiff struct {
	Field        string `json:"field"`
	CurrentValue string `json:"current_value"`
	NewValue     string `json:"new_value"`
}

// Item is a single row's entry in an execution plan.
type Item struct {
	// UUID identifies the leave-request row.
	UUID string `json:"uuid"`

	// Action is what the plan intends for this row.
	Action Action `json:"action"`

	// Reason provides human-readable context, set for creates and conflicts.
	Reason string `json:"reason,omitempty"`

	// Diffs lists the changed fields in canonical header order. Only set
	// for updates.
	Diffs []FieldDiff `json:"diffs,omitempty"`
}

// ExecutionPlan is the full outcome of comparing local rows against the
// remote worksheet. Every item's uuid appears in exactly one of ToCreate,
// ToUpdate, Unchanged, or Conflicts.
type ExecutionPlan struct {
	// GeneratedAt is when the plan was built.
	GeneratedAt time.Time `json:"generated_at"`

	// Worksheet names the remote worksheet the plan targets.
	Worksheet string `json:"worksheet"`

	// ToCreate lists rows absent from the worksheet.
	ToCreate []Item `json:"to_create"`

	// ToUpdate lists rows whose worksheet content will be overwritten.
	ToUpdate []Item `json:"to_update"`

	// Unchanged lists rows already identical on both sides.
	Unchanged []Item `json:"unchanged"`

	// Conflicts lists rows that diverged and await resolution.
	Conflicts []Item `json:"conflicts"`

	// PotentialErrors records rows excluded from the plan entirely, such as
	// local rows with no uuid.
	PotentialErrors []string `json:"potential_errors"`

	// ValuesMatrix is the full rewritten sheet content, header row first.
	// Conflicted rows appear with their remote content until resolved.
	ValuesMatrix [][]any `json:"values_matrix"`
}

// ItemCount returns the number of rows the plan accounts for across all
// four sequences.
func (p *ExecutionPlan) ItemCount() int {
	return len(p.ToCreate) + len(p.ToUpdate) + len(p.Unchanged) + len(p.Conflicts)
}

// HasChanges reports whether executing the plan would write anything new.
func (p *ExecutionPlan) HasChanges() bool {
	return len(p.ToCreate) > 0 || len(p.ToUpdate) > 0
}

// Clone returns a deep copy of the plan. Adjustment operations work on
// clones so the original plan stays valid for audit and re-simulation.
func (p *ExecutionPlan) Clone() *ExecutionPlan {
	out := &ExecutionPlan{
		GeneratedAt:     p.GeneratedAt,
		Worksheet:       p.Worksheet,
		ToCreate:        cloneItems(p.ToCreate),
		ToUpdate:        cloneItems(p.ToUpdate),
		Unchanged:       cloneItems(p.Unchanged),
		Conflicts:       cloneItems(p.Conflicts),
		PotentialErrors: append([]string(nil), p.PotentialErrors...),
	}
	if p.ValuesMatrix != nil {
		out.ValuesMatrix = make([][]any, len(p.ValuesMatrix))
		for i, row := range p.ValuesMatrix {
			out.ValuesMatrix[i] = append([]any(nil), row...)
		}
	}
	return out
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, item := range items {
		out[i] = item
		if item.Diffs != nil {
			out[i].Diffs = append([]FieldDiff(nil), item.Diffs...)
		}
	}
	return out
}
