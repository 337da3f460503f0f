package plan

// BuildRetryPlan narrows a previously-executed plan to the items that still
// need work, keyed by the recorded per-item outcome. Create and update items
// are kept only when their status is ERROR (the default when no status was
// recorded); conflict items only when their status is still CONFLICT (again
// the default). Items reported OK are dropped, so re-running the narrowed
// plan never reprocesses a row that already succeeded.
//
// Returns the narrowed plan and the uuids it retains, in plan order.
func BuildRetryPlan(base *ExecutionPlan, status map[string]ItemStatus) (*ExecutionPlan, []string) {
	narrowed := &ExecutionPlan{
		GeneratedAt:     base.GeneratedAt,
		Worksheet:       base.Worksheet,
		ToCreate:        []Item{},
		ToUpdate:        []Item{},
		Unchanged:       []Item{},
		Conflicts:       []Item{},
		PotentialErrors: append([]string(nil), base.PotentialErrors...),
	}
	if base.ValuesMatrix != nil {
		narrowed.ValuesMatrix = make([][]any, len(base.ValuesMatrix))
		for i, row := range base.ValuesMatrix {
			narrowed.ValuesMatrix[i] = append([]any(nil), row...)
		}
	}

	var retried []string
	keep := func(uuid string, fallback ItemStatus) bool {
		s, ok := status[uuid]
		if !ok {
			s = fallback
		}
		return s == fallback
	}

	for _, item := range base.ToCreate {
		if keep(item.UUID, StatusError) {
			narrowed.ToCreate = append(narrowed.ToCreate, item)
			retried = append(retried, item.UUID)
		}
	}
	for _, item := range base.ToUpdate {
		if keep(item.UUID, StatusError) {
			narrowed.ToUpdate = append(narrowed.ToUpdate, item)
			retried = append(retried, item.UUID)
		}
	}
	for _, item := range base.Conflicts {
		if keep(item.UUID, StatusConflict) {
			narrowed.Conflicts = append(narrowed.Conflicts, item)
			retried = append(retried, item.UUID)
		}
	}

	return narrowed, retried
}
