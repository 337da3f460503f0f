package plan

import (
	"testing"
	"time"
)

func retryBasePlan() *ExecutionPlan {
	return &ExecutionPlan{
		GeneratedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
		Worksheet:   "Permisos2026",
		ToCreate: []Item{
			{UUID: "ok-create", Action: ActionCreate},
			{UUID: "err-create", Action: ActionCreate},
		},
		ToUpdate: []Item{
			{UUID: "ok-update", Action: ActionUpdate},
			{UUID: "err-update", Action: ActionUpdate},
		},
		Unchanged: []Item{
			{UUID: "same", Action: ActionUnchanged},
		},
		Conflicts: []Item{
			{UUID: "conf-open", Action: ActionConflict},
			{UUID: "conf-done", Action: ActionConflict},
		},
	}
}

func TestBuildRetryPlan_KeepsOnlyFailedItems(t *testing.T) {
	base := retryBasePlan()
	status := map[string]ItemStatus{
		"ok-create": StatusOK,
		"ok-update": StatusOK,
		"conf-done": StatusOK,
		// err-create / err-update / conf-open have no recorded status and
		// default to ERROR / CONFLICT.
	}

	narrowed, retried := BuildRetryPlan(base, status)

	if len(narrowed.ToCreate) != 1 || narrowed.ToCreate[0].UUID != "err-create" {
		t.Errorf("ToCreate = %+v, want [err-create]", narrowed.ToCreate)
	}
	if len(narrowed.ToUpdate) != 1 || narrowed.ToUpdate[0].UUID != "err-update" {
		t.Errorf("ToUpdate = %+v, want [err-update]", narrowed.ToUpdate)
	}
	if len(narrowed.Conflicts) != 1 || narrowed.Conflicts[0].UUID != "conf-open" {
		t.Errorf("Conflicts = %+v, want [conf-open]", narrowed.Conflicts)
	}
	if len(narrowed.Unchanged) != 0 {
		t.Errorf("Unchanged items never re-enter a retry plan, got %+v", narrowed.Unchanged)
	}
	want := []string{"err-create", "err-update", "conf-open"}
	if len(retried) != len(want) {
		t.Fatalf("retried = %v, want %v", retried, want)
	}
	for i, uuid := range want {
		if retried[i] != uuid {
			t.Errorf("retried[%d] = %q, want %q", i, retried[i], uuid)
		}
	}
}

func TestBuildRetryPlan_ExplicitErrorStatus(t *testing.T) {
	base := &ExecutionPlan{
		ToCreate: []Item{
			{UUID: "ok-create", Action: ActionCreate},
			{UUID: "err-create", Action: ActionCreate},
		},
	}
	narrowed, retried := BuildRetryPlan(base, map[string]ItemStatus{
		"ok-create":  StatusOK,
		"err-create": StatusError,
	})

	if len(narrowed.ToCreate) != 1 || narrowed.ToCreate[0].UUID != "err-create" {
		t.Errorf("ToCreate = %+v, want [err-create]", narrowed.ToCreate)
	}
	if len(retried) != 1 || retried[0] != "err-create" {
		t.Errorf("retried = %v, want [err-create]", retried)
	}
}

// A second narrowing pass where everything that was retried succeeded except
// one item yields a plan containing only that item: previously-succeeded
// items are never reprocessed.
func TestBuildRetryPlan_Idempotence(t *testing.T) {
	base := retryBasePlan()

	first, _ := BuildRetryPlan(base, map[string]ItemStatus{
		"ok-create": StatusOK,
		"ok-update": StatusOK,
		"conf-done": StatusOK,
	})

	second, retried := BuildRetryPlan(first, map[string]ItemStatus{
		"err-create": StatusOK,
		"err-update": StatusError,
		"conf-open":  StatusOK,
	})

	if len(second.ToCreate) != 0 {
		t.Errorf("ToCreate should be empty, got %+v", second.ToCreate)
	}
	if len(second.Conflicts) != 0 {
		t.Errorf("Conflicts should be empty, got %+v", second.Conflicts)
	}
	if len(retried) != 1 || retried[0] != "err-update" {
		t.Errorf("retried = %v, want [err-update]", retried)
	}
}

func TestBuildRetryPlan_PreservesPlanMetadata(t *testing.T) {
	base := retryBasePlan()
	base.PotentialErrors = []string{"row 3 has no uuid"}
	base.ValuesMatrix = [][]any{{"uuid"}, {"err-create"}}

	narrowed, _ := BuildRetryPlan(base, nil)

	if narrowed.Worksheet != base.Worksheet {
		t.Errorf("Worksheet = %q, want %q", narrowed.Worksheet, base.Worksheet)
	}
	if !narrowed.GeneratedAt.Equal(base.GeneratedAt) {
		t.Errorf("GeneratedAt = %v, want %v", narrowed.GeneratedAt, base.GeneratedAt)
	}
	if len(narrowed.PotentialErrors) != 1 {
		t.Errorf("PotentialErrors not carried over: %+v", narrowed.PotentialErrors)
	}
	if len(narrowed.ValuesMatrix) != 2 {
		t.Errorf("ValuesMatrix not carried over: %+v", narrowed.ValuesMatrix)
	}
	// Mutating the narrowed matrix must not touch the base plan.
	narrowed.ValuesMatrix[1][0] = "mutated"
	if base.ValuesMatrix[1][0] != "err-create" {
		t.Error("narrowed plan shares matrix backing with base plan")
	}
}
