package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/klauern/permisync/internal/plan"
)

func makeConflict(uuid string) plan.Item {
	return plan.Item{
		UUID:   uuid,
		Action: plan.ActionConflict,
		Reason: "both sides changed after the last sync",
		Diffs: []plan.FieldDiff{
			{Field: "estado", CurrentValue: "PENDIENTE", NewValue: "APROBADO"},
			{Field: "motivo", CurrentValue: "None", NewValue: "consulta médica"},
		},
	}
}

func TestConflictListModel_BuildDetailContent(t *testing.T) {
	m := NewConflictListModel([]plan.Item{makeConflict("req-1")})
	m.cursor = 0

	content := m.buildDetailContent()
	if !strings.Contains(content, "req-1") {
		t.Errorf("expected uuid in detail view, got %q", content)
	}
	if !strings.Contains(content, "estado") || !strings.Contains(content, "motivo") {
		t.Errorf("expected divergent fields in detail view, got %q", content)
	}
	if !strings.Contains(content, "APROBADO") {
		t.Errorf("expected local value in detail view, got %q", content)
	}
}

func TestConflictListModel_BuildDecisions(t *testing.T) {
	m := NewConflictListModel([]plan.Item{makeConflict("alpha"), makeConflict("beta"), makeConflict("gamma")})
	m.decisions["alpha"] = plan.DecisionKeepLocal
	m.decisions["beta"] = plan.DecisionKeepRemote
	m.decisions["gamma"] = skipMarker

	decisions := m.buildDecisions()
	if len(decisions) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(decisions))
	}
	if decisions["alpha"] != plan.DecisionKeepLocal {
		t.Errorf("alpha = %q, want keep_local", decisions["alpha"])
	}
	if decisions["beta"] != plan.DecisionKeepRemote {
		t.Errorf("beta = %q, want keep_remote", decisions["beta"])
	}
	if _, ok := decisions["gamma"]; ok {
		t.Error("skipped row should not produce a decision")
	}
}

func TestConflictListModel_AllDecided(t *testing.T) {
	m := NewConflictListModel([]plan.Item{makeConflict("alpha"), makeConflict("beta")})
	if m.allDecided() {
		t.Error("expected allDecided to be false with no decisions")
	}

	m.decisions["alpha"] = plan.DecisionKeepLocal
	if m.allDecided() {
		t.Error("expected allDecided to be false with partial decisions")
	}

	m.decisions["beta"] = skipMarker
	if !m.allDecided() {
		t.Error("expected allDecided to be true once every row has a choice")
	}
}

func TestConflictListModel_KeySequenceResolvesAndConfirms(t *testing.T) {
	m := NewConflictListModel([]plan.Item{makeConflict("req-1")})

	send := func(model tea.Model, key string) tea.Model {
		updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
		return updated
	}

	var model tea.Model = m
	model = send(model, "l")
	model = send(model, "y")
	model = send(model, "y")

	final, ok := model.(ConflictListModel)
	if !ok {
		t.Fatalf("unexpected model type %T", model)
	}
	result := final.Result()
	if result.Action != ConflictActionResolve {
		t.Fatalf("Action = %v, want resolve", result.Action)
	}
	if result.Decisions["req-1"] != plan.DecisionKeepLocal {
		t.Errorf("req-1 = %q, want keep_local", result.Decisions["req-1"])
	}
}

func TestConflictListModel_BackCancels(t *testing.T) {
	m := NewConflictListModel([]plan.Item{makeConflict("req-1")})

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	final, ok := updated.(ConflictListModel)
	if !ok {
		t.Fatalf("unexpected model type %T", updated)
	}
	if final.Result().Action != ConflictActionCancel {
		t.Errorf("Action = %v, want cancel", final.Result().Action)
	}
}

func TestConflictListModel_ViewShowsProgress(t *testing.T) {
	m := NewConflictListModel([]plan.Item{makeConflict("alpha"), makeConflict("beta")})
	m.decisions["alpha"] = plan.DecisionKeepLocal
	m.updateTableRow(0)

	view := m.viewList()
	if !strings.Contains(view, "1/2 decididos") {
		t.Errorf("expected progress counter in view, got %q", view)
	}
}
