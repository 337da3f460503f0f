package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/klauern/permisync/internal/alert"
	"github.com/klauern/permisync/internal/plan"
	"github.com/klauern/permisync/internal/sync"
)

func TestRenderReport(t *testing.T) {
	DisableColors()
	defer EnableColors()

	report := &sync.Report{
		Operation:         sync.OperationBidirectional,
		Status:            sync.StatusOK,
		Attempts:          2,
		Creations:         1,
		Updates:           3,
		OmittedDuplicates: 1,
		Conflicts:         1,
		ConflictLabels:    []string{"req-7"},
		Duration:          1230 * time.Millisecond,
	}

	out := RenderReport(report)
	for _, want := range []string{
		"Resultado De La Sincronización",
		"completada en 2 intento(s)",
		"altas: 1",
		"actualizaciones: 3",
		"req-7",
		"1.23s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderReport_Failure(t *testing.T) {
	DisableColors()
	defer EnableColors()

	report := &sync.Report{
		Operation: sync.OperationPull,
		Status:    sync.StatusError,
		Attempts:  3,
		Errors:    []string{"connection to remote service failed: refused"},
	}

	out := RenderReport(report)
	if !strings.Contains(out, "fallida tras 3 intento(s)") {
		t.Errorf("output missing failure line:\n%s", out)
	}
	if !strings.Contains(out, "Errores") {
		t.Errorf("output missing error section:\n%s", out)
	}
}

func TestRenderPlan(t *testing.T) {
	DisableColors()
	defer EnableColors()

	p := &plan.ExecutionPlan{
		Worksheet: "Permisos2026",
		ToCreate:  []plan.Item{{UUID: "new-1", Action: plan.ActionCreate}},
		ToUpdate: []plan.Item{{
			UUID:   "upd-1",
			Action: plan.ActionUpdate,
			Diffs:  []plan.FieldDiff{{Field: "estado", CurrentValue: "PENDIENTE", NewValue: "APROBADO"}},
		}},
		Conflicts: []plan.Item{{UUID: "conf-1", Action: plan.ActionConflict, Reason: "both sides changed"}},
	}

	out := RenderPlan(p)
	for _, want := range []string{"alta new-1", "cambio upd-1", "estado: PENDIENTE -> APROBADO", "conf-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderPlan_NoChanges(t *testing.T) {
	DisableColors()
	defer EnableColors()

	out := RenderPlan(&plan.ExecutionPlan{Worksheet: "Permisos2026"})
	if !strings.Contains(out, "sin cambios") {
		t.Errorf("output missing no-changes line:\n%s", out)
	}
}

func TestRenderAlerts(t *testing.T) {
	DisableColors()
	defer EnableColors()

	out := RenderAlerts([]alert.Alert{
		{Key: alert.KeyFailureRate, Severity: alert.SeverityCritical, Title: "Tasa de fallos elevada", Detail: "3 de 5 fallaron"},
		{Key: alert.KeyPendingChanges, Severity: alert.SeverityInfo, Title: "Cambios locales pendientes", Detail: "2 solicitudes"},
	})
	for _, want := range []string{"Tasa de fallos elevada", "3 de 5 fallaron", "Cambios locales pendientes"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	empty := RenderAlerts(nil)
	if !strings.Contains(empty, "sin alertas activas") {
		t.Errorf("empty output = %s", empty)
	}
}
