package ui

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/klauern/permisync/internal/alert"
	"github.com/klauern/permisync/internal/plan"
	"github.com/klauern/permisync/internal/sync"
)

var titleCaser = cases.Title(language.Spanish)

// SectionTitle renders a styled section heading.
func SectionTitle(s string) string {
	return Header(titleCaser.String(s))
}

// RenderReport formats an orchestrator report for the terminal.
func RenderReport(r *sync.Report) string {
	var b strings.Builder

	b.WriteString(SectionTitle("resultado de la sincronización") + "\n\n")

	switch r.Status {
	case sync.StatusOK:
		b.WriteString(StatusSuccess(fmt.Sprintf("sincronización %s completada en %d intento(s)", r.Operation, r.Attempts)) + "\n")
	case sync.StatusDryRun:
		b.WriteString(StatusSkipped("simulación, no se escribió nada") + "\n")
	case sync.StatusConfigIncomplete:
		b.WriteString(StatusError("configuración incompleta") + "\n")
	default:
		b.WriteString(StatusError(fmt.Sprintf("sincronización fallida tras %d intento(s)", r.Attempts)) + "\n")
	}

	fmt.Fprintf(&b, "  altas: %d  actualizaciones: %d  duplicados omitidos: %d\n",
		r.Creations, r.Updates, r.OmittedDuplicates)
	if r.Conflicts > 0 {
		b.WriteString("  " + StatusConflict(fmt.Sprintf("%d conflicto(s): %s", r.Conflicts, strings.Join(r.ConflictLabels, ", "))) + "\n")
	}
	if len(r.SchemaActions) > 0 {
		b.WriteString("\n" + SectionTitle("esquema") + "\n")
		for _, action := range r.SchemaActions {
			b.WriteString("  " + StatusSuccess(action) + "\n")
		}
	}
	if len(r.Errors) > 0 {
		b.WriteString("\n" + SectionTitle("errores") + "\n")
		for _, e := range r.Errors {
			b.WriteString("  " + StatusError(e) + "\n")
		}
	}
	fmt.Fprintf(&b, "\n%s %s\n", Dim("duración:"), r.Duration.Round(time.Millisecond))
	return b.String()
}

// RenderPlan formats an execution plan for the terminal, one line per item.
func RenderPlan(p *plan.ExecutionPlan) string {
	var b strings.Builder

	b.WriteString(SectionTitle("plan de ejecución") + " " + Dim(p.Worksheet) + "\n\n")
	if !p.HasChanges() && len(p.Conflicts) == 0 && len(p.PotentialErrors) == 0 {
		b.WriteString(StatusSkipped("sin cambios") + "\n")
		return b.String()
	}

	for _, item := range p.ToCreate {
		b.WriteString("  " + StatusSuccess("alta "+item.UUID) + "\n")
	}
	for _, item := range p.ToUpdate {
		b.WriteString("  " + StatusSuccess("cambio "+item.UUID) + "\n")
		for _, diff := range item.Diffs {
			fmt.Fprintf(&b, "      %s: %s -> %s\n", Bold(diff.Field), Dim(diff.CurrentValue), diff.NewValue)
		}
	}
	for _, item := range p.Conflicts {
		b.WriteString("  " + StatusConflict(item.UUID+" "+Dim(item.Reason)) + "\n")
	}
	for _, msg := range p.PotentialErrors {
		b.WriteString("  " + StatusWarning(msg) + "\n")
	}

	fmt.Fprintf(&b, "\n%s %d elementos, %d sin cambios\n", Dim("total:"), p.ItemCount(), len(p.Unchanged))
	return b.String()
}

// RenderAlerts formats evaluated alerts, most urgent first.
func RenderAlerts(alerts []alert.Alert) string {
	var b strings.Builder

	b.WriteString(SectionTitle("alertas") + "\n\n")
	if len(alerts) == 0 {
		b.WriteString(StatusSuccess("sin alertas activas") + "\n")
		return b.String()
	}

	for _, a := range alerts {
		var line string
		switch a.Severity {
		case alert.SeverityCritical:
			line = StatusError(a.Title)
		case alert.SeverityWarning:
			line = StatusWarning(a.Title)
		default:
			line = StatusPendingLine(a.Title)
		}
		b.WriteString("  " + line + "\n")
		b.WriteString("      " + Dim(a.Detail) + "\n")
	}
	return b.String()
}

// StatusPendingLine returns a dimmed pending symbol with a message.
func StatusPendingLine(msg string) string {
	return Dim(SymbolPending) + " " + msg
}
