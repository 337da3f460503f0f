// Package model defines the leave-request record shared by the local store,
// the remote worksheet, and the sync planner.
package model

import "fmt"

// FieldUUID and friends name the canonical worksheet columns. The order in
// CanonicalHeader is the order rows are written to the remote sheet.
const (
	FieldUUID            = "uuid"
	FieldDelegadaUUID    = "delegada_uuid"
	FieldFecha           = "fecha"
	FieldHoraInicio      = "hora_inicio"
	FieldHoraFin         = "hora_fin"
	FieldMinutosTotal    = "minutos_total"
	FieldJornadaCompleta = "jornada_completa"
	FieldMotivo          = "motivo"
	FieldEstado          = "estado"
	FieldCreatedAt       = "created_at"
	FieldUpdatedAt       = "updated_at"
)

// CanonicalHeader returns the canonical column ordering for the worksheet.
// Callers must not mutate the returned slice.
func CanonicalHeader() []string {
	return []string{
		FieldUUID,
		FieldDelegadaUUID,
		FieldFecha,
		FieldHoraInicio,
		FieldHoraFin,
		FieldMinutosTotal,
		FieldJornadaCompleta,
		FieldMotivo,
		FieldEstado,
		FieldCreatedAt,
		FieldUpdatedAt,
	}
}

// Record is a single leave-request row keyed by canonical field name.
// Values are kept loosely typed because the remote sheet returns plain
// strings while the local store produces typed columns; the planner
// compares everything through FormatValue.
type Record map[string]any

// UUID returns the record's uuid, or "" when absent or not a string.
func (r Record) UUID() string {
	return r.stringField(FieldUUID)
}

// DelegadaUUID returns the delegate uuid, or "".
func (r Record) DelegadaUUID() string {
	return r.stringField(FieldDelegadaUUID)
}

// UpdatedAt returns the row's updated_at as stored (ISO-8601 text), or "".
func (r Record) UpdatedAt() string {
	return r.stringField(FieldUpdatedAt)
}

func (r Record) stringField(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Row projects the record onto the given header order, producing one
// values-matrix row. Missing fields render as empty cells.
func (r Record) Row(header []string) []any {
	row := make([]any, len(header))
	for i, field := range header {
		v, ok := r[field]
		if !ok || v == nil {
			row[i] = ""
			continue
		}
		row[i] = FormatValue(v)
	}
	return row
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// FormatValue renders a cell value as text. Nil renders as the empty string;
// everything else uses the default Go formatting, so numeric cells survive a
// round trip through the sheet as their decimal text.
func FormatValue(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// RecordsEqual reports whether two records carry the same content across
// the given fields, comparing rendered text so typed and textual cells
// (0 vs "0") compare equal.
func RecordsEqual(a, b Record, fields []string) bool {
	for _, field := range fields {
		if FormatValue(a[field]) != FormatValue(b[field]) {
			return false
		}
	}
	return true
}

// RecordFromRow builds a Record from a sheet row using the given header.
// Extra cells beyond the header are ignored; short rows leave the trailing
// fields unset.
func RecordFromRow(header []string, row []any) Record {
	rec := make(Record, len(header))
	for i, field := range header {
		if i >= len(row) {
			break
		}
		rec[field] = row[i]
	}
	return rec
}
