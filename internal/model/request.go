package model

import "time"

// TimestampLayout is the ISO-8601 layout used for created_at/updated_at and
// the sync watermark. Values are stored as text so they stay sortable both
// in SQLite and on the worksheet.
const TimestampLayout = "2006-01-02T15:04:05"

// DateLayout is the layout for the fecha column.
const DateLayout = "2006-01-02"

// LeaveRequest is a union-delegate leave request as stored locally.
type LeaveRequest struct {
	UUID            string `json:"uuid"`
	DelegadaUUID    string `json:"delegada_uuid"`
	Fecha           string `json:"fecha"`
	HoraInicio      string `json:"hora_inicio,omitempty"`
	HoraFin         string `json:"hora_fin,omitempty"`
	MinutosTotal    int    `json:"minutos_total"`
	JornadaCompleta bool   `json:"jornada_completa"`
	Motivo          string `json:"motivo,omitempty"`
	Estado          string `json:"estado"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// Record converts the request to its canonical record form.
func (lr LeaveRequest) Record() Record {
	return Record{
		FieldUUID:            lr.UUID,
		FieldDelegadaUUID:    lr.DelegadaUUID,
		FieldFecha:           lr.Fecha,
		FieldHoraInicio:      lr.HoraInicio,
		FieldHoraFin:         lr.HoraFin,
		FieldMinutosTotal:    lr.MinutosTotal,
		FieldJornadaCompleta: lr.JornadaCompleta,
		FieldMotivo:          lr.Motivo,
		FieldEstado:          lr.Estado,
		FieldCreatedAt:       lr.CreatedAt,
		FieldUpdatedAt:       lr.UpdatedAt,
	}
}

// ParseTimestamp parses an ISO-8601 timestamp in any of the accepted
// layouts. Returns the zero time and false when the value does not parse.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	layouts := []string{
		TimestampLayout,
		time.RFC3339,
		"2006-01-02 15:04:05",
		DateLayout,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders a time in the canonical timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
