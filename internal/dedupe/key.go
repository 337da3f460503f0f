// Package dedupe matches legacy worksheet rows that predate uuid assignment.
// Rows are identified by a composite key (delegate, date, time descriptor)
// so the same request entered on two machines dedupes even when the cells
// were typed differently.
package dedupe

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/klauern/permisync/internal/model"
)

// FullDaySentinel is the time descriptor for full-day leave requests.
const FullDaySentinel = "COMPLETO"

// Key is the composite identity of a leave request that lacks a uuid.
type Key struct {
	// DelegadaUUID identifies the delegate, lowercased.
	DelegadaUUID string

	// Fecha is the request date normalized to YYYY-MM-DD.
	Fecha string

	// TimeDescriptor is COMPLETO for full-day requests, a normalized
	// HH:MM–HH:MM pair when the row carries an explicit range, or a
	// minutes-total tie-breaker when it does not.
	TimeDescriptor string
}

// String renders the key in a stable single-line form.
func (k Key) String() string {
	return k.DelegadaUUID + "|" + k.Fecha + "|" + k.TimeDescriptor
}

// KeyFor computes the composite identity key for a record.
func KeyFor(rec model.Record) Key {
	return Key{
		DelegadaUUID:   strings.ToLower(strings.TrimSpace(rec.DelegadaUUID())),
		Fecha:          NormalizeDate(model.FormatValue(rec[model.FieldFecha])),
		TimeDescriptor: timeDescriptor(rec),
	}
}

func timeDescriptor(rec model.Record) string {
	if isFullDay(rec[model.FieldJornadaCompleta]) {
		return FullDaySentinel
	}

	start := NormalizeTime(model.FormatValue(rec[model.FieldHoraInicio]))
	end := NormalizeTime(model.FormatValue(rec[model.FieldHoraFin]))
	if start != "" && end != "" {
		return start + "–" + end
	}

	// No usable range: fall back to the total-minutes field so two partial
	// requests of different lengths never collapse into one key.
	return "MIN:" + normalizeMinutes(rec[model.FieldMinutosTotal])
}

func isFullDay(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "si", "sí", "x", "completo":
			return true
		}
	case int:
		return t != 0
	case float64:
		return t != 0
	}
	return false
}

// NormalizeDate reduces the accepted date spellings to YYYY-MM-DD. Values
// that do not parse are trimmed and returned as-is so they still compare
// textually.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	layouts := []string{
		model.DateLayout,
		"02/01/2006",
		"2/1/2006",
		"02-01-2006",
		model.TimestampLayout,
		time.RFC3339,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(model.DateLayout)
		}
	}
	return s
}

// NormalizeTime reduces a clock time to zero-padded HH:MM. Accepts "9:00",
// "09:00", "09,30", "9:00:00" and sheet-style fractional days. Returns ""
// for empty or unparsable input.
func NormalizeTime(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f < 1 {
		// Fractional day, as sheets render time-typed cells.
		total := int(f*24*60 + 0.5)
		return fmt.Sprintf("%02d:%02d", total/60, total%60)
	}

	s = strings.ReplaceAll(s, ",", ":")
	s = strings.ReplaceAll(s, ".", ":")

	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return ""
	}
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || hour < 0 || hour > 23 {
		return ""
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || minute < 0 || minute > 59 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

func normalizeMinutes(v any) string {
	switch t := v.(type) {
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.Itoa(int(t))
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.Atoi(s); err == nil {
			return strconv.Itoa(n)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return strconv.Itoa(int(f))
		}
		return s
	}
	return "0"
}
