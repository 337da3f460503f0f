// Package security detects personal data in free-text fields before rows
// reach the shared worksheet.
package security

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/klauern/permisync/internal/model"
	"github.com/klauern/permisync/internal/validation"
)

// Pattern describes a personal-data pattern to detect
type Pattern struct {
	Name        string
	Pattern     *regexp.Regexp
	Description string
	Severity    string // "error" or "warning"
}

// Detector scans free-text fields with configurable patterns.
type Detector struct {
	patterns []Pattern
}

// DefaultPatterns returns the built-in personal-data patterns. The worksheet
// is shared with the whole section, so identity documents and bank accounts
// are errors while contact details are warnings.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Name:        "DNI",
			Pattern:     regexp.MustCompile(`\b\d{8}[A-HJ-NP-TV-Z]\b`),
			Description: "posible DNI",
			Severity:    "error",
		},
		{
			Name:        "NIE",
			Pattern:     regexp.MustCompile(`\b[XYZ]\d{7}[A-HJ-NP-TV-Z]\b`),
			Description: "posible NIE",
			Severity:    "error",
		},
		{
			Name:        "IBAN",
			Pattern:     regexp.MustCompile(`\bES\d{2}[\s-]?(\d{4}[\s-]?){5}\b`),
			Description: "posible cuenta bancaria (IBAN)",
			Severity:    "error",
		},
		{
			Name:        "Seguridad Social",
			Pattern:     regexp.MustCompile(`\b\d{2}[\s/-]?\d{8}[\s/-]?\d{2}\b`),
			Description: "posible número de la Seguridad Social",
			Severity:    "error",
		},
		{
			Name:        "Teléfono",
			Pattern:     regexp.MustCompile(`(\+34[\s-]?)?\b[679]\d{2}[\s-]?\d{3}[\s-]?\d{3}\b`),
			Description: "posible número de teléfono",
			Severity:    "warning",
		},
		{
			Name:        "Email",
			Pattern:     regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`),
			Description: "posible dirección de correo",
			Severity:    "warning",
		},
	}
}

// NewDetector creates a detector with the given patterns. Nil or empty
// patterns fall back to DefaultPatterns().
func NewDetector(patterns []Pattern) *Detector {
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}
	return &Detector{patterns: patterns}
}

// Detection records a single personal-data hit
type Detection struct {
	Pattern     string
	Field       string
	Content     string
	Severity    string
	Description string
}

// ScanText scans a single free-text value.
func (d *Detector) ScanText(field, text string) []Detection {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var detections []Detection
	for _, pattern := range d.patterns {
		if pattern.Pattern.MatchString(text) {
			detections = append(detections, Detection{
				Pattern:     pattern.Name,
				Field:       field,
				Content:     truncate(text, 60),
				Severity:    pattern.Severity,
				Description: pattern.Description,
			})
		}
	}
	return detections
}

// ScanRequest checks the free-text fields of a leave request. Errors mean
// the row should not be pushed as-is; warnings are advisory.
func (d *Detector) ScanRequest(lr model.LeaveRequest) *validation.Result {
	result := &validation.Result{Valid: true}

	for _, det := range d.ScanText(model.FieldMotivo, lr.Motivo) {
		msg := fmt.Sprintf("%s en %s: %s", det.Description, det.Field, det.Content)
		if det.Severity == "error" {
			result.AddError(&validation.Error{Field: det.Field, Message: msg})
		} else {
			result.AddWarning(msg)
		}
	}

	return result
}

// ScanRecords scans the motivo field of outgoing records and returns all
// detections keyed by row uuid.
func (d *Detector) ScanRecords(records []model.Record) map[string][]Detection {
	found := make(map[string][]Detection)
	for _, rec := range records {
		motivo := model.FormatValue(rec[model.FieldMotivo])
		dets := d.ScanText(model.FieldMotivo, motivo)
		if len(dets) > 0 {
			uuid := model.FormatValue(rec[model.FieldUUID])
			found[uuid] = dets
		}
	}
	return found
}

func truncate(text string, maxLen int) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= maxLen {
		return trimmed
	}
	return trimmed[:maxLen-3] + "..."
}
