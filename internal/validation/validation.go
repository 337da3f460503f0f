// Package validation provides pre-sync validation checks for leave requests.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/klauern/permisync/internal/model"
)

// Error represents a validation failure with context.
type Error struct {
	// Field is the name of the record field that failed validation
	Field string
	// Message describes the validation failure
	Message string
	// Err is the underlying error (if any)
	Err error
}

// Error returns a formatted validation error message.
func (ve *Error) Error() string {
	if ve.Err != nil {
		return fmt.Sprintf("validation failed for %q: %s: %v", ve.Field, ve.Message, ve.Err)
	}
	return fmt.Sprintf("validation failed for %q: %s", ve.Field, ve.Message)
}

// Unwrap returns the underlying error for errors.Is/As.
func (ve *Error) Unwrap() error {
	return ve.Err
}

// Result contains the outcome of validating one record.
type Result struct {
	// Valid indicates whether all validations passed
	Valid bool
	// Warnings contains non-fatal validation issues
	Warnings []string
	// Errors contains validation failures that prevent the operation
	Errors []error
}

// AddError adds an error to the validation result.
func (r *Result) AddError(err error) {
	r.Valid = false
	r.Errors = append(r.Errors, err)
}

// AddWarning adds a warning to the validation result.
func (r *Result) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// HasErrors returns true if there are any validation errors.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns the combined validation error message, or nil.
func (r *Result) Error() error {
	if !r.HasErrors() {
		return nil
	}
	return errors.Join(r.Errors...)
}

// knownEstados lists the states the ledger's coordinators actually use.
// Unknown values sync fine, so they only warn.
var knownEstados = map[string]bool{
	"PENDIENTE": true,
	"APROBADO":  true,
	"RECHAZADO": true,
}

const hourLayout = "15:04"

// ValidateRequest checks a leave request before it is stored or pushed.
// Structural problems (bad dates, inverted time ranges) are errors; unusual
// but syncable content only warns.
func ValidateRequest(lr model.LeaveRequest) *Result {
	result := &Result{Valid: true}

	if strings.TrimSpace(lr.DelegadaUUID) == "" {
		result.AddError(&Error{Field: model.FieldDelegadaUUID, Message: "delegada is required"})
	}

	if lr.Fecha == "" {
		result.AddError(&Error{Field: model.FieldFecha, Message: "date is required"})
	} else if _, err := time.Parse(model.DateLayout, lr.Fecha); err != nil {
		result.AddError(&Error{
			Field:   model.FieldFecha,
			Message: fmt.Sprintf("date must use the %s layout", model.DateLayout),
			Err:     err,
		})
	}

	validateHours(lr, result)

	if lr.MinutosTotal < 0 {
		result.AddError(&Error{Field: model.FieldMinutosTotal, Message: "total minutes cannot be negative"})
	}
	if lr.MinutosTotal > 24*60 {
		result.AddError(&Error{Field: model.FieldMinutosTotal, Message: "total minutes exceed one day"})
	}

	if lr.Estado != "" && !knownEstados[strings.ToUpper(lr.Estado)] {
		result.AddWarning(fmt.Sprintf("estado %q is not one of the usual states", lr.Estado))
	}

	if lr.UpdatedAt != "" {
		if _, ok := model.ParseTimestamp(lr.UpdatedAt); !ok {
			result.AddError(&Error{Field: model.FieldUpdatedAt, Message: "updated_at is not a recognizable timestamp"})
		}
	}

	return result
}

// validateHours cross-checks the time-range fields against the full-day flag.
func validateHours(lr model.LeaveRequest, result *Result) {
	if lr.JornadaCompleta {
		if lr.HoraInicio != "" || lr.HoraFin != "" {
			result.AddWarning("full-day request also carries an hour range; the range is ignored")
		}
		return
	}

	if lr.HoraInicio == "" && lr.HoraFin == "" {
		if lr.MinutosTotal == 0 {
			result.AddError(&Error{
				Field:   model.FieldHoraInicio,
				Message: "partial-day request needs an hour range or total minutes",
			})
		}
		return
	}

	start, errStart := time.Parse(hourLayout, lr.HoraInicio)
	if errStart != nil {
		result.AddError(&Error{
			Field:   model.FieldHoraInicio,
			Message: fmt.Sprintf("start hour must use the %s layout", hourLayout),
			Err:     errStart,
		})
	}
	end, errEnd := time.Parse(hourLayout, lr.HoraFin)
	if errEnd != nil {
		result.AddError(&Error{
			Field:   model.FieldHoraFin,
			Message: fmt.Sprintf("end hour must use the %s layout", hourLayout),
			Err:     errEnd,
		})
	}
	if errStart != nil || errEnd != nil {
		return
	}

	if !end.After(start) {
		result.AddError(&Error{Field: model.FieldHoraFin, Message: "end hour must be after start hour"})
		return
	}

	rangeMinutes := int(end.Sub(start).Minutes())
	if lr.MinutosTotal != 0 && lr.MinutosTotal != rangeMinutes {
		result.AddWarning(fmt.Sprintf(
			"total minutes (%d) disagree with the %s-%s range (%d)",
			lr.MinutosTotal, lr.HoraInicio, lr.HoraFin, rangeMinutes))
	}
}
