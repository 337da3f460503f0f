package alert

import (
	"fmt"
	"os"
	"time"
)

// HealthStatus is the outcome of one health probe.
type HealthStatus string

const (
	HealthOK    HealthStatus = "OK"
	HealthWarn  HealthStatus = "WARN"
	HealthError HealthStatus = "ERROR"
)

// CategoryConfiguration groups probes over the sync configuration. The
// config-incomplete alert rule matches on this category.
const CategoryConfiguration = "Configuración"

// HealthItem is one probe result.
type HealthItem struct {
	Category string       `json:"category"`
	Name     string       `json:"name"`
	Status   HealthStatus `json:"status"`
	Detail   string       `json:"detail,omitempty"`
}

// HealthReport collects probe results from one pass.
type HealthReport struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Items       []HealthItem `json:"items"`
}

// Healthy reports whether no item is in error.
func (r *HealthReport) Healthy() bool {
	for _, item := range r.Items {
		if item.Status == HealthError {
			return false
		}
	}
	return true
}

// ConfigProbe names the configuration values the health check inspects.
type ConfigProbe struct {
	CredentialsPath string
	SpreadsheetID   string
	Worksheet       string
}

// CheckConfiguration probes the sync configuration: credentials file on
// disk, spreadsheet id set, worksheet named.
func CheckConfiguration(probe ConfigProbe, now time.Time) *HealthReport {
	report := &HealthReport{GeneratedAt: now}

	item := HealthItem{Category: CategoryConfiguration, Name: "credenciales", Status: HealthOK}
	switch {
	case probe.CredentialsPath == "":
		item.Status = HealthError
		item.Detail = "ruta de credenciales no configurada"
	default:
		if _, err := os.Stat(probe.CredentialsPath); err != nil {
			item.Status = HealthError
			item.Detail = fmt.Sprintf("fichero de credenciales no accesible: %v", err)
		}
	}
	report.Items = append(report.Items, item)

	item = HealthItem{Category: CategoryConfiguration, Name: "hoja de cálculo", Status: HealthOK}
	if probe.SpreadsheetID == "" {
		item.Status = HealthError
		item.Detail = "identificador de hoja de cálculo no configurado"
	}
	report.Items = append(report.Items, item)

	item = HealthItem{Category: CategoryConfiguration, Name: "pestaña", Status: HealthOK}
	if probe.Worksheet == "" {
		item.Status = HealthError
		item.Detail = "nombre de pestaña no configurado"
	}
	report.Items = append(report.Items, item)

	return report
}
