// Package alert evaluates rolling sync history and live health probes into
// prioritized alerts. Every rule runs independently; a snooze map filters
// the result afterwards.
package alert

import (
	"fmt"
	"sort"
	"time"

	"github.com/klauern/permisync/internal/history"
)

// Severity ranks an alert for display ordering.
type Severity string

const (
	// SeverityCritical marks conditions that block syncing.
	SeverityCritical Severity = "critical"

	// SeverityWarning marks conditions that degrade sync quality.
	SeverityWarning Severity = "warning"

	// SeverityInfo marks conditions worth surfacing but not acting on.
	SeverityInfo Severity = "info"
)

// rank orders severities for sorting, most urgent first.
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Alert keys. The snooze map is keyed by these.
const (
	KeyStaleSync         = "stale_sync"
	KeyFailureRate       = "failure_rate"
	KeyRepeatedConflicts = "repeated_conflicts"
	KeyConfigIncomplete  = "config_incomplete"
	KeyPendingChanges    = "pending_changes"
)

// Alert is one triggered rule.
type Alert struct {
	Key      string   `json:"key"`
	Severity Severity `json:"severity"`
	Title    string   `json:"title"`
	Detail   string   `json:"detail"`
}

// Thresholds the rules evaluate against.
const (
	// DefaultStaleDays is how long without a sync counts as stale.
	DefaultStaleDays = 7

	// failureWindow and failureThreshold define the high-failure-rate rule:
	// at least 30% ERROR or CONFIG_INCOMPLETE among the most recent 5 runs.
	failureWindow    = 5
	failureThreshold = 0.30

	// conflictWindow and conflictRepeats define the repeated-conflicts
	// rule: one label seen 3 or more times across the most recent 10 runs.
	conflictWindow  = 10
	conflictRepeats = 3
)

// Engine evaluates the alert rules.
type Engine struct {
	// StaleDays overrides the staleness threshold. Zero means
	// DefaultStaleDays.
	StaleDays int
}

// NewEngine returns an engine with default thresholds.
func NewEngine() *Engine {
	return &Engine{StaleDays: DefaultStaleDays}
}

// Evaluate runs every rule against the history and health inputs, filters
// by the snooze map, and returns the surviving alerts most urgent first.
// An alert is suppressed iff its key's silenced_until is strictly after now.
func (e *Engine) Evaluate(
	entries []history.Entry,
	health *HealthReport,
	pendingCount int,
	silenced map[string]time.Time,
	now time.Time,
) []Alert {
	var alerts []Alert

	if a, ok := e.staleRule(entries, now); ok {
		alerts = append(alerts, a)
	}
	if a, ok := failureRateRule(entries); ok {
		alerts = append(alerts, a)
	}
	if a, ok := repeatedConflictsRule(entries); ok {
		alerts = append(alerts, a)
	}
	if a, ok := configIncompleteRule(health); ok {
		alerts = append(alerts, a)
	}
	if a, ok := pendingChangesRule(pendingCount); ok {
		alerts = append(alerts, a)
	}

	filtered := alerts[:0]
	for _, a := range alerts {
		if until, ok := silenced[a.Key]; ok && until.After(now) {
			continue
		}
		filtered = append(filtered, a)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Severity != filtered[j].Severity {
			return filtered[i].Severity.rank() < filtered[j].Severity.rank()
		}
		return filtered[i].Key < filtered[j].Key
	})
	return filtered
}

func (e *Engine) staleRule(entries []history.Entry, now time.Time) (Alert, bool) {
	staleDays := e.StaleDays
	if staleDays <= 0 {
		staleDays = DefaultStaleDays
	}

	if len(entries) == 0 {
		return Alert{
			Key:      KeyStaleSync,
			Severity: SeverityWarning,
			Title:    "Sin sincronizaciones registradas",
			Detail:   "no hay historial de sincronización",
		}, true
	}

	latest := entries[len(entries)-1]
	age := now.Sub(latest.FinishedAt)
	if age >= time.Duration(staleDays)*24*time.Hour {
		return Alert{
			Key:      KeyStaleSync,
			Severity: SeverityWarning,
			Title:    "Sincronización obsoleta",
			Detail:   fmt.Sprintf("última sincronización hace %d días", int(age.Hours()/24)),
		}, true
	}
	return Alert{}, false
}

func failureRateRule(entries []history.Entry) (Alert, bool) {
	window := entries
	if len(window) > failureWindow {
		window = window[len(window)-failureWindow:]
	}
	if len(window) == 0 {
		return Alert{}, false
	}

	failed := 0
	for _, e := range window {
		if e.Status == "ERROR" || e.Status == "CONFIG_INCOMPLETE" {
			failed++
		}
	}
	rate := float64(failed) / float64(len(window))
	if rate < failureThreshold {
		return Alert{}, false
	}
	return Alert{
		Key:      KeyFailureRate,
		Severity: SeverityCritical,
		Title:    "Tasa de fallos elevada",
		Detail:   fmt.Sprintf("%d de las últimas %d sincronizaciones fallaron", failed, len(window)),
	}, true
}

func repeatedConflictsRule(entries []history.Entry) (Alert, bool) {
	window := entries
	if len(window) > conflictWindow {
		window = window[len(window)-conflictWindow:]
	}

	counts := make(map[string]int)
	for _, e := range window {
		for _, label := range e.ConflictLabels {
			counts[label]++
		}
	}

	var repeated []string
	for label, n := range counts {
		if n >= conflictRepeats {
			repeated = append(repeated, label)
		}
	}
	if len(repeated) == 0 {
		return Alert{}, false
	}
	sort.Strings(repeated)
	return Alert{
		Key:      KeyRepeatedConflicts,
		Severity: SeverityWarning,
		Title:    "Conflictos recurrentes",
		Detail:   fmt.Sprintf("filas en conflicto repetido: %v", repeated),
	}, true
}

func configIncompleteRule(health *HealthReport) (Alert, bool) {
	if health == nil {
		return Alert{}, false
	}
	for _, item := range health.Items {
		if item.Category == CategoryConfiguration && item.Status == HealthError {
			return Alert{
				Key:      KeyConfigIncomplete,
				Severity: SeverityCritical,
				Title:    "Configuración incompleta",
				Detail:   fmt.Sprintf("%s: %s", item.Name, item.Detail),
			}, true
		}
	}
	return Alert{}, false
}

func pendingChangesRule(pendingCount int) (Alert, bool) {
	if pendingCount <= 0 {
		return Alert{}, false
	}
	return Alert{
		Key:      KeyPendingChanges,
		Severity: SeverityInfo,
		Title:    "Cambios locales pendientes",
		Detail:   fmt.Sprintf("%d solicitudes sin sincronizar", pendingCount),
	}, true
}
