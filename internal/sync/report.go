package sync

import "time"

// Status is the terminal state of a sync run, as persisted to history.
type Status string

const (
	// StatusOK indicates the run succeeded.
	StatusOK Status = "OK"

	// StatusError indicates every attempt failed.
	StatusError Status = "ERROR"

	// StatusConfigIncomplete indicates the run could not start because
	// required configuration is missing.
	StatusConfigIncomplete Status = "CONFIG_INCOMPLETE"

	// StatusDryRun indicates nothing was dispatched.
	StatusDryRun Status = "DRY_RUN"
)

// Report is the terminal, inspectable result of one Run call. Created once
// per run and never mutated after return; operational failure lands in
// Errors rather than in a returned error.
type Report struct {
	// Operation is the requested sync direction.
	Operation Operation `json:"operation"`

	// DryRun is true when nothing was dispatched.
	DryRun bool `json:"dry_run"`

	// Attempts is the number of attempts actually performed.
	Attempts int `json:"attempts"`

	// Creations counts changed rows classified as newly created. The
	// classification is a session heuristic: when no watermark existed
	// before the run, every changed row counts as a creation.
	Creations int `json:"creations"`

	// Updates counts changed rows classified as updates of existing rows
	// (a watermark existed before the run).
	Updates int `json:"updates"`

	// OmittedDuplicates counts rows dedupe dropped.
	OmittedDuplicates int `json:"omitted_duplicates"`

	// Conflicts counts divergent rows awaiting resolution.
	Conflicts int `json:"conflicts"`

	// ConflictLabels identifies the conflicting rows.
	ConflictLabels []string `json:"conflict_labels,omitempty"`

	// Errors accumulates attempt failures and row-level problems.
	Errors []string `json:"errors,omitempty"`

	// SchemaActions describes what the schema check did.
	SchemaActions []string `json:"schema_actions,omitempty"`

	// Status is the terminal state.
	Status Status `json:"status"`

	// StartedAt and FinishedAt bound the run; Duration is their distance.
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
}

// Succeeded reports whether the run ended in success.
func (r *Report) Succeeded() bool {
	return r.Status == StatusOK
}
