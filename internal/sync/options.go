package sync

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Operation selects the direction of a sync run.
type Operation string

const (
	// OperationPull imports worksheet rows into the local store.
	OperationPull Operation = "pull"

	// OperationPush rewrites the worksheet from local changes.
	OperationPush Operation = "push"

	// OperationBidirectional pulls, then pushes.
	OperationBidirectional Operation = "bidirectional"
)

// IsValid returns true if the operation is recognized.
func (o Operation) IsValid() bool {
	switch o {
	case OperationPull, OperationPush, OperationBidirectional:
		return true
	default:
		return false
	}
}

// String returns the string representation of the operation.
func (o Operation) String() string {
	return string(o)
}

// RetryPolicy bounds the orchestrator's retry loop. Immutable once built.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialBackoff is the sleep before the second attempt.
	InitialBackoff time.Duration

	// Multiplier scales the backoff after each failed attempt.
	Multiplier float64
}

// DefaultRetryPolicy matches the ledger's historical behavior: three
// attempts with 500 ms initial backoff doubling each time.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		Multiplier:     2.0,
	}
}

// Validate rejects policies the retry loop cannot honor.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy: max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.InitialBackoff < 0 {
		return fmt.Errorf("retry policy: initial backoff must not be negative, got %s", p.InitialBackoff)
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("retry policy: multiplier must be at least 1, got %g", p.Multiplier)
	}
	return nil
}

// backOff returns the interval source for this policy. Randomization is
// disabled so sleeps follow InitialBackoff × Multiplier^(attempt-1) exactly.
func (p RetryPolicy) backOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialBackoff
	bo.Multiplier = p.Multiplier
	bo.RandomizationFactor = 0
	bo.MaxInterval = 24 * time.Hour
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

// Options configures one orchestrator run.
type Options struct {
	// Operation selects pull, push, or bidirectional.
	Operation Operation

	// DryRun skips schema changes and never dispatches the operation.
	DryRun bool

	// CheckSchema runs the schema checker before the first attempt.
	CheckSchema bool

	// Timeout is the hard wall-clock budget for a single attempt. Zero
	// means no per-attempt timeout.
	Timeout time.Duration

	// Retry bounds the retry loop. Zero value falls back to
	// DefaultRetryPolicy.
	Retry RetryPolicy
}

// DefaultOptions returns options for a plain bidirectional sync.
func DefaultOptions() Options {
	return Options{
		Operation:   OperationBidirectional,
		CheckSchema: true,
		Timeout:     60 * time.Second,
		Retry:       DefaultRetryPolicy(),
	}
}

// Summary counts what one successful attempt moved between the replicas.
// Immutable once produced.
type Summary struct {
	// InsertedLocal and UpdatedLocal count pull-side writes.
	InsertedLocal int `json:"inserted_local"`
	UpdatedLocal  int `json:"updated_local"`

	// InsertedRemote and UpdatedRemote count push-side writes.
	InsertedRemote int `json:"inserted_remote"`
	UpdatedRemote  int `json:"updated_remote"`

	// DuplicatesSkipped counts rows dropped by dedupe.
	DuplicatesSkipped int `json:"duplicates_skipped"`

	// Conflicts counts divergent rows stored for resolution.
	Conflicts int `json:"conflicts"`

	// ConflictLabels identifies the conflicting rows (uuid or composite
	// key), feeding the repeated-conflict alert rule.
	ConflictLabels []string `json:"conflict_labels,omitempty"`

	// Errors records row-level problems that did not fail the attempt.
	Errors []string `json:"errors,omitempty"`
}

// Downloaded returns the number of rows written locally.
func (s *Summary) Downloaded() int {
	return s.InsertedLocal + s.UpdatedLocal
}

// Uploaded returns the number of rows written remotely.
func (s *Summary) Uploaded() int {
	return s.InsertedRemote + s.UpdatedRemote
}

// merge folds another summary into this one (bidirectional runs).
func (s *Summary) merge(other *Summary) {
	if other == nil {
		return
	}
	s.InsertedLocal += other.InsertedLocal
	s.UpdatedLocal += other.UpdatedLocal
	s.InsertedRemote += other.InsertedRemote
	s.UpdatedRemote += other.UpdatedRemote
	s.DuplicatesSkipped += other.DuplicatesSkipped
	s.Conflicts += other.Conflicts
	s.ConflictLabels = append(s.ConflictLabels, other.ConflictLabels...)
	s.Errors = append(s.Errors, other.Errors...)
}
