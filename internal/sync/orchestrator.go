// Package sync coordinates reconciliation between the local leave-request
// store and the remote worksheet ledger: a retryable, cancellable
// orchestrator around a pure planning core.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/klauern/permisync/internal/logging"
	"github.com/klauern/permisync/internal/model"
)

// backoffSlice bounds one cooperative-cancellation sleep increment. A
// cancellation request is honored within roughly one slice rather than the
// full backoff duration.
const backoffSlice = 100 * time.Millisecond

// Orchestrator runs sync operations: sequential attempts with exponential
// backoff, per-attempt wall-clock timeout, and cooperative cancellation
// through the run context. Ordinary operational failure ends in the report,
// never in a returned error.
type Orchestrator struct {
	dispatcher Dispatcher
	config     ConfigStore
	schema     SchemaChecker
	clock      Clock
	events     *logging.EventWriter
}

// OrchestratorConfig wires the orchestrator's collaborators. Dispatcher and
// Config are required; Schema and Events are optional and Clock defaults to
// the real clock.
type OrchestratorConfig struct {
	Dispatcher Dispatcher
	Config     ConfigStore
	Schema     SchemaChecker
	Clock      Clock
	Events     *logging.EventWriter
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	clock := cfg.Clock
	if clock == nil {
		clock = RealClock{}
	}
	return &Orchestrator{
		dispatcher: cfg.Dispatcher,
		config:     cfg.Config,
		schema:     cfg.Schema,
		clock:      clock,
		events:     cfg.Events,
	}
}

// Run executes one sync operation to completion. It returns an error only
// when the context was cancelled; every other outcome, including exhausted
// retries, is reported through the returned Report.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Retry == (RetryPolicy{}) {
		opts.Retry = DefaultRetryPolicy()
	}
	if err := opts.Retry.Validate(); err != nil {
		return nil, err
	}

	startedAt := o.clock.Now()
	report := &Report{
		Operation: opts.Operation,
		DryRun:    opts.DryRun,
		StartedAt: startedAt,
	}

	o.emit("sync_started", map[string]any{
		"operation": string(opts.Operation),
		"dry_run":   opts.DryRun,
	})

	if err := ctx.Err(); err != nil {
		o.emit("sync_cancelled", map[string]any{"operation": string(opts.Operation)})
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	if opts.CheckSchema && !opts.DryRun && o.schema != nil {
		actions, err := o.schema.CheckSchema(ctx)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("schema check: %v", err))
		}
		report.SchemaActions = actions
		o.emit("schema_checked", map[string]any{
			"actions": actions,
		})
	}

	if opts.DryRun {
		report.Status = StatusDryRun
		o.finish(report)
		o.emit("sync_dry_run", map[string]any{"operation": string(opts.Operation)})
		return report, nil
	}

	// Whether a watermark existed before this run decides how changed rows
	// are classified: no prior sync means everything counts as a creation.
	// A session heuristic, not per-row provenance.
	priorWatermark, err := o.config.LastSyncAt()
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("read watermark: %v", err))
	}
	hadWatermark := priorWatermark != ""

	bo := opts.Retry.backOff()
	for attempt := 1; attempt <= opts.Retry.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			o.emit("sync_cancelled", map[string]any{
				"operation": string(opts.Operation),
				"attempt":   attempt,
			})
			return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
		}

		report.Attempts = attempt
		o.emit("sync_attempt_started", map[string]any{
			"operation": string(opts.Operation),
			"attempt":   attempt,
		})

		summary, err := o.dispatchWithTimeout(ctx, opts)
		if err == nil {
			o.succeed(report, summary, hadWatermark)
			return report, nil
		}
		if IsCancellation(err) {
			o.emit("sync_cancelled", map[string]any{
				"operation": string(opts.Operation),
				"attempt":   attempt,
			})
			return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
		}

		report.Errors = append(report.Errors, err.Error())
		o.emit("sync_attempt_failed", map[string]any{
			"operation": string(opts.Operation),
			"attempt":   attempt,
			"error":     err.Error(),
		})
		logging.Warn("sync attempt failed",
			logging.Operation(string(opts.Operation)),
			logging.Attempt(attempt),
			logging.Err(err),
		)

		if errors.Is(err, ErrConfigIncomplete) {
			report.Status = StatusConfigIncomplete
			o.finish(report)
			o.emit("sync_failed", map[string]any{
				"operation": string(opts.Operation),
				"attempts":  attempt,
				"status":    string(report.Status),
			})
			return report, nil
		}
		if !IsRetryable(err) || attempt == opts.Retry.MaxAttempts {
			break
		}

		delay := bo.NextBackOff()
		o.emit("sync_retry_scheduled", map[string]any{
			"operation":       string(opts.Operation),
			"attempt":         attempt,
			"backoff_seconds": delay.Seconds(),
		})
		if err := o.sleepWithCancel(ctx, delay); err != nil {
			o.emit("sync_cancelled", map[string]any{
				"operation": string(opts.Operation),
				"attempt":   attempt,
			})
			return nil, err
		}
	}

	report.Status = StatusError
	o.finish(report)
	o.emit("sync_failed", map[string]any{
		"operation": string(opts.Operation),
		"attempts":  report.Attempts,
		"status":    string(report.Status),
	})
	return report, nil
}

// dispatchWithTimeout runs one attempt on a worker goroutine and joins it
// with the per-attempt wall-clock budget. On timeout the worker's context
// is cancelled, but the worker may still be running when control returns;
// the outcome of a timed-out attempt is unknown, not rolled back.
func (o *Orchestrator) dispatchWithTimeout(ctx context.Context, opts Options) (*Summary, error) {
	attemptCtx, cancel := context.WithCancel(ctx)

	type outcome struct {
		summary *Summary
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		s, err := o.dispatcher.Dispatch(attemptCtx, opts.Operation)
		done <- outcome{summary: s, err: err}
	}()

	var timeout <-chan time.Time
	if opts.Timeout > 0 {
		timeout = o.clock.After(opts.Timeout)
	}

	select {
	case out := <-done:
		cancel()
		return out.summary, out.err
	case <-timeout:
		cancel()
		return nil, fmt.Errorf("%w after %s", ErrTimeout, opts.Timeout)
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}
}

// sleepWithCancel sleeps for the backoff delay in slices no longer than
// backoffSlice, checking for cancellation between slices.
func (o *Orchestrator) sleepWithCancel(ctx context.Context, d time.Duration) error {
	remaining := d
	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		slice := backoffSlice
		if remaining < slice {
			slice = remaining
		}
		o.clock.Sleep(slice)
		remaining -= slice
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}

func (o *Orchestrator) succeed(report *Report, summary *Summary, hadWatermark bool) {
	changed := 0
	// Success supersedes earlier attempt failures: the report's error list
	// carries only problems from the attempt that actually landed.
	report.Errors = nil
	if summary != nil {
		changed = summary.Downloaded() + summary.Uploaded()
		report.OmittedDuplicates = summary.DuplicatesSkipped
		report.Conflicts = summary.Conflicts
		report.ConflictLabels = summary.ConflictLabels
		report.Errors = append(report.Errors, summary.Errors...)
	}
	if hadWatermark {
		report.Updates = changed
	} else {
		report.Creations = changed
	}

	watermark := model.FormatTimestamp(o.clock.Now().UTC())
	if err := o.config.SetLastSyncAt(watermark); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("persist watermark: %v", err))
	}

	report.Status = StatusOK
	o.finish(report)
	o.emit("sync_succeeded", map[string]any{
		"operation": string(report.Operation),
		"attempts":  report.Attempts,
		"creations": report.Creations,
		"updates":   report.Updates,
		"conflicts": report.Conflicts,
	})
	logging.Info("sync succeeded",
		logging.Operation(string(report.Operation)),
		logging.Attempt(report.Attempts),
		slog.Int("creations", report.Creations),
		slog.Int("updates", report.Updates),
	)
}

func (o *Orchestrator) finish(report *Report) {
	report.FinishedAt = o.clock.Now()
	report.Duration = report.FinishedAt.Sub(report.StartedAt)
}

// emit writes one structured event to the log sink and, when configured,
// to the append-only JSONL event file.
func (o *Orchestrator) emit(event string, payload map[string]any) {
	args := make([]any, 0, len(payload)*2)
	for k, v := range payload {
		args = append(args, slog.Any(k, v))
	}
	logging.Debug(event, args...)
	if o.events != nil {
		if err := o.events.Log(event, payload); err != nil {
			logging.Warn("failed to append sync event",
				slog.String("event", event),
				logging.Err(err),
			)
		}
	}
}
