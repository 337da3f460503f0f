package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// fakeClock drives the orchestrator deterministically: Now advances by a
// fixed step per call, Sleep only records its argument.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
	after  chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	if c.after != nil {
		return c.after
	}
	return make(chan time.Time) // never fires
}

func (c *fakeClock) totalSlept() time.Duration {
	var total time.Duration
	for _, d := range c.sleeps {
		total += d
	}
	return total
}

// scriptedDispatcher returns one scripted outcome per attempt.
type scriptedDispatcher struct {
	outcomes []func() (*Summary, error)
	calls    int
}

func (d *scriptedDispatcher) Dispatch(ctx context.Context, op Operation) (*Summary, error) {
	if d.calls >= len(d.outcomes) {
		return nil, fmt.Errorf("unexpected attempt %d", d.calls+1)
	}
	out := d.outcomes[d.calls]
	d.calls++
	return out()
}

type fakeConfig struct {
	lastSyncAt string
	setCalls   int
	values     map[string]string
}

func (c *fakeConfig) LastSyncAt() (string, error) { return c.lastSyncAt, nil }

func (c *fakeConfig) SetLastSyncAt(ts string) error {
	c.lastSyncAt = ts
	c.setCalls++
	return nil
}

func (c *fakeConfig) Get(key string) (string, error) { return c.values[key], nil }

func (c *fakeConfig) Set(key, value string) error {
	if c.values == nil {
		c.values = map[string]string{}
	}
	c.values[key] = value
	return nil
}

type fakeSchema struct {
	actions []string
	calls   int
}

func (s *fakeSchema) CheckSchema(ctx context.Context) ([]string, error) {
	s.calls++
	return s.actions, nil
}

func testOrchestrator(d Dispatcher, cfg *fakeConfig, clock *fakeClock) *Orchestrator {
	return NewOrchestrator(OrchestratorConfig{
		Dispatcher: d,
		Config:     cfg,
		Clock:      clock,
	})
}

func TestRun_RetriesTransientFailuresThenSucceeds(t *testing.T) {
	clock := newFakeClock()
	cfg := &fakeConfig{lastSyncAt: "2026-02-01T00:00:00"}
	dispatcher := &scriptedDispatcher{outcomes: []func() (*Summary, error){
		func() (*Summary, error) { return nil, fmt.Errorf("%w: dial tcp: refused", ErrConnection) },
		func() (*Summary, error) { return nil, fmt.Errorf("%w after 60s", ErrTimeout) },
		func() (*Summary, error) {
			return &Summary{
				InsertedLocal:     1,
				UpdatedLocal:      1,
				InsertedRemote:    2,
				UpdatedRemote:     1,
				DuplicatesSkipped: 1,
			}, nil
		},
	}}

	o := testOrchestrator(dispatcher, cfg, clock)
	report, err := o.Run(context.Background(), Options{
		Operation: OperationBidirectional,
		Retry: RetryPolicy{
			MaxAttempts:    3,
			InitialBackoff: 500 * time.Millisecond,
			Multiplier:     2.0,
		},
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if report.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", report.Attempts)
	}
	if len(report.Errors) != 0 {
		t.Errorf("Errors = %v, want none after eventual success", report.Errors)
	}
	// Watermark existed before the run, so changed rows classify as updates.
	if report.Updates != 5 {
		t.Errorf("Updates = %d, want 5", report.Updates)
	}
	if report.Creations != 0 {
		t.Errorf("Creations = %d, want 0", report.Creations)
	}
	if report.OmittedDuplicates != 1 {
		t.Errorf("OmittedDuplicates = %d, want 1", report.OmittedDuplicates)
	}
	if report.Status != StatusOK {
		t.Errorf("Status = %q, want OK", report.Status)
	}
	if cfg.setCalls != 1 {
		t.Errorf("watermark written %d times, want exactly once", cfg.setCalls)
	}

	// Backoff: 0.5s then 1.0s, slept in slices of at most 100 ms.
	total := clock.totalSlept()
	if total != 1500*time.Millisecond {
		t.Errorf("total backoff sleep = %s, want 1.5s", total)
	}
	for _, d := range clock.sleeps {
		if d > 100*time.Millisecond {
			t.Errorf("sleep slice %s exceeds 100ms", d)
		}
	}
}

func TestRun_NoWatermarkClassifiesAsCreations(t *testing.T) {
	clock := newFakeClock()
	cfg := &fakeConfig{}
	dispatcher := &scriptedDispatcher{outcomes: []func() (*Summary, error){
		func() (*Summary, error) { return &Summary{InsertedLocal: 2, InsertedRemote: 1}, nil },
	}}

	o := testOrchestrator(dispatcher, cfg, clock)
	report, err := o.Run(context.Background(), Options{Operation: OperationPull})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if report.Creations != 3 {
		t.Errorf("Creations = %d, want 3", report.Creations)
	}
	if report.Updates != 0 {
		t.Errorf("Updates = %d, want 0", report.Updates)
	}
}

func TestRun_DryRunNeverDispatches(t *testing.T) {
	clock := newFakeClock()
	cfg := &fakeConfig{}
	dispatcher := &scriptedDispatcher{}
	schema := &fakeSchema{actions: []string{"created table solicitudes"}}

	o := NewOrchestrator(OrchestratorConfig{
		Dispatcher: dispatcher,
		Config:     cfg,
		Schema:     schema,
		Clock:      clock,
	})
	report, err := o.Run(context.Background(), Options{
		Operation:   OperationPush,
		DryRun:      true,
		CheckSchema: true,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if dispatcher.calls != 0 {
		t.Errorf("dispatcher called %d times during dry run", dispatcher.calls)
	}
	if schema.calls != 0 {
		t.Errorf("schema check must not run during dry run, called %d times", schema.calls)
	}
	if report.Attempts != 0 || report.Creations != 0 || report.Updates != 0 {
		t.Errorf("dry run must report zero activity: %+v", report)
	}
	if report.Status != StatusDryRun {
		t.Errorf("Status = %q, want DRY_RUN", report.Status)
	}
	if report.Duration < 0 {
		t.Errorf("Duration = %s", report.Duration)
	}
}

func TestRun_SchemaCheckRunsBeforeAttempts(t *testing.T) {
	clock := newFakeClock()
	cfg := &fakeConfig{}
	dispatcher := &scriptedDispatcher{outcomes: []func() (*Summary, error){
		func() (*Summary, error) { return &Summary{}, nil },
	}}
	schema := &fakeSchema{actions: []string{"added column motivo"}}

	o := NewOrchestrator(OrchestratorConfig{
		Dispatcher: dispatcher,
		Config:     cfg,
		Schema:     schema,
		Clock:      clock,
	})
	report, err := o.Run(context.Background(), Options{Operation: OperationPush, CheckSchema: true})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if schema.calls != 1 {
		t.Errorf("schema check calls = %d, want 1", schema.calls)
	}
	if len(report.SchemaActions) != 1 || report.SchemaActions[0] != "added column motivo" {
		t.Errorf("SchemaActions = %v", report.SchemaActions)
	}
}

func TestRun_PreCancelledContextAbortsBeforeAnyAttempt(t *testing.T) {
	clock := newFakeClock()
	cfg := &fakeConfig{}
	dispatcher := &scriptedDispatcher{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := testOrchestrator(dispatcher, cfg, clock)
	report, err := o.Run(ctx, Options{Operation: OperationPull})

	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if report != nil {
		t.Errorf("cancelled run must not produce a report, got %+v", report)
	}
	if dispatcher.calls != 0 {
		t.Errorf("dispatcher called %d times after pre-cancellation", dispatcher.calls)
	}
}

func TestRun_CancellationDuringBackoffInterruptsPromptly(t *testing.T) {
	clock := newFakeClock()
	cfg := &fakeConfig{}

	ctx, cancel := context.WithCancel(context.Background())
	dispatcher := &scriptedDispatcher{outcomes: []func() (*Summary, error){
		func() (*Summary, error) {
			cancel() // cancel while the orchestrator is about to back off
			return nil, fmt.Errorf("%w: reset by peer", ErrConnection)
		},
	}}

	o := testOrchestrator(dispatcher, cfg, clock)
	_, err := o.Run(ctx, Options{
		Operation: OperationPull,
		Retry:     RetryPolicy{MaxAttempts: 3, InitialBackoff: 10 * time.Second, Multiplier: 2.0},
	})

	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	// The sleep loop checks cancellation before the first slice, so the
	// ten-second backoff is abandoned immediately.
	if clock.totalSlept() != 0 {
		t.Errorf("slept %s during cancelled backoff, want 0", clock.totalSlept())
	}
}

func TestRun_NonRetryableErrorStopsImmediately(t *testing.T) {
	clock := newFakeClock()
	cfg := &fakeConfig{}
	dispatcher := &scriptedDispatcher{outcomes: []func() (*Summary, error){
		func() (*Summary, error) { return nil, errors.New("worksheet schema mismatch") },
	}}

	o := testOrchestrator(dispatcher, cfg, clock)
	report, err := o.Run(context.Background(), Options{
		Operation: OperationPush,
		Retry:     RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Second, Multiplier: 2.0},
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if report.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1 for non-retryable failure", report.Attempts)
	}
	if report.Status != StatusError {
		t.Errorf("Status = %q, want ERROR", report.Status)
	}
	if len(report.Errors) != 1 {
		t.Errorf("Errors = %v", report.Errors)
	}
	if cfg.setCalls != 0 {
		t.Errorf("watermark must not move on failure, written %d times", cfg.setCalls)
	}
}

func TestRun_ExhaustedRetriesReturnTerminalReport(t *testing.T) {
	clock := newFakeClock()
	cfg := &fakeConfig{}
	fail := func() (*Summary, error) { return nil, fmt.Errorf("%w: unreachable", ErrConnection) }
	dispatcher := &scriptedDispatcher{outcomes: []func() (*Summary, error){fail, fail, fail}}

	o := testOrchestrator(dispatcher, cfg, clock)
	report, err := o.Run(context.Background(), Options{
		Operation: OperationPull,
		Retry:     RetryPolicy{MaxAttempts: 3, InitialBackoff: 100 * time.Millisecond, Multiplier: 2.0},
	})
	if err != nil {
		t.Fatalf("exhausted retries must not return an error, got %v", err)
	}

	if report.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", report.Attempts)
	}
	if len(report.Errors) != 3 {
		t.Errorf("expected one error per attempt, got %v", report.Errors)
	}
	if report.Creations != 0 || report.Updates != 0 {
		t.Errorf("failed run must report zero counts: %+v", report)
	}
	if report.Status != StatusError {
		t.Errorf("Status = %q, want ERROR", report.Status)
	}
}

func TestRun_ConfigIncompleteIsNotRetried(t *testing.T) {
	clock := newFakeClock()
	cfg := &fakeConfig{}
	dispatcher := &scriptedDispatcher{outcomes: []func() (*Summary, error){
		func() (*Summary, error) { return nil, fmt.Errorf("%w: worksheet name is not set", ErrConfigIncomplete) },
	}}

	o := testOrchestrator(dispatcher, cfg, clock)
	report, err := o.Run(context.Background(), Options{Operation: OperationPush})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if report.Status != StatusConfigIncomplete {
		t.Errorf("Status = %q, want CONFIG_INCOMPLETE", report.Status)
	}
	if report.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", report.Attempts)
	}
}

func TestRun_AttemptTimeoutIsRetryable(t *testing.T) {
	clock := newFakeClock()
	clock.after = make(chan time.Time, 1)
	clock.after <- time.Now() // the attempt budget fires immediately

	cfg := &fakeConfig{}
	blocked := make(chan struct{})
	t.Cleanup(func() { close(blocked) })
	dispatcher := &scriptedDispatcher{outcomes: []func() (*Summary, error){
		func() (*Summary, error) { <-blocked; return nil, errors.New("never reached") },
	}}

	o := testOrchestrator(dispatcher, cfg, clock)
	report, err := o.Run(context.Background(), Options{
		Operation: OperationPull,
		Timeout:   50 * time.Millisecond,
		Retry:     RetryPolicy{MaxAttempts: 1, InitialBackoff: 0, Multiplier: 1.0},
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if report.Status != StatusError {
		t.Errorf("Status = %q, want ERROR", report.Status)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("Errors = %v", report.Errors)
	}
	if !strings.Contains(report.Errors[0], ErrTimeout.Error()) {
		t.Errorf("Errors[0] = %q, want a timeout failure", report.Errors[0])
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "timeout", err: fmt.Errorf("%w after 60s", ErrTimeout), want: true},
		{name: "connection", err: fmt.Errorf("%w: refused", ErrConnection), want: true},
		{name: "io", err: fmt.Errorf("%w: short write", ErrIO), want: true},
		{name: "config incomplete", err: ErrConfigIncomplete, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  RetryPolicy
		wantErr bool
	}{
		{name: "default is valid", policy: DefaultRetryPolicy(), wantErr: false},
		{name: "zero attempts", policy: RetryPolicy{MaxAttempts: 0, Multiplier: 1}, wantErr: true},
		{name: "negative backoff", policy: RetryPolicy{MaxAttempts: 1, InitialBackoff: -time.Second, Multiplier: 1}, wantErr: true},
		{name: "multiplier below one", policy: RetryPolicy{MaxAttempts: 1, Multiplier: 0.5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
