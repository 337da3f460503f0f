package sync

import (
	"context"
	"errors"
	"net"
)

// Sentinel errors classifying sync failures. Collaborators wrap transport
// failures in one of the transient kinds so the orchestrator knows what is
// worth retrying.
var (
	// ErrTimeout marks an attempt that exceeded its wall-clock budget.
	// Retryable. A timed-out attempt has an unknown outcome: the worker was
	// asked to cancel but may still be running, so remote writes must stay
	// idempotent (whole-range overwrites keyed by uuid already are).
	ErrTimeout = errors.New("sync attempt timed out")

	// ErrConnection marks a failure to reach the remote service. Retryable.
	ErrConnection = errors.New("connection to remote service failed")

	// ErrIO marks a low-level read/write failure. Retryable.
	ErrIO = errors.New("i/o failure")

	// ErrCancelled is returned from Run when the caller cancelled the
	// operation. Never retried; the only error Run propagates.
	ErrCancelled = errors.New("sync cancelled")

	// ErrConfigIncomplete marks a sync that cannot start because required
	// configuration (spreadsheet id, credentials, worksheet) is missing.
	// Not retryable; fix the config instead.
	ErrConfigIncomplete = errors.New("sync configuration incomplete")
)

// IsRetryable reports whether an attempt failure is transient: a timeout,
// a connection failure, or a low-level i/o failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnection) || errors.Is(err, ErrIO) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsCancellation reports whether the error represents caller cancellation
// rather than an operational failure.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}
