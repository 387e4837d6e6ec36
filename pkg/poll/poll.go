package poll

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned when the attempt bound is reached before the
// operation reports completion. Callers map this to a user-facing timeout.
var ErrExhausted = errors.New("poll: attempts exhausted")

// Policy bounds a poll loop. A bounded loop is a correctness requirement
// here, not an optimization: a poller must not outlive the state machine it
// feeds.
type Policy struct {
	Interval    time.Duration
	MaxAttempts int
}

// Func is one poll attempt. Returning done=true stops the loop
// successfully. Returning an error stops the loop immediately unless the
// error is marked retryable via Retryable, in which case the attempt is
// consumed and polling continues.
type Func func(ctx context.Context) (done bool, err error)

type retryableError struct{ err error }

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

// Retryable marks an error as transient so Until keeps polling instead of
// aborting.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return retryableError{err: err}
}

// Until runs fn every policy.Interval until it reports done, a fatal error
// occurs, the context is cancelled, or policy.MaxAttempts attempts have been
// consumed (ErrExhausted). The first attempt waits one interval, matching
// the remote backends this is used against, which are never ready
// immediately.
func Until(ctx context.Context, policy Policy, fn Func) error {
	if policy.MaxAttempts <= 0 {
		return ErrExhausted
	}

	ticker := time.NewTicker(policy.Interval)
	defer ticker.Stop()

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		done, err := fn(ctx)
		if err != nil {
			var transient retryableError
			if errors.As(err, &transient) {
				continue
			}
			return err
		}
		if done {
			return nil
		}
	}

	return ErrExhausted
}
