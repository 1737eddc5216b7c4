package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fedra/infra/ledger"
)

// Backoff shapes one wait loop against the ledger.
type Backoff struct {
	Initial  time.Duration // first sleep between probes
	Max      time.Duration // sleep cap after backoff
	Deadline time.Duration // total budget for the wait
}

func (b Backoff) withDefaults() Backoff {
	if b.Initial <= 0 {
		b.Initial = 500 * time.Millisecond
	}
	if b.Max <= 0 {
		b.Max = 8 * time.Second
	}
	if b.Deadline <= 0 {
		b.Deadline = 5 * time.Minute
	}
	return b
}

// pollUntil probes fn with exponential backoff until it reports done,
// the deadline lapses (ErrDeadline), or the context is cancelled.
// Node hiccups (ledger.ErrUnavailable) are retried like a not-yet
// answer; anything else aborts the wait.
func pollUntil(ctx context.Context, b Backoff, fn func(ctx context.Context) (bool, error)) error {
	b = b.withDefaults()

	deadline := time.Now().Add(b.Deadline)
	sleep := b.Initial

	for {
		done, err := fn(ctx)
		switch {
		case err == nil && done:
			return nil
		case err != nil && !errors.Is(err, ledger.ErrUnavailable):
			return err
		}

		if time.Now().Add(sleep).After(deadline) {
			if err != nil {
				return fmt.Errorf("%w: %v", ErrDeadline, err)
			}
			return ErrDeadline
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		sleep *= 2
		if sleep > b.Max {
			sleep = b.Max
		}
	}
}
