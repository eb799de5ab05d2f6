package indexer

import (
	"context"
	"errors"
	"time"
)

const maxRetryDelay = 30 * time.Second

// backoff retries RPC calls with a doubling delay capped at maxRetryDelay.
type backoff struct {
	retries int
	base    time.Duration
}

func newBackoff(retries int, base time.Duration) backoff {
	if retries < 0 {
		retries = 0
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	return backoff{retries: retries, base: base}
}

// do calls fn until it succeeds or the retries run out. Context
// cancellation is returned at once.
func (b backoff) do(ctx context.Context, fn func(context.Context) error) error {
	delay := b.base
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= b.retries || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, maxRetryDelay)
	}
}
