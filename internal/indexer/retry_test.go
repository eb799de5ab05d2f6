package indexer

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetryRecovers(t *testing.T) {
	calls := 0
	err := newBackoff(3, time.Millisecond).do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("rate limited")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := newBackoff(2, time.Millisecond).do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := newBackoff(5, time.Hour).do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestBackoffDefaults(t *testing.T) {
	b := newBackoff(-1, 0)
	if b.retries != 0 || b.base != 100*time.Millisecond {
		t.Fatalf("unexpected defaults: %+v", b)
	}
}
