package kv

import (
	"context"
	"errors"
	"testing"
	"time"
)

// flakyBackend fails every operation while failing is true.
type flakyBackend struct {
	failing bool
	calls   int
}

var errFlaky = errors.New("backend down")

func (f *flakyBackend) Get(context.Context, string) ([]byte, bool, error) {
	f.calls++
	if f.failing {
		return nil, false, errFlaky
	}
	return nil, false, nil
}

func (f *flakyBackend) Set(context.Context, string, []byte, time.Duration) error {
	f.calls++
	if f.failing {
		return errFlaky
	}
	return nil
}

func (f *flakyBackend) Delete(context.Context, string) error {
	f.calls++
	if f.failing {
		return errFlaky
	}
	return nil
}

func (f *flakyBackend) List(context.Context, string, string, int) (Page, error) {
	f.calls++
	if f.failing {
		return Page{}, errFlaky
	}
	return Page{Complete: true}, nil
}

func trip(t *testing.T, b *Breaker, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		b.Get(ctx, "k")
	}
}

func TestBreakerOpensOnErrors(t *testing.T) {
	t.Parallel()
	inner := &flakyBackend{failing: true}
	b := WithBreaker(inner, BreakerConfig{
		ErrorThreshold: 0.5,
		MinSamples:     5,
		WindowSeconds:  30,
		OpenTimeout:    time.Hour,
	})

	trip(t, b, 5)
	if got := b.State(); got != "open" {
		t.Fatalf("state = %q after 5 failures, want open", got)
	}

	// Open breaker short-circuits without touching the backend.
	before := inner.calls
	if _, _, err := b.Get(context.Background(), "k"); !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("err = %v, want ErrBreakerOpen", err)
	}
	if err := b.Set(context.Background(), "k", nil, 0); !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("set err = %v, want ErrBreakerOpen", err)
	}
	if _, err := b.List(context.Background(), "p", "", 10); !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("list err = %v, want ErrBreakerOpen", err)
	}
	if inner.calls != before {
		t.Errorf("open breaker reached the backend (%d extra calls)", inner.calls-before)
	}
}

func TestBreakerStaysClosedBelowMinSamples(t *testing.T) {
	t.Parallel()
	inner := &flakyBackend{failing: true}
	b := WithBreaker(inner, BreakerConfig{
		ErrorThreshold: 0.5,
		MinSamples:     10,
		WindowSeconds:  30,
		OpenTimeout:    time.Hour,
	})

	trip(t, b, 9)
	if got := b.State(); got != "closed" {
		t.Errorf("state = %q below min samples, want closed", got)
	}
}

func TestBreakerRecoversViaProbe(t *testing.T) {
	t.Parallel()
	inner := &flakyBackend{failing: true}
	b := WithBreaker(inner, BreakerConfig{
		ErrorThreshold: 0.5,
		MinSamples:     2,
		WindowSeconds:  30,
		OpenTimeout:    20 * time.Millisecond,
	})
	ctx := context.Background()

	trip(t, b, 3)
	if got := b.State(); got != "open" {
		t.Fatalf("state = %q, want open", got)
	}

	// After the open timeout, one probe goes through; success closes.
	inner.failing = false
	time.Sleep(30 * time.Millisecond)
	if _, _, err := b.Get(ctx, "k"); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if got := b.State(); got != "closed" {
		t.Errorf("state = %q after successful probe, want closed", got)
	}
	if _, _, err := b.Get(ctx, "k"); err != nil {
		t.Errorf("closed breaker returned %v", err)
	}
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	t.Parallel()
	inner := &flakyBackend{failing: true}
	b := WithBreaker(inner, BreakerConfig{
		ErrorThreshold: 0.5,
		MinSamples:     2,
		WindowSeconds:  30,
		OpenTimeout:    20 * time.Millisecond,
	})
	ctx := context.Background()

	trip(t, b, 3)
	time.Sleep(30 * time.Millisecond)

	// Probe runs against the still-failing backend and reopens.
	if _, _, err := b.Get(ctx, "k"); !errors.Is(err, errFlaky) {
		t.Fatalf("probe err = %v, want backend error", err)
	}
	if got := b.State(); got != "open" {
		t.Errorf("state = %q after failed probe, want open", got)
	}
	if _, _, err := b.Get(ctx, "k"); !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("err = %v right after reopen, want ErrBreakerOpen", err)
	}
}
