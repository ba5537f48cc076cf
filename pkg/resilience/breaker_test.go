package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errStore = errors.New("store unavailable")

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(maxFailures int, reset time.Duration) (*Breaker, *clock) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	b := NewBreaker(BreakerConfig{MaxFailures: maxFailures, ResetTimeout: reset})
	b.now = c.now
	return b, c
}

func fail(context.Context) error    { return errStore }
func succeed(context.Context) error { return nil }

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(3, time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Do(ctx, fail); !errors.Is(err, errStore) {
			t.Fatalf("call %d error = %v, want store error", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	called := false
	err := b.Do(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("open breaker error = %v, called = %v", err, called)
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(2, time.Second)
	ctx := context.Background()

	_ = b.Do(ctx, fail)
	_ = b.Do(ctx, succeed)
	_ = b.Do(ctx, fail)
	if b.State() != StateClosed || b.Failures() != 1 {
		t.Fatalf("state = %v failures = %d, want closed with 1", b.State(), b.Failures())
	}
}

func TestBreaker_HalfOpenTrial(t *testing.T) {
	tests := []struct {
		name  string
		trial func(context.Context) error
		want  State
	}{
		{"trial success closes", succeed, StateClosed},
		{"trial failure reopens", fail, StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, c := newTestBreaker(1, time.Second)
			ctx := context.Background()
			_ = b.Do(ctx, fail)

			c.advance(500 * time.Millisecond)
			if err := b.Do(ctx, succeed); !errors.Is(err, ErrCircuitOpen) {
				t.Fatalf("before reset timeout error = %v", err)
			}

			c.advance(time.Second)
			_ = b.Do(ctx, tt.trial)
			if b.State() != tt.want {
				t.Fatalf("state = %v, want %v", b.State(), tt.want)
			}
		})
	}
}

func TestBreaker_OneTrialAtATime(t *testing.T) {
	b, c := newTestBreaker(1, time.Second)
	ctx := context.Background()
	_ = b.Do(ctx, fail)
	c.advance(2 * time.Second)

	err := b.Do(ctx, func(ctx context.Context) error {
		if inner := b.Do(ctx, succeed); !errors.Is(inner, ErrCircuitOpen) {
			t.Errorf("concurrent trial error = %v, want ErrCircuitOpen", inner)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("trial error = %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}
}

func TestBreaker_IgnoresClassifiedErrors(t *testing.T) {
	errMissing := errors.New("not found")
	b := NewBreaker(BreakerConfig{
		MaxFailures:  1,
		ResetTimeout: time.Second,
		IsFailure:    func(err error) bool { return !errors.Is(err, errMissing) },
	})

	for i := 0; i < 5; i++ {
		_ = b.Do(context.Background(), func(context.Context) error { return errMissing })
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}
}

func TestBreaker_ContextCancellation(t *testing.T) {
	b, _ := newTestBreaker(1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	err := b.Do(ctx, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if b.State() != StateClosed || b.Failures() != 0 {
		t.Fatalf("cancellation counted as failure: state %v failures %d", b.State(), b.Failures())
	}
	if err := b.Do(ctx, succeed); !errors.Is(err, context.Canceled) {
		t.Fatalf("done context error = %v", err)
	}
}

func TestBreaker_Reset(t *testing.T) {
	b, _ := newTestBreaker(1, time.Hour)
	_ = b.Do(context.Background(), fail)
	b.Reset()
	if err := b.Do(context.Background(), succeed); err != nil {
		t.Fatalf("after Reset error = %v", err)
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open", State(9): "unknown"}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
