package embedding

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type flakyEmbedder struct {
	calls atomic.Int32
	err   atomic.Pointer[error]
}

func (f *flakyEmbedder) Name() string   { return "flaky" }
func (f *flakyEmbedder) Dimension() int { return 2 }

func (f *flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if p := f.err.Load(); p != nil {
		return nil, *p
	}
	return []float32{1, 0}, nil
}

func (f *flakyEmbedder) fail(err error) { f.err.Store(&err) }

func TestBreakerEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("passes through while healthy", func(t *testing.T) {
		inner := &flakyEmbedder{}
		b := NewBreakerEmbedder(inner, 2, time.Minute, nil)
		v, err := b.Embed(ctx, "x")
		if err != nil || len(v) != 2 {
			t.Fatalf("Embed() = %v, %v", v, err)
		}
		if b.Name() != "flaky" || b.Dimension() != 2 {
			t.Errorf("got %s/%d", b.Name(), b.Dimension())
		}
	})

	t.Run("opens after consecutive failures", func(t *testing.T) {
		inner := &flakyEmbedder{}
		inner.fail(errors.New("503 from upstream"))
		b := NewBreakerEmbedder(inner, 2, time.Minute, nil)

		for i := 0; i < 2; i++ {
			if _, err := b.Embed(ctx, "x"); err == nil || errors.Is(err, ErrCircuitOpen) {
				t.Fatalf("call %d: error = %v, want upstream error", i, err)
			}
		}
		if b.State() != "open" {
			t.Fatalf("State() = %s, want open", b.State())
		}

		if _, err := b.Embed(ctx, "x"); !errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("error = %v, want ErrCircuitOpen", err)
		}
		if got := inner.calls.Load(); got != 2 {
			t.Errorf("inner called %d times, want 2", got)
		}
	})

	t.Run("half-open trial call closes on success", func(t *testing.T) {
		inner := &flakyEmbedder{}
		inner.fail(errors.New("down"))
		b := NewBreakerEmbedder(inner, 1, 10*time.Millisecond, nil)

		b.Embed(ctx, "x")
		if b.State() != "open" {
			t.Fatalf("State() = %s, want open", b.State())
		}

		inner.err.Store(nil)
		time.Sleep(20 * time.Millisecond)
		if _, err := b.Embed(ctx, "x"); err != nil {
			t.Fatalf("trial Embed() error = %v", err)
		}
		if b.State() != "closed" {
			t.Errorf("State() = %s, want closed", b.State())
		}
	})

	t.Run("caller cancellation does not trip", func(t *testing.T) {
		inner := &flakyEmbedder{}
		inner.fail(context.Canceled)
		b := NewBreakerEmbedder(inner, 1, time.Minute, nil)

		for i := 0; i < 3; i++ {
			b.Embed(ctx, "x")
		}
		if b.State() != "closed" {
			t.Errorf("State() = %s, want closed", b.State())
		}
	})
}
