package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"drive-go/internal/drive"
)

// ErrCircuitOpen is returned while the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("embedding service circuit open")

// BreakerEmbedder guards a remote Embedder with a circuit breaker. After
// failures consecutive errors calls fail fast for cooldown, so uploads
// degrade immediately instead of each waiting out the embedding timeout.
type BreakerEmbedder struct {
	inner drive.Embedder
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerEmbedder wraps inner. logger may be nil.
func NewBreakerEmbedder(inner drive.Embedder, failures uint32, cooldown time.Duration, logger drive.Logger) *BreakerEmbedder {
	if logger == nil {
		logger = drive.NewNopLogger()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("embedding circuit state changed", "embedder", name, "from", from.String(), "to", to.String())
		},
		// A caller giving up says nothing about the service.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &BreakerEmbedder{inner: inner, cb: cb}
}

func (b *BreakerEmbedder) Name() string   { return b.inner.Name() }
func (b *BreakerEmbedder) Dimension() int { return b.inner.Dimension() }

func (b *BreakerEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.inner.Embed(ctx, text)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// State reports the breaker state: "closed", "half-open" or "open".
func (b *BreakerEmbedder) State() string {
	return b.cb.State().String()
}

var _ drive.Embedder = (*BreakerEmbedder)(nil)
