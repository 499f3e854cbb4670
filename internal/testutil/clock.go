package testutil

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"drive-go/internal/drive"
)

// Epoch is the instant FixedClock starts at.
var Epoch = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// StubClock is a drive.Clock that only moves when told to. With a non-zero
// step, every Now call returns the current instant and then moves the clock
// forward by step, which gives successive records distinct timestamps.
type StubClock struct {
	mu   sync.Mutex
	at   time.Time
	step time.Duration
}

// NewStubClock returns a clock frozen at t.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{at: t.UTC()}
}

// FixedClock returns a clock frozen at Epoch.
func FixedClock() *StubClock {
	return NewStubClock(Epoch)
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.at
	c.at = c.at.Add(c.step)
	return now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.at = c.at.Add(d)
	c.mu.Unlock()
}

// Tick makes every later Now call advance the clock by step.
func (c *StubClock) Tick(step time.Duration) {
	c.mu.Lock()
	c.step = step
	c.mu.Unlock()
}

// StubIDGenerator hands out "id-1", "id-2" and so on.
type StubIDGenerator struct {
	n atomic.Int64
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	return "id-" + strconv.FormatInt(g.n.Add(1), 10)
}

var (
	_ drive.Clock       = (*StubClock)(nil)
	_ drive.IDGenerator = (*StubIDGenerator)(nil)
)
