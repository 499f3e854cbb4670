package app

import "time"

// Run tracks one CLI invocation. Its ID tags every log line the invocation
// writes, so interleaved runs can be told apart in drive.log.
type Run struct {
	ID         string
	Command    string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string // "running", "success" or "error"
}

// NewRun creates a Run for command started at now.
func NewRun(command string, now time.Time) *Run {
	return &Run{
		ID:        now.UTC().Format("20060102T150405.000Z"),
		Command:   command,
		StartedAt: now,
		Status:    "running",
	}
}

// Finish records the outcome of the run.
func (r *Run) Finish(err error, now time.Time) {
	r.FinishedAt = now
	r.Status = "success"
	if err != nil {
		r.Status = "error"
	}
}

// Finished returns true once Finish has been called.
func (r *Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if !r.Finished() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
