package testutil

import (
	"sync"
	"time"

	"drive-go/internal/drive"
)

// RecordingMetrics counts service events for assertions.
type RecordingMetrics struct {
	mu            sync.Mutex
	Uploads       int
	Degraded      int
	Failures      map[drive.Kind]int
	Compensations map[bool]int
	Searches      int
}

func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{Failures: map[drive.Kind]int{}, Compensations: map[bool]int{}}
}

func (m *RecordingMetrics) UploadCompleted(degraded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Uploads++
	if degraded {
		m.Degraded++
	}
}

func (m *RecordingMetrics) UploadFailed(kind drive.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failures[kind]++
}

func (m *RecordingMetrics) BlobCompensated(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Compensations[ok]++
}

func (m *RecordingMetrics) SearchServed(int, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Searches++
}

var _ drive.Metrics = (*RecordingMetrics)(nil)
