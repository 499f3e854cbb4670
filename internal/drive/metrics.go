package drive

import "time"

// Metrics receives service-level events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	UploadCompleted(degraded bool)
	UploadFailed(kind Kind)
	BlobCompensated(ok bool)
	SearchServed(results int, elapsed time.Duration)
}

// NopMetrics discards all events.
type NopMetrics struct{}

func (NopMetrics) UploadCompleted(bool)            {}
func (NopMetrics) UploadFailed(Kind)               {}
func (NopMetrics) BlobCompensated(bool)            {}
func (NopMetrics) SearchServed(int, time.Duration) {}
