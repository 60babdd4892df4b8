package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics collects storage and API counters
type Metrics struct {
	// HTTP
	TotalRequests atomic.Uint64

	// Uploads
	Uploads        atomic.Uint64
	UploadFailures atomic.Uint64
	BytesUploaded  atomic.Uint64
	uploadLatency  latency

	// Deletes
	Deletes         atomic.Uint64
	DeleteFailures  atomic.Uint64
	DeferredDeletes atomic.Uint64
	deleteLatency   latency

	Started time.Time
}

// latency keeps a running total so the mean can be derived without locks
type latency struct {
	count atomic.Uint64
	total atomic.Int64 // microseconds
}

func (l *latency) observe(d time.Duration) {
	l.count.Add(1)
	l.total.Add(d.Microseconds())
}

func (l *latency) meanMillis() float64 {
	n := l.count.Load()
	if n == 0 {
		return 0
	}
	return float64(l.total.Load()) / float64(n) / 1000
}

// Global metrics instance
var globalMetrics = New()

// New returns an empty Metrics with the start time set to now
func New() *Metrics {
	return &Metrics{Started: time.Now()}
}

// GetMetrics returns the process-wide instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// IncrementRequests increments total request counter
func (m *Metrics) IncrementRequests() {
	m.TotalRequests.Add(1)
}

// RecordUpload records one upload attempt made through the storage layer
func (m *Metrics) RecordUpload(duration time.Duration, bytes int64, err error) {
	m.uploadLatency.observe(duration)
	if err != nil {
		m.UploadFailures.Add(1)
		return
	}
	m.Uploads.Add(1)
	if bytes > 0 {
		m.BytesUploaded.Add(uint64(bytes))
	}
}

// RecordDelete records one delete call
func (m *Metrics) RecordDelete(duration time.Duration, err error) {
	m.deleteLatency.observe(duration)
	if err != nil {
		m.DeleteFailures.Add(1)
		return
	}
	m.Deletes.Add(1)
}

// RecordDeferredDelete records a delete handed to the queue
func (m *Metrics) RecordDeferredDelete() {
	m.DeferredDeletes.Add(1)
}

// GetSnapshot returns current metrics snapshot
func (m *Metrics) GetSnapshot() map[string]interface{} {
	uploads := m.Uploads.Load()
	uploadFailures := m.UploadFailures.Load()

	successRate := float64(0)
	if total := uploads + uploadFailures; total > 0 {
		successRate = float64(uploads) / float64(total) * 100
	}

	return map[string]interface{}{
		"uptime_seconds": int64(time.Since(m.Started).Seconds()),
		"total_requests": m.TotalRequests.Load(),
		"uploads": map[string]interface{}{
			"succeeded":      uploads,
			"failed":         uploadFailures,
			"success_rate":   successRate,
			"bytes":          m.BytesUploaded.Load(),
			"avg_latency_ms": m.uploadLatency.meanMillis(),
		},
		"deletes": map[string]interface{}{
			"succeeded":      m.Deletes.Load(),
			"failed":         m.DeleteFailures.Load(),
			"deferred":       m.DeferredDeletes.Load(),
			"avg_latency_ms": m.deleteLatency.meanMillis(),
		},
	}
}
