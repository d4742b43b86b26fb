package capture

import (
	"sync"
	"time"
)

// throughputAlpha is the smoothing factor for the decayed throughput
// estimate. Higher values weigh recent pages more.
const throughputAlpha = 0.3

// TaskMetrics is a point-in-time snapshot of one task's capture counters.
// Counters are monotonic for the lifetime of the task; they are deleted
// with the task on removal.
type TaskMetrics struct {
	// TaskID is the owning task.
	TaskID string `json:"task_id"`

	// Captured counts events returned by the connector.
	Captured int64 `json:"captured"`

	// Processed counts events that cleared the whole handler pipeline.
	Processed int64 `json:"processed"`

	// Failed counts events on which at least one handler failed.
	Failed int64 `json:"failed"`

	// PerKind breaks Captured down by event kind.
	PerKind map[EventKind]int64 `json:"per_kind"`

	// UnsupportedTables counts tables skipped for lack of a natural
	// cursor column.
	UnsupportedTables int `json:"unsupported_tables"`

	// BufferDropped counts events evicted from the task's buffer.
	BufferDropped uint64 `json:"buffer_dropped"`

	// LastCaptureTime is when the last non-empty page was processed.
	LastCaptureTime time.Time `json:"last_capture_time,omitzero"`

	// CurrentLag is the time elapsed since LastCaptureTime, computed at
	// snapshot time. Zero before the first capture.
	CurrentLag time.Duration `json:"current_lag"`

	// Throughput is an exponentially decayed events-per-second estimate.
	Throughput float64 `json:"throughput"`

	// LastError is the most recent connector or handler failure.
	LastError string `json:"last_error,omitempty"`
}

// MetricsRecorder accumulates one task's capture counters. Writes come
// from the scheduler worker; Snapshot may be called from any goroutine.
type MetricsRecorder struct {
	mu         sync.Mutex
	m          TaskMetrics
	lastPageAt time.Time
}

// NewMetricsRecorder creates a zeroed recorder for a task.
func NewMetricsRecorder(id string) *MetricsRecorder {
	r := &MetricsRecorder{
		m: TaskMetrics{
			TaskID:  id,
			PerKind: make(map[EventKind]int64, len(Kinds)),
		},
	}
	for _, k := range Kinds {
		r.m.PerKind[k] = 0
	}
	return r
}

// RecordCaptured accounts for one event handed to the pipeline.
func (r *MetricsRecorder) RecordCaptured(kind EventKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.Captured++
	r.m.PerKind[kind]++
}

// RecordProcessed accounts for one event that cleared every handler.
func (r *MetricsRecorder) RecordProcessed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.Processed++
}

// RecordFailed accounts for one event failed by at least one handler.
func (r *MetricsRecorder) RecordFailed(lastErr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.Failed++
	r.m.LastError = lastErr
}

// RecordPage folds a processed page of n events into the decayed
// throughput estimate.
func (r *MetricsRecorder) RecordPage(n int, now time.Time) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.LastCaptureTime = now
	if !r.lastPageAt.IsZero() {
		elapsed := now.Sub(r.lastPageAt).Seconds()
		if elapsed > 0 {
			rate := float64(n) / elapsed
			r.m.Throughput = throughputAlpha*rate + (1-throughputAlpha)*r.m.Throughput
		}
	}
	r.lastPageAt = now
}

// MarkUnsupported accounts for one table skipped permanently and returns
// the new count.
func (r *MetricsRecorder) MarkUnsupported() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.UnsupportedTables++
	return r.m.UnsupportedTables
}

// SetBufferDropped records the buffer's eviction count.
func (r *MetricsRecorder) SetBufferDropped(n uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.BufferDropped = n
}

// SetLastError records a connector failure.
func (r *MetricsRecorder) SetLastError(lastErr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.LastError = lastErr
}

// CurrentLag returns the time elapsed since the last non-empty page, or
// zero before the first capture.
func (r *MetricsRecorder) CurrentLag(now time.Time) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.m.LastCaptureTime.IsZero() {
		return 0
	}
	return now.Sub(r.m.LastCaptureTime)
}

// Snapshot returns a copy with CurrentLag computed against now.
func (r *MetricsRecorder) Snapshot(now time.Time) TaskMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := r.m
	cp.PerKind = make(map[EventKind]int64, len(r.m.PerKind))
	for k, v := range r.m.PerKind {
		cp.PerKind[k] = v
	}
	if !r.m.LastCaptureTime.IsZero() {
		cp.CurrentLag = now.Sub(r.m.LastCaptureTime)
	}
	return cp
}
