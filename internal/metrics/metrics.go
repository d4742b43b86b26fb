// Package metrics provides Prometheus metrics for the capture engine.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var registerOnce sync.Once

const (
	// Namespace is the Prometheus namespace for all engine metrics.
	Namespace = "capture"

	// Subsystem constants for metric organization.
	SubsystemTask   = "task"
	SubsystemBuffer = "buffer"
	SubsystemAPI    = "api"
)

// Label constants for consistent labeling across metrics.
const (
	LabelTask      = "task"
	LabelTable     = "table"
	LabelKind      = "kind"
	LabelEndpoint  = "endpoint"
	LabelMethod    = "method"
	LabelStatus    = "status"
	LabelErrorType = "error_type"
)

var (
	// EventsTotal counts captured events per task, table and kind.
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemTask,
			Name:      "events_total",
			Help:      "Total number of captured change events",
		},
		[]string{LabelTask, LabelTable, LabelKind},
	)

	// HandlerFailuresTotal counts events failed by at least one handler.
	HandlerFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemTask,
			Name:      "handler_failures_total",
			Help:      "Total number of events failed by a handler",
		},
		[]string{LabelTask},
	)

	// ErrorsTotal counts connector errors per task.
	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemTask,
			Name:      "errors_total",
			Help:      "Total number of connector errors",
		},
		[]string{LabelTask, LabelErrorType},
	)

	// UnsupportedTables counts tables skipped for lack of a natural
	// cursor column.
	UnsupportedTables = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: SubsystemTask,
			Name:      "unsupported_tables",
			Help:      "Tables without a usable natural cursor column",
		},
		[]string{LabelTask},
	)

	// TaskStatus exposes the lifecycle status per task.
	// Values: 0=idle, 1=connecting, 2=running, 3=paused, 4=error, 5=stopped.
	TaskStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: SubsystemTask,
			Name:      "status",
			Help:      "Current task status (0=idle, 1=connecting, 2=running, 3=paused, 4=error, 5=stopped)",
		},
		[]string{LabelTask},
	)

	// LagSeconds tracks time since the last capture per task.
	LagSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: SubsystemTask,
			Name:      "lag_seconds",
			Help:      "Seconds since the last captured page",
		},
		[]string{LabelTask},
	)

	// BufferLen tracks the number of buffered events per task.
	BufferLen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: SubsystemBuffer,
			Name:      "events",
			Help:      "Number of events currently buffered",
		},
		[]string{LabelTask},
	)

	// BufferDropped tracks events evicted by the drop-oldest policy since
	// task creation.
	BufferDropped = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: SubsystemBuffer,
			Name:      "dropped",
			Help:      "Events evicted from the buffer since task creation",
		},
		[]string{LabelTask},
	)

	// APIRequestsTotal counts the total number of API requests.
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemAPI,
			Name:      "requests_total",
			Help:      "Total number of API requests",
		},
		[]string{LabelEndpoint, LabelMethod, LabelStatus},
	)

	// APIRequestDuration tracks the duration of API requests.
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: SubsystemAPI,
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{LabelEndpoint, LabelMethod},
	)
)

// Register registers all metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EventsTotal,
			HandlerFailuresTotal,
			ErrorsTotal,
			UnsupportedTables,
			TaskStatus,
			LagSeconds,
			BufferLen,
			BufferDropped,
			APIRequestsTotal,
			APIRequestDuration,
			collectors.NewBuildInfoCollector(),
		)
	})
}

// RemoveTask drops every per-task series for the given task id, so
// removal deletes metrics along with the rest of the task state.
func RemoveTask(taskID string) {
	labels := prometheus.Labels{LabelTask: taskID}
	EventsTotal.DeletePartialMatch(labels)
	HandlerFailuresTotal.DeletePartialMatch(labels)
	ErrorsTotal.DeletePartialMatch(labels)
	UnsupportedTables.DeletePartialMatch(labels)
	TaskStatus.DeletePartialMatch(labels)
	LagSeconds.DeletePartialMatch(labels)
	BufferLen.DeletePartialMatch(labels)
	BufferDropped.DeletePartialMatch(labels)
}
