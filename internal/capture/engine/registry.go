// Package engine runs capture tasks: it owns the task registry, the
// shared scheduler worker and the Manager facade.
package engine

import (
	"sync"
	"time"

	"github.com/iannil/one-data-studio-sub007/internal/capture"
	"github.com/iannil/one-data-studio-sub007/internal/capture/connector"
	"github.com/iannil/one-data-studio-sub007/internal/metrics"
)

// taskEntry bundles everything the engine keeps per task: state, the
// bound connector, per-task metrics, the event buffer and the ordered
// handler list.
type taskEntry struct {
	state    *capture.TaskState
	conn     connector.Connector
	metrics  *capture.MetricsRecorder
	buffer   *capture.EventBuffer
	handlers []capture.Handler
}

// registry is the explicit task registry owned by the Manager and passed
// to the scheduler at construction. Its mutex is the engine's coarse
// lock, held for registry edits and the per-tick snapshot only, never
// across a connector call, so a slow fetch cannot block administrative
// operations.
type registry struct {
	mu    sync.Mutex
	tasks map[string]*taskEntry
}

func newRegistry() *registry {
	return &registry{tasks: make(map[string]*taskEntry)}
}

func (r *registry) get(id string) (*taskEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tasks[id]
	return e, ok
}

// status returns the task's current status, or false for unknown tasks.
func (r *registry) status(id string) (capture.Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tasks[id]
	if !ok {
		return 0, false
	}
	return e.state.Status, true
}

// setStatus applies a validated status transition and keeps the status
// gauge in sync. It reports whether the transition was applied.
func (r *registry) setStatus(id string, target capture.Status, lastErr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tasks[id]
	if !ok {
		return false
	}
	if !e.state.Status.CanTransition(target) {
		return false
	}
	e.state.Status = target
	e.state.LastError = lastErr
	if lastErr != "" {
		e.metrics.SetLastError(lastErr)
	}
	metrics.TaskStatus.WithLabelValues(id).Set(float64(target))
	return true
}

// markUnsupported flags a table as permanently unsupported for the task.
func (r *registry) markUnsupported(id, table string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tasks[id]
	if !ok || e.state.Unsupported[table] {
		return
	}
	e.state.Unsupported[table] = true
	n := e.metrics.MarkUnsupported()
	metrics.UnsupportedTables.WithLabelValues(id).Set(float64(n))
}

// tickTask is the scheduler's per-tick view of one task, copied out under
// the registry lock so no lock is held across connector calls.
type tickTask struct {
	id       string
	status   capture.Status
	conn     connector.Connector
	config   capture.SourceConfig
	cursors  map[string]string
	tables   []string
	handlers []capture.Handler
	metrics  *capture.MetricsRecorder
	buffer   *capture.EventBuffer
}

// snapshot returns the tasks the scheduler should look at this tick
// (connecting and running) and the minimum poll interval across them.
func (r *registry) snapshot() ([]tickTask, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		out []tickTask
		min time.Duration
	)
	for id, e := range r.tasks {
		st := e.state.Status
		if st != capture.StatusConnecting && st != capture.StatusRunning && st != capture.StatusError {
			continue
		}
		cp := e.state.Snapshot()
		handlers := make([]capture.Handler, len(e.handlers))
		copy(handlers, e.handlers)
		out = append(out, tickTask{
			id:       id,
			status:   st,
			conn:     e.conn,
			config:   cp.Config,
			cursors:  cp.Cursors,
			tables:   cp.SupportedTables(),
			handlers: handlers,
			metrics:  e.metrics,
			buffer:   e.buffer,
		})
		if min == 0 || e.state.Config.PollInterval < min {
			min = e.state.Config.PollInterval
		}
	}
	return out, min
}

// advanceCursor commits a table cursor after a fully processed page. The
// commit is dropped if the task stopped or was removed in the meantime,
// so a pause/stop never observes a partial page.
func (r *registry) advanceCursor(id, table, token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tasks[id]
	if !ok || e.state.Status != capture.StatusRunning {
		return false
	}
	e.state.Cursors[table] = token
	return true
}

// seedCursor records the initial cursor for a table that skips its
// snapshot. Unlike advanceCursor it also stores empty tokens, which mark
// an empty table as seeded.
func (r *registry) seedCursor(id, table, token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tasks[id]
	if !ok || e.state.Status != capture.StatusRunning {
		return false
	}
	if _, seeded := e.state.Cursors[table]; seeded {
		return true
	}
	e.state.Cursors[table] = token
	return true
}
