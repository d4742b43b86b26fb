package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/iannil/one-data-studio-sub007/internal/capture"
	"github.com/iannil/one-data-studio-sub007/internal/capture/connector"
	"github.com/iannil/one-data-studio-sub007/internal/metrics"
)

// Config holds Manager configuration.
type Config struct {
	// BufferCapacity is the per-task event buffer capacity.
	BufferCapacity int

	// IdleInterval is the scheduler sleep when no task is schedulable.
	IdleInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BufferCapacity: capture.DefaultBufferCapacity,
		IdleInterval:   defaultIdleInterval,
	}
}

// Manager is the public facade of the capture engine: it creates, starts,
// pauses, stops, removes and inspects capture tasks, owns the registries
// and the scheduler's worker. All methods are safe for concurrent use.
type Manager struct {
	cfg       Config
	logger    *slog.Logger
	reg       *registry
	factories map[capture.SourceKind]connector.Factory
	sched     *scheduler

	workerUp bool
	closed   bool
}

// NewManager creates a Manager with the given connector factories.
func NewManager(cfg Config, factories map[capture.SourceKind]connector.Factory, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferCapacity <= 0 {
		cfg.BufferCapacity = capture.DefaultBufferCapacity
	}
	reg := newRegistry()
	return &Manager{
		cfg:       cfg,
		logger:    logger.With("component", "task-manager"),
		reg:       reg,
		factories: factories,
		sched:     newScheduler(reg, cfg.IdleInterval, logger),
	}
}

// CreateTask validates the configuration and registers a new task in the
// idle status. Nothing is mutated when validation fails.
func (m *Manager) CreateTask(id string, cfg capture.SourceConfig) error {
	if id == "" {
		return fmt.Errorf("%w: empty task id", capture.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	factory, ok := m.factories[cfg.SourceKind]
	if !ok {
		return fmt.Errorf("%w: no connector registered for source kind %q",
			capture.ErrInvalidConfig, cfg.SourceKind)
	}
	conn, err := factory(cfg)
	if err != nil {
		return err
	}

	m.reg.mu.Lock()
	defer m.reg.mu.Unlock()
	if m.closed {
		return capture.ErrManagerClosed
	}
	if _, exists := m.reg.tasks[id]; exists {
		return fmt.Errorf("%w: %s", capture.ErrDuplicateTask, id)
	}
	m.reg.tasks[id] = &taskEntry{
		state:   capture.NewTaskState(id, cfg),
		conn:    conn,
		metrics: capture.NewMetricsRecorder(id),
		buffer:  capture.NewEventBuffer(m.cfg.BufferCapacity),
	}
	metrics.TaskStatus.WithLabelValues(id).Set(float64(capture.StatusIdle))

	m.logger.Info("task created",
		"task", id,
		"source_kind", string(cfg.SourceKind),
		"tables", len(cfg.Tables),
	)
	return nil
}

// StartTask moves an idle, stopped or errored task to connecting and
// lazily starts the shared scheduler worker. Starting a task that is
// already connecting or running is a no-op; a paused task stays paused
// (use ResumeTask).
func (m *Manager) StartTask(id string) error {
	m.reg.mu.Lock()
	e, ok := m.reg.tasks[id]
	if !ok {
		m.reg.mu.Unlock()
		return fmt.Errorf("%w: %s", capture.ErrTaskNotFound, id)
	}
	switch e.state.Status {
	case capture.StatusConnecting, capture.StatusRunning, capture.StatusPaused:
		m.reg.mu.Unlock()
		return nil
	}
	e.state.Status = capture.StatusConnecting
	e.state.LastError = ""
	metrics.TaskStatus.WithLabelValues(id).Set(float64(capture.StatusConnecting))
	startWorker := !m.workerUp && !m.closed
	if startWorker {
		m.workerUp = true
	}
	m.reg.mu.Unlock()

	if startWorker {
		m.sched.start()
	}
	m.logger.Info("task starting", "task", id)
	return nil
}

// PauseTask moves a running task to paused. Cursors are kept and the
// scheduler skips the task until ResumeTask.
func (m *Manager) PauseTask(id string) error {
	return m.transition(id, capture.StatusPaused, "pause")
}

// ResumeTask moves a paused task back to running.
func (m *Manager) ResumeTask(id string) error {
	return m.transition(id, capture.StatusRunning, "resume")
}

// StopTask stops a task gracefully: the status flips immediately, the
// worker observes it at the next snapshot, and an in-flight fetch for
// the task completes with its result discarded.
func (m *Manager) StopTask(id string) error {
	return m.transition(id, capture.StatusStopped, "stop")
}

func (m *Manager) transition(id string, target capture.Status, verb string) error {
	m.reg.mu.Lock()
	e, ok := m.reg.tasks[id]
	if !ok {
		m.reg.mu.Unlock()
		return fmt.Errorf("%w: %s", capture.ErrTaskNotFound, id)
	}
	if e.state.Status == target {
		m.reg.mu.Unlock()
		return nil
	}
	if !e.state.Status.CanTransition(target) {
		from := e.state.Status
		m.reg.mu.Unlock()
		return fmt.Errorf("%w: cannot %s task %s in status %s",
			capture.ErrInvalidTransition, verb, id, from)
	}
	e.state.Status = target
	metrics.TaskStatus.WithLabelValues(id).Set(float64(target))
	m.reg.mu.Unlock()

	m.logger.Info("task "+target.String(), "task", id)
	return nil
}

// RemoveTask stops the task if needed and deletes its state, metrics and
// buffer contents atomically: after the registry lock is released no
// partial task state remains visible.
func (m *Manager) RemoveTask(ctx context.Context, id string) error {
	m.reg.mu.Lock()
	e, ok := m.reg.tasks[id]
	if !ok {
		m.reg.mu.Unlock()
		return fmt.Errorf("%w: %s", capture.ErrTaskNotFound, id)
	}
	delete(m.reg.tasks, id)
	m.reg.mu.Unlock()

	metrics.RemoveTask(id)

	if err := e.conn.Disconnect(ctx); err != nil {
		m.logger.Warn("disconnect on remove failed", "task", id, "error", err)
	}
	m.logger.Info("task removed", "task", id)
	return nil
}

// RegisterHandler appends a consumer callback for the task. Handlers run
// synchronously in registration order for every captured event.
func (m *Manager) RegisterHandler(id string, h capture.Handler) error {
	m.reg.mu.Lock()
	defer m.reg.mu.Unlock()
	e, ok := m.reg.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", capture.ErrTaskNotFound, id)
	}
	e.handlers = append(e.handlers, h)
	return nil
}

// GetTask returns a copy of the task's state.
func (m *Manager) GetTask(id string) (capture.TaskState, error) {
	m.reg.mu.Lock()
	defer m.reg.mu.Unlock()
	e, ok := m.reg.tasks[id]
	if !ok {
		return capture.TaskState{}, fmt.Errorf("%w: %s", capture.ErrTaskNotFound, id)
	}
	return e.state.Snapshot(), nil
}

// ListTasks returns copies of every task's state, ordered by task id.
func (m *Manager) ListTasks() []capture.TaskState {
	m.reg.mu.Lock()
	defer m.reg.mu.Unlock()
	out := make([]capture.TaskState, 0, len(m.reg.tasks))
	for _, e := range m.reg.tasks {
		out = append(out, e.state.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out
}

// GetMetrics returns a snapshot of the task's capture metrics.
func (m *Manager) GetMetrics(id string) (capture.TaskMetrics, error) {
	m.reg.mu.Lock()
	defer m.reg.mu.Unlock()
	e, ok := m.reg.tasks[id]
	if !ok {
		return capture.TaskMetrics{}, fmt.Errorf("%w: %s", capture.ErrTaskNotFound, id)
	}
	return e.metrics.Snapshot(time.Now()), nil
}

// GetAllMetrics returns metric snapshots for every task, keyed by id.
func (m *Manager) GetAllMetrics() map[string]capture.TaskMetrics {
	m.reg.mu.Lock()
	defer m.reg.mu.Unlock()
	now := time.Now()
	out := make(map[string]capture.TaskMetrics, len(m.reg.tasks))
	for id, e := range m.reg.tasks {
		out[id] = e.metrics.Snapshot(now)
	}
	return out
}

// DrainBufferedEvents returns up to limit buffered events for the task,
// oldest first, removing them when clear is true.
func (m *Manager) DrainBufferedEvents(id string, limit int, clear bool) ([]capture.Event, error) {
	e, ok := m.reg.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", capture.ErrTaskNotFound, id)
	}
	return e.buffer.Drain(limit, clear), nil
}

// Close stops the scheduler worker, disconnects every task's connector
// and marks the manager closed. Tasks keep their final status.
func (m *Manager) Close(ctx context.Context) error {
	m.reg.mu.Lock()
	if m.closed {
		m.reg.mu.Unlock()
		return nil
	}
	m.closed = true
	stopWorker := m.workerUp
	entries := make([]*taskEntry, 0, len(m.reg.tasks))
	for _, e := range m.reg.tasks {
		entries = append(entries, e)
	}
	m.reg.mu.Unlock()

	if stopWorker {
		m.sched.stop()
	}
	for _, e := range entries {
		if err := e.conn.Disconnect(ctx); err != nil {
			m.logger.Warn("disconnect on close failed", "task", e.state.TaskID, "error", err)
		}
	}
	m.logger.Info("task manager closed")
	return nil
}
