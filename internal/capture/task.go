package capture

import (
	"time"
)

// Status represents the lifecycle state of a capture task.
type Status int

const (
	// StatusIdle indicates the task is created but never started.
	StatusIdle Status = iota
	// StatusConnecting indicates the scheduler is establishing the
	// task's source connection.
	StatusConnecting
	// StatusRunning indicates the task is actively polled.
	StatusRunning
	// StatusPaused indicates the task keeps its cursors but is skipped
	// by the scheduler.
	StatusPaused
	// StatusError indicates the last connector call failed; the task is
	// retried on the next tick.
	StatusError
	// StatusStopped indicates the task was stopped explicitly.
	StatusStopped
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusError:
		return "error"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// validTransitions defines the status transitions lifecycle calls and the
// scheduler may perform.
var validTransitions = map[Status][]Status{
	StatusIdle:       {StatusConnecting},
	StatusConnecting: {StatusRunning, StatusError, StatusStopped},
	StatusRunning:    {StatusPaused, StatusError, StatusStopped},
	StatusPaused:     {StatusRunning, StatusStopped},
	StatusError:      {StatusConnecting, StatusRunning, StatusStopped},
	StatusStopped:    {StatusConnecting},
}

// CanTransition reports whether moving from s to target is allowed.
func (s Status) CanTransition(target Status) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// TaskState is the mutable state of one capture task. It is owned by the
// task registry; every field is read and written under the registry lock.
type TaskState struct {
	// TaskID is the caller-chosen unique task identifier.
	TaskID string

	// Config holds the immutable capture parameters.
	Config SourceConfig

	// Status is the current lifecycle state.
	Status Status

	// Cursors maps table name to the last fully processed cursor token.
	// An absent entry means the table has not been polled yet.
	Cursors map[string]string

	// Unsupported marks tables with no usable natural cursor column.
	// They are skipped permanently; discovery is not retried.
	Unsupported map[string]bool

	// LastError is the most recent connector failure, empty when healthy.
	LastError string

	// CreatedAt is when the task was created.
	CreatedAt time.Time
}

// NewTaskState creates the state for a freshly created task.
func NewTaskState(id string, cfg SourceConfig) *TaskState {
	return &TaskState{
		TaskID:      id,
		Config:      cfg,
		Status:      StatusIdle,
		Cursors:     make(map[string]string),
		Unsupported: make(map[string]bool),
		CreatedAt:   time.Now(),
	}
}

// SupportedTables returns the configured tables not marked unsupported,
// in configuration order.
func (t *TaskState) SupportedTables() []string {
	out := make([]string, 0, len(t.Config.Tables))
	for _, tbl := range t.Config.Tables {
		if !t.Unsupported[tbl] {
			out = append(out, tbl)
		}
	}
	return out
}

// Snapshot returns a copy safe to use outside the registry lock.
func (t *TaskState) Snapshot() TaskState {
	cp := *t
	cp.Cursors = make(map[string]string, len(t.Cursors))
	for k, v := range t.Cursors {
		cp.Cursors[k] = v
	}
	cp.Unsupported = make(map[string]bool, len(t.Unsupported))
	for k, v := range t.Unsupported {
		cp.Unsupported[k] = v
	}
	return cp
}
