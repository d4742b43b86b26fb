package models

import (
	"time"

	"github.com/iannil/one-data-studio-sub007/internal/capture"
)

// CreateTaskRequest is the request body for creating a capture task.
type CreateTaskRequest struct {
	// TaskID is the caller-chosen unique task identifier.
	TaskID string `json:"task_id" binding:"required"`

	// SourceKind selects the connector implementation (postgres, mysql).
	SourceKind string `json:"source_kind" binding:"required"`

	// DSN is the engine-specific connection string.
	DSN string `json:"dsn" binding:"required"`

	// Database is the source database name.
	Database string `json:"database"`

	// Schema is the schema to capture from.
	Schema string `json:"schema"`

	// Tables lists the tables to capture.
	Tables []string `json:"tables" binding:"required"`

	// BatchSize is the maximum rows fetched per table per tick.
	BatchSize int `json:"batch_size"`

	// PollIntervalMs is the poll interval in milliseconds.
	PollIntervalMs int `json:"poll_interval_ms"`

	// SnapshotMode controls first-poll behavior (initial, never).
	SnapshotMode string `json:"snapshot_mode"`

	// IncludeDDL enables synthetic ddl events on schema changes.
	IncludeDDL bool `json:"include_ddl"`
}

// SourceConfig converts the request into an engine source config,
// filling defaults for unset fields.
func (r *CreateTaskRequest) SourceConfig(defaults capture.SourceConfig) capture.SourceConfig {
	cfg := defaults
	cfg.SourceKind = capture.SourceKind(r.SourceKind)
	cfg.DSN = r.DSN
	cfg.Database = r.Database
	cfg.Tables = r.Tables
	cfg.IncludeDDL = r.IncludeDDL
	if r.Schema != "" {
		cfg.Schema = r.Schema
	}
	if r.BatchSize > 0 {
		cfg.BatchSize = r.BatchSize
	}
	if r.PollIntervalMs > 0 {
		cfg.PollInterval = time.Duration(r.PollIntervalMs) * time.Millisecond
	}
	if r.SnapshotMode != "" {
		cfg.SnapshotMode = capture.SnapshotMode(r.SnapshotMode)
	}
	return cfg
}

// TaskResponse describes one capture task.
type TaskResponse struct {
	TaskID      string            `json:"task_id"`
	SourceKind  string            `json:"source_kind"`
	Database    string            `json:"database"`
	Schema      string            `json:"schema"`
	Tables      []string          `json:"tables"`
	Status      string            `json:"status"`
	Cursors     map[string]string `json:"cursors"`
	Unsupported []string          `json:"unsupported_tables,omitempty"`
	LastError   string            `json:"last_error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewTaskResponse builds a TaskResponse from a task state snapshot.
func NewTaskResponse(st capture.TaskState) TaskResponse {
	var unsupported []string
	for _, t := range st.Config.Tables {
		if st.Unsupported[t] {
			unsupported = append(unsupported, t)
		}
	}
	return TaskResponse{
		TaskID:      st.TaskID,
		SourceKind:  string(st.Config.SourceKind),
		Database:    st.Config.Database,
		Schema:      st.Config.Schema,
		Tables:      st.Config.Tables,
		Status:      st.Status.String(),
		Cursors:     st.Cursors,
		Unsupported: unsupported,
		LastError:   st.LastError,
		CreatedAt:   st.CreatedAt,
	}
}

// DrainResponse wraps a drained batch of buffered events.
type DrainResponse struct {
	TaskID string          `json:"task_id"`
	Count  int             `json:"count"`
	Events []capture.Event `json:"events"`
}

// VersionResponse contains version information.
type VersionResponse struct {
	Version    string `json:"version"`
	APIVersion string `json:"api_version"`
}

// HealthResponse represents the overall health status.
type HealthResponse struct {
	Status    string    `json:"status"`
	Tasks     int       `json:"tasks"`
	Timestamp time.Time `json:"timestamp"`
}
