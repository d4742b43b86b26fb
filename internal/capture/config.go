package capture

import (
	"fmt"
	"time"
)

// SnapshotMode controls how a task treats pre-existing rows on first poll.
type SnapshotMode string

const (
	// SnapshotInitial captures every existing row on the first poll by
	// starting from an empty cursor.
	SnapshotInitial SnapshotMode = "initial"
	// SnapshotNever seeds the cursor at the table's current maximum so
	// only changes made after task start are captured.
	SnapshotNever SnapshotMode = "never"
)

// SourceConfig holds the immutable per-task capture parameters. It is set
// at task creation; changing any field requires a new task.
type SourceConfig struct {
	// SourceKind selects the connector implementation.
	SourceKind SourceKind

	// DSN is the engine-specific connection string.
	DSN string

	// Database is the source database name.
	Database string

	// Schema is the schema to capture from (e.g., "public" for
	// PostgreSQL; ignored by engines without schemas).
	Schema string

	// Tables lists the tables to capture. Must be non-empty.
	Tables []string

	// BatchSize is the maximum rows fetched per table per tick. Pages
	// can exceed it when rows tie on the boundary cursor value.
	BatchSize int

	// PollInterval is the delay between capture ticks for this task.
	PollInterval time.Duration

	// SnapshotMode controls first-poll behavior.
	SnapshotMode SnapshotMode

	// IncludeDDL enables synthetic ddl events on schema changes.
	IncludeDDL bool

	// ConnectTimeout bounds connection establishment and health checks.
	ConnectTimeout time.Duration
}

// DefaultSourceConfig returns a SourceConfig with sensible defaults for
// the given source kind and DSN. Tables must still be set by the caller.
func DefaultSourceConfig(kind SourceKind, dsn string) SourceConfig {
	return SourceConfig{
		SourceKind:     kind,
		DSN:            dsn,
		Schema:         "public",
		BatchSize:      500,
		PollInterval:   time.Second,
		SnapshotMode:   SnapshotInitial,
		ConnectTimeout: 10 * time.Second,
	}
}

// Validate checks the configuration. All failures wrap ErrInvalidConfig.
func (c *SourceConfig) Validate() error {
	if !c.SourceKind.Valid() {
		return fmt.Errorf("%w: unsupported source kind %q", ErrInvalidConfig, c.SourceKind)
	}
	if c.DSN == "" {
		return fmt.Errorf("%w: DSN is required", ErrInvalidConfig)
	}
	if len(c.Tables) == 0 {
		return fmt.Errorf("%w: at least one table is required", ErrInvalidConfig)
	}
	for _, t := range c.Tables {
		if t == "" {
			return fmt.Errorf("%w: empty table name", ErrInvalidConfig)
		}
	}
	if c.PollInterval < time.Millisecond {
		return fmt.Errorf("%w: poll interval %v is below 1ms", ErrInvalidConfig, c.PollInterval)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be positive", ErrInvalidConfig)
	}
	switch c.SnapshotMode {
	case SnapshotInitial, SnapshotNever:
	default:
		return fmt.Errorf("%w: unknown snapshot mode %q", ErrInvalidConfig, c.SnapshotMode)
	}
	return nil
}
