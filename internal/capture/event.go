// Package capture provides the change-capture task engine: typed change
// events, task lifecycle, the capture scheduling loop, the bounded event
// buffer and the handler pipeline.
package capture

import (
	"time"
)

// EventKind represents the kind of row-level change carried by an Event.
type EventKind string

const (
	// KindInsert represents a newly inserted row.
	KindInsert EventKind = "insert"
	// KindUpdate represents an updated row.
	KindUpdate EventKind = "update"
	// KindDelete represents a deleted row.
	KindDelete EventKind = "delete"
	// KindDDL represents a schema change on the captured table.
	KindDDL EventKind = "ddl"
)

// Kinds lists every event kind, in a stable order. Used for per-kind
// metric initialization.
var Kinds = []EventKind{KindInsert, KindUpdate, KindDelete, KindDDL}

// SourceKind identifies the relational engine a change was captured from.
type SourceKind string

const (
	// SourcePostgres is the PostgreSQL polling connector.
	SourcePostgres SourceKind = "postgres"
	// SourceMySQL is the MySQL polling connector.
	SourceMySQL SourceKind = "mysql"
)

// Event is an immutable record of one captured change.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Kind is the kind of change (insert, update, delete, ddl).
	Kind EventKind `json:"kind"`

	// SourceKind identifies the source engine.
	SourceKind SourceKind `json:"source_kind"`

	// Database is the source database name.
	Database string `json:"database"`

	// Schema is the database schema name (e.g., "public").
	Schema string `json:"schema"`

	// Table is the table name.
	Table string `json:"table"`

	// CapturedAt is when the engine captured the change.
	CapturedAt time.Time `json:"captured_at"`

	// CursorToken is the watermark value this event was captured at.
	// Non-decreasing per table under the connector's ordering.
	CursorToken string `json:"cursor_token"`

	// Before contains the row data before the change, when available.
	Before map[string]any `json:"before,omitempty"`

	// After contains the row data after the change, when available.
	After map[string]any `json:"after,omitempty"`

	// TransactionID is the source transaction identifier, when available.
	TransactionID string `json:"transaction_id,omitempty"`

	// SourcePosition is an engine-specific position token.
	SourcePosition string `json:"source_position,omitempty"`

	// DeliveryAttempts counts how many times this event has been handed
	// to the handler pipeline. At-least-once delivery means it can
	// exceed one after a failure/restart.
	DeliveryAttempts int `json:"delivery_attempts"`

	// LastError holds the most recent handler failure, if any.
	LastError string `json:"last_error,omitempty"`
}

// FullyQualifiedTable returns the fully qualified table name (schema.table).
func (e *Event) FullyQualifiedTable() string {
	return e.Schema + "." + e.Table
}

// HasBefore returns true if the event carries a before image.
func (e *Event) HasBefore() bool {
	return len(e.Before) > 0
}

// HasAfter returns true if the event carries an after image.
func (e *Event) HasAfter() bool {
	return len(e.After) > 0
}

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	switch k {
	case KindInsert, KindUpdate, KindDelete, KindDDL:
		return true
	}
	return false
}

// Valid reports whether k is a supported source kind.
func (k SourceKind) Valid() bool {
	switch k {
	case SourcePostgres, SourceMySQL:
		return true
	}
	return false
}
