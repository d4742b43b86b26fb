// Package connector defines the source-connector contract implemented once
// per relational engine. Connectors produce incremental changes for one
// table since a cursor; retry policy belongs to the scheduler, never to the
// connector.
package connector

import (
	"context"

	"github.com/iannil/one-data-studio-sub007/internal/capture"
)

// Connector captures incremental changes from one relational source. The
// two reference implementations (postgres, mysql) are built on incremental
// polling over a natural cursor column; log-based binlog/WAL streaming is a
// documented upgrade, not part of this contract.
//
// Implementations must honor a network timeout on every call so a stalled
// source cannot wedge the scheduler tick.
type Connector interface {
	// Connect opens a pooled connection to the source. It never retries
	// internally; failures wrap ErrConnectionFailed.
	Connect(ctx context.Context) error

	// Disconnect releases the connection pool.
	Disconnect(ctx context.Context) error

	// Healthy verifies the connection is usable.
	Healthy(ctx context.Context) error

	// FetchChanges returns up to limit rows of table whose cursor value
	// is strictly greater than since, ascending by cursor. Every row
	// sharing the page's maximum cursor value is included, even past
	// limit, so the strictly-greater cursor advance never skips a row
	// tied on the boundary. An empty since means no lower bound.
	FetchChanges(ctx context.Context, table, since string, limit int) ([]capture.Event, error)

	// CommitPage acknowledges that the page most recently returned by
	// FetchChanges for table was fully processed. Connectors use it to
	// retire bookkeeping that must survive redelivery, such as a
	// pending schema fingerprint behind a synthetic ddl event; until
	// the commit such events are re-emitted on every fetch.
	CommitPage(ctx context.Context, table string) error

	// NaturalCursorField returns the auto-discovered monotonic cursor
	// column for table, caching the result. It returns
	// ErrNoCursorColumn when the table has none.
	NaturalCursorField(ctx context.Context, table string) (string, error)

	// CurrentCursor returns the table's current maximum cursor value,
	// used to seed a task that skips the initial snapshot. An empty
	// string means the table is empty.
	CurrentCursor(ctx context.Context, table string) (string, error)

	// Kind identifies the source engine.
	Kind() capture.SourceKind
}

// Factory builds a connector for a validated source configuration. The
// engine is polymorphic over this; adding a source kind means registering
// a factory, not branching on type inside the scheduler.
type Factory func(cfg capture.SourceConfig) (Connector, error)
