// Package sqlpoll implements polling-based change capture over database/sql.
// Both reference connectors (postgres, mysql) are thin dialects over the
// shared Poller: they differ only in driver, identifier quoting, parameter
// placeholders and information_schema access.
package sqlpoll

import (
	"github.com/iannil/one-data-studio-sub007/internal/capture"
)

// Dialect abstracts the engine-specific SQL surface the Poller needs.
type Dialect interface {
	// Kind identifies the engine.
	Kind() capture.SourceKind

	// Driver is the database/sql driver name.
	Driver() string

	// Placeholder returns the parameter placeholder for 1-based index i.
	Placeholder(i int) string

	// QuoteIdent quotes an identifier.
	QuoteIdent(ident string) string

	// SchemaName returns the information_schema table_schema value for
	// the given source config. PostgreSQL uses the schema; MySQL has no
	// schemas below the database and uses the database name.
	SchemaName(cfg capture.SourceConfig) string

	// ColumnsQuery returns the query listing (column_name, data_type)
	// for one table, with two parameters: schema and table, ordered by
	// ordinal position.
	ColumnsQuery() string
}
