// Package postgres provides the PostgreSQL polling connector.
package postgres

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver

	"github.com/iannil/one-data-studio-sub007/internal/capture"
	"github.com/iannil/one-data-studio-sub007/internal/capture/connector"
	"github.com/iannil/one-data-studio-sub007/internal/capture/connector/sqlpoll"
)

// New creates a PostgreSQL connector for the given source config.
func New(cfg capture.SourceConfig, logger *slog.Logger) (connector.Connector, error) {
	if cfg.SourceKind != capture.SourcePostgres {
		return nil, fmt.Errorf("%w: postgres connector got source kind %q",
			capture.ErrInvalidConfig, cfg.SourceKind)
	}
	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	return sqlpoll.New(cfg, dialect{}, logger), nil
}

// Factory returns a connector.Factory bound to the given logger.
func Factory(logger *slog.Logger) connector.Factory {
	return func(cfg capture.SourceConfig) (connector.Connector, error) {
		return New(cfg, logger)
	}
}

type dialect struct{}

func (dialect) Kind() capture.SourceKind { return capture.SourcePostgres }

func (dialect) Driver() string { return "pgx" }

func (dialect) Placeholder(i int) string { return "$" + strconv.Itoa(i) }

func (dialect) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (dialect) SchemaName(cfg capture.SourceConfig) string { return cfg.Schema }

func (dialect) ColumnsQuery() string {
	return `SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`
}
