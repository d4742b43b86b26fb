// Package mysql provides the MySQL polling connector.
package mysql

import (
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/iannil/one-data-studio-sub007/internal/capture"
	"github.com/iannil/one-data-studio-sub007/internal/capture/connector"
	"github.com/iannil/one-data-studio-sub007/internal/capture/connector/sqlpoll"
)

// New creates a MySQL connector for the given source config.
func New(cfg capture.SourceConfig, logger *slog.Logger) (connector.Connector, error) {
	if cfg.SourceKind != capture.SourceMySQL {
		return nil, fmt.Errorf("%w: mysql connector got source kind %q",
			capture.ErrInvalidConfig, cfg.SourceKind)
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("%w: database is required for mysql sources",
			capture.ErrInvalidConfig)
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

func (dialect) Kind() capture.SourceKind { return capture.SourceMySQL }

func (dialect) Driver() string { return "mysql" }

func (dialect) Placeholder(int) string { return "?" }

func (dialect) QuoteIdent(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// SchemaName returns the database name: MySQL has no schema level below
// the database, and information_schema uses the database as table_schema.
func (dialect) SchemaName(cfg capture.SourceConfig) string { return cfg.Database }

func (dialect) ColumnsQuery() string {
	return `SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`
}
