package postgres

import (
	"errors"
	"testing"

	"github.com/iannil/one-data-studio-sub007/internal/capture"
)

func TestNew_RejectsWrongKind(t *testing.T) {
	cfg := capture.DefaultSourceConfig(capture.SourceMySQL, "postgres://localhost/app")
	cfg.Tables = []string{"orders"}

	if _, err := New(cfg, nil); !errors.Is(err, capture.ErrInvalidConfig) {
		t.Errorf("New() error = %v, want wrapped ErrInvalidConfig", err)
	}
}

func TestNew_DefaultsSchema(t *testing.T) {
	cfg := capture.DefaultSourceConfig(capture.SourcePostgres, "postgres://localhost/app")
	cfg.Schema = ""
	cfg.Tables = []string{"orders"}

	conn, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if conn.Kind() != capture.SourcePostgres {
		t.Errorf("Kind() = %q, want %q", conn.Kind(), capture.SourcePostgres)
	}
}

func TestDialect(t *testing.T) {
	d := dialect{}

	if got := d.Placeholder(2); got != "$2" {
		t.Errorf("Placeholder(2) = %q, want %q", got, "$2")
	}
	if got := d.QuoteIdent(`or"ders`); got != `"or""ders"` {
		t.Errorf("QuoteIdent() = %q, want %q", got, `"or""ders"`)
	}
	if got := d.Driver(); got != "pgx" {
		t.Errorf("Driver() = %q, want %q", got, "pgx")
	}

	cfg := capture.SourceConfig{Schema: "sales"}
	if got := d.SchemaName(cfg); got != "sales" {
		t.Errorf("SchemaName() = %q, want %q", got, "sales")
	}
}
