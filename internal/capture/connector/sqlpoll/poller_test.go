package sqlpoll

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/iannil/one-data-studio-sub007/internal/capture"
	"github.com/iannil/one-data-studio-sub007/internal/capture/connector"
)

// The stub driver serves scripted tables through database/sql so Poller
// tests exercise the real query, scan and tie-refetch paths without a
// live database. Sources are registered per test, keyed by DSN.

const (
	stubDriverName   = "sqlpoll-stub"
	stubColumnsQuery = "SELECT column_name, data_type FROM stub_columns"
)

var (
	stubRegister sync.Once
	stubMu       sync.Mutex
	stubSources  = make(map[string]*stubSource)
)

// stubSource is one scripted table. Rows are kept in ascending cursor
// order; the stub applies the cursor predicates the Poller's SQL asks for.
type stubSource struct {
	mu      sync.Mutex
	columns []column
	cursor  string // column rows are ordered and filtered by
	rows    []map[string]driver.Value
	queries []string
}

func (s *stubSource) loggedQueries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.queries))
	copy(out, s.queries)
	return out
}

func (s *stubSource) setColumns(cols []column) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.columns = cols
}

func (s *stubSource) token(r map[string]driver.Value) string {
	return cursorToken(r[s.cursor])
}

type stubDriver struct{}

func (stubDriver) Open(dsn string) (driver.Conn, error) {
	stubMu.Lock()
	defer stubMu.Unlock()
	src, ok := stubSources[dsn]
	if !ok {
		return nil, fmt.Errorf("unknown stub source %q", dsn)
	}
	return &stubConn{src: src}, nil
}

type stubConn struct {
	src *stubSource
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepared statements not supported")
}

func (c *stubConn) Close() error { return nil }

func (c *stubConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions not supported")
}

func (c *stubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	s := c.src
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)

	switch {
	case query == stubColumnsQuery:
		data := make([][]driver.Value, 0, len(s.columns))
		for _, col := range s.columns {
			data = append(data, []driver.Value{col.name, col.dataType})
		}
		return &stubRows{cols: []string{"column_name", "data_type"}, data: data}, nil

	case strings.HasPrefix(query, "SELECT MAX"):
		var max driver.Value
		if n := len(s.rows); n > 0 {
			max = s.rows[n-1][s.cursor]
		}
		return &stubRows{cols: []string{"max"}, data: [][]driver.Value{{max}}}, nil

	case strings.Contains(query, " = ?"):
		boundary, _ := args[0].Value.(string)
		return s.selectRows(func(r map[string]driver.Value) bool {
			return s.token(r) == boundary
		}, 0), nil

	case strings.Contains(query, " > ?"):
		since, _ := args[0].Value.(string)
		return s.selectRows(func(r map[string]driver.Value) bool {
			return s.token(r) > since
		}, parseLimit(query)), nil

	case strings.Contains(query, "IS NOT NULL"):
		return s.selectRows(func(r map[string]driver.Value) bool {
			return r[s.cursor] != nil
		}, parseLimit(query)), nil
	}
	return nil, fmt.Errorf("unexpected query %q", query)
}

// selectRows materializes matching rows in table order. Caller holds s.mu.
func (s *stubSource) selectRows(match func(map[string]driver.Value) bool, limit int) *stubRows {
	cols := make([]string, 0, len(s.columns))
	for _, c := range s.columns {
		cols = append(cols, c.name)
	}
	var data [][]driver.Value
	for _, r := range s.rows {
		if !match(r) {
			continue
		}
		vals := make([]driver.Value, len(cols))
		for i, name := range cols {
			vals[i] = r[name]
		}
		data = append(data, vals)
		if limit > 0 && len(data) == limit {
			break
		}
	}
	return &stubRows{cols: cols, data: data}
}

func parseLimit(query string) int {
	i := strings.LastIndex(query, "LIMIT ")
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(query[i+len("LIMIT "):]))
	if err != nil {
		return 0
	}
	return n
}

type stubRows struct {
	cols []string
	data [][]driver.Value
	i    int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.i >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.i])
	r.i++
	return nil
}

// stubDialect quotes nothing and uses ? placeholders, keeping the
// generated SQL trivially matchable by the stub connection.
type stubDialect struct{}

func (stubDialect) Kind() capture.SourceKind                { return capture.SourcePostgres }
func (stubDialect) Driver() string                          { return stubDriverName }
func (stubDialect) Placeholder(int) string                  { return "?" }
func (stubDialect) QuoteIdent(ident string) string          { return ident }
func (stubDialect) SchemaName(capture.SourceConfig) string  { return "" }
func (stubDialect) ColumnsQuery() string                    { return stubColumnsQuery }

func newStubPoller(t *testing.T, src *stubSource, includeDDL bool) *Poller {
	t.Helper()

	stubRegister.Do(func() { sql.Register(stubDriverName, stubDriver{}) })

	dsn := t.Name()
	stubMu.Lock()
	stubSources[dsn] = src
	stubMu.Unlock()
	t.Cleanup(func() {
		stubMu.Lock()
		delete(stubSources, dsn)
		stubMu.Unlock()
	})

	cfg := capture.SourceConfig{
		SourceKind: capture.SourcePostgres,
		DSN:        dsn,
		Database:   "app",
		Tables:     []string{"orders"},
		BatchSize:  100,
		IncludeDDL: includeDDL,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := New(cfg, stubDialect{}, logger)
	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { p.Disconnect(context.Background()) })
	return p
}

// ordersSource builds an orders table with one row per token, ascending.
// A "" token stores NULL in the cursor column.
func ordersSource(tokens ...string) *stubSource {
	s := &stubSource{
		columns: []column{
			{"id", "bigint"},
			{"updated_at", "timestamp"},
		},
		cursor: "updated_at",
	}
	for i, tok := range tokens {
		var v driver.Value
		if tok != "" {
			v = tok
		}
		s.rows = append(s.rows, map[string]driver.Value{
			"id":         int64(i + 1),
			"updated_at": v,
		})
	}
	return s
}

func eventTokens(events []capture.Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.CursorToken
	}
	return out
}

func tokensEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPoller_FetchChangesBoundaryTies(t *testing.T) {
	src := ordersSource("01", "02", "02", "03", "04")
	p := newStubPoller(t, src, false)
	ctx := context.Background()

	// A full page ending on "02" must pull in every row tied on "02".
	events, err := p.FetchChanges(ctx, "orders", "", 2)
	if err != nil {
		t.Fatalf("FetchChanges() error = %v", err)
	}
	if got, want := eventTokens(events), []string{"01", "02", "02"}; !tokensEqual(got, want) {
		t.Fatalf("first page tokens = %v, want %v", got, want)
	}

	// Advancing strictly past "02" picks up exactly the rest.
	events, err = p.FetchChanges(ctx, "orders", "02", 2)
	if err != nil {
		t.Fatalf("FetchChanges() error = %v", err)
	}
	if got, want := eventTokens(events), []string{"03", "04"}; !tokensEqual(got, want) {
		t.Fatalf("second page tokens = %v, want %v", got, want)
	}

	events, err = p.FetchChanges(ctx, "orders", "04", 2)
	if err != nil {
		t.Fatalf("FetchChanges() error = %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("drained table returned %d events, want 0", len(events))
	}
}

func TestPoller_FetchChangesAllRowsTie(t *testing.T) {
	src := ordersSource("05", "05", "05")
	p := newStubPoller(t, src, false)

	events, err := p.FetchChanges(context.Background(), "orders", "", 2)
	if err != nil {
		t.Fatalf("FetchChanges() error = %v", err)
	}
	if got, want := eventTokens(events), []string{"05", "05", "05"}; !tokensEqual(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestPoller_FetchChangesPartialPageSkipsTieQuery(t *testing.T) {
	src := ordersSource("01", "02")
	p := newStubPoller(t, src, false)

	events, err := p.FetchChanges(context.Background(), "orders", "", 5)
	if err != nil {
		t.Fatalf("FetchChanges() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for _, q := range src.loggedQueries() {
		if strings.Contains(q, " = ?") {
			t.Errorf("partial page issued a tie re-fetch: %q", q)
		}
	}
}

func TestPoller_FetchChangesMixedCaseCursorColumn(t *testing.T) {
	src := &stubSource{
		columns: []column{
			{"ID", "bigint"},
			{"Updated_At", "TIMESTAMP"},
		},
		cursor: "Updated_At",
		rows: []map[string]driver.Value{
			{"ID": int64(1), "Updated_At": "01"},
			{"ID": int64(2), "Updated_At": "02"},
		},
	}
	p := newStubPoller(t, src, false)
	ctx := context.Background()

	col, err := p.NaturalCursorField(ctx, "orders")
	if err != nil {
		t.Fatalf("NaturalCursorField() error = %v", err)
	}
	if col != "Updated_At" {
		t.Fatalf("NaturalCursorField() = %q, want %q", col, "Updated_At")
	}

	events, err := p.FetchChanges(ctx, "orders", "", 10)
	if err != nil {
		t.Fatalf("FetchChanges() error = %v", err)
	}
	if got, want := eventTokens(events), []string{"01", "02"}; !tokensEqual(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestPoller_FetchChangesSkipsNullCursorRows(t *testing.T) {
	src := ordersSource("01", "", "")
	p := newStubPoller(t, src, false)

	events, err := p.FetchChanges(context.Background(), "orders", "", 3)
	if err != nil {
		t.Fatalf("FetchChanges() error = %v", err)
	}
	if got, want := eventTokens(events), []string{"01"}; !tokensEqual(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}

	var sawGuard bool
	for _, q := range src.loggedQueries() {
		if strings.Contains(q, "IS NOT NULL") {
			sawGuard = true
		}
	}
	if !sawGuard {
		t.Error("first-page query did not exclude NULL cursor values")
	}
}

func TestPoller_NaturalCursorFieldNoCandidate(t *testing.T) {
	src := &stubSource{
		columns: []column{
			{"id", "bigint"},
			{"payload", "jsonb"},
		},
	}
	p := newStubPoller(t, src, false)

	_, err := p.NaturalCursorField(context.Background(), "orders")
	if !errors.Is(err, connector.ErrNoCursorColumn) {
		t.Fatalf("NaturalCursorField() error = %v, want ErrNoCursorColumn", err)
	}
}

func TestPoller_CurrentCursor(t *testing.T) {
	src := ordersSource("01", "02", "03")
	p := newStubPoller(t, src, false)

	token, err := p.CurrentCursor(context.Background(), "orders")
	if err != nil {
		t.Fatalf("CurrentCursor() error = %v", err)
	}
	if token != "03" {
		t.Fatalf("CurrentCursor() = %q, want %q", token, "03")
	}
}

func TestPoller_FetchChangesInsertHeuristic(t *testing.T) {
	src := &stubSource{
		columns: []column{
			{"id", "bigint"},
			{"created_at", "timestamp"},
			{"updated_at", "timestamp"},
		},
		cursor: "updated_at",
		rows: []map[string]driver.Value{
			{"id": int64(1), "created_at": "01", "updated_at": "01"},
			{"id": int64(2), "created_at": "01", "updated_at": "02"},
		},
	}
	p := newStubPoller(t, src, false)

	events, err := p.FetchChanges(context.Background(), "orders", "", 10)
	if err != nil {
		t.Fatalf("FetchChanges() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Kind != capture.KindInsert {
		t.Errorf("untouched row kind = %q, want insert", events[0].Kind)
	}
	if events[1].Kind != capture.KindUpdate {
		t.Errorf("modified row kind = %q, want update", events[1].Kind)
	}
}

func ddlEvents(events []capture.Event) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == capture.KindDDL {
			n++
		}
	}
	return n
}

func TestPoller_SchemaChangeRedeliveredUntilCommit(t *testing.T) {
	src := ordersSource("01")
	p := newStubPoller(t, src, true)
	ctx := context.Background()

	// First fetch seeds the fingerprint; no ddl event yet.
	events, err := p.FetchChanges(ctx, "orders", "", 10)
	if err != nil {
		t.Fatalf("FetchChanges() error = %v", err)
	}
	if n := ddlEvents(events); n != 0 {
		t.Fatalf("seeding fetch emitted %d ddl events, want 0", n)
	}

	src.setColumns([]column{
		{"id", "bigint"},
		{"updated_at", "timestamp"},
		{"status", "text"},
	})

	events, err = p.FetchChanges(ctx, "orders", "01", 10)
	if err != nil {
		t.Fatalf("FetchChanges() error = %v", err)
	}
	if n := ddlEvents(events); n != 1 {
		t.Fatalf("fetch after schema change emitted %d ddl events, want 1", n)
	}

	// Uncommitted: a re-fetch of the same page sees the ddl event again.
	events, err = p.FetchChanges(ctx, "orders", "01", 10)
	if err != nil {
		t.Fatalf("FetchChanges() error = %v", err)
	}
	if n := ddlEvents(events); n != 1 {
		t.Fatalf("re-fetch before commit emitted %d ddl events, want 1", n)
	}

	if err := p.CommitPage(ctx, "orders"); err != nil {
		t.Fatalf("CommitPage() error = %v", err)
	}

	events, err = p.FetchChanges(ctx, "orders", "01", 10)
	if err != nil {
		t.Fatalf("FetchChanges() error = %v", err)
	}
	if n := ddlEvents(events); n != 0 {
		t.Fatalf("fetch after commit emitted %d ddl events, want 0", n)
	}
}

func TestPoller_SchemaChangeRevertedClearsPending(t *testing.T) {
	src := ordersSource("01")
	p := newStubPoller(t, src, true)
	ctx := context.Background()

	if _, err := p.FetchChanges(ctx, "orders", "", 10); err != nil {
		t.Fatalf("FetchChanges() error = %v", err)
	}

	original := []column{
		{"id", "bigint"},
		{"updated_at", "timestamp"},
	}
	src.setColumns([]column{
		{"id", "bigint"},
		{"updated_at", "timestamp"},
		{"status", "text"},
	})

	events, err := p.FetchChanges(ctx, "orders", "01", 10)
	if err != nil {
		t.Fatalf("FetchChanges() error = %v", err)
	}
	if n := ddlEvents(events); n != 1 {
		t.Fatalf("fetch after schema change emitted %d ddl events, want 1", n)
	}

	// Reverting before the commit retires the pending event.
	src.setColumns(original)
	events, err = p.FetchChanges(ctx, "orders", "01", 10)
	if err != nil {
		t.Fatalf("FetchChanges() error = %v", err)
	}
	if n := ddlEvents(events); n != 0 {
		t.Fatalf("fetch after revert emitted %d ddl events, want 0", n)
	}
}
