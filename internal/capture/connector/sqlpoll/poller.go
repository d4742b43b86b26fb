package sqlpoll

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/iannil/one-data-studio-sub007/internal/capture"
	"github.com/iannil/one-data-studio-sub007/internal/capture/connector"
)

// Poller is a polling-based connector over database/sql. It discovers and
// caches a natural cursor column per table and pages changes with a
// strictly-greater cursor predicate.
type Poller struct {
	cfg     capture.SourceConfig
	dialect Dialect
	logger  *slog.Logger

	mu         sync.Mutex
	db         *sql.DB
	cursorCols map[string]string // table -> discovered cursor column
	schemaFPs  map[string]uint64 // table -> last committed column-set fingerprint
	pendingFPs map[string]uint64 // table -> fingerprint of an emitted, unacknowledged ddl event
}

// New creates a Poller for the given config and dialect.
func New(cfg capture.SourceConfig, dialect Dialect, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:     cfg,
		dialect: dialect,
		logger: logger.With(
			"component", "connector",
			"source_kind", string(dialect.Kind()),
			"database", cfg.Database,
		),
		cursorCols: make(map[string]string),
		schemaFPs:  make(map[string]uint64),
		pendingFPs: make(map[string]uint64),
	}
}

// Kind identifies the source engine.
func (p *Poller) Kind() capture.SourceKind {
	return p.dialect.Kind()
}

// Connect opens the connection pool and verifies it with a ping bounded by
// the configured connect timeout. It never retries; retry belongs to the
// scheduler.
func (p *Poller) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db != nil {
		return nil
	}

	db, err := sql.Open(p.dialect.Driver(), p.cfg.DSN)
	if err != nil {
		return fmt.Errorf("%w: %v", connector.ErrConnectionFailed, err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := p.callContext(ctx)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", connector.ErrConnectionFailed, err)
	}

	p.db = db
	p.logger.Info("connected to source")
	return nil
}

// Disconnect releases the connection pool.
func (p *Poller) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

// Healthy pings the source.
func (p *Poller) Healthy(ctx context.Context) error {
	db, err := p.conn()
	if err != nil {
		return err
	}
	pingCtx, cancel := p.callContext(ctx)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("%w: %v", connector.ErrConnectionFailed, err)
	}
	return nil
}

// NaturalCursorField discovers and caches the cursor column for table.
func (p *Poller) NaturalCursorField(ctx context.Context, table string) (string, error) {
	p.mu.Lock()
	if col, ok := p.cursorCols[table]; ok {
		p.mu.Unlock()
		return col, nil
	}
	p.mu.Unlock()

	cols, err := p.tableColumns(ctx, table)
	if err != nil {
		return "", err
	}
	col := pickCursorColumn(cols)
	if col == "" {
		return "", fmt.Errorf("%w: table %s", connector.ErrNoCursorColumn, table)
	}

	p.mu.Lock()
	p.cursorCols[table] = col
	p.mu.Unlock()

	p.logger.Info("discovered natural cursor column", "table", table, "column", col)
	return col, nil
}

// CurrentCursor returns the table's current maximum cursor value, or ""
// for an empty table.
func (p *Poller) CurrentCursor(ctx context.Context, table string) (string, error) {
	col, err := p.NaturalCursorField(ctx, table)
	if err != nil {
		return "", err
	}
	db, err := p.conn()
	if err != nil {
		return "", err
	}

	query := fmt.Sprintf("SELECT MAX(%s) FROM %s",
		p.dialect.QuoteIdent(col), p.tableRef(table))

	qctx, cancel := p.callContext(ctx)
	defer cancel()

	var max any
	if err := db.QueryRowContext(qctx, query).Scan(&max); err != nil {
		return "", fmt.Errorf("query current cursor for %s: %w", table, err)
	}
	return cursorToken(max), nil
}

// FetchChanges returns rows of table with cursor strictly greater than
// since, ascending, honoring the boundary invariant: when the page is
// full, every row sharing the page's maximum cursor value is included,
// even past limit.
func (p *Poller) FetchChanges(ctx context.Context, table, since string, limit int) ([]capture.Event, error) {
	col, err := p.NaturalCursorField(ctx, table)
	if err != nil {
		return nil, err
	}

	var events []capture.Event
	if p.cfg.IncludeDDL {
		if ev, changed, err := p.checkSchemaChange(ctx, table); err == nil && changed {
			events = append(events, ev)
		} else if err != nil {
			p.logger.Warn("schema fingerprint check failed", "table", table, "error", err)
		}
	}

	page, err := p.fetchPage(ctx, table, col, since, limit)
	if err != nil {
		return nil, err
	}
	if len(page) == limit && limit > 0 {
		// The page is full, so rows beyond it may tie with the boundary
		// cursor value. Drop the boundary rows and re-fetch all of them
		// in one equality query so no tied row is skipped by the
		// strictly-greater advance. An empty boundary token means the
		// cursor value was NULL; there is nothing to advance past, so
		// the page is delivered as is.
		if boundary := page[len(page)-1].token; boundary != "" {
			kept := page[:0]
			for _, r := range page {
				if r.token != boundary {
					kept = append(kept, r)
				}
			}
			ties, err := p.fetchTies(ctx, table, col, boundary)
			if err != nil {
				return nil, err
			}
			page = append(kept, ties...)
		}
	}

	now := time.Now()
	for _, r := range page {
		events = append(events, p.rowEvent(table, col, r, now))
	}
	return events, nil
}

// row is one fetched row with its rendered cursor token.
type row struct {
	values map[string]any
	token  string
}

func (p *Poller) fetchPage(ctx context.Context, table, col, since string, limit int) ([]row, error) {
	var (
		query string
		args  []any
	)
	if since == "" {
		// Rows with a NULL cursor value have no position in the cursor
		// order and would poison the boundary token; leave them out.
		query = fmt.Sprintf("SELECT * FROM %s WHERE %s IS NOT NULL ORDER BY %s ASC LIMIT %d",
			p.tableRef(table), p.dialect.QuoteIdent(col),
			p.dialect.QuoteIdent(col), limit)
	} else {
		query = fmt.Sprintf("SELECT * FROM %s WHERE %s > %s ORDER BY %s ASC LIMIT %d",
			p.tableRef(table), p.dialect.QuoteIdent(col),
			p.dialect.Placeholder(1), p.dialect.QuoteIdent(col), limit)
		args = append(args, since)
	}
	return p.queryRows(ctx, query, col, args...)
}

func (p *Poller) fetchTies(ctx context.Context, table, col, boundary string) ([]row, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = %s",
		p.tableRef(table), p.dialect.QuoteIdent(col), p.dialect.Placeholder(1))
	return p.queryRows(ctx, query, col, boundary)
}

func (p *Poller) queryRows(ctx context.Context, query, cursorCol string, args ...any) ([]row, error) {
	db, err := p.conn()
	if err != nil {
		return nil, err
	}

	qctx, cancel := p.callContext(ctx)
	defer cancel()

	rs, err := db.QueryContext(qctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rs.Close()

	cols, err := rs.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var out []row
	for rs.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		values := make(map[string]any, len(cols))
		for i, name := range cols {
			values[name] = normalizeValue(raw[i])
		}
		r := row{values: values}
		if v, ok := values[cursorCol]; ok {
			r.token = cursorToken(v)
		}
		out = append(out, r)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// rowEvent maps one fetched row to a captured event. The kind heuristic:
// a row whose creation-time column equals the cursor value has not been
// touched since insert. Deletes are not detectable by polling; that needs
// log-based capture.
func (p *Poller) rowEvent(table, col string, r row, now time.Time) capture.Event {
	kind := capture.KindUpdate
	for name, v := range r.values {
		if isCreationColumn(name) && cursorToken(v) == r.token {
			kind = capture.KindInsert
			break
		}
	}
	return capture.Event{
		ID:             uuid.New().String(),
		Kind:           kind,
		SourceKind:     p.dialect.Kind(),
		Database:       p.cfg.Database,
		Schema:         p.dialect.SchemaName(p.cfg),
		Table:          table,
		CapturedAt:     now,
		CursorToken:    r.token,
		After:          r.values,
		SourcePosition: fmt.Sprintf("%s.%s:%s=%s", p.dialect.SchemaName(p.cfg), table, col, r.token),
	}
}

// checkSchemaChange fingerprints the table's column set and emits one
// synthetic ddl event when it differs from the committed fingerprint.
// The first observation only seeds the cache. A changed fingerprint is
// held as pending until CommitPage acknowledges the page carrying the
// ddl event, so a failed or discarded page re-emits it on the next
// fetch instead of losing it.
func (p *Poller) checkSchemaChange(ctx context.Context, table string) (capture.Event, bool, error) {
	cols, err := p.tableColumns(ctx, table)
	if err != nil {
		return capture.Event{}, false, err
	}

	h := xxhash.New()
	for _, c := range cols {
		h.WriteString(c.name)
		h.WriteString(":")
		h.WriteString(strings.ToLower(c.dataType))
		h.WriteString(";")
	}
	fp := h.Sum64()

	p.mu.Lock()
	prev, seen := p.schemaFPs[table]
	if !seen {
		p.schemaFPs[table] = fp
		p.mu.Unlock()
		return capture.Event{}, false, nil
	}
	if prev == fp {
		// Changed and changed back before the first emission was
		// acknowledged; nothing left to report.
		delete(p.pendingFPs, table)
		p.mu.Unlock()
		return capture.Event{}, false, nil
	}
	p.pendingFPs[table] = fp
	p.mu.Unlock()

	p.logger.Info("table schema changed", "table", table)

	colDefs := make(map[string]any, len(cols))
	for _, c := range cols {
		colDefs[c.name] = c.dataType
	}
	return capture.Event{
		ID:             uuid.New().String(),
		Kind:           capture.KindDDL,
		SourceKind:     p.dialect.Kind(),
		Database:       p.cfg.Database,
		Schema:         p.dialect.SchemaName(p.cfg),
		Table:          table,
		CapturedAt:     time.Now(),
		After:          colDefs,
		SourcePosition: fmt.Sprintf("schema_fingerprint=%d", fp),
	}, true, nil
}

// CommitPage acknowledges the page most recently returned by FetchChanges
// for table. The pending schema fingerprint, if any, becomes the committed
// one; until then every fetch re-emits the ddl event.
func (p *Poller) CommitPage(ctx context.Context, table string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fp, ok := p.pendingFPs[table]; ok {
		p.schemaFPs[table] = fp
		delete(p.pendingFPs, table)
	}
	return nil
}

func (p *Poller) tableColumns(ctx context.Context, table string) ([]column, error) {
	db, err := p.conn()
	if err != nil {
		return nil, err
	}

	qctx, cancel := p.callContext(ctx)
	defer cancel()

	rs, err := db.QueryContext(qctx, p.dialect.ColumnsQuery(),
		p.dialect.SchemaName(p.cfg), table)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s: %w", table, err)
	}
	defer rs.Close()

	var cols []column
	for rs.Next() {
		var c column
		if err := rs.Scan(&c.name, &c.dataType); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols = append(cols, c)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return cols, nil
}

func (p *Poller) conn() (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil, connector.ErrNotConnected
	}
	return p.db, nil
}

// callContext bounds one connector call with the configured connect
// timeout, preserving scheduler liveness against a stalled source.
func (p *Poller) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := p.cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func (p *Poller) tableRef(table string) string {
	schema := p.dialect.SchemaName(p.cfg)
	if schema == "" {
		return p.dialect.QuoteIdent(table)
	}
	return p.dialect.QuoteIdent(schema) + "." + p.dialect.QuoteIdent(table)
}

// normalizeValue makes scanned values JSON-friendly. Drivers hand back
// []byte for text-ish columns; keep row images as strings.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
