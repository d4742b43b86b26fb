package engine

import (
	"context"
	"strconv"
	"sync"

	"github.com/iannil/one-data-studio-sub007/internal/capture"
)

// fakeConnector is an in-memory connector for scheduler and manager tests.
// Rows are kept per table in ascending cursor order; tokens are zero-padded
// so string comparison matches the cursor ordering.
type fakeConnector struct {
	mu sync.Mutex

	kind       capture.SourceKind
	rows       map[string][]capture.Event
	connectErr error
	fetchErr   map[string]error

	connects    int
	disconnects int
	fetches     map[string]int
	commits     map[string]int
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{
		kind:     capture.SourcePostgres,
		rows:     make(map[string][]capture.Event),
		fetchErr: make(map[string]error),
		fetches:  make(map[string]int),
		commits:  make(map[string]int),
	}
}

// addRow appends a change with the given cursor token to a table.
func (f *fakeConnector) addRow(table, token string, kind capture.EventKind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[table] = append(f.rows[table], capture.Event{
		ID:          table + "-" + strconv.Itoa(len(f.rows[table])),
		Kind:        kind,
		SourceKind:  f.kind,
		Table:       table,
		CursorToken: token,
	})
}

func (f *fakeConnector) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return f.connectErr
}

func (f *fakeConnector) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return nil
}

func (f *fakeConnector) Healthy(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectErr
}

// FetchChanges honors the connector contract: strictly greater than since,
// ascending, and every row tied on the page's maximum cursor is included
// even past limit.
func (f *fakeConnector) FetchChanges(ctx context.Context, table, since string, limit int) ([]capture.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches[table]++
	if err := f.fetchErr[table]; err != nil {
		return nil, err
	}

	var page []capture.Event
	for _, ev := range f.rows[table] {
		if since != "" && ev.CursorToken <= since {
			continue
		}
		page = append(page, ev)
	}
	if limit > 0 && len(page) > limit {
		boundary := page[limit-1].CursorToken
		cut := limit
		for cut < len(page) && page[cut].CursorToken == boundary {
			cut++
		}
		page = page[:cut]
	}
	return page, nil
}

func (f *fakeConnector) CommitPage(ctx context.Context, table string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits[table]++
	return nil
}

func (f *fakeConnector) NaturalCursorField(ctx context.Context, table string) (string, error) {
	return "updated_at", nil
}

func (f *fakeConnector) CurrentCursor(ctx context.Context, table string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.rows[table]
	if len(rows) == 0 {
		return "", nil
	}
	return rows[len(rows)-1].CursorToken, nil
}

func (f *fakeConnector) Kind() capture.SourceKind { return f.kind }

func (f *fakeConnector) fetchCount(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[table]
}

func (f *fakeConnector) commitCount(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commits[table]
}
