package capture

import (
	"context"
)

// Handler is a consumer callback invoked for every captured event, in
// registration order. A handler error marks the event failed but never
// stops later handlers or later events; the page's cursor advance is
// withheld so the page is re-delivered on the next tick.
type Handler func(ctx context.Context, ev Event) error
