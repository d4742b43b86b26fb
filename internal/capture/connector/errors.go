package connector

import "errors"

var (
	// ErrConnectionFailed is returned when the source is unreachable.
	// The owning task moves to the error status and is retried each tick.
	ErrConnectionFailed = errors.New("connector: connection failed")

	// ErrNoCursorColumn is returned when a table has no usable natural
	// cursor column. The table is marked unsupported; the task keeps
	// running and the condition is surfaced via metrics.
	ErrNoCursorColumn = errors.New("connector: no natural cursor column")

	// ErrNotConnected is returned when fetching before Connect.
	ErrNotConnected = errors.New("connector: not connected")
)
