package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iannil/one-data-studio-sub007/internal/capture"
	"github.com/iannil/one-data-studio-sub007/internal/capture/connector"
	"github.com/iannil/one-data-studio-sub007/internal/metrics"
)

// defaultIdleInterval is the tick sleep when no task is schedulable.
const defaultIdleInterval = 500 * time.Millisecond

// scheduler is the single coordination loop deciding when to poll each
// task's connector. One shared worker serves every task: connector calls
// are I/O-bound and short relative to the poll interval, and per-task
// goroutines would not bound connection count as tasks grow.
type scheduler struct {
	reg          *registry
	logger       *slog.Logger
	idleInterval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

func newScheduler(reg *registry, idleInterval time.Duration, logger *slog.Logger) *scheduler {
	if idleInterval <= 0 {
		idleInterval = defaultIdleInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &scheduler{
		reg:          reg,
		logger:       logger.With("component", "scheduler"),
		idleInterval: idleInterval,
		done:         make(chan struct{}),
	}
}

// start launches the worker goroutine.
func (s *scheduler) start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(ctx)
}

// stop cancels the worker and waits for the current tick to finish.
func (s *scheduler) stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *scheduler) run(ctx context.Context) {
	defer close(s.done)
	s.logger.Info("capture scheduler started")

	for {
		interval := s.tick(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info("capture scheduler stopped")
			return
		case <-time.After(interval):
		}
	}
}

// tick runs one scheduling pass and returns how long to sleep before the
// next one: the minimum poll interval across schedulable tasks.
func (s *scheduler) tick(ctx context.Context) time.Duration {
	tasks, interval := s.reg.snapshot()
	if interval <= 0 {
		interval = s.idleInterval
	}

	for _, t := range tasks {
		select {
		case <-ctx.Done():
			return interval
		default:
		}

		switch t.status {
		case capture.StatusConnecting, capture.StatusError:
			s.connectTask(ctx, t)
		case capture.StatusRunning:
			s.pollTask(ctx, t)
		}
	}
	return interval
}

// connectTask establishes (or re-verifies) the task's source connection.
// Failures leave the task in the error status; it is retried on the next
// tick, interval-based, with no separate backoff counter.
func (s *scheduler) connectTask(ctx context.Context, t tickTask) {
	err := t.conn.Connect(ctx)
	if err == nil {
		err = t.conn.Healthy(ctx)
	}
	if err != nil {
		s.logger.Warn("task connection failed", "task", t.id, "error", err)
		metrics.ErrorsTotal.WithLabelValues(t.id, errorType(err)).Inc()
		s.reg.setStatus(t.id, capture.StatusError, err.Error())
		return
	}
	if s.reg.setStatus(t.id, capture.StatusRunning, "") {
		s.logger.Info("task running", "task", t.id)
	}
}

// pollTask fetches one page per supported table. A connector error moves
// only this task to the error status; other tasks in the tick are
// unaffected.
func (s *scheduler) pollTask(ctx context.Context, t tickTask) {
	metrics.LagSeconds.WithLabelValues(t.id).Set(t.metrics.CurrentLag(time.Now()).Seconds())

	for _, table := range t.tables {
		since, seeded := t.cursors[table]

		if !seeded && t.config.SnapshotMode == capture.SnapshotNever {
			token, err := t.conn.CurrentCursor(ctx, table)
			if err != nil {
				if s.tableError(t, table, err) {
					continue
				}
				return
			}
			if !s.reg.seedCursor(t.id, table, token) {
				return // task no longer running, discard
			}
			since = token
		}

		events, err := t.conn.FetchChanges(ctx, table, since, t.config.BatchSize)
		if err != nil {
			if s.tableError(t, table, err) {
				continue
			}
			return
		}

		// The fetch ran without the registry lock; if the task was
		// paused or stopped meanwhile, its result is discarded.
		if st, ok := s.reg.status(t.id); !ok || st != capture.StatusRunning {
			return
		}
		if len(events) == 0 {
			continue
		}

		s.processPage(ctx, t, table, events)
	}
}

// tableError classifies a per-table connector failure. A missing cursor
// column permanently disables the table and the task keeps running
// (returns true); anything else moves the task to the error status
// (returns false).
func (s *scheduler) tableError(t tickTask, table string, err error) bool {
	if errors.Is(err, connector.ErrNoCursorColumn) {
		s.logger.Warn("table has no natural cursor column, skipping permanently",
			"task", t.id, "table", table)
		s.reg.markUnsupported(t.id, table)
		return true
	}
	s.logger.Error("fetch failed", "task", t.id, "table", table, "error", err)
	metrics.ErrorsTotal.WithLabelValues(t.id, errorType(err)).Inc()
	s.reg.setStatus(t.id, capture.StatusError, err.Error())
	return false
}

// processPage delivers one page of events in ascending cursor order. The
// table cursor advances to the page's maximum cursor value only after the
// whole page is processed without handler failures, so a failed or
// interrupted page is re-fetched and re-delivered on the next tick:
// at-least-once delivery.
func (s *scheduler) processPage(ctx context.Context, t tickTask, table string, events []capture.Event) {
	now := time.Now()
	maxToken := ""
	pageFailed := false

	for i := range events {
		ev := &events[i]
		ev.DeliveryAttempts++

		t.metrics.RecordCaptured(ev.Kind)
		metrics.EventsTotal.WithLabelValues(t.id, table, string(ev.Kind)).Inc()

		if !s.runHandlers(ctx, t, ev) {
			pageFailed = true
		}

		t.buffer.Append(*ev)
		// The page is ascending by cursor, so the last non-empty token
		// is the page maximum. Synthetic ddl events carry no token.
		if ev.CursorToken != "" {
			maxToken = ev.CursorToken
		}
	}

	t.metrics.RecordPage(len(events), now)
	t.metrics.SetBufferDropped(t.buffer.Dropped())

	metrics.BufferLen.WithLabelValues(t.id).Set(float64(t.buffer.Len()))
	metrics.BufferDropped.WithLabelValues(t.id).Set(float64(t.buffer.Dropped()))

	if pageFailed {
		s.logger.Warn("page had handler failures, cursor not advanced",
			"task", t.id, "table", table, "events", len(events))
		return
	}
	if maxToken != "" {
		if !s.reg.advanceCursor(t.id, table, maxToken) {
			return
		}
	} else if st, ok := s.reg.status(t.id); !ok || st != capture.StatusRunning {
		// A page of only synthetic events has no cursor to advance;
		// still refuse to acknowledge it for a task that stopped.
		return
	}
	if err := t.conn.CommitPage(ctx, table); err != nil {
		s.logger.Warn("page commit failed", "task", t.id, "table", table, "error", err)
	}

	s.logger.Debug("page processed",
		"task", t.id,
		"table", table,
		"events", len(events),
		"cursor", maxToken,
	)
}

// runHandlers invokes the handler pipeline left-to-right and reports
// whether every handler succeeded. A failing handler marks the event
// failed but never stops later handlers or later events.
func (s *scheduler) runHandlers(ctx context.Context, t tickTask, ev *capture.Event) bool {
	failed := false
	for _, h := range t.handlers {
		if err := h(ctx, *ev); err != nil {
			failed = true
			ev.LastError = err.Error()
			s.logger.Warn("handler failed",
				"task", t.id,
				"table", ev.Table,
				"event_id", ev.ID,
				"error", err,
			)
		}
	}
	if failed {
		t.metrics.RecordFailed(ev.LastError)
		metrics.HandlerFailuresTotal.WithLabelValues(t.id).Inc()
	} else {
		t.metrics.RecordProcessed()
	}
	return !failed
}

// errorType maps an error to its metric label.
func errorType(err error) string {
	switch {
	case errors.Is(err, connector.ErrConnectionFailed):
		return "connection"
	case errors.Is(err, connector.ErrNoCursorColumn):
		return "no_cursor_column"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "fetch"
	}
}
