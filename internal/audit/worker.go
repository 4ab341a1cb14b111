package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from a channel and hands them to an emitter.
// Services write to the inbox without blocking on sink latency; the worker
// absorbs it. Events are dropped (with a log line) when the inbox is full
// rather than stalling a decision path.
type Worker struct {
	emitter Emitter
	inbox   chan Event
	logger  *slog.Logger
}

func NewWorker(emitter Emitter, buffer int, logger *slog.Logger) *Worker {
	if buffer <= 0 {
		buffer = 256
	}
	return &Worker{
		emitter: emitter,
		inbox:   make(chan Event, buffer),
		logger:  logger,
	}
}

// Enqueue offers an event to the worker. Returns false if the inbox is full.
func (w *Worker) Enqueue(event Event) bool {
	select {
	case w.inbox <- event:
		return true
	default:
		if w.logger != nil {
			w.logger.Warn("audit inbox full, dropping event", "action", event.Action, "subject", event.Subject)
		}
		return false
	}
}

// Emit satisfies Emitter so the worker can sit behind services directly.
// The context is captured for enrichment before queueing because the
// request ends before the event is flushed.
func (w *Worker) Emit(ctx context.Context, event Event) error {
	enrich(ctx, &event)
	w.Enqueue(event)
	return nil
}

// Run drains the inbox until ctx is cancelled. Remaining queued events are
// flushed before returning.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case event := <-w.inbox:
			w.deliver(event)
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case event := <-w.inbox:
			w.deliver(event)
		default:
			return
		}
	}
}

func (w *Worker) deliver(event Event) {
	// Fresh context: the originating request is gone by now.
	if err := w.emitter.Emit(context.Background(), event); err != nil && w.logger != nil {
		w.logger.Error("failed to emit audit event", "action", event.Action, "error", err)
	}
}
