package audit

import (
	"context"

	"idlink/pkg/requestcontext"
)

// Store is the persistence boundary for audit events. Implementations are
// append-only; events are never mutated or deleted.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}

// Emitter is the interface services depend on. It is satisfied by Publisher,
// KafkaSink, and Fanout.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	enrich(ctx, &event)
	return p.store.Append(ctx, event)
}

func (p *Publisher) List(ctx context.Context, subject string) ([]Event, error) {
	return p.store.ListBySubject(ctx, subject)
}

// enrich fills in request-scoped fields the call site should not have to
// thread by hand.
func enrich(ctx context.Context, event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.UserAgent == "" {
		event.UserAgent = requestcontext.UserAgent(ctx)
	}
	if event.Category == "" {
		event.Category = AuditEvent(event.Action).Category()
	}
}

// Fanout emits every event to all wrapped emitters, returning the first error
// after attempting each one. A persistence failure must not starve the other
// sinks.
type Fanout struct {
	emitters []Emitter
}

func NewFanout(emitters ...Emitter) *Fanout {
	out := make([]Emitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return &Fanout{emitters: out}
}

func (f *Fanout) Emit(ctx context.Context, event Event) error {
	var firstErr error
	for _, e := range f.emitters {
		if err := e.Emit(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
