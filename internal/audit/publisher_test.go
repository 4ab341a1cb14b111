package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idlink/pkg/requestcontext"
)

func TestPublisherEnrichesFromContext(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)

	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), fixed)
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	ctx = requestcontext.WithClientMetadata(ctx, "198.51.100.7", "Firefox/125 (Linux)")

	err := pub.Emit(ctx, Event{Subject: "discord-1", Action: string(EventBanCreated)})
	require.NoError(t, err)

	events, err := pub.List(ctx, "discord-1")
	require.NoError(t, err)
	require.Len(t, events, 1)

	got := events[0]
	assert.Equal(t, fixed, got.Timestamp)
	assert.Equal(t, "req-42", got.RequestID)
	assert.Equal(t, "198.51.100.7", got.ClientIP)
	assert.Equal(t, CategorySecurity, got.Category)
}

func TestEventCategoryDefaults(t *testing.T) {
	assert.Equal(t, CategoryCompliance, EventIdentityAccessed.Category())
	assert.Equal(t, CategorySecurity, EventJoinDenied.Category())
	assert.Equal(t, CategoryOperations, AuditEvent("something_new").Category())
}

type failingEmitter struct{ err error }

func (f failingEmitter) Emit(context.Context, Event) error { return f.err }

type countingEmitter struct{ n int }

func (c *countingEmitter) Emit(context.Context, Event) error {
	c.n++
	return nil
}

func TestFanoutContinuesPastFailures(t *testing.T) {
	boom := errors.New("sink down")
	counter := &countingEmitter{}
	fanout := NewFanout(failingEmitter{err: boom}, counter, nil)

	err := fanout.Emit(context.Background(), Event{Action: string(EventUserCreated)})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, counter.n, "healthy sink still receives the event")
}

func TestWorkerFlushesOnShutdown(t *testing.T) {
	store := NewInMemoryStore()
	worker := NewWorker(NewPublisher(store), 8, nil)

	ctx := context.Background()
	require.NoError(t, worker.Emit(ctx, Event{Subject: "u1", Action: string(EventUserCreated)}))
	require.NoError(t, worker.Emit(ctx, Event{Subject: "u1", Action: string(EventUserDeleted)}))

	runCtx, cancel := context.WithCancel(context.Background())
	cancel()
	err := worker.Run(runCtx)
	assert.ErrorIs(t, err, context.Canceled)

	events, err := store.ListBySubject(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
