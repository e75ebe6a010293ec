package audit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	events []Event
}

func (c *captureSink) Emit(_ context.Context, event Event) error {
	c.events = append(c.events, event)
	return nil
}

func TestEmit(t *testing.T) {
	ctx := context.Background()

	t.Run("nil publisher is a no-op", func(t *testing.T) {
		assert.NoError(t, Emit(ctx, nil, Event{Action: ActionPsuAuthenticated}))
	})

	t.Run("fills category and timestamp", func(t *testing.T) {
		sink := &captureSink{}
		require.NoError(t, Emit(ctx, sink, Event{Action: ActionAuthorisationFailed}))

		require.Len(t, sink.events, 1)
		assert.Equal(t, CategorySecurity, sink.events[0].Category)
		assert.False(t, sink.events[0].Timestamp.IsZero())
	})

	t.Run("keeps the caller's category and timestamp", func(t *testing.T) {
		sink := &captureSink{}
		stamped := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
		require.NoError(t, Emit(ctx, sink, Event{
			Action:    ActionPsuIdentified,
			Category:  CategoryCompliance,
			Timestamp: stamped,
		}))

		require.Len(t, sink.events, 1)
		assert.Equal(t, CategoryCompliance, sink.events[0].Category)
		assert.Equal(t, stamped, sink.events[0].Timestamp)
	})
}

func TestActionCategory(t *testing.T) {
	assert.Equal(t, CategoryCompliance, ActionAuthorisationFinalised.Category())
	assert.Equal(t, CategorySecurity, ActionAuthorisationFailed.Category())
	assert.Equal(t, CategoryOperations, ActionScaMethodSelected.Category())
	assert.Equal(t, CategoryOperations, Action("made-up").Category())
}

func TestChannelPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("buffers emitted events", func(t *testing.T) {
		publisher := NewChannelPublisher(2, slog.Default())
		require.NoError(t, publisher.Emit(ctx, Event{Action: ActionAuthorisationStarted}))
		require.NoError(t, publisher.Emit(ctx, Event{Action: ActionPsuAuthenticated}))

		first := <-publisher.Inbox()
		second := <-publisher.Inbox()
		assert.Equal(t, ActionAuthorisationStarted, first.Action)
		assert.Equal(t, ActionPsuAuthenticated, second.Action)
	})

	t.Run("drops instead of blocking when the buffer is full", func(t *testing.T) {
		publisher := NewChannelPublisher(1, slog.Default())
		require.NoError(t, publisher.Emit(ctx, Event{Action: ActionAuthorisationStarted}))
		require.NoError(t, publisher.Emit(ctx, Event{Action: ActionPsuAuthenticated}))

		kept := <-publisher.Inbox()
		assert.Equal(t, ActionAuthorisationStarted, kept.Action)
		select {
		case extra := <-publisher.Inbox():
			t.Fatalf("unexpected buffered event %q", extra.Action)
		default:
		}
	})

	t.Run("defaults the buffer size", func(t *testing.T) {
		publisher := NewChannelPublisher(0, nil)
		assert.Equal(t, 256, cap(publisher.inbox))
	})
}
