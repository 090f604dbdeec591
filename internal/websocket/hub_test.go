package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"conversation-core/internal/pkg/logger"
	"conversation-core/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *events.Bus) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	bus := events.NewBus(events.ConversationTopic, nil)
	hub := NewHub(bus, logger.NewNopLogger())

	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		bus.Close()
	})
	return hub, bus
}

func publish(t *testing.T, bus *events.Bus, eventType string, conversationId uuid.UUID) {
	t.Helper()
	require.NoError(t, bus.Publish(context.Background(), events.BaseEvent{
		Type:       eventType,
		Data:       map[string]interface{}{"conversation_id": conversationId.String()},
		OccurredAt: time.Now().UTC(),
	}))
}

func receive(t *testing.T, c *Client) events.BaseEvent {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "client queue closed")
		var evt events.BaseEvent
		require.NoError(t, json.Unmarshal(data, &evt))
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
	return events.BaseEvent{}
}

func TestHubRelaysEvents(t *testing.T) {
	hub, bus := startHub(t)

	all := NewClient(hub, uuid.Nil, 8)
	hub.Register(all)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	id := uuid.New()
	publish(t, bus, "conversation.created", id)

	evt := receive(t, all)
	assert.Equal(t, "conversation.created", evt.Type)
	assert.Equal(t, id.String(), evt.Data["conversation_id"])
}

func TestHubFiltersByConversation(t *testing.T) {
	hub, bus := startHub(t)

	watched := uuid.New()
	filtered := NewClient(hub, watched, 8)
	all := NewClient(hub, uuid.Nil, 8)
	hub.Register(filtered)
	hub.Register(all)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	publish(t, bus, "conversation.updated", uuid.New())
	publish(t, bus, "conversation.updated", watched)

	assert.NotEqual(t, watched.String(), receive(t, all).Data["conversation_id"])
	assert.Equal(t, watched.String(), receive(t, all).Data["conversation_id"])
	assert.Equal(t, watched.String(), receive(t, filtered).Data["conversation_id"])
	assert.Len(t, filtered.Send, 0)
}

func TestHubDropsSlowClientOnce(t *testing.T) {
	hub, bus := startHub(t)

	slow := NewClient(hub, uuid.Nil, 1)
	hub.Register(slow)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	publish(t, bus, "conversation.updated", uuid.New())
	publish(t, bus, "conversation.updated", uuid.New())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)

	// A late unregister from the read pump must not close the queue again.
	hub.Unregister(slow)

	_, ok := <-slow.Send
	assert.True(t, ok, "the buffered event is still readable")
	_, ok = <-slow.Send
	assert.False(t, ok)
}
