package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribeRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewBus(ConversationTopic, nil)
	defer bus.Close()

	messages, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, bus.Publish(ctx, BaseEvent{
		Type:       "conversation.created",
		Data:       map[string]interface{}{"conversation_id": "abc"},
		OccurredAt: at,
	}))

	select {
	case msg := <-messages:
		msg.Ack()
		evt, err := Decode(msg)
		require.NoError(t, err)
		assert.Equal(t, "conversation.created", evt.EventType())
		assert.Equal(t, "abc", evt.Payload()["conversation_id"])
		assert.True(t, at.Equal(evt.Timestamp()))
		assert.Equal(t, "conversation.created", msg.Metadata.Get("event_type"))
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}
