package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"conversation-core/internal/pkg/logger"
	"conversation-core/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const moduleHub = "HUB"

// Hub relays conversation events from the in-process bus to every connected
// websocket client. Only the Run goroutine touches the client set; mu guards
// reads from other goroutines.
type Hub struct {
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	bus    *events.Bus
	logger logger.ILogger
}

func NewHub(bus *events.Bus, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		bus:        bus,
		logger:     log,
	}
}

// Run subscribes to the bus and serves clients until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	stream, err := h.bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Info(moduleHub, "Client registered", map[string]interface{}{
				"client_id":       client.ID,
				"conversation_id": client.Filter,
			})

		case client := <-h.unregister:
			h.remove(client)

		case msg, ok := <-stream:
			if !ok {
				h.closeAll()
				return nil
			}
			h.deliver(msg)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// remove closes the client's queue exactly once; unknown clients are ignored.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	h.logger.Info(moduleHub, "Client unregistered", map[string]interface{}{"client_id": client.ID})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.Send)
	}
}

func (h *Hub) deliver(msg *message.Message) {
	msg.Ack()

	evt, err := events.Decode(msg)
	if err != nil {
		h.logger.Warn(moduleHub, "Dropping undecodable event", map[string]interface{}{"error": err.Error()})
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Warn(moduleHub, "Dropping unencodable event", map[string]interface{}{"error": err.Error()})
		return
	}
	conversationId, _ := evt.Data["conversation_id"].(string)

	var slow []*Client
	h.mu.RLock()
	for client := range h.clients {
		if !client.Wants(conversationId) {
			continue
		}
		select {
		case client.Send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn(moduleHub, "Client send buffer full, disconnecting", map[string]interface{}{"client_id": client.ID})
		h.remove(client)
	}
}

// NewClient builds a client whose queue holds up to buffer messages. A nil
// filter receives every conversation's events.
func NewClient(hub *Hub, filter uuid.UUID, buffer int) *Client {
	return &Client{
		ID:     uuid.New(),
		Hub:    hub,
		Filter: filter,
		Send:   make(chan []byte, buffer),
	}
}
