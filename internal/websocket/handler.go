package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs attaches an upgraded connection to the hub and blocks until it closes.
func ServeWs(hub *Hub, c *websocket.Conn, filter uuid.UUID) {
	client := NewClient(hub, filter, 256)
	client.Conn = c
	hub.Register(client)

	go client.writePump()
	client.readPump()
}
