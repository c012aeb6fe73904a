package websocket

import (
	"encoding/json"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs registers the connection, sends the greeting message first and
// then pumps hub traffic until the peer goes away.
func ServeWs(hub *Hub, c *websocket.Conn, userID uuid.UUID, greeting *Message) {
	client := &Client{Hub: hub, Conn: c, UserID: userID, Send: make(chan []byte, 256)}

	if greeting != nil {
		if data, err := json.Marshal(greeting); err == nil {
			client.Send <- data
		}
	}
	client.Hub.register <- client

	go client.writePump()
	client.readPump()
}
