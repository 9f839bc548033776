package ws

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Handler serves GET /v1/ws. Query parameters: session (optional session
// id to follow) and previews=true to receive overlaid frames.
func Handler(hub *Hub) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		var sessionID uuid.UUID
		if raw := c.Query("session"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				_ = c.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseUnsupportedData, "invalid session id"))
				_ = c.Close()
				return
			}
			sessionID = id
		}

		client := &Client{
			hub:       hub,
			conn:      c,
			sessionID: sessionID,
			previews:  c.Query("previews") == "true",
			send:      make(chan []byte, 256),
		}

		select {
		case hub.register <- client:
		case <-hub.stopped:
			_ = c.Close()
			return
		}

		go client.writeLoop()
		client.readLoop()
	})
}

func UpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}
