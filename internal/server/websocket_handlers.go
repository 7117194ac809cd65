package server

import (
	"log"

	"worldnews/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketUpgrade admits websocket upgrades on /api/ws. A single-use ticket
// from POST /api/ws/ticket identifies the user; without one the connection
// joins as an anonymous viewer and only receives broadcasts.
func (s *Server) WebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		// Long-lived tokens must not end up in URLs or proxy logs.
		if c.Query("token") != "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Use a websocket ticket instead of a token"))
		}

		var userID uint
		if ticket := c.Query("ticket"); ticket != "" {
			uid, ok := s.consumeWSTicket(c.UserContext(), ticket)
			if !ok {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
			userID = uid
		}
		c.Locals("userID", userID)
		return c.Next()
	}
}

// WebsocketHandler registers connections with the Hub, which fans out
// theme, post, reaction and session events.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		uid, ok := conn.Locals("userID").(uint)
		if !ok {
			if cerr := conn.Close(); cerr != nil {
				log.Printf("websocket close error: %v", cerr)
			}
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			log.Printf("WebSocket: failed to register user %d: %v", uid, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		go client.WritePump()
		client.ReadPump()
	})
}
