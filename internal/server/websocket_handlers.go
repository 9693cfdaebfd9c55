package server

import (
	"verses/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// FeedUpgrade rejects non-websocket requests and resolves the optional
// viewer before the upgrade, while request headers are still readable.
func (s *Server) FeedUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		c.Locals("feedUserID", s.optionalViewer(c).UserID)
		return c.Next()
	}
}

// FeedWebSocketHandler handles GET /api/ws/feed. Clients receive a JSON
// FeedEvent per message; anything they send is ignored.
func (s *Server) FeedWebSocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("feedUserID").(string)

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("feed websocket rejected", "user_id", userID, "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		middleware.Logger.Debug("feed websocket connected", "user_id", userID, "clients", s.hub.Count())

		go client.WritePump()
		client.ReadPump()
	})
}
