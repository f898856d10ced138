package server

import (
	"context"
	"log/slog"

	"socialrank/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler streams the caller's realtime notifications. The socket is
// write-only for the server; reads only detect the client going away.
func (s *Server) WebsocketHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if s.notifier == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Realtime notifications unavailable"})
		}
		return websocket.New(s.streamNotifications)(c)
	}
}

func (s *Server) streamNotifications(conn *websocket.Conn) {
	middleware.ActiveWebSockets.Inc()
	defer middleware.ActiveWebSockets.Dec()

	userID, ok := conn.Locals("userID").(uint)
	if !ok {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
		_ = conn.Close()
		return
	}

	parent := context.Background()
	if s.shutdownCtx != nil {
		parent = s.shutdownCtx
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	messages, err := s.notifier.SubscribeUser(ctx, userID)
	if err != nil {
		middleware.Logger.Error("notification subscribe failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
		_ = conn.Close()
		return
	}

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for payload := range messages {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
			return
		}
	}
}
