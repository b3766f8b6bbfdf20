package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/labstack/echo/v4"

	"github.com/nfrund/msgtopology/internal/hub"
)

// subscriberBuffer is how many updates a client may lag behind before it is dropped.
const subscriberBuffer = 16

// serveWS pushes the current diagram on connect and again after every topology
// change. Clients only listen; anything they send is discarded.
func (s *Server) serveWS(c echo.Context) error {
	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		InsecureSkipVerify: true, // In production, check origin.
	})
	if err != nil {
		slog.Error("Failed to upgrade diagram WebSocket", "error", err)
		return nil
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := conn.CloseRead(s.ctx)

	if err := wsjson.Write(ctx, conn, s.currentUpdate(c.Request().Context())); err != nil {
		slog.Debug("Initial diagram push failed", "error", err)
		return nil
	}

	sub := hub.NewSubscriber(subscriberBuffer)
	select {
	case s.hub.Register <- sub:
	case <-ctx.Done():
		return nil
	}
	defer func() {
		select {
		case s.hub.Unregister <- sub:
		case <-s.ctx.Done():
		}
	}()

	for {
		select {
		case msg, ok := <-sub.Send:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "diagram updates stopped")
				return nil
			}
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				if !errors.Is(err, context.Canceled) {
					slog.Debug("Diagram writePump error", "error", err)
				}
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}
