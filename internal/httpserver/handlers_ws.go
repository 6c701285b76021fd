package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/jaimehuang168/VoxParaguay2026/internal/broadcast"
)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Dashboards are served from arbitrary origins
	},
}

// wsConn adapts a gorilla connection to the hub's Conn. Send is only called
// from the connection's writer goroutine, so no write lock is needed.
type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) Send(data []byte) error {
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

func (s *Server) handleAgentsStream(c echo.Context) error {
	return s.serveStream(c, broadcast.StreamAgents)
}

func (s *Server) handleSentimentStream(c echo.Context) error {
	return s.serveStream(c, broadcast.StreamSentiment)
}

func (s *Server) serveStream(c echo.Context, stream broadcast.Stream) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}

	wc := &wsConn{conn: conn}
	if err := s.hub.Register(stream, wc); err != nil {
		slog.Warn("Failed to register stream client", "stream", string(stream), "error", err)
		return nil
	}

	// An agent dashboard can bind its session to the socket: when the
	// socket drops, the agent is logged out instead of lingering until the
	// reaper catches it.
	agentID := c.QueryParam("agent_id")

	// Read pump — blocks until the connection closes.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.Unregister(stream, wc)

	if agentID != "" {
		// The request context died with the socket; the logout still has to run.
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if _, err := s.registry.Logout(ctx, agentID); err != nil {
			slog.Warn("Failed to log out agent on disconnect", "agent_id", agentID, "error", err)
		}
	}

	return nil //nolint:nilerr // ReadMessage err is block-scoped; outer err is nil
}
