package room

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is a websocket connection registered in a Hub.
type Conn struct {
	id        string
	sessionID string
	hub       *Hub
	ws        *websocket.Conn

	// room is guarded by hub.mu
	room string

	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *Conn) ID() string {
	return c.id
}

// SessionID is the session the connection was opened for.
func (c *Conn) SessionID() string {
	return c.sessionID
}

// close asks the write pump to send a close frame and release the socket.
func (c *Conn) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *Conn) readPump(ctx context.Context, handler Handler) {
	defer c.close()

	cfg := c.hub.c
	c.ws.SetReadLimit(cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	})

	for {
		_, b, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.WarnContext(ctx, "room: unexpected close", "connection", c.id, "error", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))

		var m Message
		if err := json.Unmarshal(b, &m); err != nil || m.Event == "" {
			slog.DebugContext(ctx, "room: malformed message", "connection", c.id, "error", err)
			handler.HandleMessage(ctx, c, Message{})
			continue
		}

		handler.HandleMessage(ctx, c, m)
	}
}

func (c *Conn) writePump() {
	cfg := c.hub.c
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case b := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				slog.Debug("room: write failed", "connection", c.id, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
