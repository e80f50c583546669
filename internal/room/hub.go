// Package room fans session events out to websocket connections.
package room

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/telemetry"
)

type Config struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
	CheckOrigin    func(r *http.Request) bool

	// Mirror receives a copy of every room broadcast, already encoded.
	Mirror Mirror
}

func (c *Config) setDefaults() {
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.ReadTimeout {
		c.PingInterval = c.ReadTimeout * 9 / 10
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 4096
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = func(*http.Request) bool { return true }
	}
}

type Mirror interface {
	Mirror(ctx context.Context, sessionID string, msg []byte)
}

// Message is a command received from a connection.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler processes the messages of connections. Calls for one connection are sequential.
type Handler interface {
	HandleMessage(ctx context.Context, c *Conn, m Message)
	HandleClose(ctx context.Context, c *Conn)
}

// Hub tracks connections and the room each of them belongs to.
type Hub struct {
	c        Config
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*Conn
	rooms map[string]map[string]*Conn
}

func NewHub(c Config) *Hub {
	c.setDefaults()

	return &Hub{
		c: c,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     c.CheckOrigin,
		},
		conns: make(map[string]*Conn),
		rooms: make(map[string]map[string]*Conn),
	}
}

// Serve upgrades the request and reads messages until the connection closes.
// sessionID is the session the connection was opened for.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string, handler Handler) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &Conn{
		id:        uuid.NewString(),
		sessionID: sessionID,
		hub:       h,
		ws:        ws,
		send:      make(chan []byte, h.c.SendBuffer),
		done:      make(chan struct{}),
	}

	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
	telemetry.ConnectionsActive.Inc()

	ctx := context.WithoutCancel(r.Context())
	slog.InfoContext(ctx, "room: connection opened", "connection", c.id, "session", sessionID)

	go c.writePump()
	c.readPump(ctx, handler)

	h.remove(c)
	handler.HandleClose(ctx, c)
	slog.InfoContext(ctx, "room: connection closed", "connection", c.id, "session", sessionID)

	return nil
}

// JoinRoom moves a connection into the room of a session.
func (h *Hub) JoinRoom(connectionID, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[connectionID]
	if !ok {
		return
	}

	if c.room != "" {
		delete(h.rooms[c.room], c.id)
	}

	if h.rooms[sessionID] == nil {
		h.rooms[sessionID] = make(map[string]*Conn)
	}
	h.rooms[sessionID][c.id] = c
	c.room = sessionID
}

// CloseRoom forgets the members of a room. Their connections stay open.
func (h *Hub) CloseRoom(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.rooms[sessionID] {
		c.room = ""
	}
	delete(h.rooms, sessionID)
}

// Broadcast sends an event to every member of a room. Callers emitting events of one
// session from a single goroutine get them delivered in the same order to every member.
func (h *Hub) Broadcast(ctx context.Context, sessionID, event string, payload any) {
	b, err := encode(event, payload)
	if err != nil {
		slog.ErrorContext(ctx, "room: encode failed", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	members := make([]*Conn, 0, len(h.rooms[sessionID]))
	for _, c := range h.rooms[sessionID] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		h.deliver(ctx, c, b)
	}

	if h.c.Mirror != nil {
		h.c.Mirror.Mirror(ctx, sessionID, b)
	}
}

// Unicast sends an event to a single connection.
func (h *Hub) Unicast(ctx context.Context, connectionID, event string, payload any) {
	b, err := encode(event, payload)
	if err != nil {
		slog.ErrorContext(ctx, "room: encode failed", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	c, ok := h.conns[connectionID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	h.deliver(ctx, c, b)
}

// Members returns the connection ids of a room.
func (h *Hub) Members(sessionID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.rooms[sessionID]))
	for id := range h.rooms[sessionID] {
		out = append(out, id)
	}
	return out
}

// Close closes every connection.
func (h *Hub) Close() {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.close()
	}
}

func (h *Hub) deliver(ctx context.Context, c *Conn, b []byte) {
	select {
	case c.send <- b:
	case <-c.done:
	default:
		slog.WarnContext(ctx, "room: send buffer full, closing connection", "connection", c.id)
		c.close()
	}
}

func (h *Hub) remove(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c.id]; !ok {
		return
	}

	delete(h.conns, c.id)
	if c.room != "" {
		delete(h.rooms[c.room], c.id)
	}
	telemetry.ConnectionsActive.Dec()
}

func encode(event string, payload any) ([]byte, error) {
	return json.Marshal(domain.Notification{Event: event, Data: payload})
}
