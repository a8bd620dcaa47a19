package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nexcar/rwe-km/internal/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 16
)

// Any origin may connect.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// ViewSource is the part of the dashboard service the hub needs.
type ViewSource interface {
	View() services.View
	Subscribe(fn func(services.View)) (cancel func())
}

// Hub fans dashboard views out to connected websocket clients.
type Hub struct {
	logger *slog.Logger
	source ViewSource

	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	mu         sync.RWMutex
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub constructs a hub fed by source.
func NewHub(logger *slog.Logger, source ViewSource) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:     logger,
		source:     source,
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, clientSendSize),
		done:       make(chan struct{}),
	}
}

// Run subscribes to view changes and serves the client set until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	cancel := h.source.Subscribe(h.Broadcast)
	defer cancel()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("websocket client registered", slog.String("remote", c.conn.RemoteAddr().String()))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client unregistered", slog.String("remote", c.conn.RemoteAddr().String()))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow consumer; it reconnects and gets the current view.
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues a view for every client, dropping it when the queue is full.
func (h *Hub) Broadcast(view services.View) {
	msg, err := json.Marshal(view)
	if err != nil {
		h.logger.Error("marshal view failed", slog.Any("error", err))
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast queue full, dropping view", slog.Uint64("version", view.Version))
	}
}

// HandleWebSocket upgrades the connection and streams views to it, starting
// with the current one.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	initial, err := json.Marshal(h.source.View())
	if err != nil {
		h.logger.Error("marshal view failed", slog.Any("error", err))
		conn.Close()
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, clientSendSize)}
	c.send <- initial
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump drains control frames so pongs are processed; client messages are ignored.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed", slog.Any("error", err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
