package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Event is the envelope pushed to every connected viewer.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type Client struct {
	ID   string
	conn *websocket.Conn
	send chan []byte
}

// Relay carries events between instances. With a relay configured, Publish
// goes through it and every instance delivers what it receives locally.
type Relay interface {
	Publish(ctx context.Context, payload []byte) error
	Subscribe(ctx context.Context, deliver func([]byte)) error
}

type Hub struct {
	Logger zerolog.Logger
	Relay  Relay

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	wg         sync.WaitGroup
	done       chan struct{}
}

func NewHub(logger zerolog.Logger, relay Relay, allowedOrigins []string) *Hub {
	h := &Hub{
		Logger:     logger,
		Relay:      relay,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
	origins := map[string]bool{}
	for _, o := range allowedOrigins {
		if o != "" && o != "*" {
			origins[o] = true
		}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return len(origins) == 0 || origin == "" || origins[origin]
		},
	}
	return h
}

// Run owns the client set until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.Relay != nil {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			err := h.Relay.Subscribe(ctx, func(payload []byte) {
				select {
				case h.broadcast <- payload:
				case <-ctx.Done():
				}
			})
			if err != nil && ctx.Err() == nil {
				h.Logger.Error().Err(err).Msg("realtime relay subscription ended")
			}
		}()
	}

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.Logger.Debug().Str("client", c.ID).Int("total", total).Msg("ws connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.Logger.Warn().Str("client", c.ID).Msg("ws client too slow, dropping")
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.wg.Wait()
			return
		}
	}
}

// Publish fans an event out to viewers. Delivery is best effort and never
// fails the caller.
func (h *Hub) Publish(ctx context.Context, eventType string, data any) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		h.Logger.Warn().Err(err).Str("type", eventType).Msg("realtime event not serializable")
		return
	}
	if h.Relay != nil {
		err := h.Relay.Publish(ctx, payload)
		if err == nil {
			return
		}
		h.Logger.Warn().Err(err).Msg("realtime relay publish failed, delivering locally")
	}
	select {
	case h.broadcast <- payload:
	default:
		h.Logger.Warn().Str("type", eventType).Msg("realtime broadcast buffer full, event dropped")
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and keeps the viewer registered until the
// connection closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	c := &Client{ID: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *Client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Logger.Debug().Err(err).Str("client", c.ID).Msg("ws closed unexpectedly")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
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
				h.Logger.Debug().Err(err).Str("client", c.ID).Msg("ws write failed")
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
