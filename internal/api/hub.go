package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/semih-duru/agent-capabilities-simulator/internal/logging"
	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
	readWait   = 60 * time.Second

	// subscriberBuffer is how many events a slow client may lag behind
	// before further events are dropped for it.
	subscriberBuffer = 256
)

// EventMessage is the websocket frame sent for every appended game event.
type EventMessage struct {
	SessionID string           `json:"session_id"`
	Event     models.GameEvent `json:"event"`
}

// Hub fans game events out to websocket subscribers. It implements
// engine.EventSink. Publish never blocks: a subscriber whose buffer is
// full misses the event.
type Hub struct {
	mu       sync.Mutex
	subs     map[chan []byte]struct{}
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHub creates a Hub with no subscribers.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Hub{
		subs:   make(map[chan []byte]struct{}),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Publish implements engine.EventSink.
func (h *Hub) Publish(sessionID string, ev models.GameEvent) {
	b, err := json.Marshal(EventMessage{SessionID: sessionID, Event: ev})
	if err != nil {
		h.logger.Warn("failed to encode event", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- b:
		default:
			h.logger.Debug("dropping event for slow subscriber", "session", sessionID, "title", ev.Title)
		}
	}
}

// Subscribe registers a new subscriber. The returned function unregisters
// it and closes the channel.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeHTTP upgrades the request to a websocket and streams events until
// the client disconnects or the request context ends. Client messages are
// read and discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return
	}
	defer conn.Close()

	events, unsubscribe := h.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reader: keeps pong handling alive and notices disconnects.
	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"), time.Now().Add(time.Second))
			return
		case b, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
