package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

const EventInvalidate = "invalidate"

// Event tells connected views which collections to re-fetch.
type Event struct {
	Type        string    `json:"type"`
	Collections []string  `json:"collections"`
	Timestamp   time.Time `json:"timestamp"`
}

// Hub fans refresh events out to every connected client. The client set is
// owned by the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}

	log *zap.Logger

	mu    sync.RWMutex
	count int
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		log:        log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.setCount(0)
			return

		case c := <-h.register:
			h.clients[c] = true
			h.setCount(len(h.clients))
			h.log.Debug("realtime client registered", zap.Uint("user_id", c.userID))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.setCount(len(h.clients))
			h.log.Debug("realtime client unregistered", zap.Uint("user_id", c.userID))

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// slow consumer
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.setCount(len(h.clients))
		}
	}
}

// Publish never blocks the caller; events are dropped if the hub is backed up.
func (h *Hub) Publish(_ context.Context, collections ...string) {
	if len(collections) == 0 {
		return
	}

	data, err := json.Marshal(Event{
		Type:        EventInvalidate,
		Collections: collections,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		h.log.Error("realtime marshal failed", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.log.Warn("realtime broadcast queue full, dropping event",
			zap.Strings("collections", collections))
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}
