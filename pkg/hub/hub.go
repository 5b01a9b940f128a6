package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-mctrack/internal/log"
)

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Name for logging
	name string
	log  *slog.Logger

	// Registered clients
	clients map[*Client]bool

	// Inbound messages to broadcast
	broadcast chan Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Guards clients for ClientCount
	mu sync.RWMutex

	// Last broadcast message, served to late joiners and snapshots
	latest   Message
	latestMu sync.RWMutex

	running atomic.Bool
	dropped atomic.Int64
	done    chan struct{}
}

// New creates a new Hub
func New(name string) *Hub {
	return &Hub{
		name:       name,
		log:        log.Component("hub").With("hub", name),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run runs the hub's main loop until ctx is cancelled, then disconnects
// every client. It should be called in a goroutine.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		h.mu.Lock()
		for client := range h.clients {
			close(client.send)
			delete(h.clients, client)
		}
		h.mu.Unlock()
		close(h.done)
		h.log.Debug("hub stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Info("🔌 client connected", "clients", count)

			// Late joiners start from the most recent message
			if msg, ok := h.Latest(); ok {
				client.send <- msg
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Info("🔌 client disconnected", "clients", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's buffer is full - they're too slow
					close(client.send)
					delete(h.clients, client)
					h.log.Warn("dropped slow client")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(msg Message) {
	h.latestMu.Lock()
	h.latest = msg
	h.latestMu.Unlock()

	select {
	case h.broadcast <- msg:
	default:
		// Broadcast channel full - drop message
		if h.dropped.Add(1)%100 == 1 {
			h.log.Warn("broadcast channel full, dropping messages", "dropped", h.dropped.Load())
		}
	}
}

// BroadcastJSON encodes and broadcasts a JSON message
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// BroadcastBinary broadcasts binary data (camera frames)
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinaryMessage(data))
}

// Latest returns the most recently broadcast message.
func (h *Hub) Latest() (Message, bool) {
	h.latestMu.RLock()
	defer h.latestMu.RUnlock()
	return h.latest, h.latest.Data != nil
}

// Dropped returns how many broadcasts were dropped on a full channel.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning returns whether the hub is running
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Name returns the hub name.
func (h *Hub) Name() string {
	return h.name
}
