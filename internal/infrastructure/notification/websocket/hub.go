package websocket

import (
	"sync"

	"github.com/dreschagin/seqpulse/internal/application/dto"
	"github.com/dreschagin/seqpulse/pkg/logger"
)

// Hub fans verdict notifications out to connected dashboard clients. It
// implements port.Notifier; notify jobs push into it, clients subscribe over
// a websocket upgrade.
type Hub struct {
	clients map[*Client]bool

	notify chan *dto.VerdictNotification

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	logger *logger.Logger
}

func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		notify:     make(chan *dto.VerdictNotification, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run must be started in its own goroutine before any client connects.
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("Client registered", "total_clients", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("Client unregistered", "total_clients", h.ClientCount())

		case notification := <-h.notify:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- Message{Type: "verdict", Data: notification}:
				default:
					// Client channel full, drop the connection.
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("Client channel full, disconnected")
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// NotifyVerdict queues a notification for broadcast. A full queue drops the
// notification; delivery here is best-effort, the verdict row is the durable
// record.
func (h *Hub) NotifyVerdict(notification *dto.VerdictNotification) {
	select {
	case h.notify <- notification:
	default:
		h.logger.Warn("Notify channel full, dropping notification",
			"release_id", notification.ReleaseID,
		)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Message is the wire envelope sent to clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}
