package websocket

import (
	"net/http"

	"github.com/dreschagin/seqpulse/pkg/logger"
	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP connections and attaches them to the hub.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

func NewHandler(hub *Hub, allowedOrigins []string, log *logger.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}
				return false
			},
		},
		logger: log,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", err, "remote", r.RemoteAddr)
		return
	}

	client := NewClient(h.hub, conn, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
