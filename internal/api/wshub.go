package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"coinmint/internal/market"
)

// WSMessage is one JSON frame pushed to connected clients.
type WSMessage struct {
	Type      string `json:"type"`
	AssetID   string `json:"asset_id"`
	Direction string `json:"direction,omitempty"`
	Price     string `json:"price,omitempty"`
}

// Hub fans market events out to every connected WebSocket client. It
// implements market.Sink, so the simulator pushes shocks into it
// directly; a full broadcast buffer drops frames rather than stalling a
// tick. The Run goroutine is the only writer on any connection: the
// websocket package does not support concurrent writes, so broadcasts
// and keepalive pings are both serialized through the hub loop.
type Hub struct {
	log       *slog.Logger
	pingEvery time.Duration

	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		log:        logger,
		pingEvery:  30 * time.Second,
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Shock satisfies market.Sink.
func (h *Hub) Shock(ev market.ShockEvent) {
	h.Broadcast(WSMessage{
		Type:      "shock",
		AssetID:   ev.AssetID,
		Direction: ev.Direction,
		Price:     ev.NewPrice.StringFixed(2),
	})
}

// Run drives the hub loop. Must be called in a goroutine. All writes to
// client connections happen here and nowhere else.
func (h *Hub) Run() {
	ping := time.NewTicker(h.pingEvery)
	defer ping.Stop()
	for {
		select {
		case conn := <-h.register:
			h.clients[conn] = true
			h.log.Info("ws client connected", "total", len(h.clients))

		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}

		case msg := <-h.broadcast:
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}

		case <-ping.C:
			// Keepalive through proxies; a failed ping drops the client.
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
		}
	}
}

// Broadcast queues a frame for every client, dropping it when the
// buffer is full.
func (h *Hub) Broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

// HandleWS upgrades the connection and keeps it registered until the
// peer goes away. The read pump only detects disconnects; all outbound
// traffic flows through the hub loop.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("ws upgrade failed", "err", err)
		return
	}

	h.register <- conn

	go func() {
		defer func() { h.unregister <- conn }()
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}
