package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sgawallet/sga-wallet/asset"
	"github.com/sgawallet/sga-wallet/common/logger"
	"github.com/sgawallet/sga-wallet/connect"
	prt "github.com/sgawallet/sga-wallet/protocol"
)

// WSEventType event type
type WSEventType string

const (
	EventConnected           WSEventType = "connected"
	EventConnectionAdded     WSEventType = "connection_added"
	EventConnectionRemoved   WSEventType = "connection_removed"
	EventAssetsUpdated       WSEventType = "assets_updated"
	EventConnectionsSnapshot WSEventType = "connections"
	EventPairing             WSEventType = "pairing"
)

// WSMessage WebSocket message structure
type WSMessage struct {
	Event WSEventType `json:"event"`
	Data  interface{} `json:"data"`
}

// SnapshotProvider returns the messages a new client receives right after
// the handshake.
type SnapshotProvider func() []WSMessage

// WSHub client connection management
type WSHub struct {
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex

	upgrader websocket.Upgrader
	snapshot SnapshotProvider
}

var _ connect.Observer = (*WSHub)(nil)

// WSClient WebSocket client
type WSClient struct {
	hub  *WSHub
	conn *websocket.Conn
	send chan []byte
}

// NewWSHub creates new Hub. Browser clients must come from one of
// allowedOrigins; an empty list allows any origin.
func NewWSHub(allowedOrigins []string) *WSHub {
	h := &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     OriginChecker(allowedOrigins),
	}
	return h
}

// OriginChecker accepts requests without an Origin header (non-browser
// clients) and those whose Origin is listed.
func OriginChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(set) == 0 || set[origin]
	}
}

// SetSnapshotProvider sets what a freshly connected client is sent first.
func (h *WSHub) SetSnapshotProvider(provider SnapshotProvider) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = provider
}

// Run runs the Hub until Stop is called.
func (h *WSHub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			logger.Debug("WebSocket client connected. Total: ", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			logger.Debug("WebSocket client disconnected. Total: ", n)

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				logger.Error("Failed to marshal WebSocket message: ", err)
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// slow client
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *WSHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// publish never blocks; observers call it while holding their own locks.
func (h *WSHub) publish(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		logger.Warn("WebSocket broadcast queue full, dropping ", msg.Event)
	}
}

func (h *WSHub) ConnectionAdded(c prt.ChainConnection) {
	h.publish(WSMessage{Event: EventConnectionAdded, Data: c})
}

func (h *WSHub) ConnectionRemoved(family prt.Family, address string) {
	h.publish(WSMessage{Event: EventConnectionRemoved, Data: map[string]interface{}{
		"family":  family,
		"address": address,
	}})
}

// BroadcastPairing pushes a relay pairing URI for the user to scan.
func (h *WSHub) BroadcastPairing(family prt.Family, uri string) {
	h.publish(WSMessage{Event: EventPairing, Data: map[string]interface{}{
		"family": family,
		"uri":    uri,
	}})
}

// BroadcastAssets is an asset.Listener.
func (h *WSHub) BroadcastAssets(records []asset.AssetRecord) {
	if records == nil {
		records = []asset.AssetRecord{}
	}
	h.publish(WSMessage{Event: EventAssetsUpdated, Data: records})
}

// GetClientCount returns connected client count
func (h *WSHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket WebSocket connection handler
func HandleWebSocket(hub *WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := hub.upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("WebSocket upgrade error: ", err)
			return
		}

		client := &WSClient{
			hub:  hub,
			conn: conn,
			send: make(chan []byte, 256),
		}

		// Send connection success message to client
		welcome, _ := json.Marshal(WSMessage{
			Event: EventConnected,
			Data:  map[string]interface{}{"message": "Connected to sga-wallet WebSocket"},
		})
		client.send <- welcome

		hub.mu.RLock()
		provider := hub.snapshot
		hub.mu.RUnlock()
		if provider != nil {
			for _, msg := range provider() {
				if data, err := json.Marshal(msg); err == nil {
					select {
					case client.send <- data:
					default:
					}
				}
			}
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			conn.Close()
			return
		}

		// Start read/write goroutines
		go client.writePump()
		go client.readPump()
	}
}

// writePump sends message to client
func (c *WSClient) writePump() {
	defer c.conn.Close()

	for {
		message, ok := <-c.send
		if !ok {
			// If channel closed, send normal close message
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				logger.Error("WebSocket write error: ", err)
			} else {
				logger.Debug("WebSocket write closed: ", err)
			}
			return
		}
	}
}

// readPump receives message from client
func (c *WSClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			// 1000, 1001, 1005, 1006 are ordinary browser closes
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
				websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket read error: ", err)
			} else {
				logger.Debug("WebSocket client disconnected: ", err)
			}
			return
		}
		// client messages are ignored
	}
}
