package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/your-org/suspectwatch/internal/models"
	"github.com/your-org/suspectwatch/internal/observability"
	"github.com/your-org/suspectwatch/pkg/dto"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client represents a connected WebSocket client.
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	deviceID string // optional filter
	matched  bool   // only matched sightings
}

type message struct {
	deviceID string
	matched  bool
	data     []byte
}

// Hub maintains active WebSocket clients and broadcasts sightings.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan message
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub event loop. Call this in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			observability.WSConnections.Inc()
			slog.Debug("ws client connected", "device_filter", client.deviceID)

		case client := <-h.unregister:
			h.remove(client)
			slog.Debug("ws client disconnected")

		case msg := <-h.broadcast:
			var slow []*Client
			h.mu.RLock()
			for client := range h.clients {
				if !client.wants(msg) {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			// Client buffer full, disconnect.
			for _, client := range slow {
				h.remove(client)
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		observability.WSConnections.Dec()
	}
}

func (c *Client) wants(msg message) bool {
	if c.deviceID != "" && c.deviceID != msg.deviceID {
		return false
	}
	if c.matched && !msg.matched {
		return false
	}
	return true
}

// NewEvent converts a worker result into the message sent to clients.
func NewEvent(res models.SightingResult) dto.WSEvent {
	evtType := "face_sighted"
	if res.MatchedSuspectID != nil {
		evtType = "suspect_sighted"
	}
	return dto.WSEvent{
		Type:     evtType,
		DeviceID: res.DeviceID,
		Name:     res.MatchedName,
		Data: dto.SightingResponse{
			ID:               res.SightingID,
			ObservationID:    res.ObservationID,
			DeviceID:         res.DeviceID,
			TrackID:          res.TrackID,
			Timestamp:        res.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
			BBox:             res.BBox,
			MatchedSuspectID: res.MatchedSuspectID,
			MatchScore:       res.MatchScore,
			Latitude:         res.Latitude,
			Longitude:        res.Longitude,
		},
	}
}

// BroadcastSighting sends a sighting to all interested clients.
func (h *Hub) BroadcastSighting(res models.SightingResult) {
	data, err := json.Marshal(NewEvent(res))
	if err != nil {
		slog.Error("marshal ws event", "error", err)
		return
	}
	h.broadcast <- message{deviceID: res.DeviceID, matched: res.MatchedSuspectID != nil, data: data}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS handles WebSocket upgrade requests. Query parameters device_id
// and matched=true narrow the feed.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "error", err)
		return
	}

	client := &Client{
		conn:     conn,
		send:     make(chan []byte, 64),
		deviceID: c.Query("device_id"),
		matched:  c.Query("matched") == "true",
	}

	h.register <- client

	go client.writePump()
	go client.readPump(h)
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	for {
		// Incoming messages are ignored; reading detects disconnects.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
