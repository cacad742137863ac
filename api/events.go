/*
events.go - Live collection events over websocket

PURPOSE:
  Pushes every collection outcome (scheduled or manual) to connected
  dashboards, so the UI refreshes without polling. Read direction is
  only used to detect the peer going away.
*/
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/solarwatch/pv-compare/recon"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// CollectionEvent is the wire form of one collection outcome.
type CollectionEvent struct {
	Type     string  `json:"type"`
	TimeSlot string  `json:"time_slot"`
	Date     string  `json:"date"`
	Status   string  `json:"status"`
	Forecast float64 `json:"forecast"`
	Actual   float64 `json:"actual"`
	Message  string  `json:"message"`
}

// Client is one connected dashboard.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub manages websocket clients and broadcasts collection events.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast sends a message to all connected clients. Slow clients
// are skipped rather than blocking a collection.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Printf("[Events] client buffer full, dropping message")
		}
	}
}

// BroadcastOutcome publishes one collection outcome.
func (h *Hub) BroadcastOutcome(out recon.Outcome) {
	msg, err := json.Marshal(CollectionEvent{
		Type:     "collection",
		TimeSlot: string(out.Slot),
		Date:     out.Date.String(),
		Status:   string(out.Status),
		Forecast: out.ForecastWh,
		Actual:   out.ActualWh,
		Message:  out.Message(),
	})
	if err != nil {
		log.Printf("[Events] encoding outcome: %v", err)
		return
	}
	h.Broadcast(msg)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the connection and registers the client.
// GET /ws
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Events] websocket upgrade: %v", err)
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, 64)}
	h.Register(client)
	go client.writePump()
	client.readPump()
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump discards inbound frames; it exists to notice the close.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
