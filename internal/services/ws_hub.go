package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ausflug-backend/internal/metrics"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const wsWriteTimeout = 10 * time.Second

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type          string  `json:"type"`
	ExcursionID   string  `json:"excursion_id,omitempty"`
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
	Display       string  `json:"display,omitempty"`
	Timestamp     int64   `json:"timestamp,omitempty"`
	Message       string  `json:"message,omitempty"`
}

// wsClient serializes writes to one connection
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// RatingHub fans rating updates out to the connections watching an excursion
type RatingHub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*websocket.Conn]*wsClient
}

// NewRatingHub creates a new WebSocket hub
func NewRatingHub() *RatingHub {
	return &RatingHub{
		subscribers: make(map[string]map[*websocket.Conn]*wsClient),
	}
}

// Register subscribes conn to updates of one excursion
func (h *RatingHub) Register(excursionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.subscribers[excursionID]
	if !ok {
		conns = make(map[*websocket.Conn]*wsClient)
		h.subscribers[excursionID] = conns
	}
	conns[conn] = &wsClient{conn: conn}
	metrics.WSConnections.Inc()

	log.Debug().Str("excursion_id", excursionID).Int("subscribers", len(conns)).Msg("WebSocket connection registered")
}

// Unregister removes and closes conn
func (h *RatingHub) Unregister(excursionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.subscribers[excursionID]
	if !ok {
		return
	}
	if _, exists := conns[conn]; exists {
		conn.Close()
		delete(conns, conn)
		metrics.WSConnections.Dec()
		log.Debug().Str("excursion_id", excursionID).Msg("WebSocket connection unregistered")
	}
	if len(conns) == 0 {
		delete(h.subscribers, excursionID)
	}
}

// Subscribers returns the number of connections watching an excursion
func (h *RatingHub) Subscribers(excursionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[excursionID])
}

// Broadcast sends message to every subscriber of an excursion and returns
// how many received it. Connections that fail to write are dropped.
func (h *RatingHub) Broadcast(excursionID string, message WSMessage) (int, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal message: %w", err)
	}

	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.subscribers[excursionID]))
	for _, c := range h.subscribers[excursionID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range clients {
		if err := c.write(data); err != nil {
			log.Warn().Err(err).Str("excursion_id", excursionID).Msg("Failed to send message, dropping connection")
			h.Unregister(excursionID, c.conn)
			continue
		}
		sent++
		metrics.WSMessagesSent.Inc()
	}
	return sent, nil
}

// RatingChanged pushes the new aggregate to the excursion's subscribers
func (h *RatingHub) RatingChanged(_ context.Context, event RatingEvent) {
	msg := WSMessage{
		Type:          "rating_updated",
		ExcursionID:   event.ExcursionID,
		AverageRating: event.Rating.Average,
		ReviewCount:   event.Rating.Count,
		Display:       event.Rating.Display(),
		Timestamp:     time.Now().UnixMilli(),
	}
	if _, err := h.Broadcast(event.ExcursionID, msg); err != nil {
		log.Error().Err(err).Str("excursion_id", event.ExcursionID).Msg("Failed to broadcast rating update")
	}
}

// Close disconnects every subscriber
func (h *RatingHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conns := range h.subscribers {
		for conn := range conns {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			conn.Close()
			metrics.WSConnections.Dec()
		}
		delete(h.subscribers, id)
	}
}
