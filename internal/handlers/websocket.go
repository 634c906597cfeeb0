package handlers

import (
	"net/http"
	"time"

	"ausflug-backend/internal/catalog"
	"ausflug-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const wsReadLimit = 512

// WebSocketHandler streams rating updates of one excursion
type WebSocketHandler struct {
	hub              *services.RatingHub
	excursionService *services.ExcursionService
	upgrader         websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler. Browser origins must
// be listed in allowedOrigins; "*" allows any origin.
func NewWebSocketHandler(hub *services.RatingHub, excursionService *services.ExcursionService, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:              hub,
		excursionService: excursionService,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

// HandleWebSocket handles GET /ws?excursion_id=
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	excursionID := r.URL.Query().Get("excursion_id")
	if excursionID == "" {
		respondError(w, "excursion_id is required", http.StatusBadRequest)
		return
	}

	excursion, err := h.excursionService.Get(r.Context(), excursionID)
	if err != nil {
		respondServiceError(w, err, "Excursion")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	conn.SetReadLimit(wsReadLimit)

	// nothing else writes to conn until it is registered
	rating := catalog.Of(*excursion)
	if err := conn.WriteJSON(services.WSMessage{
		Type:          "rating_snapshot",
		ExcursionID:   excursionID,
		AverageRating: rating.Average,
		ReviewCount:   rating.Count,
		Display:       rating.Display(),
		Timestamp:     time.Now().UnixMilli(),
	}); err != nil {
		log.Warn().Err(err).Str("excursion_id", excursionID).Msg("Failed to send rating snapshot")
		conn.Close()
		return
	}

	h.hub.Register(excursionID, conn)
	defer h.hub.Unregister(excursionID, conn)

	log.Info().Str("excursion_id", excursionID).Msg("WebSocket connection established")

	// Clients only listen; reading drives control frames and detects close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("excursion_id", excursionID).Msg("WebSocket error")
			}
			return
		}
	}
}

// originChecker allows requests without an Origin header (native clients)
// and browser requests from the configured origins
func originChecker(allowed []string) func(r *http.Request) bool {
	set := newOriginSet(allowed)
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set.allows(origin)
	}
}
