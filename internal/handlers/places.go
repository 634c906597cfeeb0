package handlers

import (
	"errors"
	"net/http"

	"ausflug-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// PlacesHandler proxies place suggestions and geocoding
type PlacesHandler struct {
	places services.PlacesProvider
}

// NewPlacesHandler creates a new places handler
func NewPlacesHandler(places services.PlacesProvider) *PlacesHandler {
	return &PlacesHandler{places: places}
}

// Search handles GET /api/places/search?q=
func (h *PlacesHandler) Search(w http.ResponseWriter, r *http.Request) {
	places, err := h.places.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logUpstream(err)
		respondServiceError(w, err, "Place")
		return
	}
	respondJSON(w, http.StatusOK, places)
}

// Geocode handles GET /api/places/geocode?address=
func (h *PlacesHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	place, err := h.places.Geocode(r.Context(), r.URL.Query().Get("address"))
	if err != nil {
		h.logUpstream(err)
		respondServiceError(w, err, "Place")
		return
	}
	respondJSON(w, http.StatusOK, place)
}

func (h *PlacesHandler) logUpstream(err error) {
	if errors.Is(err, services.ErrPlacesUnavailable) {
		log.Warn().Err(err).Msg("Places provider unavailable")
	}
}
