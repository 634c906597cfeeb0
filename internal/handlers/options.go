package handlers

import (
	"net/http"

	"ausflug-backend/internal/models"
	"ausflug-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// OptionsHandler serves the static select lists
type OptionsHandler struct {
	regions *services.RegionDirectory
}

// NewOptionsHandler creates a new options handler
func NewOptionsHandler(regions *services.RegionDirectory) *OptionsHandler {
	return &OptionsHandler{regions: regions}
}

// Cantons handles GET /api/cantons
func (h *OptionsHandler) Cantons(w http.ResponseWriter, r *http.Request) {
	cantons, err := h.regions.Cantons(r.Context())
	if err != nil {
		respondServiceError(w, err, "Country")
		return
	}
	respondJSON(w, http.StatusOK, cantons)
}

// Regions handles GET /api/regions/{country}
func (h *OptionsHandler) Regions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.regions.Lookup(r.Context(), chi.URLParam(r, "country"))
	if err != nil {
		respondServiceError(w, err, "Country")
		return
	}
	respondJSON(w, http.StatusOK, regions)
}

// Categories handles GET /api/categories
func (h *OptionsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.Categories)
}

// ParkingSituations handles GET /api/parking-situations
func (h *OptionsHandler) ParkingSituations(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.ParkingSituations)
}

// Countries handles GET /api/countries
func (h *OptionsHandler) Countries(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.Countries)
}
