package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ausflug-backend/internal/catalog"
	"ausflug-backend/internal/middleware"
	"ausflug-backend/internal/models"
	"ausflug-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// ExcursionHandler handles excursion-related HTTP requests
type ExcursionHandler struct {
	excursionService *services.ExcursionService
	maxUploadBytes   int64
}

// NewExcursionHandler creates a new excursion handler
func NewExcursionHandler(excursionService *services.ExcursionService, maxUploadBytes int64) *ExcursionHandler {
	return &ExcursionHandler{
		excursionService: excursionService,
		maxUploadBytes:   maxUploadBytes,
	}
}

// List handles GET /api/excursions
func (h *ExcursionHandler) List(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromQuery(r.URL.Query())
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	excursions, err := h.excursionService.List(r.Context(), criteria)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list excursions")
		respondServiceError(w, err, "Excursion")
		return
	}

	respondJSON(w, http.StatusOK, excursions)
}

// Featured handles GET /api/excursions/featured
func (h *ExcursionHandler) Featured(w http.ResponseWriter, r *http.Request) {
	limit := catalog.DefaultFeaturedLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > 100 {
			respondError(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	featured, err := h.excursionService.Featured(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load featured excursions")
		respondServiceError(w, err, "Excursion")
		return
	}

	respondJSON(w, http.StatusOK, featured)
}

// Get handles GET /api/excursions/{id}
func (h *ExcursionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	excursion, err := h.excursionService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Excursion")
		return
	}

	respondJSON(w, http.StatusOK, excursion)
}

// Create handles POST /api/excursions. A JSON body creates the record only;
// a multipart body carries the record in the "excursion" part and photos in
// "files".
func (h *ExcursionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.SessionFrom(r.Context()).CurrentUser()

	var (
		in      models.ExcursionInput
		uploads []services.PhotoUpload
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := parseMultipart(w, r, h.maxUploadBytes); err != nil {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}
		raw := r.FormValue("excursion")
		if raw == "" {
			respondError(w, "excursion part is required", http.StatusBadRequest)
			return
		}
		if err := json.Unmarshal([]byte(raw), &in); err != nil {
			respondError(w, "invalid excursion part", http.StatusBadRequest)
			return
		}
		var err error
		uploads, err = readUploads(r.MultipartForm.File["files"])
		if err != nil {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}
	} else if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.excursionService.CreateWithPhotos(r.Context(), user, in, uploads)
	if err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to create excursion")
		respondServiceError(w, err, "Excursion")
		return
	}

	if result.Warning == "" && result.Photos == nil {
		respondJSON(w, http.StatusCreated, result.Excursion)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// Update handles PUT /api/excursions/{id}
func (h *ExcursionHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.SessionFrom(r.Context()).CurrentUser()
	id := chi.URLParam(r, "id")

	var in models.ExcursionInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	excursion, err := h.excursionService.Update(r.Context(), user, id, in)
	if err != nil {
		log.Warn().Err(err).Str("excursion_id", id).Str("user_id", user.ID).Msg("Failed to update excursion")
		respondServiceError(w, err, "Excursion")
		return
	}

	respondJSON(w, http.StatusOK, excursion)
}

// Delete handles DELETE /api/excursions/{id}
func (h *ExcursionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.SessionFrom(r.Context()).CurrentUser()
	id := chi.URLParam(r, "id")

	if err := h.excursionService.Delete(r.Context(), user, id); err != nil {
		log.Warn().Err(err).Str("excursion_id", id).Str("user_id", user.ID).Msg("Failed to delete excursion")
		respondServiceError(w, err, "Excursion")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Excursion deleted successfully"})
}

// criteriaFromQuery reads the list filters. Boolean filters are tri-state:
// absent, true or false.
func criteriaFromQuery(q url.Values) (catalog.Criteria, error) {
	c := catalog.Criteria{
		Query:    strings.TrimSpace(firstNonEmpty(q.Get("q"), q.Get("search"))),
		Country:  q.Get("country"),
		Region:   firstNonEmpty(q.Get("region"), q.Get("canton")),
		Category: q.Get("category"),
	}

	flags := []struct {
		name string
		dst  **bool
	}{
		{"is_free", &c.IsFree},
		{"is_outdoor", &c.IsOutdoor},
		{"has_grill", &c.HasGrill},
	}
	for _, f := range flags {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c, fmt.Errorf("%s must be true or false", f.name)
		}
		*f.dst = &b
	}
	return c, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
