package handlers

import (
	"errors"
	"net/http"

	"ausflug-backend/internal/middleware"
	"ausflug-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// PhotoHandler handles photo-related HTTP requests
type PhotoHandler struct {
	excursionService *services.ExcursionService
	maxUploadBytes   int64
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(excursionService *services.ExcursionService, maxUploadBytes int64) *PhotoHandler {
	return &PhotoHandler{
		excursionService: excursionService,
		maxUploadBytes:   maxUploadBytes,
	}
}

// Upload handles POST /api/excursions/{id}/photos
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := middleware.SessionFrom(r.Context()).CurrentUser()
	id := chi.URLParam(r, "id")

	if err := parseMultipart(w, r, h.maxUploadBytes); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	uploads, err := readUploads(r.MultipartForm.File["files"])
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.excursionService.AddPhotos(r.Context(), user, id, uploads)
	if err != nil {
		log.Error().
			Err(err).
			Str("excursion_id", id).
			Str("user_id", user.ID).
			Int("files", len(uploads)).
			Msg("Failed to upload photos")
		if errors.Is(err, services.ErrPhotoUpload) && result != nil {
			respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"detail": "Photo upload failed",
				"failed": result.Failed,
			})
			return
		}
		respondServiceError(w, err, "Excursion")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Delete handles DELETE /api/excursions/{id}/photos/{name}
func (h *PhotoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.SessionFrom(r.Context()).CurrentUser()
	id := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")

	if err := h.excursionService.DeletePhoto(r.Context(), user, id, name); err != nil {
		respondServiceError(w, err, "Photo")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Photo deleted successfully"})
}

// Serve handles GET /api/uploads/photos/{name} by redirecting to a
// short-lived object storage URL
func (h *PhotoHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	url, err := h.excursionService.PhotoURL(r.Context(), name)
	if err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			log.Error().Err(err).Str("photo", name).Msg("Failed to presign photo URL")
		}
		respondServiceError(w, err, "Photo")
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=60")
	http.Redirect(w, r, url, http.StatusFound)
}
