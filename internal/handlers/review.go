package handlers

import (
	"net/http"

	"ausflug-backend/internal/catalog"
	"ausflug-backend/internal/middleware"
	"ausflug-backend/internal/models"
	"ausflug-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// RatingResponse is the aggregate of an excursion with its display text
type RatingResponse struct {
	catalog.Rating
	Display string `json:"display"`
}

func newRatingResponse(r catalog.Rating) RatingResponse {
	return RatingResponse{Rating: r, Display: r.Display()}
}

// ReviewHandler handles review-related HTTP requests
type ReviewHandler struct {
	reviewService *services.ReviewService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviewService *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// List handles GET /api/excursions/{id}/reviews
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	reviews, err := h.reviewService.List(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Excursion")
		return
	}

	respondJSON(w, http.StatusOK, reviews)
}

// Create handles POST /api/excursions/{id}/reviews
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.SessionFrom(r.Context()).CurrentUser()
	id := chi.URLParam(r, "id")

	var in models.ReviewInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.reviewService.Create(r.Context(), user, id, in)
	if err != nil {
		log.Warn().Err(err).Str("excursion_id", id).Str("user_id", user.ID).Msg("Failed to create review")
		respondServiceError(w, err, "Excursion")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"review": result.Review,
		"rating": newRatingResponse(result.Rating),
	})
}

// Rating handles GET /api/excursions/{id}/rating
func (h *ReviewHandler) Rating(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rating, err := h.reviewService.Rating(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Excursion")
		return
	}

	respondJSON(w, http.StatusOK, newRatingResponse(rating))
}
