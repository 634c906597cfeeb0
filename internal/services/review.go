package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ausflug-backend/internal/catalog"
	"ausflug-backend/internal/metrics"
	"ausflug-backend/internal/models"
	"ausflug-backend/internal/repository"
	"ausflug-backend/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RatingEvent describes a new review and the aggregate it produced
type RatingEvent struct {
	ExcursionID    string
	ExcursionTitle string
	AuthorID       string
	ReviewerID     string
	ReviewerName   string
	ReviewRating   int
	Rating         catalog.Rating
}

// RatingListener is told about every stored review
type RatingListener interface {
	RatingChanged(ctx context.Context, event RatingEvent)
}

// ReviewResult is a stored review with the excursion's new aggregate
type ReviewResult struct {
	Review *models.Review `json:"review"`
	Rating catalog.Rating `json:"rating"`
}

// ReviewService handles review-related business logic
type ReviewService struct {
	reviews    ReviewStore
	excursions ExcursionStore
	listeners  []RatingListener
	now        func() time.Time
}

// NewReviewService creates a new review service
func NewReviewService(reviews ReviewStore, excursions ExcursionStore, listeners ...RatingListener) *ReviewService {
	return &ReviewService{
		reviews:    reviews,
		excursions: excursions,
		listeners:  listeners,
		now:        time.Now,
	}
}

// List returns an excursion's reviews, newest first
func (s *ReviewService) List(ctx context.Context, excursionID string) ([]models.Review, error) {
	if _, err := s.excursion(ctx, excursionID); err != nil {
		return nil, err
	}
	return s.reviews.ListByExcursion(ctx, excursionID)
}

// Rating returns the stored aggregate of an excursion
func (s *ReviewService) Rating(ctx context.Context, excursionID string) (catalog.Rating, error) {
	e, err := s.excursion(ctx, excursionID)
	if err != nil {
		return catalog.Rating{}, err
	}
	return catalog.Of(*e), nil
}

// Create stores the user's review and recomputes the excursion's aggregate.
// A user reviews an excursion at most once.
func (s *ReviewService) Create(ctx context.Context, user *models.User, excursionID string, in models.ReviewInput) (*ReviewResult, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}
	in.Comment = strings.TrimSpace(in.Comment)
	if err := validation.ValidateStruct(&in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	e, err := s.excursion(ctx, excursionID)
	if err != nil {
		return nil, err
	}

	exists, err := s.reviews.Exists(ctx, excursionID, user.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyReviewed
	}

	review := &models.Review{
		ReviewInput: in,
		ID:          uuid.New().String(),
		ExcursionID: excursionID,
		UserID:      user.ID,
		UserName:    user.Name,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}

	metrics.ReviewsCreated.Inc()

	rating, err := s.recompute(ctx, excursionID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("excursion_id", excursionID).
		Str("user_id", user.ID).
		Int("rating", in.Rating).
		Float64("average_rating", rating.Average).
		Int("review_count", rating.Count).
		Msg("Review created")

	event := RatingEvent{
		ExcursionID:    excursionID,
		ExcursionTitle: e.Title,
		AuthorID:       e.AuthorID,
		ReviewerID:     user.ID,
		ReviewerName:   user.Name,
		ReviewRating:   in.Rating,
		Rating:         rating,
	}
	for _, l := range s.listeners {
		l.RatingChanged(ctx, event)
	}

	return &ReviewResult{Review: review, Rating: rating}, nil
}

// recompute aggregates every review of the excursion and stores the result
// in one store call
func (s *ReviewService) recompute(ctx context.Context, excursionID string) (catalog.Rating, error) {
	average, count, err := s.excursions.RefreshRating(ctx, excursionID)
	if err != nil {
		return catalog.Rating{}, fmt.Errorf("failed to store rating: %w", err)
	}
	return catalog.Rating{Average: average, Count: count}.Rounded(), nil
}

func (s *ReviewService) excursion(ctx context.Context, id string) (*models.Excursion, error) {
	e, err := s.excursions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}
