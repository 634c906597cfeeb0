package repository

import (
	"context"
	"fmt"

	"ausflug-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ReviewRepository handles database operations for reviews
type ReviewRepository struct {
	db *pgxpool.Pool
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create stores a review. A second review by the same user on the same
// excursion fails with ErrDuplicate.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (id, excursion_id, user_id, user_name, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		review.ID, review.ExcursionID, review.UserID, review.UserName,
		review.Rating, review.Comment, review.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("review: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// Exists reports whether the user already reviewed the excursion
func (r *ReviewRepository) Exists(ctx context.Context, excursionID, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM reviews WHERE excursion_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, excursionID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check review existence: %w", err)
	}
	return exists, nil
}

// ListByExcursion returns the reviews of an excursion, newest first
func (r *ReviewRepository) ListByExcursion(ctx context.Context, excursionID string) ([]models.Review, error) {
	query := `
		SELECT id, excursion_id, user_id, user_name, rating, comment, created_at
		FROM reviews
		WHERE excursion_id = $1
		ORDER BY created_at DESC, id
	`
	rows, err := r.db.Query(ctx, query, excursionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]models.Review, 0)
	for rows.Next() {
		var review models.Review
		err := rows.Scan(
			&review.ID, &review.ExcursionID, &review.UserID, &review.UserName,
			&review.Rating, &review.Comment, &review.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}

	return reviews, nil
}
