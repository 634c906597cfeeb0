package repository

import (
	"context"
	"fmt"

	"ausflug-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PhotoRepository handles database operations for photos
type PhotoRepository struct {
	db *pgxpool.Pool
}

// NewPhotoRepository creates a new photo repository
func NewPhotoRepository(db *pgxpool.Pool) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Create appends a photo to its excursion
func (r *PhotoRepository) Create(ctx context.Context, photo *models.Photo) error {
	query := `
		INSERT INTO photos (id, excursion_id, user_id, name, content_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		photo.ID, photo.ExcursionID, photo.UserID, photo.Name, photo.ContentType, photo.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create photo: %w", err)
	}
	return nil
}

// GetByName retrieves a photo by its stored file name
func (r *PhotoRepository) GetByName(ctx context.Context, name string) (*models.Photo, error) {
	query := `
		SELECT id, excursion_id, user_id, name, content_type, created_at
		FROM photos
		WHERE name = $1
	`
	var photo models.Photo
	err := r.db.QueryRow(ctx, query, name).Scan(
		&photo.ID, &photo.ExcursionID, &photo.UserID, &photo.Name, &photo.ContentType, &photo.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", notFound("photo", err))
	}
	return &photo, nil
}

// ListNames returns the photo names of an excursion in upload order
func (r *PhotoRepository) ListNames(ctx context.Context, excursionID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT name FROM photos WHERE excursion_id = $1 ORDER BY seq`, excursionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}

	return names, nil
}

// Delete removes a photo from its excursion
func (r *PhotoRepository) Delete(ctx context.Context, excursionID, name string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM photos WHERE excursion_id = $1 AND name = $2`, excursionID, name)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("photo %w", ErrNotFound)
	}
	return nil
}
