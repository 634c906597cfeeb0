package repository

import (
	"context"
	"fmt"

	"ausflug-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExcursionRepository handles database operations for excursions
type ExcursionRepository struct {
	db *pgxpool.Pool
}

// NewExcursionRepository creates a new excursion repository
func NewExcursionRepository(db *pgxpool.Pool) *ExcursionRepository {
	return &ExcursionRepository{db: db}
}

const excursionSelect = `
	SELECT e.id, e.title, e.description, e.address, e.country, e.region, e.category, e.website_url,
	       e.has_grill, e.is_outdoor, e.is_free, e.parking_situation, e.parking_is_free,
	       e.author_id, e.author_name, e.average_rating, e.review_count, e.created_at,
	       COALESCE(array_agg(p.name ORDER BY p.seq) FILTER (WHERE p.name IS NOT NULL), '{}') AS photos
	FROM excursions e
	LEFT JOIN photos p ON p.excursion_id = e.id
`

func scanExcursion(row pgx.Row) (*models.Excursion, error) {
	var e models.Excursion
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Address, &e.Country, &e.Region, &e.Category, &e.WebsiteURL,
		&e.HasGrill, &e.IsOutdoor, &e.IsFree, &e.ParkingSituation, &e.ParkingIsFree,
		&e.AuthorID, &e.AuthorName, &e.AverageRating, &e.ReviewCount, &e.CreatedAt,
		&e.Photos,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create creates a new excursion
func (r *ExcursionRepository) Create(ctx context.Context, e *models.Excursion) error {
	query := `
		INSERT INTO excursions (
			id, title, description, address, country, region, category, website_url,
			has_grill, is_outdoor, is_free, parking_situation, parking_is_free,
			author_id, author_name, average_rating, review_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := r.db.Exec(ctx, query,
		e.ID, e.Title, e.Description, e.Address, e.Country, e.Region, e.Category, e.WebsiteURL,
		e.HasGrill, e.IsOutdoor, e.IsFree, e.ParkingSituation, e.ParkingIsFree,
		e.AuthorID, e.AuthorName, e.AverageRating, e.ReviewCount, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create excursion: %w", err)
	}
	return nil
}

// GetByID retrieves an excursion with its photos
func (r *ExcursionRepository) GetByID(ctx context.Context, id string) (*models.Excursion, error) {
	query := excursionSelect + ` WHERE e.id = $1 GROUP BY e.id`
	e, err := scanExcursion(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get excursion: %w", notFound("excursion", err))
	}
	return e, nil
}

// List returns every excursion, newest first
func (r *ExcursionRepository) List(ctx context.Context) ([]models.Excursion, error) {
	query := excursionSelect + ` GROUP BY e.id ORDER BY e.created_at DESC, e.id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list excursions: %w", err)
	}
	defer rows.Close()

	excursions := make([]models.Excursion, 0)
	for rows.Next() {
		e, err := scanExcursion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan excursion: %w", err)
		}
		excursions = append(excursions, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating excursions: %w", err)
	}

	return excursions, nil
}

// Update overwrites the editable fields of an excursion
func (r *ExcursionRepository) Update(ctx context.Context, id string, in models.ExcursionInput) error {
	query := `
		UPDATE excursions SET
			title = $1, description = $2, address = $3, country = $4, region = $5, category = $6,
			website_url = $7, has_grill = $8, is_outdoor = $9, is_free = $10,
			parking_situation = $11, parking_is_free = $12
		WHERE id = $13
	`
	result, err := r.db.Exec(ctx, query,
		in.Title, in.Description, in.Address, in.Country, in.Region, in.Category,
		in.WebsiteURL, in.HasGrill, in.IsOutdoor, in.IsFree,
		in.ParkingSituation, in.ParkingIsFree, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update excursion: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("excursion %w", ErrNotFound)
	}
	return nil
}

// RefreshRating recomputes the rating aggregate from the excursion's reviews
// and stores it. The excursion row stays locked from the aggregate read to
// the commit, so concurrent refreshes are applied in order and the last one
// sees every committed review.
func (r *ExcursionRepository) RefreshRating(ctx context.Context, id string) (float64, int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked string
	err = tx.QueryRow(ctx, `SELECT id FROM excursions WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		return 0, 0, notFound("excursion", err)
	}

	query := `
		UPDATE excursions e SET
			average_rating = agg.average,
			review_count = agg.count
		FROM (
			SELECT COALESCE(ROUND(AVG(rating)::numeric, 1), 0)::float8 AS average,
			       COUNT(*)::int AS count
			FROM reviews
			WHERE excursion_id = $1
		) agg
		WHERE e.id = $1
		RETURNING e.average_rating, e.review_count
	`
	var average float64
	var count int
	if err := tx.QueryRow(ctx, query, id).Scan(&average, &count); err != nil {
		return 0, 0, fmt.Errorf("failed to refresh rating: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return average, count, nil
}

// Delete removes an excursion; photos and reviews go with it
func (r *ExcursionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM excursions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete excursion: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("excursion %w", ErrNotFound)
	}
	return nil
}
