package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ausflug-backend/internal/catalog"
	"ausflug-backend/internal/models"
	"ausflug-backend/internal/repository"
	"ausflug-backend/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ExcursionService handles excursion-related business logic
type ExcursionService struct {
	excursions ExcursionStore
	photos     PhotoRecordStore
	store      PhotoStore
	keyPrefix  string
	now        func() time.Time
}

// NewExcursionService creates a new excursion service
func NewExcursionService(excursions ExcursionStore, photos PhotoRecordStore, store PhotoStore, keyPrefix string) *ExcursionService {
	return &ExcursionService{
		excursions: excursions,
		photos:     photos,
		store:      store,
		keyPrefix:  keyPrefix,
		now:        time.Now,
	}
}

// FeaturedResult is the landing page payload
type FeaturedResult struct {
	Excursions []models.Excursion `json:"excursions"`
	Stats      catalog.Stats      `json:"stats"`
}

// CreateResult is a created excursion plus the outcome of its photo step
type CreateResult struct {
	Excursion *models.Excursion  `json:"excursion"`
	Photos    *PhotoUploadResult `json:"photos,omitempty"`
	Warning   string             `json:"warning,omitempty"`
}

// List returns the excursions matching criteria, newest first
func (s *ExcursionService) List(ctx context.Context, criteria catalog.Criteria) ([]models.Excursion, error) {
	all, err := s.excursions.List(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Filter(all, criteria), nil
}

// Featured returns the best rated excursions and catalog stats
func (s *ExcursionService) Featured(ctx context.Context, limit int) (*FeaturedResult, error) {
	all, err := s.excursions.List(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = catalog.DefaultFeaturedLimit
	}
	return &FeaturedResult{
		Excursions: catalog.Featured(all, limit),
		Stats:      catalog.Summarize(all),
	}, nil
}

// Get returns one excursion
func (s *ExcursionService) Get(ctx context.Context, id string) (*models.Excursion, error) {
	e, err := s.excursions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// Create validates the input and stores a new excursion owned by author
func (s *ExcursionService) Create(ctx context.Context, author *models.User, in models.ExcursionInput) (*models.Excursion, error) {
	if author == nil {
		return nil, ErrUnauthorized
	}
	in, err := normalizeExcursionInput(in)
	if err != nil {
		return nil, err
	}

	e := &models.Excursion{
		ExcursionInput: in,
		ID:             uuid.New().String(),
		AuthorID:       author.ID,
		AuthorName:     author.Name,
		Photos:         []string{},
		CreatedAt:      s.now().UTC(),
	}
	if err := s.excursions.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create excursion: %w", err)
	}

	log.Info().
		Str("excursion_id", e.ID).
		Str("author_id", author.ID).
		Msg("Excursion created")

	return e, nil
}

// CreateWithPhotos creates the excursion and then uploads its photos.
// A failed photo step leaves the excursion in place and sets Warning.
func (s *ExcursionService) CreateWithPhotos(ctx context.Context, author *models.User, in models.ExcursionInput, uploads []PhotoUpload) (*CreateResult, error) {
	e, err := s.Create(ctx, author, in)
	if err != nil {
		return nil, err
	}
	result := &CreateResult{Excursion: e}
	if len(uploads) == 0 {
		return result, nil
	}

	photos, err := s.AddPhotos(ctx, author, e.ID, uploads)
	result.Photos = photos
	if err != nil {
		log.Warn().Err(err).Str("excursion_id", e.ID).Msg("Excursion created but photo upload failed")
		result.Warning = "Ausflug erstellt, aber Foto-Upload fehlgeschlagen: " + err.Error()
		return result, nil
	}
	if photos != nil && len(photos.Failed) > 0 {
		result.Warning = fmt.Sprintf("%d von %d Fotos konnten nicht hochgeladen werden", len(photos.Failed), len(uploads))
	}

	if fresh, err := s.excursions.GetByID(ctx, e.ID); err == nil {
		result.Excursion = fresh
	}
	return result, nil
}

// Update overwrites the editable fields. Only the author may update.
func (s *ExcursionService) Update(ctx context.Context, user *models.User, id string, in models.ExcursionInput) (*models.Excursion, error) {
	if _, err := s.requireOwner(ctx, user, id); err != nil {
		return nil, err
	}
	in, err := normalizeExcursionInput(in)
	if err != nil {
		return nil, err
	}

	if err := s.excursions.Update(ctx, id, in); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return s.Get(ctx, id)
}

// Delete removes the excursion, its reviews and its photos. Only the author
// may delete. Stored photo objects are removed best effort afterwards.
func (s *ExcursionService) Delete(ctx context.Context, user *models.User, id string) error {
	e, err := s.requireOwner(ctx, user, id)
	if err != nil {
		return err
	}

	if err := s.excursions.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	for _, name := range e.Photos {
		if err := s.store.Delete(ctx, s.objectKey(name)); err != nil {
			log.Warn().Err(err).Str("excursion_id", id).Str("photo", name).Msg("Failed to delete stored photo")
		}
	}

	log.Info().Str("excursion_id", id).Str("user_id", user.ID).Msg("Excursion deleted")
	return nil
}

// requireOwner loads the excursion and checks that user authored it
func (s *ExcursionService) requireOwner(ctx context.Context, user *models.User, id string) (*models.Excursion, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.AuthorID != user.ID {
		return nil, ErrForbidden
	}
	return e, nil
}

func (s *ExcursionService) objectKey(name string) string {
	return s.keyPrefix + name
}

func normalizeExcursionInput(in models.ExcursionInput) (models.ExcursionInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Address = strings.TrimSpace(in.Address)
	in.Country = strings.ToUpper(strings.TrimSpace(in.Country))
	in.Region = strings.ToUpper(strings.TrimSpace(in.Region))
	if in.Country == "" {
		in.Country = models.DefaultCountry
	}
	if in.WebsiteURL != nil {
		if u := strings.TrimSpace(*in.WebsiteURL); u == "" {
			in.WebsiteURL = nil
		} else {
			in.WebsiteURL = &u
		}
	}

	if err := validation.ValidateStruct(&in); err != nil {
		return in, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if !models.ValidRegion(in.Country, in.Region) {
		return in, fmt.Errorf("%w: region %s is not valid for country %s", ErrValidation, in.Region, in.Country)
	}
	return in, nil
}
