package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"ausflug-backend/internal/metrics"
	"ausflug-backend/internal/models"
	"ausflug-backend/internal/repository"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PhotoUpload is one file received from a client
type PhotoUpload struct {
	Filename string
	Data     []byte
}

// PhotoFailure names a file that could not be stored
type PhotoFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// PhotoUploadResult lists stored photo names in upload order and the failures
type PhotoUploadResult struct {
	Uploaded []string       `json:"uploaded"`
	Failed   []PhotoFailure `json:"failed,omitempty"`
}

// AddPhotos appends images to an excursion. Every file must sniff as an
// image or nothing is stored. Individual storage failures are reported in
// the result; an error is returned only when no photo could be stored.
func (s *ExcursionService) AddPhotos(ctx context.Context, user *models.User, excursionID string, uploads []PhotoUpload) (*PhotoUploadResult, error) {
	if _, err := s.requireOwner(ctx, user, excursionID); err != nil {
		return nil, err
	}
	if len(uploads) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", ErrValidation)
	}

	types := make([]*mimetype.MIME, len(uploads))
	for i, u := range uploads {
		mt := mimetype.Detect(u.Data)
		if !strings.HasPrefix(mt.String(), "image/") {
			metrics.RecordPhotoUploads("rejected", len(uploads))
			return nil, fmt.Errorf("%w: %s", ErrInvalidImage, u.Filename)
		}
		types[i] = mt
	}

	result := &PhotoUploadResult{Uploaded: []string{}}
	for i, u := range uploads {
		name, err := s.storePhoto(ctx, user, excursionID, types[i], u.Data)
		if err != nil {
			log.Error().Err(err).
				Str("excursion_id", excursionID).
				Str("filename", u.Filename).
				Msg("Failed to store photo")
			result.Failed = append(result.Failed, PhotoFailure{Filename: u.Filename, Error: err.Error()})
			continue
		}
		result.Uploaded = append(result.Uploaded, name)
	}

	metrics.RecordPhotoUploads("stored", len(result.Uploaded))
	metrics.RecordPhotoUploads("failed", len(result.Failed))

	if len(result.Uploaded) == 0 {
		return result, ErrPhotoUpload
	}
	return result, nil
}

func (s *ExcursionService) storePhoto(ctx context.Context, user *models.User, excursionID string, mt *mimetype.MIME, data []byte) (string, error) {
	id := uuid.New().String()
	name := id + mt.Extension()
	contentType := mt.String()
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}

	key := s.objectKey(name)
	if err := s.store.Put(ctx, key, contentType, data); err != nil {
		return "", err
	}

	photo := &models.Photo{
		ID:          id,
		ExcursionID: excursionID,
		UserID:      user.ID,
		Name:        name,
		ContentType: contentType,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			log.Warn().Err(delErr).Str("photo", name).Msg("Failed to remove orphaned photo")
		}
		return "", err
	}
	return name, nil
}

// DeletePhoto detaches a photo from its excursion and removes the object
func (s *ExcursionService) DeletePhoto(ctx context.Context, user *models.User, excursionID, name string) error {
	if _, err := s.requireOwner(ctx, user, excursionID); err != nil {
		return err
	}
	if !validPhotoName(name) {
		return ErrNotFound
	}

	if err := s.photos.Delete(ctx, excursionID, name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.store.Delete(ctx, s.objectKey(name)); err != nil {
		log.Warn().Err(err).Str("photo", name).Msg("Failed to delete stored photo")
	}
	return nil
}

// PhotoURL returns a short-lived download link for a stored photo
func (s *ExcursionService) PhotoURL(ctx context.Context, name string) (string, error) {
	if !validPhotoName(name) {
		return "", ErrNotFound
	}
	if _, err := s.photos.GetByName(ctx, name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return s.store.PresignGet(ctx, s.objectKey(name))
}

func validPhotoName(name string) bool {
	return name != "" && name == path.Base(name) && !strings.HasPrefix(name, ".")
}
