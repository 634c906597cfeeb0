package services

import (
	"context"

	"ausflug-backend/internal/models"
)

// UserStore persists users
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePushToken(ctx context.Context, userID string, pushToken *string) error
}

// SessionStore persists login sessions
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	DeleteByUserID(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// ExcursionStore is the catalog of excursion records
type ExcursionStore interface {
	Create(ctx context.Context, e *models.Excursion) error
	GetByID(ctx context.Context, id string) (*models.Excursion, error)
	List(ctx context.Context) ([]models.Excursion, error)
	Update(ctx context.Context, id string, in models.ExcursionInput) error
	RefreshRating(ctx context.Context, id string) (average float64, count int, err error)
	Delete(ctx context.Context, id string) error
}

// PhotoRecordStore tracks which stored photos belong to which excursion
type PhotoRecordStore interface {
	Create(ctx context.Context, photo *models.Photo) error
	GetByName(ctx context.Context, name string) (*models.Photo, error)
	ListNames(ctx context.Context, excursionID string) ([]string, error)
	Delete(ctx context.Context, excursionID, name string) error
}

// ReviewStore persists reviews
type ReviewStore interface {
	Create(ctx context.Context, review *models.Review) error
	Exists(ctx context.Context, excursionID, userID string) (bool, error)
	ListByExcursion(ctx context.Context, excursionID string) ([]models.Review, error)
}
