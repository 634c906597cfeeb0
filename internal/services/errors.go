package services

import "errors"

// Domain errors returned by the services. Handlers map them to HTTP statuses.
var (
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("not authenticated")
	ErrInvalidSession     = errors.New("session expired")
	ErrForbidden          = errors.New("not authorized")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyReviewed    = errors.New("you already reviewed this excursion")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidImage       = errors.New("only image files allowed")
	ErrPhotoUpload        = errors.New("photo upload failed")
	ErrOAuthDisabled      = errors.New("oauth login is not configured")
	ErrOAuthExchange      = errors.New("invalid session")
	ErrPlacesUnavailable  = errors.New("places service unavailable")
)
