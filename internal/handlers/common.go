package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"ausflug-backend/internal/services"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const maxJSONBytes = 1 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Detail: message})
}

// respondJSON sends v as a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// decodeJSON reads a size-limited JSON body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			return fmt.Errorf("request body must not be larger than %d bytes", maxBytesErr.Limit)
		case errors.Is(err, io.EOF):
			return errors.New("request body must not be empty")
		default:
			return errors.New("invalid request body")
		}
	}
	return nil
}

// respondServiceError maps a service error onto a status and detail.
// resource names the thing that was looked up, for 404 messages.
func respondServiceError(w http.ResponseWriter, err error, resource string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		respondError(w, validationDetail(err), http.StatusBadRequest)
	case errors.Is(err, services.ErrAlreadyReviewed):
		respondError(w, "You have already reviewed this excursion", http.StatusBadRequest)
	case errors.Is(err, services.ErrEmailTaken):
		respondError(w, "Email already registered", http.StatusBadRequest)
	case errors.Is(err, services.ErrInvalidImage):
		respondError(w, "Only image files allowed", http.StatusBadRequest)
	case errors.Is(err, services.ErrOAuthExchange):
		respondError(w, "Invalid session", http.StatusBadRequest)
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(w, "Invalid email or password", http.StatusUnauthorized)
	case errors.Is(err, services.ErrInvalidSession):
		respondError(w, "Session expired", http.StatusUnauthorized)
	case errors.Is(err, services.ErrUnauthorized):
		respondError(w, "Not authenticated", http.StatusUnauthorized)
	case errors.Is(err, services.ErrForbidden):
		respondError(w, "Not authorized", http.StatusForbidden)
	case errors.Is(err, services.ErrNotFound):
		respondError(w, resource+" not found", http.StatusNotFound)
	case errors.Is(err, services.ErrPlacesUnavailable):
		respondError(w, "Places service unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, services.ErrOAuthDisabled):
		respondError(w, "OAuth login is not configured", http.StatusServiceUnavailable)
	case errors.Is(err, services.ErrPhotoUpload):
		respondError(w, "Photo upload failed", http.StatusInternalServerError)
	default:
		log.Error().Err(err).Msg("Unhandled service error")
		respondError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func validationDetail(err error) string {
	return strings.TrimPrefix(err.Error(), services.ErrValidation.Error()+": ")
}

// readUploads reads every file of a multipart field into memory
func readUploads(files []*multipart.FileHeader) ([]services.PhotoUpload, error) {
	uploads := make([]services.PhotoUpload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, services.PhotoUpload{Filename: fh.Filename, Data: data})
	}
	return uploads, nil
}

// parseMultipart limits the body to maxBytes and parses the form
func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("upload must not be larger than %d bytes", maxBytesErr.Limit)
		}
		return errors.New("invalid multipart form")
	}
	return nil
}
