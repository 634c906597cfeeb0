package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"ausflug-backend/internal/models"
	"ausflug-backend/internal/services"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

type contextKey string

const sessionKey contextKey = "session"

// Authenticator resolves a session token to a user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Session is the identity of the caller of one request
type Session struct {
	user *models.User
	err  error
}

// NewSession creates a session for user; nil means anonymous
func NewSession(user *models.User) *Session {
	return &Session{user: user}
}

// IsAuthenticated reports whether the request carries a valid session
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.user != nil
}

// CurrentUser returns the logged in user or nil
func (s *Session) CurrentUser() *models.User {
	if s == nil {
		return nil
	}
	return s.user
}

// Owns reports whether the current user is authorID
func (s *Session) Owns(authorID string) bool {
	return s.IsAuthenticated() && s.user.ID == authorID
}

// WithSession attaches s to ctx
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFrom returns the request's session, anonymous if none was attached
func SessionFrom(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey).(*Session); ok && s != nil {
		return s
	}
	return &Session{}
}

// TokenFromRequest reads the session token from the cookie or the
// Authorization header, in that order
func TokenFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Identify attaches a Session to every request. Requests without a valid
// token continue anonymously.
func Identify(auth Authenticator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := &Session{}
			if token := TokenFromRequest(r, cookieName); token != "" {
				user, err := auth.Authenticate(r.Context(), token)
				if err != nil {
					session.err = err
					log.Debug().Err(err).Str("path", r.URL.Path).Msg("Ignoring invalid session token")
				} else {
					session.user = user
				}
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// RequireAuth rejects anonymous requests with 401
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := SessionFrom(r.Context())
		if !session.IsAuthenticated() {
			msg := "Not authenticated"
			if errors.Is(session.err, services.ErrInvalidSession) {
				msg = "Session expired"
			}
			respondError(w, msg, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"detail": message})
}
