package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"ausflug-backend/internal/models"
	"ausflug-backend/internal/repository"
	"ausflug-backend/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// RegisterRequest is the payload for local account creation
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the payload for local login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is a user together with a freshly issued session token
type AuthResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// UserService handles registration, login and session validation
type UserService struct {
	users      UserStore
	sessions   SessionStore
	identity   IdentityProvider
	loginURL   string
	jwtSecret  string
	jwtIssuer  string
	sessionTTL time.Duration
	now        func() time.Time
}

// UserServiceConfig carries the token settings of the user service
type UserServiceConfig struct {
	JWTSecret  string
	JWTIssuer  string
	SessionTTL time.Duration
	// OAuthLoginURL is the hosted login page; empty disables the redirect path
	OAuthLoginURL string
}

// NewUserService creates a new user service. identity may be nil when OAuth
// login is not configured.
func NewUserService(users UserStore, sessions SessionStore, identity IdentityProvider, cfg UserServiceConfig) *UserService {
	return &UserService{
		users:      users,
		sessions:   sessions,
		identity:   identity,
		loginURL:   cfg.OAuthLoginURL,
		jwtSecret:  cfg.JWTSecret,
		jwtIssuer:  cfg.JWTIssuer,
		sessionTTL: cfg.SessionTTL,
		now:        time.Now,
	}
}

// GenerateJWT signs a token bound to a stored session
func (s *UserService) GenerateJWT(sessionID, userID string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sid":     sessionID,
		"user_id": userID,
		"iss":     s.jwtIssuer,
		"exp":     expiresAt.Unix(),
		"iat":     s.now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a token and returns its session and user IDs
func (s *UserService) ValidateJWT(tokenString string) (sessionID, userID string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.jwtIssuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", fmt.Errorf("invalid token claims")
	}

	sessionID, _ = claims["sid"].(string)
	userID, _ = claims["user_id"].(string)
	if sessionID == "" || userID == "" {
		return "", "", fmt.Errorf("session not found in token")
	}

	return sessionID, userID, nil
}

// Register creates a local account and logs it in
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := validation.ValidateStruct(&req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashed := string(hash)

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: &hashed,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.startSession(ctx, user)
}

// Login verifies local credentials and starts a session
func (s *UserService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validation.ValidateStruct(&req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// OAuth-only accounts have no password to compare against.
	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, user)
}

// OAuthLoginURL builds the hosted login URL that returns to redirect
func (s *UserService) OAuthLoginURL(redirect string) (string, error) {
	if s.loginURL == "" || s.identity == nil {
		return "", ErrOAuthDisabled
	}
	u, err := url.Parse(s.loginURL)
	if err != nil {
		return "", fmt.Errorf("invalid oauth login url: %w", err)
	}
	q := u.Query()
	q.Set("redirect", redirect)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ExchangeOAuthSession trades the provider's session id for a local session.
// The user is created on first login and matched by email afterwards.
func (s *UserService) ExchangeOAuthSession(ctx context.Context, providerSessionID string) (*AuthResult, error) {
	if s.identity == nil {
		return nil, ErrOAuthDisabled
	}
	if strings.TrimSpace(providerSessionID) == "" {
		return nil, fmt.Errorf("%w: session_id is required", ErrValidation)
	}

	profile, err := s.identity.SessionData(ctx, providerSessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOAuthExchange, err)
	}
	email := normalizeEmail(profile.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: provider returned no email", ErrOAuthExchange)
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		user = &models.User{
			ID:        uuid.New().String(),
			Email:     email,
			Name:      profile.Name,
			CreatedAt: s.now().UTC(),
		}
		if profile.Picture != "" {
			picture := profile.Picture
			user.Picture = &picture
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return s.startSession(ctx, user)
}

// Authenticate resolves a session token to its user
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	sessionID, userID, err := s.ValidateJWT(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.UserID != userID || s.now().After(session.ExpiresAt) {
		return nil, ErrInvalidSession
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Logout ends every session of the user
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if err := s.sessions.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// UpdatePushToken stores or clears the device token used for review notifications
func (s *UserService) UpdatePushToken(ctx context.Context, userID string, pushToken string) error {
	var token *string
	if t := strings.TrimSpace(pushToken); t != "" {
		token = &t
	}
	if err := s.users.UpdatePushToken(ctx, userID, token); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// PurgeExpiredSessions deletes sessions past their expiry
func (s *UserService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx)
}

func (s *UserService) startSession(ctx context.Context, user *models.User) (*AuthResult, error) {
	now := s.now().UTC()
	session := &models.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.GenerateJWT(session.ID, user.ID, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &AuthResult{User: user, Token: token, ExpiresAt: session.ExpiresAt}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
