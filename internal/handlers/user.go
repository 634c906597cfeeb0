package handlers

import (
	"net/http"
	"time"

	"ausflug-backend/internal/middleware"
	"ausflug-backend/internal/models"
	"ausflug-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// CookieSettings describes the session cookie
type CookieSettings struct {
	Name   string
	Secure bool
}

// AuthResponse is returned after a successful login
type AuthResponse struct {
	User         *models.User `json:"user"`
	SessionToken string       `json:"session_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

// UserHandler handles authentication HTTP requests
type UserHandler struct {
	userService     *services.UserService
	cookie          CookieSettings
	redirectOrigins originSet
}

// NewUserHandler creates a new user handler. OAuth logins only return to
// redirects on one of redirectOrigins.
func NewUserHandler(userService *services.UserService, cookie CookieSettings, redirectOrigins []string) *UserHandler {
	return &UserHandler{
		userService:     userService,
		cookie:          cookie,
		redirectOrigins: newOriginSet(redirectOrigins),
	}
}

// Me handles GET /api/auth/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, middleware.SessionFrom(r.Context()).CurrentUser())
}

// Register handles POST /api/auth/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.userService.Register(r.Context(), req)
	if err != nil {
		log.Warn().Err(err).Str("email", req.Email).Msg("Registration failed")
		respondServiceError(w, err, "User")
		return
	}

	log.Info().Str("user_id", res.User.ID).Msg("User registered")
	h.respondSession(w, http.StatusCreated, res)
}

// Login handles POST /api/auth/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.userService.Login(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "User")
		return
	}

	h.respondSession(w, http.StatusOK, res)
}

// OAuthRedirect handles GET /api/auth/oauth
func (h *UserHandler) OAuthRedirect(w http.ResponseWriter, r *http.Request) {
	redirect := r.URL.Query().Get("redirect")
	if redirect == "" {
		respondError(w, "redirect is required", http.StatusBadRequest)
		return
	}
	if !h.redirectOrigins.allowsRedirect(redirect) {
		log.Warn().Str("redirect", redirect).Msg("OAuth redirect to unknown origin rejected")
		respondError(w, "redirect origin is not allowed", http.StatusBadRequest)
		return
	}

	target, err := h.userService.OAuthLoginURL(redirect)
	if err != nil {
		respondServiceError(w, err, "Login")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

type profileRequest struct {
	SessionID string `json:"session_id"`
}

// Profile handles POST /api/auth/profile, exchanging the OAuth provider's
// session id for a local session
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	req := profileRequest{SessionID: r.Header.Get("X-Session-ID")}
	if req.SessionID == "" {
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	res, err := h.userService.ExchangeOAuthSession(r.Context(), req.SessionID)
	if err != nil {
		log.Warn().Err(err).Msg("OAuth session exchange failed")
		respondServiceError(w, err, "Session")
		return
	}

	h.respondSession(w, http.StatusOK, res)
}

// Logout handles POST /api/auth/logout
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := middleware.SessionFrom(r.Context()).CurrentUser()
	if user != nil {
		if err := h.userService.Logout(r.Context(), user.ID); err != nil {
			log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to logout")
			respondServiceError(w, err, "Session")
			return
		}
	}

	http.SetCookie(w, h.sessionCookie("", -1))
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

type pushTokenRequest struct {
	PushToken string `json:"push_token"`
}

// PushToken handles POST /api/auth/push-token
func (h *UserHandler) PushToken(w http.ResponseWriter, r *http.Request) {
	user := middleware.SessionFrom(r.Context()).CurrentUser()

	var req pushTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.userService.UpdatePushToken(r.Context(), user.ID, req.PushToken); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to update push token")
		respondServiceError(w, err, "User")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) respondSession(w http.ResponseWriter, status int, res *services.AuthResult) {
	maxAge := int(time.Until(res.ExpiresAt).Seconds())
	http.SetCookie(w, h.sessionCookie(res.Token, maxAge))
	respondJSON(w, status, AuthResponse{
		User:         res.User,
		SessionToken: res.Token,
		ExpiresAt:    res.ExpiresAt,
	})
}

func (h *UserHandler) sessionCookie(value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteNoneMode,
	}
	// browsers drop SameSite=None cookies that are not Secure
	if !c.Secure {
		c.SameSite = http.SameSiteLaxMode
	}
	return c
}
