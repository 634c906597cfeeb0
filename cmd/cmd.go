package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ausflug-backend/internal/config"
	"ausflug-backend/internal/handlers"
	"ausflug-backend/internal/middleware"
	"ausflug-backend/internal/models"
	"ausflug-backend/internal/repository"
	"ausflug-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

const sessionPurgeInterval = time.Hour

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	if err := repository.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}
	log.Info().Msg("Database connection established")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	excursionRepo := repository.NewExcursionRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	reviewRepo := repository.NewReviewRepository(db)

	// Initialize services
	photoStore, err := services.NewS3PhotoStore(ctx, services.S3Options{
		Region:     cfg.AWS.Region,
		Bucket:     cfg.AWS.S3Bucket,
		AccessKey:  cfg.AWS.AccessKey,
		SecretKey:  cfg.AWS.SecretKey,
		Endpoint:   cfg.AWS.Endpoint,
		PathStyle:  cfg.AWS.PathStyle,
		PresignTTL: cfg.AWS.PresignTTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create photo store")
	}

	var identity services.IdentityProvider
	loginURL := ""
	if cfg.OAuth.Enabled() {
		identity = services.NewIdentityClient(cfg.OAuth.SessionDataURL, cfg.OAuth.Timeout)
		loginURL = cfg.OAuth.LoginURL
	}
	userService := services.NewUserService(userRepo, sessionRepo, identity, services.UserServiceConfig{
		JWTSecret:     cfg.JWT.Secret,
		JWTIssuer:     cfg.JWT.Issuer,
		SessionTTL:    cfg.Session.TTL,
		OAuthLoginURL: loginURL,
	})
	excursionService := services.NewExcursionService(excursionRepo, photoRepo, photoStore, cfg.AWS.KeyPrefix)

	hub := services.NewRatingHub()
	listeners := []services.RatingListener{hub}
	var notifier *services.PushNotifier
	if cfg.APNs.Enabled {
		client, err := services.NewAPNsClient(services.APNsOptions{
			KeyPath:    cfg.APNs.KeyPath,
			KeyID:      cfg.APNs.KeyID,
			TeamID:     cfg.APNs.TeamID,
			Topic:      cfg.APNs.Topic,
			Production: cfg.APNs.Production,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create APNs client")
		}
		notifier = services.NewPushNotifier(client, userRepo, cfg.APNs.Topic)
		listeners = append(listeners, notifier)
		log.Info().Bool("production", cfg.APNs.Production).Msg("Push notifications enabled")
	}
	reviewService := services.NewReviewService(reviewRepo, excursionRepo, listeners...)

	var places services.PlacesProvider = services.DisabledPlaces{}
	if cfg.Places.Enabled {
		countries := make([]string, len(models.Countries))
		for i, c := range models.Countries {
			countries[i] = c.Value
		}
		places = services.NewPlacesClient(cfg.Places.BaseURL, cfg.Places.UserAgent, cfg.Places.Timeout, countries)
	}
	regions := services.NewRegionDirectory(services.StaticRegions{})

	// Initialize handlers
	h := routeHandlers{
		user: handlers.NewUserHandler(userService, handlers.CookieSettings{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.CookieSecure,
		}, cfg.Server.CORSOrigins),
		excursion: handlers.NewExcursionHandler(excursionService, cfg.Server.MaxUploadBytes),
		photo:     handlers.NewPhotoHandler(excursionService, cfg.Server.MaxUploadBytes),
		review:    handlers.NewReviewHandler(reviewService),
		options:   handlers.NewOptionsHandler(regions),
		places:    handlers.NewPlacesHandler(places),
		health:    handlers.NewHealthHandler(db),
		ws:        handlers.NewWebSocketHandler(hub, excursionService, cfg.Server.CORSOrigins),
	}

	r := newRouter(cfg, userService, h)

	go purgeSessions(ctx, userService)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	<-ctx.Done()

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// hijacked websocket connections are not closed by Shutdown
	hub.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// pending pushes still need the database for stale token cleanup
	if notifier != nil {
		notifier.Wait()
	}

	log.Info().Msg("Server exited")
}

type routeHandlers struct {
	user      *handlers.UserHandler
	excursion *handlers.ExcursionHandler
	photo     *handlers.PhotoHandler
	review    *handlers.ReviewHandler
	options   *handlers.OptionsHandler
	places    *handlers.PlacesHandler
	health    *handlers.HealthHandler
	ws        *handlers.WebSocketHandler
}

func newRouter(cfg *config.Config, auth middleware.Authenticator, h routeHandlers) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(accessLog()...)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Session-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Metrics)
	r.Use(middleware.Identify(auth, cfg.Session.CookieName))

	authLimit := httprate.LimitByIP(cfg.Server.AuthRateLimit, time.Minute)

	// Routes
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/excursions", h.excursion.List)
		r.Get("/excursions/featured", h.excursion.Featured)
		r.Get("/excursions/{id}", h.excursion.Get)
		r.Get("/excursions/{id}/reviews", h.review.List)
		r.Get("/excursions/{id}/rating", h.review.Rating)
		r.Get("/uploads/photos/{name}", h.photo.Serve)

		r.Get("/cantons", h.options.Cantons)
		r.Get("/regions/{country}", h.options.Regions)
		r.Get("/categories", h.options.Categories)
		r.Get("/parking-situations", h.options.ParkingSituations)
		r.Get("/countries", h.options.Countries)

		r.Get("/health", h.health.Check)

		r.Get("/places/search", h.places.Search)
		r.Get("/places/geocode", h.places.Geocode)

		r.Route("/auth", func(r chi.Router) {
			r.With(authLimit).Post("/register", h.user.Register)
			r.With(authLimit).Post("/login", h.user.Login)
			r.With(authLimit).Post("/profile", h.user.Profile)
			r.Get("/oauth", h.user.OAuthRedirect)
			r.Post("/logout", h.user.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get("/me", h.user.Me)
				r.Post("/push-token", h.user.PushToken)
			})
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/excursions", h.excursion.Create)
			r.Put("/excursions/{id}", h.excursion.Update)
			r.Delete("/excursions/{id}", h.excursion.Delete)
			r.Post("/excursions/{id}/photos", h.photo.Upload)
			r.Delete("/excursions/{id}/photos/{name}", h.photo.Delete)
			r.Post("/excursions/{id}/reviews", h.review.Create)
		})
	})

	r.Get("/health", h.health.Check)
	r.Handle("/metrics", promhttp.Handler())

	// WebSocket route
	r.Get("/ws", h.ws.HandleWebSocket)

	return r
}

// accessLog logs one line per request with its request id
func accessLog() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		hlog.NewHandler(log.Logger),
		hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(r).Info().
				Str("req_id", chiMiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Stringer("url", r.URL).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("Request")
		}),
	}
}

// purgeSessions removes expired sessions until ctx is cancelled
func purgeSessions(ctx context.Context, userService *services.UserService) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := userService.PurgeExpiredSessions(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Failed to purge expired sessions")
				continue
			}
			if n > 0 {
				log.Info().Int64("sessions", n).Msg("Purged expired sessions")
			}
		}
	}
}

// setupLogger configures zerolog logger
func setupLogger(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
