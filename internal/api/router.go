package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/storynest/backend/internal/api/handlers"
	"github.com/storynest/backend/internal/auth"
	"github.com/storynest/backend/internal/cache"
	"github.com/storynest/backend/internal/config"
	"github.com/storynest/backend/internal/database"
	"github.com/storynest/backend/internal/generate"
	"github.com/storynest/backend/internal/middleware"
	"github.com/storynest/backend/internal/provider"
	"github.com/storynest/backend/internal/quota"
	"github.com/storynest/backend/internal/repository"
)

// NewRouter creates and configures the main router
func NewRouter(cfg *config.Config, db *database.DB, redisCache *cache.Redis) *chi.Mux {
	r := chi.NewRouter()

	// Repositories
	accountRepo := repository.NewAccountRepository(db)
	userRepo := repository.NewUserRepository(db)
	storyRepo := repository.NewStoryRepository(db)

	// Auth
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiration)
	authMiddleware := auth.NewMiddleware(jwtService)

	// Upstream generation client, constructed once and injected
	providerClient := provider.NewClientWithOptions(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, provider.Timeouts{
		Story:  cfg.StoryTimeout,
		Image:  cfg.ImageTimeout,
		Speech: cfg.SpeechTimeout,
	})

	// Quota limits are configuration data, not code
	limits := quota.Limits{
		quota.PlanFree: cfg.FreeDailyLimit,
		quota.PlanPaid: cfg.PaidDailyLimit,
	}
	generateService := generate.NewService(accountRepo, providerClient, limits)

	// Burst protection for generation endpoints
	rateLimiter := middleware.NewRateLimiter(redisCache, cfg.RateLimitPerMinute)

	// Handlers
	healthHandler := handlers.NewHealthChecker(db, redisCache)
	authHandler := handlers.NewAuthHandler(userRepo, jwtService)
	generateHandler := handlers.NewGenerateHandler(generateService)
	userHandler := handlers.NewUserHandler(generateService, accountRepo)
	storyHandler := handlers.NewStoryHandler(storyRepo)

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORSWithOrigins(cfg.CORSOrigins))

	// Health endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", handlers.LivenessProbe)
	r.Get("/health/ready", healthHandler.ReadinessProbe)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Generation endpoints: authenticated, burst-limited, quota-gated
		r.Route("/generate", func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(middleware.RateLimit(rateLimiter))
			r.Post("/story", generateHandler.Story)
			r.Post("/image", generateHandler.Image)
			r.Post("/speech", generateHandler.Speech)
		})

		// Saved story library
		r.Route("/stories", func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Get("/", storyHandler.List)
			r.Post("/", storyHandler.Save)
		})

		// User endpoints
		r.Route("/user", func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Get("/me", authHandler.Me)
			r.Get("/usage", userHandler.GetUsage)
			r.Put("/plan", userHandler.UpdatePlan)
		})
	})

	return r
}
