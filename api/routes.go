package api

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/dalmia/vidly/api/dictation"
	"github.com/dalmia/vidly/api/health"
	"github.com/dalmia/vidly/api/playback"
	"github.com/dalmia/vidly/api/sessions"
	"github.com/dalmia/vidly/api/types"
	"github.com/dalmia/vidly/api/version"
	"github.com/dalmia/vidly/api/videos"
	_ "github.com/dalmia/vidly/docs/swagger"
	"github.com/dalmia/vidly/internal/services/backend"
	dictationService "github.com/dalmia/vidly/internal/services/dictation"
	pipelineService "github.com/dalmia/vidly/internal/services/pipeline"
	playbackService "github.com/dalmia/vidly/internal/services/playback"
	"github.com/dalmia/vidly/internal/services/recognition"
	sessionsService "github.com/dalmia/vidly/internal/services/sessions"
	"github.com/dalmia/vidly/pkg/config"
	"github.com/dalmia/vidly/pkg/poll"
)

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, rateLimiters *sync.Map, cleanupStop chan struct{}, cleanupInitialized *sync.Once) error {
	// Register public routes (no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)

	// Register Swagger documentation route
	engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(301, "/docs/index.html")
	})
	docsGroup := engine.Group("/docs")
	docsGroup.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Setup 404 handler
	engine.NoRoute(NotFoundHandler())

	// API v1 routes
	v1 := engine.Group("/api/v1")

	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if deps == nil {
		deps = &types.Dependencies{}
	}

	// Initialize services if not already set
	if deps.Pipeline == nil {
		initializePipelineService(deps, cfg)
	}
	if deps.Tracker == nil {
		initializeTracker(deps, cfg)
	}
	if deps.NewEngine == nil {
		initializeDictation(deps, cfg)
	}
	if deps.Sessions == nil && deps.DB != nil && deps.DB.DB != nil {
		initializeSessionService(deps)
	}

	limitFor := func(endpoint string) gin.HandlerFunc {
		if !cfg.RateLimiting.Enabled {
			return func(c *gin.Context) { c.Next() }
		}
		perMinute := cfg.RateLimiting.Endpoints[endpoint]
		if perMinute <= 0 {
			perMinute = cfg.RateLimiting.Endpoints["default"]
		}
		rps := perMinute / 60
		if rps < 1 {
			rps = 1
		}
		burst := rps * 2
		if burst < 5 {
			burst = 5
		}
		return PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, rps, burst)
	}

	// Pipeline and chat routes. Chat carries its own limit since answers
	// fan out to the remote backend.
	videosGroup := v1.Group("/videos")
	videosGroup.Use(limitFor("videos"))
	videos.RegisterRoutes(videosGroup, deps, limitFor("chat"))

	// Playback position updates arrive on every player tick, so the limit
	// is much higher than the rest of the API.
	playbackGroup := v1.Group("/playback")
	playbackGroup.Use(limitFor("playback"))
	playback.RegisterRoutes(playbackGroup, deps)

	if deps.Sessions != nil {
		sessionsGroup := v1.Group("/sessions")
		sessionsGroup.Use(limitFor("sessions"))
		sessions.RegisterRoutes(sessionsGroup, deps)
	}

	dictationGroup := v1.Group("/dictation")
	dictationGroup.Use(limitFor("dictation"))
	dictation.RegisterRoutes(dictationGroup, deps)

	return nil
}

// initializePipelineService creates and configures the video pipeline
func initializePipelineService(deps *types.Dependencies, cfg *config.Config) {
	gateway := backend.NewClient(backend.Config{
		BaseURL:   cfg.Backend.BaseURL,
		OembedURL: cfg.Oembed.BaseURL,
		UserAgent: cfg.Backend.UserAgent,
		Timeout:   cfg.Backend.Timeout,
	})

	deps.Pipeline = pipelineService.NewService(
		gateway,
		pipelineService.WithPollPolicy(poll.Policy{
			Interval:    cfg.Transcription.PollInterval,
			MaxAttempts: cfg.Transcription.MaxAttempts,
		}),
		pipelineService.WithStreaming(cfg.Transcription.Stream),
	)
}

// initializeTracker creates the playback position tracker
func initializeTracker(deps *types.Dependencies, cfg *config.Config) {
	deps.Tracker = playbackService.NewTracker(playbackService.Config{
		MinIndexJump:   cfg.Playback.MinIndexJump,
		ScrollCooldown: cfg.Playback.ScrollCooldown,
		ScrollDelay:    cfg.Playback.ScrollDelay,
	})
}

// initializeDictation wires the speech recognition engine factory. Each
// dictation stream gets its own engine connection.
func initializeDictation(deps *types.Dependencies, cfg *config.Config) {
	deps.Dictation = dictationService.Config{
		SettleDelay: cfg.Dictation.SettleDelay,
		Bars:        cfg.Dictation.Bars,
	}
	deps.NewEngine = func() dictationService.Engine {
		return recognition.NewEngine(recognition.Config{
			URL:              cfg.Recognition.WSURL,
			Language:         cfg.Recognition.Language,
			SampleRate:       cfg.Recognition.SampleRate,
			HandshakeTimeout: cfg.Recognition.HandshakeTimeout,
		})
	}
}

// initializeSessionService creates and configures the session service
func initializeSessionService(deps *types.Dependencies) {
	repo := sessionsService.NewRepository(deps.DB.DB)
	deps.Sessions = sessionsService.NewService(repo, deps.Pipeline)
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(404, gin.H{
			"status":  "error",
			"message": "The requested endpoint was not found",
			"path":    c.Request.URL.Path,
		})
	}
}
