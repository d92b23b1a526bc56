package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventinator/internal/auth/handler"
	"eventinator/internal/auth/passwd"
	"eventinator/internal/auth/provider"
	"eventinator/internal/auth/provider/discord"
	"eventinator/internal/config"
	"eventinator/internal/middleware"
	"eventinator/internal/session"
	"eventinator/internal/snowflake"
	"eventinator/internal/users"
)

func setupHTTP(ctx context.Context, cfg config.Config, log *zap.Logger) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	ids, err := snowflake.New(cfg.InstanceID)
	if err != nil {
		return nil, nil, err
	}

	userStore := users.NewPostgresStore(infra.DB)
	registry := users.NewRegistry(userStore, ids)

	sessionStore := session.NewRedisStore(infra.Redis.Client)
	issuer := session.NewIssuer(sessionStore, cfg.SessionTTL)

	discordProvider, err := discord.New(
		cfg.DiscordClientID,
		cfg.DiscordClientSecret,
		cfg.DiscordRedirectURL,
		cfg.DiscordAPIBaseURL,
	)
	if err != nil {
		return nil, nil, err
	}

	providers := provider.NewRegistry(discordProvider)

	passwdProvider := passwd.NewManagedProvider(infra.DB, infra.Redis.Client)

	authHandler := handler.NewHandler(
		providers,
		passwdProvider,
		registry,
		userStore,
		issuer,
		log,
	)

	authMiddleware := middleware.NewAuthMiddleware(sessionStore, userStore)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())

	// ----------------------------
	// Public Routes
	// ----------------------------

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Protected API Routes
	// ----------------------------

	api := router.Group("/api")
	api.Use(middleware.GinRequireAuth(authMiddleware))

	authHandler.RegisterProtectedRoutes(api)

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, func() error {
		return infra.DB.Close()
	}, nil
}
