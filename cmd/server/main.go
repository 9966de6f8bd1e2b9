package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/sumire/repoboard/internal/config"
	gh "github.com/sumire/repoboard/internal/github"
	"github.com/sumire/repoboard/internal/handler"
	"github.com/sumire/repoboard/internal/oauth"
	"github.com/sumire/repoboard/internal/repository"
	"github.com/sumire/repoboard/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := sqlx.Connect("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	slog.Info("database connected")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	userRepo := repository.NewUserRepository(db)
	identityRepo := repository.NewIdentityRepository(db)
	savedRepoRepo := repository.NewSavedRepoRepository(db)

	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret)
	githubSvc := service.NewGitHubService(
		identityRepo,
		oauth.NewStateStore(redisClient),
		oauth.NewExchanger(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.HTTPTimeout),
		func(ctx context.Context, token string) service.ProviderClient {
			return gh.NewClientWithTimeout(ctx, token, cfg.HTTPTimeout)
		},
		service.GitHubConfig{
			ClientID:    cfg.GitHubClientID,
			RedirectURL: cfg.GitHubRedirectURL,
			Scopes:      cfg.GitHubScopes,
		},
	)
	savedRepoSvc := service.NewSavedRepoService(savedRepoRepo, githubSvc)

	authHandler := handler.NewAuthHandler(authSvc)
	githubHandler := handler.NewGitHubHandler(githubSvc, authSvc, cfg.FrontendURL)
	savedRepoHandler := handler.NewSavedRepoHandler(savedRepoSvc)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewAppValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(handler.RequestLogger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentType},
		ExposeHeaders:    []string{echo.HeaderXRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.GET("/health", func(c echo.Context) error {
		return handler.JSON(c, http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api/v1")

	// Auth routes (public)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	// OAuth redirect target; authenticates via the link cookie
	api.GET("/github/callback", githubHandler.Callback)

	// Protected routes
	protected := api.Group("", handler.JWTAuth(authSvc))
	protected.GET("/auth/me", authHandler.Me)

	protected.POST("/github/connect", githubHandler.Connect)
	protected.GET("/github/status", githubHandler.Status)
	protected.POST("/github/refresh", githubHandler.Refresh)
	protected.DELETE("/github/connection", githubHandler.Disconnect)
	protected.GET("/github/stats", githubHandler.Stats)
	protected.GET("/github/rate-limit", githubHandler.RateLimit)
	protected.GET("/github/repos/:owner/:repo/commits", githubHandler.Commits)
	protected.GET("/github/repos/:owner/:repo/issues", githubHandler.Issues)
	protected.GET("/github/repos/:owner/:repo/readme", githubHandler.Readme)

	protected.POST("/oauth/exchange", githubHandler.Exchange)
	protected.POST("/profile/save", githubHandler.SaveProfile)

	protected.POST("/repositories", savedRepoHandler.Save)
	protected.POST("/repositories/batch", savedRepoHandler.SaveBatch)
	protected.GET("/repositories", savedRepoHandler.List)
	protected.GET("/repositories/stats", savedRepoHandler.Stats)
	protected.GET("/repositories/:owner/:repo", savedRepoHandler.Get)
	protected.PATCH("/repositories/:id/status", savedRepoHandler.UpdateStatus)
	protected.PATCH("/repositories/:id", savedRepoHandler.UpdateMetadata)
	protected.DELETE("/repositories/:id", savedRepoHandler.Delete)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
