package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sumire/consultdesk/internal/cache"
	"github.com/sumire/consultdesk/internal/config"
	"github.com/sumire/consultdesk/internal/handler"
	"github.com/sumire/consultdesk/internal/logging"
	"github.com/sumire/consultdesk/internal/repository"
	"github.com/sumire/consultdesk/internal/service"
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

	logger := logging.New(logging.Config{
		Service: "consultdesk-api",
		Version: cfg.Version,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStart()

	db, err := repository.Open(startCtx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database connected")

	if cfg.MigrateOnStart {
		if err := repository.Migrate(db); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	var stats cache.StatsCache = cache.Noop{}
	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(startCtx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		stats = cache.NewRedisStats(rdb, cfg.StatsCacheTTL)
		logger.Info("redis connected", "ttl", cfg.StatsCacheTTL.String())
	}

	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	ticketRepo := repository.NewTicketRepository(db)

	authSvc := service.NewAuthService(userRepo, service.AuthConfig{
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		GitHubClientID:     cfg.GitHubClientID,
		GitHubClientSecret: cfg.GitHubClientSecret,
		JWTSecret:          cfg.JWTSecret,
		AccessTokenTTL:     cfg.AccessTokenTTL,
		RefreshTokenTTL:    cfg.RefreshTokenTTL,
		PublicURL:          cfg.PublicURL,
	})

	bgCtx, stopBackground := context.WithCancel(logging.WithContext(context.Background(), logger))
	defer stopBackground()

	e := handler.NewServer(handler.Dependencies{
		Logger:         logger,
		Auth:           authSvc,
		Clients:        service.NewClientService(clientRepo, projectRepo, stats),
		Projects:       service.NewProjectService(projectRepo, clientRepo, ticketRepo, stats),
		Tickets:        service.NewTicketService(ticketRepo, projectRepo, stats),
		DB:             db,
		AllowedOrigins: []string{cfg.FrontendURL},
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Context:        bgCtx,
	})

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 30 * time.Second
	e.Server.IdleTimeout = 60 * time.Second

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		errCh <- e.Start(fmt.Sprintf(":%d", cfg.Port))
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
