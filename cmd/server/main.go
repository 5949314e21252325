// Package main is the entry point for the rewards hub server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"rewards-hub/internal/bot"
	"rewards-hub/internal/config"
	"rewards-hub/internal/httpapi"
	"rewards-hub/internal/jobs"
	"rewards-hub/internal/pkg/cache"
	"rewards-hub/internal/pkg/db"
	"rewards-hub/internal/pkg/lock"
	"rewards-hub/internal/repository"
	"rewards-hub/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(&cfg.Log)

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(cfg.Database.DSN()); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
	}

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	loc, err := cfg.Checkin.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid check-in timezone")
	}

	// Repositories
	ledgerRepo := repository.NewLedgerRepository(dbPool.Pool)
	referralRepo := repository.NewReferralRepository(dbPool.Pool)
	catalogRepo := repository.NewCatalogRepository(dbPool.Pool)

	// Redis is optional: without it the catalog is read straight from
	// PostgreSQL and claims are not rate limited.
	var (
		rdb          *redis.Client
		catalogCache service.CatalogCache
		limiter      *httpapi.RateLimiter
	)
	if cfg.Redis.Enabled() {
		rdb, err = cache.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		catalogCache = cache.NewCatalogCache(rdb, cfg.Redis.CatalogTTL)
		limiter = httpapi.NewRateLimiter(rdb)
	}

	// Services
	userLock := lock.NewUserLock()
	checkinService := service.NewCheckinService(ledgerRepo, userLock, service.CheckinOptions{
		Reward:      cfg.Checkin.Reward,
		Location:    loc,
		MaxAttempts: cfg.Checkin.MaxAttempts,
		LockTimeout: cfg.Checkin.LockTimeout,
	})
	dashboardService := service.NewDashboardService(ledgerRepo, referralRepo, service.DashboardOptions{
		ReferralBaseURL: cfg.Referral.BaseURL,
		Goal:            cfg.Rewards.Goal,
		Location:        loc,
	})
	referralService := service.NewReferralService(referralRepo, cfg.Referral.Points)
	catalogService := service.NewCatalogService(catalogRepo, catalogCache, ledgerRepo)

	// Background jobs
	scheduler := jobs.NewScheduler(loc)
	if catalogCache != nil {
		if err := scheduler.AddCatalogRefresh(ctx, cfg.Jobs.CatalogRefresh, catalogService); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule catalog refresh")
		}
		if _, err := catalogService.Refresh(ctx); err != nil {
			log.Warn().Err(err).Msg("Initial catalog cache warm-up failed")
		}
	}
	scheduler.Start()

	// HTTP API
	if cfg.Auth.JWTSecret == "" {
		log.Fatal().Msg("auth.jwt_secret is required")
	}
	gin.SetMode(cfg.Server.Mode)
	h := httpapi.NewHandler(checkinService, dashboardService, referralService, catalogService, dbPool.HealthCheck)
	router := httpapi.NewRouter(h, httpapi.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Verifier:       httpapi.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer),
		InternalAPIKey: cfg.Auth.InternalAPIKey,
		Limiter:        limiter,
		ClaimRateLimit: cfg.Server.ClaimRateLimit,
	})
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("HTTP server is starting...")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Telegram bot
	var telegramBot *bot.Bot
	if cfg.Bot.Token != "" {
		telegramBot, err = bot.New(&bot.Dependencies{
			Config:    cfg,
			Checkin:   checkinService,
			Dashboard: dashboardService,
			Catalog:   catalogService,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create bot")
		}
		go telegramBot.Start()
	} else {
		log.Info().Msg("bot.token not set, Telegram bot disabled")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	if telegramBot != nil {
		telegramBot.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	scheduler.Stop()
	cancel()
	log.Info().Msg("Server stopped gracefully")
}

// setupLogger configures the global zerolog logger.
func setupLogger(cfg *config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
