package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/redmonkez12/natours-api/docs" // Swagger docs (generated)
	"github.com/redmonkez12/natours-api/internal/auth"
	"github.com/redmonkez12/natours-api/internal/booking"
	"github.com/redmonkez12/natours-api/internal/config"
	"github.com/redmonkez12/natours-api/internal/database"
	"github.com/redmonkez12/natours-api/internal/email"
	httpServer "github.com/redmonkez12/natours-api/internal/http"
	"github.com/redmonkez12/natours-api/internal/httputil"
	"github.com/redmonkez12/natours-api/internal/jobs"
	"github.com/redmonkez12/natours-api/internal/logging"
	"github.com/redmonkez12/natours-api/internal/ratelimit"
	"github.com/redmonkez12/natours-api/internal/review"
	"github.com/redmonkez12/natours-api/internal/tour"
	"github.com/redmonkez12/natours-api/internal/user"
)

// @title           Natours API
// @version         1.0
// @description     Tour catalogue, reviews, bookings and accounts for the Natours travel site.

// @contact.name   API Support
// @contact.email  support@natours.io

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()

	mongoDB, err := database.OpenMongo(ctx, cfg.Mongo)
	if err != nil {
		return fmt.Errorf("failed to initialize mongo: %w", err)
	}
	defer func() {
		if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
			logger.Error("failed to disconnect mongo", "error", err)
		}
	}()
	logger.Info("mongo connected", "database", cfg.Mongo.Database)

	db, err := database.OpenPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Rate limit counters fall back to process memory when Redis is down.
	var limitStore ratelimit.Store
	var memoryLimits *ratelimit.MemoryStore
	redisClient, err := database.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, rate limits are per instance", "error", err)
		memoryLimits = ratelimit.NewMemoryStore()
		limitStore = memoryLimits
	} else {
		defer redisClient.Close()
		limitStore = ratelimit.NewRedisStore(redisClient)
	}

	// Repositories
	userRepo := user.NewRepository(mongoDB)
	tourRepo := tour.NewRepository(mongoDB)
	reviewRepo := review.NewRepository(mongoDB)
	bookingRepo := booking.NewRepository(db)

	if err := userRepo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	if err := tourRepo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create tour indexes: %w", err)
	}
	if err := reviewRepo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create review indexes: %w", err)
	}
	if err := bookingRepo.CreateTable(ctx); err != nil {
		return fmt.Errorf("failed to create bookings table: %w", err)
	}

	// Services
	tokens, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	mailer, err := email.NewService(cfg.Email)
	if err != nil {
		return fmt.Errorf("failed to initialize email service: %w", err)
	}
	authService := auth.NewService(userRepo, tokens, mailer, logger)
	reviewService := review.NewService(reviewRepo, tourRepo, logger)

	// HTTP
	errs := httputil.NewErrorWriter(cfg.Server.IsProduction())
	router := httpServer.NewRouter(cfg, httpServer.Handlers{
		Auth:     auth.NewHandler(authService, errs, cfg.Server.IsProduction(), cfg.Auth.CookieDuration),
		Access:   auth.NewMiddleware(auth.NewAuthenticator(tokens, userRepo), errs),
		Users:    user.NewHandler(userRepo, errs),
		Tours:    tour.NewHandler(tourRepo, reviewService, errs),
		Reviews:  review.NewHandler(reviewService, errs),
		Bookings: booking.NewHandler(bookingRepo, tourRepo, errs),
		Limiter:  ratelimit.New(limitStore, cfg.RateLimit, errs),
	}, errs, logger)

	// Background jobs
	scheduler, err := jobs.NewScheduler(logger)
	if err != nil {
		return err
	}
	if err := scheduler.ScheduleResetTokenSweep(userRepo, cfg.Jobs.ResetSweepInterval); err != nil {
		return err
	}
	if memoryLimits != nil {
		if err := scheduler.ScheduleWindowSweep(memoryLimits, cfg.RateLimit.Window); err != nil {
			return err
		}
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			logger.Error("failed to stop background jobs", "error", err)
		}
	}()

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}
