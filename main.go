package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-marketplace-api/config"
	"github.com/kendall-kelly/service-marketplace-api/jobs"
	"github.com/kendall-kelly/service-marketplace-api/logger"
	"github.com/kendall-kelly/service-marketplace-api/models"
	"github.com/kendall-kelly/service-marketplace-api/routes"
	"github.com/kendall-kelly/service-marketplace-api/services"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// application is everything main starts and stops
type application struct {
	router  *gin.Engine
	actions *services.ActionTokenService
	redis   *redis.Client
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

// run starts the server and blocks until a shutdown signal or a server
// error. Returning instead of exiting lets the deferred cleanup run.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Setup(cfg.LogLevel, cfg.GoEnv, os.Stdout)
	log.Info().Str("env", cfg.GoEnv).Msg("Starting Service Marketplace API server")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := config.ConnectDatabase(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	db := config.GetDB()
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Info().Msg("Database migration completed successfully")

	ctx := context.Background()
	app, err := newApplication(ctx, cfg, db)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	if app.redis != nil {
		defer app.redis.Close()
	}

	scheduler, err := jobs.NewScheduler(cfg.TokenPurgeSchedule, app.actions)
	if err != nil {
		return fmt.Errorf("failed to configure scheduler: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	return serve(srv, quit)
}

// serve runs srv until it fails or quit fires, then shuts it down gracefully
func serve(srv *http.Server, quit <-chan os.Signal) error {
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server is running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// newApplication wires services and routes. Redis, S3 and SMTP are optional
// and fall back to in-process implementations when not configured.
func newApplication(ctx context.Context, cfg *config.Config, db *gorm.DB) (*application, error) {
	app := &application{}

	tokens, err := services.NewTokenService(cfg)
	if err != nil {
		return nil, err
	}

	var revoked services.RevocationStore = services.NoopRevocationStore{}
	if cfg.RedisAddr != "" {
		client, err := services.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		app.redis = client
		revoked = services.NewRedisRevocationStore(client)
		log.Info().Str("addr", cfg.RedisAddr).Msg("Session deny-list backed by Redis")
	} else {
		log.Warn().Msg("REDIS_ADDR not set, signed-out sessions stay valid until they expire")
	}

	var images services.ImageService
	if cfg.MediaEnabled() {
		s3Service, err := services.NewS3Service(ctx, cfg)
		if err != nil {
			return nil, err
		}
		images = services.NewImageService(s3Service)
		log.Info().Str("bucket", cfg.AWSS3Bucket).Msg("Service media stored in S3")
	}

	users := services.NewUserStore(db, bcrypt.DefaultCost)
	app.actions = services.NewActionTokenService(db, cfg.ActionTokenExpiry)
	auth := services.NewAuthService(users, tokens, app.actions, revoked, services.NewMailer(cfg), cfg.AppBaseURL)
	notifications := services.NewNotificationService(db, services.NewNotificationHub(), users)

	app.router = routes.Setup(routes.Dependencies{
		DB:             db,
		Tokens:         tokens,
		Auth:           auth,
		Catalog:        services.NewCatalogService(db, images),
		Bookings:       services.NewBookingService(db, notifications),
		Reviews:        services.NewReviewService(db, notifications),
		Availability:   services.NewAvailabilityService(db),
		Notifications:  notifications,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})
	return app, nil
}
