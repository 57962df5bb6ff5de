package testutil

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-marketplace-api/config"
	"github.com/kendall-kelly/service-marketplace-api/routes"
	"github.com/kendall-kelly/service-marketplace-api/services"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// App is a fully wired router backed by SQLite, miniredis and in-memory
// mail and media fakes.
type App struct {
	Router        *gin.Engine
	DB            *gorm.DB
	Config        *config.Config
	Users         *services.UserStore
	Tokens        *services.TokenService
	Actions       *services.ActionTokenService
	Notifications *services.NotificationService
	Mailer        *services.MockMailer
	Images        *services.MockImageService
	Redis         *miniredis.Miniredis
}

// NewApp builds an App. The returned resources are released on test cleanup.
func NewApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := TestConfig()
	db := NewTestDB(t)

	mr := miniredis.RunT(t)
	client, err := services.NewRedisClient(context.Background(), mr.Addr(), "")
	if err != nil {
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	tokens, err := services.NewTokenService(cfg)
	if err != nil {
		t.Fatalf("Failed to create token service: %v", err)
	}

	app := &App{
		DB:      db,
		Config:  cfg,
		Users:   services.NewUserStore(db, bcrypt.MinCost),
		Tokens:  tokens,
		Actions: services.NewActionTokenService(db, cfg.ActionTokenExpiry),
		Mailer:  services.NewMockMailer(),
		Images:  services.NewMockImageService(),
		Redis:   mr,
	}
	app.Notifications = services.NewNotificationService(db, services.NewNotificationHub(), app.Users)

	app.Router = routes.Setup(routes.Dependencies{
		DB:            db,
		Tokens:        tokens,
		Auth:          app.newAuth(client),
		Catalog:       services.NewCatalogService(db, app.Images),
		Bookings:      services.NewBookingService(db, app.Notifications),
		Reviews:       services.NewReviewService(db, app.Notifications),
		Availability:  services.NewAvailabilityService(db),
		Notifications: app.Notifications,

		AllowedOrigins: cfg.CORSAllowedOrigins,
	})
	return app
}

func (a *App) newAuth(client *redis.Client) *services.AuthService {
	return services.NewAuthService(a.Users, a.Tokens, a.Actions,
		services.NewRedisRevocationStore(client), a.Mailer, a.Config.AppBaseURL)
}
