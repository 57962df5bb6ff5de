// Package routes assembles the gin engine and the /api/v1 route table.
package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-marketplace-api/controllers"
	"github.com/kendall-kelly/service-marketplace-api/middleware"
	"github.com/kendall-kelly/service-marketplace-api/models"
	"github.com/kendall-kelly/service-marketplace-api/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Dependencies are the services the HTTP layer is built from
type Dependencies struct {
	DB            *gorm.DB
	Tokens        *services.TokenService
	Auth          *services.AuthService
	Catalog       *services.CatalogService
	Bookings      *services.BookingService
	Reviews       *services.ReviewService
	Availability  *services.AvailabilityService
	Notifications *services.NotificationService

	AllowedOrigins []string
}

// Setup builds the router with middleware and all API routes
func Setup(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics())
	router.Use(cors.New(corsConfig(deps.AllowedOrigins)))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	health := controllers.NewHealthController(deps.DB)
	users := controllers.NewUserController(deps.Auth)
	catalog := controllers.NewServiceController(deps.Catalog)
	bookings := controllers.NewBookingController(deps.Bookings)
	reviews := controllers.NewReviewController(deps.Reviews)
	availability := controllers.NewAvailabilityController(deps.Availability)
	notifications := controllers.NewNotificationController(deps.Notifications, deps.AllowedOrigins)

	authed := middleware.EnsureValidToken(deps.Tokens, deps.Auth)
	socketAuthed := middleware.EnsureValidSocketToken(deps.Tokens, deps.Auth)
	provider := middleware.RequireRole(models.RoleProvider)
	customer := middleware.RequireRole(models.RoleCustomer)
	admin := middleware.RequireRole(models.RoleAdmin)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", health.Health)
		v1.GET("/database/status", health.DatabaseStatus)

		u := v1.Group("/users")
		{
			u.POST("/sign-up", users.SignUp)
			u.POST("/sign-in", users.SignIn)
			u.POST("/verify", users.Verify)
			u.POST("/verify-email/:token", users.VerifyEmail)
			u.POST("/forgot-password", users.ForgotPassword)
			u.POST("/reset-password", users.ResetPassword)

			u.POST("/sign-out", authed, users.SignOut)
			u.POST("/resend-verification", authed, users.ResendVerification)
			u.POST("/change-password", authed, users.ChangePassword)
			u.GET("/current-user", authed, users.CurrentUser)
		}

		s := v1.Group("/services")
		{
			s.GET("", catalog.List)
			s.GET("/search", catalog.Search)
			s.GET("/mine", authed, provider, catalog.Mine)
			s.GET("/:id", catalog.Get)
			s.POST("", authed, provider, catalog.Create)
			s.PUT("/:id", authed, provider, catalog.Update)
			s.DELETE("/:id", authed, provider, catalog.Delete)
		}

		b := v1.Group("/bookings", authed)
		{
			b.POST("", customer, bookings.Create)
			b.GET("", bookings.List)
			b.GET("/:id", bookings.Get)
			b.PUT("/:id/status", bookings.UpdateStatus)
		}

		r := v1.Group("/reviews")
		{
			r.POST("", authed, customer, reviews.Create)
			r.GET("/:service_id", reviews.ListByService)
		}

		a := v1.Group("/availability", authed)
		{
			a.GET("", availability.List)
			a.POST("", availability.Save)
			a.DELETE("", availability.DeleteAll)
			a.GET("/:day", availability.Get)
			a.DELETE("/:day", availability.Delete)
		}

		n := v1.Group("/notifications")
		{
			n.GET("/ws/:username", socketAuthed, notifications.Connect)
			n.GET("", authed, notifications.List)
			n.PATCH("/:id/read", authed, notifications.MarkRead)
			n.POST("/send-notification/:username", authed, admin, notifications.Send)
			n.POST("/broadcast", authed, admin, notifications.Broadcast)
		}
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "WWW-Authenticate"},
		MaxAge:        12 * time.Hour,
	}

	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
