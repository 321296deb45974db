package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/wayfarer-app/backend/internal/handlers"
	"github.com/wayfarer-app/backend/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Itineraries   *handlers.ItineraryHandler
	Notifications *handlers.NotificationHandler
	Preferences   *handlers.PreferenceHandler
}

// NewRouter assembles the gin engine with middleware and all API routes.
func NewRouter(db *gorm.DB, h Handlers) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS())

	router.GET("/health", handlers.Health(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := router.Group("/api")
	apiGroup.Use(middleware.Identity())

	registerItineraryRoutes(apiGroup, h.Itineraries)
	registerNotificationRoutes(apiGroup, h.Notifications)
	registerPreferenceRoutes(apiGroup, h.Preferences)

	router.NoRoute(middleware.NotFoundHandler)

	return router
}
