package api

import (
	"github.com/gin-gonic/gin"

	"github.com/wayfarer-app/backend/internal/handlers"
)

func registerItineraryRoutes(group *gin.RouterGroup, handler *handlers.ItineraryHandler) {
	itineraries := group.Group("/itineraries")
	{
		itineraries.POST("", handler.Generate)
		itineraries.GET("", handler.List)
		itineraries.GET("/:id", handler.Get)
		itineraries.DELETE("/:id", handler.Delete)
	}
}
