package api

import (
	"github.com/gin-gonic/gin"

	"github.com/wayfarer-app/backend/internal/handlers"
)

func registerNotificationRoutes(group *gin.RouterGroup, handler *handlers.NotificationHandler) {
	notifications := group.Group("/notifications")
	{
		notifications.GET("", handler.List)
		notifications.POST("/:id/cancel", handler.Cancel)
		notifications.GET("/stream", handler.Stream)
	}
}
