package api

import (
	"github.com/gin-gonic/gin"

	"github.com/wayfarer-app/backend/internal/handlers"
)

func registerPreferenceRoutes(group *gin.RouterGroup, handler *handlers.PreferenceHandler) {
	preferences := group.Group("/preferences")
	{
		preferences.GET("/reminders", handler.GetReminders)
		preferences.PUT("/reminders", handler.UpdateReminders)
		preferences.PUT("/phone", handler.UpdatePhone)
	}
}
