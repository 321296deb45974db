package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wayfarer-app/backend/pkg/response"
)

// Health returns a simple status payload useful for readiness checks.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		if db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
				status = "degraded"
			}
		}

		code := http.StatusOK
		if status != "ok" {
			code = http.StatusServiceUnavailable
		}
		response.Success(c, code, gin.H{"status": status})
	}
}
