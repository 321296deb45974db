package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/wayfarer-app/backend/pkg/errors"
	"github.com/wayfarer-app/backend/pkg/response"
)

// Context keys shared with handlers.
const (
	CtxTravelerIDKey = "travelerID"

	// TravelerIDHeader carries the authenticated subject set by the upstream
	// identity gateway. Authentication itself is out of this service's scope.
	TravelerIDHeader = "X-User-ID"
)

// Identity extracts the authenticated traveler from the gateway header and
// rejects requests without one.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		travelerID := strings.TrimSpace(c.GetHeader(TravelerIDHeader))
		if travelerID == "" {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxTravelerIDKey, travelerID)
		c.Next()
	}
}
