package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wayfarer-app/backend/internal/middleware"
	"github.com/wayfarer-app/backend/internal/notifications"
	"github.com/wayfarer-app/backend/internal/services"
	appErrors "github.com/wayfarer-app/backend/pkg/errors"
	"github.com/wayfarer-app/backend/pkg/response"
)

// NotificationHandler exposes reminder listing, cancellation and the
// realtime delivery stream.
type NotificationHandler struct {
	reminders *services.ReminderService
	hub       *notifications.Hub
}

func NewNotificationHandler(reminders *services.ReminderService, hub *notifications.Hub) (*NotificationHandler, error) {
	if reminders == nil {
		return nil, appErrors.ErrInternalServer.WithMessage("notification handler: reminder service is required")
	}
	return &NotificationHandler{reminders: reminders, hub: hub}, nil
}

// List returns the traveler's notifications, optionally filtered by status.
func (h *NotificationHandler) List(c *gin.Context) {
	input := services.ListNotificationsInput{
		TravelerID: c.GetString(middleware.CtxTravelerIDKey),
		Status:     c.Query("status"),
		Limit:      parseIntQuery(c, "limit", 50),
		Offset:     parseIntQuery(c, "offset", 0),
	}

	items, err := h.reminders.ListForTraveler(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, items)
}

// Cancel marks a single pending notification as cancelled.
func (h *NotificationHandler) Cancel(c *gin.Context) {
	travelerID := c.GetString(middleware.CtxTravelerIDKey)

	notification, err := h.reminders.Cancel(c.Request.Context(), travelerID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, notification)
}

// Stream upgrades the connection to a websocket that receives dispatch events
// for the authenticated traveler.
func (h *NotificationHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, appErrors.ErrInternalServer.WithMessage("realtime stream is not enabled"))
		return
	}

	travelerID := c.GetString(middleware.CtxTravelerIDKey)
	h.hub.Serve(travelerID, c.Writer, c.Request)
}
