package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wayfarer-app/backend/internal/middleware"
	"github.com/wayfarer-app/backend/internal/services"
	appErrors "github.com/wayfarer-app/backend/pkg/errors"
	"github.com/wayfarer-app/backend/pkg/response"
)

// PreferenceHandler manages traveler reminder and contact preferences.
type PreferenceHandler struct {
	preferences *services.PreferenceService
}

func NewPreferenceHandler(preferences *services.PreferenceService) (*PreferenceHandler, error) {
	if preferences == nil {
		return nil, appErrors.ErrInternalServer.WithMessage("preference handler: service is required")
	}
	return &PreferenceHandler{preferences: preferences}, nil
}

// GetReminders returns the traveler's reminder preferences, falling back to
// defaults when none have been stored.
func (h *PreferenceHandler) GetReminders(c *gin.Context) {
	travelerID := c.GetString(middleware.CtxTravelerIDKey)

	prefs, err := h.preferences.Reminders(c.Request.Context(), travelerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, prefs)
}

type updateRemindersRequest struct {
	Enabled    bool   `json:"enabled"`
	DayBefore  bool   `json:"day_before"`
	MorningOf  bool   `json:"morning_of"`
	HourBefore bool   `json:"hour_before"`
	Delivery   string `json:"delivery" validate:"omitempty,oneof=sms"`
}

// UpdateReminders stores the traveler's reminder preferences.
func (h *PreferenceHandler) UpdateReminders(c *gin.Context) {
	var req updateRemindersRequest
	if !bindAndValidate(c, &req) {
		return
	}

	travelerID := c.GetString(middleware.CtxTravelerIDKey)
	prefs, err := h.preferences.UpdateReminders(c.Request.Context(), travelerID, services.ReminderPreferences{
		Enabled:    req.Enabled,
		DayBefore:  req.DayBefore,
		MorningOf:  req.MorningOf,
		HourBefore: req.HourBefore,
		Delivery:   req.Delivery,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, prefs)
}

type updatePhoneRequest struct {
	Phone string `json:"phone" validate:"required,min=7,max=20"`
}

// UpdatePhone stores the phone number SMS reminders are delivered to.
func (h *PreferenceHandler) UpdatePhone(c *gin.Context) {
	var req updatePhoneRequest
	if !bindAndValidate(c, &req) {
		return
	}

	travelerID := c.GetString(middleware.CtxTravelerIDKey)
	if err := h.preferences.UpdatePhone(c.Request.Context(), travelerID, req.Phone); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": true})
}
