package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wayfarer-app/backend/internal/middleware"
	"github.com/wayfarer-app/backend/internal/services"
	appErrors "github.com/wayfarer-app/backend/pkg/errors"
	"github.com/wayfarer-app/backend/pkg/response"
)

// ItineraryHandler exposes itinerary generation and retrieval endpoints.
type ItineraryHandler struct {
	itineraries *services.ItineraryService
}

func NewItineraryHandler(itineraries *services.ItineraryService) (*ItineraryHandler, error) {
	if itineraries == nil {
		return nil, appErrors.ErrInternalServer.WithMessage("itinerary handler: service is required")
	}
	return &ItineraryHandler{itineraries: itineraries}, nil
}

type generateItineraryRequest struct {
	Destination struct {
		Name    string  `json:"name" validate:"required,min=1,max=120"`
		Country string  `json:"country" validate:"max=120"`
		Lat     float64 `json:"lat" validate:"min=-90,max=90"`
		Lng     float64 `json:"lng" validate:"min=-180,max=180"`
	} `json:"destination" validate:"required"`
	Interests    []string `json:"interests" validate:"max=10,dive,max=40"`
	Budget       string   `json:"budget" validate:"omitempty,oneof=low medium high"`
	DurationDays int      `json:"duration_days" validate:"required,min=1,max=30"`
	StartDate    string   `json:"start_date" validate:"required"`
}

// Generate builds and persists a new itinerary for the authenticated traveler.
func (h *ItineraryHandler) Generate(c *gin.Context) {
	var req generateItineraryRequest
	if !bindAndValidate(c, &req) {
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("start_date must be formatted as YYYY-MM-DD"))
		return
	}

	input := services.GenerateInput{
		TravelerID: c.GetString(middleware.CtxTravelerIDKey),
		Destination: services.DestinationInput{
			Name:    req.Destination.Name,
			Country: req.Destination.Country,
			Lat:     req.Destination.Lat,
			Lng:     req.Destination.Lng,
		},
		Interests:    req.Interests,
		Budget:       req.Budget,
		DurationDays: req.DurationDays,
		StartDate:    startDate,
	}

	itinerary, err := h.itineraries.Generate(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, itinerary)
}

// List returns the traveler's itineraries, newest first.
func (h *ItineraryHandler) List(c *gin.Context) {
	travelerID := c.GetString(middleware.CtxTravelerIDKey)
	limit := parseIntQuery(c, "limit", 20)
	offset := parseIntQuery(c, "offset", 0)

	itineraries, err := h.itineraries.List(c.Request.Context(), travelerID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, itineraries)
}

// Get returns one itinerary including day plans and activities.
func (h *ItineraryHandler) Get(c *gin.Context) {
	travelerID := c.GetString(middleware.CtxTravelerIDKey)

	itinerary, err := h.itineraries.Get(c.Request.Context(), travelerID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, itinerary)
}

// Delete removes an itinerary and cancels its pending reminders.
func (h *ItineraryHandler) Delete(c *gin.Context) {
	travelerID := c.GetString(middleware.CtxTravelerIDKey)

	cancelled, err := h.itineraries.Delete(c.Request.Context(), travelerID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"cancelled_reminders": cancelled})
}
