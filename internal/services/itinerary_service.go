package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/wayfarer-app/backend/internal/models"
	"github.com/wayfarer-app/backend/internal/planner"
	"github.com/wayfarer-app/backend/internal/providers"
	apperrors "github.com/wayfarer-app/backend/pkg/errors"
	"github.com/wayfarer-app/backend/pkg/logger"
	"github.com/wayfarer-app/backend/pkg/metrics"
)

const (
	defaultSearchRadiusMeters = 5000
	maxTripDays               = 30
)

// DestinationInput identifies where the trip takes place.
type DestinationInput struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// GenerateInput carries one itinerary generation request.
type GenerateInput struct {
	TravelerID   string
	Destination  DestinationInput
	Interests    []string
	Budget       string
	DurationDays int
	StartDate    time.Time
}

// ActivityDTO is the API-facing activity payload.
type ActivityDTO struct {
	ID                  string  `json:"id"`
	AttractionID        string  `json:"attraction_id"`
	Name                string  `json:"name"`
	Category            string  `json:"category"`
	Description         string  `json:"description,omitempty"`
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
	Address             string  `json:"address,omitempty"`
	TimeSlot            string  `json:"time_slot"`
	DurationMinutes     int     `json:"duration_minutes"`
	Cost                float64 `json:"cost"`
	SustainabilityScore int     `json:"sustainability_score"`
	CrowdLevel          string  `json:"crowd_level"`
	HiddenGem           bool    `json:"hidden_gem"`
	ContactPhone        string  `json:"contact_phone,omitempty"`
	Website             string  `json:"website,omitempty"`
	Rating              float64 `json:"rating,omitempty"`
}

// DayPlanDTO is the API-facing day payload.
type DayPlanDTO struct {
	DayIndex            int           `json:"day_index"`
	Date                time.Time     `json:"date"`
	SustainabilityScore int           `json:"sustainability_score"`
	Activities          []ActivityDTO `json:"activities"`
}

// ItineraryDTO is the API-facing itinerary payload.
type ItineraryDTO struct {
	ID                       string       `json:"id"`
	TravelerID               string       `json:"traveler_id"`
	DestinationName          string       `json:"destination_name"`
	DestinationCountry       string       `json:"destination_country,omitempty"`
	Latitude                 float64      `json:"latitude"`
	Longitude                float64      `json:"longitude"`
	StartDate                time.Time    `json:"start_date"`
	EndDate                  time.Time    `json:"end_date"`
	DurationDays             int          `json:"duration_days"`
	BudgetTier               string       `json:"budget_tier"`
	Interests                []string     `json:"interests"`
	TotalSustainabilityScore int          `json:"total_sustainability_score"`
	ThinDays                 int          `json:"thin_days"`
	RemindersScheduled       int          `json:"reminders_scheduled"`
	Days                     []DayPlanDTO `json:"days"`
	CreatedAt                time.Time    `json:"created_at"`
}

// ItineraryServiceConfig tunes the generation pipeline.
type ItineraryServiceConfig struct {
	// SearchRadiusMeters bounds the candidate lookup around the destination.
	SearchRadiusMeters int
	// Rand supplies scheduler randomness; nil selects a time-seeded source.
	Rand planner.Source
}

// ItineraryService runs the generation pipeline: candidate fetch, scoring,
// day scheduling, aggregation, persistence, and reminder planning.
type ItineraryService struct {
	db         *gorm.DB
	candidates providers.CandidateSource
	forecasts  providers.ForecastSource
	reminders  *ReminderService
	rand       planner.Source
	radius     int
	log        *zap.Logger
}

// NewItineraryService constructs an ItineraryService.
func NewItineraryService(db *gorm.DB, candidates providers.CandidateSource, forecasts providers.ForecastSource, reminders *ReminderService, cfg ItineraryServiceConfig) (*ItineraryService, error) {
	if db == nil {
		return nil, errors.New("itinerary service: db is required")
	}
	if candidates == nil {
		return nil, errors.New("itinerary service: candidate source is required")
	}
	if forecasts == nil {
		return nil, errors.New("itinerary service: forecast source is required")
	}
	if reminders == nil {
		return nil, errors.New("itinerary service: reminder service is required")
	}

	radius := cfg.SearchRadiusMeters
	if radius <= 0 {
		radius = defaultSearchRadiusMeters
	}
	src := cfg.Rand
	if src == nil {
		src = planner.NewTimeSource()
	}

	return &ItineraryService{
		db:         db,
		candidates: candidates,
		forecasts:  forecasts,
		reminders:  reminders,
		rand:       src,
		radius:     radius,
		log:        logger.WithModule("itinerary"),
	}, nil
}

// Generate builds and persists a complete itinerary, then schedules reminders
// for it in the same transaction. Provider failures abort the generation with
// an upstream error and nothing is persisted.
func (s *ItineraryService) Generate(ctx context.Context, input GenerateInput) (*ItineraryDTO, error) {
	ctx = ensureContext(ctx)
	start := time.Now()

	dto, err := s.generate(ctx, input)

	metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ItinerariesGenerated.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.ItinerariesGenerated.WithLabelValues("success").Inc()
	return dto, nil
}

func (s *ItineraryService) generate(ctx context.Context, input GenerateInput) (*ItineraryDTO, error) {
	if err := validateGenerateInput(&input); err != nil {
		return nil, err
	}

	candidates, err := s.candidates.FetchCandidates(ctx, input.Destination.Lat, input.Destination.Lng, s.radius)
	if err != nil {
		return nil, apperrors.ErrUpstreamData.WithInternal(fmt.Errorf("itinerary service: fetch candidates: %w", err))
	}

	forecast, err := s.forecasts.FetchForecast(ctx, input.Destination.Lat, input.Destination.Lng, input.DurationDays)
	if err != nil {
		return nil, apperrors.ErrUpstreamData.WithInternal(fmt.Errorf("itinerary service: fetch forecast: %w", err))
	}

	ranked := planner.ScoreAttractions(candidates, toCategories(input.Interests), planner.BudgetTier(input.Budget))

	schedule, err := planner.BuildSchedule(planner.ScheduleInput{
		Ranked:   ranked,
		Days:     input.DurationDays,
		Start:    input.StartDate,
		Forecast: forecast,
	}, s.rand)
	if err != nil {
		return nil, apperrors.NewBadRequest(err.Error())
	}

	itinerary, err := buildItineraryModel(input, schedule)
	if err != nil {
		return nil, err
	}

	var scheduled int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Identity lives upstream; the local profile row may not exist yet for
		// travelers who never touched their preferences.
		if _, err := ensureTraveler(tx, input.TravelerID); err != nil {
			return apperrors.ErrPersistence.WithInternal(fmt.Errorf("itinerary service: ensure traveler: %w", err))
		}

		if err := tx.Create(itinerary).Error; err != nil {
			return apperrors.ErrPersistence.WithInternal(fmt.Errorf("itinerary service: create itinerary: %w", err))
		}

		var txErr error
		scheduled, txErr = s.reminders.ScheduleWithin(ctx, tx, itinerary)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("itinerary generated",
		zap.String("itinerary_id", itinerary.ID),
		zap.String("traveler_id", itinerary.TravelerID),
		zap.Int("days", len(itinerary.Days)),
		zap.Int("thin_days", itinerary.ThinDays),
		zap.Int("reminders", scheduled),
	)

	dto := mapItinerary(*itinerary)
	dto.RemindersScheduled = scheduled
	return &dto, nil
}

// Get loads one itinerary owned by the traveler, days and activities in order.
func (s *ItineraryService) Get(ctx context.Context, travelerID, itineraryID string) (*ItineraryDTO, error) {
	ctx = ensureContext(ctx)

	var itinerary models.Itinerary
	err := s.db.WithContext(ctx).
		Preload("Days", func(db *gorm.DB) *gorm.DB { return db.Order("day_index ASC") }).
		Preload("Days.Activities", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ? AND traveler_id = ?", itineraryID, travelerID).
		First(&itinerary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("itinerary service: load itinerary: %w", err)
	}

	dto := mapItinerary(itinerary)
	return &dto, nil
}

// List returns the traveler's itineraries without day detail, newest first.
func (s *ItineraryService) List(ctx context.Context, travelerID string, limit, offset int) ([]ItineraryDTO, error) {
	ctx = ensureContext(ctx)
	travelerID = strings.TrimSpace(travelerID)
	if travelerID == "" {
		return nil, apperrors.NewBadRequest("traveler id is required")
	}

	var rows []models.Itinerary
	err := s.db.WithContext(ctx).
		Where("traveler_id = ?", travelerID).
		Order("created_at DESC").
		Limit(clampLimit(limit, 20, 100)).
		Offset(max0(offset)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("itinerary service: list itineraries: %w", err)
	}

	items := make([]ItineraryDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapItinerary(row))
	}
	return items, nil
}

// Delete removes an itinerary and batch-cancels its pending reminders.
// Returns the number of reminders cancelled.
func (s *ItineraryService) Delete(ctx context.Context, travelerID, itineraryID string) (int64, error) {
	ctx = ensureContext(ctx)

	var cancelled int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var itinerary models.Itinerary
		err := tx.Where("id = ? AND traveler_id = ?", itineraryID, travelerID).First(&itinerary).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("itinerary service: load itinerary: %w", err)
		}

		cancelled, err = s.reminders.cancelForItinerary(tx, itinerary.ID)
		if err != nil {
			return err
		}

		if err := tx.Where("day_plan_id IN (?)",
			tx.Session(&gorm.Session{NewDB: true}).Model(&models.DayPlan{}).Select("id").Where("itinerary_id = ?", itinerary.ID),
		).Delete(&models.Activity{}).Error; err != nil {
			return fmt.Errorf("itinerary service: delete activities: %w", err)
		}
		if err := tx.Where("itinerary_id = ?", itinerary.ID).Delete(&models.DayPlan{}).Error; err != nil {
			return fmt.Errorf("itinerary service: delete day plans: %w", err)
		}
		if err := tx.Delete(&itinerary).Error; err != nil {
			return fmt.Errorf("itinerary service: delete itinerary: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("itinerary deleted",
		zap.String("itinerary_id", itineraryID),
		zap.Int64("reminders_cancelled", cancelled),
	)
	return cancelled, nil
}

func validateGenerateInput(input *GenerateInput) error {
	input.TravelerID = strings.TrimSpace(input.TravelerID)
	if input.TravelerID == "" {
		return apperrors.NewBadRequest("traveler id is required")
	}

	input.Destination.Name = strings.TrimSpace(input.Destination.Name)
	if input.Destination.Name == "" {
		return apperrors.NewBadRequest("destination name is required")
	}

	if input.DurationDays < 1 || input.DurationDays > maxTripDays {
		return apperrors.NewBadRequest(fmt.Sprintf("duration must be between 1 and %d days", maxTripDays))
	}

	if input.StartDate.IsZero() {
		return apperrors.NewBadRequest("start date is required")
	}

	switch planner.BudgetTier(input.Budget) {
	case planner.BudgetLow, planner.BudgetMedium, planner.BudgetHigh:
	case "":
		input.Budget = string(planner.BudgetMedium)
	default:
		return apperrors.NewBadRequest(fmt.Sprintf("unknown budget tier %q", input.Budget))
	}

	return nil
}

// buildItineraryModel wraps the schedule into the persisted entity shape and
// computes the aggregate sustainability score as the rounded mean of per-day
// scores.
func buildItineraryModel(input GenerateInput, schedule planner.Schedule) (*models.Itinerary, error) {
	interests, err := json.Marshal(normaliseInterests(input.Interests))
	if err != nil {
		return nil, fmt.Errorf("itinerary service: encode interests: %w", err)
	}

	itinerary := &models.Itinerary{
		TravelerID:         input.TravelerID,
		DestinationName:    input.Destination.Name,
		DestinationCountry: strings.TrimSpace(input.Destination.Country),
		Latitude:           input.Destination.Lat,
		Longitude:          input.Destination.Lng,
		StartDate:          schedule.Days[0].Date,
		EndDate:            schedule.Days[len(schedule.Days)-1].Date,
		DurationDays:       input.DurationDays,
		BudgetTier:         input.Budget,
		Interests:          datatypes.JSON(interests),
		ThinDays:           schedule.ThinDays,
	}

	totalScore := 0
	for _, day := range schedule.Days {
		plan := models.DayPlan{
			DayIndex:            day.Index,
			Date:                day.Date,
			SustainabilityScore: day.SustainabilityScore,
		}
		totalScore += day.SustainabilityScore

		for position, planned := range day.Activities {
			attraction := planned.Attraction
			plan.Activities = append(plan.Activities, models.Activity{
				AttractionID:        attraction.ID,
				Name:                attraction.Name,
				Category:            string(attraction.Category),
				Description:         attraction.Description,
				Latitude:            attraction.Latitude,
				Longitude:           attraction.Longitude,
				Address:             attraction.Address,
				SlotHour:            planned.Slot.Hour,
				SlotMinute:          planned.Slot.Minute,
				SlotScheduled:       planned.Slot.Scheduled,
				Position:            position,
				DurationMinutes:     planned.DurationMinutes,
				Cost:                attraction.EstimatedCost,
				SustainabilityScore: attraction.SustainabilityScore,
				CrowdLevel:          string(attraction.CrowdLevel),
				HiddenGem:           attraction.HiddenGem,
				ContactPhone:        attraction.ContactPhone,
				Website:             attraction.Website,
				Rating:              attraction.RatingEstimate,
			})
		}

		itinerary.Days = append(itinerary.Days, plan)
	}

	itinerary.TotalSustainabilityScore = int(float64(totalScore)/float64(len(schedule.Days)) + 0.5)
	return itinerary, nil
}

func toCategories(interests []string) []planner.Category {
	categories := make([]planner.Category, 0, len(interests))
	for _, interest := range interests {
		interest = strings.ToLower(strings.TrimSpace(interest))
		if interest == "" {
			continue
		}
		categories = append(categories, planner.Category(interest))
	}
	return categories
}

func normaliseInterests(interests []string) []string {
	seen := make(map[string]struct{}, len(interests))
	out := make([]string, 0, len(interests))
	for _, interest := range interests {
		interest = strings.ToLower(strings.TrimSpace(interest))
		if interest == "" {
			continue
		}
		if _, dup := seen[interest]; dup {
			continue
		}
		seen[interest] = struct{}{}
		out = append(out, interest)
	}
	return out
}

func mapItinerary(row models.Itinerary) ItineraryDTO {
	var interests []string
	if len(row.Interests) > 0 {
		_ = json.Unmarshal(row.Interests, &interests)
	}

	dto := ItineraryDTO{
		ID:                       row.ID,
		TravelerID:               row.TravelerID,
		DestinationName:          row.DestinationName,
		DestinationCountry:       row.DestinationCountry,
		Latitude:                 row.Latitude,
		Longitude:                row.Longitude,
		StartDate:                row.StartDate,
		EndDate:                  row.EndDate,
		DurationDays:             row.DurationDays,
		BudgetTier:               row.BudgetTier,
		Interests:                interests,
		TotalSustainabilityScore: row.TotalSustainabilityScore,
		ThinDays:                 row.ThinDays,
		CreatedAt:                row.CreatedAt,
	}

	for _, day := range row.Days {
		dayDTO := DayPlanDTO{
			DayIndex:            day.DayIndex,
			Date:                day.Date,
			SustainabilityScore: day.SustainabilityScore,
		}
		for _, activity := range day.Activities {
			slot := planner.TimeOfDay{
				Hour:      activity.SlotHour,
				Minute:    activity.SlotMinute,
				Scheduled: activity.SlotScheduled,
			}
			dayDTO.Activities = append(dayDTO.Activities, ActivityDTO{
				ID:                  activity.ID,
				AttractionID:        activity.AttractionID,
				Name:                activity.Name,
				Category:            activity.Category,
				Description:         activity.Description,
				Latitude:            activity.Latitude,
				Longitude:           activity.Longitude,
				Address:             activity.Address,
				TimeSlot:            slot.String(),
				DurationMinutes:     activity.DurationMinutes,
				Cost:                activity.Cost,
				SustainabilityScore: activity.SustainabilityScore,
				CrowdLevel:          activity.CrowdLevel,
				HiddenGem:           activity.HiddenGem,
				ContactPhone:        activity.ContactPhone,
				Website:             activity.Website,
				Rating:              activity.Rating,
			})
		}
		dto.Days = append(dto.Days, dayDTO)
	}

	return dto
}
