package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wayfarer-app/backend/internal/database/testutil"
	"github.com/wayfarer-app/backend/internal/models"
	"github.com/wayfarer-app/backend/internal/planner"
	apperrors "github.com/wayfarer-app/backend/pkg/errors"
)

type stubCandidateSource struct {
	candidates []planner.CandidateAttraction
	err        error
}

func (s *stubCandidateSource) FetchCandidates(ctx context.Context, lat, lng float64, radiusMeters int) ([]planner.CandidateAttraction, error) {
	return s.candidates, s.err
}

type stubForecastSource struct {
	forecast []planner.DailyForecast
	err      error
}

func (s *stubForecastSource) FetchForecast(ctx context.Context, lat, lng float64, days int) ([]planner.DailyForecast, error) {
	return s.forecast, s.err
}

func testCandidates(n int) []planner.CandidateAttraction {
	out := make([]planner.CandidateAttraction, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, planner.CandidateAttraction{
			ID:             fmt.Sprintf("poi-%d", i),
			Name:           fmt.Sprintf("Attraction %d", i),
			Category:       planner.CategoryCulture,
			RatingEstimate: 4.0,
			Popularity:     planner.PopularityMedium,
		})
	}
	return out
}

func newItineraryTestService(t *testing.T, candidates *stubCandidateSource, forecasts *stubForecastSource) (*ItineraryService, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	prefs, err := NewPreferenceService(db)
	require.NoError(t, err)
	reminders, err := NewReminderService(db, prefs)
	require.NoError(t, err)

	svc, err := NewItineraryService(db, candidates, forecasts, reminders, ItineraryServiceConfig{
		Rand: planner.FixedSource{Value: 0},
	})
	require.NoError(t, err)
	return svc, db
}

func generateTestInput() GenerateInput {
	return GenerateInput{
		TravelerID: "traveler-1",
		Destination: DestinationInput{
			Name:    "Lisbon",
			Country: "Portugal",
			Lat:     38.7223,
			Lng:     -9.1393,
		},
		Interests:    []string{"Culture", "culture", "food"},
		DurationDays: 3,
		StartDate:    time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC),
	}
}

func TestGeneratePersistsItineraryAndReminders(t *testing.T) {
	svc, db := newItineraryTestService(t,
		&stubCandidateSource{candidates: testCandidates(12)},
		&stubForecastSource{},
	)

	ctx := context.Background()
	dto, err := svc.Generate(ctx, generateTestInput())
	require.NoError(t, err)
	require.NotEmpty(t, dto.ID)
	require.Equal(t, "traveler-1", dto.TravelerID)
	require.Equal(t, 3, dto.DurationDays)
	require.Len(t, dto.Days, 3)
	// Interests are lowercased and deduplicated.
	require.Equal(t, []string{"culture", "food"}, dto.Interests)
	// Empty budget defaults to medium.
	require.Equal(t, "medium", dto.BudgetTier)
	require.Zero(t, dto.ThinDays)
	require.GreaterOrEqual(t, dto.TotalSustainabilityScore, 0)
	require.LessOrEqual(t, dto.TotalSustainabilityScore, 100)

	for _, day := range dto.Days {
		require.Len(t, day.Activities, 3)
		for _, activity := range day.Activities {
			require.NotEqual(t, "flexible", activity.TimeSlot)
			require.GreaterOrEqual(t, activity.DurationMinutes, 90)
			require.LessOrEqual(t, activity.DurationMinutes, 150)
		}
	}

	// All reminder types are enabled by default: 3 per activity, 9 activities.
	require.Equal(t, 27, dto.RemindersScheduled)

	var notificationCount int64
	require.NoError(t, db.Model(&models.Notification{}).Where("itinerary_id = ?", dto.ID).Count(&notificationCount).Error)
	require.Equal(t, int64(27), notificationCount)

	loaded, err := svc.Get(ctx, "traveler-1", dto.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Days, 3)
	require.Equal(t, dto.DestinationName, loaded.DestinationName)
}

func TestGenerateForTravelerWithoutProfileRow(t *testing.T) {
	svc, db := newItineraryTestService(t,
		&stubCandidateSource{candidates: testCandidates(6)},
		&stubForecastSource{},
	)

	// This traveler never touched preferences, so no profile row exists yet.
	// Generation must accept any upstream identity and materialise the row
	// alongside the itinerary.
	input := generateTestInput()
	input.TravelerID = "fresh-traveler"
	dto, err := svc.Generate(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, "fresh-traveler", dto.TravelerID)

	var traveler models.Traveler
	require.NoError(t, db.Where("id = ?", "fresh-traveler").First(&traveler).Error)
}

func TestUnscheduledSlotSurvivesReload(t *testing.T) {
	svc, db := newItineraryTestService(t, &stubCandidateSource{}, &stubForecastSource{})

	start := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	itinerary := models.Itinerary{
		TravelerID:      "traveler-1",
		DestinationName: "Lisbon",
		StartDate:       start,
		EndDate:         start,
		DurationDays:    1,
		Days: []models.DayPlan{{
			DayIndex: 1,
			Date:     start,
			Activities: []models.Activity{{
				AttractionID: "poi-1",
				Name:         "Old Town Walk",
				Category:     "culture",
				Position:     0,
			}},
		}},
	}
	require.NoError(t, db.Create(&itinerary).Error)

	// The false flag must round-trip through the insert; a column default of
	// true would resurrect it as a midnight slot.
	var reloaded models.Activity
	require.NoError(t, db.Where("attraction_id = ?", "poi-1").First(&reloaded).Error)
	require.False(t, reloaded.SlotScheduled)

	dto, err := svc.Get(context.Background(), "traveler-1", itinerary.ID)
	require.NoError(t, err)
	require.Equal(t, "flexible", dto.Days[0].Activities[0].TimeSlot)
}

func TestGenerateUpstreamFailureLeavesNothingPersisted(t *testing.T) {
	svc, db := newItineraryTestService(t,
		&stubCandidateSource{err: errors.New("geoapify: 502")},
		&stubForecastSource{},
	)

	_, err := svc.Generate(context.Background(), generateTestInput())
	require.Error(t, err)

	require.Equal(t, apperrors.ErrUpstreamData.Code, apperrors.FromError(err).Code)

	var count int64
	require.NoError(t, db.Model(&models.Itinerary{}).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestGenerateForecastFailureIsUpstreamError(t *testing.T) {
	svc, _ := newItineraryTestService(t,
		&stubCandidateSource{candidates: testCandidates(6)},
		&stubForecastSource{err: errors.New("open-meteo: timeout")},
	)

	_, err := svc.Generate(context.Background(), generateTestInput())
	require.Error(t, err)

	require.Equal(t, apperrors.ErrUpstreamData.Code, apperrors.FromError(err).Code)
}

func TestGenerateValidation(t *testing.T) {
	svc, _ := newItineraryTestService(t,
		&stubCandidateSource{candidates: testCandidates(6)},
		&stubForecastSource{},
	)
	ctx := context.Background()

	missingTraveler := generateTestInput()
	missingTraveler.TravelerID = " "
	_, err := svc.Generate(ctx, missingTraveler)
	require.Error(t, err)

	tooLong := generateTestInput()
	tooLong.DurationDays = 31
	_, err = svc.Generate(ctx, tooLong)
	require.Error(t, err)

	badBudget := generateTestInput()
	badBudget.Budget = "lavish"
	_, err = svc.Generate(ctx, badBudget)
	require.Error(t, err)
}

func TestGenerateEmptyCandidatePoolYieldsThinDays(t *testing.T) {
	svc, _ := newItineraryTestService(t,
		&stubCandidateSource{},
		&stubForecastSource{},
	)

	dto, err := svc.Generate(context.Background(), generateTestInput())
	require.NoError(t, err)
	require.Len(t, dto.Days, 3)
	require.Equal(t, 3, dto.ThinDays)
	for _, day := range dto.Days {
		require.Empty(t, day.Activities)
		require.Equal(t, 50, day.SustainabilityScore)
	}
	require.Zero(t, dto.RemindersScheduled)
}

func testCityCandidates() []planner.CandidateAttraction {
	out := make([]planner.CandidateAttraction, 0, 6)
	for i := 0; i < 3; i++ {
		out = append(out, planner.CandidateAttraction{
			ID:             fmt.Sprintf("nature-%d", i),
			Name:           fmt.Sprintf("Forest Trail %d", i),
			Category:       planner.CategoryNature,
			RatingEstimate: 4.5,
			Popularity:     planner.PopularityLow,
		})
	}
	for i := 0; i < 3; i++ {
		out = append(out, planner.CandidateAttraction{
			ID:             fmt.Sprintf("food-%d", i),
			Name:           fmt.Sprintf("Market Hall %d", i),
			Category:       planner.CategoryFood,
			RatingEstimate: 4.0,
			Popularity:     planner.PopularityMedium,
		})
	}
	return out
}

func testCityInput() GenerateInput {
	return GenerateInput{
		TravelerID: "traveler-1",
		Destination: DestinationInput{
			Name: "Test City",
			Lat:  10.0,
			Lng:  10.0,
		},
		Interests:    []string{"nature", "food"},
		Budget:       "medium",
		DurationDays: 3,
		StartDate:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestGenerateMixedPoolUsesEachAttractionAtMostOnce(t *testing.T) {
	svc, _ := newItineraryTestService(t,
		&stubCandidateSource{candidates: testCityCandidates()},
		&stubForecastSource{forecast: []planner.DailyForecast{
			{PrecipitationProbability: 0},
			{PrecipitationProbability: 0},
			{PrecipitationProbability: 0},
		}},
	)

	dto, err := svc.Generate(context.Background(), testCityInput())
	require.NoError(t, err)
	require.Len(t, dto.Days, 3)

	seen := map[string]int{}
	total := 0
	for _, day := range dto.Days {
		for _, activity := range day.Activities {
			seen[activity.AttractionID]++
			total++
		}
	}
	// The whole pool is consumed, each attraction at most once.
	require.Equal(t, 6, total)
	for id, count := range seen {
		require.Equalf(t, 1, count, "attraction %s scheduled more than once", id)
	}

	require.Greater(t, dto.TotalSustainabilityScore, 50)
}

func TestGenerateRainyDayExcludesNatureActivities(t *testing.T) {
	svc, _ := newItineraryTestService(t,
		&stubCandidateSource{candidates: testCityCandidates()},
		&stubForecastSource{forecast: []planner.DailyForecast{
			{PrecipitationProbability: 0},
			{PrecipitationProbability: 90},
			{PrecipitationProbability: 0},
		}},
	)

	dto, err := svc.Generate(context.Background(), testCityInput())
	require.NoError(t, err)
	require.Len(t, dto.Days, 3)

	require.NotEmpty(t, dto.Days[1].Activities)
	for _, activity := range dto.Days[1].Activities {
		require.NotEqual(t, "nature", activity.Category)
	}
}

func TestGetUnknownItineraryReturnsNotFound(t *testing.T) {
	svc, _ := newItineraryTestService(t, &stubCandidateSource{}, &stubForecastSource{})

	_, err := svc.Get(context.Background(), "traveler-1", "missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc, _ := newItineraryTestService(t,
		&stubCandidateSource{candidates: testCandidates(6)},
		&stubForecastSource{},
	)
	ctx := context.Background()

	dto, err := svc.Generate(ctx, generateTestInput())
	require.NoError(t, err)

	_, err = svc.Get(ctx, "someone-else", dto.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListReturnsNewestFirst(t *testing.T) {
	svc, _ := newItineraryTestService(t,
		&stubCandidateSource{candidates: testCandidates(8)},
		&stubForecastSource{},
	)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		input := generateTestInput()
		input.DurationDays = 1
		_, err := svc.Generate(ctx, input)
		require.NoError(t, err)
	}

	items, err := svc.List(ctx, "traveler-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)
}

func TestDeleteCancelsPendingReminders(t *testing.T) {
	svc, db := newItineraryTestService(t,
		&stubCandidateSource{candidates: testCandidates(12)},
		&stubForecastSource{},
	)
	ctx := context.Background()

	dto, err := svc.Generate(ctx, generateTestInput())
	require.NoError(t, err)
	require.Equal(t, 27, dto.RemindersScheduled)

	// Mark one reminder sent so only the pending rest gets cancelled.
	var first models.Notification
	require.NoError(t, db.Where("itinerary_id = ?", dto.ID).Order("scheduled_at ASC").First(&first).Error)
	require.NoError(t, db.Model(&first).Update("status", models.NotificationSent).Error)

	cancelled, err := svc.Delete(ctx, "traveler-1", dto.ID)
	require.NoError(t, err)
	require.Equal(t, int64(26), cancelled)

	_, err = svc.Get(ctx, "traveler-1", dto.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	// Day plans and activities are gone with the itinerary.
	var count int64
	require.NoError(t, db.Model(&models.DayPlan{}).Where("itinerary_id = ?", dto.ID).Count(&count).Error)
	require.Zero(t, count)

	// The sent notification keeps its terminal status.
	var sent models.Notification
	require.NoError(t, db.Where("id = ?", first.ID).First(&sent).Error)
	require.Equal(t, models.NotificationSent, sent.Status)
}

func TestDeleteUnknownItinerary(t *testing.T) {
	svc, _ := newItineraryTestService(t, &stubCandidateSource{}, &stubForecastSource{})

	_, err := svc.Delete(context.Background(), "traveler-1", "missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
