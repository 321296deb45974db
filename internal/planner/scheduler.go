package planner

import (
	"errors"
	"time"
)

// Scheduling bounds.
const (
	minActivitiesPerDay = 3
	maxActivitiesPerDay = 4
	minVisitMinutes     = 90
	maxVisitMinutes     = 150

	// rainThreshold is the precipitation probability above which nature
	// activities are excluded for the day.
	rainThreshold = 70
)

// ScheduleInput carries everything the day scheduler needs for one run.
type ScheduleInput struct {
	Ranked   []ScoredAttraction
	Days     int
	Start    time.Time
	Forecast []DailyForecast
}

// PlannedActivity is an attraction placed into a day slot.
type PlannedActivity struct {
	Attraction      ScoredAttraction
	Slot            TimeOfDay
	DurationMinutes int
}

// PlannedDay is a single scheduled calendar day.
type PlannedDay struct {
	Index               int // 1-based
	Date                time.Time
	Activities          []PlannedActivity
	SustainabilityScore int
}

// Schedule is the scheduler output covering exactly the requested duration.
type Schedule struct {
	Days []PlannedDay

	// ThinDays counts days that fell short of the per-day activity target
	// because the ranked pool was exhausted. Thin days are acceptable; the
	// count is surfaced so callers can flag plan quality.
	ThinDays int
}

// BuildSchedule walks the ranked list greedily, one pass per day, and places
// accepted attractions into the fixed slot ladder. No attraction is used twice
// across the itinerary. Nature attractions are skipped on days whose forecast
// precipitation probability exceeds the rain threshold.
//
// The per-day target is a uniform pick in [3,4] and visit durations a uniform
// pick in [90,150] minutes, both drawn from the injected source so one seeded
// run is fully reproducible.
func BuildSchedule(in ScheduleInput, src Source) (Schedule, error) {
	if in.Days <= 0 {
		return Schedule{}, errors.New("scheduler: duration must be at least one day")
	}
	if src == nil {
		src = NewTimeSource()
	}

	start := truncateToDay(in.Start)
	used := make(map[string]struct{}, len(in.Ranked))

	out := Schedule{Days: make([]PlannedDay, 0, in.Days)}
	for dayIdx := 0; dayIdx < in.Days; dayIdx++ {
		date := start.AddDate(0, 0, dayIdx)
		rainy := dayIsRainy(in.Forecast, dayIdx)
		target := minActivitiesPerDay + src.IntN(maxActivitiesPerDay-minActivitiesPerDay+1)

		day := PlannedDay{Index: dayIdx + 1, Date: date}
		for _, attraction := range in.Ranked {
			if len(day.Activities) >= target || len(day.Activities) >= len(DaySlots) {
				break
			}
			if _, taken := used[attraction.ID]; taken {
				continue
			}
			if rainy && attraction.Category == CategoryNature {
				continue
			}

			used[attraction.ID] = struct{}{}
			day.Activities = append(day.Activities, PlannedActivity{
				Attraction:      attraction,
				Slot:            DaySlots[len(day.Activities)],
				DurationMinutes: minVisitMinutes + src.IntN(maxVisitMinutes-minVisitMinutes+1),
			})
		}

		day.SustainabilityScore = daySustainability(day.Activities)
		if len(day.Activities) < target {
			out.ThinDays++
		}
		out.Days = append(out.Days, day)
	}

	return out, nil
}

// daySustainability averages activity scores; an empty day defaults to 50.
func daySustainability(activities []PlannedActivity) int {
	if len(activities) == 0 {
		return 50
	}

	total := 0
	for _, activity := range activities {
		total += activity.Attraction.SustainabilityScore
	}
	return int(float64(total)/float64(len(activities)) + 0.5)
}

// dayIsRainy reports whether the forecast for the given day offset crosses the
// rain threshold. Missing forecast days count as clear.
func dayIsRainy(forecast []DailyForecast, dayIdx int) bool {
	if dayIdx >= len(forecast) {
		return false
	}
	return forecast[dayIdx].PrecipitationProbability > rainThreshold
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
