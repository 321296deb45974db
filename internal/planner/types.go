package planner

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Category classifies a candidate attraction.
type Category string

// Known attraction categories.
const (
	CategoryCulture   Category = "culture"
	CategoryFood      Category = "food"
	CategoryNature    Category = "nature"
	CategoryHistory   Category = "history"
	CategoryShopping  Category = "shopping"
	CategoryAdventure Category = "adventure"
)

// PopularityTier buckets the upstream popularity signal.
type PopularityTier string

// Popularity tiers.
const (
	PopularityLow    PopularityTier = "low"
	PopularityMedium PopularityTier = "medium"
	PopularityHigh   PopularityTier = "high"
)

// BudgetTier is the traveler's requested spending band.
type BudgetTier string

// Budget tiers.
const (
	BudgetLow    BudgetTier = "low"
	BudgetMedium BudgetTier = "medium"
	BudgetHigh   BudgetTier = "high"
)

// CrowdLevel estimates how busy an attraction is.
type CrowdLevel string

// Crowd levels.
const (
	CrowdLow    CrowdLevel = "low"
	CrowdMedium CrowdLevel = "medium"
	CrowdHigh   CrowdLevel = "high"
)

// CandidateAttraction is a raw point of interest sourced externally per
// generation request. Never persisted.
type CandidateAttraction struct {
	ID             string
	Name           string
	Category       Category
	Description    string
	Latitude       float64
	Longitude      float64
	Address        string
	RatingEstimate float64 // 0-5
	Popularity     PopularityTier
	ContactPhone   string
	Website        string
}

// ScoredAttraction is a candidate enriched with derived signals. Transient;
// recomputed on every generation run.
type ScoredAttraction struct {
	CandidateAttraction

	Score               float64
	EstimatedCost       float64
	SustainabilityScore int // 0-100
	CrowdLevel          CrowdLevel
	HiddenGem           bool
}

// DailyForecast is one day of upstream weather data.
type DailyForecast struct {
	Date                     time.Time
	PrecipitationProbability int // percent
	Description              string
}

// TimeOfDay is a structured clock time for an activity slot. The zero value is
// the explicit "unscheduled" variant.
type TimeOfDay struct {
	Hour      int
	Minute    int
	Scheduled bool
}

// At anchors the time of day on the supplied calendar date. Unscheduled slots
// fall back to noon so an activity can never produce an unplaceable reminder.
func (t TimeOfDay) At(date time.Time) time.Time {
	hour, minute := t.Hour, t.Minute
	if !t.Scheduled {
		hour, minute = 12, 0
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location())
}

// String renders the slot as "15:04", or "flexible" for unscheduled slots.
func (t TimeOfDay) String() string {
	if !t.Scheduled {
		return "flexible"
	}
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// NewTimeOfDay builds a scheduled slot value.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute, Scheduled: true}
}

// ParseTimeOfDay converts an "HH:MM" string into a slot value. Anything that
// does not parse yields the unscheduled variant; the noon fallback then
// happens in At, as an explicit branch rather than a silent parse default.
func ParseTimeOfDay(s string) TimeOfDay {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return TimeOfDay{}
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}
	}

	return NewTimeOfDay(hour, minute)
}

// DaySlots is the fixed ordered ladder of activity start times within a day.
var DaySlots = []TimeOfDay{
	NewTimeOfDay(9, 0),
	NewTimeOfDay(11, 30),
	NewTimeOfDay(14, 0),
	NewTimeOfDay(16, 30),
	NewTimeOfDay(19, 0),
}
