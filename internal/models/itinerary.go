package models

import (
	"time"

	"gorm.io/datatypes"
)

// Itinerary is a generated multi-day travel plan. It is immutable after
// creation except for deletion; edits are expressed as a fresh generation.
type Itinerary struct {
	BaseModel

	TravelerID string `gorm:"type:uuid;index;not null" json:"traveler_id"`

	DestinationName    string  `gorm:"type:varchar(255);not null" json:"destination_name"`
	DestinationCountry string  `gorm:"type:varchar(128)" json:"destination_country"`
	Latitude           float64 `json:"latitude"`
	Longitude          float64 `json:"longitude"`

	StartDate    time.Time `gorm:"not null" json:"start_date"`
	EndDate      time.Time `gorm:"not null" json:"end_date"`
	DurationDays int       `gorm:"not null" json:"duration_days"`

	BudgetTier string         `gorm:"type:varchar(16)" json:"budget_tier"`
	Interests  datatypes.JSON `json:"interests"`

	TotalSustainabilityScore int `json:"total_sustainability_score"`

	// ThinDays counts days that ended up below the activity target because the
	// candidate pool was exhausted. A plan-quality signal, not a failure.
	ThinDays int `json:"thin_days"`

	Days []DayPlan `gorm:"foreignKey:ItineraryID;constraint:OnDelete:CASCADE" json:"days"`
}

// DayPlan is one calendar day of an itinerary with its ordered activities.
type DayPlan struct {
	BaseModel

	ItineraryID string    `gorm:"type:uuid;index;not null" json:"itinerary_id"`
	DayIndex    int       `gorm:"not null" json:"day_index"` // 1-based
	Date        time.Time `gorm:"not null" json:"date"`

	SustainabilityScore int `json:"sustainability_score"`

	Activities []Activity `gorm:"foreignKey:DayPlanID;constraint:OnDelete:CASCADE" json:"activities"`
}

// Activity is a scheduled visit within a day plan. Owned exclusively by its
// day; immutable once assigned to a slot.
type Activity struct {
	BaseModel

	DayPlanID string `gorm:"type:uuid;index;not null" json:"day_plan_id"`

	// AttractionID is the upstream candidate identifier, unique across the
	// whole itinerary.
	AttractionID string `gorm:"type:varchar(128);index;not null" json:"attraction_id"`

	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Category    string `gorm:"type:varchar(32)" json:"category"`
	Description string `gorm:"type:text" json:"description"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `gorm:"type:varchar(512)" json:"address"`

	// Slot columns store the structured time-of-day value. SlotScheduled false
	// means the activity carries no fixed clock time. No column default: GORM
	// omits zero-valued fields on insert, and a default of true would silently
	// promote unscheduled activities to midnight slots.
	SlotHour      int  `json:"slot_hour"`
	SlotMinute    int  `json:"slot_minute"`
	SlotScheduled bool `json:"slot_scheduled"`

	Position        int     `gorm:"not null" json:"position"` // order within the day
	DurationMinutes int     `json:"duration_minutes"`
	Cost            float64 `json:"cost"`

	SustainabilityScore int    `json:"sustainability_score"`
	CrowdLevel          string `gorm:"type:varchar(16)" json:"crowd_level"`
	HiddenGem           bool   `gorm:"default:false" json:"hidden_gem"`

	// Enrichment fields filled by a downstream lookup step, if at all.
	ContactPhone string  `gorm:"type:varchar(32)" json:"contact_phone"`
	Website      string  `gorm:"type:varchar(512)" json:"website"`
	Rating       float64 `json:"rating"`
}
