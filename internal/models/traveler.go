package models

import (
	"gorm.io/datatypes"
)

// Traveler describes a user of the planning service. Authentication lives in an
// upstream identity service; this record only carries what the planner and the
// reminder pipeline need.
type Traveler struct {
	BaseModel

	DisplayName string `gorm:"type:varchar(255)" json:"display_name"`
	Email       string `gorm:"index" json:"email"`

	// Phone is the reminder delivery target. Empty means reminders to this
	// traveler fail deterministically with a configuration error.
	Phone string `gorm:"type:varchar(32)" json:"phone"`

	// Preferences holds reminder toggles and other user-level settings as a
	// free-form document; see services.ReminderPreferences for the shape.
	Preferences datatypes.JSONMap `json:"preferences"`
}

// No Itineraries association: identity lives upstream and itineraries must be
// creatable for traveler ids that have no local profile row yet, so
// itineraries.traveler_id carries no foreign key to this table.
