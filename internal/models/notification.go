package models

import (
	"time"
)

// Reminder notification types.
const (
	NotificationDayBefore  = "day-before"
	NotificationMorningOf  = "morning-of"
	NotificationHourBefore = "hour-before"
	NotificationCustom     = "custom"
)

// Notification statuses. All statuses except pending are terminal.
const (
	NotificationPending   = "pending"
	NotificationSent      = "sent"
	NotificationFailed    = "failed"
	NotificationCancelled = "cancelled"
)

// Notification is a scheduled reminder derived from an itinerary activity.
// Created in bulk by the reminder planner and mutated only by the dispatcher
// or by batch cancellation when the owning itinerary is deleted.
type Notification struct {
	BaseModel

	TravelerID  string  `gorm:"type:uuid;index;not null" json:"traveler_id"`
	ItineraryID *string `gorm:"type:uuid;index" json:"itinerary_id,omitempty"`

	// ActivityKey is a stable composite key (day index + activity name) that
	// survives regeneration of surrogate IDs.
	ActivityKey string `gorm:"type:varchar(320)" json:"activity_key"`

	Type        string    `gorm:"type:varchar(16);not null" json:"type"`
	ScheduledAt time.Time `gorm:"index;not null" json:"scheduled_at"`
	Status      string    `gorm:"type:varchar(16);default:'pending';index" json:"status"`

	Message string `gorm:"type:text" json:"message"`

	SentAt       *time.Time `json:"sent_at,omitempty"`
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
}

// Terminal reports whether the notification reached a final status.
func (n *Notification) Terminal() bool {
	switch n.Status {
	case NotificationSent, NotificationFailed, NotificationCancelled:
		return true
	}
	return false
}
