package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/wayfarer-app/backend/internal/models"
	apperrors "github.com/wayfarer-app/backend/pkg/errors"
)

const reminderPrefsKey = "reminders"

// ReminderPreferences are the per-traveler reminder toggles. The planner only
// decides whether reminders exist; Delivery is carried through untouched for
// downstream transports.
type ReminderPreferences struct {
	Enabled    bool   `json:"enabled"`
	DayBefore  bool   `json:"day_before"`
	MorningOf  bool   `json:"morning_of"`
	HourBefore bool   `json:"hour_before"`
	Delivery   string `json:"delivery"`
}

// DefaultReminderPreferences enables every reminder type over SMS.
func DefaultReminderPreferences() ReminderPreferences {
	return ReminderPreferences{
		Enabled:    true,
		DayBefore:  true,
		MorningOf:  true,
		HourBefore: true,
		Delivery:   "sms",
	}
}

// PreferenceService manages traveler contact details and reminder preferences.
// Identity itself lives upstream; traveler rows are materialised lazily on the
// first preference write.
type PreferenceService struct {
	db *gorm.DB
}

// NewPreferenceService constructs a PreferenceService.
func NewPreferenceService(db *gorm.DB) (*PreferenceService, error) {
	if db == nil {
		return nil, errors.New("preference service: db is required")
	}
	return &PreferenceService{db: db}, nil
}

// Reminders returns the effective reminder preferences for a traveler.
// Unknown travelers and missing keys fall back to the defaults.
func (s *PreferenceService) Reminders(ctx context.Context, travelerID string) (ReminderPreferences, error) {
	ctx = ensureContext(ctx)
	travelerID = strings.TrimSpace(travelerID)
	if travelerID == "" {
		return DefaultReminderPreferences(), apperrors.NewBadRequest("traveler id is required")
	}

	var traveler models.Traveler
	err := s.db.WithContext(ctx).
		Select("id", "preferences").
		Where("id = ?", travelerID).
		First(&traveler).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DefaultReminderPreferences(), nil
		}
		return DefaultReminderPreferences(), fmt.Errorf("preference service: load traveler: %w", err)
	}

	return normaliseReminderPreferences(traveler.Preferences), nil
}

// UpdateReminders persists reminder preference changes, creating the traveler
// row when it does not exist yet.
func (s *PreferenceService) UpdateReminders(ctx context.Context, travelerID string, prefs ReminderPreferences) (ReminderPreferences, error) {
	ctx = ensureContext(ctx)
	travelerID = strings.TrimSpace(travelerID)
	if travelerID == "" {
		return DefaultReminderPreferences(), apperrors.NewBadRequest("traveler id is required")
	}

	if strings.TrimSpace(prefs.Delivery) == "" {
		prefs.Delivery = DefaultReminderPreferences().Delivery
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		traveler, err := ensureTraveler(tx, travelerID)
		if err != nil {
			return err
		}

		if traveler.Preferences == nil {
			traveler.Preferences = datatypes.JSONMap{}
		}
		traveler.Preferences[reminderPrefsKey] = map[string]any{
			"enabled":     prefs.Enabled,
			"day_before":  prefs.DayBefore,
			"morning_of":  prefs.MorningOf,
			"hour_before": prefs.HourBefore,
			"delivery":    prefs.Delivery,
		}

		return tx.Model(traveler).Update("preferences", traveler.Preferences).Error
	})
	if err != nil {
		return DefaultReminderPreferences(), fmt.Errorf("preference service: update reminders: %w", err)
	}

	return prefs, nil
}

// Phone resolves the reminder delivery number for a traveler. An empty string
// means no number is on file.
func (s *PreferenceService) Phone(ctx context.Context, travelerID string) (string, error) {
	ctx = ensureContext(ctx)
	travelerID = strings.TrimSpace(travelerID)
	if travelerID == "" {
		return "", apperrors.NewBadRequest("traveler id is required")
	}

	var traveler models.Traveler
	err := s.db.WithContext(ctx).
		Select("id", "phone").
		Where("id = ?", travelerID).
		First(&traveler).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("preference service: load traveler: %w", err)
	}

	return strings.TrimSpace(traveler.Phone), nil
}

// UpdatePhone sets the reminder delivery number, creating the traveler row
// when needed.
func (s *PreferenceService) UpdatePhone(ctx context.Context, travelerID, phone string) error {
	ctx = ensureContext(ctx)
	travelerID = strings.TrimSpace(travelerID)
	if travelerID == "" {
		return apperrors.NewBadRequest("traveler id is required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		traveler, err := ensureTraveler(tx, travelerID)
		if err != nil {
			return err
		}
		return tx.Model(traveler).Update("phone", strings.TrimSpace(phone)).Error
	})
	if err != nil {
		return fmt.Errorf("preference service: update phone: %w", err)
	}
	return nil
}

func normaliseReminderPreferences(doc datatypes.JSONMap) ReminderPreferences {
	prefs := DefaultReminderPreferences()
	raw, ok := doc[reminderPrefsKey]
	if !ok {
		return prefs
	}

	section, ok := raw.(map[string]any)
	if !ok {
		return prefs
	}

	prefs.Enabled = boolOr(section, "enabled", prefs.Enabled)
	prefs.DayBefore = boolOr(section, "day_before", prefs.DayBefore)
	prefs.MorningOf = boolOr(section, "morning_of", prefs.MorningOf)
	prefs.HourBefore = boolOr(section, "hour_before", prefs.HourBefore)
	if delivery, ok := section["delivery"].(string); ok && strings.TrimSpace(delivery) != "" {
		prefs.Delivery = delivery
	}

	return prefs
}

func boolOr(section map[string]any, key string, fallback bool) bool {
	if value, ok := section[key].(bool); ok {
		return value
	}
	return fallback
}
