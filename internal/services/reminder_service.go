package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/wayfarer-app/backend/internal/models"
	"github.com/wayfarer-app/backend/internal/planner"
	apperrors "github.com/wayfarer-app/backend/pkg/errors"
	"github.com/wayfarer-app/backend/pkg/metrics"
)

// Fixed reminder clock times.
var (
	dayBeforeTime = planner.NewTimeOfDay(18, 0)
	morningOfTime = planner.NewTimeOfDay(8, 0)
)

const hourBeforeOffset = time.Hour

// NotificationDTO is the API-facing reminder payload.
type NotificationDTO struct {
	ID           string     `json:"id"`
	TravelerID   string     `json:"traveler_id"`
	ItineraryID  *string    `json:"itinerary_id,omitempty"`
	ActivityKey  string     `json:"activity_key"`
	Type         string     `json:"type"`
	ScheduledAt  time.Time  `json:"scheduled_at"`
	Status       string     `json:"status"`
	Message      string     `json:"message"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ListNotificationsInput defines filters for querying traveler reminders.
type ListNotificationsInput struct {
	TravelerID string
	Status     string
	Limit      int
	Offset     int
}

// ReminderService materialises notifications from itinerary activities and
// manages their lifecycle up to dispatch.
type ReminderService struct {
	db    *gorm.DB
	prefs *PreferenceService
}

// NewReminderService constructs a ReminderService.
func NewReminderService(db *gorm.DB, prefs *PreferenceService) (*ReminderService, error) {
	if db == nil {
		return nil, errors.New("reminder service: db is required")
	}
	if prefs == nil {
		return nil, errors.New("reminder service: preference service is required")
	}
	return &ReminderService{db: db, prefs: prefs}, nil
}

// Schedule creates reminder notifications for every activity of the itinerary
// according to the owner's enabled reminder types. The whole batch is written
// in one transaction: either all reminders exist afterwards or none do.
// Returns the number of notifications created; zero (and no error) when the
// traveler has notifications globally disabled.
func (s *ReminderService) Schedule(ctx context.Context, itineraryID string) (int, error) {
	ctx = ensureContext(ctx)

	var itinerary models.Itinerary
	err := s.db.WithContext(ctx).
		Preload("Days", func(db *gorm.DB) *gorm.DB { return db.Order("day_index ASC") }).
		Preload("Days.Activities", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", itineraryID).
		First(&itinerary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.ErrNotFound
		}
		return 0, fmt.Errorf("reminder service: load itinerary: %w", err)
	}

	var count int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		count, txErr = s.ScheduleWithin(ctx, tx, &itinerary)
		return txErr
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ScheduleWithin plans and inserts the reminder batch inside the caller's
// transaction, so itinerary creation and reminder scheduling can commit
// atomically.
func (s *ReminderService) ScheduleWithin(ctx context.Context, tx *gorm.DB, itinerary *models.Itinerary) (int, error) {
	prefs, err := s.prefs.Reminders(ctx, itinerary.TravelerID)
	if err != nil {
		return 0, err
	}
	if !prefs.Enabled {
		return 0, nil
	}

	notifications := planReminders(itinerary, prefs)
	if len(notifications) == 0 {
		return 0, nil
	}

	if err := tx.CreateInBatches(notifications, 200).Error; err != nil {
		return 0, apperrors.ErrPersistence.WithInternal(fmt.Errorf("reminder service: insert notifications: %w", err))
	}

	metrics.RemindersScheduled.Add(float64(len(notifications)))
	return len(notifications), nil
}

// planReminders walks the itinerary's activities and derives one notification
// per activity and enabled reminder type.
func planReminders(itinerary *models.Itinerary, prefs ReminderPreferences) []models.Notification {
	var notifications []models.Notification

	for _, day := range itinerary.Days {
		for _, activity := range day.Activities {
			slot := planner.TimeOfDay{
				Hour:      activity.SlotHour,
				Minute:    activity.SlotMinute,
				Scheduled: activity.SlotScheduled,
			}
			activityAt := slot.At(day.Date)
			key := activityKey(day.DayIndex, activity.Name)

			if prefs.DayBefore {
				notifications = append(notifications, models.Notification{
					TravelerID:  itinerary.TravelerID,
					ItineraryID: &itinerary.ID,
					ActivityKey: key,
					Type:        models.NotificationDayBefore,
					ScheduledAt: dayBeforeTime.At(day.Date.AddDate(0, 0, -1)),
					Status:      models.NotificationPending,
					Message: fmt.Sprintf("Tomorrow at %s: %s in %s.",
						slot, activity.Name, itinerary.DestinationName),
				})
			}

			if prefs.MorningOf {
				notifications = append(notifications, models.Notification{
					TravelerID:  itinerary.TravelerID,
					ItineraryID: &itinerary.ID,
					ActivityKey: key,
					Type:        models.NotificationMorningOf,
					ScheduledAt: morningOfTime.At(day.Date),
					Status:      models.NotificationPending,
					Message: fmt.Sprintf("Today at %s: %s in %s.",
						slot, activity.Name, itinerary.DestinationName),
				})
			}

			if prefs.HourBefore {
				notifications = append(notifications, models.Notification{
					TravelerID:  itinerary.TravelerID,
					ItineraryID: &itinerary.ID,
					ActivityKey: key,
					Type:        models.NotificationHourBefore,
					ScheduledAt: activityAt.Add(-hourBeforeOffset),
					Status:      models.NotificationPending,
					Message: fmt.Sprintf("Coming up at %s: %s in %s.",
						slot, activity.Name, itinerary.DestinationName),
				})
			}
		}
	}

	return notifications
}

// CancelForItinerary transitions every pending notification of the itinerary
// to cancelled in one batch. Terminal notifications are left untouched.
func (s *ReminderService) CancelForItinerary(ctx context.Context, itineraryID string) (int64, error) {
	ctx = ensureContext(ctx)
	return s.cancelForItinerary(s.db.WithContext(ctx), itineraryID)
}

func (s *ReminderService) cancelForItinerary(tx *gorm.DB, itineraryID string) (int64, error) {
	result := tx.Model(&models.Notification{}).
		Where("itinerary_id = ? AND status = ?", itineraryID, models.NotificationPending).
		Update("status", models.NotificationCancelled)
	if result.Error != nil {
		return 0, fmt.Errorf("reminder service: cancel notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Cancel marks one pending notification cancelled. Terminal notifications
// cannot be cancelled.
func (s *ReminderService) Cancel(ctx context.Context, travelerID, notificationID string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)

	var notification models.Notification
	err := s.db.WithContext(ctx).
		Where("id = ? AND traveler_id = ?", notificationID, travelerID).
		First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("reminder service: load notification: %w", err)
	}

	if notification.Terminal() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("notification is already %s", notification.Status))
	}

	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND status = ?", notification.ID, models.NotificationPending).
		Update("status", models.NotificationCancelled)
	if result.Error != nil {
		return nil, fmt.Errorf("reminder service: cancel notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Lost the race against the dispatcher; report the final state.
		return nil, apperrors.NewBadRequest("notification was already dispatched")
	}

	notification.Status = models.NotificationCancelled
	dto := mapNotification(notification)
	return &dto, nil
}

// ListForTraveler returns reminders for the traveler ordered by schedule time.
func (s *ReminderService) ListForTraveler(ctx context.Context, input ListNotificationsInput) ([]NotificationDTO, error) {
	ctx = ensureContext(ctx)
	travelerID := strings.TrimSpace(input.TravelerID)
	if travelerID == "" {
		return nil, apperrors.NewBadRequest("traveler id is required")
	}

	query := s.db.WithContext(ctx).
		Where("traveler_id = ?", travelerID).
		Order("scheduled_at ASC").
		Limit(clampLimit(input.Limit, 50, 200)).
		Offset(max0(input.Offset))

	if status := strings.TrimSpace(input.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	var rows []models.Notification
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("reminder service: list notifications: %w", err)
	}

	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items, nil
}

func activityKey(dayIndex int, activityName string) string {
	return fmt.Sprintf("day-%d/%s", dayIndex, activityName)
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:           row.ID,
		TravelerID:   row.TravelerID,
		ItineraryID:  row.ItineraryID,
		ActivityKey:  row.ActivityKey,
		Type:         row.Type,
		ScheduledAt:  row.ScheduledAt,
		Status:       row.Status,
		Message:      row.Message,
		SentAt:       row.SentAt,
		ErrorMessage: row.ErrorMessage,
		CreatedAt:    row.CreatedAt,
	}
}
