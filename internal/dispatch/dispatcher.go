// Package dispatch runs the standing background loop that delivers due
// reminder notifications.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wayfarer-app/backend/internal/models"
	"github.com/wayfarer-app/backend/internal/notifications"
	"github.com/wayfarer-app/backend/pkg/logger"
	"github.com/wayfarer-app/backend/pkg/metrics"
	"github.com/wayfarer-app/backend/pkg/sms"
)

const (
	defaultSchedule  = "@every 1m"
	defaultBatchSize = 100
)

// ContactResolver resolves the delivery phone number for a traveler. An empty
// number means none is on file.
type ContactResolver interface {
	Phone(ctx context.Context, travelerID string) (string, error)
}

// Dispatcher periodically finds due pending notifications and attempts to
// deliver each exactly once. Ticks never overlap on a single instance: a tick
// that is still processing suppresses the next one.
type Dispatcher struct {
	db       *gorm.DB
	sender   sms.Sender
	contacts ContactResolver
	hub      *notifications.Hub

	cron     *cron.Cron
	schedule string
	batch    int
	busy     atomic.Bool
	now      func() time.Time
	log      *zap.Logger
}

// Option customises the Dispatcher.
type Option func(*Dispatcher)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.cron = c
		}
	}
}

// WithNow overrides the clock used to decide which notifications are due.
func WithNow(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithSchedule overrides the cron specification for the dispatch tick.
func WithSchedule(spec string) Option {
	return func(d *Dispatcher) {
		if spec != "" {
			d.schedule = spec
		}
	}
}

// WithBatchSize bounds how many due notifications one tick processes.
func WithBatchSize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.batch = size
		}
	}
}

// WithHub attaches a realtime hub that receives status transition events.
func WithHub(hub *notifications.Hub) Option {
	return func(d *Dispatcher) {
		d.hub = hub
	}
}

// New constructs a Dispatcher.
func New(db *gorm.DB, sender sms.Sender, contacts ContactResolver, opts ...Option) (*Dispatcher, error) {
	if db == nil {
		return nil, errors.New("dispatcher: db is required")
	}
	if sender == nil {
		return nil, errors.New("dispatcher: sms sender is required")
	}
	if contacts == nil {
		return nil, errors.New("dispatcher: contact resolver is required")
	}

	d := &Dispatcher{
		db:       db,
		sender:   sender,
		contacts: contacts,
		schedule: defaultSchedule,
		batch:    defaultBatchSize,
		now:      time.Now,
		log:      logger.WithModule("dispatch"),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.cron == nil {
		d.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return d, nil
}

// Start registers the dispatch tick with the cron scheduler and launches it.
func (d *Dispatcher) Start() error {
	if _, err := d.cron.AddFunc(d.schedule, func() {
		if err := d.Tick(context.Background()); err != nil {
			d.log.Warn("dispatch tick finished with errors", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("dispatcher: register tick: %w", err)
	}

	d.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for a running tick to complete.
func (d *Dispatcher) Stop() context.Context {
	if d.cron == nil {
		return context.Background()
	}
	return d.cron.Stop()
}

// Tick runs one dispatch pass unless a previous pass is still running, in
// which case it is skipped rather than run concurrently.
func (d *Dispatcher) Tick(ctx context.Context) error {
	if !d.busy.CompareAndSwap(false, true) {
		metrics.DispatcherTicks.WithLabelValues("skipped").Inc()
		d.log.Debug("dispatch tick skipped; previous tick still running")
		return nil
	}
	defer d.busy.Store(false)

	metrics.DispatcherTicks.WithLabelValues("run").Inc()
	start := time.Now()
	defer func() {
		metrics.DispatcherTickDuration.Observe(time.Since(start).Seconds())
	}()

	return d.dispatchDue(ctx)
}

// dispatchDue processes every pending notification whose schedule time has
// passed. Delivery and configuration failures are recorded on the individual
// notification and never abort the rest of the batch.
func (d *Dispatcher) dispatchDue(ctx context.Context) error {
	now := d.now()

	var due []models.Notification
	err := d.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", models.NotificationPending, now).
		Order("scheduled_at ASC").
		Limit(d.batch).
		Find(&due).Error
	if err != nil {
		return fmt.Errorf("dispatcher: query due notifications: %w", err)
	}

	if len(due) == 0 {
		return nil
	}

	d.log.Info("dispatching due notifications", zap.Int("count", len(due)))

	var errs error
	for _, notification := range due {
		if err := d.process(ctx, notification); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (d *Dispatcher) process(ctx context.Context, notification models.Notification) error {
	phone, err := d.contacts.Phone(ctx, notification.TravelerID)
	if err != nil {
		// Resolver failure is transient; leave the notification pending for
		// the next tick instead of burning it.
		d.log.Warn("phone lookup failed; leaving notification pending",
			zap.String("notification_id", notification.ID),
			zap.Error(err),
		)
		return fmt.Errorf("dispatcher: resolve phone for %s: %w", notification.ID, err)
	}

	if phone == "" {
		metrics.NotificationsDispatched.WithLabelValues("failed_config").Inc()
		return d.markFailed(ctx, notification, "no phone number on traveler profile")
	}

	if err := d.sender.SendText(ctx, phone, notification.Message); err != nil {
		metrics.NotificationsDispatched.WithLabelValues("failed").Inc()
		return d.markFailed(ctx, notification, err.Error())
	}

	metrics.NotificationsDispatched.WithLabelValues("sent").Inc()
	return d.markSent(ctx, notification)
}

// markSent transitions pending -> sent. The status guard in the WHERE clause
// makes the transition a claim: losing a race (for example against batch
// cancellation) leaves the row untouched.
func (d *Dispatcher) markSent(ctx context.Context, notification models.Notification) error {
	sentAt := d.now()
	result := d.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND status = ?", notification.ID, models.NotificationPending).
		Updates(map[string]any{
			"status":  models.NotificationSent,
			"sent_at": sentAt,
		})
	if result.Error != nil {
		return fmt.Errorf("dispatcher: mark sent %s: %w", notification.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil
	}

	d.broadcast(notification, models.NotificationSent, "")
	return nil
}

// markFailed transitions pending -> failed, recording the cause verbatim.
// Failed notifications are terminal and never retried automatically.
func (d *Dispatcher) markFailed(ctx context.Context, notification models.Notification, cause string) error {
	result := d.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND status = ?", notification.ID, models.NotificationPending).
		Updates(map[string]any{
			"status":        models.NotificationFailed,
			"error_message": cause,
		})
	if result.Error != nil {
		return fmt.Errorf("dispatcher: mark failed %s: %w", notification.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil
	}

	d.log.Warn("notification delivery failed",
		zap.String("notification_id", notification.ID),
		zap.String("traveler_id", notification.TravelerID),
		zap.String("cause", cause),
	)

	d.broadcast(notification, models.NotificationFailed, cause)
	return nil
}

func (d *Dispatcher) broadcast(notification models.Notification, status, cause string) {
	if d.hub == nil {
		return
	}
	d.hub.Broadcast(notification.TravelerID, notifications.Event{
		Event:          "notification." + status,
		NotificationID: notification.ID,
		Data: map[string]any{
			"type":          notification.Type,
			"activity_key":  notification.ActivityKey,
			"status":        status,
			"error_message": cause,
		},
	})
}
