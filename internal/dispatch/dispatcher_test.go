package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wayfarer-app/backend/internal/database/testutil"
	"github.com/wayfarer-app/backend/internal/models"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []string
	err   error
	block chan struct{}
}

func (s *recordingSender) SendText(ctx context.Context, phone, message string) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, phone+"|"+message)
	return nil
}

func (s *recordingSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type staticResolver struct {
	phones map[string]string
	err    error
}

func (r *staticResolver) Phone(ctx context.Context, travelerID string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.phones[travelerID], nil
}

var testClock = func() time.Time {
	return time.Date(2026, 9, 14, 12, 0, 0, 0, time.UTC)
}

func seedNotification(t *testing.T, db *gorm.DB, travelerID string, scheduledAt time.Time, status string) models.Notification {
	t.Helper()

	notification := models.Notification{
		TravelerID:  travelerID,
		ActivityKey: "day-1/Castle Tour",
		Type:        models.NotificationMorningOf,
		ScheduledAt: scheduledAt,
		Status:      status,
		Message:     "Today at 09:00: Castle Tour in Lisbon.",
	}
	require.NoError(t, db.Create(&notification).Error)
	return notification
}

func TestTickSendsDueNotifications(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	sender := &recordingSender{}
	resolver := &staticResolver{phones: map[string]string{"traveler-1": "+351912345678"}}

	d, err := New(db, sender, resolver, WithNow(testClock))
	require.NoError(t, err)

	due := seedNotification(t, db, "traveler-1", testClock().Add(-time.Minute), models.NotificationPending)
	future := seedNotification(t, db, "traveler-1", testClock().Add(time.Hour), models.NotificationPending)

	require.NoError(t, d.Tick(context.Background()))
	require.Equal(t, 1, sender.sentCount())

	// Fresh dest structs per lookup: GORM folds an already-populated primary
	// key on the dest into the WHERE clause.
	var sentRow models.Notification
	require.NoError(t, db.Where("id = ?", due.ID).First(&sentRow).Error)
	require.Equal(t, models.NotificationSent, sentRow.Status)
	require.NotNil(t, sentRow.SentAt)

	var pendingRow models.Notification
	require.NoError(t, db.Where("id = ?", future.ID).First(&pendingRow).Error)
	require.Equal(t, models.NotificationPending, pendingRow.Status)
}

func TestTickMissingPhoneFailsWithoutSend(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	sender := &recordingSender{}
	resolver := &staticResolver{phones: map[string]string{}}

	d, err := New(db, sender, resolver, WithNow(testClock))
	require.NoError(t, err)

	due := seedNotification(t, db, "traveler-1", testClock().Add(-time.Minute), models.NotificationPending)

	require.NoError(t, d.Tick(context.Background()))
	require.Zero(t, sender.sentCount())

	var row models.Notification
	require.NoError(t, db.Where("id = ?", due.ID).First(&row).Error)
	require.Equal(t, models.NotificationFailed, row.Status)
	require.Equal(t, "no phone number on traveler profile", row.ErrorMessage)
}

func TestTickSenderFailureRecordsCauseVerbatim(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	sender := &recordingSender{err: errors.New("gateway returned 503")}
	resolver := &staticResolver{phones: map[string]string{"traveler-1": "+351912345678"}}

	d, err := New(db, sender, resolver, WithNow(testClock))
	require.NoError(t, err)

	due := seedNotification(t, db, "traveler-1", testClock().Add(-time.Minute), models.NotificationPending)

	require.NoError(t, d.Tick(context.Background()))

	var row models.Notification
	require.NoError(t, db.Where("id = ?", due.ID).First(&row).Error)
	require.Equal(t, models.NotificationFailed, row.Status)
	require.Equal(t, "gateway returned 503", row.ErrorMessage)
}

func TestTickResolverFailureLeavesNotificationPending(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	sender := &recordingSender{}
	resolver := &staticResolver{err: errors.New("profile store unavailable")}

	d, err := New(db, sender, resolver, WithNow(testClock))
	require.NoError(t, err)

	due := seedNotification(t, db, "traveler-1", testClock().Add(-time.Minute), models.NotificationPending)

	// The tick reports the error but the row survives for the next pass.
	err = d.Tick(context.Background())
	require.Error(t, err)
	require.Zero(t, sender.sentCount())

	var row models.Notification
	require.NoError(t, db.Where("id = ?", due.ID).First(&row).Error)
	require.Equal(t, models.NotificationPending, row.Status)
}

func TestTickNeverTouchesTerminalNotifications(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	sender := &recordingSender{}
	resolver := &staticResolver{phones: map[string]string{"traveler-1": "+351912345678"}}

	d, err := New(db, sender, resolver, WithNow(testClock))
	require.NoError(t, err)

	past := testClock().Add(-time.Hour)
	failed := seedNotification(t, db, "traveler-1", past, models.NotificationFailed)
	cancelled := seedNotification(t, db, "traveler-1", past, models.NotificationCancelled)
	sent := seedNotification(t, db, "traveler-1", past, models.NotificationSent)

	require.NoError(t, d.Tick(context.Background()))
	require.Zero(t, sender.sentCount())

	for _, id := range []string{failed.ID, cancelled.ID, sent.ID} {
		var row models.Notification
		require.NoError(t, db.Where("id = ?", id).First(&row).Error)
		require.NotEqual(t, models.NotificationPending, row.Status)
	}
}

func TestTickBatchContinuesPastFailures(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	sender := &recordingSender{}
	resolver := &staticResolver{phones: map[string]string{
		"with-phone": "+351912345678",
		// "no-phone" intentionally absent.
	}}

	d, err := New(db, sender, resolver, WithNow(testClock))
	require.NoError(t, err)

	past := testClock().Add(-time.Minute)
	bad := seedNotification(t, db, "no-phone", past.Add(-time.Second), models.NotificationPending)
	good := seedNotification(t, db, "with-phone", past, models.NotificationPending)

	require.NoError(t, d.Tick(context.Background()))
	require.Equal(t, 1, sender.sentCount())

	var badRow models.Notification
	require.NoError(t, db.Where("id = ?", bad.ID).First(&badRow).Error)
	require.Equal(t, models.NotificationFailed, badRow.Status)

	var goodRow models.Notification
	require.NoError(t, db.Where("id = ?", good.ID).First(&goodRow).Error)
	require.Equal(t, models.NotificationSent, goodRow.Status)
}

func TestTickRespectsBatchSize(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	sender := &recordingSender{}
	resolver := &staticResolver{phones: map[string]string{"traveler-1": "+351912345678"}}

	d, err := New(db, sender, resolver, WithNow(testClock), WithBatchSize(2))
	require.NoError(t, err)

	past := testClock().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		seedNotification(t, db, "traveler-1", past.Add(time.Duration(i)*time.Minute), models.NotificationPending)
	}

	require.NoError(t, d.Tick(context.Background()))
	require.Equal(t, 2, sender.sentCount())

	var pending int64
	require.NoError(t, db.Model(&models.Notification{}).Where("status = ?", models.NotificationPending).Count(&pending).Error)
	require.Equal(t, int64(3), pending)
}

func TestOverlappingTickIsSkipped(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	sender := &recordingSender{block: make(chan struct{})}
	resolver := &staticResolver{phones: map[string]string{"traveler-1": "+351912345678"}}

	d, err := New(db, sender, resolver, WithNow(testClock))
	require.NoError(t, err)

	seedNotification(t, db, "traveler-1", testClock().Add(-time.Minute), models.NotificationPending)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- d.Tick(context.Background())
	}()

	// Wait until the first tick is inside the blocked send.
	require.Eventually(t, func() bool {
		return d.busy.Load()
	}, time.Second, 5*time.Millisecond)

	// The second tick returns immediately without processing anything.
	require.NoError(t, d.Tick(context.Background()))
	require.Zero(t, sender.sentCount())

	close(sender.block)
	require.NoError(t, <-firstDone)
	require.Equal(t, 1, sender.sentCount())
}
