package notification

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutripanel/nutripanel-api/internal/config"
	"github.com/nutripanel/nutripanel-api/internal/models"
)

func testDeliveryConfig() config.DeliveryConfig {
	return config.DeliveryConfig{
		BatchSize:      50,
		GatewayTimeout: time.Second,
		MaxAttempts:    1,
		RetryBackoff:   time.Millisecond,
	}
}

func newTestDispatcher(store Store, gateway EmailGateway, settings Settings) *Dispatcher {
	d := NewDispatcher(store, gateway, settings, testDeliveryConfig(), zerolog.Nop())
	d.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }
	return d
}

func queueSystemNotification(t *testing.T, store *fakeStore, recipientID, email string) models.Notification {
	t.Helper()
	store.emails[recipientID] = email
	notif, err := store.Create(context.Background(), CreateParams{
		Type:        models.NotificationTypeSystem,
		Title:       "maintenance window",
		Message:     "the system restarts tonight",
		RecipientID: recipientID,
	})
	require.NoError(t, err)
	return notif
}

func TestDispatchMarksDeliveredOnSuccess(t *testing.T) {
	store := newFakeStore()
	notif := queueSystemNotification(t, store, "user-1", "staff@example.com")
	gateway := newFakeGateway()
	d := newTestDispatcher(store, gateway, &fakeSettings{deliveryEnabled: true})

	result, err := d.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleResult{Sent: 1}, result)
	assert.Equal(t, 1, gateway.callCount())

	after := store.get(notif.ID)
	assert.True(t, after.Delivered)
	require.NotNil(t, after.DeliveredAt)
}

func TestDispatchFailureLeavesRecordPending(t *testing.T) {
	store := newFakeStore()
	notif := queueSystemNotification(t, store, "user-1", "staff@example.com")
	gateway := newFakeGateway()
	gateway.failAll = true
	d := newTestDispatcher(store, gateway, &fakeSettings{deliveryEnabled: true})

	result, err := d.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleResult{Failed: 1}, result)

	after := store.get(notif.ID)
	assert.False(t, after.Delivered)
	assert.Nil(t, after.DeliveredAt)

	// The next cycle picks the record up again and succeeds.
	gateway.failAll = false
	result, err = d.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleResult{Sent: 1}, result)
	assert.True(t, store.get(notif.ID).Delivered)
}

func TestDispatchFailureDoesNotAbortBatch(t *testing.T) {
	store := newFakeStore()
	bad := queueSystemNotification(t, store, "user-1", "down@example.com")
	good := queueSystemNotification(t, store, "user-2", "up@example.com")
	gateway := newFakeGateway()
	gateway.failFor["down@example.com"] = true
	d := newTestDispatcher(store, gateway, &fakeSettings{deliveryEnabled: true})

	result, err := d.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleResult{Sent: 1, Failed: 1}, result)
	assert.False(t, store.get(bad.ID).Delivered)
	assert.True(t, store.get(good.ID).Delivered)
}

func TestDispatchDisabledSkipsCycle(t *testing.T) {
	store := newFakeStore()
	notif := queueSystemNotification(t, store, "user-1", "staff@example.com")
	gateway := newFakeGateway()
	d := newTestDispatcher(store, gateway, &fakeSettings{deliveryEnabled: false})

	result, err := d.RunCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Disabled)
	assert.Equal(t, 0, result.Sent)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 0, gateway.callCount())
	assert.False(t, store.get(notif.ID).Delivered)
}

func TestDispatchSkipsFutureScheduled(t *testing.T) {
	store := newFakeStore()
	store.emails["user-1"] = "staff@example.com"
	future := time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC)
	notif, err := store.Create(context.Background(), CreateParams{
		Type:         models.NotificationTypeSystem,
		Title:        "later",
		Message:      "not yet due",
		RecipientID:  "user-1",
		ScheduledFor: &future,
	})
	require.NoError(t, err)

	gateway := newFakeGateway()
	d := newTestDispatcher(store, gateway, &fakeSettings{deliveryEnabled: true})

	result, err := d.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleResult{}, result)
	assert.Equal(t, 0, gateway.callCount())
	assert.False(t, store.get(notif.ID).Delivered)
}

func TestDispatchRetriesWithinCycle(t *testing.T) {
	store := newFakeStore()
	queueSystemNotification(t, store, "user-1", "flaky@example.com")
	gateway := &flakyGateway{failures: 2}

	cfg := testDeliveryConfig()
	cfg.MaxAttempts = 3
	d := NewDispatcher(store, gateway, &fakeSettings{deliveryEnabled: true}, cfg, zerolog.Nop())

	result, err := d.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleResult{Sent: 1}, result)
	assert.Equal(t, 3, gateway.calls)
}

// flakyGateway fails the first N sends and then recovers.
type flakyGateway struct {
	failures int
	calls    int
}

func (g *flakyGateway) Send(context.Context, string, string, string) (SendResult, error) {
	g.calls++
	if g.calls <= g.failures {
		return SendResult{}, assert.AnError
	}
	return SendResult{MessageID: "msg"}, nil
}
