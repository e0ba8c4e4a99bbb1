package scheduler

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutripanel/nutripanel-api/internal/config"
	"github.com/nutripanel/nutripanel-api/internal/notification"
)

type noopDispatcher struct{}

func (noopDispatcher) RunCycle(context.Context) (notification.CycleResult, error) {
	return notification.CycleResult{}, nil
}

type noopGenerator struct{}

func (noopGenerator) RunCycle(context.Context) (int, error) { return 0, nil }

func testConfig() *config.Config {
	return &config.Config{
		Delivery:  config.DeliveryConfig{Interval: "@every 1h"},
		Reminders: config.ReminderConfig{Cron: "0 0 6 * * *"},
		Followup:  config.FollowupConfig{Cron: "0 0 7 * * 1"},
	}
}

func newTestScheduler(cfg *config.Config) *Scheduler {
	return New(noopDispatcher{}, noopGenerator{}, noopGenerator{}, cfg, zerolog.Nop())
}

func TestSchedulerLifecycle(t *testing.T) {
	s := newTestScheduler(testConfig())
	assert.False(t, s.Running())

	require.NoError(t, s.Start())
	assert.True(t, s.Running())

	s.Stop()
	assert.False(t, s.Running())

	// A stopped scheduler can start again.
	require.NoError(t, s.Start())
	assert.True(t, s.Running())
	s.Stop()
}

func TestSchedulerDoubleStart(t *testing.T) {
	s := newTestScheduler(testConfig())
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Error(t, s.Start())
	assert.True(t, s.Running())
}

func TestSchedulerStopIdempotent(t *testing.T) {
	s := newTestScheduler(testConfig())

	// Stopping before starting is a no-op.
	s.Stop()

	require.NoError(t, s.Start())
	s.Stop()
	s.Stop()
	assert.False(t, s.Running())
}

func TestSchedulerRejectsInvalidCronSpec(t *testing.T) {
	cfg := testConfig()
	cfg.Reminders.Cron = "not a cron spec"
	s := newTestScheduler(cfg)

	assert.Error(t, s.Start())
	assert.False(t, s.Running())
}
