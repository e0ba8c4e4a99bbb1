package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron"
	"github.com/rs/zerolog"

	"github.com/nutripanel/nutripanel-api/internal/config"
	"github.com/nutripanel/nutripanel-api/internal/notification"
)

// cycleTimeout bounds a single periodic run so a hung collaborator cannot
// wedge the trigger goroutine forever.
const cycleTimeout = 5 * time.Minute

// Dispatcher drains the outbox once per trigger.
type Dispatcher interface {
	RunCycle(ctx context.Context) (notification.CycleResult, error)
}

// Generator is a periodic scan that creates notifications idempotently.
type Generator interface {
	RunCycle(ctx context.Context) (int, error)
}

// Scheduler owns the periodic triggers for the reminder scan, the stale
// follow-up scan, and the delivery dispatcher. It is an explicit start/stop
// lifecycle object owned by the process, not ambient global state.
type Scheduler struct {
	dispatcher Dispatcher
	reminders  Generator
	followups  Generator

	deliveryCron string
	reminderCron string
	followupCron string

	logger zerolog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func New(dispatcher Dispatcher, reminders, followups Generator, cfg *config.Config, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		dispatcher:   dispatcher,
		reminders:    reminders,
		followups:    followups,
		deliveryCron: cfg.Delivery.Interval,
		reminderCron: cfg.Reminders.Cron,
		followupCron: cfg.Followup.Cron,
		logger:       logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers the cron entries and begins triggering. Starting an
// already-running scheduler is an error.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already running")
	}

	c := cron.New()
	if err := c.AddFunc(s.deliveryCron, s.runDispatch); err != nil {
		return errors.Wrapf(err, "invalid delivery cron spec %q", s.deliveryCron)
	}
	if err := c.AddFunc(s.reminderCron, s.runReminders); err != nil {
		return errors.Wrapf(err, "invalid reminder cron spec %q", s.reminderCron)
	}
	if err := c.AddFunc(s.followupCron, s.runFollowups); err != nil {
		return errors.Wrapf(err, "invalid followup cron spec %q", s.followupCron)
	}

	c.Start()
	s.cron = c
	s.running = true
	s.logger.Info().
		Str("delivery", s.deliveryCron).
		Str("reminders", s.reminderCron).
		Str("followups", s.followupCron).
		Msg("scheduler started")
	return nil
}

// Stop halts the triggers. Cycles already in flight run to completion; every
// cycle is idempotent, so a cycle cut short by process exit is simply redone
// on the next run. Stop is safe to call multiple times.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cron.Stop()
	s.cron = nil
	s.running = false
	s.logger.Info().Msg("scheduler stopped")
}

// Running reports whether the scheduler is currently triggering.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) runDispatch() {
	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	result, err := s.dispatcher.RunCycle(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("dispatch cycle failed")
		return
	}
	if result.Disabled {
		return
	}
	s.logger.Debug().Int("sent", result.Sent).Int("failed", result.Failed).Msg("dispatch cycle done")
}

func (s *Scheduler) runReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	if _, err := s.reminders.RunCycle(ctx); err != nil {
		s.logger.Error().Err(err).Msg("reminder scan failed")
	}
}

func (s *Scheduler) runFollowups() {
	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	if _, err := s.followups.RunCycle(ctx); err != nil {
		s.logger.Error().Err(err).Msg("stale-followup scan failed")
	}
}
