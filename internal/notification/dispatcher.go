package notification

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/nutripanel/nutripanel-api/internal/config"
)

// CycleResult summarizes one dispatch cycle. Disabled marks a deliberate
// short-circuit (delivery switched off), which is not a failure.
type CycleResult struct {
	Disabled bool
	Sent     int
	Failed   int
}

// Dispatcher drains the outbox: it picks due, undelivered notifications and
// pushes them through the email gateway, marking each record delivered only
// after the gateway confirmed the send.
type Dispatcher struct {
	store    Store
	gateway  EmailGateway
	settings Settings
	cfg      config.DeliveryConfig
	logger   zerolog.Logger
	now      func() time.Time
}

func NewDispatcher(store Store, gateway EmailGateway, settings Settings, cfg config.DeliveryConfig, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		gateway:  gateway,
		settings: settings,
		cfg:      cfg,
		logger:   logger.With().Str("component", "delivery_dispatcher").Logger(),
		now:      time.Now,
	}
}

// RunCycle processes at most one batch. A failed item stays untouched and is
// picked up again next cycle; it never aborts the rest of the batch.
func (d *Dispatcher) RunCycle(ctx context.Context) (CycleResult, error) {
	enabled, err := d.settings.EmailDeliveryEnabled(ctx)
	if err != nil {
		return CycleResult{}, err
	}
	if !enabled {
		d.logger.Info().Msg("email delivery disabled, skipping cycle")
		return CycleResult{Disabled: true}, nil
	}

	due, err := d.store.ListDue(ctx, d.now(), d.cfg.BatchSize)
	if err != nil {
		return CycleResult{}, err
	}
	if len(due) == 0 {
		return CycleResult{}, nil
	}

	var result CycleResult
	for _, item := range due {
		if err := d.deliver(ctx, item); err != nil {
			result.Failed++
			d.logger.Warn().
				Err(err).
				Str("notification_id", item.Notification.ID).
				Str("type", string(item.Notification.Type)).
				Msg("delivery failed, will retry next cycle")
			continue
		}
		result.Sent++
	}

	d.logger.Info().
		Int("sent", result.Sent).
		Int("failed", result.Failed).
		Msg("dispatch cycle complete")
	return result, nil
}

func (d *Dispatcher) deliver(ctx context.Context, item DueNotification) error {
	subject, body, err := BuildPayload(item)
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.GatewayTimeout)
	defer cancel()

	backoff := retry.NewExponential(d.cfg.RetryBackoff)
	attempts := d.cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff = retry.WithMaxRetries(uint64(attempts-1), backoff)

	err = retry.Do(sendCtx, backoff, func(ctx context.Context) error {
		if _, sendErr := d.gateway.Send(ctx, item.RecipientEmail, subject, body); sendErr != nil {
			return retry.RetryableError(sendErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Single atomic commit point: the flag flips only after a confirmed send.
	return d.store.MarkDelivered(ctx, item.Notification.ID, d.now())
}
