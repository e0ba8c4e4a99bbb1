package repository

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nutripanel/nutripanel-api/internal/notification"
)

const (
	settingEmailDeliveryEnabled = "email_delivery_enabled"
	settingReminderLeadDays     = "reminder_lead_days"
)

// settingsRepository backs the system settings store with a key/value table.
// A missing key falls back to the configured default, so a fresh database
// behaves sensibly without seeding.
type settingsRepository struct {
	db              *sql.DB
	defaultLeadDays int
}

func NewSettingsRepository(db *sql.DB, defaultLeadDays int) notification.Settings {
	if defaultLeadDays <= 0 {
		defaultLeadDays = 1
	}
	return &settingsRepository{db: db, defaultLeadDays: defaultLeadDays}
}

func (r *settingsRepository) EmailDeliveryEnabled(ctx context.Context) (bool, error) {
	value, found, err := r.get(ctx, settingEmailDeliveryEnabled)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}
	enabled, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, errors.Wrapf(err, "setting %s has invalid value %q", settingEmailDeliveryEnabled, value)
	}
	return enabled, nil
}

func (r *settingsRepository) ReminderLeadDays(ctx context.Context) (int, error) {
	value, found, err := r.get(ctx, settingReminderLeadDays)
	if err != nil {
		return 0, err
	}
	if !found {
		return r.defaultLeadDays, nil
	}
	days, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || days <= 0 {
		return 0, errors.Errorf("setting %s has invalid value %q", settingReminderLeadDays, value)
	}
	return days, nil
}

func (r *settingsRepository) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}
