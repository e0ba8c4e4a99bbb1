package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nutripanel/nutripanel-api/internal/models"
)

// CreateParams describes a notification to insert into the outbox.
type CreateParams struct {
	Type          models.NotificationType
	Title         string
	Message       string
	RecipientID   string
	PatientID     *string
	AppointmentID *string
	ScheduledFor  *time.Time
	// DedupeKey makes creation idempotent: at most one active notification
	// exists per key, and a second create returns the existing record.
	DedupeKey *string
}

// Store is the outbox persistence. Create is an atomic upsert on the dedupe
// key: concurrent callers with the same key both receive the same record.
type Store interface {
	Create(ctx context.Context, params CreateParams) (models.Notification, error)
	GetByID(ctx context.Context, id string) (models.Notification, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]DueNotification, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) error
	MarkRead(ctx context.Context, id, recipientID string) (models.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
	Deactivate(ctx context.Context, id, recipientID string) error
	ListRecent(ctx context.Context, recipientID string, limit int) ([]models.Notification, error)
}

// DueNotification is an outbox record joined with everything the dispatcher
// needs to build and address its payload.
type DueNotification struct {
	Notification     models.Notification
	RecipientEmail   string
	PatientName      string
	AppointmentStart *time.Time
}

type Service interface {
	Create(ctx context.Context, params CreateParams) (models.Notification, error)
	CreateAppointmentReminder(ctx context.Context, appointmentID string, leadDays int) (models.Notification, error)
	MarkRead(ctx context.Context, id, recipientID string) (models.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
	Delete(ctx context.Context, id, recipientID string) error
	ListRecent(ctx context.Context, recipientID string, limit int) ([]models.Notification, error)
}

type service struct {
	store        Store
	appointments AppointmentSource
	patients     PatientDirectory
	settings     Settings
	logger       zerolog.Logger
}

func NewService(store Store, appointments AppointmentSource, patients PatientDirectory, settings Settings, logger zerolog.Logger) Service {
	return &service{
		store:        store,
		appointments: appointments,
		patients:     patients,
		settings:     settings,
		logger:       logger.With().Str("component", "notification_service").Logger(),
	}
}

// ReminderDedupeKey is the idempotency key for an appointment reminder.
func ReminderDedupeKey(appointmentID string) string {
	return fmt.Sprintf("reminder:%s", appointmentID)
}

// StaleFollowupDedupeKey is the idempotency key for a stale-patient alert:
// one per patient per UTC calendar day.
func StaleFollowupDedupeKey(patientID string, day time.Time) string {
	return fmt.Sprintf("stale-followup:%s:%s", patientID, day.UTC().Format("2006-01-02"))
}

func (s *service) Create(ctx context.Context, params CreateParams) (models.Notification, error) {
	if !params.Type.Valid() {
		return models.Notification{}, invalid("type", fmt.Sprintf("unknown notification type %q", params.Type))
	}
	if strings.TrimSpace(params.RecipientID) == "" {
		return models.Notification{}, invalid("recipient_id", "is required")
	}
	if strings.TrimSpace(params.Title) == "" {
		params.Title = string(params.Type)
	}
	// Reminders are always deduplicated on their appointment, even when the
	// caller did not set a key.
	if params.Type == models.NotificationTypeReminder && params.DedupeKey == nil && params.AppointmentID != nil {
		key := ReminderDedupeKey(*params.AppointmentID)
		params.DedupeKey = &key
	}

	notif, err := s.store.Create(ctx, params)
	if err != nil {
		s.logger.Error().Err(err).Str("type", string(params.Type)).Msg("failed to persist notification")
		return models.Notification{}, err
	}
	return notif, nil
}

func (s *service) CreateAppointmentReminder(ctx context.Context, appointmentID string, leadDays int) (models.Notification, error) {
	appt, err := s.appointments.GetAppointment(ctx, appointmentID)
	if err != nil {
		return models.Notification{}, err
	}
	if leadDays <= 0 {
		leadDays, err = s.settings.ReminderLeadDays(ctx)
		if err != nil {
			return models.Notification{}, err
		}
	}
	patient, err := s.patients.GetPatient(ctx, appt.PatientID)
	if err != nil {
		return models.Notification{}, err
	}

	scheduledFor := appt.StartAt.Add(-time.Duration(leadDays) * 24 * time.Hour)
	key := ReminderDedupeKey(appt.ID)
	apptID := appt.ID
	patientID := patient.ID

	return s.Create(ctx, CreateParams{
		Type:          models.NotificationTypeReminder,
		Title:         "Appointment reminder",
		Message:       fmt.Sprintf("%s has an appointment on %s.", patient.FullName, appt.StartAt.Format("Mon, 02 Jan 2006 at 15:04")),
		RecipientID:   patient.ID,
		PatientID:     &patientID,
		AppointmentID: &apptID,
		ScheduledFor:  &scheduledFor,
		DedupeKey:     &key,
	})
}

func (s *service) MarkRead(ctx context.Context, id, recipientID string) (models.Notification, error) {
	return s.store.MarkRead(ctx, id, recipientID)
}

func (s *service) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	return s.store.MarkAllRead(ctx, recipientID)
}

func (s *service) CountUnread(ctx context.Context, recipientID string) (int, error) {
	return s.store.CountUnread(ctx, recipientID)
}

func (s *service) Delete(ctx context.Context, id, recipientID string) error {
	return s.store.Deactivate(ctx, id, recipientID)
}

func (s *service) ListRecent(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	return s.store.ListRecent(ctx, recipientID, limit)
}
