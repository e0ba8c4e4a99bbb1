package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/nutripanel/nutripanel-api/internal/models"
	"github.com/nutripanel/nutripanel-api/internal/notification"
)

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) notification.Store {
	return &notificationRepository{db: db}
}

const notificationColumns = `
	id, type, title, message, recipient_id, patient_id, appointment_id,
	read, read_at, delivered, delivered_at, scheduled_for, active,
	dedupe_key, created_at, updated_at`

// Create is an atomic upsert on the dedupe key: when an active notification
// with the same key already exists, the existing row is returned unchanged.
// The partial unique index makes this race-free under concurrent callers.
func (r *notificationRepository) Create(ctx context.Context, params notification.CreateParams) (models.Notification, error) {
	const query = `
		INSERT INTO notifications (
			type, title, message, recipient_id, patient_id, appointment_id,
			scheduled_for, dedupe_key
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (dedupe_key) WHERE active AND dedupe_key IS NOT NULL
		DO UPDATE SET dedupe_key = notifications.dedupe_key
		RETURNING ` + notificationColumns

	row := r.db.QueryRowContext(ctx, query,
		params.Type,
		params.Title,
		params.Message,
		params.RecipientID,
		nullStringPtr(params.PatientID),
		nullStringPtr(params.AppointmentID),
		nullTimePtr(params.ScheduledFor),
		nullStringPtr(params.DedupeKey),
	)
	notif, err := scanNotification(row)
	if err != nil {
		return models.Notification{}, errors.Wrap(err, "create notification")
	}
	return notif, nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	notif, err := scanNotification(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Notification{}, notification.ErrNotFound
	}
	return notif, err
}

// ListDue selects the next delivery batch: active, undelivered, due now (or
// unscheduled), and addressable. Reminders go to the related patient's email,
// everything else to the recipient staff member's.
func (r *notificationRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]notification.DueNotification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT ` + prefixColumns("n", notificationColumns) + `,
		       CASE WHEN n.type = 'reminder' THEN COALESCE(p.email, '') ELSE COALESCE(u.email, '') END AS recipient_email,
		       COALESCE(p.full_name, ''),
		       a.start_at
		FROM notifications n
		LEFT JOIN patients p ON n.patient_id = p.id
		LEFT JOIN users u ON n.recipient_id = u.id
		LEFT JOIN appointments a ON n.appointment_id = a.id
		WHERE n.active
		  AND NOT n.delivered
		  AND (n.scheduled_for IS NULL OR n.scheduled_for <= $1)
		  AND CASE WHEN n.type = 'reminder' THEN COALESCE(p.email, '') ELSE COALESCE(u.email, '') END <> ''
		ORDER BY n.scheduled_for ASC NULLS FIRST, n.created_at ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []notification.DueNotification
	for rows.Next() {
		var (
			item  notification.DueNotification
			start sql.NullTime
		)
		notif, err := scanNotificationFields(rows, &item.RecipientEmail, &item.PatientName, &start)
		if err != nil {
			return nil, err
		}
		item.Notification = notif
		if start.Valid {
			t := start.Time
			item.AppointmentStart = &t
		}
		due = append(due, item)
	}
	return due, rows.Err()
}

// MarkDelivered flips the delivered flag exactly once; a record already
// marked is left alone.
func (r *notificationRepository) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET delivered = true, delivered_at = $2, updated_at = now()
		WHERE id = $1 AND NOT delivered
	`, id, at)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID string) (models.Notification, error) {
	query := `
		UPDATE notifications
		SET read = true, read_at = COALESCE(read_at, now()), updated_at = now()
		WHERE id = $1 AND ($2::text = '' OR recipient_id::text = $2::text)
		RETURNING ` + notificationColumns
	notif, err := scanNotification(r.db.QueryRowContext(ctx, query, id, recipientID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Notification{}, notification.ErrNotFound
	}
	return notif, err
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET read = true, read_at = COALESCE(read_at, now()), updated_at = now()
		WHERE recipient_id = $1 AND active AND NOT read
	`, recipientID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*) FROM notifications
		WHERE recipient_id = $1 AND active AND NOT read
	`, recipientID).Scan(&count)
	return count, err
}

// Deactivate soft-deletes: the row stays referenced, it just leaves every
// active scan, which also frees its dedupe key.
func (r *notificationRepository) Deactivate(ctx context.Context, id, recipientID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET active = false, updated_at = now()
		WHERE id = $1 AND ($2::text = '' OR recipient_id::text = $2::text)
	`, id, recipientID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func (r *notificationRepository) ListRecent(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE recipient_id = $1 AND active
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notif)
	}
	return notifications, rows.Err()
}

func scanNotification(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Notification, error) {
	return scanNotificationFields(scanner)
}

func scanNotificationFields(scanner interface {
	Scan(dest ...interface{}) error
}, extra ...interface{}) (models.Notification, error) {
	var (
		notif         models.Notification
		patientID     sql.NullString
		appointmentID sql.NullString
		readAt        sql.NullTime
		deliveredAt   sql.NullTime
		scheduledFor  sql.NullTime
		dedupeKey     sql.NullString
	)
	dest := []interface{}{
		&notif.ID,
		&notif.Type,
		&notif.Title,
		&notif.Message,
		&notif.RecipientID,
		&patientID,
		&appointmentID,
		&notif.Read,
		&readAt,
		&notif.Delivered,
		&deliveredAt,
		&scheduledFor,
		&notif.Active,
		&dedupeKey,
		&notif.CreatedAt,
		&notif.UpdatedAt,
	}
	dest = append(dest, extra...)
	if err := scanner.Scan(dest...); err != nil {
		return models.Notification{}, err
	}

	if patientID.Valid {
		v := patientID.String
		notif.PatientID = &v
	}
	if appointmentID.Valid {
		v := appointmentID.String
		notif.AppointmentID = &v
	}
	if readAt.Valid {
		t := readAt.Time
		notif.ReadAt = &t
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time
		notif.DeliveredAt = &t
	}
	if scheduledFor.Valid {
		t := scheduledFor.Time
		notif.ScheduledFor = &t
	}
	if dedupeKey.Valid {
		v := dedupeKey.String
		notif.DedupeKey = &v
	}
	return notif, nil
}
