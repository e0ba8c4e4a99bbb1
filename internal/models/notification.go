package models

import "time"

type NotificationType string

const (
	NotificationTypeReminder      NotificationType = "reminder"
	NotificationTypeStaleFollowup NotificationType = "stale-followup"
	NotificationTypeBirthday      NotificationType = "birthday"
	NotificationTypeSystem        NotificationType = "system"
	NotificationTypeAlert         NotificationType = "alert"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeReminder, NotificationTypeStaleFollowup, NotificationTypeBirthday,
		NotificationTypeSystem, NotificationTypeAlert:
		return true
	}
	return false
}

type Notification struct {
	ID            string           `json:"id" db:"id"`
	Type          NotificationType `json:"type" db:"type"`
	Title         string           `json:"title" db:"title"`
	Message       string           `json:"message" db:"message"`
	RecipientID   string           `json:"recipient_id" db:"recipient_id"`
	PatientID     *string          `json:"patient_id,omitempty" db:"patient_id"`
	AppointmentID *string          `json:"appointment_id,omitempty" db:"appointment_id"`
	Read          bool             `json:"read" db:"read"`
	ReadAt        *time.Time       `json:"read_at,omitempty" db:"read_at"`
	Delivered     bool             `json:"delivered" db:"delivered"`
	DeliveredAt   *time.Time       `json:"delivered_at,omitempty" db:"delivered_at"`
	ScheduledFor  *time.Time       `json:"scheduled_for,omitempty" db:"scheduled_for"`
	Active        bool             `json:"active" db:"active"`
	DedupeKey     *string          `json:"-" db:"dedupe_key"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
}
