package notification

import (
	"context"
	"time"

	"github.com/nutripanel/nutripanel-api/internal/models"
)

// Consumed collaborators. The notification core only ever reads from the
// patient/staff directories and the appointment book; their write surfaces
// live elsewhere.

type PatientDirectory interface {
	GetPatient(ctx context.Context, id string) (models.Patient, error)
	// ListStale returns active patients whose most recent measurement (or
	// creation date, if they have none) is older than cutoff.
	ListStale(ctx context.Context, cutoff time.Time) ([]models.Patient, error)
}

type StaffDirectory interface {
	GetUser(ctx context.Context, id string) (models.User, error)
}

// AppointmentSource exposes the slice of the appointment book the reminder
// pipeline needs.
type AppointmentSource interface {
	GetAppointment(ctx context.Context, id string) (models.Appointment, error)
	// ListNeedingReminder returns appointments in an active state starting in
	// [from, to) that have not had a reminder generated yet.
	ListNeedingReminder(ctx context.Context, from, to time.Time) ([]models.Appointment, error)
	SetReminderSent(ctx context.Context, id string) error
}

// Settings is the system-wide configuration store.
type Settings interface {
	EmailDeliveryEnabled(ctx context.Context) (bool, error)
	ReminderLeadDays(ctx context.Context) (int, error)
}
