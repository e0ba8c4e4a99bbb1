package models

import "time"

type AppointmentType string

const (
	AppointmentTypeFirstVisit AppointmentType = "first_visit"
	AppointmentTypeFollowUp   AppointmentType = "follow_up"
	AppointmentTypeControl    AppointmentType = "control"
	AppointmentTypeUrgent     AppointmentType = "urgent"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case AppointmentTypeFirstVisit, AppointmentTypeFollowUp, AppointmentTypeControl, AppointmentTypeUrgent:
		return true
	}
	return false
}

type AppointmentState string

const (
	AppointmentStateScheduled  AppointmentState = "scheduled"
	AppointmentStateConfirmed  AppointmentState = "confirmed"
	AppointmentStateInProgress AppointmentState = "in_progress"
	AppointmentStateCompleted  AppointmentState = "completed"
	AppointmentStateCancelled  AppointmentState = "cancelled"
	AppointmentStateNoShow     AppointmentState = "no_show"
)

// Occupies reports whether an appointment in this state still blocks its
// provider's time slot.
func (s AppointmentState) Occupies() bool {
	return s != AppointmentStateCancelled && s != AppointmentStateNoShow
}

// Terminal reports whether no further transitions are allowed from this state.
func (s AppointmentState) Terminal() bool {
	switch s {
	case AppointmentStateCompleted, AppointmentStateCancelled, AppointmentStateNoShow:
		return true
	}
	return false
}

type Appointment struct {
	ID              string           `json:"id" db:"id"`
	PatientID       string           `json:"patient_id" db:"patient_id"`
	ProviderID      string           `json:"provider_id" db:"provider_id"`
	ClinicID        string           `json:"clinic_id" db:"clinic_id"`
	StartAt         time.Time        `json:"start_at" db:"start_at"`
	DurationMinutes int              `json:"duration_minutes" db:"duration_minutes"`
	Type            AppointmentType  `json:"type" db:"type"`
	State           AppointmentState `json:"state" db:"state"`
	Reason          string           `json:"reason" db:"reason"`
	NotesPre        string           `json:"notes_pre" db:"notes_pre"`
	NotesPost       string           `json:"notes_post" db:"notes_post"`
	ReminderSent    bool             `json:"reminder_sent" db:"reminder_sent"`
	CreatedBy       string           `json:"created_by" db:"created_by"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}

// EndAt returns the exclusive end of the appointment interval.
func (a Appointment) EndAt() time.Time {
	return a.StartAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}
