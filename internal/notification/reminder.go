package notification

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ReminderGenerator is the daily scan that turns near-future appointments
// into reminder notifications. Safe to re-run any number of times: creation
// is deduplicated on the appointment id.
type ReminderGenerator struct {
	outbox       Service
	appointments AppointmentSource
	patients     PatientDirectory
	logger       zerolog.Logger
	now          func() time.Time
}

func NewReminderGenerator(outbox Service, appointments AppointmentSource, patients PatientDirectory, logger zerolog.Logger) *ReminderGenerator {
	return &ReminderGenerator{
		outbox:       outbox,
		appointments: appointments,
		patients:     patients,
		logger:       logger.With().Str("component", "reminder_generator").Logger(),
		now:          time.Now,
	}
}

// RunCycle scans appointments starting between now and the end of the next
// UTC calendar day and generates a reminder for each. Returns the number of
// appointments processed.
func (g *ReminderGenerator) RunCycle(ctx context.Context) (int, error) {
	now := g.now().UTC()
	windowEnd := now.Truncate(24 * time.Hour).Add(48 * time.Hour)

	appts, err := g.appointments.ListNeedingReminder(ctx, now, windowEnd)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, appt := range appts {
		patient, err := g.patients.GetPatient(ctx, appt.PatientID)
		if err != nil {
			g.logger.Warn().Err(err).Str("appointment_id", appt.ID).Msg("skipping reminder, patient lookup failed")
			continue
		}
		if strings.TrimSpace(patient.Email) == "" {
			continue
		}

		if _, err := g.outbox.CreateAppointmentReminder(ctx, appt.ID, 0); err != nil {
			g.logger.Warn().Err(err).Str("appointment_id", appt.ID).Msg("failed to generate reminder")
			continue
		}
		if err := g.appointments.SetReminderSent(ctx, appt.ID); err != nil {
			// The dedupe key keeps a re-run from duplicating the reminder, so
			// a failed flag write only costs one redundant scan.
			g.logger.Warn().Err(err).Str("appointment_id", appt.ID).Msg("failed to flag appointment as reminded")
		}
		created++
	}

	g.logger.Info().Int("reminders", created).Msg("reminder scan complete")
	return created, nil
}
