package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nutripanel/nutripanel-api/internal/config"
	"github.com/nutripanel/nutripanel-api/internal/models"
)

// StaleFollowupScanner alerts a patient's assigned staff member when the
// patient has had no measurement for longer than the configured threshold.
// At most one alert per patient per calendar day; a persisting condition
// produces a fresh alert on a later day.
type StaleFollowupScanner struct {
	outbox   Service
	patients PatientDirectory
	staff    StaffDirectory
	cfg      config.FollowupConfig
	logger   zerolog.Logger
	now      func() time.Time
}

func NewStaleFollowupScanner(outbox Service, patients PatientDirectory, staff StaffDirectory, cfg config.FollowupConfig, logger zerolog.Logger) *StaleFollowupScanner {
	return &StaleFollowupScanner{
		outbox:   outbox,
		patients: patients,
		staff:    staff,
		cfg:      cfg,
		logger:   logger.With().Str("component", "stale_followup_scanner").Logger(),
		now:      time.Now,
	}
}

// RunCycle returns the number of alerts submitted to the outbox. Submitting
// an alert whose key already exists is a no-op that returns the existing
// record, so the count can exceed the number of new rows on a re-run.
func (s *StaleFollowupScanner) RunCycle(ctx context.Context) (int, error) {
	now := s.now().UTC()
	cutoff := now.AddDate(0, 0, -s.cfg.StaleAfterDays)

	stale, err := s.patients.ListStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, patient := range stale {
		if strings.TrimSpace(patient.AssignedUserID) == "" {
			continue
		}
		if _, err := s.staff.GetUser(ctx, patient.AssignedUserID); err != nil {
			s.logger.Warn().Err(err).Str("patient_id", patient.ID).Msg("skipping stale alert, staff lookup failed")
			continue
		}

		key := StaleFollowupDedupeKey(patient.ID, now)
		patientID := patient.ID
		_, err := s.outbox.Create(ctx, CreateParams{
			Type:        models.NotificationTypeStaleFollowup,
			Title:       "Patient needs a follow-up",
			Message:     fmt.Sprintf("%s has had no measurement in over %d days.", patient.FullName, s.cfg.StaleAfterDays),
			RecipientID: patient.AssignedUserID,
			PatientID:   &patientID,
			DedupeKey:   &key,
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("patient_id", patient.ID).Msg("failed to create stale-followup alert")
			continue
		}
		created++
	}

	s.logger.Info().Int("alerts", created).Int("stale_patients", len(stale)).Msg("stale-followup scan complete")
	return created, nil
}
