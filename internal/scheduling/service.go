package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nutripanel/nutripanel-api/internal/models"
)

// Store is the persistence consumed by the scheduling service. Insert and
// Update are conflict-checked atomically by the storage layer: a write that
// would violate the provider overlap invariant fails with ErrConflict and
// leaves nothing behind.
type Store interface {
	Insert(ctx context.Context, appt models.Appointment) (models.Appointment, error)
	GetByID(ctx context.Context, id string) (models.Appointment, error)
	Update(ctx context.Context, appt models.Appointment) (models.Appointment, error)
	UpdateState(ctx context.Context, id string, from, to models.AppointmentState, appendNote string) (models.Appointment, error)
	ListOccupying(ctx context.Context, providerID string) ([]Interval, error)
	ListUpcoming(ctx context.Context, providerID string, from time.Time, limit int) ([]models.Appointment, error)
}

type CreateAppointmentParams struct {
	PatientID       string
	ProviderID      string
	ClinicID        string
	StartAt         time.Time
	DurationMinutes int
	Type            models.AppointmentType
	Reason          string
	NotesPre        string
	CreatedBy       string
}

// UpdateAppointmentParams carries partial updates; nil means "leave as is".
type UpdateAppointmentParams struct {
	StartAt         *time.Time
	DurationMinutes *int
	ProviderID      *string
	Type            *models.AppointmentType
	Reason          *string
	NotesPre        *string
}

type Service interface {
	CreateAppointment(ctx context.Context, params CreateAppointmentParams) (models.Appointment, error)
	UpdateAppointment(ctx context.Context, id string, params UpdateAppointmentParams) (models.Appointment, error)
	CancelAppointment(ctx context.Context, id, reason string) (models.Appointment, error)
	CompleteAppointment(ctx context.Context, id, notes string) (models.Appointment, error)
	MarkNoShow(ctx context.Context, id string) (models.Appointment, error)
	TransitionState(ctx context.Context, id string, to models.AppointmentState) (models.Appointment, error)
	CheckAvailability(ctx context.Context, providerID string, start time.Time, durationMinutes int, excludeID string) (bool, error)
	ListUpcoming(ctx context.Context, providerID string, limit int) ([]models.Appointment, error)
}

type service struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(store Store, logger zerolog.Logger) Service {
	return &service{
		store:  store,
		logger: logger.With().Str("component", "scheduling_service").Logger(),
		now:    time.Now,
	}
}

func (s *service) CreateAppointment(ctx context.Context, params CreateAppointmentParams) (models.Appointment, error) {
	if params.DurationMinutes <= 0 {
		return models.Appointment{}, invalid("duration_minutes", "must be positive")
	}
	if strings.TrimSpace(params.PatientID) == "" {
		return models.Appointment{}, invalid("patient_id", "is required")
	}
	if strings.TrimSpace(params.ProviderID) == "" {
		return models.Appointment{}, invalid("provider_id", "is required")
	}
	if params.StartAt.IsZero() {
		return models.Appointment{}, invalid("start_at", "is required")
	}
	if params.Type == "" {
		params.Type = models.AppointmentTypeFollowUp
	}
	if !params.Type.Valid() {
		return models.Appointment{}, invalid("type", fmt.Sprintf("unknown appointment type %q", params.Type))
	}

	available, err := s.CheckAvailability(ctx, params.ProviderID, params.StartAt, params.DurationMinutes, "")
	if err != nil {
		return models.Appointment{}, err
	}
	if !available {
		return models.Appointment{}, ErrConflict
	}

	appt := models.Appointment{
		ID:              uuid.NewString(),
		PatientID:       params.PatientID,
		ProviderID:      params.ProviderID,
		ClinicID:        params.ClinicID,
		StartAt:         params.StartAt,
		DurationMinutes: params.DurationMinutes,
		Type:            params.Type,
		State:           models.AppointmentStateScheduled,
		Reason:          params.Reason,
		NotesPre:        params.NotesPre,
		CreatedBy:       params.CreatedBy,
	}

	// The store re-validates the slot inside the write itself; the pre-check
	// above only exists to fail fast with a clean error.
	created, err := s.store.Insert(ctx, appt)
	if err != nil {
		return models.Appointment{}, err
	}
	s.logger.Info().
		Str("appointment_id", created.ID).
		Str("provider_id", created.ProviderID).
		Time("start_at", created.StartAt).
		Msg("appointment created")
	return created, nil
}

func (s *service) UpdateAppointment(ctx context.Context, id string, params UpdateAppointmentParams) (models.Appointment, error) {
	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return models.Appointment{}, err
	}
	if appt.State.Terminal() {
		return models.Appointment{}, invalid("state", fmt.Sprintf("appointment in state %q cannot be updated", appt.State))
	}

	rescheduled := false
	if params.StartAt != nil && !params.StartAt.Equal(appt.StartAt) {
		appt.StartAt = *params.StartAt
		rescheduled = true
	}
	if params.DurationMinutes != nil && *params.DurationMinutes != appt.DurationMinutes {
		if *params.DurationMinutes <= 0 {
			return models.Appointment{}, invalid("duration_minutes", "must be positive")
		}
		appt.DurationMinutes = *params.DurationMinutes
		rescheduled = true
	}
	if params.ProviderID != nil && *params.ProviderID != appt.ProviderID {
		if strings.TrimSpace(*params.ProviderID) == "" {
			return models.Appointment{}, invalid("provider_id", "is required")
		}
		appt.ProviderID = *params.ProviderID
		rescheduled = true
	}
	if params.Type != nil {
		if !params.Type.Valid() {
			return models.Appointment{}, invalid("type", fmt.Sprintf("unknown appointment type %q", *params.Type))
		}
		appt.Type = *params.Type
	}
	if params.Reason != nil {
		appt.Reason = *params.Reason
	}
	if params.NotesPre != nil {
		appt.NotesPre = *params.NotesPre
	}

	if rescheduled {
		available, err := s.CheckAvailability(ctx, appt.ProviderID, appt.StartAt, appt.DurationMinutes, appt.ID)
		if err != nil {
			return models.Appointment{}, err
		}
		if !available {
			return models.Appointment{}, ErrConflict
		}
	}

	updated, err := s.store.Update(ctx, appt)
	if err != nil {
		return models.Appointment{}, err
	}
	if rescheduled {
		s.logger.Info().
			Str("appointment_id", updated.ID).
			Str("provider_id", updated.ProviderID).
			Time("start_at", updated.StartAt).
			Msg("appointment rescheduled")
	}
	return updated, nil
}

func (s *service) CancelAppointment(ctx context.Context, id, reason string) (models.Appointment, error) {
	note := fmt.Sprintf("[cancelled %s]", s.now().UTC().Format(time.RFC3339))
	if strings.TrimSpace(reason) != "" {
		note = fmt.Sprintf("%s %s", note, strings.TrimSpace(reason))
	}
	return s.transition(ctx, id, models.AppointmentStateCancelled, note)
}

func (s *service) CompleteAppointment(ctx context.Context, id, notes string) (models.Appointment, error) {
	return s.transition(ctx, id, models.AppointmentStateCompleted, strings.TrimSpace(notes))
}

func (s *service) MarkNoShow(ctx context.Context, id string) (models.Appointment, error) {
	note := fmt.Sprintf("[no-show %s]", s.now().UTC().Format(time.RFC3339))
	return s.transition(ctx, id, models.AppointmentStateNoShow, note)
}

func (s *service) TransitionState(ctx context.Context, id string, to models.AppointmentState) (models.Appointment, error) {
	switch to {
	case models.AppointmentStateCancelled:
		return s.CancelAppointment(ctx, id, "")
	case models.AppointmentStateCompleted:
		return s.CompleteAppointment(ctx, id, "")
	case models.AppointmentStateNoShow:
		return s.MarkNoShow(ctx, id)
	}
	return s.transition(ctx, id, to, "")
}

// transition validates the state change against the machine and commits it
// with a compare-and-set on the current state, so two concurrent transitions
// cannot both win.
func (s *service) transition(ctx context.Context, id string, to models.AppointmentState, appendNote string) (models.Appointment, error) {
	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return models.Appointment{}, err
	}
	if !CanTransition(appt.State, to) {
		return models.Appointment{}, invalid("state", fmt.Sprintf("cannot transition from %q to %q", appt.State, to))
	}
	updated, err := s.store.UpdateState(ctx, id, appt.State, to, appendNote)
	if err != nil {
		return models.Appointment{}, err
	}
	s.logger.Info().
		Str("appointment_id", id).
		Str("from", string(appt.State)).
		Str("to", string(to)).
		Msg("appointment state changed")
	return updated, nil
}

func (s *service) CheckAvailability(ctx context.Context, providerID string, start time.Time, durationMinutes int, excludeID string) (bool, error) {
	if durationMinutes <= 0 {
		return false, invalid("duration_minutes", "must be positive")
	}
	if strings.TrimSpace(providerID) == "" {
		return false, invalid("provider_id", "is required")
	}
	occupied, err := s.store.ListOccupying(ctx, providerID)
	if err != nil {
		return false, err
	}
	return IsAvailable(occupied, start, durationMinutes, excludeID), nil
}

func (s *service) ListUpcoming(ctx context.Context, providerID string, limit int) ([]models.Appointment, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	return s.store.ListUpcoming(ctx, providerID, s.now(), limit)
}
