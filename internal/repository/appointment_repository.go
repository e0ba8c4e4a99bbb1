package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/nutripanel/nutripanel-api/internal/models"
	"github.com/nutripanel/nutripanel-api/internal/scheduling"
)

// AppointmentRepository persists appointments. It serves both the scheduling
// service and the reminder pipeline's read side.
type AppointmentRepository interface {
	scheduling.Store
	GetAppointment(ctx context.Context, id string) (models.Appointment, error)
	ListNeedingReminder(ctx context.Context, from, to time.Time) ([]models.Appointment, error)
	SetReminderSent(ctx context.Context, id string) error
}

type appointmentRepository struct {
	db *sql.DB
}

func NewAppointmentRepository(db *sql.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

const appointmentColumns = `
	id, patient_id, provider_id, clinic_id, start_at, duration_minutes,
	type, state, reason, notes_pre, notes_post, reminder_sent, created_by,
	created_at, updated_at`

// Insert relies on the provider-overlap exclusion constraint: a conflicting
// slot fails the statement itself, so two concurrent bookings can never both
// commit.
func (r *appointmentRepository) Insert(ctx context.Context, appt models.Appointment) (models.Appointment, error) {
	const query = `
		INSERT INTO appointments (
			id, patient_id, provider_id, clinic_id, start_at, duration_minutes,
			type, state, reason, notes_pre, notes_post, reminder_sent, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		appt.ID,
		appt.PatientID,
		appt.ProviderID,
		nullString(appt.ClinicID),
		appt.StartAt,
		appt.DurationMinutes,
		appt.Type,
		appt.State,
		appt.Reason,
		appt.NotesPre,
		appt.NotesPost,
		appt.ReminderSent,
		nullString(appt.CreatedBy),
	).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return models.Appointment{}, mapAppointmentError(err)
	}
	return appt, nil
}

func (r *appointmentRepository) GetByID(ctx context.Context, id string) (models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	appt, err := scanAppointment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return models.Appointment{}, mapAppointmentError(err)
	}
	return appt, nil
}

func (r *appointmentRepository) GetAppointment(ctx context.Context, id string) (models.Appointment, error) {
	return r.GetByID(ctx, id)
}

// Update writes the reschedulable fields in one statement. A move into an
// occupied slot violates the exclusion constraint and rolls back the whole
// statement, leaving the stored row untouched.
func (r *appointmentRepository) Update(ctx context.Context, appt models.Appointment) (models.Appointment, error) {
	query := `
		UPDATE appointments
		SET provider_id = $2,
		    start_at = $3,
		    duration_minutes = $4,
		    type = $5,
		    reason = $6,
		    notes_pre = $7,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + appointmentColumns
	updated, err := scanAppointment(r.db.QueryRowContext(ctx, query,
		appt.ID,
		appt.ProviderID,
		appt.StartAt,
		appt.DurationMinutes,
		appt.Type,
		appt.Reason,
		appt.NotesPre,
	))
	if err != nil {
		return models.Appointment{}, mapAppointmentError(err)
	}
	return updated, nil
}

// UpdateState is a compare-and-set on the current state; the post-note is
// appended in SQL so existing content is never overwritten.
func (r *appointmentRepository) UpdateState(ctx context.Context, id string, from, to models.AppointmentState, appendNote string) (models.Appointment, error) {
	query := `
		UPDATE appointments
		SET state = $3,
		    notes_post = CASE
		        WHEN $4::text = '' THEN notes_post
		        WHEN notes_post = '' THEN $4::text
		        ELSE notes_post || E'\n' || $4::text
		    END,
		    updated_at = now()
		WHERE id = $1 AND state = $2
		RETURNING ` + appointmentColumns
	updated, err := scanAppointment(r.db.QueryRowContext(ctx, query, id, from, to, appendNote))
	if err == nil {
		return updated, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		// Either the row is gone or another transition won the race.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return models.Appointment{}, getErr
		}
		return models.Appointment{}, errors.Wrap(scheduling.ErrConflict, "appointment state changed concurrently")
	}
	return models.Appointment{}, mapAppointmentError(err)
}

func (r *appointmentRepository) ListOccupying(ctx context.Context, providerID string) ([]scheduling.Interval, error) {
	const query = `
		SELECT id, start_at, duration_minutes
		FROM appointments
		WHERE provider_id = $1
		  AND state NOT IN ('cancelled', 'no_show')
		ORDER BY start_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intervals []scheduling.Interval
	for rows.Next() {
		var iv scheduling.Interval
		if err := rows.Scan(&iv.AppointmentID, &iv.Start, &iv.DurationMinutes); err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)
	}
	return intervals, rows.Err()
}

func (r *appointmentRepository) ListUpcoming(ctx context.Context, providerID string, from time.Time, limit int) ([]models.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE provider_id = $1
		  AND start_at >= $2
		  AND state NOT IN ('cancelled', 'no_show')
		ORDER BY start_at ASC
		LIMIT $3
	`
	return r.queryAppointments(ctx, query, providerID, from, limit)
}

func (r *appointmentRepository) ListNeedingReminder(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE state IN ('scheduled', 'confirmed')
		  AND reminder_sent = false
		  AND start_at >= $1
		  AND start_at < $2
		ORDER BY start_at ASC
	`
	return r.queryAppointments(ctx, query, from, to)
}

func (r *appointmentRepository) SetReminderSent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE appointments SET reminder_sent = true, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return scheduling.ErrNotFound
	}
	return nil
}

func (r *appointmentRepository) queryAppointments(ctx context.Context, query string, args ...interface{}) ([]models.Appointment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []models.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	return appts, rows.Err()
}

func scanAppointment(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Appointment, error) {
	var (
		appt      models.Appointment
		clinicID  sql.NullString
		createdBy sql.NullString
	)
	if err := scanner.Scan(
		&appt.ID,
		&appt.PatientID,
		&appt.ProviderID,
		&clinicID,
		&appt.StartAt,
		&appt.DurationMinutes,
		&appt.Type,
		&appt.State,
		&appt.Reason,
		&appt.NotesPre,
		&appt.NotesPost,
		&appt.ReminderSent,
		&createdBy,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	); err != nil {
		return models.Appointment{}, err
	}
	appt.ClinicID = clinicID.String
	appt.CreatedBy = createdBy.String
	return appt, nil
}

// mapAppointmentError translates storage failures into the scheduling
// package's error vocabulary.
func mapAppointmentError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return scheduling.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23P01": // exclusion_violation: overlapping provider slot
			return errors.Wrap(scheduling.ErrConflict, "overlapping appointment")
		case "23503": // foreign_key_violation: unknown patient/provider/clinic
			return &scheduling.ValidationError{Field: pqErr.Constraint, Reason: "referenced record does not exist"}
		case "23514": // check_violation
			return &scheduling.ValidationError{Field: pqErr.Constraint, Reason: pqErr.Message}
		}
	}
	return err
}

func nullString(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
