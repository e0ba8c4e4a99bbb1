package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/nutripanel/nutripanel-api/internal/models"
	"github.com/nutripanel/nutripanel-api/internal/notification"
)

// patientRepository is the read-only patient directory consumed by the
// notification pipelines. Patient CRUD lives outside this service.
type patientRepository struct {
	db *sql.DB
}

func NewPatientRepository(db *sql.DB) notification.PatientDirectory {
	return &patientRepository{db: db}
}

func (r *patientRepository) GetPatient(ctx context.Context, id string) (models.Patient, error) {
	const query = `
		SELECT id, full_name, COALESCE(email, ''), birth_date, COALESCE(assigned_user_id::text, ''), active, created_at
		FROM patients
		WHERE id = $1
	`
	var (
		patient   models.Patient
		birthDate sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&patient.ID,
		&patient.FullName,
		&patient.Email,
		&birthDate,
		&patient.AssignedUserID,
		&patient.Active,
		&patient.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Patient{}, errors.Errorf("patient %s not found", id)
	}
	if err != nil {
		return models.Patient{}, err
	}
	if birthDate.Valid {
		t := birthDate.Time
		patient.BirthDate = &t
	}
	return patient, nil
}

// ListStale returns active patients whose latest measurement, or creation
// date when they have none, is older than cutoff.
func (r *patientRepository) ListStale(ctx context.Context, cutoff time.Time) ([]models.Patient, error) {
	const query = `
		SELECT p.id, p.full_name, COALESCE(p.email, ''), p.birth_date, COALESCE(p.assigned_user_id::text, ''), p.active, p.created_at
		FROM patients p
		LEFT JOIN LATERAL (
			SELECT max(taken_at) AS last_taken
			FROM measurements m
			WHERE m.patient_id = p.id
		) lm ON true
		WHERE p.active
		  AND COALESCE(lm.last_taken, p.created_at) < $1
		ORDER BY p.full_name ASC
	`
	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []models.Patient
	for rows.Next() {
		var (
			patient   models.Patient
			birthDate sql.NullTime
		)
		if err := rows.Scan(
			&patient.ID,
			&patient.FullName,
			&patient.Email,
			&birthDate,
			&patient.AssignedUserID,
			&patient.Active,
			&patient.CreatedAt,
		); err != nil {
			return nil, err
		}
		if birthDate.Valid {
			t := birthDate.Time
			patient.BirthDate = &t
		}
		patients = append(patients, patient)
	}
	return patients, rows.Err()
}
