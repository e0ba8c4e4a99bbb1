package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/nutripanel/nutripanel-api/internal/models"
	"github.com/nutripanel/nutripanel-api/internal/notification"
)

// userRepository is the read-only staff directory consumed by the
// notification pipelines.
type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) notification.StaffDirectory {
	return &userRepository{db: db}
}

func (r *userRepository) GetUser(ctx context.Context, id string) (models.User, error) {
	const query = `
		SELECT id, full_name, COALESCE(email, ''), role, active
		FROM users
		WHERE id = $1
	`
	var user models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.FullName,
		&user.Email,
		&user.Role,
		&user.Active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, errors.Errorf("user %s not found", id)
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}
