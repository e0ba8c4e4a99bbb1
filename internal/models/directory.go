package models

import "time"

// Directory entities are consumed read-only by the scheduling and notification
// cores. Their CRUD surfaces live outside this service.

type User struct {
	ID       string `json:"id" db:"id"`
	FullName string `json:"full_name" db:"full_name"`
	Email    string `json:"email" db:"email"`
	Role     string `json:"role" db:"role"`
	Active   bool   `json:"active" db:"active"`
}

type Patient struct {
	ID             string     `json:"id" db:"id"`
	FullName       string     `json:"full_name" db:"full_name"`
	Email          string     `json:"email" db:"email"`
	BirthDate      *time.Time `json:"birth_date,omitempty" db:"birth_date"`
	AssignedUserID string     `json:"assigned_user_id" db:"assigned_user_id"`
	Active         bool       `json:"active" db:"active"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

type Clinic struct {
	ID     string `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Active bool   `json:"active" db:"active"`
}
