package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User types returned by login. They double as token roles.
const (
	TypeAdmin       = "admin"
	TypeMitarbeiter = "mitarbeiter"
	TypePatient     = "patient"
)

const birthdateLayout = "2006-01-02"

// Mitarbeiter maps to the mitarbeiter table (caregivers).
type Mitarbeiter struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Name      string    `db:"name" json:"name"`
	Birthdate string    `db:"birthdate" json:"birthdate"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Patient maps to the patienten table.
type Patient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Name      string    `db:"name" json:"name"`
	Birthdate string    `db:"birthdate" json:"birthdate"`
	Room      string    `db:"room" json:"room"`
	Location  string    `db:"location" json:"location"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Admin maps to the admins table.
type Admin struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Name      string    `db:"name" json:"name"`
	Birthdate string    `db:"birthdate" json:"birthdate"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type LoginRequest struct {
	Username  string `json:"username"`
	Birthdate string `json:"birthdate"`
}

// User is the identity returned to the client after login.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Type     string    `json:"type"`
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// NormalizeBirthdate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns
// the date as YYYY-MM-DD.
func NormalizeBirthdate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: birthdate is required", ErrInvalidInput)
	}
	if t, err := time.Parse(birthdateLayout, raw); err == nil {
		return t.Format(birthdateLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Format(birthdateLayout), nil
	}
	return "", fmt.Errorf("%w: birthdate must be YYYY-MM-DD", ErrInvalidInput)
}
