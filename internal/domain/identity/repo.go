package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidCredentials  = errors.New("invalid username or birthdate")
	ErrUsernameTaken       = errors.New("username already exists")
	ErrMitarbeiterNotFound = errors.New("mitarbeiter not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAdminNotFound       = errors.New("admin not found")
)

type MitarbeiterRepository interface {
	Create(ctx context.Context, m *Mitarbeiter) error
	GetByID(ctx context.Context, id uuid.UUID) (*Mitarbeiter, error)
	GetByUsername(ctx context.Context, username string) (*Mitarbeiter, error)
	List(ctx context.Context) ([]*Mitarbeiter, error)
	Count(ctx context.Context) (int, error)
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByUsername(ctx context.Context, username string) (*Patient, error)
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, location string) error
}

type AdminRepository interface {
	Create(ctx context.Context, a *Admin) error
	GetByUsername(ctx context.Context, username string) (*Admin, error)
}
