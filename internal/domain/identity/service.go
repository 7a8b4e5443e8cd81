package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenIssuer signs session tokens. Implemented by auth.TokenIssuer.
type TokenIssuer interface {
	Issue(userID, username string, roles ...string) (string, time.Time, error)
}

type Service struct {
	mitarbeiter MitarbeiterRepository
	patients    PatientRepository
	admins      AdminRepository
	tokens      TokenIssuer
}

func NewService(mitarbeiter MitarbeiterRepository, patients PatientRepository, admins AdminRepository, tokens TokenIssuer) *Service {
	return &Service{mitarbeiter: mitarbeiter, patients: patients, admins: admins, tokens: tokens}
}

// Login matches username and birthdate against admins, caregivers and
// patients, in that order, and issues a token carrying the user type as role.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || strings.TrimSpace(req.Birthdate) == "" {
		return nil, fmt.Errorf("%w: username and birthdate are required", ErrInvalidInput)
	}
	birthdate, err := NormalizeBirthdate(req.Birthdate)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.lookup(ctx, username, birthdate)
	if err != nil {
		return nil, err
	}

	token, exp, err := s.tokens.Issue(user.ID.String(), user.Username, user.Type)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: *user}, nil
}

func (s *Service) lookup(ctx context.Context, username, birthdate string) (*User, error) {
	a, err := s.admins.GetByUsername(ctx, username)
	switch {
	case err == nil && a.Birthdate == birthdate:
		return &User{ID: a.ID, Username: a.Username, Name: a.Name, Type: TypeAdmin}, nil
	case err != nil && !errors.Is(err, ErrAdminNotFound):
		return nil, fmt.Errorf("lookup admin: %w", err)
	}

	m, err := s.mitarbeiter.GetByUsername(ctx, username)
	switch {
	case err == nil && m.Birthdate == birthdate:
		return &User{ID: m.ID, Username: m.Username, Name: m.Name, Type: TypeMitarbeiter}, nil
	case err != nil && !errors.Is(err, ErrMitarbeiterNotFound):
		return nil, fmt.Errorf("lookup mitarbeiter: %w", err)
	}

	p, err := s.patients.GetByUsername(ctx, username)
	switch {
	case err == nil && p.Birthdate == birthdate:
		return &User{ID: p.ID, Username: p.Username, Name: p.Name, Type: TypePatient}, nil
	case err != nil && !errors.Is(err, ErrPatientNotFound):
		return nil, fmt.Errorf("lookup patient: %w", err)
	}

	return nil, ErrInvalidCredentials
}

func validatePerson(username, name, birthdate string) (string, string, string, error) {
	username = strings.TrimSpace(username)
	name = strings.TrimSpace(name)
	if username == "" {
		return "", "", "", fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if len(username) > 100 {
		return "", "", "", fmt.Errorf("%w: username must be at most 100 characters", ErrInvalidInput)
	}
	if name == "" {
		return "", "", "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	bd, err := NormalizeBirthdate(birthdate)
	if err != nil {
		return "", "", "", err
	}
	return username, name, bd, nil
}

// -- Mitarbeiter --

func (s *Service) CreateMitarbeiter(ctx context.Context, m *Mitarbeiter) error {
	var err error
	if m.Username, m.Name, m.Birthdate, err = validatePerson(m.Username, m.Name, m.Birthdate); err != nil {
		return err
	}
	return s.mitarbeiter.Create(ctx, m)
}

func (s *Service) GetMitarbeiter(ctx context.Context, id uuid.UUID) (*Mitarbeiter, error) {
	return s.mitarbeiter.GetByID(ctx, id)
}

func (s *Service) ListMitarbeiter(ctx context.Context) ([]*Mitarbeiter, error) {
	return s.mitarbeiter.List(ctx)
}

func (s *Service) CountMitarbeiter(ctx context.Context) (int, error) {
	return s.mitarbeiter.Count(ctx)
}

// -- Patient --

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	var err error
	if p.Username, p.Name, p.Birthdate, err = validatePerson(p.Username, p.Name, p.Birthdate); err != nil {
		return err
	}
	p.Room = strings.TrimSpace(p.Room)
	p.Location = strings.TrimSpace(p.Location)
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) UpdatePatientLocation(ctx context.Context, id uuid.UUID, location string) error {
	location = strings.TrimSpace(location)
	if location == "" {
		return fmt.Errorf("%w: location is required", ErrInvalidInput)
	}
	return s.patients.UpdateLocation(ctx, id, location)
}

// -- Admin --

func (s *Service) CreateAdmin(ctx context.Context, a *Admin) error {
	var err error
	if a.Username, a.Name, a.Birthdate, err = validatePerson(a.Username, a.Name, a.Birthdate); err != nil {
		return err
	}
	return s.admins.Create(ctx, a)
}
