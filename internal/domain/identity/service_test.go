package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

// -- Mock Repositories --

type mockMitarbeiterRepo struct {
	store map[uuid.UUID]*Mitarbeiter
}

func newMockMitarbeiterRepo() *mockMitarbeiterRepo {
	return &mockMitarbeiterRepo{store: make(map[uuid.UUID]*Mitarbeiter)}
}

func (m *mockMitarbeiterRepo) Create(_ context.Context, x *Mitarbeiter) error {
	for _, existing := range m.store {
		if existing.Username == x.Username {
			return ErrUsernameTaken
		}
	}
	if x.ID == uuid.Nil {
		x.ID = uuid.New()
	}
	x.CreatedAt = time.Now()
	m.store[x.ID] = x
	return nil
}

func (m *mockMitarbeiterRepo) GetByID(_ context.Context, id uuid.UUID) (*Mitarbeiter, error) {
	x, ok := m.store[id]
	if !ok {
		return nil, ErrMitarbeiterNotFound
	}
	return x, nil
}

func (m *mockMitarbeiterRepo) GetByUsername(_ context.Context, username string) (*Mitarbeiter, error) {
	for _, x := range m.store {
		if x.Username == username {
			return x, nil
		}
	}
	return nil, ErrMitarbeiterNotFound
}

func (m *mockMitarbeiterRepo) List(_ context.Context) ([]*Mitarbeiter, error) {
	var r []*Mitarbeiter
	for _, x := range m.store {
		r = append(r, x)
	}
	return r, nil
}

func (m *mockMitarbeiterRepo) Count(_ context.Context) (int, error) {
	return len(m.store), nil
}

type mockPatientRepo struct {
	store map[uuid.UUID]*Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{store: make(map[uuid.UUID]*Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	for _, existing := range m.store {
		if existing.Username == p.Username {
			return ErrUsernameTaken
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.store[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

func (m *mockPatientRepo) GetByUsername(_ context.Context, username string) (*Patient, error) {
	for _, p := range m.store {
		if p.Username == username {
			return p, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (m *mockPatientRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	var r []*Patient
	for _, p := range m.store {
		r = append(r, p)
	}
	return r, len(r), nil
}

func (m *mockPatientRepo) UpdateLocation(_ context.Context, id uuid.UUID, location string) error {
	p, ok := m.store[id]
	if !ok {
		return ErrPatientNotFound
	}
	p.Location = location
	return nil
}

type mockAdminRepo struct {
	store map[string]*Admin
	err   error
}

func newMockAdminRepo() *mockAdminRepo {
	return &mockAdminRepo{store: make(map[string]*Admin)}
}

func (m *mockAdminRepo) Create(_ context.Context, a *Admin) error {
	if _, ok := m.store[a.Username]; ok {
		return ErrUsernameTaken
	}
	a.ID = uuid.New()
	m.store[a.Username] = a
	return nil
}

func (m *mockAdminRepo) GetByUsername(_ context.Context, username string) (*Admin, error) {
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.store[username]
	if !ok {
		return nil, ErrAdminNotFound
	}
	return a, nil
}

type stubIssuer struct {
	lastRoles []string
}

func (s *stubIssuer) Issue(userID, username string, roles ...string) (string, time.Time, error) {
	s.lastRoles = roles
	return "token-" + userID, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

type testEnv struct {
	svc    *Service
	mit    *mockMitarbeiterRepo
	pat    *mockPatientRepo
	adm    *mockAdminRepo
	issuer *stubIssuer
}

func newTestEnv() *testEnv {
	env := &testEnv{
		mit:    newMockMitarbeiterRepo(),
		pat:    newMockPatientRepo(),
		adm:    newMockAdminRepo(),
		issuer: &stubIssuer{},
	}
	env.svc = NewService(env.mit, env.pat, env.adm, env.issuer)
	return env
}

func newTestService() *Service {
	return newTestEnv().svc
}

// -- Login --

func TestLogin_Mitarbeiter(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	m := &Mitarbeiter{Username: "anna", Name: "Anna Weber", Birthdate: "1985-03-12"}
	if err := env.svc.CreateMitarbeiter(ctx, m); err != nil {
		t.Fatalf("CreateMitarbeiter: %v", err)
	}

	res, err := env.svc.Login(ctx, LoginRequest{Username: " anna ", Birthdate: "1985-03-12"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.User.Type != TypeMitarbeiter {
		t.Errorf("expected type mitarbeiter, got %s", res.User.Type)
	}
	if res.User.ID != m.ID {
		t.Errorf("expected id %s, got %s", m.ID, res.User.ID)
	}
	if res.Token != "token-"+m.ID.String() {
		t.Errorf("unexpected token %s", res.Token)
	}
	if len(env.issuer.lastRoles) != 1 || env.issuer.lastRoles[0] != TypeMitarbeiter {
		t.Errorf("expected role mitarbeiter, got %v", env.issuer.lastRoles)
	}
}

func TestLogin_PatientAndAdmin(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.svc.CreatePatient(ctx, &Patient{Username: "maier", Name: "Hans Maier", Birthdate: "1940-07-01"})
	env.svc.CreateAdmin(ctx, &Admin{Username: "root", Name: "Leitung", Birthdate: "1970-01-01"})

	res, err := env.svc.Login(ctx, LoginRequest{Username: "maier", Birthdate: "1940-07-01T00:00:00Z"})
	if err != nil {
		t.Fatalf("Login patient: %v", err)
	}
	if res.User.Type != TypePatient {
		t.Errorf("expected patient, got %s", res.User.Type)
	}

	res, err = env.svc.Login(ctx, LoginRequest{Username: "root", Birthdate: "1970-01-01"})
	if err != nil {
		t.Fatalf("Login admin: %v", err)
	}
	if res.User.Type != TypeAdmin {
		t.Errorf("expected admin, got %s", res.User.Type)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.svc.CreateMitarbeiter(ctx, &Mitarbeiter{Username: "anna", Name: "Anna", Birthdate: "1985-03-12"})

	tests := []LoginRequest{
		{Username: "anna", Birthdate: "1985-03-13"},
		{Username: "nobody", Birthdate: "1985-03-12"},
		{Username: "anna", Birthdate: "12.03.1985"},
	}
	for _, req := range tests {
		if _, err := env.svc.Login(ctx, req); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%+v: expected ErrInvalidCredentials, got %v", req, err)
		}
	}
}

func TestLogin_MissingFields(t *testing.T) {
	svc := newTestService()
	if _, err := svc.Login(context.Background(), LoginRequest{Username: "anna"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLogin_RepositoryError(t *testing.T) {
	env := newTestEnv()
	env.adm.err = errors.New("connection reset")
	_, err := env.svc.Login(context.Background(), LoginRequest{Username: "anna", Birthdate: "1985-03-12"})
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected infrastructure error, got %v", err)
	}
}

// -- Create --

func TestCreateMitarbeiter_Validation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		m    Mitarbeiter
	}{
		{"missing username", Mitarbeiter{Name: "A", Birthdate: "1980-01-01"}},
		{"missing name", Mitarbeiter{Username: "a", Birthdate: "1980-01-01"}},
		{"bad birthdate", Mitarbeiter{Username: "a", Name: "A", Birthdate: "1980/01/01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.m
			if err := svc.CreateMitarbeiter(ctx, &m); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCreateMitarbeiter_DuplicateUsername(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	svc.CreateMitarbeiter(ctx, &Mitarbeiter{Username: "anna", Name: "Anna", Birthdate: "1985-03-12"})
	err := svc.CreateMitarbeiter(ctx, &Mitarbeiter{Username: "anna", Name: "Anna 2", Birthdate: "1990-01-01"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestCreatePatient_NormalizesFields(t *testing.T) {
	svc := newTestService()
	p := &Patient{Username: " maier ", Name: " Hans Maier ", Birthdate: "1940-07-01T00:00:00Z", Room: " 12 "}
	if err := svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	if p.Username != "maier" || p.Name != "Hans Maier" || p.Room != "12" {
		t.Errorf("expected trimmed fields, got %+v", p)
	}
	if p.Birthdate != "1940-07-01" {
		t.Errorf("expected normalized birthdate, got %s", p.Birthdate)
	}
}

func TestUpdatePatientLocation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p := &Patient{Username: "maier", Name: "Hans Maier", Birthdate: "1940-07-01"}
	svc.CreatePatient(ctx, p)

	if err := svc.UpdatePatientLocation(ctx, p.ID, ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if err := svc.UpdatePatientLocation(ctx, p.ID, "Station B"); err != nil {
		t.Fatalf("UpdatePatientLocation: %v", err)
	}
	got, _ := svc.GetPatient(ctx, p.ID)
	if got.Location != "Station B" {
		t.Errorf("expected Station B, got %s", got.Location)
	}
	if err := svc.UpdatePatientLocation(ctx, uuid.New(), "X"); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestNormalizeBirthdate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1985-03-12", "1985-03-12", false},
		{" 1985-03-12 ", "1985-03-12", false},
		{"1985-03-12T00:00:00Z", "1985-03-12", false},
		{"", "", true},
		{"1985-13-01", "", true},
		{"12.03.1985", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeBirthdate(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%q: expected %s, got %s (%v)", tt.in, tt.want, got, err)
		}
	}
}
