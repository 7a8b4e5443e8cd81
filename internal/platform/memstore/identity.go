package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/pflege/pflege/internal/domain/identity"
)

// usernameTaken reports a clash within one user table. Like the unique
// indexes in Postgres, the tables are independent of each other.
func (s *Store) usernameTaken(table, username string) bool {
	switch table {
	case "mitarbeiter":
		for _, m := range s.mitarbeiter {
			if m.Username == username {
				return true
			}
		}
	case "patienten":
		for _, p := range s.patients {
			if p.Username == username {
				return true
			}
		}
	case "admins":
		for _, a := range s.admins {
			if a.Username == username {
				return true
			}
		}
	}
	return false
}

type mitarbeiterRepo struct{ s *Store }

func (r mitarbeiterRepo) Create(_ context.Context, m *identity.Mitarbeiter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.usernameTaken("mitarbeiter", m.Username) {
		return identity.ErrUsernameTaken
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = r.s.now()
	cp := *m
	r.s.mitarbeiter[m.ID] = &cp
	return nil
}

func (r mitarbeiterRepo) GetByID(_ context.Context, id uuid.UUID) (*identity.Mitarbeiter, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.mitarbeiter[id]
	if !ok {
		return nil, identity.ErrMitarbeiterNotFound
	}
	cp := *m
	return &cp, nil
}

func (r mitarbeiterRepo) GetByUsername(_ context.Context, username string) (*identity.Mitarbeiter, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.mitarbeiter {
		if m.Username == username {
			cp := *m
			return &cp, nil
		}
	}
	return nil, identity.ErrMitarbeiterNotFound
}

func (r mitarbeiterRepo) List(_ context.Context) ([]*identity.Mitarbeiter, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*identity.Mitarbeiter, 0, len(r.s.mitarbeiter))
	for _, m := range r.s.mitarbeiter {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r mitarbeiterRepo) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.mitarbeiter), nil
}

type patientRepo struct{ s *Store }

func (r patientRepo) Create(_ context.Context, p *identity.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.usernameTaken("patienten", p.Username) {
		return identity.ErrUsernameTaken
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = r.s.now()
	cp := *p
	r.s.patients[p.ID] = &cp
	r.s.patientOrder = append(r.s.patientOrder, p.ID)
	return nil
}

func (r patientRepo) GetByID(_ context.Context, id uuid.UUID) (*identity.Patient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.patients[id]
	if !ok {
		return nil, identity.ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (r patientRepo) GetByUsername(_ context.Context, username string) (*identity.Patient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.patients {
		if p.Username == username {
			cp := *p
			return &cp, nil
		}
	}
	return nil, identity.ErrPatientNotFound
}

func (r patientRepo) List(_ context.Context, limit, offset int) ([]*identity.Patient, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := make([]*identity.Patient, 0, len(r.s.patients))
	for _, p := range r.s.patients {
		cp := *p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID.String() < all[j].ID.String()
	})
	return window(all, limit, offset), len(all), nil
}

func (r patientRepo) UpdateLocation(_ context.Context, id uuid.UUID, location string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.patients[id]
	if !ok {
		return identity.ErrPatientNotFound
	}
	p.Location = location
	return nil
}

type adminRepo struct{ s *Store }

func (r adminRepo) Create(_ context.Context, a *identity.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.usernameTaken("admins", a.Username) {
		return identity.ErrUsernameTaken
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = r.s.now()
	cp := *a
	r.s.admins[a.ID] = &cp
	return nil
}

func (r adminRepo) GetByUsername(_ context.Context, username string) (*identity.Admin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.admins {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, identity.ErrAdminNotFound
}
