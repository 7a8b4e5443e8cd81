package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/pflege/pflege/internal/domain/transfer"
)

type transferRepo struct{ s *Store }

func (r transferRepo) Create(_ context.Context, t *transfer.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.patients[t.PatientID]; !ok {
		return transfer.ErrPatientNotFound
	}
	if _, ok := r.s.mitarbeiter[t.RequesterID]; !ok {
		return transfer.ErrInvalidInput
	}
	t.ID = uuid.New()
	t.CreatedAt = r.s.now()
	cp := *t
	r.s.transfers = append(r.s.transfers, &cp)
	return nil
}

func (r transferRepo) find(id uuid.UUID) *transfer.Request {
	for _, t := range r.s.transfers {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (r transferRepo) GetByID(_ context.Context, id uuid.UUID) (*transfer.Request, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t := r.find(id)
	if t == nil {
		return nil, transfer.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r transferRepo) List(_ context.Context, status string, limit, offset int) ([]*transfer.Request, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var all []*transfer.Request
	for i := len(r.s.transfers) - 1; i >= 0; i-- {
		t := r.s.transfers[i]
		if status == "" || t.Status == status {
			cp := *t
			all = append(all, &cp)
		}
	}
	return window(all, limit, offset), len(all), nil
}

func (r transferRepo) Decide(_ context.Context, id uuid.UUID, status string, d transfer.Decision) (*transfer.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t := r.find(id)
	if t == nil {
		return nil, transfer.ErrNotFound
	}
	if t.Status != transfer.StatusPending {
		return nil, transfer.ErrNotPending
	}
	now := r.s.now()
	t.Status = status
	t.DecidedBy = d.DecidedBy
	t.DecisionNote = d.Note
	t.DecidedAt = &now
	cp := *t
	return &cp, nil
}

func (r transferRepo) CountPending(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, t := range r.s.transfers {
		if t.Status == transfer.StatusPending {
			n++
		}
	}
	return n, nil
}
