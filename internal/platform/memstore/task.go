package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/pflege/pflege/internal/domain/task"
)

type taskRepo struct{ s *Store }

func (r taskRepo) Create(_ context.Context, t *task.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.mitarbeiter[t.MitarbeiterID]; !ok {
		return task.ErrInvalidInput
	}
	t.ID = uuid.New()
	t.CreatedAt = r.s.now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	r.s.tasks = append(r.s.tasks, &cp)
	return nil
}

func (r taskRepo) find(id uuid.UUID) (int, *task.Task) {
	for i, t := range r.s.tasks {
		if t.ID == id {
			return i, t
		}
	}
	return -1, nil
}

func (r taskRepo) GetByID(_ context.Context, id uuid.UUID) (*task.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, t := r.find(id)
	if t == nil {
		return nil, task.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r taskRepo) ListByMitarbeiter(_ context.Context, mitarbeiterID uuid.UUID, status string) ([]*task.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*task.Task
	for _, t := range r.s.tasks {
		if t.MitarbeiterID == mitarbeiterID && (status == "" || t.Status == status) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Open() != b.Open() {
			return a.Open()
		}
		switch {
		case a.DueAt != nil && b.DueAt != nil && !a.DueAt.Equal(*b.DueAt):
			return a.DueAt.Before(*b.DueAt)
		case (a.DueAt == nil) != (b.DueAt == nil):
			return a.DueAt != nil
		}
		return false
	})
	return out, nil
}

func (r taskRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) (*task.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, t := r.find(id)
	if t == nil {
		return nil, task.ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = r.s.now()
	cp := *t
	return &cp, nil
}

func (r taskRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, t := r.find(id)
	if t == nil {
		return task.ErrNotFound
	}
	r.s.tasks = append(r.s.tasks[:i], r.s.tasks[i+1:]...)
	return nil
}
