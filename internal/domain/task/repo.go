package task

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("task not found")
)

type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	// ListByMitarbeiter orders open work first, then by due date and
	// creation time. An empty status matches every task.
	ListByMitarbeiter(ctx context.Context, mitarbeiterID uuid.UUID, status string) ([]*Task, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
