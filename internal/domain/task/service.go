package task

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const maxTitleLength = 200

type Service struct {
	tasks TaskRepository
}

func NewService(tasks TaskRepository) *Service {
	return &Service{tasks: tasks}
}

var validTaskStatuses = map[string]bool{
	StatusOpen:       true,
	StatusInProgress: true,
	StatusDone:       true,
	StatusCancelled:  true,
}

var validTaskPriorities = map[string]bool{
	PriorityLow:    true,
	PriorityNormal: true,
	PriorityHigh:   true,
}

func (s *Service) CreateTask(ctx context.Context, t *Task) error {
	if t.MitarbeiterID == uuid.Nil {
		return fmt.Errorf("%w: mitarbeiter_id is required", ErrInvalidInput)
	}
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len(t.Title) > maxTitleLength {
		return fmt.Errorf("%w: title must be at most %d characters", ErrInvalidInput, maxTitleLength)
	}
	if t.Priority == "" {
		t.Priority = PriorityNormal
	}
	if !validTaskPriorities[t.Priority] {
		return fmt.Errorf("%w: invalid priority: %s", ErrInvalidInput, t.Priority)
	}
	if t.Status == "" {
		t.Status = StatusOpen
	}
	if !validTaskStatuses[t.Status] {
		return fmt.Errorf("%w: invalid status: %s", ErrInvalidInput, t.Status)
	}
	t.Description = strings.TrimSpace(t.Description)
	return s.tasks.Create(ctx, t)
}

func (s *Service) GetTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	return s.tasks.GetByID(ctx, id)
}

func (s *Service) ListTasksByMitarbeiter(ctx context.Context, mitarbeiterID uuid.UUID, status string) ([]*Task, error) {
	if status != "" && !validTaskStatuses[status] {
		return nil, fmt.Errorf("%w: invalid status: %s", ErrInvalidInput, status)
	}
	return s.tasks.ListByMitarbeiter(ctx, mitarbeiterID, status)
}

// OpenTasks returns the caregiver's open and in-progress tasks.
func (s *Service) OpenTasks(ctx context.Context, mitarbeiterID uuid.UUID) ([]*Task, error) {
	all, err := s.tasks.ListByMitarbeiter(ctx, mitarbeiterID, "")
	if err != nil {
		return nil, err
	}
	open := make([]*Task, 0, len(all))
	for _, t := range all {
		if t.Open() {
			open = append(open, t)
		}
	}
	return open, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Task, error) {
	status = strings.TrimSpace(status)
	if !validTaskStatuses[status] {
		return nil, fmt.Errorf("%w: invalid status: %q", ErrInvalidInput, status)
	}
	return s.tasks.UpdateStatus(ctx, id, status)
}

func (s *Service) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return s.tasks.Delete(ctx, id)
}
