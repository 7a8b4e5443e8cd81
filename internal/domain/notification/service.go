package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const defaultListLimit = 50

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Notify stores a notification for a caregiver.
func (s *Service) Notify(ctx context.Context, n *Notification) error {
	if n.MitarbeiterID == uuid.Nil {
		return fmt.Errorf("%w: mitarbeiter_id is required", ErrInvalidInput)
	}
	n.Message = strings.TrimSpace(n.Message)
	if n.Message == "" {
		return fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	if n.Kind == "" {
		n.Kind = KindCriticalVitals
	}
	n.Read = false
	n.ReadAt = nil
	return s.repo.Create(ctx, n)
}

// ListCritical returns the caregiver's unread critical-vitals notifications.
func (s *Service) ListCritical(ctx context.Context, mitarbeiterID uuid.UUID, limit int) ([]*Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.ListUnread(ctx, mitarbeiterID, KindCriticalVitals, limit)
}

func (s *Service) CountUnread(ctx context.Context, mitarbeiterID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, mitarbeiterID)
}

// MarkRead is idempotent. owner restricts the update to that caregiver;
// pass nil for admins.
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID, owner *uuid.UUID) (*Notification, error) {
	return s.repo.MarkRead(ctx, id, owner)
}
