package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("notification not found")
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	// ListUnread returns unread notifications of the given kind, newest first.
	ListUnread(ctx context.Context, mitarbeiterID uuid.UUID, kind string, limit int) ([]*Notification, error)
	CountUnread(ctx context.Context, mitarbeiterID uuid.UUID) (int, error)
	// MarkRead marks the notification read. A non-nil owner restricts the
	// update to that caregiver's notifications.
	MarkRead(ctx context.Context, id uuid.UUID, owner *uuid.UUID) (*Notification, error)
}
