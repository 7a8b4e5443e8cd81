package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/pflege/pflege/internal/domain/notification"
)

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, n *notification.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = r.s.now()
	cp := *n
	r.s.notifications = append(r.s.notifications, &cp)
	return nil
}

func (r notificationRepo) ListUnread(_ context.Context, mitarbeiterID uuid.UUID, kind string, limit int) ([]*notification.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*notification.Notification
	for i := len(r.s.notifications) - 1; i >= 0; i-- {
		n := r.s.notifications[i]
		if n.MitarbeiterID == mitarbeiterID && n.Kind == kind && !n.Read {
			cp := *n
			out = append(out, &cp)
		}
	}
	return window(out, limit, 0), nil
}

func (r notificationRepo) CountUnread(_ context.Context, mitarbeiterID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	count := 0
	for _, n := range r.s.notifications {
		if n.MitarbeiterID == mitarbeiterID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r notificationRepo) MarkRead(_ context.Context, id uuid.UUID, owner *uuid.UUID) (*notification.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.notifications {
		if n.ID != id {
			continue
		}
		if owner != nil && n.MitarbeiterID != *owner {
			break
		}
		if !n.Read {
			now := r.s.now()
			n.Read = true
			n.ReadAt = &now
		}
		cp := *n
		return &cp, nil
	}
	return nil, notification.ErrNotFound
}
