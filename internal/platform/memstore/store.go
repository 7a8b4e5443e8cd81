// Package memstore keeps every repository in process memory behind one
// RWMutex. It backs STORAGE_DRIVER=memory and the end-to-end tests.
package memstore

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pflege/pflege/internal/domain/assignment"
	"github.com/pflege/pflege/internal/domain/identity"
	"github.com/pflege/pflege/internal/domain/notification"
	"github.com/pflege/pflege/internal/domain/task"
	"github.com/pflege/pflege/internal/domain/transfer"
	"github.com/pflege/pflege/internal/domain/vitals"
)

type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	mitarbeiter   map[uuid.UUID]*identity.Mitarbeiter
	patients      map[uuid.UUID]*identity.Patient
	patientOrder  []uuid.UUID
	admins        map[uuid.UUID]*identity.Admin
	assignments   []*assignment.Assignment
	vitals        []*vitals.Vital
	notifications []*notification.Notification
	transfers     []*transfer.Request
	tasks         []*task.Task
}

func New() *Store {
	return &Store{
		now:         func() time.Time { return time.Now().UTC() },
		mitarbeiter: make(map[uuid.UUID]*identity.Mitarbeiter),
		patients:    make(map[uuid.UUID]*identity.Patient),
		admins:      make(map[uuid.UUID]*identity.Admin),
	}
}

func (s *Store) Mitarbeiter() identity.MitarbeiterRepository { return mitarbeiterRepo{s} }
func (s *Store) Patients() identity.PatientRepository        { return patientRepo{s} }
func (s *Store) Admins() identity.AdminRepository            { return adminRepo{s} }
func (s *Store) Assignments() assignment.Repository          { return assignmentRepo{s} }
func (s *Store) Vitals() vitals.Repository                   { return vitalsRepo{s} }
func (s *Store) Notifications() notification.Repository      { return notificationRepo{s} }
func (s *Store) Transfers() transfer.Repository              { return transferRepo{s} }
func (s *Store) Tasks() task.TaskRepository                  { return taskRepo{s} }

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
