package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pflege/pflege/internal/domain/assignment"
	"github.com/pflege/pflege/internal/domain/identity"
	"github.com/pflege/pflege/internal/domain/notification"
	"github.com/pflege/pflege/internal/domain/task"
	"github.com/pflege/pflege/internal/domain/vitals"
	"github.com/pflege/pflege/internal/platform/cache"
)

type People interface {
	GetMitarbeiter(ctx context.Context, id uuid.UUID) (*identity.Mitarbeiter, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
	CountMitarbeiter(ctx context.Context) (int, error)
	ListPatients(ctx context.Context, limit, offset int) ([]*identity.Patient, int, error)
}

type Assignments interface {
	Capacity() int
	AssignedPatients(ctx context.Context, mitarbeiterID uuid.UUID) ([]assignment.AssignedPatient, error)
	CaregiverForPatient(ctx context.Context, patientID uuid.UUID) (uuid.UUID, bool, error)
	GetStatistics(ctx context.Context) (*assignment.Statistics, error)
}

type Vitals interface {
	CriticalForCaregiverSince(ctx context.Context, mitarbeiterID uuid.UUID, since time.Time, limit int) ([]vitals.VitalView, error)
	LatestForPatient(ctx context.Context, patientID uuid.UUID) (*vitals.VitalView, error)
	HistoryForPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]vitals.VitalView, error)
	CountCriticalSince(ctx context.Context, since time.Time) (int, error)
}

type Tasks interface {
	OpenTasks(ctx context.Context, mitarbeiterID uuid.UUID) ([]*task.Task, error)
}

type Notifications interface {
	ListCritical(ctx context.Context, mitarbeiterID uuid.UUID, limit int) ([]*notification.Notification, error)
	CountUnread(ctx context.Context, mitarbeiterID uuid.UUID) (int, error)
}

type Transfers interface {
	CountPending(ctx context.Context) (int, error)
}

// Sources groups the services a dashboard reads from.
type Sources struct {
	People        People
	Assignments   Assignments
	Vitals        Vitals
	Tasks         Tasks
	Notifications Notifications
	Transfers     Transfers
}

type Service struct {
	src    Sources
	cache  cache.Cache
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(src Sources, logger zerolog.Logger) *Service {
	return &Service{src: src, cache: cache.Nop{}, logger: logger, now: time.Now}
}

// SetCache enables caching of the admin dashboard.
func (s *Service) SetCache(c cache.Cache) {
	s.cache = c
}

const dashboardListLimit = 20

func (s *Service) Caregiver(ctx context.Context, mitarbeiterID uuid.UUID) (*CaregiverDashboard, error) {
	m, err := s.src.People.GetMitarbeiter(ctx, mitarbeiterID)
	if err != nil {
		return nil, err
	}
	patients, err := s.src.Assignments.AssignedPatients(ctx, mitarbeiterID)
	if err != nil {
		return nil, fmt.Errorf("assigned patients: %w", err)
	}
	now := s.now()
	critical, err := s.src.Vitals.CriticalForCaregiverSince(ctx, mitarbeiterID, now.Add(-CriticalWindow), dashboardListLimit)
	if err != nil {
		return nil, fmt.Errorf("critical vitals: %w", err)
	}
	tasks, err := s.src.Tasks.OpenTasks(ctx, mitarbeiterID)
	if err != nil {
		return nil, fmt.Errorf("open tasks: %w", err)
	}
	unread, err := s.src.Notifications.CountUnread(ctx, mitarbeiterID)
	if err != nil {
		return nil, fmt.Errorf("unread notifications: %w", err)
	}
	notes, err := s.src.Notifications.ListCritical(ctx, mitarbeiterID, dashboardListLimit)
	if err != nil {
		return nil, fmt.Errorf("notifications: %w", err)
	}

	capacity := s.src.Assignments.Capacity()
	remaining := capacity - len(patients)
	if remaining < 0 {
		remaining = 0
	}
	if patients == nil {
		patients = []assignment.AssignedPatient{}
	}
	if notes == nil {
		notes = []*notification.Notification{}
	}
	return &CaregiverDashboard{
		Mitarbeiter:         m,
		Patients:            patients,
		PatientCount:        len(patients),
		Capacity:            capacity,
		RemainingCapacity:   remaining,
		CriticalVitals:      critical,
		OpenTasks:           tasks,
		UnreadNotifications: unread,
		Notifications:       notes,
		GeneratedAt:         now.UTC(),
	}, nil
}

func (s *Service) Patient(ctx context.Context, patientID uuid.UUID) (*PatientDashboard, error) {
	p, err := s.src.People.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	out := &PatientDashboard{Patient: p, GeneratedAt: s.now().UTC()}

	mid, ok, err := s.src.Assignments.CaregiverForPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("caregiver for patient: %w", err)
	}
	if ok {
		m, err := s.src.People.GetMitarbeiter(ctx, mid)
		switch {
		case err == nil:
			out.Caregiver = m
		case errors.Is(err, identity.ErrMitarbeiterNotFound):
			s.logger.Warn().Str("mitarbeiter_id", mid.String()).Msg("assigned caregiver no longer exists")
		default:
			return nil, fmt.Errorf("load caregiver: %w", err)
		}
	}

	if out.Latest, err = s.src.Vitals.LatestForPatient(ctx, patientID); err != nil {
		return nil, err
	}
	if out.History, err = s.src.Vitals.HistoryForPatient(ctx, patientID, patientHistoryLimit); err != nil {
		return nil, err
	}
	return out, nil
}

// Admin returns facility totals and assignment statistics. The result is
// cached until the next assignment or transfer change, or the cache TTL.
func (s *Service) Admin(ctx context.Context) (*AdminDashboard, error) {
	var cached AdminDashboard
	if err := s.cache.Get(ctx, cache.KeyAdminDashboard, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn().Err(err).Msg("read admin dashboard cache")
	}

	stats, err := s.src.Assignments.GetStatistics(ctx)
	if err != nil {
		return nil, err
	}
	caregivers, err := s.src.People.CountMitarbeiter(ctx)
	if err != nil {
		return nil, fmt.Errorf("count caregivers: %w", err)
	}
	_, patients, err := s.src.People.ListPatients(ctx, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("count patients: %w", err)
	}
	pending, err := s.src.Transfers.CountPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("count pending transfers: %w", err)
	}
	now := s.now()
	critical, err := s.src.Vitals.CountCriticalSince(ctx, now.Add(-CriticalWindow))
	if err != nil {
		return nil, fmt.Errorf("count critical vitals: %w", err)
	}

	out := &AdminDashboard{
		Totals: AdminTotals{
			Caregivers:         caregivers,
			Patients:           patients,
			ActiveAssignments:  stats.Totals.ActiveAssignments,
			UnassignedPatients: stats.Totals.UnassignedPatients,
			PendingTransfers:   pending,
			CriticalVitals24h:  critical,
		},
		Statistics:  stats,
		GeneratedAt: now.UTC(),
	}
	if err := s.cache.Set(ctx, cache.KeyAdminDashboard, out); err != nil {
		s.logger.Warn().Err(err).Msg("write admin dashboard cache")
	}
	return out, nil
}
