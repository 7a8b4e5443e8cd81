package assignment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pflege/pflege/internal/platform/cache"
	"github.com/pflege/pflege/internal/platform/db"
	"github.com/pflege/pflege/internal/platform/events"
	"github.com/pflege/pflege/internal/platform/reporting"
)

// Transactor runs fn atomically. *db.TxRunner implements it for Postgres;
// nested calls run under a savepoint.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type direct struct{}

func (direct) InTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type Service struct {
	repo      Repository
	capacity  int
	tx        Transactor
	publisher events.Publisher
	cache     cache.Cache
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, capacity int, logger zerolog.Logger) *Service {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Service{
		repo:      repo,
		capacity:  capacity,
		tx:        direct{},
		publisher: events.Nop{},
		cache:     cache.Nop{},
		logger:    logger,
		now:       time.Now,
	}
}

// SetPublisher attaches the event publisher used for assignment events.
func (s *Service) SetPublisher(p events.Publisher) {
	s.publisher = p
}

// SetCache attaches the cache whose dashboard entries are dropped after
// every assignment change.
func (s *Service) SetCache(c cache.Cache) {
	s.cache = c
}

// SetTransactor makes the backfill after a transfer atomic. A failed
// backfill then leaves an enclosing transaction usable.
func (s *Service) SetTransactor(tx Transactor) {
	s.tx = tx
}

func (s *Service) Capacity() int {
	return s.capacity
}

// Workload returns caregivers ascending by active count, ties by id.
func (s *Service) Workload(ctx context.Context) ([]Workload, error) {
	items, err := s.repo.Workload(ctx)
	if err != nil {
		return nil, fmt.Errorf("load workload: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ActiveCount != items[j].ActiveCount {
			return items[i].ActiveCount < items[j].ActiveCount
		}
		return items[i].MitarbeiterID.String() < items[j].MitarbeiterID.String()
	})
	return items, nil
}

// AssignPatient gives the patient to the least loaded caregiver below
// capacity. If a candidate fills up concurrently the next one is tried.
func (s *Service) AssignPatient(ctx context.Context, patientID uuid.UUID) (*AssignResult, error) {
	exists, err := s.repo.PatientExists(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("check patient: %w", err)
	}
	if !exists {
		return nil, ErrPatientNotFound
	}

	if _, err := s.repo.ActiveForPatient(ctx, patientID); err == nil {
		return nil, ErrAlreadyAssigned
	} else if !errors.Is(err, ErrNoActiveAssignment) {
		return nil, fmt.Errorf("check active assignment: %w", err)
	}

	workload, err := s.Workload(ctx)
	if err != nil {
		return nil, err
	}

	for _, w := range workload {
		if w.ActiveCount >= s.capacity {
			continue
		}
		a, err := s.repo.InsertIfCapacity(ctx, w.MitarbeiterID, patientID, s.capacity)
		switch {
		case err == nil:
			w.ActiveCount++
			s.changed(ctx, events.TypePatientAssigned, a)
			return &AssignResult{Assignment: a, Mitarbeiter: w}, nil
		case errors.Is(err, ErrCaregiverFull), errors.Is(err, ErrMitarbeiterNotFound):
			continue
		case errors.Is(err, ErrAlreadyAssigned), errors.Is(err, ErrPatientNotFound):
			return nil, err
		default:
			return nil, fmt.Errorf("insert assignment: %w", err)
		}
	}
	return nil, ErrCapacityExhausted
}

// TransferPatient ends the patient's active assignment with reason as the
// new status and moves the first waiting patient into the freed slot.
func (s *Service) TransferPatient(ctx context.Context, patientID uuid.UUID, reason string) (*TransferResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = StatusTransferred
	}
	if reason == StatusActive {
		return nil, fmt.Errorf("%w: reason must not be %q", ErrInvalidInput, StatusActive)
	}
	if len(reason) > 30 {
		return nil, fmt.Errorf("%w: reason must be at most 30 characters", ErrInvalidInput)
	}

	ended, err := s.repo.EndActive(ctx, patientID, reason)
	if err != nil {
		if errors.Is(err, ErrNoActiveAssignment) {
			return nil, err
		}
		return nil, fmt.Errorf("end assignment: %w", err)
	}
	s.changed(ctx, events.TypePatientTransferred, ended)

	result := &TransferResult{Ended: ended}
	backfill, err := s.backfill(ctx, ended.MitarbeiterID, patientID)
	if err != nil {
		result.BackfillError = err.Error()
		s.logger.Warn().Err(err).
			Str("mitarbeiter_id", ended.MitarbeiterID.String()).
			Msg("backfill after transfer failed")
		return result, nil
	}
	if backfill != nil {
		result.Backfill = backfill
		s.changed(ctx, events.TypePatientAssigned, backfill)
	}
	return result, nil
}

func (s *Service) backfill(ctx context.Context, mitarbeiterID, transferred uuid.UUID) (*Assignment, error) {
	var out *Assignment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		waiting, err := s.repo.UnassignedPatients(ctx, transferred)
		if err != nil {
			return fmt.Errorf("list unassigned patients: %w", err)
		}
		for _, pid := range waiting {
			a, err := s.repo.InsertIfCapacity(ctx, mitarbeiterID, pid, s.capacity)
			if errors.Is(err, ErrAlreadyAssigned) {
				continue
			}
			if err != nil {
				return err
			}
			out = a
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PerformInitialAssignment assigns every unassigned patient one by one.
// Failures are collected per patient; earlier successes are kept.
func (s *Service) PerformInitialAssignment(ctx context.Context) (*InitialSummary, error) {
	waiting, err := s.repo.UnassignedPatients(ctx, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("list unassigned patients: %w", err)
	}

	summary := &InitialSummary{Total: len(waiting), Results: make([]InitialResult, 0, len(waiting))}
	for _, pid := range waiting {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res := InitialResult{PatientID: pid}
		out, err := s.AssignPatient(ctx, pid)
		if err != nil {
			res.Error = err.Error()
			summary.Failed++
		} else {
			mid := out.Mitarbeiter.MitarbeiterID
			res.Success = true
			res.MitarbeiterID = &mid
			summary.Assigned++
		}
		summary.Results = append(summary.Results, res)
	}

	s.logger.Info().
		Int("total", summary.Total).
		Int("assigned", summary.Assigned).
		Int("failed", summary.Failed).
		Msg("initial assignment finished")
	return summary, nil
}

// GetStatistics reports per-caregiver load, descending by assigned count.
// Results are served from the cache until the next assignment change.
func (s *Service) GetStatistics(ctx context.Context) (*Statistics, error) {
	var cached Statistics
	if err := s.cache.Get(ctx, cache.KeyStatistics, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn().Err(err).Msg("read statistics cache")
	}

	workload, err := s.repo.Workload(ctx)
	if err != nil {
		return nil, fmt.Errorf("load workload: %w", err)
	}
	waiting, err := s.repo.UnassignedPatients(ctx, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("list unassigned patients: %w", err)
	}
	stats := buildStatistics(workload, len(waiting), s.capacity, s.now())
	if err := s.cache.Set(ctx, cache.KeyStatistics, stats); err != nil {
		s.logger.Warn().Err(err).Msg("write statistics cache")
	}
	return stats, nil
}

func buildStatistics(workload []Workload, unassigned, capacity int, now time.Time) *Statistics {
	stats := &Statistics{
		Capacity:    capacity,
		GeneratedAt: now.UTC(),
		Caregivers:  make([]CaregiverStatistics, 0, len(workload)),
	}
	for _, w := range workload {
		remaining := capacity - w.ActiveCount
		if remaining < 0 {
			remaining = 0
		}
		stats.Caregivers = append(stats.Caregivers, CaregiverStatistics{
			MitarbeiterID: w.MitarbeiterID,
			Username:      w.Username,
			Name:          w.Name,
			Assigned:      w.ActiveCount,
			Remaining:     remaining,
		})
		stats.Totals.ActiveAssignments += w.ActiveCount
		stats.Totals.RemainingCapacity += remaining
	}
	sort.SliceStable(stats.Caregivers, func(i, j int) bool {
		a, b := stats.Caregivers[i], stats.Caregivers[j]
		if a.Assigned != b.Assigned {
			return a.Assigned > b.Assigned
		}
		return a.MitarbeiterID.String() < b.MitarbeiterID.String()
	})
	stats.Totals.Caregivers = len(workload)
	stats.Totals.UnassignedPatients = unassigned
	stats.Totals.TotalCapacity = capacity * len(workload)
	return stats
}

// ExportStatistics renders GetStatistics as an .xlsx workbook.
func (s *Service) ExportStatistics(ctx context.Context) ([]byte, error) {
	stats, err := s.GetStatistics(ctx)
	if err != nil {
		return nil, err
	}
	report := reporting.StatisticsReport{
		GeneratedAt: stats.GeneratedAt,
		Summary: reporting.Summary{
			Capacity:           stats.Capacity,
			Caregivers:         stats.Totals.Caregivers,
			ActiveAssignments:  stats.Totals.ActiveAssignments,
			UnassignedPatients: stats.Totals.UnassignedPatients,
			TotalCapacity:      stats.Totals.TotalCapacity,
			RemainingCapacity:  stats.Totals.RemainingCapacity,
		},
	}
	for _, c := range stats.Caregivers {
		report.Rows = append(report.Rows, reporting.WorkloadRow{
			MitarbeiterID: c.MitarbeiterID.String(),
			Username:      c.Username,
			Name:          c.Name,
			Assigned:      c.Assigned,
			Remaining:     c.Remaining,
		})
	}
	return reporting.ExportStatistics(report)
}

// AssignedPatients lists the caregiver's actively assigned patients.
func (s *Service) AssignedPatients(ctx context.Context, mitarbeiterID uuid.UUID) ([]AssignedPatient, error) {
	return s.repo.AssignedPatients(ctx, mitarbeiterID)
}

// CaregiverForPatient returns the caregiver holding the patient's active
// assignment. ok is false when the patient is unassigned.
func (s *Service) CaregiverForPatient(ctx context.Context, patientID uuid.UUID) (uuid.UUID, bool, error) {
	a, err := s.repo.ActiveForPatient(ctx, patientID)
	if errors.Is(err, ErrNoActiveAssignment) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return a.MitarbeiterID, true, nil
}

// changed publishes the event and drops cached dashboards. Both are best
// effort and only logged on failure. Inside a caller's transaction they wait
// for its commit.
func (s *Service) changed(ctx context.Context, eventType string, a *Assignment) {
	data := map[string]interface{}{
		"assignment_id":  a.ID.String(),
		"mitarbeiter_id": a.MitarbeiterID.String(),
		"patient_id":     a.PatientID.String(),
		"status":         a.Status,
	}
	db.Defer(ctx, func(ctx context.Context) {
		if err := s.publisher.Publish(ctx, eventType, a.PatientID.String(), data); err != nil {
			s.logger.Warn().Err(err).Str("event", eventType).Msg("publish assignment event")
		}
		if err := s.cache.Delete(ctx, cache.KeyAdminDashboard, cache.KeyStatistics); err != nil {
			s.logger.Warn().Err(err).Msg("invalidate dashboard cache")
		}
	})
}
