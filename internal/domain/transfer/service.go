package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pflege/pflege/internal/domain/assignment"
	"github.com/pflege/pflege/internal/domain/identity"
	"github.com/pflege/pflege/internal/platform/cache"
	"github.com/pflege/pflege/internal/platform/db"
	"github.com/pflege/pflege/internal/platform/events"
)

const (
	maxReasonLength   = 1000
	maxLocationLength = 100
)

type Patients interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
	UpdatePatientLocation(ctx context.Context, id uuid.UUID, location string) error
}

type Assignments interface {
	TransferPatient(ctx context.Context, patientID uuid.UUID, reason string) (*assignment.TransferResult, error)
}

// Transactor runs fn atomically. *db.TxRunner implements it for Postgres.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type direct struct{}

func (direct) InTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type Service struct {
	repo        Repository
	patients    Patients
	assignments Assignments
	tx          Transactor
	publisher   events.Publisher
	cache       cache.Cache
	logger      zerolog.Logger
}

func NewService(repo Repository, patients Patients, assignments Assignments, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		patients:    patients,
		assignments: assignments,
		tx:          direct{},
		publisher:   events.Nop{},
		cache:       cache.Nop{},
		logger:      logger,
	}
}

func (s *Service) SetTransactor(tx Transactor) {
	s.tx = tx
}

func (s *Service) SetPublisher(p events.Publisher) {
	s.publisher = p
}

func (s *Service) SetCache(c cache.Cache) {
	s.cache = c
}

// Create files a pending request. The patient's current location is copied
// from the patient record.
func (s *Service) Create(ctx context.Context, r *Request) error {
	if r.RequesterID == uuid.Nil {
		return fmt.Errorf("%w: requester_id is required", ErrInvalidInput)
	}
	if r.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient_id is required", ErrInvalidInput)
	}
	r.DesiredLocation = strings.TrimSpace(r.DesiredLocation)
	if r.DesiredLocation == "" {
		return fmt.Errorf("%w: desired_location is required", ErrInvalidInput)
	}
	if len(r.DesiredLocation) > maxLocationLength {
		return fmt.Errorf("%w: desired_location must be at most %d characters", ErrInvalidInput, maxLocationLength)
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}
	if len(r.Reason) > maxReasonLength {
		return fmt.Errorf("%w: reason must be at most %d characters", ErrInvalidInput, maxReasonLength)
	}

	p, err := s.patients.GetPatient(ctx, r.PatientID)
	if errors.Is(err, identity.ErrPatientNotFound) {
		return ErrPatientNotFound
	}
	if err != nil {
		return fmt.Errorf("load patient: %w", err)
	}
	r.CurrentLocation = p.Location
	r.Status = StatusPending
	r.DecidedBy, r.DecidedAt, r.DecisionNote = nil, nil, ""

	if err := s.repo.Create(ctx, r); err != nil {
		return fmt.Errorf("create transfer request: %w", err)
	}
	s.changed(ctx, events.TypeTransferRequested, r)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Request, error) {
	return s.repo.GetByID(ctx, id)
}

var validStatuses = map[string]bool{
	StatusPending:  true,
	StatusApproved: true,
	StatusRejected: true,
}

func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]*Request, int, error) {
	if status != "" && !validStatuses[status] {
		return nil, 0, fmt.Errorf("%w: invalid status: %s", ErrInvalidInput, status)
	}
	return s.repo.List(ctx, status, limit, offset)
}

func (s *Service) CountPending(ctx context.Context) (int, error) {
	return s.repo.CountPending(ctx)
}

// Approve decides the request, moves the patient to the desired location and
// ends their active assignment with reason "transferred". A patient without
// an active assignment is still moved. All three steps share one
// transaction; events and cache invalidation follow its commit.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, d Decision) (*Approval, error) {
	d.Note = strings.TrimSpace(d.Note)
	out := &Approval{}
	txCtx, after := db.WithAfterCommit(ctx)
	err := s.tx.InTx(txCtx, func(ctx context.Context) error {
		req, err := s.repo.Decide(ctx, id, StatusApproved, d)
		if err != nil {
			return err
		}
		out.Request = req

		if err := s.patients.UpdatePatientLocation(ctx, req.PatientID, req.DesiredLocation); err != nil {
			return fmt.Errorf("update patient location: %w", err)
		}

		res, err := s.assignments.TransferPatient(ctx, req.PatientID, assignment.StatusTransferred)
		switch {
		case errors.Is(err, assignment.ErrNoActiveAssignment):
			s.logger.Info().Str("patient_id", req.PatientID.String()).
				Msg("approved transfer for patient without active assignment")
		case err != nil:
			return fmt.Errorf("end assignment: %w", err)
		default:
			out.Transfer = res
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	after.Run(ctx)
	s.changed(ctx, events.TypeTransferDecided, out.Request)
	return out, nil
}

func (s *Service) Reject(ctx context.Context, id uuid.UUID, d Decision) (*Request, error) {
	d.Note = strings.TrimSpace(d.Note)
	req, err := s.repo.Decide(ctx, id, StatusRejected, d)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, events.TypeTransferDecided, req)
	return req, nil
}

func (s *Service) changed(ctx context.Context, eventType string, r *Request) {
	if err := s.publisher.Publish(ctx, eventType, r.PatientID.String(), map[string]interface{}{
		"transfer_id":      r.ID.String(),
		"patient_id":       r.PatientID.String(),
		"requester_id":     r.RequesterID.String(),
		"status":           r.Status,
		"desired_location": r.DesiredLocation,
	}); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("publish transfer event")
	}
	if err := s.cache.Delete(ctx, cache.KeyAdminDashboard); err != nil {
		s.logger.Warn().Err(err).Msg("invalidate dashboard cache")
	}
}
