package assignment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrMitarbeiterNotFound = errors.New("mitarbeiter not found")
	ErrAlreadyAssigned     = errors.New("patient already has an active assignment")
	ErrNoActiveAssignment  = errors.New("patient has no active assignment")
	ErrCapacityExhausted   = errors.New("all caregivers are at capacity")

	// ErrCaregiverFull is returned by InsertIfCapacity when the caregiver
	// reached capacity between the workload read and the write.
	ErrCaregiverFull = errors.New("caregiver is at capacity")
)

type Repository interface {
	// Workload lists every caregiver with their active count, ascending by
	// count then id.
	Workload(ctx context.Context) ([]Workload, error)
	PatientExists(ctx context.Context, patientID uuid.UUID) (bool, error)
	ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*Assignment, error)
	// InsertIfCapacity atomically creates an active assignment unless the
	// patient is already actively assigned (ErrAlreadyAssigned) or the
	// caregiver holds capacity or more active assignments (ErrCaregiverFull).
	InsertIfCapacity(ctx context.Context, mitarbeiterID, patientID uuid.UUID, capacity int) (*Assignment, error)
	// EndActive sets the status of the patient's active assignment and
	// stamps ended_at. Returns ErrNoActiveAssignment when there is none.
	EndActive(ctx context.Context, patientID uuid.UUID, status string) (*Assignment, error)
	// UnassignedPatients lists patients without an active assignment in
	// creation order, skipping exclude.
	UnassignedPatients(ctx context.Context, exclude uuid.UUID) ([]uuid.UUID, error)
	AssignedPatients(ctx context.Context, mitarbeiterID uuid.UUID) ([]AssignedPatient, error)
}
