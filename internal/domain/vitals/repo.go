package vitals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrPatientNotFound = errors.New("patient not found")
)

// Repository persists vital records. Listings are newest first.
type Repository interface {
	Create(ctx context.Context, v *Vital) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*Vital, error)
	// LatestForPatients returns the newest record per patient. Patients
	// without records are absent from the map.
	LatestForPatients(ctx context.Context, patientIDs []uuid.UUID) (map[uuid.UUID]*Vital, error)
	RecentForPatients(ctx context.Context, patientIDs []uuid.UUID, limit int) ([]*Vital, error)
	CriticalForPatientsSince(ctx context.Context, patientIDs []uuid.UUID, since time.Time, limit int) ([]*Vital, error)
	CountCriticalSince(ctx context.Context, since time.Time) (int, error)
}
